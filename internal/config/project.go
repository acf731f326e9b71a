package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ProjectFile is the name of the optional per-project config file (spec
// §6.2), mirroring funxy's own `funxy.yaml` ext-binding config.
const ProjectFile = "tomo.yaml"

// Project is `tomo.yaml`'s shape: library search paths plus default C
// toolchain settings, each overridable by the matching environment
// variable (EnvCC, EnvCFlags, EnvLDLibs) at the driver's discretion.
type Project struct {
	LibraryPaths []string `yaml:"library_paths"`
	CC           string   `yaml:"cc"`
	CFlags       []string `yaml:"cflags"`
	LDLibs       []string `yaml:"ldlibs"`
}

// LoadProject reads tomo.yaml from dir, returning a zero Project (not an
// error) when the file is absent — the config is entirely optional.
func LoadProject(dir string) (*Project, error) {
	data, err := os.ReadFile(filepath.Join(dir, ProjectFile))
	if os.IsNotExist(err) {
		return &Project{}, nil
	}
	if err != nil {
		return nil, err
	}
	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
