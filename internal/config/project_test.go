package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tomo-lang/tomo/internal/config"
)

func TestLoadProjectAbsentFileReturnsZeroValue(t *testing.T) {
	dir := t.TempDir()
	p, err := config.LoadProject(dir)
	if err != nil {
		t.Fatalf("LoadProject with no tomo.yaml: %v", err)
	}
	if p == nil || p.CC != "" || len(p.LibraryPaths) != 0 {
		t.Fatalf("expected a zero Project, got %+v", p)
	}
}

func TestLoadProjectParsesYAML(t *testing.T) {
	dir := t.TempDir()
	contents := "cc: clang\ncflags: [-O2, -Wall]\nlibrary_paths: [/usr/local/include]\nldlibs: [-lm]\n"
	if err := os.WriteFile(filepath.Join(dir, config.ProjectFile), []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := config.LoadProject(dir)
	if err != nil {
		t.Fatalf("LoadProject: %v", err)
	}
	if p.CC != "clang" {
		t.Errorf("CC = %q, want %q", p.CC, "clang")
	}
	if len(p.CFlags) != 2 || p.CFlags[0] != "-O2" || p.CFlags[1] != "-Wall" {
		t.Errorf("CFlags = %v, want [-O2 -Wall]", p.CFlags)
	}
	if len(p.LibraryPaths) != 1 || p.LibraryPaths[0] != "/usr/local/include" {
		t.Errorf("LibraryPaths = %v, want [/usr/local/include]", p.LibraryPaths)
	}
	if len(p.LDLibs) != 1 || p.LDLibs[0] != "-lm" {
		t.Errorf("LDLibs = %v, want [-lm]", p.LDLibs)
	}
}

func TestLoadProjectMalformedYAMLErrors(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, config.ProjectFile), []byte("cc: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := config.LoadProject(dir); err == nil {
		t.Fatal("expected an error for malformed tomo.yaml")
	}
}
