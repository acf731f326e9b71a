// Package config holds compiler-wide constants and the optional
// `tomo.yaml` project config, following the teacher's internal/config
// split between fixed constants (constants.go) and loaded settings.
package config

// Version is the compiler's version string.
var Version = "0.1.0"

const SourceFileExt = ".tm"

// SourceFileExtensions are all recognized source file extensions.
var SourceFileExtensions = []string{".tm"}

// TrimSourceExt removes a recognized source extension from a filename.
func TrimSourceExt(name string) string {
	for _, ext := range SourceFileExtensions {
		if len(name) >= len(ext) && name[len(name)-len(ext):] == ext {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}

// HasSourceExt reports whether path ends with a recognized source extension.
func HasSourceExt(path string) bool {
	for _, ext := range SourceFileExtensions {
		if len(path) >= len(ext) && path[len(path)-len(ext):] == ext {
			return true
		}
	}
	return false
}

// IsTestMode is set by test helpers that want deterministic, environment-
// independent output (e.g. suppressing ANSI color in diagnostics).
var IsTestMode = false

// InstalledLibsDirSuffix is the home-relative directory library modules
// resolve under (spec §6.3: "use
// foo — library module, resolved to ~/.local/share/tomo/installed/foo/*.tm").
const InstalledLibsDirSuffix = ".local/share/tomo/installed"

// Built-in type names, used by the checker's prelude and the emitter's
// runtime-symbol mangling.
const (
	TypeNameBool    = "Bool"
	TypeNameInt     = "Int"
	TypeNameNum     = "Num"
	TypeNameText    = "Text"
	TypeNameList    = "List"
	TypeNameSet     = "Set"
	TypeNameTable   = "Table"
	TypeNameMoment  = "Moment"
	TypeNameMemory  = "Memory"
)

// Environment variables the driver consumes (spec §6.2); named here so the
// core and cmd/tomoc agree on spelling without importing the driver.
const (
	EnvVerbose = "VERBOSE"
	EnvAutofmt = "AUTOFMT"
	EnvCConfig = "CCONFIG"
	EnvCFlags  = "CFLAGS"
	EnvLDLibs  = "LDLIBS"
	EnvCC      = "CC"
)
