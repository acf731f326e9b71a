// Package utils holds small path-resolution helpers shared by the module
// loader and the driver, following the teacher's internal/utils split
// (generic helpers that don't belong to any one compiler stage).
package utils

import (
	"path/filepath"

	"github.com/tomo-lang/tomo/internal/config"
)

// ResolveImportPath resolves a `use` path relative to a base directory when
// it starts with a dot (spec §6.3: "use ./foo.tm — path relative to
// current file"); library and passthrough paths are returned unchanged.
func ResolveImportPath(baseDir, importPath string) string {
	if len(importPath) > 0 && importPath[0] == '.' {
		if baseDir != "." && baseDir != "" {
			return filepath.Join(baseDir, importPath)
		}
	}
	return importPath
}

// ExtractModuleName derives a module name from a file path: the base
// filename with any recognized source extension trimmed.
func ExtractModuleName(path string) string {
	name := filepath.Base(path)
	return config.TrimSourceExt(name)
}

// GetModuleDir returns the directory context for a module path: the file's
// directory if path names a source file, or path itself if it is already
// a directory (a library module, spec §6.3 "use foo").
func GetModuleDir(path string) string {
	if config.HasSourceExt(path) {
		return filepath.Dir(path)
	}
	return path
}
