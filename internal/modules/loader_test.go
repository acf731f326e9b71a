package modules_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tomo-lang/tomo/internal/diagnostics"
	"github.com/tomo-lang/tomo/internal/modules"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFileCachesByPath(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "greet.tm", "func greet()\n    return 1\n")

	loader := modules.NewLoader(&diagnostics.CollectSink{})
	mod1, err := loader.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	mod2, err := loader.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile (second call): %v", err)
	}
	if mod1 != mod2 {
		t.Fatal("LoadFile should return the same cached *Module on a repeat load")
	}
}

func TestCollectExportsSkipsUnderscorePrefixed(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "lib.tm", "func visible()\n    return 1\n\nfunc _hidden()\n    return 2\n")

	loader := modules.NewLoader(&diagnostics.CollectSink{})
	mod, err := loader.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if !mod.Exports["visible"] {
		t.Error("expected \"visible\" to be exported")
	}
	if mod.Exports["_hidden"] {
		t.Error("expected \"_hidden\" not to be exported")
	}
}

func TestLoadFileMissingPathErrors(t *testing.T) {
	loader := modules.NewLoader(&diagnostics.CollectSink{})
	if _, err := loader.LoadFile(filepath.Join(t.TempDir(), "missing.tm")); err == nil {
		t.Fatal("expected an error loading a nonexistent file")
	}
}
