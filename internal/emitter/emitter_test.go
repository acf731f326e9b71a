package emitter_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tomo-lang/tomo/internal/checker"
	"github.com/tomo-lang/tomo/internal/diagnostics"
	"github.com/tomo-lang/tomo/internal/emitter"
	"github.com/tomo-lang/tomo/internal/modules"
)

// emitSource runs src through the same load -> check -> emit pipeline
// cmd/tomoc's run() uses, failing the test on any diagnostic.
func emitSource(t *testing.T, src string) emitter.Output {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "main.tm")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	sink := &diagnostics.CollectSink{}
	loader := modules.NewLoader(sink)
	mod, err := loader.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	c := checker.New(sink, loader)
	rootEnv := c.CheckModule(mod)
	if len(sink.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", sink.Diagnostics)
	}
	em := emitter.New(c, rootEnv, mod.Name)
	return em.EmitFromModule(mod)
}

// TestIntRangeComprehensionEmitsCountedLoop covers spec §8.2.4's canonical
// scenario: `[x*x for x in 1.to(5)]` must lower to a direct counted C loop
// over the range bounds, with no List_t materialized for 1.to(5) itself.
func TestIntRangeComprehensionEmitsCountedLoop(t *testing.T) {
	out := emitSource(t, "func run()\n    squares := [x*x for x in 1.to(5)]\n    return\n")
	if !strings.Contains(out.Impl, "Int$compare") {
		t.Errorf("expected the BigInt range bound check in emitted C, got:\n%s", out.Impl)
	}
	if !strings.Contains(out.Impl, "Int$plus") {
		t.Errorf("expected the BigInt range step in emitted C, got:\n%s", out.Impl)
	}
}

// TestIntRangeForEmitsCountedLoop covers the plain-loop form of the same
// range, as distinct from the comprehension desugaring.
func TestIntRangeForEmitsCountedLoop(t *testing.T) {
	out := emitSource(t, "func run()\n    for i in 1.to(3)\n        pass\n    return\n")
	if !strings.Contains(out.Impl, "Int$compare") {
		t.Errorf("expected a counted range loop in emitted C, got:\n%s", out.Impl)
	}
}
