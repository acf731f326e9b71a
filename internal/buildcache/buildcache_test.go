package buildcache_test

import (
	"path/filepath"
	"strconv"
	"testing"

	"github.com/tomo-lang/tomo/internal/ast"
	"github.com/tomo-lang/tomo/internal/buildcache"
)

func TestParseCacheRoundTrip(t *testing.T) {
	c := buildcache.NewParseCache()
	prog := &ast.Program{}
	c.Put("/a/b.tm", prog)
	got, ok := c.Get("/a/b.tm")
	if !ok || got != prog {
		t.Fatalf("Get after Put = %v, %v; want the same *ast.Program back", got, ok)
	}
	if _, ok := c.Get("/missing.tm"); ok {
		t.Fatal("Get on an unknown path should miss")
	}
}

func TestParseCacheEvictsOnceFull(t *testing.T) {
	c := buildcache.NewParseCache()
	for i := 0; i < 150; i++ {
		c.Put(filepath.Join("/pkg", strconv.Itoa(i)+".tm"), &ast.Program{})
	}
	if c.Len() > 100 {
		t.Errorf("ParseCache.Len() = %d, want <= 100", c.Len())
	}
}

func TestKeyIsStableAndOrderSensitive(t *testing.T) {
	k1 := buildcache.Key([]byte("a"), []byte("b"))
	k2 := buildcache.Key([]byte("a"), []byte("b"))
	if k1 != k2 {
		t.Fatal("Key must be deterministic for identical input")
	}
	k3 := buildcache.Key([]byte("b"), []byte("a"))
	if k1 == k3 {
		t.Fatal("Key should be sensitive to argument order")
	}
}

func TestInMemoryStoreRoundTrip(t *testing.T) {
	s, err := buildcache.Open("")
	if err != nil {
		t.Fatalf("Open(\"\") = %v", err)
	}
	defer s.Close()
	if _, ok := s.Get("missing"); ok {
		t.Fatal("Get on an empty store should miss")
	}
	if err := s.Put("k", "v"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok := s.Get("k")
	if !ok || got != "v" {
		t.Fatalf("Get(%q) = %q, %v; want %q, true", "k", got, ok, "v")
	}
	if err := s.Put("k", "v2"); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, _ = s.Get("k")
	if got != "v2" {
		t.Fatalf("Get after overwrite = %q, want %q", got, "v2")
	}
}

func TestSqliteStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := buildcache.Open(filepath.Join(dir, "cache.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	if err := s.Put("k", "v"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok := s.Get("k")
	if !ok || got != "v" {
		t.Fatalf("Get(%q) = %q, %v; want %q, true", "k", got, ok, "v")
	}
}
