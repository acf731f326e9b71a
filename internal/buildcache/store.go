package buildcache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"

	_ "modernc.org/sqlite"
)

// Store is the persistent half of the build cache: emitted C text keyed by
// a hash of the source that produced it, so a second invocation over an
// unchanged entry file skips re-emitting C. Doctest results are not stored.
type Store struct {
	db *sql.DB // nil when backed by the in-memory fallback
	mem map[string]string
}

// Open backs the store with a sqlite file at path, creating the table if
// needed. An empty path returns an in-memory-only store — the common case
// for one-shot builds that pass no --cache-db flag.
func Open(path string) (*Store, error) {
	if path == "" {
		return &Store{mem: make(map[string]string)}, nil
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS build_cache (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Key hashes content down to a short hex digest for use as a cache key,
// the same truncated-sha256 scheme funxy's ext.Cache.computeKey uses for
// its host-binary cache.
func Key(parts ...[]byte) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func (s *Store) Get(key string) (string, bool) {
	if s.db == nil {
		v, ok := s.mem[key]
		return v, ok
	}
	var value string
	err := s.db.QueryRow(`SELECT value FROM build_cache WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", false
	}
	return value, true
}

func (s *Store) Put(key, value string) error {
	if s.db == nil {
		s.mem[key] = value
		return nil
	}
	_, err := s.db.Exec(`INSERT INTO build_cache (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}
