// Package logkv is an embedded key-value store kept in a segmented,
// append-only log.
//
// Every create, update and delete appends one line to the active segment
// file. When that file reaches the configured size a new segment is started
// and the old one is sealed. Reads search the segments newest first, so the
// latest write for a key wins and a delete hides every older value.
//
// Example usage:
//
//	db, err := logkv.Open(logkv.DefaultConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer db.Close()
//
//	key, err := db.Create("value")
//	if err != nil {
//		log.Printf("Create failed: %v", err)
//	}
//
//	value, err := db.Read(key)
//	if errors.Is(err, logkv.ErrNotFound) {
//		fmt.Println("deleted or never written")
//	}
package logkv

import (
	"github.com/ttaaoo/logkv/internal/agent"
	"github.com/ttaaoo/logkv/internal/config"
	"github.com/ttaaoo/logkv/internal/log"
)

// Config is an alias for config.Config, re-exported for user convenience.
type Config = config.Config

// DefaultConfig returns a Config populated with default values.
var DefaultConfig = config.Default

// Errors returned by DB methods. Test for them with errors.Is.
var (
	ErrNotFound        = log.ErrNotFound
	ErrInvalidEntry    = log.ErrInvalidEntry
	ErrMalformedRecord = log.ErrMalformedRecord
	ErrNoActiveSegment = log.ErrNoActiveSegment
)

// DB is an open store. It is safe for concurrent use.
type DB struct {
	agent *agent.Agent
}

// Open opens or creates the store described by cfg.
func Open(cfg Config) (*DB, error) {
	a, err := agent.New(cfg)
	if err != nil {
		return nil, err
	}
	return &DB{agent: a}, nil
}

// OpenFile opens the store described by the YAML config at path. An empty
// path means $CONFIG_DIR/logkv.yaml, or ~/.logkv/logkv.yaml.
func OpenFile(path string) (*DB, error) {
	a, err := agent.NewFromFile(path)
	if err != nil {
		return nil, err
	}
	return &DB{agent: a}, nil
}

// Create stores value under a new key and returns the key.
func (db *DB) Create(value string) (string, error) {
	return db.agent.DB().Create(value)
}

// Read returns the current value for key, or ErrNotFound.
func (db *DB) Read(key string) (string, error) {
	return db.agent.DB().Read(key)
}

// Update replaces the value for key.
func (db *DB) Update(key, value string) error {
	return db.agent.DB().Update(key, value)
}

// Delete removes key. Reads return ErrNotFound afterwards.
func (db *DB) Delete(key string) error {
	return db.agent.DB().Delete(key)
}

// Close releases the store's files. Calling it again does nothing.
func (db *DB) Close() error {
	return db.agent.Shutdown()
}
