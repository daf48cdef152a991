package database

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"github.com/ttaaoo/logkv/internal/log"
)

// ErrNotFound is returned by Read for keys that were never written or whose
// newest record is a delete.
var ErrNotFound = log.ErrNotFound

// Database is the create/read/update/delete face of the log. Every change is
// a new entry appended through the segment handler; nothing already written
// is ever rewritten.
//
// mu makes choosing a key and appending its record one step, so a Create can
// never be handed a key that a concurrent Update or Delete is writing.
type Database struct {
	mu      sync.Mutex
	handler *log.SegmentHandler
	keys    KeyGenerator
	logger  *zerolog.Logger
}

type Option func(*Database)

func WithLogger(logger *zerolog.Logger) Option {
	return func(d *Database) {
		d.logger = logger
	}
}

// New builds a Database over h. Every key already in the log is passed to
// keys.Observe first, so Create never hands out a key the log holds.
func New(h *log.SegmentHandler, keys KeyGenerator, opts ...Option) (*Database, error) {
	d := &Database{
		handler: h,
		keys:    keys,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		logger := zerolog.New(os.Stderr).With().Str("service", "database").Logger()
		d.logger = &logger
	}
	if d.keys == nil {
		d.keys = &Sequence{}
	}

	records := 0
	for e, err := range h.Scan() {
		if err != nil {
			return nil, fmt.Errorf("database: recover keys: %w", err)
		}
		d.keys.Observe(e.Key())
		records++
	}
	d.logger.Debug().Int("records", records).Msg("recovered keys")

	return d, nil
}

// Create stores value under a freshly generated key and returns the key.
func (d *Database) Create(value string) (string, error) {
	if err := checkValue(value); err != nil {
		return "", err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	key := d.keys.Next()
	if err := d.handler.Add(log.NewEntry(key, value)); err != nil {
		d.logger.Error().Err(err).Str("key", key).Msg("create failed")
		return "", err
	}
	return key, nil
}

// Read returns the live value for key, or ErrNotFound.
func (d *Database) Read(key string) (string, error) {
	return d.handler.Find(key)
}

// Update appends value as the newest record for key. Keys that were never
// created are written all the same.
func (d *Database) Update(key, value string) error {
	if err := checkValue(value); err != nil {
		return err
	}
	return d.write(key, value)
}

// Delete appends a tombstone for key.
func (d *Database) Delete(key string) error {
	return d.write(key, log.Tombstone)
}

func (d *Database) write(key, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.keys.Observe(key)
	if err := d.handler.Add(log.NewEntry(key, value)); err != nil {
		d.logger.Error().Err(err).Str("key", key).Msg("write failed")
		return err
	}
	return nil
}

func checkValue(value string) error {
	if value == log.Tombstone {
		return &log.Error{Kind: log.KindInvalidEntry, Op: "check", Err: errors.New("value is the reserved tombstone")}
	}
	return nil
}
