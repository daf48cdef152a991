package agent

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/ttaaoo/logkv/internal/config"
	"github.com/ttaaoo/logkv/internal/database"
	"github.com/ttaaoo/logkv/internal/log"
)

// An Agent sets up and connects the store's components for an embedding
// process: the logger, the segment handler and the database on top of it.
type Agent struct {
	Config config.Config

	logger  zerolog.Logger
	handler *log.SegmentHandler
	db      *database.Database

	shutdown     bool
	shutdownLock sync.Mutex
}

func New(cfg config.Config) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &Agent{
		Config: cfg,
	}

	setup := []func() error{
		a.setupLogger,
		a.setupLog,
		a.setupDatabase,
	}

	for _, fn := range setup {
		if err := fn(); err != nil {
			if a.handler != nil {
				_ = a.handler.Close()
			}
			return nil, err
		}
	}

	return a, nil
}

// NewFromFile loads the YAML config at path and starts an agent with it. An
// empty path means the default config file; a missing file means defaults.
func NewFromFile(path string) (*Agent, error) {
	if path == "" {
		var err error
		if path, err = config.DefaultFile(); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return New(cfg)
}

func (a *Agent) setupLogger() error {
	var err error
	a.logger, err = config.NewLogger(a.Config.Logger, nil)
	return err
}

func (a *Agent) setupLog() error {
	logger := a.logger.With().Str("service", "segment-handler").Logger()
	c := log.Config{Logger: &logger}
	c.Segment.SizeLimit = a.Config.Store.SegmentSizeLimit

	var err error
	a.handler, err = log.NewSegmentHandler(a.Config.Store.Dir, c)
	return err
}

func (a *Agent) setupDatabase() error {
	keys, err := database.NewKeyGenerator(a.Config.Store.KeyStrategy)
	if err != nil {
		return err
	}
	logger := a.logger.With().Str("service", "database").Logger()
	a.db, err = database.New(a.handler, keys, database.WithLogger(&logger))
	if err != nil {
		return err
	}
	a.logger.Info().Str("dir", a.Config.Store.Dir).Msg("store ready")
	return nil
}

func (a *Agent) DB() *database.Database {
	return a.db
}

// Shutdown closes the store once, however many times it is called.
func (a *Agent) Shutdown() error {
	a.shutdownLock.Lock()
	defer a.shutdownLock.Unlock()

	if a.shutdown {
		return nil
	}
	a.shutdown = true

	shutdown := []func() error{
		a.handler.Close,
	}

	for _, fn := range shutdown {
		if err := fn(); err != nil {
			return err
		}
	}

	a.logger.Info().Msg("store closed")
	return nil
}
