package cli

import (
	"context"
	"fmt"

	"github.com/voterlookup/epic-extractor/internal/config"
	"github.com/voterlookup/epic-extractor/internal/events"
	"github.com/voterlookup/epic-extractor/internal/extraction"
	"github.com/voterlookup/epic-extractor/internal/orchestrator"
	"github.com/voterlookup/epic-extractor/internal/portal"
	"github.com/voterlookup/epic-extractor/internal/solver"
	"github.com/voterlookup/epic-extractor/internal/store"
	"github.com/voterlookup/epic-extractor/pkg/migrations"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Runtime holds the collaborators shared by the server and the one-shot
// commands.
type Runtime struct {
	Config *config.Config
	Store  store.Store
	Portal *portal.Client
	Engine *extraction.Engine
	Events *events.EventProducer
}

// NewRuntime opens the store, prepares its schema and builds the extraction
// engine from cfg.
func NewRuntime(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	client, engine, err := NewEngine(cfg)
	if err != nil {
		return nil, err
	}

	st, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &Runtime{
		Config: cfg,
		Store:  st,
		Portal: client,
		Engine: engine,
		Events: events.NewEventProducer(&events.StdoutWriter{}),
	}, nil
}

// NewEngine wires the portal client and the configured solver into an engine.
func NewEngine(cfg *config.Config) (*portal.Client, *extraction.Engine, error) {
	client, err := portal.NewClient(portal.ConfigFrom(cfg.Portal))
	if err != nil {
		return nil, nil, fmt.Errorf("creating portal client: %w", err)
	}

	s, err := solver.New(cfg.Solver)
	if err != nil {
		return nil, nil, fmt.Errorf("creating solver: %w", err)
	}

	engine := extraction.NewEngine(client, s,
		extraction.WithMaxAttempts(cfg.Extraction.MaxAttempts),
		extraction.WithAttemptDelay(cfg.Extraction.AttemptDelay.Duration()),
		extraction.WithGuessLength(cfg.Extraction.GuessLength),
	)
	return client, engine, nil
}

// OpenStore connects to the configured database and brings its schema up to
// date.
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	zap.S().Named("runtime").Infow("initializing data store", "type", cfg.Database.Type)
	db, err := store.InitDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing data store: %w", err)
	}

	st := store.NewStore(db)
	if err := Migrate(ctx, cfg, db); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

// Orchestrator drives bulk jobs with the configured pacing.
func (r *Runtime) Orchestrator() *orchestrator.Orchestrator {
	return orchestrator.New(r.Store, r.Engine,
		orchestrator.WithMaxAttempts(r.Config.Extraction.MaxAttempts),
		orchestrator.WithRecordDelay(r.Config.Extraction.RecordDelay.Duration()),
		orchestrator.WithPublisher(r.Events),
	)
}

func (r *Runtime) Close() error {
	if err := r.Events.Close(); err != nil {
		zap.S().Named("runtime").Warnw("closing event producer", "error", err)
	}
	return r.Store.Close()
}

// Migrate applies the goose migrations on postgres and lets gorm create the
// tables on sqlite.
func Migrate(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg.Database.Type == "pgsql" {
		if err := migrations.MigrateStore(db); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		return nil
	}
	if err := store.NewStore(db).InitialMigration(ctx); err != nil {
		return fmt.Errorf("running initial migration: %w", err)
	}
	return nil
}
