package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jerrynoah96/ajofi/internal/api"
	"github.com/jerrynoah96/ajofi/internal/app/credits"
	"github.com/jerrynoah96/ajofi/internal/app/purse"
	"github.com/jerrynoah96/ajofi/internal/app/resolver"
	"github.com/jerrynoah96/ajofi/internal/app/tokens"
	"github.com/jerrynoah96/ajofi/internal/app/validator"
	"github.com/jerrynoah96/ajofi/internal/domain"
	"github.com/jerrynoah96/ajofi/internal/infra/sqlite"
)

// Daemon owns the protocol services and the HTTP server.
type Daemon struct {
	cfg     Config
	logger  *slog.Logger
	db      *sqlite.DB
	server  *http.Server
	sweeper *resolver.Resolver // nil when disabled
}

// New builds the full service graph from cfg.
func New(cfg Config, logger *slog.Logger) (*Daemon, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var db *sqlite.DB
	var journal domain.Journal
	if cfg.Database.Path != "" {
		var err error
		db, err = sqlite.Open(cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		journal = db
	}

	bank := tokens.NewBank()
	registry := tokens.NewRegistry(cfg.Protocol.Admin, journal, logger)

	sysCfg := credits.DefaultConfig()
	sysCfg.Admin = cfg.Protocol.Admin
	sysCfg.MinStakeTime = cfg.Protocol.MinStakeDuration()
	system := credits.New(sysCfg, bank, registry, journal, logger)

	valCfg := validator.FactoryConfig{
		MaxFeeBps:      cfg.Protocol.MaxFeeBps,
		MinStakeAmount: cfg.Protocol.MinValidatorStake,
	}
	validators := validator.NewFactory(cfg.Protocol.Admin, valCfg, system, registry, bank, journal, logger)
	purses := purse.NewFactory(cfg.Protocol.Admin, system, registry, bank, journal, logger)

	// The factories create validators and purses on behalf of users, so they
	// hold the credit-mutation capability from the start.
	if err := system.Authorize(cfg.Protocol.Admin, validators.ID()); err != nil {
		return nil, fmt.Errorf("authorize validator factory: %w", err)
	}
	if err := system.Authorize(cfg.Protocol.Admin, purses.ID()); err != nil {
		return nil, fmt.Errorf("authorize purse factory: %w", err)
	}

	srv := api.NewServer(system, registry, bank, validators, purses, db)
	if cfg.API.Metrics {
		srv.EnableMetrics()
	}

	var sweeper *resolver.Resolver
	if cfg.Resolver.Enabled {
		sweeper = resolver.New(resolver.Config{Interval: cfg.Resolver.SweepInterval()}, purses, logger)
	}

	return &Daemon{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		sweeper: sweeper,
		server: &http.Server{
			Addr:              cfg.API.Addr(),
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Run serves the API until ctx is cancelled, then shuts down gracefully.
func (d *Daemon) Run(ctx context.Context) error {
	if d.sweeper != nil {
		go d.sweeper.Run(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		d.logger.Info("api listening", "addr", d.server.Addr)
		if err := d.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		d.close()
		return err
	case <-ctx.Done():
	}

	d.logger.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.server.Shutdown(shutCtx); err != nil {
		d.close()
		return fmt.Errorf("shutdown: %w", err)
	}
	<-errCh
	return d.close()
}

func (d *Daemon) close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}
