// Package service assembles the store, resolver, cache, bus, engine and
// scanner from a configuration. The CLI and the MCP server both start here.
package service

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	badgeradapter "marginalia/internal/adapters/badger"
	"marginalia/internal/adapters/filesystem"
	"marginalia/internal/adapters/notify"
	"marginalia/internal/adapters/sqlite"
	"marginalia/internal/application/identity"
	"marginalia/internal/application/listing"
	"marginalia/internal/application/reconcile"
	"marginalia/internal/application/scan"
	"marginalia/internal/config"
	"marginalia/internal/domain"
	"marginalia/internal/metrics"
)

// recentFailures bounds the failures kept in memory for display
const recentFailures = 64

// Service is a fully wired marginalia instance
type Service struct {
	Config   *config.Config
	Logger   *zap.Logger
	Store    *sqlite.Store
	Files    *filesystem.Adapter
	Resolver *identity.Resolver
	Cache    *listing.Cache
	Lister   *listing.Lister
	Bus      *notify.Bus
	Failures *notify.Recorder
	Engine   *reconcile.Engine
	Scanner  *scan.Scanner
	Registry *prometheus.Registry

	sidecar *badgeradapter.Sidecar
}

// New opens the database and sidecar named by cfg and wires every
// component. Close releases them.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{Config: cfg, Logger: logger}

	if cfg.Metrics.Enabled {
		s.Registry = metrics.InitRegistry()
	}

	store, err := sqlite.Open(ctx, sqlite.Options{
		Path:         cfg.Database.Path,
		ReadPoolSize: cfg.Database.ReadPoolSize,
		Logger:       logger.Named("store"),
	})
	if err != nil {
		return nil, err
	}
	s.Store = store

	s.Files = filesystem.NewAdapter()
	opts := []identity.Option{
		identity.WithAttribute(cfg.Identity.Attribute),
		identity.WithLogger(logger.Named("identity")),
	}
	if cfg.Identity.SidecarEnabled {
		sidecar, err := badgeradapter.Open(cfg.Identity.SidecarPath)
		if err != nil {
			store.Close()
			return nil, err
		}
		s.sidecar = sidecar
		opts = append(opts, identity.WithSidecar(sidecar))
	}
	s.Resolver = identity.NewResolver(s.Files, opts...)

	s.Cache = listing.NewCache(listing.Config{
		MaxEntries: cfg.Cache.MaxEntries,
		TTL:        cfg.Cache.TTL,
	}, metrics.NewListingMetrics(s.Registry))
	s.Lister = listing.NewLister(s.Cache, s.Files, s.Resolver, store, logger.Named("listing"))

	s.Bus = notify.NewBus()
	s.Bus.Subscribe(reconcile.NewMover(s.Files, logger.Named("mover")))
	s.Failures = notify.NewRecorder(recentFailures)

	s.Engine = reconcile.NewEngine(reconcile.Deps{
		Store:     store,
		Log:       store,
		Files:     s.Files,
		Peeker:    s.Resolver,
		Publisher: s.Bus,
		Evicter:   s.Cache,
		Reporter:  notify.Reporters{notify.NewLogReporter(logger.Named("failures")), s.Failures},
		Metrics:   metrics.NewReconcileMetrics(s.Registry),
		Logger:    logger.Named("reconcile"),
	}, EngineConfig(cfg.Reconcile))

	s.Scanner = scan.NewScanner(scan.Deps{
		Store:    store,
		Log:      store,
		Files:    s.Files,
		Resolver: s.Resolver,
		Evicter:  s.Cache,
		Recorder: store,
		Logger:   logger.Named("scan"),
	})

	logger.Debug("service ready",
		zap.String("database", store.Path()),
		zap.Bool("sidecar", s.sidecar != nil),
		zap.Bool("metrics", s.Registry != nil))
	return s, nil
}

// EngineConfig translates the reconcile section into engine settings
func EngineConfig(rc config.ReconcileConfig) reconcile.Config {
	return reconcile.Config{
		Interval:        rc.Interval,
		Window:          rc.Window,
		MaxItemsPerPass: rc.MaxItemsPerPass,
		Workers:         rc.Workers,
		PruneAfter:      rc.PruneAfter,
		Policy: reconcile.Policy{
			domain.FailureSourceMissing:         rc.Compensate.SourceMissing,
			domain.FailureDestinationExists:     rc.Compensate.DestinationExists,
			domain.FailureDestinationDirMissing: rc.Compensate.DestinationDirMissing,
			domain.FailureMoveFailed:            rc.Compensate.MoveFailed,
			domain.FailureEntryMissing:          rc.Compensate.EntryMissing,
		},
	}
}

// Sync runs one catch-up pass so every pending change is settled before
// a one-shot command returns
func (s *Service) Sync(ctx context.Context) (domain.PassStats, error) {
	return s.Engine.CatchUp(ctx)
}

// ScanRoots scans every configured root recursively
func (s *Service) ScanRoots(ctx context.Context) (*domain.ScanStats, error) {
	total := &domain.ScanStats{}
	for _, root := range s.Config.Roots {
		stats, err := s.Scanner.Scan(ctx, root, true)
		if err != nil {
			return total, fmt.Errorf("scan %s: %w", root, err)
		}
		total.Scanned += stats.Scanned
		total.Added += stats.Added
		total.Updated += stats.Updated
		total.Moved += stats.Moved
		total.Missing += stats.Missing
		total.Skipped += stats.Skipped
		total.Duration += stats.Duration
	}
	return total, nil
}

// Run drives the engine until ctx is cancelled, serving metrics alongside
// when they are enabled
func (s *Service) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.Engine.Run(ctx)
	})
	if s.Registry != nil {
		srv := metrics.NewServer(s.Config.Metrics.Address, s.Registry, s.Logger.Named("metrics"))
		g.Go(func() error {
			return srv.Start(ctx)
		})
	}
	return g.Wait()
}

// Close releases the database and the sidecar
func (s *Service) Close() error {
	var err error
	if s.sidecar != nil {
		err = multierr.Append(err, s.sidecar.Close())
	}
	if s.Store != nil {
		err = multierr.Append(err, s.Store.Close())
	}
	return err
}
