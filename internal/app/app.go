// Package app assembles the ingestion engine from configuration: one
// coordinator per index family wired to the shared store, the downloader,
// the grid reader, and the portal session factory.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"indexcli/internal/config"
	"indexcli/internal/download"
	"indexcli/internal/extract"
	"indexcli/internal/family"
	"indexcli/internal/ingest"
	"indexcli/internal/portal"
	"indexcli/internal/store"
	"indexcli/pkg/contracts/domain"
)

// App owns the per-family coordinators and the shared store.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *store.Store

	coordinators map[string]*ingest.Coordinator

	mu          sync.RWMutex
	lastResults map[string]*domain.IngestionResult
}

// New builds the application from configuration.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	st, err := store.New(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	planCfg, err := cfg.PlanConfig()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	grids := extract.NewGridReader(logger)
	portalCfg := portal.Config{
		BaseURL:        cfg.Publisher.PortalURL,
		Username:       cfg.Publisher.PortalUser,
		Password:       cfg.Publisher.PortalPassword,
		Headless:       cfg.Publisher.Headless,
		ConfirmTimeout: cfg.Publisher.ConfirmTimeout,
		SettleDelay:    cfg.Publisher.SettleDelay,
	}
	sessions := func() ingest.PortalSession {
		return portal.NewSession(portalCfg, logger)
	}

	a := &App{
		cfg:          cfg,
		logger:       logger,
		store:        st,
		coordinators: make(map[string]*ingest.Coordinator),
		lastResults:  make(map[string]*domain.IngestionResult),
	}

	for _, id := range cfg.Ingest.Families {
		spec, err := family.Get(id)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		// Each coordinator gets its own download client so temp-file
		// sweeps stay scoped to one run.
		source := download.NewClient(download.Config{
			Dir:         cfg.Storage.DownloadDir,
			Timeout:     cfg.Publisher.Timeout,
			UserAgent:   cfg.Publisher.UserAgent,
			MinInterval: cfg.Publisher.MinInterval,
		}, logger)

		a.coordinators[spec.ID] = ingest.New(spec, ingest.Config{
			BaseURL: cfg.Publisher.BaseURL,
			Regions: cfg.RegionCodes(),
			Plan:    planCfg,
			GapMode: cfg.Ingest.GapMode,
		}, source, grids, st, sessions, &ingest.LogNotifier{Logger: logger}, logger)
	}

	return a, nil
}

// Families returns the configured family ids in configuration order.
func (a *App) Families() []string {
	return a.cfg.Ingest.Families
}

// RunFamily executes one family's ingestion run. A nil result with a nil
// error means a run for that family was already active.
func (a *App) RunFamily(ctx context.Context, id string) (*domain.IngestionResult, error) {
	coord, ok := a.coordinators[id]
	if !ok {
		return nil, fmt.Errorf("unknown index family: %s", id)
	}

	result, err := coord.Run(ctx)
	if err != nil {
		return nil, err
	}
	if result != nil {
		a.mu.Lock()
		a.lastResults[id] = result
		a.mu.Unlock()
	}
	return result, nil
}

// RunAll executes every configured family in order. Families own disjoint
// state, so a fatal error in one does not stop the others; the first
// error is returned after all families ran.
func (a *App) RunAll(ctx context.Context) ([]*domain.IngestionResult, error) {
	var results []*domain.IngestionResult
	var firstErr error
	for _, id := range a.cfg.Ingest.Families {
		result, err := a.RunFamily(ctx, id)
		if err != nil {
			a.logger.ErrorContext(ctx, "family run failed",
				slog.String("family", id),
				slog.String("error", err.Error()))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if result != nil {
			results = append(results, result)
		}
	}
	return results, firstErr
}

// LastResults returns the most recent result per family, in
// configuration order.
func (a *App) LastResults() []*domain.IngestionResult {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []*domain.IngestionResult
	for _, id := range a.cfg.Ingest.Families {
		if r, ok := a.lastResults[id]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Close releases the store.
func (a *App) Close() error {
	return a.store.Close()
}
