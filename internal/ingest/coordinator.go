// Package ingest drives the per-period, per-region ingestion loop for one
// index family: primary spreadsheet extraction, portal fallback for the
// periods the primary path cannot parse, idempotent metadata
// reconciliation, and the task ledger that turns partial failure into an
// aggregated, reportable result.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"indexcli/internal/extract"
	"indexcli/internal/family"
	"indexcli/internal/period"
	"indexcli/internal/store"
	"indexcli/pkg/contracts/domain"
)

// Config carries the per-run inputs of one coordinator.
type Config struct {
	BaseURL string
	Regions []domain.RegionCode
	Plan    period.Config
	// GapMode plans only the periods missing from storage instead of the
	// full configured range.
	GapMode bool
}

// Coordinator owns one family's ingestion runs. Different families own
// disjoint coordinators and may run concurrently with each other; within
// one family at most one full run is active at a time.
type Coordinator struct {
	spec     family.Spec
	cfg      Config
	source   FileSource
	grids    GridReader
	store    Store
	sessions SessionFactory
	notifier Notifier
	logger   *slog.Logger

	// running guards against overlapping runs of the same family. A
	// TryAcquire miss makes the second invocation a logged no-op.
	running *semaphore.Weighted
}

// New wires a coordinator from its collaborators.
func New(spec family.Spec, cfg Config, source FileSource, grids GridReader, st Store, sessions SessionFactory, notifier Notifier, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = &LogNotifier{Logger: logger}
	}
	return &Coordinator{
		spec:     spec,
		cfg:      cfg,
		source:   source,
		grids:    grids,
		store:    st,
		sessions: sessions,
		notifier: notifier,
		logger:   logger.With(slog.String("family", spec.ID)),
		running:  semaphore.NewWeighted(1),
	}
}

// pair is one (period, region) attempt.
type pair struct {
	Period domain.Period
	Region domain.RegionCode
}

// Run executes one full ingestion run and returns the aggregated result.
// A second invocation while a run is active returns (nil, nil) without
// doing any work. Per-pair failures never abort the run; only an invalid
// period configuration or a persistence-layer outage propagates as an
// error.
func (c *Coordinator) Run(ctx context.Context) (*domain.IngestionResult, error) {
	if !c.running.TryAcquire(1) {
		c.logger.WarnContext(ctx, "ingestion run already active, skipping")
		return nil, nil
	}
	defer c.running.Release(1)
	defer c.source.Sweep()

	start := time.Now()
	runID := uuid.NewString()
	c.logger.InfoContext(ctx, "ingestion run starting",
		slog.String("run_id", runID),
		slog.Bool("gap_mode", c.cfg.GapMode))

	pairs, rng, err := c.planPairs(ctx)
	if err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		c.logger.InfoContext(ctx, "nothing to ingest", slog.String("run_id", runID))
		result := domain.NewIngestionResult(runID, c.spec.ID, rng, time.Since(start), nil)
		return result, c.notifier.Notify(ctx, result)
	}

	extractor := extract.New(c.spec, c.logger)

	tasks := make([]*domain.Task, 0, len(pairs))
	var retryQueue []int
	// recordIDs and sourceFiles survive the primary pass for the
	// reconciliation pass; both are keyed by task index.
	recordIDs := make(map[int]int64)
	sourceFiles := make(map[int]string)

	// Primary pass: download, classify, extract, persist.
	for i, pr := range pairs {
		task := &domain.Task{Period: pr.Period, Region: pr.Region, Method: domain.MethodPrimary}
		tasks = append(tasks, task)

		id, path, err := c.attemptPrimary(ctx, extractor, pr)
		if err != nil {
			var perr *store.Error
			if errors.As(err, &perr) {
				return nil, err
			}
			task.Status = domain.TaskFailure
			task.Error = err.Error()
			retryQueue = append(retryQueue, i)
			c.logger.WarnContext(ctx, "primary extraction failed",
				slog.String("period", pr.Period.String()),
				slog.String("region", pr.Region.String()),
				slog.String("error", err.Error()))
			continue
		}

		task.Status = domain.TaskSuccess
		recordIDs[i] = id
		sourceFiles[i] = path
	}

	// Secondary pass: one shared portal session for every queued pair.
	if len(retryQueue) > 0 {
		if err := c.secondaryPass(ctx, tasks, pairs, retryQueue, recordIDs); err != nil {
			return nil, err
		}
	}

	// Metadata is only derivable from the spreadsheet path; reconcile it
	// for the pairs that succeeded there.
	if err := c.reconcileMetadata(ctx, extractor, tasks, recordIDs, sourceFiles); err != nil {
		return nil, err
	}

	ledger := make([]domain.Task, len(tasks))
	for i, t := range tasks {
		ledger[i] = *t
	}
	result := domain.NewIngestionResult(runID, c.spec.ID, rng, time.Since(start), ledger)
	return result, c.notifier.Notify(ctx, result)
}

// planPairs resolves the period plan (full or gap mode) into the ordered
// (period, region) attempt list.
func (c *Coordinator) planPairs(ctx context.Context) ([]pair, domain.PeriodRange, error) {
	full, err := period.Plan(c.cfg.Plan)
	if err != nil {
		return nil, domain.PeriodRange{}, err
	}
	rng := domain.PeriodRange{}
	if len(full) > 0 {
		rng = domain.PeriodRange{From: full[0], To: full[len(full)-1]}
	}

	if !c.cfg.GapMode {
		pairs := make([]pair, 0, len(full)*len(c.cfg.Regions))
		for _, p := range full {
			for _, r := range c.cfg.Regions {
				pairs = append(pairs, pair{Period: p, Region: r})
			}
		}
		return pairs, rng, nil
	}

	// Gap mode: each region has its own persisted set, so gaps resolve
	// per region and merge back in planner order.
	missing := make(map[domain.RegionCode]map[domain.Period]struct{}, len(c.cfg.Regions))
	for _, r := range c.cfg.Regions {
		existing, err := c.store.Periods(ctx, c.spec.ID, r)
		if err != nil {
			return nil, rng, err
		}
		gaps, err := period.PlanGaps(c.cfg.Plan, existing)
		if err != nil {
			return nil, rng, err
		}
		set := make(map[domain.Period]struct{}, len(gaps))
		for _, p := range gaps {
			set[p] = struct{}{}
		}
		missing[r] = set
	}

	var pairs []pair
	for _, p := range full {
		for _, r := range c.cfg.Regions {
			if _, ok := missing[r][p]; ok {
				pairs = append(pairs, pair{Period: p, Region: r})
			}
		}
	}
	return pairs, rng, nil
}

// attemptPrimary runs the spreadsheet path for one pair and returns the
// persisted record id and the downloaded source file.
func (c *Coordinator) attemptPrimary(ctx context.Context, extractor *extract.Extractor, pr pair) (int64, string, error) {
	url := c.spec.ReportURL(c.cfg.BaseURL, pr.Period, pr.Region)
	key := fmt.Sprintf("%s_%s_%04d%02d", c.spec.ID, pr.Region, pr.Period.Year, pr.Period.Month)

	path, err := c.source.Download(ctx, url, key)
	if err != nil {
		return 0, "", err
	}

	grid, err := c.grids.ReadGrid(path, c.spec.Marker)
	if err != nil {
		return 0, "", err
	}

	profile := extract.Classify(grid, c.spec)
	rec, err := extractor.Canonical(grid)
	if err != nil {
		return 0, "", err
	}
	rec.Period = pr.Period
	rec.Region = pr.Region

	// Metadata is extracted here only for the soft count check; the
	// reconciliation pass persists it.
	entries := extractor.Metadata(grid, profile)
	rec.Warning = extractor.CheckMetadataCount(len(entries))

	id, err := c.store.Save(ctx, rec)
	if err != nil {
		return 0, "", err
	}

	c.logger.InfoContext(ctx, "primary extraction succeeded",
		slog.String("period", pr.Period.String()),
		slog.String("region", pr.Region.String()),
		slog.String("layout", string(profile.Kind)),
		slog.Int("metadata_count", len(entries)),
		slog.Int64("record_id", id))
	return id, path, nil
}

// secondaryPass opens one portal session and retries every queued pair in
// order. A success mutates the failed task in place; a failure appends to
// the task's error text so both attempts stay visible. A persistence
// failure aborts the pass, like it aborts the primary pass.
func (c *Coordinator) secondaryPass(ctx context.Context, tasks []*domain.Task, pairs []pair, queue []int, recordIDs map[int]int64) error {
	c.logger.InfoContext(ctx, "starting portal fallback pass",
		slog.Int("queued", len(queue)))

	session := c.sessions()
	defer func() {
		if err := session.Close(); err != nil {
			c.logger.WarnContext(ctx, "portal session close failed",
				slog.String("error", err.Error()))
		}
	}()

	for _, i := range queue {
		pr := pairs[i]
		task := tasks[i]

		rec, err := session.Fetch(ctx, c.spec, pr.Period, pr.Region)
		if err != nil {
			task.AppendError(err.Error())
			c.logger.WarnContext(ctx, "portal fallback failed",
				slog.String("period", pr.Period.String()),
				slog.String("region", pr.Region.String()),
				slog.String("error", err.Error()))
			continue
		}

		rec.Period = pr.Period
		rec.Region = pr.Region
		id, err := c.store.Save(ctx, rec)
		if err != nil {
			var perr *store.Error
			if errors.As(err, &perr) {
				return err
			}
			task.AppendError(err.Error())
			continue
		}

		task.MarkSecondarySuccess()
		recordIDs[i] = id
		c.logger.InfoContext(ctx, "portal fallback succeeded",
			slog.String("period", pr.Period.String()),
			slog.String("region", pr.Region.String()),
			slog.Int64("record_id", id))
	}
	return nil
}

// reconcileMetadata re-extracts and persists metadata for every pair that
// succeeded via the primary path, skipping records that already carry
// metadata so a re-run never duplicates rows.
func (c *Coordinator) reconcileMetadata(ctx context.Context, extractor *extract.Extractor, tasks []*domain.Task, recordIDs map[int]int64, sourceFiles map[int]string) error {
	for i, task := range tasks {
		if task.Status != domain.TaskSuccess || task.Method != domain.MethodPrimary {
			continue
		}
		path, ok := sourceFiles[i]
		if !ok {
			continue
		}

		has, err := c.store.HasMetadata(ctx, c.spec.ID, recordIDs[i])
		if err != nil {
			return err
		}
		if has {
			continue
		}

		grid, err := c.grids.ReadGrid(path, c.spec.Marker)
		if err != nil {
			c.logger.WarnContext(ctx, "metadata reconciliation could not re-read source",
				slog.String("file", path),
				slog.String("error", err.Error()))
			continue
		}
		profile := extract.Classify(grid, c.spec)
		entries := extractor.Metadata(grid, profile)

		if err := c.store.SaveMetadata(ctx, c.spec.ID, recordIDs[i], entries); err != nil {
			return err
		}
		c.logger.DebugContext(ctx, "metadata reconciled",
			slog.String("period", task.Period.String()),
			slog.String("region", task.Region.String()),
			slog.Int("entries", len(entries)))
	}
	return nil
}
