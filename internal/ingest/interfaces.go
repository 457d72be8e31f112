package ingest

import (
	"context"

	"indexcli/internal/family"
	"indexcli/pkg/contracts/domain"
)

// FileSource downloads a publication URL into a temporary file and sweeps
// its temporaries in one batch at the end of a run.
type FileSource interface {
	Download(ctx context.Context, url, key string) (string, error)
	Sweep()
}

// GridReader loads a downloaded spreadsheet into a raw row/column grid.
type GridReader interface {
	ReadGrid(path, marker string) ([][]string, error)
}

// Store is the relational persistence collaborator.
type Store interface {
	Save(ctx context.Context, rec *domain.CanonicalRecord) (int64, error)
	SaveMetadata(ctx context.Context, familyID string, recordID int64, entries []domain.MetadataEntry) error
	HasMetadata(ctx context.Context, familyID string, recordID int64) (bool, error)
	Periods(ctx context.Context, familyID string, region domain.RegionCode) ([]domain.Period, error)
}

// PortalSession is one interactive browser session against the publisher
// portal, exclusively owned by the coordinator for the secondary pass.
type PortalSession interface {
	Fetch(ctx context.Context, spec family.Spec, p domain.Period, r domain.RegionCode) (*domain.CanonicalRecord, error)
	Close() error
}

// SessionFactory opens a fresh portal session. The coordinator only opens
// one when the retry queue is non-empty, so login cost is paid lazily.
type SessionFactory func() PortalSession

// Notifier consumes the aggregated result of one run. Report rendering
// and transport live behind this interface, outside the engine.
type Notifier interface {
	Notify(ctx context.Context, result *domain.IngestionResult) error
}
