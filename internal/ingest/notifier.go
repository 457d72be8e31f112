package ingest

import (
	"context"
	"log/slog"

	"indexcli/pkg/contracts/domain"
)

// LogNotifier is the default notification collaborator: it writes the run
// summary to the structured log. Deployments with report mailing swap in
// their own Notifier.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify logs the aggregated result.
func (n *LogNotifier) Notify(ctx context.Context, result *domain.IngestionResult) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "ingestion run finished",
		slog.String("run_id", result.RunID),
		slog.String("family", result.Family),
		slog.String("range", result.PeriodRange.String()),
		slog.Float64("duration_seconds", result.DurationSeconds),
		slog.Int("success", result.SuccessCount),
		slog.Int("failure", result.FailureCount),
		slog.Int("primary", result.CountsByMethod[domain.MethodPrimary]),
		slog.Int("secondary", result.CountsByMethod[domain.MethodSecondary]))
	for _, task := range result.Tasks {
		if task.Status == domain.TaskFailure {
			logger.WarnContext(ctx, "ingestion task failed",
				slog.String("period", task.Period.String()),
				slog.String("region", task.Region.String()),
				slog.String("error", task.Error))
		}
	}
	return nil
}
