package domain

import "time"

// TaskStatus is the outcome of one (period, region) attempt.
type TaskStatus string

const (
	TaskSuccess TaskStatus = "success"
	TaskFailure TaskStatus = "failure"
)

// Task tracks the outcome of one (period, region) pair within a run.
// Exactly one task exists per pair: a secondary-path success mutates the
// failed task in place rather than appending a second one.
type Task struct {
	Period Period           `json:"period"`
	Region RegionCode       `json:"region"`
	Status TaskStatus       `json:"status"`
	Method ExtractionMethod `json:"method"`
	Error  string           `json:"error,omitempty"`
}

// MarkSecondarySuccess flips a failed task to a secondary-path success,
// clearing the recorded error.
func (t *Task) MarkSecondarySuccess() {
	t.Status = TaskSuccess
	t.Method = MethodSecondary
	t.Error = ""
}

// AppendError concatenates msg onto the task's error text. The primary
// failure stays first so the aggregated report shows both attempts in
// order.
func (t *Task) AppendError(msg string) {
	if t.Error == "" {
		t.Error = msg
		return
	}
	t.Error = t.Error + "; " + msg
}

// IngestionResult aggregates one coordinator run. It is built once at the
// end of the run, is immutable afterwards, and is the single user-visible
// failure surface: callers inspect FailureCount and per-task error text.
type IngestionResult struct {
	RunID           string                   `json:"run_id"`
	Family          string                   `json:"family"`
	PeriodRange     PeriodRange              `json:"period_range"`
	DurationSeconds float64                  `json:"duration_seconds"`
	Tasks           []Task                   `json:"tasks"`
	CountsByMethod  map[ExtractionMethod]int `json:"counts_by_method"`
	SuccessCount    int                      `json:"success_count"`
	FailureCount    int                      `json:"failure_count"`
	FinishedAt      time.Time                `json:"finished_at"`
}

// NewIngestionResult summarizes the ledger tasks into an immutable result.
func NewIngestionResult(runID, family string, rng PeriodRange, duration time.Duration, tasks []Task) *IngestionResult {
	res := &IngestionResult{
		RunID:           runID,
		Family:          family,
		PeriodRange:     rng,
		DurationSeconds: duration.Seconds(),
		Tasks:           tasks,
		CountsByMethod:  make(map[ExtractionMethod]int),
		FinishedAt:      time.Now().UTC(),
	}
	for _, t := range tasks {
		if t.Status == TaskSuccess {
			res.SuccessCount++
			res.CountsByMethod[t.Method]++
		} else {
			res.FailureCount++
		}
	}
	return res
}
