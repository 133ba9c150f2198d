package storage

import (
	"time"

	"github.com/google/uuid"

	"httpconnect/internal/runner"
)

// SweepRecord is one finished (or aborted) sweep.
type SweepRecord struct {
	ID         string               `json:"id"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
	Config     runner.Config        `json:"config"`
	Error      string               `json:"error,omitempty"`
	Results    []runner.LevelResult `json:"results"`
}

// NewRecord starts a record for a sweep beginning now. IDs are UUIDv7 so
// they sort by creation time.
func NewRecord(cfg runner.Config) SweepRecord {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return SweepRecord{
		ID:        id.String(),
		StartedAt: time.Now(),
		Config:    cfg,
	}
}

// Finish stamps the outcome of the sweep.
func (r *SweepRecord) Finish(results []runner.LevelResult, err error) {
	r.FinishedAt = time.Now()
	r.Results = results
	if err != nil {
		r.Error = err.Error()
	}
}

// Completed reports whether every level of the sweep produced a row.
func (r SweepRecord) Completed() bool {
	return r.Error == "" && len(r.Results) == len(r.Config.Levels())
}
