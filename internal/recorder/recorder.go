package recorder

import (
	"time"

	"DCAPilot/internal/model"
)

// RunEvent is the outcome of one DCA run.
type RunEvent struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Trigger    model.TriggerType
	Outcome    model.RunOutcome
	ExitCode   int
	Primary    string
	Required   string
	Initial    string
	Final      string
	Trades     int
	Spent      string
	Note       string
}

// Recorder persists run history for later analysis.
type Recorder interface {
	RecordFunding(runID string, step model.FundingStep) error
	RecordRun(evt *RunEvent) error
	Close() error
}
