package model

import "time"

// TriggerType indicates what started a run.
type TriggerType string

const (
	TriggerOnce      TriggerType = "ONCE"
	TriggerScheduled TriggerType = "SCHEDULED"
	TriggerManual    TriggerType = "MANUAL"
	TriggerStartup   TriggerType = "STARTUP"
)

// RunOutcome is the terminal state of a run.
type RunOutcome string

const (
	OutcomeCompleted   RunOutcome = "COMPLETED"
	OutcomeAborted     RunOutcome = "ABORTED"
	OutcomeConfigError RunOutcome = "CONFIG_ERROR"
	OutcomeBusy        RunOutcome = "BUSY"
	OutcomeCancelled   RunOutcome = "CANCELLED"
)

// RunState is persisted between runs.
type RunState struct {
	LastRunAt         time.Time   `json:"last_run_at"`
	LastTrigger       TriggerType `json:"last_trigger"`
	LastOutcome       RunOutcome  `json:"last_outcome"`
	LastExitCode      int         `json:"last_exit_code"`
	LastTrades        int         `json:"last_trades"`
	LastSpent         string      `json:"last_spent"`
	TotalRuns         int         `json:"total_runs"`
	ConsecutiveAborts int         `json:"consecutive_aborts"`
	UpdatedAt         time.Time   `json:"updated_at"`
}
