package runner

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"DCAPilot/internal/model"
)

// LoadState reads the run state from a JSON file. Returns a zero state if the file doesn't exist.
func LoadState(filePath string) (*model.RunState, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &model.RunState{}, nil
		}
		return nil, err
	}
	var state model.RunState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// SaveState writes the run state to a JSON file, creating its directory.
func SaveState(filePath string, state *model.RunState) error {
	state.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(filePath, data, 0o644)
}

// applyRun folds one finished run into state. A cancelled run leaves the abort streak alone.
func applyRun(state *model.RunState, at time.Time, trigger model.TriggerType, outcome model.RunOutcome, code ExitCode, trades int, spent string) {
	state.LastRunAt = at
	state.LastTrigger = trigger
	state.LastOutcome = outcome
	state.LastExitCode = int(code)
	state.LastTrades = trades
	state.LastSpent = spent
	state.TotalRuns++
	switch outcome {
	case model.OutcomeCompleted:
		state.ConsecutiveAborts = 0
	case model.OutcomeAborted, model.OutcomeConfigError:
		state.ConsecutiveAborts++
	}
}
