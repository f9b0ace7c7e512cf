package recorder

import "DCAPilot/internal/model"

// NoopRecorder is used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordFunding(_ string, _ model.FundingStep) error { return nil }
func (n *NoopRecorder) RecordRun(_ *RunEvent) error                      { return nil }
func (n *NoopRecorder) Close() error                                     { return nil }
