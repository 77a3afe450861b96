package model

// RunState is the lifecycle state of a search run.
type RunState string

const (
	RunIdle      RunState = "idle"
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
	RunAborted   RunState = "aborted"
	RunFailed    RunState = "failed"
)

// Terminal reports whether the state ends a run.
func (s RunState) Terminal() bool {
	switch s {
	case RunCompleted, RunAborted, RunFailed:
		return true
	default:
		return false
	}
}
