// Package orchestrator drives the simulation across the date axis: it
// advances the temporal gate, runs each agent's step sequentially within a
// day, applies the retry policy, and journals every outcome so a run can
// resume after a crash.
package orchestrator

// StepState is the outcome of one agent's step on one simulated day. The
// pending and running phases of a step are transient and never journaled;
// a checkpoint always carries one of the states below. FailedRetryable
// marks an attempt that will be retried on the same day; FailedTerminal
// means the retry budget is spent, the day is recorded as a hold and the
// run moves on.
type StepState string

const (
	StateCompleted       StepState = "completed"
	StateFailedRetryable StepState = "failed_retryable"
	StateFailedTerminal  StepState = "failed_terminal"
	StateAborted         StepState = "aborted" // integrity violation; agent's run ends here
)

// doneStates are the checkpoint states a resumed run treats as finished.
var doneStates = []string{
	string(StateCompleted),
	string(StateFailedTerminal),
	string(StateAborted),
}
