// Package agent defines the decision-loop contract the simulation drives.
// The reasoning behind a decision is a black box: the core only requires
// that a Decider, given a gated market view and its own position, emits an
// ordered list of trade intents and eventually signals termination within
// its step budget.
package agent

import (
	"context"
	"time"

	"github.com/2679373161/AI-Trader/exec"
	"github.com/2679373161/AI-Trader/gate"
	"github.com/2679373161/AI-Trader/ledger"
)

// Budget bounds one simulated step: at most MaxIterations Step calls, each
// attempt cut off after AttemptTimeout. There is no silent continuation past
// either limit.
type Budget struct {
	MaxIterations  int
	AttemptTimeout time.Duration
}

// RejectionNote feeds a validation rejection back into the next Step call so
// the decider can correct itself within the same simulated day.
type RejectionNote struct {
	Intent exec.Intent `json:"intent"`
	Code   string      `json:"code"`
	Msg    string      `json:"msg"`
}

// StepContext is everything a decider may observe for one iteration of one
// simulated day. Market is gated to the current cursor; Position is the
// agent's own snapshot. Agents never see each other's state.
type StepContext struct {
	Agent      string
	Date       time.Time
	Iteration  int
	Market     *gate.View
	Position   ledger.Position
	Rejections []RejectionNote // from the previous iteration, if any
}

// StepResult is what one iteration produced. Intents are applied in order;
// Terminated ends the step early, with or without trades.
type StepResult struct {
	Intents    []exec.Intent
	Terminated bool
}

// Decider is the pluggable decision function. Implementations must be
// deterministic with respect to (StepContext, their own configuration) for
// retry determinism to hold; the core cannot enforce that, only require it.
type Decider interface {
	Signature() string
	Step(ctx context.Context, sc StepContext) (StepResult, error)
}
