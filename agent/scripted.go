package agent

import (
	"context"
	"time"

	"github.com/2679373161/AI-Trader/exec"
	"github.com/2679373161/AI-Trader/market"
)

// ScriptedDecider replays a fixed per-day script of intents. It is fully
// deterministic, which makes it the reference decider for dry runs and for
// exercising the orchestrator in tests.
type ScriptedDecider struct {
	signature string
	script    map[time.Time][]exec.Intent
}

func NewScripted(signature string) *ScriptedDecider {
	return &ScriptedDecider{
		signature: signature,
		script:    make(map[time.Time][]exec.Intent),
	}
}

// On schedules intents for a simulated day.
func (d *ScriptedDecider) On(date time.Time, intents ...exec.Intent) *ScriptedDecider {
	day := market.Day(date)
	d.script[day] = append(d.script[day], intents...)
	return d
}

func (d *ScriptedDecider) Signature() string { return d.signature }

// Step emits the day's scripted intents on the first iteration and
// terminates. Days with no script terminate immediately with no intents,
// which the orchestrator records as a hold.
func (d *ScriptedDecider) Step(_ context.Context, sc StepContext) (StepResult, error) {
	if sc.Iteration > 0 {
		return StepResult{Terminated: true}, nil
	}
	return StepResult{
		Intents:    d.script[market.Day(sc.Date)],
		Terminated: true,
	}, nil
}
