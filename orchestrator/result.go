package orchestrator

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/2679373161/AI-Trader/agent"
	"github.com/2679373161/AI-Trader/ledger"
)

// AgentSummary is one agent's outcome over the whole run. Integrity aborts
// are reported distinctly from ordinary trading losses or failed steps.
type AgentSummary struct {
	Agent          string
	Completed      int
	FailedTerminal int
	Retries        int
	Aborted        bool
	AbortReason    string
	FinalCash      decimal.Decimal
	FinalEquity    decimal.Decimal
	TradeRecords   int
}

// Result is the run summary returned by Run.
type Result struct {
	Start, End time.Time
	Agents     map[string]*AgentSummary
}

func newResult(start, end time.Time, deciders []agent.Decider) Result {
	res := Result{Start: start, End: end, Agents: make(map[string]*AgentSummary)}
	for _, d := range deciders {
		res.Agents[d.Signature()] = &AgentSummary{Agent: d.Signature()}
	}
	return res
}

func (r *Result) observe(agent string, state StepState, retries int) {
	s := r.Agents[agent]
	if s == nil {
		return
	}
	s.Retries += retries
	switch state {
	case StateCompleted:
		s.Completed++
	case StateFailedTerminal:
		s.FailedTerminal++
	}
}

func (r *Result) abort(agent string, err error) {
	if s := r.Agents[agent]; s != nil {
		s.Aborted = true
		s.AbortReason = err.Error()
	}
}

func (r *Result) finish(agent string, pos ledger.Position, equity decimal.Decimal, records int) {
	if s := r.Agents[agent]; s != nil {
		s.FinalCash = pos.Cash
		s.FinalEquity = equity
		s.TradeRecords = records
	}
}

// Ranked returns the summaries ordered by final equity, best first. Aborted
// agents sort last regardless of equity: their numbers are not trustworthy.
func (r *Result) Ranked() []AgentSummary {
	out := make([]AgentSummary, 0, len(r.Agents))
	for _, s := range r.Agents {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Aborted != out[j].Aborted {
			return !out[i].Aborted
		}
		if !out[i].FinalEquity.Equal(out[j].FinalEquity) {
			return out[i].FinalEquity.GreaterThan(out[j].FinalEquity)
		}
		return out[i].Agent < out[j].Agent
	})
	return out
}
