// Package journal persists a run's trade records and per-step checkpoints so
// a crashed experiment can resume from the last completed (agent, date) pair.
// The trade log is append-only; nothing in the package updates or deletes a
// trade row.
package journal

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/2679373161/AI-Trader/ledger"
)

// Checkpoint records the outcome of one agent's step on one simulated day.
// Cash and Holdings snapshot the position after the step, so resuming only
// needs the latest checkpoint plus the trade log for verification.
type Checkpoint struct {
	Agent    string
	Date     time.Time
	State    string // orchestrator step state name
	Traded   bool
	Retries  int
	Cash     decimal.Decimal
	Holdings map[string]int64
}

// EquitySnapshot is an agent's scored equity at the end of a step.
type EquitySnapshot struct {
	Agent  string
	Date   time.Time
	Cash   decimal.Decimal
	Equity decimal.Decimal
}

// Journal is the durable run-state sink. Implementations must be safe to
// call from the single orchestrator goroutine; they are not required to be
// concurrency-safe beyond that.
//
// RecordStep must be atomic: either all of the step's trades plus its
// checkpoint and equity snapshot land, or none do. A trade row without its
// checkpoint would make the journal unresumable, since replaying the trade
// log would no longer match any journaled checkpoint.
type Journal interface {
	RecordTrade(ledger.TradeRecord) error
	RecordEquity(EquitySnapshot) error
	RecordCheckpoint(Checkpoint) error
	RecordStep(trades []ledger.TradeRecord, c Checkpoint, e EquitySnapshot) error
	Close() error
}
