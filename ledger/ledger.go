package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

var (
	// ErrUnknownAgent means no position was registered under that signature.
	ErrUnknownAgent = errors.New("ledger: unknown agent")

	// ErrIntegrity marks a broken ledger invariant (negative cash or
	// holdings after an apply). It is never an ordinary trading mistake:
	// the executor validates before applying, so hitting this means the
	// run's bookkeeping can no longer be trusted.
	ErrIntegrity = errors.New("ledger: integrity violation")
)

// Ledger holds every agent's position and trade history for one run.
// Positions are disjoint by agent; Apply is the only mutator. The mutex
// makes a concurrent Position read see either the fully-pre or fully-post
// state of an in-flight Apply, never a partial one.
type Ledger struct {
	mu         sync.Mutex
	initial    map[string]Position
	positions  map[string]Position
	history    map[string][]TradeRecord
	allowShort bool
}

func New(allowShort bool) *Ledger {
	return &Ledger{
		initial:    make(map[string]Position),
		positions:  make(map[string]Position),
		history:    make(map[string][]TradeRecord),
		allowShort: allowShort,
	}
}

// AllowShort reports whether negative holdings are permitted. The executor
// consults it so its sell validation and the Apply invariant agree.
func (l *Ledger) AllowShort() bool { return l.allowShort }

// Register creates an agent's position with its starting cash. Registering
// the same signature twice is an error; one position per agent is what keeps
// histories replayable.
func (l *Ledger) Register(agent string, cash decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.positions[agent]; ok {
		return fmt.Errorf("ledger: agent %q already registered", agent)
	}
	l.initial[agent] = NewPosition(cash)
	l.positions[agent] = NewPosition(cash)
	return nil
}

// Restore overwrites an agent's position without touching history. Used only
// when resuming a run from journaled state; the journal's records remain the
// authoritative history.
func (l *Ledger) Restore(agent string, pos Position) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.positions[agent]; !ok {
		return ErrUnknownAgent
	}
	l.positions[agent] = pos.clone()
	return nil
}

// Position returns a snapshot of the agent's current position.
func (l *Ledger) Position(agent string) (Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.positions[agent]
	if !ok {
		return Position{}, ErrUnknownAgent
	}
	return pos.clone(), nil
}

// Initial returns the agent's starting position, for replay audits.
func (l *Ledger) Initial(agent string) (Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.initial[agent]
	if !ok {
		return Position{}, ErrUnknownAgent
	}
	return pos.clone(), nil
}

// History returns a copy of the agent's trade records in application order.
func (l *Ledger) History(agent string) []TradeRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	recs := l.history[agent]
	out := make([]TradeRecord, len(recs))
	copy(out, recs)
	return out
}

// Mark captures an agent's position and history length so a failed step
// attempt can be rolled back before it is retried. Retries replay the same
// simulated day; trades applied by an attempt that later failed must not
// survive into the retry.
type Mark struct {
	agent string
	pos   Position
	n     int
}

func (l *Ledger) Mark(agent string) (Mark, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.positions[agent]
	if !ok {
		return Mark{}, ErrUnknownAgent
	}
	return Mark{agent: agent, pos: pos.clone(), n: len(l.history[agent])}, nil
}

// Rollback restores the agent to the marked position and truncates any
// records applied since the mark.
func (l *Ledger) Rollback(m Mark) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.positions[m.agent]; !ok {
		return ErrUnknownAgent
	}
	if len(l.history[m.agent]) < m.n {
		return fmt.Errorf("%w: history shrank past mark for %s", ErrIntegrity, m.agent)
	}
	l.positions[m.agent] = m.pos.clone()
	l.history[m.agent] = l.history[m.agent][:m.n]
	return nil
}

// Apply executes rec against the agent's position and appends it to the
// history. The whole operation happens under the lock: a failure leaves both
// position and history untouched, so partial application (cash debited,
// shares not credited) is not observable. On success the returned record
// carries the resulting cash and holdings, and the new position snapshot is
// returned alongside.
func (l *Ledger) Apply(rec TradeRecord) (TradeRecord, Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.positions[rec.Agent]
	if !ok {
		return TradeRecord{}, Position{}, ErrUnknownAgent
	}

	next := pos.clone()
	switch rec.Side {
	case Buy:
		next.Cash = next.Cash.Sub(rec.Cost())
		next.Holdings[rec.Symbol] += rec.Quantity
	case Sell:
		next.Cash = next.Cash.Add(rec.Cost())
		next.Holdings[rec.Symbol] -= rec.Quantity
	case Hold:
		// position unchanged; the record still lands in history
	default:
		return TradeRecord{}, Position{}, fmt.Errorf("ledger: unknown side %q", rec.Side)
	}

	if next.Cash.IsNegative() {
		return TradeRecord{}, Position{}, fmt.Errorf("%w: cash %s after %s %d %s",
			ErrIntegrity, next.Cash, rec.Side, rec.Quantity, rec.Symbol)
	}
	if !l.allowShort {
		for sym, n := range next.Holdings {
			if n < 0 {
				return TradeRecord{}, Position{}, fmt.Errorf("%w: %s holdings %d", ErrIntegrity, sym, n)
			}
		}
	}

	rec.CashAfter = next.Cash
	rec.HoldingsAfter = next.clone().Holdings

	l.positions[rec.Agent] = next
	l.history[rec.Agent] = append(l.history[rec.Agent], rec)

	return rec, next.clone(), nil
}
