// Package exec validates trade intents and applies them to the ledger. It is
// the only writer of trade records, and it prices every fill through a gated
// view: the executor never sees the raw price store, so an ungated price
// cannot reach a trade by construction.
package exec

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/2679373161/AI-Trader/gate"
	"github.com/2679373161/AI-Trader/internal/id"
	"github.com/2679373161/AI-Trader/ledger"
)

// Intent is what an agent asks for: side, symbol, and a whole-share
// quantity. Quantity is ignored for holds.
type Intent struct {
	Symbol   string      `json:"symbol"`
	Side     ledger.Side `json:"side"`
	Quantity int64       `json:"quantity"`
}

// Rejection codes, stable across runs so journals and agents can match on
// them.
const (
	RejectInvalidSymbol        = "INVALID_SYMBOL"
	RejectInvalidQuantity      = "INVALID_QUANTITY"
	RejectInvalidSide          = "INVALID_SIDE"
	RejectNoPrice              = "NO_PRICE"
	RejectInsufficientCash     = "INSUFFICIENT_CASH"
	RejectInsufficientHoldings = "INSUFFICIENT_HOLDINGS"
)

// Rejection is an ordinary trading mistake surfaced as a structured error.
// The agent is expected to observe it and try again within its step budget;
// it is never fatal to the step.
type Rejection struct {
	Code string
	Msg  string
}

func (r *Rejection) Error() string { return fmt.Sprintf("rejected [%s]: %s", r.Code, r.Msg) }

func reject(code, format string, args ...any) error {
	return &Rejection{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// AsRejection unwraps err into a *Rejection if it is one.
func AsRejection(err error) (*Rejection, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}

// Executor applies validated intents to the ledger for a configured tradable
// universe. One executor serves all agents; per-step gating comes from the
// view passed to Execute.
type Executor struct {
	ledger   *ledger.Ledger
	universe map[string]bool
}

func New(l *ledger.Ledger, universe []string) *Executor {
	set := make(map[string]bool, len(universe))
	for _, sym := range universe {
		set[sym] = true
	}
	return &Executor{ledger: l, universe: set}
}

// Universe lists the tradable symbols.
func (e *Executor) Universe() []string {
	out := make([]string, 0, len(e.universe))
	for sym := range e.universe {
		out = append(out, sym)
	}
	return out
}

// Execute validates intent against the agent's position and the gated price
// for the view's day, then applies it atomically. Validation failures come
// back as *Rejection; anything else is an integrity problem the caller must
// treat as fatal for the agent.
//
// Fill price: the day's open when the market traded on the view's day,
// otherwise the last known close.
func (e *Executor) Execute(v *gate.View, agent string, intent Intent) (ledger.TradeRecord, error) {
	if intent.Side == ledger.Hold {
		return e.Hold(v, agent)
	}
	if intent.Side != ledger.Buy && intent.Side != ledger.Sell {
		return ledger.TradeRecord{}, reject(RejectInvalidSide, "unknown side %q", intent.Side)
	}

	if !e.universe[intent.Symbol] {
		return ledger.TradeRecord{}, reject(RejectInvalidSymbol, "%q is not tradable", intent.Symbol)
	}
	if intent.Quantity <= 0 {
		return ledger.TradeRecord{}, reject(RejectInvalidQuantity, "quantity %d must be a positive integer", intent.Quantity)
	}

	rec, err := v.Lookup(intent.Symbol)
	if err != nil {
		return ledger.TradeRecord{}, reject(RejectNoPrice, "no price for %s as of %s",
			intent.Symbol, v.AsOf().Format("2006-01-02"))
	}
	price := rec.Close
	if rec.Date.Equal(v.AsOf()) {
		price = rec.Open
	}

	pos, err := e.ledger.Position(agent)
	if err != nil {
		return ledger.TradeRecord{}, err
	}

	cost := price.Mul(decimal.NewFromInt(intent.Quantity))
	switch intent.Side {
	case ledger.Buy:
		if pos.Cash.LessThan(cost) {
			return ledger.TradeRecord{}, reject(RejectInsufficientCash,
				"buy %d %s needs %s, cash is %s", intent.Quantity, intent.Symbol, cost, pos.Cash)
		}
	case ledger.Sell:
		// shorting, when the ledger allows it, skips the holdings check
		if !e.ledger.AllowShort() && pos.Shares(intent.Symbol) < intent.Quantity {
			return ledger.TradeRecord{}, reject(RejectInsufficientHoldings,
				"sell %d %s, only %d held", intent.Quantity, intent.Symbol, pos.Shares(intent.Symbol))
		}
	}

	applied, _, err := e.ledger.Apply(ledger.TradeRecord{
		ID:       id.New(),
		Agent:    agent,
		Date:     v.AsOf(),
		Symbol:   intent.Symbol,
		Side:     intent.Side,
		Quantity: intent.Quantity,
		Price:    price,
	})
	return applied, err
}

// Hold records an explicit no-trade decision for the view's day.
func (e *Executor) Hold(v *gate.View, agent string) (ledger.TradeRecord, error) {
	applied, _, err := e.ledger.Apply(ledger.TradeRecord{
		ID:    id.New(),
		Agent: agent,
		Date:  v.AsOf(),
		Side:  ledger.Hold,
	})
	return applied, err
}
