// Package ledger keeps each agent's cash and holdings together with the
// append-only trade history that reproduces them. One ledger instance owns
// all agents' positions for a run; positions are disjoint per agent and the
// trade history is the audit trail: replaying it from the initial position
// must land exactly on the current one.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side of a trade. Hold is a first-class outcome: an agent that decided not
// to trade is recorded distinctly from one that tried and was rejected.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
	Hold Side = "hold"
)

// TradeRecord is one immutable entry in an agent's trade history. CashAfter
// and HoldingsAfter snapshot the position immediately after the trade was
// applied, which makes the journal independently auditable.
type TradeRecord struct {
	ID            string
	Agent         string
	Date          time.Time
	Symbol        string
	Side          Side
	Quantity      int64
	Price         decimal.Decimal
	CashAfter     decimal.Decimal
	HoldingsAfter map[string]int64
}

// Cost is the cash this trade moves: positive for what a buy spends,
// likewise what a sell receives. Zero for holds.
func (r TradeRecord) Cost() decimal.Decimal {
	if r.Side == Hold {
		return decimal.Zero
	}
	return r.Price.Mul(decimal.NewFromInt(r.Quantity))
}
