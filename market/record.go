// Package market holds the immutable historical price data a simulation
// replays over: daily bars keyed by (symbol, date) and the in-memory store
// that serves them.
package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceRecord is one daily bar for one symbol. Records are immutable once
// ingested; the store rejects duplicate (symbol, date) keys at load time.
type PriceRecord struct {
	Symbol string
	Date   time.Time // UTC midnight
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume int64
}

// Day truncates t to UTC midnight. All store keys and cursor values are
// normalized through this so intraday timestamps can never split a day.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
