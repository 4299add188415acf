// Package gate enforces the simulation's anti-look-ahead guarantee. Every
// read of historical data goes through a View bound to the current cursor
// date; the View filters out any record dated after the cursor, so a caller
// cannot observe the future no matter what range it asks for.
package gate

import (
	"errors"
	"time"

	"github.com/2679373161/AI-Trader/market"
)

// ErrNoData is returned when a symbol has no history at or before the
// cursor. Callers must treat it as "there is nothing to know yet", not as a
// transport failure: on the first simulated day, "yesterday's close" simply
// does not exist.
var ErrNoData = errors.New("gate: no data at or before cursor")

// Gate owns the cursor. Only the orchestrator advances it; everything else
// sees the cursor through read-only Views.
type Gate struct {
	store  *market.Store
	cursor time.Time
}

func New(store *market.Store, start time.Time) *Gate {
	return &Gate{store: store, cursor: market.Day(start)}
}

// Cursor returns the current simulated day.
func (g *Gate) Cursor() time.Time { return g.cursor }

// Advance moves the cursor to date. The cursor is monotonic: moving it
// backwards would let an agent re-run a day after observing later data, so
// that is refused.
func (g *Gate) Advance(date time.Time) error {
	date = market.Day(date)
	if date.Before(g.cursor) {
		return errors.New("gate: cursor may not move backwards")
	}
	g.cursor = date
	return nil
}

// View returns a read view bound to the current cursor value. The view
// captures the cursor at creation time, so a view handed to an agent stays
// pinned to that agent's simulated day even if the gate later advances.
func (g *Gate) View() *View {
	return &View{store: g.store, asOf: g.cursor}
}

// View is a cursor-bound, read-only window onto the price store. It is safe
// for concurrent use; it holds no mutable state.
type View struct {
	store *market.Store
	asOf  time.Time
}

// AsOf reports the day this view is pinned to.
func (v *View) AsOf() time.Time { return v.asOf }

// Lookup returns the most recent record for symbol dated at or before the
// view's day. Exact-day data wins; otherwise the last trading day's bar is
// returned, because daily data has weekend and holiday gaps.
func (v *View) Lookup(symbol string) (market.PriceRecord, error) {
	rec, ok := v.store.LookupAtOrBefore(symbol, v.asOf)
	if !ok {
		return market.PriceRecord{}, ErrNoData
	}
	return rec, nil
}

// On returns the record for symbol on exactly date, refusing dates beyond
// the view's day.
func (v *View) On(symbol string, date time.Time) (market.PriceRecord, error) {
	date = market.Day(date)
	if date.After(v.asOf) {
		return market.PriceRecord{}, ErrNoData
	}
	rec, ok := v.store.Lookup(symbol, date)
	if !ok {
		return market.PriceRecord{}, ErrNoData
	}
	return rec, nil
}

// Range returns records for symbol between from and the view's day,
// inclusive. The upper bound is clamped to the cursor regardless of what the
// caller asks for; that clamp is the look-ahead filter, not a policy flag.
func (v *View) Range(symbol string, from time.Time) ([]market.PriceRecord, error) {
	rs := v.store.Range(symbol, from, v.asOf)
	if len(rs) == 0 {
		return nil, ErrNoData
	}
	return rs, nil
}
