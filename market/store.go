package market

import (
	"fmt"
	"sort"
	"time"
)

// Store is a date-indexed collection of PriceRecords for a fixed symbol
// universe. It is populated once at startup and read-only afterwards, so
// concurrent reads need no locking.
type Store struct {
	bars map[string][]PriceRecord // per symbol, sorted ascending by Date
}

func NewStore() *Store {
	return &Store{bars: make(map[string][]PriceRecord)}
}

// Add inserts a record, keeping the per-symbol slice sorted. A second record
// for the same (symbol, date) is an error: the history is immutable and a
// duplicate means the input data is bad.
func (s *Store) Add(r PriceRecord) error {
	r.Date = Day(r.Date)

	rs := s.bars[r.Symbol]
	i := sort.Search(len(rs), func(i int) bool { return !rs[i].Date.Before(r.Date) })
	if i < len(rs) && rs[i].Date.Equal(r.Date) {
		return fmt.Errorf("market: duplicate record for %s at %s", r.Symbol, r.Date.Format("2006-01-02"))
	}

	rs = append(rs, PriceRecord{})
	copy(rs[i+1:], rs[i:])
	rs[i] = r
	s.bars[r.Symbol] = rs
	return nil
}

// Lookup returns the record for symbol on exactly date, if any.
func (s *Store) Lookup(symbol string, date time.Time) (PriceRecord, bool) {
	date = Day(date)
	rs := s.bars[symbol]
	i := sort.Search(len(rs), func(i int) bool { return !rs[i].Date.Before(date) })
	if i < len(rs) && rs[i].Date.Equal(date) {
		return rs[i], true
	}
	return PriceRecord{}, false
}

// LookupAtOrBefore returns the most recent record dated at or before date.
// Daily data has weekend and holiday gaps, so "price as of date" usually
// means this rather than an exact-date hit.
func (s *Store) LookupAtOrBefore(symbol string, date time.Time) (PriceRecord, bool) {
	date = Day(date)
	rs := s.bars[symbol]
	i := sort.Search(len(rs), func(i int) bool { return rs[i].Date.After(date) })
	if i == 0 {
		return PriceRecord{}, false
	}
	return rs[i-1], true
}

// Range returns all records for symbol with from <= Date <= to, in date order.
func (s *Store) Range(symbol string, from, to time.Time) []PriceRecord {
	from, to = Day(from), Day(to)
	rs := s.bars[symbol]
	lo := sort.Search(len(rs), func(i int) bool { return !rs[i].Date.Before(from) })
	hi := sort.Search(len(rs), func(i int) bool { return rs[i].Date.After(to) })
	if lo >= hi {
		return nil
	}
	out := make([]PriceRecord, hi-lo)
	copy(out, rs[lo:hi])
	return out
}

// Symbols lists every symbol the store has data for, sorted.
func (s *Store) Symbols() []string {
	out := make([]string, 0, len(s.bars))
	for sym := range s.bars {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Len reports the total number of records across all symbols.
func (s *Store) Len() int {
	n := 0
	for _, rs := range s.bars {
		n += len(rs)
	}
	return n
}
