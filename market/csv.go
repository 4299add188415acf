package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// LoadStats accounts for what a CSV load did and did not accept. Historical
// dumps are messy; we keep the counts instead of failing the whole file on
// the first bad line.
type LoadStats struct {
	Loaded     int
	BadLines   int
	Duplicates int
}

// LoadCSV reads daily bars from a CSV file with the header
//
//	symbol,date,open,high,low,close,volume
//
// Dates are YYYY-MM-DD. Malformed lines are counted and skipped; duplicate
// (symbol, date) keys are counted and skipped so a re-concatenated dump does
// not poison the store.
func LoadCSV(s *Store, path string) (LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return LoadStats{}, err
	}
	defer f.Close()

	return loadCSV(s, f)
}

// LoadDir loads every *.csv file under dir into the store.
func LoadDir(s *Store, dir string) (LoadStats, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return LoadStats{}, err
	}
	if len(matches) == 0 {
		return LoadStats{}, fmt.Errorf("market: no csv files under %s", dir)
	}

	var total LoadStats
	for _, m := range matches {
		st, err := LoadCSV(s, m)
		if err != nil {
			return total, fmt.Errorf("load %s: %w", m, err)
		}
		total.Loaded += st.Loaded
		total.BadLines += st.BadLines
		total.Duplicates += st.Duplicates
	}
	return total, nil
}

func loadCSV(s *Store, r io.Reader) (LoadStats, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // validated per line below

	var stats LoadStats
	first := true

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			stats.BadLines++
			continue
		}
		if first {
			first = false
			if strings.EqualFold(strings.TrimSpace(row[0]), "symbol") {
				continue
			}
		}

		rec, ok := parseRow(row)
		if !ok {
			stats.BadLines++
			continue
		}

		if err := s.Add(rec); err != nil {
			stats.Duplicates++
			continue
		}
		stats.Loaded++
	}

	if stats.Loaded == 0 {
		return stats, fmt.Errorf("market: no valid records parsed")
	}
	return stats, nil
}

func parseRow(row []string) (PriceRecord, bool) {
	if len(row) < 6 {
		return PriceRecord{}, false
	}

	sym := strings.ToUpper(strings.TrimSpace(row[0]))
	if sym == "" {
		return PriceRecord{}, false
	}

	date, err := time.Parse("2006-01-02", strings.TrimSpace(row[1]))
	if err != nil {
		return PriceRecord{}, false
	}

	var px [4]decimal.Decimal
	for i := 0; i < 4; i++ {
		d, err := decimal.NewFromString(strings.TrimSpace(row[2+i]))
		if err != nil || d.IsNegative() {
			return PriceRecord{}, false
		}
		px[i] = d
	}

	var vol int64
	if len(row) > 6 {
		vol, err = strconv.ParseInt(strings.TrimSpace(row[6]), 10, 64)
		if err != nil {
			return PriceRecord{}, false
		}
	}

	return PriceRecord{
		Symbol: sym,
		Date:   Day(date),
		Open:   px[0],
		High:   px[1],
		Low:    px[2],
		Close:  px[3],
		Volume: vol,
	}, true
}
