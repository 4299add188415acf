package journal

import (
	"bytes"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2679373161/AI-Trader/ledger"
)

var day1 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "run.sqlite")
	j, err := NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	return j, path
}

func sampleTrade(id string, date time.Time) ledger.TradeRecord {
	return ledger.TradeRecord{
		ID:            id,
		Agent:         "a1",
		Date:          date,
		Symbol:        "AAPL",
		Side:          ledger.Buy,
		Quantity:      10,
		Price:         decimal.RequireFromString("150.25"),
		CashAfter:     decimal.RequireFromString("8497.50"),
		HoldingsAfter: map[string]int64{"AAPL": 10},
	}
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	require.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('trades','checkpoints','equity')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	require.NoError(t, rows.Err())

	assert.True(t, found["trades"])
	assert.True(t, found["checkpoints"])
	assert.True(t, found["equity"])
}

func TestSQLiteTradeRoundTrip(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)

	want := sampleTrade("01TRADE", day1)
	require.NoError(t, j.RecordTrade(want))

	got, err := j.TradesByAgent("a1")
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, want.ID, got[0].ID)
	assert.Equal(t, want.Side, got[0].Side)
	assert.True(t, got[0].Price.Equal(want.Price))
	assert.True(t, got[0].CashAfter.Equal(want.CashAfter))
	assert.Equal(t, want.HoldingsAfter, got[0].HoldingsAfter)
	assert.True(t, got[0].Date.Equal(day1))
}

func TestSQLiteTradeLogIsAppendOnly(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	require.NoError(t, j.RecordTrade(sampleTrade("01A", day1)))

	// a second insert under the same primary key must fail, not overwrite
	assert.Error(t, j.RecordTrade(sampleTrade("01A", day1)))
}

func TestSQLiteTradesOrderedByDate(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	require.NoError(t, j.RecordTrade(sampleTrade("02B", day1.AddDate(0, 0, 1))))
	require.NoError(t, j.RecordTrade(sampleTrade("01A", day1)))

	got, err := j.TradesByAgent("a1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "01A", got[0].ID)
	assert.Equal(t, "02B", got[1].ID)
}

func TestSQLiteCheckpointUpsert(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)

	cp := Checkpoint{
		Agent: "a1", Date: day1, State: "failed_retryable", Traded: false,
		Retries: 1, Cash: decimal.NewFromInt(10_000), Holdings: map[string]int64{},
	}
	require.NoError(t, j.RecordCheckpoint(cp))

	cp.State = "completed"
	cp.Traded = true
	cp.Retries = 2
	cp.Cash = decimal.RequireFromString("8500")
	cp.Holdings = map[string]int64{"AAPL": 10}
	require.NoError(t, j.RecordCheckpoint(cp))

	got, ok, err := j.LastCheckpoint("a1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "completed", got.State)
	assert.True(t, got.Traded)
	assert.Equal(t, 2, got.Retries)
	assert.True(t, got.Cash.Equal(cp.Cash))
	assert.Equal(t, map[string]int64{"AAPL": 10}, got.Holdings)
}

func TestSQLiteLastCheckpointPicksLatestDate(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, j.RecordCheckpoint(Checkpoint{
			Agent: "a1", Date: day1.AddDate(0, 0, i), State: "completed",
			Cash: decimal.NewFromInt(int64(1000 + i)), Holdings: map[string]int64{},
		}))
	}

	got, ok, err := j.LastCheckpoint("a1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Date.Equal(day1.AddDate(0, 0, 2)))
	assert.Equal(t, "1002", got.Cash.String())
}

func TestSQLiteLastCheckpointMissingAgent(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	_, ok, err := j.LastCheckpoint("ghost")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStepDone(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	require.NoError(t, j.RecordCheckpoint(Checkpoint{
		Agent: "a1", Date: day1, State: "completed",
		Cash: decimal.NewFromInt(1), Holdings: map[string]int64{},
	}))
	require.NoError(t, j.RecordCheckpoint(Checkpoint{
		Agent: "a1", Date: day1.AddDate(0, 0, 1), State: "failed_retryable",
		Cash: decimal.NewFromInt(1), Holdings: map[string]int64{},
	}))

	done, err := j.StepDone("a1", day1, "completed", "failed_terminal")
	require.NoError(t, err)
	assert.True(t, done)

	// retryable is not done
	done, err = j.StepDone("a1", day1.AddDate(0, 0, 1), "completed", "failed_terminal")
	require.NoError(t, err)
	assert.False(t, done)

	// no checkpoint at all
	done, err = j.StepDone("a1", day1.AddDate(0, 0, 5), "completed")
	require.NoError(t, err)
	assert.False(t, done)
}

func TestSQLiteRecordStepCommitsTogether(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)

	cp := Checkpoint{
		Agent: "a1", Date: day1, State: "completed", Traded: true,
		Cash: decimal.RequireFromString("8497.50"), Holdings: map[string]int64{"AAPL": 10},
	}
	eq := EquitySnapshot{Agent: "a1", Date: day1,
		Cash: cp.Cash, Equity: decimal.NewFromInt(10_000)}

	require.NoError(t, j.RecordStep([]ledger.TradeRecord{sampleTrade("01A", day1)}, cp, eq))

	got, err := j.TradesByAgent("a1")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	done, err := j.StepDone("a1", day1, "completed")
	require.NoError(t, err)
	assert.True(t, done)
}

// A failing write inside RecordStep must roll the whole step back: trade
// rows without their checkpoint would make the journal unresumable.
func TestSQLiteRecordStepIsAtomic(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	require.NoError(t, j.RecordTrade(sampleTrade("01A", day1)))

	cp := Checkpoint{
		Agent: "a1", Date: day1, State: "completed",
		Cash: decimal.NewFromInt(8_500), Holdings: map[string]int64{"AAPL": 10},
	}
	eq := EquitySnapshot{Agent: "a1", Date: day1,
		Cash: cp.Cash, Equity: decimal.NewFromInt(10_000)}

	// second trade collides with the existing primary key
	err := j.RecordStep([]ledger.TradeRecord{
		sampleTrade("02B", day1),
		sampleTrade("01A", day1),
	}, cp, eq)
	require.Error(t, err)

	// neither the first trade of the batch nor the checkpoint landed
	got, err := j.TradesByAgent("a1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, "01A", got[0].ID)

	_, ok, err := j.LastCheckpoint("a1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteEquity(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	require.NoError(t, j.RecordEquity(EquitySnapshot{
		Agent: "a1", Date: day1,
		Cash:   decimal.NewFromInt(8_500),
		Equity: decimal.NewFromInt(10_050),
	}))
	// same step re-recorded after a retry overwrites
	require.NoError(t, j.RecordEquity(EquitySnapshot{
		Agent: "a1", Date: day1,
		Cash:   decimal.NewFromInt(8_500),
		Equity: decimal.NewFromInt(10_100),
	}))
}

func TestExportTradesCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := ExportTradesCSV(&buf, []ledger.TradeRecord{sampleTrade("01A", day1)})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(tradeHeader, ","), lines[0])
	assert.Contains(t, lines[1], "01A")
	assert.Contains(t, lines[1], "150.25")
	assert.Contains(t, lines[1], "8497.50")
}
