package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/2679373161/AI-Trader/ledger"
)

// SQLite stores the run journal in a single database file. Decimal values
// are stored as TEXT so exact cash amounts round-trip without float drift.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: init schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (j *SQLite) Close() error { return j.db.Close() }

// execer is satisfied by both *sql.DB and *sql.Tx, so the insert statements
// serve single writes and the per-step transaction alike.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertTrade(e execer, t ledger.TradeRecord) error {
	holdings, err := json.Marshal(t.HoldingsAfter)
	if err != nil {
		return err
	}
	_, err = e.Exec(`
		INSERT INTO trades
		(trade_id, agent, date, symbol, side, quantity, price, cash_after, holdings_after)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Agent, t.Date.UTC(), t.Symbol, string(t.Side), t.Quantity,
		t.Price.String(), t.CashAfter.String(), string(holdings),
	)
	return err
}

func upsertEquity(e execer, s EquitySnapshot) error {
	_, err := e.Exec(`
		INSERT OR REPLACE INTO equity (agent, date, cash, equity)
		VALUES (?, ?, ?, ?)`,
		s.Agent, s.Date.UTC(), s.Cash.String(), s.Equity.String(),
	)
	return err
}

func upsertCheckpoint(e execer, c Checkpoint) error {
	holdings, err := json.Marshal(c.Holdings)
	if err != nil {
		return err
	}
	_, err = e.Exec(`
		INSERT OR REPLACE INTO checkpoints (agent, date, state, traded, retries, cash, holdings)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.Agent, c.Date.UTC(), c.State, c.Traded, c.Retries,
		c.Cash.String(), string(holdings),
	)
	return err
}

func (j *SQLite) RecordTrade(t ledger.TradeRecord) error { return insertTrade(j.db, t) }

func (j *SQLite) RecordEquity(e EquitySnapshot) error { return upsertEquity(j.db, e) }

// RecordCheckpoint upserts the step outcome for (agent, date). Retried steps
// overwrite their earlier checkpoint row; the trade log stays append-only.
func (j *SQLite) RecordCheckpoint(c Checkpoint) error { return upsertCheckpoint(j.db, c) }

// RecordStep writes a step's trades, checkpoint and equity snapshot in one
// transaction. A crash mid-step therefore never leaves trade rows without
// the checkpoint they belong to, which is what keeps the journal resumable.
func (j *SQLite) RecordStep(trades []ledger.TradeRecord, c Checkpoint, e EquitySnapshot) error {
	tx, err := j.db.Begin()
	if err != nil {
		return err
	}
	for _, t := range trades {
		if err := insertTrade(tx, t); err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := upsertCheckpoint(tx, c); err != nil {
		tx.Rollback()
		return err
	}
	if err := upsertEquity(tx, e); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// TradesByAgent returns the agent's trade records ordered by date then
// insertion (trade IDs are ULIDs, time-sortable).
func (j *SQLite) TradesByAgent(agent string) ([]ledger.TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT trade_id, agent, date, symbol, side, quantity, price, cash_after, holdings_after
		FROM trades WHERE agent = ? ORDER BY date, trade_id`, agent)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanTrade(rows *sql.Rows) (ledger.TradeRecord, error) {
	var (
		rec                     ledger.TradeRecord
		side, price, cash, hold string
		date                    time.Time
	)
	if err := rows.Scan(&rec.ID, &rec.Agent, &date, &rec.Symbol, &side,
		&rec.Quantity, &price, &cash, &hold); err != nil {
		return ledger.TradeRecord{}, err
	}

	rec.Date = date.UTC()
	rec.Side = ledger.Side(side)

	var err error
	if rec.Price, err = decimal.NewFromString(price); err != nil {
		return ledger.TradeRecord{}, fmt.Errorf("journal: trade %s: bad price %q", rec.ID, price)
	}
	if rec.CashAfter, err = decimal.NewFromString(cash); err != nil {
		return ledger.TradeRecord{}, fmt.Errorf("journal: trade %s: bad cash %q", rec.ID, cash)
	}
	if err := json.Unmarshal([]byte(hold), &rec.HoldingsAfter); err != nil {
		return ledger.TradeRecord{}, fmt.Errorf("journal: trade %s: bad holdings: %w", rec.ID, err)
	}
	return rec, nil
}

// LastCheckpoint returns the agent's most recent checkpoint, or ok=false if
// the agent has none journaled.
func (j *SQLite) LastCheckpoint(agent string) (Checkpoint, bool, error) {
	row := j.db.QueryRow(`
		SELECT agent, date, state, traded, retries, cash, holdings
		FROM checkpoints WHERE agent = ? ORDER BY date DESC LIMIT 1`, agent)

	c, err := scanCheckpoint(row)
	if err == sql.ErrNoRows {
		return Checkpoint{}, false, nil
	}
	if err != nil {
		return Checkpoint{}, false, err
	}
	return c, true, nil
}

// StepDone reports whether (agent, date) already has a finished checkpoint,
// meaning a resumed run must not replay that step.
func (j *SQLite) StepDone(agent string, date time.Time, doneStates ...string) (bool, error) {
	row := j.db.QueryRow(`SELECT state FROM checkpoints WHERE agent = ? AND date = ?`, agent, date.UTC())

	var state string
	err := row.Scan(&state)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	for _, s := range doneStates {
		if state == s {
			return true, nil
		}
	}
	return false, nil
}

func scanCheckpoint(row *sql.Row) (Checkpoint, error) {
	var (
		c          Checkpoint
		cash, hold string
		date       time.Time
	)
	if err := row.Scan(&c.Agent, &date, &c.State, &c.Traded, &c.Retries, &cash, &hold); err != nil {
		return Checkpoint{}, err
	}
	c.Date = date.UTC()

	var err error
	if c.Cash, err = decimal.NewFromString(cash); err != nil {
		return Checkpoint{}, fmt.Errorf("journal: checkpoint %s/%s: bad cash %q", c.Agent, date, cash)
	}
	if err := json.Unmarshal([]byte(hold), &c.Holdings); err != nil {
		return Checkpoint{}, fmt.Errorf("journal: checkpoint %s/%s: bad holdings: %w", c.Agent, date, err)
	}
	return c, nil
}
