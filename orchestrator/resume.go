package orchestrator

import (
	"fmt"
	"time"

	"github.com/2679373161/AI-Trader/journal"
	"github.com/2679373161/AI-Trader/ledger"
	"github.com/2679373161/AI-Trader/market"
)

// Store is the journal surface a resumed run needs on top of plain
// recording: reading back checkpoints and the trade log.
type Store interface {
	journal.Journal
	LastCheckpoint(agent string) (journal.Checkpoint, bool, error)
	StepDone(agent string, date time.Time, doneStates ...string) (bool, error)
	TradesByAgent(agent string) ([]ledger.TradeRecord, error)
}

// Resume rebuilds runtime state from the journal: each agent's position is
// recomputed by replaying its trade log from the initial position, verified
// against the last checkpoint, and every already-finished (agent, date) step
// is marked to be skipped. A mismatch between replayed state and checkpoint
// is an integrity failure and refuses the resume.
func (o *Orchestrator) Resume(st Store) error {
	for _, d := range o.deciders {
		sig := d.Signature()

		cp, ok, err := st.LastCheckpoint(sig)
		if err != nil {
			return fmt.Errorf("orchestrator: resume %s: %w", sig, err)
		}
		if !ok {
			continue // agent never ran; starts fresh
		}

		records, err := st.TradesByAgent(sig)
		if err != nil {
			return fmt.Errorf("orchestrator: resume %s: %w", sig, err)
		}
		initial, err := o.ledger.Initial(sig)
		if err != nil {
			return err
		}
		pos, err := ledger.Replay(initial, records)
		if err != nil {
			return fmt.Errorf("orchestrator: resume %s: %w", sig, err)
		}

		if !ledger.Equal(pos, ledger.Position{Cash: cp.Cash, Holdings: cp.Holdings}) {
			return fmt.Errorf("%w: resume %s: replayed position disagrees with checkpoint at %s",
				ledger.ErrIntegrity, sig, cp.Date.Format("2006-01-02"))
		}

		if err := o.ledger.Restore(sig, pos); err != nil {
			return err
		}
		if cp.State == string(StateAborted) {
			o.aborted[sig] = "aborted in previous run"
		}

		if err := o.markDone(st, sig); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) markDone(st Store, sig string) error {
	for date := o.opts.Start; !date.After(o.opts.End); date = date.AddDate(0, 0, 1) {
		day := market.Day(date)
		done, err := st.StepDone(sig, day, doneStates...)
		if err != nil {
			return err
		}
		if !done {
			// steps finish in date order, so the first unfinished day is
			// where this agent resumes
			return nil
		}
		if o.skip[sig] == nil {
			o.skip[sig] = make(map[time.Time]bool)
		}
		o.skip[sig][day] = true
	}
	return nil
}
