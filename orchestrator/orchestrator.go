package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/2679373161/AI-Trader/agent"
	"github.com/2679373161/AI-Trader/exec"
	"github.com/2679373161/AI-Trader/gate"
	"github.com/2679373161/AI-Trader/journal"
	"github.com/2679373161/AI-Trader/ledger"
	"github.com/2679373161/AI-Trader/market"
)

// errBudgetExhausted marks a step that ran out of decision iterations
// without the decider signalling termination. It is transient: the retry
// policy decides whether the step gets another attempt.
var errBudgetExhausted = errors.New("orchestrator: step budget exhausted without termination")

// Options is the immutable run configuration the orchestrator consumes.
type Options struct {
	Start        time.Time
	End          time.Time
	InitialCash  decimal.Decimal
	Budget       agent.Budget
	MaxRetries   int
	RetryBackoff time.Duration
}

// Orchestrator owns the cursor and runs every agent, one at a time, through
// each simulated day. Agents within a day are strictly sequential; that is a
// fairness guarantee, not a scheduling convenience: no agent may observe a
// day another agent has not reached.
type Orchestrator struct {
	gate     *gate.Gate
	ledger   *ledger.Ledger
	executor *exec.Executor
	journal  journal.Journal
	deciders []agent.Decider
	opts     Options
	log      *logrus.Logger

	skip    map[string]map[time.Time]bool // resumed steps, already done
	aborted map[string]string             // agent -> integrity failure
}

func New(g *gate.Gate, l *ledger.Ledger, ex *exec.Executor, j journal.Journal,
	deciders []agent.Decider, opts Options, log *logrus.Logger) (*Orchestrator, error) {

	opts.Start = market.Day(opts.Start)
	opts.End = market.Day(opts.End)
	if opts.End.Before(opts.Start) {
		return nil, fmt.Errorf("orchestrator: end %s before start %s", opts.End, opts.Start)
	}
	if opts.Budget.MaxIterations <= 0 {
		return nil, errors.New("orchestrator: step budget must be positive")
	}
	if log == nil {
		log = logrus.New()
	}

	for _, d := range deciders {
		if err := l.Register(d.Signature(), opts.InitialCash); err != nil {
			return nil, err
		}
	}

	return &Orchestrator{
		gate:     g,
		ledger:   l,
		executor: ex,
		journal:  j,
		deciders: deciders,
		opts:     opts,
		log:      log,
		skip:     make(map[string]map[time.Time]bool),
		aborted:  make(map[string]string),
	}, nil
}

// Run iterates the configured date range. For each day the cursor advances
// once, before any agent runs; it advances again only after every agent has
// completed or terminally failed the day.
func (o *Orchestrator) Run(ctx context.Context) (Result, error) {
	res := newResult(o.opts.Start, o.opts.End, o.deciders)

	for date := o.opts.Start; !date.After(o.opts.End); date = date.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := o.gate.Advance(date); err != nil {
			return res, err
		}
		view := o.gate.View()

		for _, d := range o.deciders {
			sig := d.Signature()
			if o.aborted[sig] != "" || o.skip[sig][view.AsOf()] {
				continue
			}
			if err := ctx.Err(); err != nil {
				return res, err
			}

			state, retries, err := o.runStep(ctx, d, view)
			res.observe(sig, state, retries)

			if state == StateAborted {
				o.aborted[sig] = err.Error()
				res.abort(sig, err)
				o.log.WithFields(logrus.Fields{
					"agent": sig, "date": view.AsOf().Format("2006-01-02"),
				}).WithError(err).Error("integrity violation, aborting agent")
				if cpErr := o.checkpoint(sig, view.AsOf(), view, StateAborted, false, retries, nil); cpErr != nil {
					o.log.WithError(cpErr).Error("checkpoint after abort failed")
				}
				continue
			}
			if err != nil && state != StateFailedTerminal {
				// journal write failures and the like: the run state is no
				// longer durable, stop the whole run
				return res, err
			}
		}
	}

	o.finalize(&res)
	return res, nil
}

// runStep drives one agent through one simulated day, including retries.
// Retries never advance the cursor: every attempt sees the same view.
func (o *Orchestrator) runStep(ctx context.Context, d agent.Decider, view *gate.View) (StepState, int, error) {
	sig := d.Signature()
	date := view.AsOf()
	log := o.log.WithFields(logrus.Fields{"agent": sig, "date": date.Format("2006-01-02")})

	var lastErr error
	for retry := 0; retry <= o.opts.MaxRetries; retry++ {
		if retry > 0 {
			log.WithField("retry", retry).Warn("retrying step")
			if err := o.backoff(ctx); err != nil {
				return StateFailedRetryable, retry, err
			}
		}

		mark, err := o.ledger.Mark(sig)
		if err != nil {
			return StateAborted, retry, err
		}

		traded, applied, err := o.runAttempt(ctx, d, view)
		if err == nil {
			if err := o.complete(sig, date, view, traded, applied, retry); err != nil {
				return StateCompleted, retry, err
			}
			log.WithField("traded", traded).Info("step completed")
			return StateCompleted, retry, nil
		}

		if errors.Is(err, ledger.ErrIntegrity) {
			return StateAborted, retry, err
		}
		if ctx.Err() != nil {
			return StateFailedRetryable, retry, ctx.Err()
		}

		// transient: roll the attempt's trades back and try again
		if rbErr := o.ledger.Rollback(mark); rbErr != nil {
			return StateAborted, retry, rbErr
		}
		lastErr = err
		log.WithError(err).Warn("step attempt failed")
	}

	log.WithError(lastErr).Error("retry limit exhausted, recording terminal failure")
	if err := o.terminal(sig, date, view); err != nil {
		return StateFailedTerminal, o.opts.MaxRetries, err
	}
	return StateFailedTerminal, o.opts.MaxRetries, lastErr
}

// runAttempt is one pass through the decision loop: up to MaxIterations
// Step calls, feeding validation rejections back to the decider. Applied
// records are returned for journaling only after the attempt succeeds.
func (o *Orchestrator) runAttempt(ctx context.Context, d agent.Decider, view *gate.View) (bool, []ledger.TradeRecord, error) {
	sig := d.Signature()
	var (
		applied    []ledger.TradeRecord
		rejections []agent.RejectionNote
		traded     bool
	)

	for it := 0; it < o.opts.Budget.MaxIterations; it++ {
		pos, err := o.ledger.Position(sig)
		if err != nil {
			return false, nil, err
		}

		sc := agent.StepContext{
			Agent:      sig,
			Date:       view.AsOf(),
			Iteration:  it,
			Market:     view,
			Position:   pos,
			Rejections: rejections,
		}

		res, err := o.step(ctx, d, sc)
		if err != nil {
			return false, nil, err
		}
		rejections = nil

		for _, intent := range res.Intents {
			rec, err := o.executor.Execute(view, sig, intent)
			if rej, ok := exec.AsRejection(err); ok {
				o.log.WithFields(logrus.Fields{
					"agent": sig, "code": rej.Code,
				}).Info("trade rejected")
				rejections = append(rejections, agent.RejectionNote{
					Intent: intent, Code: rej.Code, Msg: rej.Msg,
				})
				continue
			}
			if err != nil {
				return false, nil, err
			}
			applied = append(applied, rec)
			if rec.Side != ledger.Hold {
				traded = true
			}
		}

		if res.Terminated {
			return traded, applied, nil
		}
	}

	return false, nil, errBudgetExhausted
}

// step calls the decider with the per-attempt timeout applied.
func (o *Orchestrator) step(ctx context.Context, d agent.Decider, sc agent.StepContext) (agent.StepResult, error) {
	if o.opts.Budget.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.Budget.AttemptTimeout)
		defer cancel()
	}
	return d.Step(ctx, sc)
}

// complete journals a successful step: its trades (a hold record when none
// occurred), the checkpoint, and the equity snapshot.
func (o *Orchestrator) complete(sig string, date time.Time, view *gate.View,
	traded bool, applied []ledger.TradeRecord, retries int) error {

	if len(applied) == 0 {
		rec, err := o.executor.Hold(view, sig)
		if err != nil {
			return err
		}
		applied = []ledger.TradeRecord{rec}
	}
	return o.checkpoint(sig, date, view, StateCompleted, traded, retries, applied)
}

// terminal records a spent retry budget as a hold for the day, so the
// journal distinguishes "failed here" from "never ran".
func (o *Orchestrator) terminal(sig string, date time.Time, view *gate.View) error {
	rec, err := o.executor.Hold(view, sig)
	if err != nil {
		return err
	}
	return o.checkpoint(sig, date, view, StateFailedTerminal, false, o.opts.MaxRetries,
		[]ledger.TradeRecord{rec})
}

// checkpoint journals the step's trades and outcome in one atomic write.
// Trades must never outlive a crash without their checkpoint: resume replays
// the trade log against the last checkpoint, and orphan trade rows would
// make that comparison fail forever.
func (o *Orchestrator) checkpoint(sig string, date time.Time, view *gate.View,
	state StepState, traded bool, retries int, applied []ledger.TradeRecord) error {

	pos, err := o.ledger.Position(sig)
	if err != nil {
		return err
	}

	err = o.journal.RecordStep(applied, journal.Checkpoint{
		Agent:    sig,
		Date:     date,
		State:    string(state),
		Traded:   traded,
		Retries:  retries,
		Cash:     pos.Cash,
		Holdings: pos.Holdings,
	}, journal.EquitySnapshot{
		Agent:  sig,
		Date:   date,
		Cash:   pos.Cash,
		Equity: pos.Equity(view),
	})
	if err != nil {
		return fmt.Errorf("orchestrator: journal step: %w", err)
	}
	return nil
}

func (o *Orchestrator) backoff(ctx context.Context) error {
	if o.opts.RetryBackoff <= 0 {
		return nil
	}
	t := time.NewTimer(o.opts.RetryBackoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (o *Orchestrator) finalize(res *Result) {
	view := o.gate.View()
	for _, d := range o.deciders {
		sig := d.Signature()
		pos, err := o.ledger.Position(sig)
		if err != nil {
			continue
		}
		res.finish(sig, pos, pos.Equity(view), len(o.ledger.History(sig)))
	}
}
