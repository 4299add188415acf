package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/2679373161/AI-Trader/agent"
	"github.com/2679373161/AI-Trader/config"
	"github.com/2679373161/AI-Trader/exec"
	"github.com/2679373161/AI-Trader/gate"
	"github.com/2679373161/AI-Trader/journal"
	"github.com/2679373161/AI-Trader/ledger"
	"github.com/2679373161/AI-Trader/market"
	"github.com/2679373161/AI-Trader/orchestrator"
)

var (
	runConfigPath string
	runResume     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation over the configured date range",
	Long: `Run replays the configured date range day by day. Each day, every agent
in the roster takes one step, strictly in roster order; the cursor advances
only after every agent has finished the day.

With --resume, runtime state is rebuilt from the journal and steps that
already completed (or terminally failed) are skipped.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "experiment.yaml", "path to experiment config (YAML or JSON)")
	runCmd.Flags().BoolVar(&runResume, "resume", false, "resume from the journal instead of starting fresh")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return err
	}

	log := logrus.StandardLogger()

	store := market.NewStore()
	stats, err := market.LoadDir(store, cfg.Data.Dir)
	if err != nil {
		return fmt.Errorf("load market data: %w", err)
	}
	log.WithFields(logrus.Fields{
		"records": stats.Loaded, "bad_lines": stats.BadLines, "duplicates": stats.Duplicates,
	}).Info("market data loaded")

	j, err := journal.NewSQLite(cfg.Journal.DBPath)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	orch, err := buildOrchestrator(cfg, store, j, log)
	if err != nil {
		return err
	}

	if runResume {
		if err := orch.Resume(j); err != nil {
			return fmt.Errorf("resume: %w", err)
		}
		log.Info("resumed from journal")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := orch.Run(ctx)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	printResult(res)
	return nil
}

func buildOrchestrator(cfg *config.Config, store *market.Store, j journal.Journal, log *logrus.Logger) (*orchestrator.Orchestrator, error) {
	start, _ := cfg.StartDate()
	end, _ := cfg.EndDate()
	attemptTimeout, _ := cfg.AttemptTimeout()
	backoff, _ := cfg.RetryBackoff()

	g := gate.New(store, start)
	l := ledger.New(cfg.Experiment.AllowShort)
	ex := exec.New(l, cfg.Data.Symbols)

	deciders := make([]agent.Decider, 0, len(cfg.Agents))
	for _, a := range cfg.Agents {
		if a.Endpoint == "" {
			deciders = append(deciders, agent.NewScripted(a.Signature))
			continue
		}
		deciders = append(deciders, agent.NewRemote(a.Signature, a.Endpoint, cfg.Data.Symbols, attemptTimeout))
	}

	return orchestrator.New(g, l, ex, j, deciders, orchestrator.Options{
		Start:       market.Day(start),
		End:         market.Day(end),
		InitialCash: decimal.NewFromFloat(cfg.Experiment.InitialCash),
		Budget: agent.Budget{
			MaxIterations:  cfg.Step.MaxIterations,
			AttemptTimeout: attemptTimeout,
		},
		MaxRetries:   cfg.Step.MaxRetries,
		RetryBackoff: backoff,
	}, log)
}

func printResult(res orchestrator.Result) {
	fmt.Printf("\nRun complete: %s .. %s\n\n",
		res.Start.Format("2006-01-02"), res.End.Format("2006-01-02"))

	for i, s := range res.Ranked() {
		fmt.Printf("%d. %s\n", i+1, s.Agent)
		fmt.Printf("   Equity: $%s  Cash: $%s  Trades: %d\n",
			s.FinalEquity.StringFixed(2), s.FinalCash.StringFixed(2), s.TradeRecords)
		fmt.Printf("   Steps: %d completed, %d failed, %d retries\n",
			s.Completed, s.FailedTerminal, s.Retries)
		if s.Aborted {
			fmt.Printf("   ABORTED: %s\n", s.AbortReason)
		}
	}
}
