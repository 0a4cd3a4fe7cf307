package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"daily-losers-bot/internal/logger"
	"daily-losers-bot/internal/rebalance"
	"daily-losers-bot/internal/recorder"
	"daily-losers-bot/internal/scheduler"
	"daily-losers-bot/internal/screener"
	"daily-losers-bot/internal/store"
	"daily-losers-bot/internal/trace"
	"daily-losers-bot/internal/types"
)

func main() {
	if err := initializeSystem(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer trace.Shutdown(context.Background())

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logger.ErrorWithErr(ctx, "Command failed", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "bot",
		Short:         "Daily losers mean-reversion bot for Alpaca",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")

	root.AddCommand(
		newRunCmd(&configPath),
		newSaveLosersCmd(&configPath),
		newPlanCmd(&configPath),
		newEODCmd(&configPath),
		newServeCmd(&configPath),
		newHistoryCmd(&configPath),
	)
	return root
}

func newRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Sell, liquidate for capital and buy, once",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			report, err := app.engine.Run(ctx)
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}
}

func newSaveLosersCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "save-losers",
		Short: "Scrape the day's losers and save the tradeable ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			saved, err := app.saveLosers(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("saved %d symbols to %s\n", len(saved), app.cfg.Strategy.LosersFile)
			return nil
		},
	}
}

type planOutput struct {
	Cash          float64       `json:"cash"`
	CashNeeded    float64       `json:"cash_needed"`
	Liquidation   types.Plan    `json:"liquidation"`
	BuyCandidates []string      `json:"buy_candidates"`
	Purchases     types.Plan    `json:"purchases"`
	Failures      []failureJSON `json:"failures,omitempty"`
}

type failureJSON struct {
	Symbol string `json:"symbol"`
	Stage  string `json:"stage"`
	Error  string `json:"error"`
}

func newPlanCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Print the liquidation and purchase plans without trading",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			positions, err := app.broker.Positions(ctx)
			if err != nil {
				return err
			}
			opts := rebalance.Options{
				TargetCashFraction: app.cfg.Strategy.TargetCashFraction,
				SkipLosing:         !app.cfg.Strategy.LiquidateLosers,
			}
			liquidation, err := rebalance.PlanLiquidation(positions, opts)
			if err != nil {
				return err
			}

			acct, err := app.broker.Account(ctx)
			if err != nil {
				return err
			}
			candidates, failures, err := app.engine.GetBuyCandidates(ctx)
			if err != nil {
				return err
			}
			purchases, err := rebalance.PlanPurchases(candidates, acct.Cash, app.cfg.Strategy.BuyLimit, app.cfg.Strategy.CashReserve)
			if err != nil {
				return err
			}

			out := planOutput{
				Cash:          acct.Cash,
				CashNeeded:    rebalance.CashNeeded(positions, opts.TargetCashFraction),
				Liquidation:   liquidation,
				BuyCandidates: candidates,
				Purchases:     purchases,
			}
			for _, f := range failures {
				out.Failures = append(out.Failures, failureJSON{Symbol: f.Symbol, Stage: f.Stage, Error: f.Err.Error()})
			}
			return printJSON(out)
		},
	}
}

func newEODCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "eod",
		Short: "Write today's end-of-day order summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			p, err := app.eod.SummarizeToday()
			if err != nil {
				return err
			}
			if p == "" {
				fmt.Println("no orders journaled today")
				return nil
			}
			fmt.Println("EOD CSV written:", p)
			return nil
		},
	}
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run save-losers, run and eod on their cron schedules",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			loc, err := loadLocation(app.cfg.Schedule.Timezone)
			if err != nil {
				return err
			}
			s := scheduler.New(ctx, loc)
			err = s.Register(
				scheduler.Job{Name: "save-losers", Spec: app.cfg.Schedule.SaveLosers, Run: func(ctx context.Context) error {
					_, err := app.saveLosers(ctx)
					return err
				}},
				scheduler.Job{Name: "run", Spec: app.cfg.Schedule.Run, Run: func(ctx context.Context) error {
					_, err := app.engine.Run(ctx)
					return err
				}},
				scheduler.Job{Name: "eod", Spec: app.cfg.Schedule.EOD, Run: func(ctx context.Context) error {
					compressOldLogs(ctx, app)
					if ok, _ := app.eod.ShouldRunNow(); !ok {
						return nil
					}
					_, err := app.eod.SummarizeToday()
					return err
				}},
			)
			if err != nil {
				return err
			}

			s.Start()
			logger.Info(ctx, "Bot started", "mode", app.cfg.Mode, "timezone", loc.String())
			<-ctx.Done()
			logger.Info(ctx, "Shutting down")
			s.Stop()
			return nil
		},
	}
}

func newHistoryCmd(configPath *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs from the run database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := store.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			if cfg.Recorder.Driver != "sqlite" {
				return fmt.Errorf("history needs recorder.driver sqlite, got %q", cfg.Recorder.Driver)
			}
			rec, err := recorder.NewSQLiteRecorder(cfg.Recorder.Path)
			if err != nil {
				return err
			}
			defer rec.Close()

			runs, err := rec.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, r := range runs {
				fmt.Printf("%s  %s  %6.1fs  %d orders\n", r.RunID, r.StartedAt.Format("2006-01-02 15:04:05"),
					r.FinishedAt.Sub(r.StartedAt).Seconds(), r.Orders)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to list")
	return cmd
}

func (a *app) saveLosers(ctx context.Context) ([]string, error) {
	op := logger.StartOperation(ctx, "save_losers", "path", a.cfg.Strategy.LosersFile, "top", a.cfg.Strategy.LosersTop)
	saved, err := screener.SaveLosers(op.Context(), a.scraper, a.broker, a.cfg.Strategy.LosersFile, a.cfg.Strategy.LosersTop)
	if err != nil {
		op.EndWithError(err)
		return nil, err
	}
	op.End("saved", len(saved))
	return saved, nil
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
