package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/newthinker/stocklens/internal/query"
	"github.com/newthinker/stocklens/internal/render"
	"github.com/newthinker/stocklens/internal/session"
)

var (
	analyzeDays   int
	analyzeModel  string
	analyzeOutput string
)

var errQueryFailed = errors.New("analysis failed")

var analyzeCmd = &cobra.Command{
	Use:   "analyze TICKER",
	Short: "Analyze a stock and print the report",
	Example: `  stocklens analyze AAPL
  stocklens analyze msft --days 7 --model lstm
  stocklens analyze TSLA --output json`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().IntVar(&analyzeDays, "days", 0, "forecast horizon in days (7, 14 or 30)")
	analyzeCmd.Flags().StringVar(&analyzeModel, "model", "", "prediction model (lstm or xgboost)")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "output format (text, json or yaml)")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	e, err := bootstrap()
	if err != nil {
		return err
	}
	defer e.close()

	in := query.Input{Ticker: args[0], Days: e.cfg.Query.Days, Model: e.cfg.Query.Model}
	if cmd.Flags().Changed("days") {
		in.Days = analyzeDays
	}
	if cmd.Flags().Changed("model") {
		in.Model = analyzeModel
	}

	out := e.cfg.Output.Format
	if cmd.Flags().Changed("output") {
		out = analyzeOutput
	}
	format, err := render.ParseFormat(out)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s := session.New(e.client, e.log, e.metrics)
	snap, err := s.Submit(ctx, in)
	if err != nil {
		return fmt.Errorf("invalid query: %w", err)
	}

	switch snap.State {
	case session.StateDisplaying:
		return render.Write(cmd.OutOrStdout(), format, snap.Result)
	case session.StateFailed:
		_ = render.Error(cmd.ErrOrStderr(), snap.Err)
		return errQueryFailed
	}
	return fmt.Errorf("unexpected session state %q", snap.State)
}
