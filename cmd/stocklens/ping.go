package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/newthinker/stocklens/internal/client"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the analysis service is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := bootstrap()
		if err != nil {
			return err
		}
		defer e.close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		status, err := e.client.Health(ctx)
		if err != nil {
			return fmt.Errorf("analysis service at %s: %s", e.cfg.Service.BaseURL, client.Message(err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "analysis service at %s: %s\n", e.cfg.Service.BaseURL, status)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pingCmd)
}
