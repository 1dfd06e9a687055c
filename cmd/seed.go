/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"faulttriage/internal/bootstrap"
	"faulttriage/internal/bootstrap/logging"
	"faulttriage/internal/errs"
	"faulttriage/internal/usecase/triage"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load sample customers, locations and assets",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *triage.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		result, err := svc.Seed(ctx)
		if err != nil {
			return errs.Wrap(err, "seed reference data")
		}

		out := cmd.OutOrStdout()
		if result.Skipped {
			_, err = fmt.Fprintln(out, "customers already present; seed skipped")
			return err
		}
		for _, c := range result.Customers {
			if _, err := fmt.Fprintf(out, "customer %d %s (%dh response)\n", c.ID, c.Name, c.SLAHours); err != nil {
				return errs.Wrap(err, "write seed output")
			}
		}
		for _, a := range result.Assets {
			if _, err := fmt.Fprintf(out, "location_asset %d %s (customer %d)\n", a.ID, a.Name, a.CustomerID); err != nil {
				return errs.Wrap(err, "write seed output")
			}
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
