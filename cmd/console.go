/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"faulttriage/internal/bootstrap"
	"faulttriage/internal/bootstrap/logging"
	"faulttriage/internal/errs"
	"faulttriage/internal/usecase/ticketconsole"
	"faulttriage/internal/usecase/triage"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Watch fault tickets in a terminal console",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *triage.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		source, _ := cmd.Flags().GetString("source")
		customerID, _ := cmd.Flags().GetUint64("customer-id")
		openOnly, _ := cmd.Flags().GetBool("open")
		limit, _ := cmd.Flags().GetInt("limit")
		refreshInterval, _ := cmd.Flags().GetDuration("refresh-interval")

		model := ticketconsole.NewModel(ctx, svc, ticketconsole.Options{
			Source:          source,
			CustomerID:      customerID,
			OpenOnly:        openOnly,
			Limit:           limit,
			RefreshInterval: refreshInterval,
		})

		program := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return errs.Wrap(err, "run ticket console")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(consoleCmd)
	consoleCmd.Flags().String("source", "", "Source filter")
	consoleCmd.Flags().Uint64("customer-id", 0, "Customer filter")
	consoleCmd.Flags().Bool("open", false, "Only unresolved tickets")
	consoleCmd.Flags().Int("limit", 50, "Maximum rows")
	consoleCmd.Flags().Duration("refresh-interval", 5*time.Second, "Auto refresh interval")
}
