/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"faulttriage/internal/bootstrap"
	"faulttriage/internal/domain/fault"
	"faulttriage/internal/errs"
	"faulttriage/internal/ports"
	"faulttriage/internal/usecase/triage"
)

var ticketsCmd = &cobra.Command{
	Use:   "tickets",
	Short: "Inspect stored fault tickets",
}

var ticketsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List fault tickets, newest first",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *triage.Service) error {
		source, _ := cmd.Flags().GetString("source")
		customerID, _ := cmd.Flags().GetUint64("customer-id")
		urgency, _ := cmd.Flags().GetString("urgency")
		openOnly, _ := cmd.Flags().GetBool("open")
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")

		filter := ports.TicketFilter{
			Source:     source,
			CustomerID: customerID,
			Urgency:    fault.UrgencyLevel(strings.ToLower(strings.TrimSpace(urgency))),
			OpenOnly:   openOnly,
			Limit:      limit,
		}
		if cmd.Flags().Changed("id-from-source") {
			id, _ := cmd.Flags().GetInt64("id-from-source")
			filter.IDFromSource = &id
		}

		tickets, err := svc.ListTickets(cmd.Context(), filter)
		if err != nil {
			return errs.Wrap(err, "list tickets")
		}
		if asJSON {
			return writeIndentedJSON(cmd, tickets)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSOURCE\tSOURCE_ID\tCUSTOMER\tASSET\tURGENCY\tSLA\tRESOLVED\tFAULT_TIME")
		for _, t := range tickets {
			fmt.Fprintf(
				tw,
				"%d\t%s\t%s\t%d\t%d\t%s\t%s\t%t\t%s\n",
				t.ID,
				t.Source,
				optionalInt64(t.IDFromSource),
				t.CustomerID,
				t.LocationAssetID,
				urgencyBadge(t.UrgencyLevel),
				optionalHours(t.ResponseTimeHours),
				t.Resolved(),
				t.FaultTime.Format("2006-01-02T15:04:05Z07:00"),
			)
		}
		return tw.Flush()
	}),
}

var ticketsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one fault ticket",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *triage.Service) error {
		id, err := strconv.ParseUint(strings.TrimSpace(cmd.Flags().Arg(0)), 10, 64)
		if err != nil {
			return &fault.ValidationError{Field: "id", Reason: "must be a positive integer"}
		}
		ticket, err := svc.GetTicket(cmd.Context(), id)
		if err != nil {
			return errs.Wrapf(err, "get ticket %d", id)
		}
		return writeIndentedJSON(cmd, ticket)
	}),
}

func writeIndentedJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errs.Wrap(err, "write json")
	}
	return nil
}

func optionalInt64(v *int64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatInt(*v, 10)
}

func optionalHours(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v) + "h"
}

func init() {
	rootCmd.AddCommand(ticketsCmd)
	ticketsCmd.AddCommand(ticketsListCmd, ticketsShowCmd)

	ticketsListCmd.Flags().String("source", "", "Filter by source")
	ticketsListCmd.Flags().Uint64("customer-id", 0, "Filter by customer id")
	ticketsListCmd.Flags().Int64("id-from-source", 0, "Filter by upstream id (use with --source)")
	ticketsListCmd.Flags().String("urgency", "", "Filter by urgency level")
	ticketsListCmd.Flags().Bool("open", false, "Only unresolved tickets")
	ticketsListCmd.Flags().Int("limit", 50, "Maximum rows")
	ticketsListCmd.Flags().Bool("json", false, "Print tickets as JSON")
}
