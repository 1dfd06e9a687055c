/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"faulttriage/internal/bootstrap"
	"faulttriage/internal/bootstrap/logging"
	"faulttriage/internal/errs"
	"faulttriage/internal/usecase/triage"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Triage one fault event read from a file or stdin",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *triage.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		path, _ := cmd.Flags().GetString("file")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		asJSON, _ := cmd.Flags().GetBool("json")

		in, closeIn, err := openInput(cmd, path)
		if err != nil {
			return err
		}
		defer closeIn()

		out := cmd.OutOrStdout()
		raw, err := decodeRawEvent(in)
		if err != nil {
			if perr := printResult(out, asJSON, "fault event", triage.FailureResult(err)); perr != nil {
				return errs.Wrap(perr, "write result")
			}
			return err
		}

		title := "fault event"
		var result triage.Result
		if dryRun {
			title = "fault event (dry run)"
			result, err = svc.Classify(ctx, raw)
		} else {
			result, err = svc.Process(ctx, raw)
		}
		if perr := printResult(out, asJSON, title, result); perr != nil {
			return errs.Wrap(perr, "write result")
		}
		return err
	}),
}

// openInput opens path, or stdin when path is empty or "-".
func openInput(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	path = strings.TrimSpace(path)
	if path == "" || path == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errs.Wrapf(err, "open %s", path)
	}
	return f, func() { _ = f.Close() }, nil
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringP("file", "f", "-", "JSON event file (- for stdin)")
	processCmd.Flags().Bool("dry-run", false, "Classify without touching tickets")
	processCmd.Flags().Bool("json", false, "Print the result as JSON")
}
