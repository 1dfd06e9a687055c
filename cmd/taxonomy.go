/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"faulttriage/internal/bootstrap"
	"faulttriage/internal/errs"
	taxonomyinfra "faulttriage/internal/infrastructure/taxonomy"
	"faulttriage/internal/usecase/triage"
)

var taxonomyCmd = &cobra.Command{
	Use:   "taxonomy",
	Short: "Inspect the fault classification taxonomy",
}

var taxonomyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the taxonomy in effect",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, _ *triage.Service) error {
		format, _ := cmd.Flags().GetString("format")
		format = strings.ToLower(strings.TrimSpace(format))
		if format != "yaml" && format != "toml" {
			return fmt.Errorf("unsupported format %q, want yaml or toml", format)
		}

		current := app.Taxonomy.Current()
		if err := current.Validate(); err != nil {
			return errs.Wrap(err, "validate taxonomy")
		}
		data, err := taxonomyinfra.Marshal(current, format)
		if err != nil {
			return errs.Wrap(err, "marshal taxonomy")
		}
		if _, err := cmd.OutOrStdout().Write(data); err != nil {
			return errs.Wrap(err, "write taxonomy")
		}
		return nil
	}),
}

var taxonomyCheckCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Validate a taxonomy file without loading it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := taxonomyinfra.Load(args[0])
		if err != nil {
			return errs.Wrapf(err, "check %s", args[0])
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "taxonomy %s ok (version %q)\n", args[0], t.Version)
		return err
	},
}

func init() {
	rootCmd.AddCommand(taxonomyCmd)
	taxonomyCmd.AddCommand(taxonomyShowCmd, taxonomyCheckCmd)

	taxonomyShowCmd.Flags().String("format", "yaml", "Output format: yaml or toml")
}
