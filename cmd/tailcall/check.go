package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tailcall-go/tailcall/internal/app"
	"github.com/tailcall-go/tailcall/internal/config"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <config-file>",
		Short: "Validate a config document without publishing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			errs, err := app.Check(source, sourceKindFor(args[0]))
			if err != nil {
				return err
			}
			if len(errs) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), config.FormatErrors(errs))
				return fmt.Errorf("%d config error(s) found", len(errs))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "config is valid")
			return nil
		},
	}
}
