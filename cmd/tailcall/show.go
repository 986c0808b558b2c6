package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tailcall-go/tailcall/internal/app"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <digest>",
		Short: "Print the config source a digest was published from",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			defer logger.Sync()
			gw, err := app.New(app.Options{RegistryPath: registryPath()}, logger)
			if err != nil {
				return err
			}
			defer gw.Close()

			source, _, err := gw.Show(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(source))
			return nil
		},
	}
}
