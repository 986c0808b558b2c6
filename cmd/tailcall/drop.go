package main

import (
	"github.com/spf13/cobra"

	"github.com/tailcall-go/tailcall/internal/app"
)

func newDropCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drop <digest>",
		Short: "Remove a published blueprint from the registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			defer logger.Sync()
			gw, err := app.New(app.Options{RegistryPath: registryPath()}, logger)
			if err != nil {
				return err
			}
			defer gw.Close()
			return gw.Drop(args[0])
		},
	}
}
