package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tailcall-go/tailcall/internal/app"
)

func newPublishCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "publish <config-file>",
		Short: "Compile and publish a config document to the registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			logger := newLogger()
			defer logger.Sync()
			gw, err := app.New(app.Options{RegistryPath: registryPath()}, logger)
			if err != nil {
				return err
			}
			defer gw.Close()

			if name == "" {
				name = args[0]
			}
			digest, err := gw.Publish(name, source, sourceKindFor(args[0]), nowUnix())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), digest)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "published name (defaults to the file path)")
	return cmd
}
