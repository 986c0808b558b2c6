package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tailcall-go/tailcall/internal/app"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every published blueprint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			defer logger.Sync()
			gw, err := app.New(app.Options{RegistryPath: registryPath()}, logger)
			if err != nil {
				return err
			}
			defer gw.Close()

			for _, e := range gw.List() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", e.Digest, e.Name, time.Unix(e.Published, 0).Format(time.RFC3339))
			}
			return nil
		},
	}
}
