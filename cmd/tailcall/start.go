package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tailcall-go/tailcall/internal/app"
)

func newStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Run the gateway's HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			defer logger.Sync()

			gw, err := app.New(app.Options{
				RegistryPath:    registryPath(),
				JWTSecret:       []byte(viper.GetString("jwt-secret")),
				CacheSweepEvery: viper.GetString("cache-sweep"),
			}, logger)
			if err != nil {
				return err
			}
			defer gw.Close()

			return gw.Run(viper.GetString("addr"))
		},
	}
	cmd.Flags().String("addr", ":8080", "address to serve on")
	cmd.Flags().String("jwt-secret", "", "HMAC secret verifying @protected field bearer tokens; empty disables auth")
	cmd.Flags().String("cache-sweep", "@every 30s", "cron schedule for the HTTP cache's expired-entry sweep")
	viper.BindPFlag("addr", cmd.Flags().Lookup("addr"))
	viper.BindPFlag("jwt-secret", cmd.Flags().Lookup("jwt-secret"))
	viper.BindPFlag("cache-sweep", cmd.Flags().Lookup("cache-sweep"))
	return cmd
}
