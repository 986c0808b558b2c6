package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tailcall",
		Short: "A configuration-driven GraphQL orchestration gateway",
	}

	root.PersistentFlags().String("registry", "tailcall.db", "path to the blueprint registry file")
	root.PersistentFlags().Bool("verbose", false, "enable debug-level logging")
	viper.BindPFlag("registry", root.PersistentFlags().Lookup("registry"))
	viper.BindPFlag("verbose", root.PersistentFlags().Lookup("verbose"))

	viper.SetEnvPrefix("tailcall")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	root.AddCommand(
		newCheckCmd(),
		newPublishCmd(),
		newDropCmd(),
		newListCmd(),
		newShowCmd(),
		newGenerateCmd(),
		newStartCmd(),
	)
	return root
}

func newLogger() *zap.Logger {
	if viper.GetBool("verbose") {
		logger, _ := zap.NewDevelopment()
		return logger
	}
	logger, _ := zap.NewProduction()
	return logger
}

func registryPath() string {
	return viper.GetString("registry")
}
