package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tailcall-go/tailcall/internal/config"
	"github.com/tailcall-go/tailcall/internal/stepgen"
)

func newGenerateCmd() *cobra.Command {
	var typeName string
	cmd := &cobra.Command{
		Use:   "generate <config-file>",
		Short: "Print the compiled execution plan for a type (defaults to the query root)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			var cfg *config.Config
			if sourceKindFor(args[0]) == "yaml" {
				cfg, err = config.DecodeYAML(source)
			} else {
				cfg, err = config.DecodeJSON(source)
			}
			if err != nil {
				return err
			}
			config.Compress(cfg)
			if errs := config.Validate(cfg); len(errs) > 0 {
				return fmt.Errorf("%s", config.FormatErrors(errs))
			}

			bp, err := config.Compile(cfg)
			if err != nil {
				return err
			}

			if typeName == "" {
				typeName = bp.Query
			}

			gen := stepgen.NewGenerator(bp, modificationTable(cfg), inlineTable(cfg))
			step := gen.Generate(typeName)

			out, err := json.MarshalIndent(stepgen.Describe(step), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&typeName, "type", "", "type to generate a plan for (defaults to the query root)")
	return cmd
}

func modificationTable(cfg *config.Config) map[string][]stepgen.Modification {
	out := map[string][]stepgen.Modification{}
	for typeName, t := range cfg.Types {
		for field, m := range t.Modify {
			out[typeName] = append(out[typeName], stepgen.Modification{Field: field, Rename: m.Name, Omit: m.Omit})
		}
	}
	return out
}

func inlineTable(cfg *config.Config) map[string][]stepgen.Inline {
	out := map[string][]stepgen.Inline{}
	for typeName, t := range cfg.Types {
		for _, in := range t.Inline {
			out[typeName] = append(out[typeName], stepgen.Inline{Field: in.Field})
		}
	}
	return out
}
