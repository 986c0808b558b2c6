package config

import (
	"fmt"

	"github.com/tailcall-go/tailcall/internal/gqlerr"
)

// Validate rejects a Config that cannot possibly compile, returning every
// problem found rather than stopping at the first (spec.md §6's "the
// author should see every config mistake in one pass" note).
func Validate(cfg *Config) []*gqlerr.Error {
	var errs []*gqlerr.Error

	if cfg.Query == "" {
		errs = append(errs, gqlerr.New(gqlerr.KindConfig, "a query root type name is required"))
	} else if _, ok := cfg.Types[cfg.Query]; !ok {
		errs = append(errs, gqlerr.New(gqlerr.KindConfig, "query root %q has no type definition", cfg.Query))
	}
	if cfg.Mutation != "" {
		if _, ok := cfg.Types[cfg.Mutation]; !ok {
			errs = append(errs, gqlerr.New(gqlerr.KindConfig, "mutation root %q has no type definition", cfg.Mutation))
		}
	}

	for typeName, t := range cfg.Types {
		for fieldName, f := range t.Fields {
			errs = append(errs, validateField(typeName, fieldName, f)...)
		}
		for fieldName := range t.Modify {
			if _, ok := t.Fields[fieldName]; !ok {
				errs = append(errs, gqlerr.New(gqlerr.KindConfig, "%s: @modify references unknown field %q", typeName, fieldName))
			}
		}
		for _, in := range t.Inline {
			if _, ok := t.Fields[in.Field]; !ok {
				errs = append(errs, gqlerr.New(gqlerr.KindConfig, "%s: @inline references unknown field %q", typeName, in.Field))
			} else if len(in.Path) == 0 {
				errs = append(errs, gqlerr.New(gqlerr.KindConfig, "%s.%s: @inline requires a non-empty path", typeName, in.Field))
			}
		}
		for _, af := range t.AddField {
			if af.Name == "" {
				errs = append(errs, gqlerr.New(gqlerr.KindConfig, "%s: @addField requires a name", typeName))
				continue
			}
			if _, collides := t.Fields[af.Name]; collides {
				errs = append(errs, gqlerr.New(gqlerr.KindConfig, "%s.%s: @addField name collides with an existing field", typeName, af.Name))
			}
			if len(af.Path) == 0 {
				errs = append(errs, gqlerr.New(gqlerr.KindConfig, "%s.%s: @addField requires a non-empty path", typeName, af.Name))
			}
		}
	}

	return errs
}

func validateField(typeName, fieldName string, f *FieldDef) []*gqlerr.Error {
	var errs []*gqlerr.Error

	resolverCount := 0
	for _, present := range []bool{f.Const != nil, f.Expr != "", f.Http != nil, f.GraphQL != nil, f.GRPC != nil, f.Call != nil} {
		if present {
			resolverCount++
		}
	}
	if resolverCount > 1 {
		errs = append(errs, gqlerr.New(gqlerr.KindConfig, "%s.%s: only one resolver directive is allowed per field", typeName, fieldName))
	}

	if f.Http != nil {
		if f.Http.GroupBy != nil {
			groupSet := make(map[string]struct{}, len(f.Http.GroupBy))
			for _, g := range f.Http.GroupBy {
				groupSet[g] = struct{}{}
			}
			// Resolves SPEC_FULL.md §11 Open Question (c): a groupBy key
			// that collides with a user-declared query parameter makes the
			// batch window's key space ambiguous — the compiler rejects it
			// rather than picking a silent precedence rule.
			for qKey := range f.Http.Query {
				if _, collides := groupSet[qKey]; collides {
					errs = append(errs, gqlerr.New(gqlerr.KindConfig,
						"%s.%s: groupBy key %q collides with a query parameter of the same name", typeName, fieldName, qKey))
				}
			}
		}
		if f.Http.BaseURL == "" {
			errs = append(errs, gqlerr.New(gqlerr.KindConfig, "%s.%s: @http has no baseURL and @upstream declares none", typeName, fieldName))
		}
	}

	if f.GraphQL != nil && f.GraphQL.Query == "" {
		errs = append(errs, gqlerr.New(gqlerr.KindConfig, "%s.%s: @graphQL requires a query", typeName, fieldName))
	}

	if f.GRPC != nil {
		if f.GRPC.Service == "" || f.GRPC.Method == "" {
			errs = append(errs, gqlerr.New(gqlerr.KindConfig, "%s.%s: @grpc requires service and method", typeName, fieldName))
		}
	}

	return errs
}

// FormatErrors renders a slice of ConfigErrors as a single multi-line
// message, used by the CLI's `check` subcommand.
func FormatErrors(errs []*gqlerr.Error) string {
	msg := ""
	for i, e := range errs {
		if i > 0 {
			msg += "\n"
		}
		msg += fmt.Sprintf("- %s", e.Error())
	}
	return msg
}
