package config

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tailcall-go/tailcall/internal/blueprint"
	"github.com/tailcall-go/tailcall/internal/expression"
)

func sampleConfig() *Config {
	return &Config{
		Upstream: Upstream{BaseURL: "https://api.example.com"},
		Query:    "Query",
		Types: map[string]*TypeDef{
			"Query": {
				Fields: map[string]*FieldDef{
					"user": {
						Type: "User",
						Args: map[string]ArgDef{"id": {Type: "Int!"}},
						Http: &HTTPDef{Path: "/users/{{args.id}}"},
					},
				},
			},
			"User": {
				Fields: map[string]*FieldDef{
					"id":   {Type: "Int!"},
					"name": {Type: "String"},
				},
			},
		},
	}
}

func TestDecodeJSONRoundTrips(t *testing.T) {
	raw := []byte(`{"query":"Query","upstream":{"baseURL":"http://h"},"types":{"Query":{"fields":{"x":{"type":"String"}}}}}`)
	cfg, err := DecodeJSON(raw)
	require.NoError(t, err)
	require.Equal(t, "Query", cfg.Query)
	require.Equal(t, "http://h", cfg.Upstream.BaseURL)
}

func TestCompressFillsDefaults(t *testing.T) {
	cfg := sampleConfig()
	Compress(cfg)
	require.Equal(t, 20, cfg.Server.QueryMaxDepth)
	require.Equal(t, "GET", cfg.Types["Query"].Fields["user"].Http.Method)
	require.Equal(t, "https://api.example.com", cfg.Types["Query"].Fields["user"].Http.BaseURL)
}

func TestValidateRejectsGroupByQueryCollision(t *testing.T) {
	cfg := sampleConfig()
	cfg.Types["Query"].Fields["user"].Http.GroupBy = []string{"id"}
	cfg.Types["Query"].Fields["user"].Http.Query = map[string]string{"id": "{{args.id}}"}
	Compress(cfg)

	errs := Validate(cfg)
	require.NotEmpty(t, errs)
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	cfg := sampleConfig()
	Compress(cfg)
	errs := Validate(cfg)
	require.Empty(t, errs)
}

func TestCompileProducesEndpointCallResolver(t *testing.T) {
	cfg := sampleConfig()
	Compress(cfg)
	require.Empty(t, Validate(cfg))

	bp, err := Compile(cfg)
	require.NoError(t, err)

	userField := findField(t, bp, "Query", "user")
	require.Equal(t, expression.TagUnsafe, userField.Resolver.Tag)
	require.Equal(t, expression.UnsafeEndpointCall, userField.Resolver.UnsafeOp)
	require.Equal(t, "api.example.com", userField.Resolver.UnsafeEndpoint.Host)
}

func TestCompileResolvesCallIndirection(t *testing.T) {
	cfg := sampleConfig()
	cfg.Types["Query"].Fields["currentUser"] = &FieldDef{
		Type: "User",
		Call: &CallDef{Type: "Query", Field: "user"},
	}
	Compress(cfg)
	require.Empty(t, Validate(cfg))

	bp, err := Compile(cfg)
	require.NoError(t, err)

	called := findField(t, bp, "Query", "currentUser")
	require.Equal(t, expression.TagUnsafe, called.Resolver.Tag)
}

func findField(t *testing.T, bp *blueprint.Blueprint, typeName, fieldName string) *blueprint.Field {
	t.Helper()
	typ, ok := bp.Types[typeName]
	require.True(t, ok, "type %s not found", typeName)
	for i := range typ.Fields {
		if typ.Fields[i].Name == fieldName {
			return &typ.Fields[i]
		}
	}
	t.Fatalf("field %s.%s not found", typeName, fieldName)
	return nil
}
