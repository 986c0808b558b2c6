package config

import "strings"

// Compress normalizes cfg in place: it fills in defaults every later pass
// (validate, compile) can then assume are always present, rather than
// re-checking zero values scattered through the compiler (spec.md §6's
// "the compiler operates over a fully normalized config" note).
func Compress(cfg *Config) {
	if cfg.Server.QueryMaxDepth == 0 {
		cfg.Server.QueryMaxDepth = 20
	}
	if cfg.Upstream.PoolSize == 0 {
		cfg.Upstream.PoolSize = 1
	}
	if cfg.Upstream.ConnectTimeout == 0 {
		cfg.Upstream.ConnectTimeout = 5000
	}

	for _, t := range cfg.Types {
		for _, f := range t.Fields {
			compressField(cfg, f)
		}
	}
}

func compressField(cfg *Config, f *FieldDef) {
	if f.Http != nil {
		if f.Http.Method == "" {
			f.Http.Method = "GET"
		}
		f.Http.Method = strings.ToUpper(f.Http.Method)
		if f.Http.BaseURL == "" {
			f.Http.BaseURL = cfg.Upstream.BaseURL
		}
		if len(f.Http.Headers) == 0 {
			f.Http.Headers = map[string]string{}
		}
	}
	if f.GraphQL != nil && f.GraphQL.BaseURL == "" {
		f.GraphQL.BaseURL = cfg.Upstream.BaseURL
	}
}
