// Package app wires every component into a runnable gateway process,
// adapted from the teacher's pkg/platform/platform.go: the same
// construct-then-Run two-step, the same explicit *zap.Logger threading
// into every subsystem constructor, generalized from LumaDB's cluster
// node/auth/federation trio to tailcall's config/blueprint/registry/fetcher
// trio.
package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/tailcall-go/tailcall/internal/auth"
	"github.com/tailcall-go/tailcall/internal/config"
	"github.com/tailcall-go/tailcall/internal/gqlerr"
	"github.com/tailcall-go/tailcall/internal/gqlfacade"
	"github.com/tailcall-go/tailcall/internal/httpcache"
	"github.com/tailcall-go/tailcall/internal/registry"
	"github.com/tailcall-go/tailcall/internal/transport"
)

// Options configures a Gateway before it's built.
type Options struct {
	RegistryPath    string
	JWTSecret       []byte
	CacheSweepEvery string // cron schedule, e.g. "@every 30s"; "" disables the sweep
}

// Gateway owns every long-lived subsystem the running process needs:
// the blueprint registry, the upstream fetcher (and the cache it shares
// with every request), the auth verifier, and the HTTP façade.
type Gateway struct {
	logger   *zap.Logger
	registry *registry.Registry
	cache    *httpcache.Cache
	fetcher  *transport.Fetcher
	verifier *auth.Verifier
	server   *gqlfacade.Server
}

// New constructs a Gateway. Call Close when the process is shutting down to
// flush the registry's backing store and stop the cache janitor.
func New(opts Options, logger *zap.Logger) (*Gateway, error) {
	logger.Info("starting tailcall gateway")

	reg, err := registry.Open(opts.RegistryPath)
	if err != nil {
		return nil, fmt.Errorf("app: open registry: %w", err)
	}

	cache := httpcache.New(logger, opts.CacheSweepEvery)
	fetcher := transport.New(cache, logger)

	var verifier *auth.Verifier
	if len(opts.JWTSecret) > 0 {
		verifier = auth.NewVerifier(opts.JWTSecret, logger)
	}

	server := gqlfacade.NewServer(reg, fetcher, verifier, logger)

	return &Gateway{
		logger:   logger,
		registry: reg,
		cache:    cache,
		fetcher:  fetcher,
		verifier: verifier,
		server:   server,
	}, nil
}

// Close releases every subsystem's resources.
func (g *Gateway) Close() error {
	g.cache.Stop()
	return g.registry.Close()
}

// Run blocks, serving HTTP on addr.
func (g *Gateway) Run(addr string) error {
	return g.server.Run(addr)
}

// Publish compiles a config document and stores it in the registry,
// returning the digest it was published under — the shared path behind
// both the CLI's `publish` subcommand and a future admin-API equivalent.
func (g *Gateway) Publish(name string, source []byte, sourceKind string, publishedUnix int64) (string, error) {
	cfg, err := decode(source, sourceKind)
	if err != nil {
		return "", err
	}
	config.Compress(cfg)
	if errs := config.Validate(cfg); len(errs) > 0 {
		return "", gqlerr.New(gqlerr.KindConfig, "%s", config.FormatErrors(errs))
	}
	bp, err := config.Compile(cfg)
	if err != nil {
		return "", err
	}
	return g.registry.Publish(name, bp, source, sourceKind, publishedUnix)
}

// Check decodes, normalizes, and validates a config document without
// publishing it, returning every ConfigError/ValidationError found.
func Check(source []byte, sourceKind string) ([]*gqlerr.Error, error) {
	cfg, err := decode(source, sourceKind)
	if err != nil {
		return nil, err
	}
	config.Compress(cfg)
	return config.Validate(cfg), nil
}

func decode(source []byte, sourceKind string) (*config.Config, error) {
	switch sourceKind {
	case "yaml":
		return config.DecodeYAML(source)
	default:
		return config.DecodeJSON(source)
	}
}

// Drop removes a published blueprint by digest.
func (g *Gateway) Drop(digest string) error {
	return g.registry.Drop(digest)
}

// List returns every published blueprint's summary.
func (g *Gateway) List() []registry.Entry {
	return g.registry.List()
}

// Show returns the raw config source a digest was published from.
func (g *Gateway) Show(digest string) ([]byte, string, error) {
	return g.registry.Source(digest)
}
