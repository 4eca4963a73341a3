package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/pyelevate/pyelevate/pkg/enrich"
	"github.com/pyelevate/pyelevate/pkg/manifest"
	"github.com/pyelevate/pyelevate/pkg/registry/osv"
	"github.com/pyelevate/pyelevate/pkg/registry/pypi"
	"github.com/pyelevate/pyelevate/pkg/registry/pypistats"
	"github.com/pyelevate/pyelevate/pkg/resolve"
)

// Engine bundles the resolver and enrichment checkers behind a shared
// cache backend. One engine serves a single command invocation.
type Engine struct {
	Resolver   *resolve.Resolver
	Security   *enrich.SecurityChecker
	Popularity *enrich.PopularityChecker
	Changelogs *enrich.ChangelogFetcher
}

func (c *CLI) newEngine(ctx context.Context, noCache bool) *Engine {
	backend := c.newBackend(ctx, noCache)
	ttl := time.Duration(c.Config.CacheTTLHours) * time.Hour

	index := pypi.NewClient(backend, ttl)
	return &Engine{
		Resolver:   resolve.NewResolver(index),
		Security:   enrich.NewSecurityChecker(osv.NewClient(backend, ttl)),
		Popularity: enrich.NewPopularityChecker(pypistats.NewClient(backend, ttl)),
		Changelogs: enrich.NewChangelogFetcher(index),
	}
}

// Analyze runs the full pipeline over the parsed manifest: version
// resolution first, then vulnerability, popularity and changelog
// enrichment. Individual package failures are recorded on the package
// records and never abort the run.
func (e *Engine) Analyze(ctx context.Context, packages []*manifest.Package, logger *log.Logger) {
	logger.Info("analyzing manifest", "packages", len(packages))

	p := newProgress(logger)
	e.Resolver.Resolve(ctx, packages)
	p.done("resolved latest versions")

	p = newProgress(logger)
	e.Security.CheckAll(ctx, packages)
	p.done("checked vulnerability advisories")

	p = newProgress(logger)
	e.Popularity.CheckAll(ctx, packages)
	p.done("fetched download statistics")

	p = newProgress(logger)
	e.Changelogs.CheckAll(ctx, packages)
	p.done("collected release notes")
}
