package enrich

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pyelevate/pyelevate/pkg/manifest"
	"github.com/pyelevate/pyelevate/pkg/registry/pypi"
)

// Keyword sets for changelog classification. Matching is
// case-insensitive substring search, a heuristic rather than a
// changelog parser.
var (
	breakingKeywords = []string{
		"breaking change",
		"breaking changes",
		"removed",
		"incompatible",
		"deprecated in favor of",
	}
	deprecatedKeywords = []string{
		"deprecated",
		"will be removed",
	}
	securityKeywords = []string{
		"security",
		"cve",
		"vulnerability",
		"fix vulnerability",
		"patch vulnerability",
	}
)

// ReleaseFetcher retrieves metadata for a specific package release.
// The standard implementation is [pypi.Client].
type ReleaseFetcher interface {
	FetchRelease(ctx context.Context, name, version string, refresh bool) (*pypi.ReleaseInfo, error)
}

// ChangelogFetcher derives changelog summaries for resolved releases.
// Results, including failed lookups, are cached per (name, version)
// for the fetcher's lifetime. Safe for concurrent use.
type ChangelogFetcher struct {
	fetcher ReleaseFetcher

	mu    sync.RWMutex
	cache map[string]*manifest.Changelog
}

// NewChangelogFetcher creates a fetcher over the given release source.
func NewChangelogFetcher(fetcher ReleaseFetcher) *ChangelogFetcher {
	return &ChangelogFetcher{
		fetcher: fetcher,
		cache:   make(map[string]*manifest.Changelog),
	}
}

// CheckAll fetches a changelog summary for every index-sourced record
// with a resolved latest version, concurrently, and attaches it.
// Failed lookups leave Changelog nil.
func (c *ChangelogFetcher) CheckAll(ctx context.Context, packages []*manifest.Package) {
	var wg sync.WaitGroup
	for _, pkg := range packages {
		if pkg.Source.Kind != manifest.SourceIndex || pkg.LatestVersion == "" {
			continue
		}
		if c.cached(pkg.Name, pkg.LatestVersion) {
			continue
		}
		c.store(pkg.Name, pkg.LatestVersion, nil)

		wg.Add(1)
		go func(name, version string) {
			defer wg.Done()
			changelog, err := c.fetch(ctx, name, version)
			if err != nil {
				return
			}
			c.store(name, version, changelog)
		}(pkg.Name, pkg.LatestVersion)
	}
	wg.Wait()

	for _, pkg := range packages {
		if pkg.Source.Kind != manifest.SourceIndex || pkg.LatestVersion == "" {
			continue
		}
		if changelog := c.Changelog(pkg.Name, pkg.LatestVersion); changelog != nil {
			pkg.Changelog = changelog
		}
	}
}

// Fetch returns the changelog summary for one release, using the
// cache when possible.
func (c *ChangelogFetcher) Fetch(ctx context.Context, name, version string) (*manifest.Changelog, error) {
	if changelog := c.Changelog(name, version); changelog != nil {
		return changelog, nil
	}
	changelog, err := c.fetch(ctx, name, version)
	if err != nil {
		return nil, err
	}
	c.store(name, version, changelog)
	return changelog, nil
}

// Changelog returns the cached summary for a release, or nil.
func (c *ChangelogFetcher) Changelog(name, version string) *manifest.Changelog {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cache[name+"-"+version]
}

func (c *ChangelogFetcher) fetch(ctx context.Context, name, version string) (*manifest.Changelog, error) {
	release, err := c.fetcher.FetchRelease(ctx, name, version, false)
	if err != nil {
		return nil, err
	}

	summary := release.Summary
	if summary == "" {
		summary = "No description available"
	}

	return &manifest.Changelog{
		Version:         version,
		ReleaseDate:     time.Now().UTC().Format("2006-01-02"),
		Changes:         []string{summary},
		BreakingChanges: detect(summary, breakingKeywords, "Detected: "),
		Deprecated:      detect(summary, deprecatedKeywords, "Deprecated: "),
		SecurityFixes:   detect(summary, securityKeywords, "Security fix: "),
	}, nil
}

func detect(text string, keywords []string, prefix string) []string {
	lower := strings.ToLower(text)
	var hits []string
	for _, keyword := range keywords {
		if strings.Contains(lower, keyword) {
			hits = append(hits, prefix+keyword)
		}
	}
	return hits
}

func (c *ChangelogFetcher) store(name, version string, changelog *manifest.Changelog) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[name+"-"+version] = changelog
}

func (c *ChangelogFetcher) cached(name, version string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.cache[name+"-"+version]
	return ok
}
