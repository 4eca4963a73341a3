package enrich

import (
	"context"
	"sync"

	"github.com/pyelevate/pyelevate/pkg/manifest"
	"github.com/pyelevate/pyelevate/pkg/registry/pypistats"
)

// DownloadsFetcher retrieves recent download counts for a package.
// The standard implementation is [pypistats.Client].
type DownloadsFetcher interface {
	FetchRecent(ctx context.Context, name string, refresh bool) (*pypistats.RecentDownloads, error)
}

// PopularityChecker attaches download statistics to dependency
// records. Results, including failed lookups, are cached per package
// name for the checker's lifetime. Safe for concurrent use.
type PopularityChecker struct {
	fetcher DownloadsFetcher

	mu    sync.RWMutex
	cache map[string]*manifest.PopularityData
}

// NewPopularityChecker creates a checker over the given stats source.
func NewPopularityChecker(fetcher DownloadsFetcher) *PopularityChecker {
	return &PopularityChecker{
		fetcher: fetcher,
		cache:   make(map[string]*manifest.PopularityData),
	}
}

// CheckAll fetches download data for every index-sourced record
// concurrently and attaches it. The monthly figure is estimated from
// the weekly sum. Failed lookups leave Popularity nil and are not
// retried.
func (c *PopularityChecker) CheckAll(ctx context.Context, packages []*manifest.Package) {
	var wg sync.WaitGroup
	for _, pkg := range packages {
		if pkg.Source.Kind != manifest.SourceIndex || c.cached(pkg.Name) {
			continue
		}
		c.store(pkg.Name, nil)

		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			recent, err := c.fetcher.FetchRecent(ctx, name, false)
			if err != nil {
				return
			}
			c.store(name, toPopularity(recent))
		}(pkg.Name)
	}
	wg.Wait()

	for _, pkg := range packages {
		if pkg.Source.Kind != manifest.SourceIndex {
			continue
		}
		if data := c.Popularity(pkg.Name); data != nil {
			pkg.Popularity = data
		}
	}
}

// Popularity returns the cached download data for a package, or nil.
func (c *PopularityChecker) Popularity(name string) *manifest.PopularityData {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cache[name]
}

func toPopularity(recent *pypistats.RecentDownloads) *manifest.PopularityData {
	trend := make([]manifest.TrendPoint, 0, len(recent.Trend))
	for _, point := range recent.Trend {
		trend = append(trend, manifest.TrendPoint{Date: point.Date, Downloads: point.Downloads})
	}
	weekly := recent.Weekly()
	return &manifest.PopularityData{
		DownloadsLastMonth: weekly * 4,
		Trend:              trend,
		WeeklyDownloads:    weekly,
	}
}

func (c *PopularityChecker) store(name string, data *manifest.PopularityData) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[name] = data
}

func (c *PopularityChecker) cached(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.cache[name]
	return ok
}
