// Package resolve looks up the latest known release for every
// index-sourced package in a record set and classifies the delta.
package resolve

import (
	"context"
	"sync"

	"github.com/pyelevate/pyelevate/pkg/errors"
	"github.com/pyelevate/pyelevate/pkg/manifest"
	"github.com/pyelevate/pyelevate/pkg/registry/pypi"
	"github.com/pyelevate/pyelevate/pkg/version"
)

// Fetcher retrieves package metadata from an index.
//
// The standard implementation is [pypi.Client]. Implementations must
// be safe for concurrent use; Resolve calls Fetch from multiple
// goroutines.
type Fetcher interface {
	FetchPackage(ctx context.Context, name string, refresh bool) (*pypi.PackageInfo, error)
}

type resolution struct {
	latest string
	deps   []string
}

// Resolver resolves latest versions against a package index. Results
// are memoized for the lifetime of the resolver, so a record set can
// be re-resolved without repeating lookups. Safe for concurrent use.
type Resolver struct {
	fetcher Fetcher

	mu    sync.RWMutex
	cache map[string]resolution
}

// NewResolver creates a resolver over the given index fetcher.
func NewResolver(fetcher Fetcher) *Resolver {
	return &Resolver{
		fetcher: fetcher,
		cache:   make(map[string]resolution),
	}
}

// Resolve fetches the latest version for every index-sourced record
// concurrently, then applies the results in a single pass: latest
// version, status classification and declared dependencies on success,
// a record-level error and Error status on failure. Git, local and URL
// records are left untouched. A lookup failure never aborts the batch.
func (r *Resolver) Resolve(ctx context.Context, packages []*manifest.Package) {
	results := make(map[string]error)

	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, pkg := range packages {
		if pkg.Source.Kind != manifest.SourceIndex {
			continue
		}
		name := pkg.Name

		mu.Lock()
		_, pending := results[name]
		mu.Unlock()
		if pending || r.cached(name) {
			continue
		}
		mu.Lock()
		results[name] = nil
		mu.Unlock()

		wg.Add(1)
		go func() {
			defer wg.Done()
			err := r.fetch(ctx, name)
			mu.Lock()
			results[name] = err
			mu.Unlock()
		}()
	}
	wg.Wait()

	for _, pkg := range packages {
		if pkg.Source.Kind != manifest.SourceIndex {
			continue
		}
		if err, failed := results[pkg.Name]; failed && err != nil {
			pkg.Err = errors.UserMessage(err)
			pkg.Status = version.StatusError
			continue
		}
		res, ok := r.lookup(pkg.Name)
		if !ok {
			continue
		}
		pkg.LatestVersion = res.latest
		pkg.Status = version.Compare(pkg.CurrentVersion, res.latest)
		pkg.Err = ""
		pkg.Dependencies = res.deps
	}
}

// LatestVersion resolves a single package, reusing the memoized result
// when present.
func (r *Resolver) LatestVersion(ctx context.Context, name string) (string, error) {
	if res, ok := r.lookup(name); ok {
		return res.latest, nil
	}
	if err := r.fetch(ctx, name); err != nil {
		return "", err
	}
	res, _ := r.lookup(name)
	return res.latest, nil
}

// ClearCache drops all memoized resolutions, forcing the next Resolve
// to hit the index again.
func (r *Resolver) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]resolution)
}

func (r *Resolver) fetch(ctx context.Context, name string) error {
	info, err := r.fetcher.FetchPackage(ctx, name, false)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[name] = resolution{latest: info.Version, deps: info.Dependencies}
	return nil
}

func (r *Resolver) cached(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.cache[name]
	return ok
}

func (r *Resolver) lookup(name string) (resolution, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.cache[name]
	return res, ok
}
