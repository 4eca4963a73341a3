// Package pypi provides a client for the PyPI JSON API.
package pypi

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/pyelevate/pyelevate/pkg/cache"
	"github.com/pyelevate/pyelevate/pkg/registry"
)

// DefaultURL is the production PyPI endpoint.
const DefaultURL = "https://pypi.org"

var (
	depRE    = regexp.MustCompile(`^([a-zA-Z0-9_-]+)`)
	markerRE = regexp.MustCompile(`;\s*(.+)`)
	skipRE   = regexp.MustCompile(`extra|dev|test`)
)

// PackageInfo holds metadata for a Python package from PyPI.
//
// Names are normalized following PEP 503 (lowercase, underscores to
// hyphens). Dependencies list only runtime dependencies; extras, dev and
// test requirements are excluded. Safe for concurrent reads after
// construction.
type PackageInfo struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"` // latest release
	Summary      string   `json:"summary"`
	HomePage     string   `json:"home_page"`
	Author       string   `json:"author"`
	License      string   `json:"license"`
	Releases     []string `json:"releases"` // all published versions, API order
	Dependencies []string `json:"dependencies"`
}

// ReleaseInfo holds metadata for one specific release of a package,
// used for changelog derivation.
type ReleaseInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Summary string `json:"summary"`
}

// Client provides access to the PyPI package index.
// Safe for concurrent use by multiple goroutines.
type Client struct {
	*registry.Client
	baseURL string
}

// NewClient creates a PyPI client over the given cache backend.
func NewClient(backend cache.Cache, ttl time.Duration) *Client {
	return &Client{
		Client:  registry.NewClient(backend, "pypi:", ttl, nil),
		baseURL: DefaultURL,
	}
}

// FetchPackage retrieves metadata for a package's latest release.
//
// The name is normalized automatically. If refresh is true the cache is
// bypassed. Returns [registry.ErrNotFound] if the package doesn't exist
// and [registry.ErrNetwork] for transport failures.
func (c *Client) FetchPackage(ctx context.Context, pkg string, refresh bool) (*PackageInfo, error) {
	pkg = registry.NormalizePkgName(pkg)

	var info PackageInfo
	err := c.Cached(ctx, pkg, refresh, &info, func() error {
		return c.fetch(ctx, pkg, &info)
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// FetchRelease retrieves metadata for one specific version of a package.
func (c *Client) FetchRelease(ctx context.Context, pkg, version string, refresh bool) (*ReleaseInfo, error) {
	pkg = registry.NormalizePkgName(pkg)
	key := pkg + "==" + version

	var info ReleaseInfo
	err := c.Cached(ctx, key, refresh, &info, func() error {
		var data apiResponse
		url := fmt.Sprintf("%s/pypi/%s/%s/json", c.baseURL, pkg, version)
		if err := c.Get(ctx, url, &data); err != nil {
			return err
		}
		info = ReleaseInfo{
			Name:    registry.NormalizePkgName(data.Info.Name),
			Version: data.Info.Version,
			Summary: data.Info.Summary,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) fetch(ctx context.Context, pkg string, info *PackageInfo) error {
	var data apiResponse
	if err := c.Get(ctx, fmt.Sprintf("%s/pypi/%s/json", c.baseURL, pkg), &data); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return fmt.Errorf("%w: pypi package %s", err, pkg)
		}
		return err
	}

	releases := make([]string, 0, len(data.Releases))
	for v := range data.Releases {
		releases = append(releases, v)
	}

	*info = PackageInfo{
		Name:         registry.NormalizePkgName(data.Info.Name),
		Version:      data.Info.Version,
		Summary:      data.Info.Summary,
		HomePage:     data.Info.HomePage,
		Author:       data.Info.Author,
		License:      data.Info.License,
		Releases:     releases,
		Dependencies: extractDeps(data.Info.RequiresDist),
	}
	return nil
}

// extractDeps pulls runtime dependency names out of requires_dist,
// skipping entries guarded by extra/dev/test environment markers.
func extractDeps(requires []string) []string {
	seen := make(map[string]bool)
	var deps []string
	for _, req := range requires {
		if m := markerRE.FindStringSubmatch(req); len(m) > 1 && skipRE.MatchString(m[1]) {
			continue
		}
		if m := depRE.FindStringSubmatch(req); len(m) > 1 {
			dep := registry.NormalizePkgName(m[1])
			if !seen[dep] {
				seen[dep] = true
				deps = append(deps, dep)
			}
		}
	}
	return deps
}

type apiResponse struct {
	Info     apiInfo          `json:"info"`
	Releases map[string][]any `json:"releases"`
}

type apiInfo struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Summary      string   `json:"summary"`
	License      string   `json:"license"`
	RequiresDist []string `json:"requires_dist"`
	HomePage     string   `json:"home_page"`
	Author       string   `json:"author"`
}
