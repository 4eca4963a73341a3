// Package osv provides a client for the OSV vulnerability database
// query API.
package osv

import (
	"context"
	"time"

	"github.com/pyelevate/pyelevate/pkg/cache"
	"github.com/pyelevate/pyelevate/pkg/registry"
)

// DefaultURL is the production OSV endpoint.
const DefaultURL = "https://api.osv.dev"

// Ecosystem is the OSV ecosystem identifier for Python packages.
const Ecosystem = "PyPI"

// Vulnerability is one advisory returned by an OSV query.
type Vulnerability struct {
	ID       string `json:"id"`
	Summary  string `json:"summary"`
	Severity string `json:"severity"`
}

// Client provides access to the OSV query API.
// Safe for concurrent use by multiple goroutines.
type Client struct {
	*registry.Client
	baseURL string
}

// NewClient creates an OSV client over the given cache backend.
func NewClient(backend cache.Cache, ttl time.Duration) *Client {
	return &Client{
		Client:  registry.NewClient(backend, "osv:", ttl, nil),
		baseURL: DefaultURL,
	}
}

// Query returns the known vulnerabilities affecting the given package
// version. An empty slice means no known advisories.
//
// Results are cached per package name, so repeated queries for the same
// package reuse the first version queried.
func (c *Client) Query(ctx context.Context, pkg, version string, refresh bool) ([]Vulnerability, error) {
	pkg = registry.NormalizePkgName(pkg)

	var result queryResponse
	err := c.Cached(ctx, pkg, refresh, &result, func() error {
		payload := queryRequest{Version: version}
		payload.Package.Name = pkg
		payload.Package.Ecosystem = Ecosystem
		return c.Post(ctx, c.baseURL+"/v1/query", payload, &result)
	})
	if err != nil {
		return nil, err
	}
	return result.Vulns, nil
}

type queryRequest struct {
	Package struct {
		Name      string `json:"name"`
		Ecosystem string `json:"ecosystem"`
	} `json:"package"`
	Version string `json:"version"`
}

type queryResponse struct {
	Vulns []Vulnerability `json:"vulns"`
}
