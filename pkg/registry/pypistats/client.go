// Package pypistats provides a client for the pypistats.org download
// statistics API.
package pypistats

import (
	"context"
	"fmt"
	"time"

	"github.com/pyelevate/pyelevate/pkg/cache"
	"github.com/pyelevate/pyelevate/pkg/registry"
)

// DefaultURL is the production pypistats endpoint.
const DefaultURL = "https://pypistats.org/api"

// maxTrendPoints bounds the download trend to the most recent week.
const maxTrendPoints = 7

// DownloadPoint is one day of download counts.
type DownloadPoint struct {
	Date      string `json:"date"`
	Downloads uint64 `json:"downloads"`
}

// RecentDownloads holds the most recent daily download counts for a
// package, newest first, at most seven points.
type RecentDownloads struct {
	Trend []DownloadPoint `json:"trend"`
}

// Weekly sums the trend into a weekly download count.
func (r *RecentDownloads) Weekly() uint64 {
	var total uint64
	for _, p := range r.Trend {
		total += p.Downloads
	}
	return total
}

// Client provides access to the pypistats API.
// Safe for concurrent use by multiple goroutines.
type Client struct {
	*registry.Client
	baseURL string
}

// NewClient creates a pypistats client over the given cache backend.
func NewClient(backend cache.Cache, ttl time.Duration) *Client {
	return &Client{
		Client:  registry.NewClient(backend, "pypistats:", ttl, nil),
		baseURL: DefaultURL,
	}
}

// FetchRecent retrieves the recent daily download series for a package.
// Only the newest seven data points are kept.
func (c *Client) FetchRecent(ctx context.Context, pkg string, refresh bool) (*RecentDownloads, error) {
	pkg = registry.NormalizePkgName(pkg)

	var recent RecentDownloads
	err := c.Cached(ctx, pkg, refresh, &recent, func() error {
		var data apiResponse
		if err := c.Get(ctx, fmt.Sprintf("%s/packages/%s/recent", c.baseURL, pkg), &data); err != nil {
			return err
		}
		points := data.Data
		if len(points) > maxTrendPoints {
			points = points[:maxTrendPoints]
		}
		recent = RecentDownloads{Trend: points}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &recent, nil
}

type apiResponse struct {
	Data []DownloadPoint `json:"data"`
}
