// Package enrich adds best-effort metadata to dependency records:
// security advisories, download popularity and changelog summaries.
// Every checker degrades to Unknown/absent on failure; enrichment
// never fails a record or a batch.
package enrich

import (
	"context"
	"sync"

	"github.com/pyelevate/pyelevate/pkg/manifest"
	"github.com/pyelevate/pyelevate/pkg/registry/osv"
	"github.com/pyelevate/pyelevate/pkg/version"
)

// Severity grades an advisory.
type Severity int

const (
	SeverityCritical Severity = iota
	SeverityHigh
	SeverityMedium
	SeverityLow
)

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "CRITICAL"
	case SeverityHigh:
		return "HIGH"
	case SeverityMedium:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// Advisory is one known vulnerability affecting a package version.
type Advisory struct {
	ID               string
	Title            string
	Severity         Severity
	AffectedVersions []string
	FixedVersion     string
	URL              string
}

// AdvisoryQuerier looks up vulnerabilities for a package version.
// The standard implementation is [osv.Client].
type AdvisoryQuerier interface {
	Query(ctx context.Context, pkg, version string, refresh bool) ([]osv.Vulnerability, error)
}

// SecurityChecker resolves advisory status for dependency records.
// Lookups are cached per package name for the checker's lifetime.
// Safe for concurrent use.
type SecurityChecker struct {
	querier AdvisoryQuerier

	mu    sync.RWMutex
	cache map[string][]Advisory
}

// NewSecurityChecker creates a checker over the given advisory source.
func NewSecurityChecker(querier AdvisoryQuerier) *SecurityChecker {
	return &SecurityChecker{
		querier: querier,
		cache:   make(map[string][]Advisory),
	}
}

// CheckAll queries advisories for every index-sourced record
// concurrently and applies the outcome: Safe or Vulnerable with the
// advisory count. A record with advisories also has its status set to
// Vulnerable so that sorting, stats and the simulator surface it.
// Lookup failures leave the record's security status Unknown.
func (c *SecurityChecker) CheckAll(ctx context.Context, packages []*manifest.Package) {
	var wg sync.WaitGroup
	for _, pkg := range packages {
		if pkg.Source.Kind != manifest.SourceIndex || c.cached(pkg.Name) {
			continue
		}
		c.markPending(pkg.Name)

		wg.Add(1)
		go func(name, current string) {
			defer wg.Done()
			vulns, err := c.querier.Query(ctx, name, current, false)
			if err != nil {
				c.clearPending(name)
				return
			}
			c.store(name, toAdvisories(vulns))
		}(pkg.Name, pkg.CurrentVersion)
	}
	wg.Wait()

	for _, pkg := range packages {
		if pkg.Source.Kind != manifest.SourceIndex {
			continue
		}
		advisories, ok := c.lookup(pkg.Name)
		if !ok {
			continue
		}
		if len(advisories) == 0 {
			pkg.Security = manifest.SecurityStatus{State: manifest.SecuritySafe}
			continue
		}
		pkg.Security = manifest.SecurityStatus{
			State:         manifest.SecurityVulnerable,
			AdvisoryCount: len(advisories),
		}
		pkg.Status = version.StatusVulnerable
	}
}

// Advisories returns the cached advisories for a package, if any
// lookup has completed.
func (c *SecurityChecker) Advisories(name string) []Advisory {
	advisories, _ := c.lookup(name)
	return advisories
}

func toAdvisories(vulns []osv.Vulnerability) []Advisory {
	advisories := make([]Advisory, 0, len(vulns))
	for _, v := range vulns {
		advisories = append(advisories, Advisory{
			ID:       v.ID,
			Title:    v.Summary,
			Severity: parseSeverity(v.Severity),
			URL:      "https://osv.dev/" + v.ID,
		})
	}
	return advisories
}

func parseSeverity(s string) Severity {
	switch s {
	case "CRITICAL":
		return SeverityCritical
	case "HIGH":
		return SeverityHigh
	case "MEDIUM":
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// markPending reserves a name so concurrent CheckAll passes do not
// duplicate in-flight lookups; clearPending releases it on failure so
// a later pass can retry.
func (c *SecurityChecker) markPending(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.cache[name]; !ok {
		c.cache[name] = nil
	}
}

func (c *SecurityChecker) clearPending(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if advisories, ok := c.cache[name]; ok && advisories == nil {
		delete(c.cache, name)
	}
}

func (c *SecurityChecker) store(name string, advisories []Advisory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if advisories == nil {
		advisories = []Advisory{}
	}
	c.cache[name] = advisories
}

func (c *SecurityChecker) cached(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.cache[name]
	return ok
}

func (c *SecurityChecker) lookup(name string) ([]Advisory, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	advisories, ok := c.cache[name]
	if !ok || advisories == nil {
		return nil, false
	}
	return advisories, true
}
