package enrich

import (
	"context"
	"sync"
	"testing"

	"github.com/pyelevate/pyelevate/pkg/errors"
	"github.com/pyelevate/pyelevate/pkg/manifest"
	"github.com/pyelevate/pyelevate/pkg/registry/osv"
	"github.com/pyelevate/pyelevate/pkg/registry/pypi"
	"github.com/pyelevate/pyelevate/pkg/registry/pypistats"
	"github.com/pyelevate/pyelevate/pkg/version"
)

func indexPackage(name, current string) *manifest.Package {
	return &manifest.Package{
		Name:           name,
		CurrentVersion: current,
		Source:         manifest.Source{Kind: manifest.SourceIndex},
	}
}

type fakeAdvisories struct {
	mu    sync.Mutex
	calls int
	vulns map[string][]osv.Vulnerability
	fail  map[string]bool
}

func (f *fakeAdvisories) Query(_ context.Context, pkg, _ string, _ bool) ([]osv.Vulnerability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail[pkg] {
		return nil, errors.New(errors.ErrCodeNetwork, "advisory lookup failed")
	}
	return f.vulns[pkg], nil
}

func TestSecurityCheckAll(t *testing.T) {
	querier := &fakeAdvisories{
		vulns: map[string][]osv.Vulnerability{
			"django": {
				{ID: "PYSEC-2023-1", Summary: "SQL injection", Severity: "CRITICAL"},
				{ID: "PYSEC-2023-2", Summary: "XSS", Severity: "MEDIUM"},
			},
		},
		fail: map[string]bool{"broken": true},
	}
	checker := NewSecurityChecker(querier)

	packages := []*manifest.Package{
		indexPackage("django", "3.2.0"),
		indexPackage("requests", "2.28.1"),
		indexPackage("broken", "1.0.0"),
		{Name: "tool", CurrentVersion: "git-source", Source: manifest.Source{Kind: manifest.SourceGit}},
	}
	checker.CheckAll(context.Background(), packages)

	django := packages[0]
	if !django.Security.IsVulnerable() || django.Security.AdvisoryCount != 2 {
		t.Errorf("django security = %+v", django.Security)
	}
	if django.Status != version.StatusVulnerable {
		t.Errorf("django status = %v, want Vulnerable", django.Status)
	}

	if packages[1].Security.State != manifest.SecuritySafe {
		t.Errorf("requests security = %+v, want Safe", packages[1].Security)
	}

	// Failures degrade to Unknown, never to an error.
	if packages[2].Security.State != manifest.SecurityUnknown {
		t.Errorf("broken security = %+v, want Unknown", packages[2].Security)
	}
	if packages[3].Security.State != manifest.SecurityUnknown {
		t.Errorf("git record security = %+v, want Unknown", packages[3].Security)
	}

	advisories := checker.Advisories("django")
	if len(advisories) != 2 {
		t.Fatalf("got %d advisories, want 2", len(advisories))
	}
	if advisories[0].Severity != SeverityCritical || advisories[1].Severity != SeverityMedium {
		t.Errorf("severities = %v/%v", advisories[0].Severity, advisories[1].Severity)
	}
	if advisories[0].URL != "https://osv.dev/PYSEC-2023-1" {
		t.Errorf("advisory URL = %q", advisories[0].URL)
	}
}

func TestSecurityCheckAllCachesPerName(t *testing.T) {
	querier := &fakeAdvisories{vulns: map[string][]osv.Vulnerability{}}
	checker := NewSecurityChecker(querier)

	packages := []*manifest.Package{indexPackage("requests", "2.28.1")}
	checker.CheckAll(context.Background(), packages)
	checker.CheckAll(context.Background(), packages)

	if querier.calls != 1 {
		t.Errorf("queries = %d, want 1", querier.calls)
	}
}

type fakeDownloads struct {
	mu    sync.Mutex
	calls int
	data  map[string][]pypistats.DownloadPoint
}

func (f *fakeDownloads) FetchRecent(_ context.Context, name string, _ bool) (*pypistats.RecentDownloads, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	points, ok := f.data[name]
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "no stats for %s", name)
	}
	return &pypistats.RecentDownloads{Trend: points}, nil
}

func TestPopularityCheckAll(t *testing.T) {
	fetcher := &fakeDownloads{data: map[string][]pypistats.DownloadPoint{
		"requests": {
			{Date: "2026-08-28", Downloads: 300},
			{Date: "2026-08-27", Downloads: 400},
		},
	}}
	checker := NewPopularityChecker(fetcher)

	packages := []*manifest.Package{
		indexPackage("requests", "2.28.1"),
		indexPackage("obscure", "0.1.0"),
	}
	checker.CheckAll(context.Background(), packages)

	pop := packages[0].Popularity
	if pop == nil {
		t.Fatal("requests has no popularity data")
	}
	if pop.WeeklyDownloads != 700 {
		t.Errorf("weekly = %d, want 700", pop.WeeklyDownloads)
	}
	if pop.DownloadsLastMonth != 2800 {
		t.Errorf("monthly = %d, want weekly*4 = 2800", pop.DownloadsLastMonth)
	}
	if len(pop.Trend) != 2 {
		t.Errorf("trend length = %d, want 2", len(pop.Trend))
	}

	if packages[1].Popularity != nil {
		t.Error("failed lookup attached popularity data")
	}

	// Failed lookups are cached and not retried.
	checker.CheckAll(context.Background(), packages)
	if fetcher.calls != 2 {
		t.Errorf("fetch calls = %d, want 2", fetcher.calls)
	}
}

type fakeReleases struct {
	mu       sync.Mutex
	calls    int
	releases map[string]*pypi.ReleaseInfo
}

func (f *fakeReleases) FetchRelease(_ context.Context, name, version string, _ bool) (*pypi.ReleaseInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	release, ok := f.releases[name+"=="+version]
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "no release %s %s", name, version)
	}
	return release, nil
}

func TestChangelogCheckAll(t *testing.T) {
	fetcher := &fakeReleases{releases: map[string]*pypi.ReleaseInfo{
		"django==4.0.0": {Name: "django", Version: "4.0.0", Summary: "Removed legacy middleware. Deprecated signals. Fixes a CVE."},
		"flask==2.3.2":  {Name: "flask", Version: "2.3.2", Summary: "Routine maintenance release."},
	}}
	c := NewChangelogFetcher(fetcher)

	django := indexPackage("django", "3.2.0")
	django.LatestVersion = "4.0.0"
	flask := indexPackage("flask", "2.3.0")
	flask.LatestVersion = "2.3.2"
	unresolved := indexPackage("ghost", "1.0.0")

	packages := []*manifest.Package{django, flask, unresolved}
	c.CheckAll(context.Background(), packages)

	if django.Changelog == nil {
		t.Fatal("django has no changelog")
	}
	if !django.Changelog.HasBreakingChanges() {
		t.Error("breaking keyword not detected")
	}
	if len(django.Changelog.Deprecated) == 0 || len(django.Changelog.SecurityFixes) == 0 {
		t.Errorf("changelog = %+v", django.Changelog)
	}
	if django.Changelog.RiskLevel() != "HIGH" {
		t.Errorf("risk = %q, want HIGH", django.Changelog.RiskLevel())
	}

	if flask.Changelog == nil {
		t.Fatal("flask has no changelog")
	}
	if flask.Changelog.HasBreakingChanges() || flask.Changelog.RiskLevel() != "LOW" {
		t.Errorf("flask changelog = %+v", flask.Changelog)
	}

	// Records without a resolved latest version are skipped entirely.
	if unresolved.Changelog != nil {
		t.Error("unresolved record got a changelog")
	}
	if fetcher.calls != 2 {
		t.Errorf("fetch calls = %d, want 2", fetcher.calls)
	}
}

func TestDetectCaseInsensitive(t *testing.T) {
	hits := detect("BREAKING CHANGE: api rewritten", breakingKeywords, "Detected: ")
	if len(hits) == 0 {
		t.Fatal("uppercase keyword not detected")
	}
	if hits[0] != "Detected: breaking change" {
		t.Errorf("hit = %q", hits[0])
	}
}
