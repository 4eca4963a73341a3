package manifest

import (
	"strings"
	"testing"

	"github.com/pyelevate/pyelevate/pkg/version"
)

func TestChangelogRiskLevel(t *testing.T) {
	tests := []struct {
		name      string
		changelog Changelog
		want      string
	}{
		{"breaking dominates", Changelog{BreakingChanges: []string{"removed API"}, SecurityFixes: []string{"CVE fix"}}, "HIGH"},
		{"security only", Changelog{SecurityFixes: []string{"CVE fix"}}, "LOW"},
		{"deprecations only", Changelog{Deprecated: []string{"old flag"}}, "MEDIUM"},
		{"nothing notable", Changelog{Changes: []string{"docs"}}, "LOW"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.changelog.RiskLevel(); got != tc.want {
				t.Errorf("RiskLevel = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSecurityStatus(t *testing.T) {
	vulnerable := SecurityStatus{State: SecurityVulnerable, AdvisoryCount: 3}
	if !vulnerable.IsVulnerable() {
		t.Error("vulnerable status not reported as vulnerable")
	}
	if got := vulnerable.String(); got != "Vulnerable (3)" {
		t.Errorf("String = %q", got)
	}
	if (SecurityStatus{State: SecuritySafe}).IsVulnerable() {
		t.Error("safe status reported as vulnerable")
	}
}

func TestSourceDescription(t *testing.T) {
	git := Source{Kind: SourceGit, URL: "https://github.com/user/repo.git", Ref: "main"}
	if got := git.Description(); !strings.Contains(got, "Branch/Tag: main") {
		t.Errorf("git description = %q", got)
	}
	if git.Type() != "Git" {
		t.Errorf("Type = %q", git.Type())
	}

	local := Source{Kind: SourceLocal, Path: "./pkg", Editable: true}
	if got := local.Description(); !strings.Contains(got, "Editable Install") {
		t.Errorf("local description = %q", got)
	}
}

func TestNewStats(t *testing.T) {
	packages := []*Package{
		{Name: "a", Status: version.StatusPatch},
		{Name: "b", Status: version.StatusMinor},
		{Name: "c", Status: version.StatusMajor},
		{Name: "d", Status: version.StatusMajor},
		{Name: "e", Status: version.StatusUpToDate},
		{Name: "f", Status: version.StatusError},
		{Name: "g", Status: version.StatusVulnerable},
		{Name: "h", Status: version.StatusUnknown},
	}

	stats := NewStats(packages)
	if stats.Total != 8 {
		t.Errorf("Total = %d, want 8", stats.Total)
	}
	if stats.PatchAvailable != 1 || stats.MinorAvailable != 1 || stats.MajorAvailable != 2 {
		t.Errorf("available counts = %d/%d/%d", stats.PatchAvailable, stats.MinorAvailable, stats.MajorAvailable)
	}
	if stats.UpToDate != 1 || stats.Errors != 1 || stats.Vulnerable != 1 {
		t.Errorf("status counts = %d/%d/%d", stats.UpToDate, stats.Errors, stats.Vulnerable)
	}
	if got := stats.TotalUpgradable(); got != 4 {
		t.Errorf("TotalUpgradable = %d, want 4", got)
	}
}
