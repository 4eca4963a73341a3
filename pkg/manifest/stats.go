package manifest

import "github.com/pyelevate/pyelevate/pkg/version"

// Stats aggregates upgrade availability over a record set.
type Stats struct {
	Total          int
	PatchAvailable int
	MinorAvailable int
	MajorAvailable int
	UpToDate       int
	Errors         int
	Vulnerable     int
	Conflicts      int
}

// NewStats tallies the current status of every package. Conflicts is
// filled in separately by the caller once conflict detection has run.
func NewStats(packages []*Package) Stats {
	stats := Stats{Total: len(packages)}
	for _, pkg := range packages {
		switch pkg.Status {
		case version.StatusPatch:
			stats.PatchAvailable++
		case version.StatusMinor:
			stats.MinorAvailable++
		case version.StatusMajor:
			stats.MajorAvailable++
		case version.StatusUpToDate:
			stats.UpToDate++
		case version.StatusError:
			stats.Errors++
		case version.StatusVulnerable:
			stats.Vulnerable++
		}
	}
	return stats
}

// TotalUpgradable is the count of packages with any pending upgrade.
func (s Stats) TotalUpgradable() int {
	return s.PatchAvailable + s.MinorAvailable + s.MajorAvailable
}
