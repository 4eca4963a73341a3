// Package simulate computes a point-in-time risk assessment for the
// currently selected upgrades. The result is pure and re-derivable;
// nothing here is persisted.
package simulate

import (
	"fmt"
	"strings"

	"github.com/pyelevate/pyelevate/pkg/graph"
	"github.com/pyelevate/pyelevate/pkg/manifest"
	"github.com/pyelevate/pyelevate/pkg/version"
)

// RiskLevel grades an upgrade batch.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
	RiskCritical
)

func (r RiskLevel) String() string {
	switch r {
	case RiskCritical:
		return "CRITICAL"
	case RiskHigh:
		return "HIGH"
	case RiskMedium:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// Simulation summarizes the selected upgrades and the resulting risk.
type Simulation struct {
	PackagesToUpgrade int
	MajorChanges      int
	ConflictsDetected int
	SecurityFixes     int
	Risk              RiskLevel
}

// Run derives a simulation from the full record set. Selection counts
// cover only selected records; conflict detection always covers the
// entire set.
func Run(packages []*manifest.Package) Simulation {
	sim := Simulation{
		ConflictsDetected: len(graph.DetectConflicts(packages)),
	}

	for _, pkg := range packages {
		if !pkg.Selected {
			continue
		}
		sim.PackagesToUpgrade++
		switch pkg.Status {
		case version.StatusMajor:
			sim.MajorChanges++
		case version.StatusVulnerable:
			sim.SecurityFixes++
		}
	}

	sim.Risk = riskLevel(sim.MajorChanges, sim.ConflictsDetected, sim.PackagesToUpgrade)
	return sim
}

// riskLevel grades the batch. A security-only selection stays Low:
// high priority, but low structural risk.
func riskLevel(major, conflicts, total int) RiskLevel {
	switch {
	case conflicts > 0 && major > 0:
		return RiskCritical
	case major > total/2:
		return RiskHigh
	case major > 0 || conflicts > 0:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Report renders the simulation as a boxed textual summary.
func Report(packages []*manifest.Package) string {
	sim := Run(packages)

	var b strings.Builder
	b.WriteString("╔═══════════════════════════════════════╗\n")
	b.WriteString("║     UPGRADE SIMULATION REPORT          ║\n")
	b.WriteString("╚═══════════════════════════════════════╝\n\n")

	fmt.Fprintf(&b, "Packages to upgrade:  %d\n", sim.PackagesToUpgrade)
	fmt.Fprintf(&b, "Major changes:        %d\n", sim.MajorChanges)
	fmt.Fprintf(&b, "Conflicts detected:   %d\n", sim.ConflictsDetected)
	fmt.Fprintf(&b, "Security fixes:       %d\n", sim.SecurityFixes)
	fmt.Fprintf(&b, "Overall risk:         %s\n", sim.Risk)

	return b.String()
}
