// Package manifest defines the dependency record model and parses
// Python dependency manifests (requirements files and pyproject.toml)
// into it.
package manifest

import (
	"fmt"
	"strings"

	"github.com/pyelevate/pyelevate/pkg/version"
)

// SourceKind identifies where a declared dependency is installed from.
type SourceKind int

const (
	SourceIndex SourceKind = iota
	SourceGit
	SourceLocal
	SourceURL
	SourceUnknown
)

// Source describes the install origin of a package. Only the fields
// relevant to the Kind are populated. Immutable after parse time.
type Source struct {
	Kind     SourceKind `json:"kind"`
	URL      string     `json:"url,omitempty"`
	Ref      string     `json:"ref,omitempty"`
	Path     string     `json:"path,omitempty"`
	Editable bool       `json:"editable,omitempty"`
}

// Type returns a short label for the source kind.
func (s Source) Type() string {
	switch s.Kind {
	case SourceIndex:
		return "PyPI"
	case SourceGit:
		return "Git"
	case SourceLocal:
		return "Local"
	case SourceURL:
		return "URL"
	default:
		return "Unknown"
	}
}

// Description returns a human-readable multi-line description of the
// source, suitable for detail panels.
func (s Source) Description() string {
	switch s.Kind {
	case SourceIndex:
		return "Python Package Index"
	case SourceGit:
		desc := "Git Repository: " + s.URL
		if s.Ref != "" {
			desc += "\nBranch/Tag: " + s.Ref
		}
		return desc
	case SourceLocal:
		install := "Standard Install"
		if s.Editable {
			install = "Editable Install"
		}
		return "Local Path: " + s.Path + "\n" + install
	case SourceURL:
		return "URL: " + s.URL
	default:
		return "Unknown Source"
	}
}

// ConstraintKind identifies the declared version rule.
type ConstraintKind int

const (
	ConstraintUnspecified ConstraintKind = iota
	ConstraintPinned
	ConstraintGreaterEqual
	ConstraintLess
	ConstraintRange
	ConstraintCompatible
)

// Constraint is the version rule declared on a manifest line,
// independent of anything resolved later. High is set only for
// ConstraintRange. Immutable after parse time.
type Constraint struct {
	Kind    ConstraintKind `json:"kind"`
	Version string         `json:"version,omitempty"`
	High    string         `json:"high,omitempty"`
}

// String renders the constraint back in requirement syntax.
func (c Constraint) String() string {
	switch c.Kind {
	case ConstraintPinned:
		return "==" + c.Version
	case ConstraintGreaterEqual:
		return ">=" + c.Version
	case ConstraintLess:
		return "<" + c.Version
	case ConstraintRange:
		return ">=" + c.Version + ",<" + c.High
	case ConstraintCompatible:
		return "~=" + c.Version
	default:
		return ""
	}
}

// SecurityState is the outcome of an advisory lookup.
type SecurityState int

const (
	SecurityUnknown SecurityState = iota
	SecuritySafe
	SecurityVulnerable
)

// SecurityStatus records the advisory outcome for a package's current
// version. AdvisoryCount is meaningful only when State is
// SecurityVulnerable.
type SecurityStatus struct {
	State         SecurityState `json:"state"`
	AdvisoryCount int           `json:"advisory_count,omitempty"`
}

func (s SecurityStatus) IsVulnerable() bool {
	return s.State == SecurityVulnerable
}

func (s SecurityStatus) String() string {
	switch s.State {
	case SecuritySafe:
		return "Safe"
	case SecurityVulnerable:
		return fmt.Sprintf("Vulnerable (%d)", s.AdvisoryCount)
	default:
		return "Unknown"
	}
}

// Changelog is a heuristic summary of the latest release's notes.
type Changelog struct {
	Version         string   `json:"version"`
	ReleaseDate     string   `json:"release_date"`
	Changes         []string `json:"changes"`
	BreakingChanges []string `json:"breaking_changes"`
	Deprecated      []string `json:"deprecated"`
	SecurityFixes   []string `json:"security_fixes"`
}

func (c *Changelog) HasBreakingChanges() bool {
	return len(c.BreakingChanges) > 0
}

// RiskLevel grades the release notes. Breaking changes dominate;
// security-only releases grade low because applying them is the safe
// direction.
func (c *Changelog) RiskLevel() string {
	switch {
	case c.HasBreakingChanges():
		return "HIGH"
	case len(c.SecurityFixes) > 0:
		return "LOW"
	case len(c.Deprecated) > 0:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// TrendPoint is one day of download counts.
type TrendPoint struct {
	Date      string `json:"date"`
	Downloads uint64 `json:"downloads"`
}

// PopularityData summarizes recent download activity for a package.
// DownloadsLastMonth is estimated from the weekly figure.
type PopularityData struct {
	DownloadsLastMonth uint64       `json:"downloads_last_month"`
	Trend              []TrendPoint `json:"downloads_trend"`
	WeeklyDownloads    uint64       `json:"weekly_downloads"`
	PackageRank        *int         `json:"package_rank,omitempty"`
}

// Package is one dependency record parsed from a manifest and
// progressively enriched by resolution and the best-effort fetchers.
type Package struct {
	Name           string          `json:"name"`
	CurrentVersion string          `json:"current_version"`
	LatestVersion  string          `json:"latest_version,omitempty"`
	Status         version.Status  `json:"status"`
	Selected       bool            `json:"selected"`
	Extras         []string        `json:"extras,omitempty"`
	Constraint     Constraint      `json:"constraint"`
	Err            string          `json:"error,omitempty"`
	Source         Source          `json:"source"`
	Security       SecurityStatus  `json:"security_status"`
	Changelog      *Changelog      `json:"changelog,omitempty"`
	Popularity     *PopularityData `json:"popularity,omitempty"`
	Dependencies   []string        `json:"dependencies,omitempty"`
}

// Upgradable reports whether a newer release is known for the package.
func (p *Package) Upgradable() bool {
	return p.Status.Upgradable()
}

// DisplayName renders the name with its extras list, as written in a
// requirement line.
func (p *Package) DisplayName() string {
	if len(p.Extras) == 0 {
		return p.Name
	}
	return p.Name + "[" + strings.Join(p.Extras, ",") + "]"
}

// File is a parsed manifest. RawLines preserves the original content
// verbatim so a rewrite can keep untouched lines byte-identical.
type File struct {
	Path     string
	Packages []*Package
	RawLines []string
}

// Find returns the package with the given (lower-cased) name, or nil.
func (f *File) Find(name string) *Package {
	name = strings.ToLower(name)
	for _, pkg := range f.Packages {
		if pkg.Name == name {
			return pkg
		}
	}
	return nil
}
