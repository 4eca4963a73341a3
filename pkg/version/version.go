// Package version classifies the delta between a declared package version
// and the latest version known to the package index.
//
// Classification is a pure function of the two version strings. Semantic
// versions are compared with Masterminds/semver; versions that only parse
// under PEP 440 (the common case for Python pre-releases like "2.0.0rc1")
// fall back to go-pep440-version ordering; anything else falls back to a
// lexicographic comparison that never guesses an upgrade direction.
package version

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	pep440 "github.com/aquasecurity/go-pep440-version"
)

// Status describes the relationship between a package's current and
// latest versions, plus the failure states a record can end up in.
type Status int

const (
	// StatusUnknown means the delta direction could not be determined.
	StatusUnknown Status = iota
	// StatusUpToDate means the latest version is not ahead of the current one.
	StatusUpToDate
	// StatusPatch means an upgrade within the same major.minor line exists.
	StatusPatch
	// StatusMinor means a newer minor release exists under the same major.
	StatusMinor
	// StatusMajor means a newer major release exists.
	StatusMajor
	// StatusPrerelease means the only newer release is a pre/dev release.
	StatusPrerelease
	// StatusVulnerable marks a record with known advisories against its
	// current version. Set by the advisory checker, never by Compare.
	StatusVulnerable
	// StatusError marks a record whose resolution failed.
	StatusError
)

// String returns the display label for the status.
func (s Status) String() string {
	switch s {
	case StatusUpToDate:
		return "Up-to-date"
	case StatusPatch:
		return "Patch"
	case StatusMinor:
		return "Minor"
	case StatusMajor:
		return "Major"
	case StatusPrerelease:
		return "Prerelease"
	case StatusVulnerable:
		return "Vulnerable"
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Priority returns the sort rank for status-ordered displays.
// Lower values sort first (most urgent).
func (s Status) Priority() int {
	switch s {
	case StatusVulnerable:
		return 0
	case StatusError:
		return 1
	case StatusMajor:
		return 2
	case StatusMinor:
		return 3
	case StatusPrerelease:
		return 4
	case StatusPatch:
		return 5
	case StatusUnknown:
		return 6
	default:
		return 7
	}
}

// Upgradable reports whether the status indicates a newer release exists.
func (s Status) Upgradable() bool {
	switch s {
	case StatusPatch, StatusMinor, StatusMajor, StatusPrerelease:
		return true
	default:
		return false
	}
}

// Compare classifies latest relative to current.
//
// Both parseable as semver: latest <= current is UpToDate, otherwise the
// highest component that moved decides (Major beats Minor beats Patch;
// a qualifier-only change counts as Patch). If semver fails but both
// parse under PEP 440, the same rules apply on the release segments,
// except that a pre/dev latest classifies as Prerelease. Otherwise the
// strings are compared lexicographically: latest <= current is UpToDate
// and anything else is Unknown.
func Compare(current, latest string) Status {
	cv, cerr := semver.NewVersion(current)
	lv, lerr := semver.NewVersion(latest)
	if cerr == nil && lerr == nil {
		switch {
		case lv.Compare(cv) <= 0:
			return StatusUpToDate
		case lv.Major() > cv.Major():
			return StatusMajor
		case lv.Minor() > cv.Minor():
			return StatusMinor
		default:
			return StatusPatch
		}
	}

	if s, ok := comparePEP440(current, latest); ok {
		return s
	}

	if latest <= current {
		return StatusUpToDate
	}
	return StatusUnknown
}

// Less reports whether a orders strictly before b, using the same
// semver -> PEP 440 -> lexicographic chain as Compare.
func Less(a, b string) bool {
	av, aerr := semver.NewVersion(a)
	bv, berr := semver.NewVersion(b)
	if aerr == nil && berr == nil {
		return av.LessThan(bv)
	}
	ap, aerr2 := pep440.Parse(a)
	bp, berr2 := pep440.Parse(b)
	if aerr2 == nil && berr2 == nil {
		return ap.LessThan(bp)
	}
	return a < b
}

var prereleaseRE = regexp.MustCompile(`(?i)(a|b|c|rc|alpha|beta|pre|preview|dev)\.?\d*$`)

func comparePEP440(current, latest string) (Status, bool) {
	cv, cerr := pep440.Parse(current)
	lv, lerr := pep440.Parse(latest)
	if cerr != nil || lerr != nil {
		return StatusUnknown, false
	}
	if lv.LessThanOrEqual(cv) {
		return StatusUpToDate, true
	}
	if prereleaseRE.MatchString(latest) {
		return StatusPrerelease, true
	}
	cr := releaseSegments(current)
	lr := releaseSegments(latest)
	switch {
	case lr[0] > cr[0]:
		return StatusMajor, true
	case lr[1] > cr[1]:
		return StatusMinor, true
	default:
		return StatusPatch, true
	}
}

// releaseSegments extracts up to three leading numeric components,
// padding missing ones with zero.
func releaseSegments(v string) [3]uint64 {
	var out [3]uint64
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	for i, part := range strings.SplitN(v, ".", 4) {
		if i > 2 {
			break
		}
		digits := part
		for j, r := range part {
			if r < '0' || r > '9' {
				digits = part[:j]
				break
			}
		}
		n, err := strconv.ParseUint(digits, 10, 64)
		if err != nil {
			break
		}
		out[i] = n
	}
	return out
}

var (
	threePartRE = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)(.*)$`)
	twoPartRE   = regexp.MustCompile(`^(\d+)\.(\d+)$`)
	onePartRE   = regexp.MustCompile(`^(\d+)$`)
)

// Normalize pads a dotted numeric version to three components, keeping
// any qualifier suffix unchanged ("3.2" -> "3.2.0", "2" -> "2.0.0",
// "1.2.3rc1" -> "1.2.3rc1"). Strings that are not versions pass through.
func Normalize(v string) string {
	if m := threePartRE.FindStringSubmatch(v); m != nil {
		return m[1] + "." + m[2] + "." + m[3] + m[4]
	}
	if m := twoPartRE.FindStringSubmatch(v); m != nil {
		return m[1] + "." + m[2] + ".0"
	}
	if m := onePartRE.FindStringSubmatch(v); m != nil {
		return m[1] + ".0.0"
	}
	return v
}
