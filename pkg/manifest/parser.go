package manifest

import (
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/pyelevate/pyelevate/pkg/errors"
	"github.com/pyelevate/pyelevate/pkg/version"
)

// Operator scan order matters: two-character operators first so that
// "==" is never split at a later-occurring "<".
var operators = []string{"==", ">=", "<=", "~=", ">", "<", "!="}

// ParseFile reads a requirements-style manifest. Lines that cannot be
// interpreted are skipped; they never fail the whole file. Packages
// are returned sorted by name.
func ParseFile(path string) (*File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "requirements file not found: %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "failed to read %s", path)
	}

	rawLines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")

	var packages []*Package
	for _, raw := range rawLines {
		line := strings.TrimSpace(strings.TrimSuffix(raw, "\r"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		pkg, err := ParseLine(line)
		if err != nil {
			continue
		}
		packages = append(packages, pkg)
	}

	sort.Slice(packages, func(i, j int) bool {
		return packages[i].Name < packages[j].Name
	})

	return &File{Path: path, Packages: packages, RawLines: rawLines}, nil
}

// ParseLine interprets a single requirement line. Inline comments are
// stripped first.
func ParseLine(line string) (*Package, error) {
	if idx := strings.Index(line, "#"); idx >= 0 {
		line = line[:idx]
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, errors.New(errors.ErrCodeInvalidManifest, "empty requirement line")
	}

	if rest, ok := strings.CutPrefix(line, "git+"); ok {
		return parseGitRequirement(rest)
	}
	if rest, ok := strings.CutPrefix(line, "-e"); ok {
		return parseEditableRequirement(strings.TrimSpace(rest))
	}
	if strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://") || strings.HasPrefix(line, "file://") {
		return parseURLRequirement(line)
	}

	return parseIndexRequirement(line)
}

func parseIndexRequirement(line string) (*Package, error) {
	namePart, spec := splitVersionSpec(line)
	name, extras := splitExtras(namePart)
	if name == "" {
		return nil, errors.New(errors.ErrCodeInvalidManifest, "requirement has no package name")
	}

	constraint, current := parseVersionSpec(spec)

	return &Package{
		Name:           strings.ToLower(name),
		CurrentVersion: current,
		Extras:         extras,
		Constraint:     constraint,
		Source:         Source{Kind: SourceIndex},
	}, nil
}

func parseGitRequirement(rest string) (*Package, error) {
	repoURL, ref, _ := strings.Cut(rest, "@")

	name := gitPackageName(repoURL)
	if name == "" {
		name = "git-" + uuid.New().String()[:8]
	}

	return &Package{
		Name:           strings.ToLower(name),
		CurrentVersion: "git-source",
		Source:         Source{Kind: SourceGit, URL: repoURL, Ref: ref},
	}, nil
}

func parseEditableRequirement(rest string) (*Package, error) {
	path := strings.TrimSpace(strings.TrimLeft(rest, "-"))

	name := filepath.Base(path)
	if name == "." || name == ".." || name == string(filepath.Separator) {
		name = "local-" + uuid.New().String()[:8]
	}

	return &Package{
		Name:           strings.ToLower(name),
		CurrentVersion: "local",
		Source:         Source{Kind: SourceLocal, Path: path, Editable: true},
	}, nil
}

func parseURLRequirement(line string) (*Package, error) {
	parsed, err := url.Parse(line)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "invalid URL requirement")
	}

	name := ""
	if segments := strings.Split(strings.TrimPrefix(parsed.Path, "/"), "/"); len(segments) > 0 {
		name = strings.SplitN(segments[0], ".", 2)[0]
	}
	if name == "" {
		name = "url-" + uuid.New().String()[:8]
	}

	return &Package{
		Name:           strings.ToLower(name),
		CurrentVersion: "url-source",
		Source:         Source{Kind: SourceURL, URL: line},
	}, nil
}

// splitVersionSpec splits a requirement at the first version operator,
// checked in fixed priority order. A line with no operator is an
// unconstrained requirement.
func splitVersionSpec(line string) (name, spec string) {
	for _, op := range operators {
		if pos := strings.Index(line, op); pos >= 0 {
			return strings.TrimSpace(line[:pos]), line[pos:]
		}
	}
	return strings.TrimSpace(line), ""
}

func splitExtras(namePart string) (string, []string) {
	bracket := strings.Index(namePart, "[")
	if bracket < 0 {
		return namePart, nil
	}
	name := namePart[:bracket]
	list := strings.TrimSuffix(namePart[bracket+1:], "]")

	var extras []string
	for _, extra := range strings.Split(list, ",") {
		if extra = strings.TrimSpace(extra); extra != "" {
			extras = append(extras, extra)
		}
	}
	return name, extras
}

var rangeRE = regexp.MustCompile(`^(.+?)\s*,\s*<\s*(.+)$`)

// parseVersionSpec maps a constraint spec to its Constraint and the
// current version used for classification. Upper-bound-only and
// unrecognized specs carry no usable current version.
func parseVersionSpec(spec string) (Constraint, string) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Constraint{Kind: ConstraintUnspecified}, "0.0.0"
	}

	switch {
	case strings.HasPrefix(spec, "=="):
		v := strings.TrimSpace(spec[2:])
		return Constraint{Kind: ConstraintPinned, Version: v}, version.Normalize(v)
	case strings.HasPrefix(spec, ">="):
		v := strings.TrimSpace(spec[2:])
		if m := rangeRE.FindStringSubmatch(v); m != nil {
			return Constraint{Kind: ConstraintRange, Version: m[1], High: m[2]}, version.Normalize(m[1])
		}
		return Constraint{Kind: ConstraintGreaterEqual, Version: v}, version.Normalize(v)
	case strings.HasPrefix(spec, "~="):
		v := strings.TrimSpace(spec[2:])
		return Constraint{Kind: ConstraintCompatible, Version: v}, version.Normalize(v)
	case strings.HasPrefix(spec, "<"):
		v := strings.TrimSpace(spec[1:])
		return Constraint{Kind: ConstraintLess, Version: v}, "0.0.0"
	default:
		return Constraint{Kind: ConstraintUnspecified}, "0.0.0"
	}
}

func gitPackageName(repoURL string) string {
	segments := strings.Split(repoURL, "/")
	last := segments[len(segments)-1]
	name, found := strings.CutSuffix(last, ".git")
	if !found {
		return ""
	}
	return name
}
