package manifest

import (
	"os"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/pyelevate/pyelevate/pkg/errors"
)

type pyprojectFile struct {
	Project struct {
		Name                 string              `toml:"name"`
		Dependencies         []string            `toml:"dependencies"`
		OptionalDependencies map[string][]string `toml:"optional-dependencies"`
	} `toml:"project"`
}

// ParsePyproject reads PEP 621 dependency declarations from a
// pyproject.toml. Each entry uses the same requirement grammar as a
// requirements file line. Optional dependency groups are included;
// duplicate names keep the first occurrence.
func ParsePyproject(path string) (*File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "pyproject file not found: %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "failed to read %s", path)
	}

	var doc pyprojectFile
	if err := toml.Unmarshal(content, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "failed to parse %s", path)
	}

	specs := append([]string{}, doc.Project.Dependencies...)

	groups := make([]string, 0, len(doc.Project.OptionalDependencies))
	for group := range doc.Project.OptionalDependencies {
		groups = append(groups, group)
	}
	sort.Strings(groups)
	for _, group := range groups {
		specs = append(specs, doc.Project.OptionalDependencies[group]...)
	}

	seen := make(map[string]bool)
	var packages []*Package
	for _, spec := range specs {
		pkg, err := ParseLine(spec)
		if err != nil {
			continue
		}
		if seen[pkg.Name] {
			continue
		}
		seen[pkg.Name] = true
		packages = append(packages, pkg)
	}

	sort.Slice(packages, func(i, j int) bool {
		return packages[i].Name < packages[j].Name
	})

	return &File{Path: path, Packages: packages, RawLines: specs}, nil
}
