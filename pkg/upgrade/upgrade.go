// Package upgrade writes resolved upgrades back to a requirements
// file. It regenerates only the lines being upgraded; every other
// line, including comments and blank lines, stays byte-identical.
// Records are never mutated here.
package upgrade

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pyelevate/pyelevate/pkg/errors"
	"github.com/pyelevate/pyelevate/pkg/manifest"
	"github.com/pyelevate/pyelevate/pkg/version"
)

// CreateBackup copies the manifest to a timestamped .bak file next to
// it and returns the backup path.
func CreateBackup(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidPath, err, "failed to read %s", path)
	}

	backup := fmt.Sprintf("%s.%s.bak", path, time.Now().Format("20060102-150405"))
	if err := os.WriteFile(backup, content, 0o644); err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidPath, err, "failed to write backup %s", backup)
	}
	return backup, nil
}

// Rewrite regenerates manifest content with upgraded pins. A line is
// rewritten when it parses to an index-sourced record with a newer
// resolved version; with selectedOnly, the record must also be
// selected. Rewritten lines take the form name[extras]==latest.
func Rewrite(content string, packages []*manifest.Package, selectedOnly bool) string {
	byName := make(map[string]*manifest.Package, len(packages))
	for _, pkg := range packages {
		byName[pkg.Name] = pkg
	}

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		parsed, err := manifest.ParseLine(strings.TrimSpace(line))
		if err != nil || parsed.Source.Kind != manifest.SourceIndex {
			continue
		}
		pkg, ok := byName[parsed.Name]
		if !ok || !Eligible(pkg, selectedOnly) {
			continue
		}
		lines[i] = pkg.DisplayName() + "==" + pkg.LatestVersion
	}
	return strings.Join(lines, "\n")
}

// Eligible reports whether Rewrite would touch the record's line:
// index-sourced, resolved to a strictly newer version, and selected
// when selectedOnly is set.
func Eligible(pkg *manifest.Package, selectedOnly bool) bool {
	if pkg.Source.Kind != manifest.SourceIndex || pkg.LatestVersion == "" {
		return false
	}
	// The resolved version must strictly order above the pin. An index
	// lagging behind the declared version must never rewrite the pin
	// downward.
	if !version.Less(pkg.CurrentVersion, pkg.LatestVersion) {
		return false
	}
	return !selectedOnly || pkg.Selected
}

// WriteRequirements replaces the manifest content.
func WriteRequirements(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "failed to write %s", path)
	}
	return nil
}

// WriteLock writes a fully pinned requirements.lock next to the
// manifest, using the resolved latest version where known and the
// declared current version otherwise. Returns the lock file path.
func WriteLock(path string, packages []*manifest.Package) (string, error) {
	lockPath := filepath.Join(filepath.Dir(path), "requirements.lock")

	pinned := make([]string, 0, len(packages))
	for _, pkg := range packages {
		if pkg.Source.Kind != manifest.SourceIndex {
			continue
		}
		version := pkg.LatestVersion
		if version == "" {
			version = pkg.CurrentVersion
		}
		pinned = append(pinned, pkg.DisplayName()+"=="+version)
	}
	sort.Strings(pinned)

	content := "# Generated by pyelevate on " + time.Now().UTC().Format("2006-01-02 15:04:05") + " UTC\n" +
		strings.Join(pinned, "\n") + "\n"

	if err := os.WriteFile(lockPath, []byte(content), 0o644); err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidPath, err, "failed to write lock file %s", lockPath)
	}
	return lockPath, nil
}
