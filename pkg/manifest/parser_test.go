package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pyelevate/pyelevate/pkg/errors"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestParseLinePinned(t *testing.T) {
	pkg, err := ParseLine("requests==2.28.1")
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if pkg.Name != "requests" {
		t.Errorf("name = %q, want requests", pkg.Name)
	}
	if pkg.CurrentVersion != "2.28.1" {
		t.Errorf("current = %q, want 2.28.1", pkg.CurrentVersion)
	}
	if pkg.Constraint.Kind != ConstraintPinned || pkg.Constraint.Version != "2.28.1" {
		t.Errorf("constraint = %+v, want Pinned 2.28.1", pkg.Constraint)
	}
	if pkg.Source.Kind != SourceIndex {
		t.Errorf("source = %v, want index", pkg.Source.Kind)
	}
}

func TestParseLineExtras(t *testing.T) {
	pkg, err := ParseLine("requests[security,socks]==2.28.1")
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if pkg.Name != "requests" {
		t.Errorf("name = %q, want requests", pkg.Name)
	}
	if len(pkg.Extras) != 2 || pkg.Extras[0] != "security" || pkg.Extras[1] != "socks" {
		t.Errorf("extras = %v, want [security socks]", pkg.Extras)
	}
	if got := pkg.DisplayName(); got != "requests[security,socks]" {
		t.Errorf("DisplayName = %q", got)
	}
}

func TestParseLineInlineComment(t *testing.T) {
	pkg, err := ParseLine("django==3.2 # pinned for LTS")
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if pkg.Name != "django" {
		t.Errorf("name = %q, want django", pkg.Name)
	}
	if pkg.CurrentVersion != "3.2.0" {
		t.Errorf("current = %q, want normalized 3.2.0", pkg.CurrentVersion)
	}
}

func TestParseLineConstraints(t *testing.T) {
	tests := []struct {
		line    string
		kind    ConstraintKind
		current string
		str     string
	}{
		{"flask", ConstraintUnspecified, "0.0.0", ""},
		{"flask>=2.0", ConstraintGreaterEqual, "2.0.0", ">=2.0"},
		{"flask~=2.0.1", ConstraintCompatible, "2.0.1", "~=2.0.1"},
		{"flask<3", ConstraintLess, "0.0.0", "<3"},
		{"flask>=1.0,<2.0", ConstraintRange, "1.0.0", ">=1.0,<2.0"},
		{"flask!=2.0", ConstraintUnspecified, "0.0.0", ""},
	}
	for _, tc := range tests {
		pkg, err := ParseLine(tc.line)
		if err != nil {
			t.Fatalf("ParseLine(%q): %v", tc.line, err)
		}
		if pkg.Constraint.Kind != tc.kind {
			t.Errorf("%q: kind = %v, want %v", tc.line, pkg.Constraint.Kind, tc.kind)
		}
		if pkg.CurrentVersion != tc.current {
			t.Errorf("%q: current = %q, want %q", tc.line, pkg.CurrentVersion, tc.current)
		}
		if got := pkg.Constraint.String(); got != tc.str {
			t.Errorf("%q: constraint string = %q, want %q", tc.line, got, tc.str)
		}
	}
}

func TestParseLineGit(t *testing.T) {
	pkg, err := ParseLine("git+https://github.com/user/repo.git@main")
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if pkg.Name != "repo" {
		t.Errorf("name = %q, want repo", pkg.Name)
	}
	if pkg.CurrentVersion != "git-source" {
		t.Errorf("current = %q, want git-source", pkg.CurrentVersion)
	}
	if pkg.Source.Kind != SourceGit || pkg.Source.Ref != "main" {
		t.Errorf("source = %+v, want git@main", pkg.Source)
	}
	if pkg.Source.URL != "https://github.com/user/repo.git" {
		t.Errorf("url = %q", pkg.Source.URL)
	}
}

func TestParseLineGitNoSuffix(t *testing.T) {
	pkg, err := ParseLine("git+https://github.com/user/repo")
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	// Without a .git suffix the name is synthesized.
	if len(pkg.Name) != len("git-")+8 || pkg.Name[:4] != "git-" {
		t.Errorf("name = %q, want synthesized git-xxxxxxxx", pkg.Name)
	}
}

func TestParseLineEditable(t *testing.T) {
	pkg, err := ParseLine("-e ./libs/mypkg")
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if pkg.Name != "mypkg" {
		t.Errorf("name = %q, want mypkg", pkg.Name)
	}
	if pkg.CurrentVersion != "local" {
		t.Errorf("current = %q, want local", pkg.CurrentVersion)
	}
	if pkg.Source.Kind != SourceLocal || !pkg.Source.Editable || pkg.Source.Path != "./libs/mypkg" {
		t.Errorf("source = %+v", pkg.Source)
	}
}

func TestParseLineURL(t *testing.T) {
	pkg, err := ParseLine("https://example.com/numpy.tar.gz")
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if pkg.Name != "numpy" {
		t.Errorf("name = %q, want numpy", pkg.Name)
	}
	if pkg.CurrentVersion != "url-source" {
		t.Errorf("current = %q, want url-source", pkg.CurrentVersion)
	}
	if pkg.Source.Kind != SourceURL {
		t.Errorf("source kind = %v, want URL", pkg.Source.Kind)
	}
}

func TestParseLineLowercasesName(t *testing.T) {
	pkg, err := ParseLine("Django==4.2.0")
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if pkg.Name != "django" {
		t.Errorf("name = %q, want django", pkg.Name)
	}
}

func TestParseFile(t *testing.T) {
	content := `# production dependencies
requests==2.28.1
zope.interface>=5.0

flask[async]==2.3.2  # web framework
git+https://github.com/user/tool.git@v1
-e ./local/helper
`
	path := writeFile(t, "requirements.txt", content)

	file, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(file.Packages) != 5 {
		t.Fatalf("got %d packages, want 5", len(file.Packages))
	}

	// Sorted by name.
	for i := 1; i < len(file.Packages); i++ {
		if file.Packages[i-1].Name > file.Packages[i].Name {
			t.Errorf("packages not sorted: %q before %q", file.Packages[i-1].Name, file.Packages[i].Name)
		}
	}

	if file.Find("flask") == nil || file.Find("tool") == nil || file.Find("helper") == nil {
		t.Error("expected flask, tool and helper records")
	}
	if len(file.RawLines) != 7 {
		t.Errorf("got %d raw lines, want 7", len(file.RawLines))
	}
	if file.RawLines[0] != "# production dependencies" {
		t.Errorf("raw lines not preserved verbatim: %q", file.RawLines[0])
	}
}

func TestParseFileMissing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "nope.txt"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("code = %v, want FILE_NOT_FOUND", errors.GetCode(err))
	}
}

func TestParseFileSkipsBadLines(t *testing.T) {
	path := writeFile(t, "requirements.txt", "==1.0\nrequests==2.28.1\n")

	file, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(file.Packages) != 1 || file.Packages[0].Name != "requests" {
		t.Errorf("packages = %v, want only requests", file.Packages)
	}
}

func TestParsePyproject(t *testing.T) {
	content := `[project]
name = "demo"
dependencies = [
  "requests==2.28.1",
  "click>=8.0",
]

[project.optional-dependencies]
dev = ["pytest==7.4.0", "requests==2.28.1"]
`
	path := writeFile(t, "pyproject.toml", content)

	file, err := ParsePyproject(path)
	if err != nil {
		t.Fatalf("ParsePyproject: %v", err)
	}
	if len(file.Packages) != 3 {
		t.Fatalf("got %d packages, want 3 (requests deduplicated)", len(file.Packages))
	}
	if file.Packages[0].Name != "click" || file.Packages[1].Name != "pytest" || file.Packages[2].Name != "requests" {
		t.Errorf("unexpected package order: %v", names(file.Packages))
	}
}

func names(packages []*Package) []string {
	out := make([]string, len(packages))
	for i, pkg := range packages {
		out[i] = pkg.Name
	}
	return out
}
