package cli

import (
	"context"
	"strings"
	"testing"

	"github.com/pyelevate/pyelevate/pkg/manifest"
	"github.com/pyelevate/pyelevate/pkg/version"
)

func dashboardPackages() []*manifest.Package {
	return []*manifest.Package{
		{
			Name:           "requests",
			CurrentVersion: "2.28.1",
			LatestVersion:  "2.31.0",
			Status:         version.StatusMinor,
			Source:         manifest.Source{Kind: manifest.SourceIndex},
			Popularity:     &manifest.PopularityData{WeeklyDownloads: 900},
		},
		{
			Name:           "django",
			CurrentVersion: "3.2.0",
			LatestVersion:  "5.0.0",
			Status:         version.StatusMajor,
			Source:         manifest.Source{Kind: manifest.SourceIndex},
			Popularity:     &manifest.PopularityData{WeeklyDownloads: 500},
		},
		{
			Name:           "flask",
			CurrentVersion: "3.0.0",
			LatestVersion:  "3.0.0",
			Status:         version.StatusUpToDate,
			Source:         manifest.Source{Kind: manifest.SourceIndex},
		},
		{
			Name:           "internal-tool",
			CurrentVersion: "git-source",
			Status:         version.StatusUnknown,
			Source:         manifest.Source{Kind: manifest.SourceGit, URL: "https://github.com/org/tool"},
		},
	}
}

func TestDashboardStateInitialSort(t *testing.T) {
	s := newDashboardState(dashboardPackages())

	if s.sort != sortByStatus {
		t.Fatalf("initial sort = %v, want status", s.sort)
	}
	// Major outranks minor, and up-to-date sorts last.
	want := []string{"django", "requests", "internal-tool", "flask"}
	for i, name := range want {
		if s.filtered[i].Name != name {
			t.Errorf("filtered[%d] = %q, want %q", i, s.filtered[i].Name, name)
		}
	}
}

func TestDashboardStateSortCycle(t *testing.T) {
	s := newDashboardState(dashboardPackages())

	order := []sortMode{sortByCurrent, sortByLatest, sortByPopularity, sortByName, sortByStatus}
	for _, want := range order {
		s.cycleSort()
		if s.sort != want {
			t.Fatalf("after cycle, sort = %v, want %v", s.sort, want)
		}
	}
}

func TestDashboardStateSortByPopularity(t *testing.T) {
	s := newDashboardState(dashboardPackages())
	s.sort = sortByPopularity
	s.sortFiltered()

	if s.filtered[0].Name != "requests" {
		t.Errorf("most downloaded first: got %q, want requests", s.filtered[0].Name)
	}
	last := s.filtered[len(s.filtered)-1]
	if last.Popularity != nil {
		t.Errorf("packages without download data sort last, got %q", last.Name)
	}
}

func TestDashboardStateSearch(t *testing.T) {
	s := newDashboardState(dashboardPackages())
	s.moveDown()
	s.moveDown()

	s.setSearch("dja")
	if len(s.filtered) != 1 || s.filtered[0].Name != "django" {
		t.Fatalf("search 'dja' matched %d packages", len(s.filtered))
	}
	if s.cursor != 0 {
		t.Errorf("cursor = %d after refilter, want 0", s.cursor)
	}

	s.setSearch("")
	if len(s.filtered) != 4 {
		t.Errorf("cleared search shows %d packages, want 4", len(s.filtered))
	}
}

func TestDashboardStateToggleIsUnconditional(t *testing.T) {
	s := newDashboardState(dashboardPackages())
	s.setSearch("internal")

	// Even an unresolved git package can be toggled by hand.
	s.toggleCurrent()
	if !s.filtered[0].Selected {
		t.Error("toggle did not select the package under the cursor")
	}
	s.toggleCurrent()
	if s.filtered[0].Selected {
		t.Error("second toggle did not deselect")
	}
}

func TestDashboardStateSelectAllSkipsUnresolved(t *testing.T) {
	s := newDashboardState(dashboardPackages())
	s.selectAll()

	for _, pkg := range s.packages {
		if pkg.LatestVersion == "" && pkg.Selected {
			t.Errorf("%s selected without a resolved latest version", pkg.Name)
		}
		if pkg.LatestVersion != "" && !pkg.Selected {
			t.Errorf("%s not selected", pkg.Name)
		}
	}
}

func TestDashboardStateSelectAllHonorsFilter(t *testing.T) {
	s := newDashboardState(dashboardPackages())
	s.setSearch("django")
	s.selectAll()

	if got := s.selectedCount(); got != 1 {
		t.Fatalf("selected %d packages, want only the filtered one", got)
	}
}

func TestDashboardStateDeselectAllIgnoresFilter(t *testing.T) {
	s := newDashboardState(dashboardPackages())
	s.selectAll()
	s.setSearch("django")

	s.deselectAll()
	if got := s.selectedCount(); got != 0 {
		t.Errorf("selectedCount = %d after deselect all, want 0", got)
	}
}

func TestDashboardStateSelectByStatus(t *testing.T) {
	s := newDashboardState(dashboardPackages())
	s.selectByStatus(version.StatusMajor)

	for _, pkg := range s.packages {
		want := pkg.Status == version.StatusMajor
		if pkg.Selected != want {
			t.Errorf("%s selected = %v, want %v", pkg.Name, pkg.Selected, want)
		}
	}
}

func TestDashboardStateCursorBounds(t *testing.T) {
	s := newDashboardState(dashboardPackages())

	s.moveUp()
	if s.cursor != 0 {
		t.Errorf("cursor moved above the top: %d", s.cursor)
	}
	for i := 0; i < 10; i++ {
		s.moveDown()
	}
	if s.cursor != len(s.filtered)-1 {
		t.Errorf("cursor = %d, want %d", s.cursor, len(s.filtered)-1)
	}
}

func TestDashboardGraphView(t *testing.T) {
	packages := []*manifest.Package{
		{
			Name:           "flask",
			CurrentVersion: "3.0.0",
			LatestVersion:  "3.0.0",
			Status:         version.StatusUpToDate,
			Source:         manifest.Source{Kind: manifest.SourceIndex},
			Dependencies:   []string{"werkzeug"},
		},
		{
			Name:           "werkzeug",
			CurrentVersion: "2.3.0",
			LatestVersion:  "3.0.1",
			Status:         version.StatusMajor,
			Source:         manifest.Source{Kind: manifest.SourceIndex},
		},
	}

	m := NewDashboardModel(context.Background(), nil, "requirements.txt", packages, false)
	m.mode = modeGraph

	view := m.View()
	if !strings.Contains(view, "flask") || !strings.Contains(view, "werkzeug") {
		t.Fatalf("graph view missing edge endpoints:\n%s", view)
	}
	if !strings.Contains(view, "Requires werkzeug but upgrade to 3.0.1 may break compatibility") {
		t.Errorf("graph view missing the pending-upgrade conflict:\n%s", view)
	}
}

func TestSortModeString(t *testing.T) {
	if sortByPopularity.String() != "Popularity" {
		t.Errorf("sortByPopularity.String() = %q", sortByPopularity.String())
	}
}
