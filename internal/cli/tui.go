package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/pyelevate/pyelevate/pkg/graph"
	"github.com/pyelevate/pyelevate/pkg/manifest"
	"github.com/pyelevate/pyelevate/pkg/upgrade"
	"github.com/pyelevate/pyelevate/pkg/version"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// dashboardMode is the current interaction mode of the dashboard.
type dashboardMode int

const (
	modeLoading dashboardMode = iota
	modeDisplay
	modeSearch
	modeConfirm
	modeUpgrading
	modeDone
	modeGraph
	modeChangelog
)

// sortMode determines the package list ordering.
type sortMode int

const (
	sortByStatus sortMode = iota
	sortByName
	sortByCurrent
	sortByLatest
	sortByPopularity
)

func (s sortMode) String() string {
	switch s {
	case sortByName:
		return "Name"
	case sortByStatus:
		return "Status"
	case sortByCurrent:
		return "Current"
	case sortByLatest:
		return "Latest"
	case sortByPopularity:
		return "Popularity"
	}
	return "Unknown"
}

// next cycles Name -> Status -> Current -> Latest -> Popularity -> Name.
func (s sortMode) next() sortMode {
	switch s {
	case sortByName:
		return sortByStatus
	case sortByStatus:
		return sortByCurrent
	case sortByCurrent:
		return sortByLatest
	case sortByLatest:
		return sortByPopularity
	default:
		return sortByName
	}
}

// dashboardState holds the mutable list state of the dashboard,
// separate from the bubbletea plumbing so it can be exercised
// directly.
type dashboardState struct {
	packages []*manifest.Package
	filtered []*manifest.Package
	cursor   int
	search   string
	sort     sortMode
}

func newDashboardState(packages []*manifest.Package) *dashboardState {
	s := &dashboardState{packages: packages, sort: sortByStatus}
	s.refilter()
	return s
}

// refilter recomputes the visible slice from the search query and sort
// mode. The cursor always resets to the top.
func (s *dashboardState) refilter() {
	s.filtered = s.filtered[:0]
	query := strings.ToLower(s.search)
	for _, pkg := range s.packages {
		if query == "" || strings.Contains(strings.ToLower(pkg.Name), query) {
			s.filtered = append(s.filtered, pkg)
		}
	}
	s.sortFiltered()
	s.cursor = 0
}

func (s *dashboardState) sortFiltered() {
	sort.SliceStable(s.filtered, func(i, j int) bool {
		a, b := s.filtered[i], s.filtered[j]
		switch s.sort {
		case sortByStatus:
			return a.Status.Priority() < b.Status.Priority()
		case sortByCurrent:
			return a.CurrentVersion < b.CurrentVersion
		case sortByLatest:
			return latestOrDefault(a) < latestOrDefault(b)
		case sortByPopularity:
			return weeklyDownloads(a) > weeklyDownloads(b)
		default:
			return a.Name < b.Name
		}
	})
}

func latestOrDefault(pkg *manifest.Package) string {
	if pkg.LatestVersion == "" {
		return "0.0.0"
	}
	return pkg.LatestVersion
}

func weeklyDownloads(pkg *manifest.Package) uint64 {
	if pkg.Popularity == nil {
		return 0
	}
	return pkg.Popularity.WeeklyDownloads
}

// current returns the package under the cursor, or nil when the
// filtered list is empty.
func (s *dashboardState) current() *manifest.Package {
	if len(s.filtered) == 0 || s.cursor >= len(s.filtered) {
		return nil
	}
	return s.filtered[s.cursor]
}

func (s *dashboardState) moveUp() {
	if s.cursor > 0 {
		s.cursor--
	}
}

func (s *dashboardState) moveDown() {
	if s.cursor < len(s.filtered)-1 {
		s.cursor++
	}
}

// toggleCurrent flips selection on the package under the cursor.
func (s *dashboardState) toggleCurrent() {
	if pkg := s.current(); pkg != nil {
		pkg.Selected = !pkg.Selected
	}
}

// selectAll selects every filtered package that has a resolved latest
// version.
func (s *dashboardState) selectAll() {
	for _, pkg := range s.filtered {
		if pkg.LatestVersion != "" {
			pkg.Selected = true
		}
	}
}

// deselectAll clears selection on every package, filtered or not.
func (s *dashboardState) deselectAll() {
	for _, pkg := range s.packages {
		pkg.Selected = false
	}
}

// selectByStatus selects every filtered package with the given status.
func (s *dashboardState) selectByStatus(status version.Status) {
	for _, pkg := range s.filtered {
		if pkg.Status == status {
			pkg.Selected = true
		}
	}
}

func (s *dashboardState) selectedCount() int {
	n := 0
	for _, pkg := range s.packages {
		if pkg.Selected {
			n++
		}
	}
	return n
}

func (s *dashboardState) cycleSort() {
	s.sort = s.sort.next()
	s.sortFiltered()
	s.cursor = 0
}

func (s *dashboardState) setSearch(query string) {
	s.search = query
	s.refilter()
}

// DashboardModel is the bubbletea model for the interactive dashboard.
type DashboardModel struct {
	state  *dashboardState
	mode   dashboardMode
	path   string
	dryRun bool
	engine *Engine

	ctx    context.Context
	height int
	offset int

	errMsg  string
	doneMsg string
}

type analyzedMsg struct{}

type upgradedMsg struct {
	count int
	err   error
}

// NewDashboardModel creates the dashboard over an already parsed
// manifest. Analysis runs asynchronously after the first frame.
func NewDashboardModel(ctx context.Context, engine *Engine, path string, packages []*manifest.Package, dryRun bool) DashboardModel {
	return DashboardModel{
		state:  newDashboardState(packages),
		mode:   modeLoading,
		path:   path,
		dryRun: dryRun,
		engine: engine,
		ctx:    ctx,
		height: 15,
	}
}

func (m DashboardModel) Init() tea.Cmd {
	return func() tea.Msg {
		m.engine.Analyze(m.ctx, m.state.packages, loggerFromContext(m.ctx))
		return analyzedMsg{}
	}
}

func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case analyzedMsg:
		m.mode = modeDisplay
		m.state.refilter()
		return m, nil
	case upgradedMsg:
		m.mode = modeDone
		if msg.err != nil {
			m.doneMsg = "Upgrade failed: " + msg.err.Error()
		} else {
			m.doneMsg = fmt.Sprintf("Upgraded %d %s", msg.count, pluralize(msg.count, "package"))
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.height = msg.Height - 10
		if m.height < 5 {
			m.height = 5
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m DashboardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.mode {
	case modeLoading:
		if key == "esc" || key == "q" {
			return m, tea.Quit
		}
	case modeDisplay:
		return m.handleDisplayKey(key)
	case modeSearch:
		return m.handleSearchKey(msg)
	case modeConfirm:
		switch key {
		case "y", "enter":
			m.mode = modeUpgrading
			return m, m.upgradeCmd()
		case "n", "esc":
			m.mode = modeDisplay
		}
	case modeDone:
		return m, tea.Quit
	case modeGraph:
		if key == "esc" || key == "g" || key == "q" {
			m.mode = modeDisplay
		}
	case modeChangelog:
		if key == "esc" || key == "c" || key == "q" {
			m.mode = modeDisplay
		}
	}
	return m, nil
}

func (m DashboardModel) handleDisplayKey(key string) (tea.Model, tea.Cmd) {
	m.errMsg = ""

	switch key {
	case "q", "esc":
		return m, tea.Quit
	case "up", "k":
		m.state.moveUp()
		m.clampOffset()
	case "down", "j":
		m.state.moveDown()
		m.clampOffset()
	case " ":
		m.state.toggleCurrent()
	case "a":
		m.state.selectAll()
	case "d":
		m.state.deselectAll()
	case "m":
		m.state.selectByStatus(version.StatusMajor)
	case "i":
		m.state.selectByStatus(version.StatusMinor)
	case "p":
		m.state.selectByStatus(version.StatusPatch)
	case "s":
		m.state.cycleSort()
		m.offset = 0
	case "/":
		m.mode = modeSearch
	case "g":
		m.mode = modeGraph
	case "c":
		if m.state.current() != nil {
			m.mode = modeChangelog
		}
	case "u":
		if m.state.selectedCount() == 0 {
			m.errMsg = "Select packages first (Space to select)"
		} else {
			m.mode = modeConfirm
		}
	default:
		// Typing a name character drops straight into search.
		if len(key) == 1 && isSearchChar(rune(key[0])) {
			m.mode = modeSearch
			m.state.setSearch(key)
			m.offset = 0
		}
	}
	return m, nil
}

func (m DashboardModel) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.state.setSearch("")
		m.mode = modeDisplay
		m.offset = 0
	case "enter":
		m.mode = modeDisplay
	case "backspace":
		if m.state.search != "" {
			m.state.setSearch(m.state.search[:len(m.state.search)-1])
			m.offset = 0
		}
	case "up":
		m.state.moveUp()
		m.clampOffset()
	case "down":
		m.state.moveDown()
		m.clampOffset()
	case " ":
		m.state.toggleCurrent()
	default:
		if len(msg.Runes) == 1 && isSearchChar(msg.Runes[0]) {
			m.state.setSearch(m.state.search + string(msg.Runes))
			m.offset = 0
		}
	}
	return m, nil
}

func isSearchChar(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_'
}

func (m *DashboardModel) clampOffset() {
	if m.state.cursor < m.offset {
		m.offset = m.state.cursor
	}
	if m.state.cursor >= m.offset+m.height {
		m.offset = m.state.cursor - m.height + 1
	}
}

func (m DashboardModel) upgradeCmd() tea.Cmd {
	state := m.state
	path := m.path
	dryRun := m.dryRun
	return func() tea.Msg {
		count := state.selectedCount()
		if dryRun {
			return upgradedMsg{count: count}
		}
		if _, err := upgrade.CreateBackup(path); err != nil {
			return upgradedMsg{err: err}
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return upgradedMsg{err: err}
		}
		rewritten := upgrade.Rewrite(string(content), state.packages, true)
		if err := upgrade.WriteRequirements(path, rewritten); err != nil {
			return upgradedMsg{err: err}
		}
		return upgradedMsg{count: count}
	}
}

func (m DashboardModel) View() string {
	switch m.mode {
	case modeLoading:
		return m.viewLoading()
	case modeConfirm:
		return m.viewConfirm()
	case modeDone:
		return m.viewDone()
	case modeGraph:
		return m.viewGraph()
	case modeChangelog:
		return m.viewChangelog()
	default:
		return m.viewList()
	}
}

func (m DashboardModel) viewLoading() string {
	var b strings.Builder
	b.WriteString(StyleTitle.Render("PyElevate"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("  Analyzing %d packages from %s ...\n", len(m.state.packages), m.path))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("  esc quit"))
	return b.String()
}

func (m DashboardModel) viewList() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("PyElevate"))
	b.WriteString("  ")
	b.WriteString(listDimStyle.Render(m.path))
	b.WriteString("\n")

	if m.mode == modeSearch {
		b.WriteString(StyleValue.Render("/" + m.state.search))
		b.WriteString(listDimStyle.Render("  esc clear  enter done"))
	} else {
		b.WriteString(listDimStyle.Render("space select  a all  d none  m/i/p by status  s sort  / search  g graph  c changelog  u upgrade  q quit"))
	}
	b.WriteString("\n\n")

	end := m.offset + m.height
	if end > len(m.state.filtered) {
		end = len(m.state.filtered)
	}

	rows := [][]string{}
	for i := m.offset; i < end; i++ {
		pkg := m.state.filtered[i]

		cursor := "  "
		if i == m.state.cursor {
			cursor = "▸ "
		}
		selected := " "
		if pkg.Selected {
			selected = "●"
		}
		latest := pkg.LatestVersion
		if latest == "" {
			latest = "N/A"
		}
		downloads := "—"
		if pkg.Popularity != nil {
			downloads = formatCount(pkg.Popularity.WeeklyDownloads)
		}
		rows = append(rows, []string{
			cursor + selected, pkg.DisplayName(), pkg.CurrentVersion, latest,
			pkg.Status.String(), downloads,
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Package", "Current", "Latest", "Status", "Weekly DL").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			idx := m.offset + row
			if idx >= len(m.state.filtered) {
				return lipgloss.NewStyle()
			}
			pkg := m.state.filtered[idx]
			if col == 4 {
				return statusStyle(pkg.Status)
			}
			if idx == m.state.cursor {
				return listSelectedStyle
			}
			if pkg.Selected {
				return lipgloss.NewStyle().Foreground(colorCyan)
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})

	b.WriteString(t.Render())
	b.WriteString("\n")

	stats := manifest.NewStats(m.state.packages)
	b.WriteString(listDimStyle.Render(fmt.Sprintf(
		"  [%d/%d]  sort: %s  selected: %d  upgradable: %d",
		min(m.state.cursor+1, len(m.state.filtered)), len(m.state.filtered),
		m.state.sort, m.state.selectedCount(), stats.TotalUpgradable())))
	b.WriteString("\n")

	if m.errMsg != "" {
		b.WriteString(StyleError.Render("  " + m.errMsg))
		b.WriteString("\n")
	}
	return b.String()
}

func (m DashboardModel) viewConfirm() string {
	count := m.state.selectedCount()
	var b strings.Builder
	b.WriteString(StyleTitle.Render("Confirm Upgrade"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("  Upgrade %d %s in %s?\n", count, pluralize(count, "package"), m.path))
	for _, pkg := range m.state.packages {
		if !pkg.Selected {
			continue
		}
		b.WriteString(fmt.Sprintf("    %s %s %s %s\n",
			StyleValue.Render(pkg.DisplayName()), pkg.CurrentVersion,
			listDimStyle.Render("→"), pkg.LatestVersion))
	}
	if m.dryRun {
		b.WriteString("\n")
		b.WriteString(StyleWarning.Render("  Dry run, nothing will be written"))
	}
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render("  y confirm  n cancel"))
	return b.String()
}

func (m DashboardModel) viewDone() string {
	var b strings.Builder
	b.WriteString(StyleTitle.Render("Done"))
	b.WriteString("\n\n  ")
	b.WriteString(m.doneMsg)
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render("  press any key to exit"))
	return b.String()
}

func (m DashboardModel) viewGraph() string {
	g := graph.Build(m.state.packages)
	conflicts := graph.DetectConflicts(m.state.packages)

	var b strings.Builder
	b.WriteString(StyleTitle.Render("Dependency Graph"))
	b.WriteString("\n\n")

	for _, name := range g.Packages() {
		deps := g.Dependencies(name)
		if len(deps) == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("  %s %s %s\n",
			StyleValue.Render(name), listDimStyle.Render("→"), strings.Join(deps, ", ")))
	}

	if len(conflicts) > 0 {
		b.WriteString("\n")
		b.WriteString(StyleWarning.Render(fmt.Sprintf("  %d potential %s:", len(conflicts), pluralize(len(conflicts), "conflict"))))
		b.WriteString("\n")
		for _, c := range conflicts {
			b.WriteString("    " + c.Reason + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("  esc back"))
	return b.String()
}

func (m DashboardModel) viewChangelog() string {
	pkg := m.state.current()
	var b strings.Builder
	b.WriteString(StyleTitle.Render("Release Notes"))
	b.WriteString("\n\n")

	if pkg == nil || pkg.Changelog == nil {
		b.WriteString(listDimStyle.Render("  No release notes available"))
	} else {
		cl := pkg.Changelog
		b.WriteString(fmt.Sprintf("  %s %s  %s\n\n",
			StyleValue.Render(pkg.DisplayName()), cl.Version, listDimStyle.Render(cl.ReleaseDate)))
		b.WriteString(fmt.Sprintf("  Risk: %s\n\n", cl.RiskLevel()))
		for _, line := range cl.Changes {
			b.WriteString("  " + line + "\n")
		}
		for _, line := range cl.BreakingChanges {
			b.WriteString("  " + StyleError.Render(line) + "\n")
		}
		for _, line := range cl.Deprecated {
			b.WriteString("  " + StyleWarning.Render(line) + "\n")
		}
		for _, line := range cl.SecurityFixes {
			b.WriteString("  " + StyleWarning.Render(line) + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("  esc back"))
	return b.String()
}

func formatCount(n uint64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fk", float64(n)/1_000)
	}
	return fmt.Sprintf("%d", n)
}

// runDashboard parses the manifest and starts the interactive
// dashboard.
func (c *CLI) runDashboard(ctx context.Context, path string, dryRun bool) error {
	file, err := manifest.ParseFile(path)
	if err != nil {
		return err
	}

	engine := c.newEngine(ctx, false)
	model := NewDashboardModel(ctx, engine, path, file.Packages, dryRun)

	p := tea.NewProgram(model, tea.WithContext(ctx))
	_, err = p.Run()
	return err
}
