// Package graph maintains a directed dependency graph over package
// names and runs the pairwise conflict heuristic on a record set.
package graph

import (
	"fmt"
	"sort"
	"sync"

	"github.com/pyelevate/pyelevate/pkg/manifest"
	"github.com/pyelevate/pyelevate/pkg/version"
)

// Conflict flags a dependency whose pending upgrade could break a
// dependent. It is a heuristic warning, not a proven incompatibility.
type Conflict struct {
	Package  string
	Reason   string
	Current  string
	Required string
}

// Graph is a directed graph of package names. Edges read "from
// depends on to". Safe for concurrent use.
type Graph struct {
	mu    sync.RWMutex
	nodes map[string]bool
	out   map[string]map[string]bool
	in    map[string]map[string]bool
}

// New creates an empty dependency graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]bool),
		out:   make(map[string]map[string]bool),
		in:    make(map[string]map[string]bool),
	}
}

// AddPackage inserts a node. Adding an existing node is a no-op.
func (g *Graph) AddPackage(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes[name] = true
}

// AddDependency inserts the edge "from depends on to", creating both
// nodes as needed.
func (g *Graph) AddDependency(from, to string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes[from] = true
	g.nodes[to] = true
	if g.out[from] == nil {
		g.out[from] = make(map[string]bool)
	}
	g.out[from][to] = true
	if g.in[to] == nil {
		g.in[to] = make(map[string]bool)
	}
	g.in[to][from] = true
}

// Build populates the graph from a record set's declared dependencies.
func Build(packages []*manifest.Package) *Graph {
	g := New()
	for _, pkg := range packages {
		g.AddPackage(pkg.Name)
		for _, dep := range pkg.Dependencies {
			g.AddDependency(pkg.Name, dep)
		}
	}
	return g
}

// Dependents returns the packages that depend on name, sorted.
func (g *Graph) Dependents(name string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.in[name])
}

// Dependencies returns the packages that name depends on, sorted.
func (g *Graph) Dependencies(name string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.out[name])
}

// Packages returns all node names, sorted.
func (g *Graph) Packages() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.nodes)
}

// DetectConflicts returns one Conflict per (package, dependency) pair
// where the dependency has an upgrade pending, regardless of whether
// the dependent's constraint would actually be violated. Only
// dependencies present in the record set are considered.
func DetectConflicts(packages []*manifest.Package) []Conflict {
	byName := make(map[string]*manifest.Package, len(packages))
	for _, pkg := range packages {
		byName[pkg.Name] = pkg
	}

	var conflicts []Conflict
	for _, pkg := range packages {
		for _, dep := range pkg.Dependencies {
			depPkg, ok := byName[dep]
			if !ok || depPkg.LatestVersion == "" {
				continue
			}
			if !version.Less(depPkg.CurrentVersion, depPkg.LatestVersion) {
				continue
			}
			conflicts = append(conflicts, Conflict{
				Package:  pkg.Name,
				Reason:   fmt.Sprintf("Requires %s but upgrade to %s may break compatibility", dep, depPkg.LatestVersion),
				Current:  depPkg.CurrentVersion,
				Required: depPkg.LatestVersion,
			})
		}
	}
	return conflicts
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
