package graph

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/pyelevate/pyelevate/pkg/manifest"
	"github.com/pyelevate/pyelevate/pkg/version"
)

// ToDOT converts a record set and its dependency graph to Graphviz
// DOT format. Nodes are colored by upgrade status; edges read "depends
// on". The resulting DOT string can be rendered with [RenderSVG] or
// [RenderPNG].
func ToDOT(g *Graph, packages []*manifest.Package) string {
	byName := make(map[string]*manifest.Package, len(packages))
	for _, pkg := range packages {
		byName[pkg.Name] = pkg
	}

	var buf bytes.Buffer
	buf.WriteString("digraph dependencies {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, name := range g.Packages() {
		attrs := []string{fmt.Sprintf("label=%q", nodeLabel(name, byName[name]))}
		if color := statusColor(byName[name]); color != "" {
			attrs = append(attrs, fmt.Sprintf("fillcolor=%q", color))
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", name, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, from := range g.Packages() {
		for _, to := range g.Dependencies(from) {
			fmt.Fprintf(&buf, "  %q -> %q;\n", from, to)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeLabel(name string, pkg *manifest.Package) string {
	if pkg == nil || pkg.LatestVersion == "" {
		return name
	}
	if pkg.LatestVersion == pkg.CurrentVersion {
		return fmt.Sprintf("%s\n%s", name, pkg.CurrentVersion)
	}
	return fmt.Sprintf("%s\n%s → %s", name, pkg.CurrentVersion, pkg.LatestVersion)
}

func statusColor(pkg *manifest.Package) string {
	if pkg == nil {
		return ""
	}
	switch pkg.Status {
	case version.StatusVulnerable:
		return "plum"
	case version.StatusError:
		return "lightcoral"
	case version.StatusMajor:
		return "salmon"
	case version.StatusMinor:
		return "khaki"
	case version.StatusPatch:
		return "lightyellow"
	case version.StatusUpToDate:
		return "palegreen"
	default:
		return ""
	}
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	return render(ctx, dot, graphviz.SVG)
}

// RenderPNG renders a DOT graph to PNG using Graphviz.
func RenderPNG(ctx context.Context, dot string) ([]byte, error) {
	return render(ctx, dot, graphviz.PNG)
}

func render(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
