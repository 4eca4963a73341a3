package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pyelevate/pyelevate/pkg/errors"
	"github.com/pyelevate/pyelevate/pkg/graph"
	"github.com/pyelevate/pyelevate/pkg/manifest"
)

func (c *CLI) graphCommand() *cobra.Command {
	var requirements string
	var noCache bool
	var output string

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Render the dependency graph",
		Long:  `Graph builds the dependency graph from the manifest and writes it as DOT, SVG or PNG depending on the output file extension. Without --output the DOT source is printed to stdout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := c.requirementsPath(requirements)
			if err != nil {
				return err
			}
			return c.runGraph(cmd, path, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&requirements, "requirements", "r", "", "path to the requirements file")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the response cache")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (.dot, .svg or .png)")
	return cmd
}

func (c *CLI) runGraph(cmd *cobra.Command, path, output string, noCache bool) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	file, err := manifest.ParseFile(path)
	if err != nil {
		return err
	}

	engine := c.newEngine(ctx, noCache)
	engine.Analyze(ctx, file.Packages, logger)

	g := graph.Build(file.Packages)
	dot := graph.ToDOT(g, file.Packages)

	if output == "" {
		fmt.Println(dot)
		return nil
	}

	var data []byte
	switch ext := strings.ToLower(filepath.Ext(output)); ext {
	case ".dot", ".gv":
		data = []byte(dot)
	case ".svg":
		data, err = graph.RenderSVG(ctx, dot)
	case ".png":
		data, err = graph.RenderPNG(ctx, dot)
	default:
		return errors.New(errors.ErrCodeUnsupported, "unsupported output format %q, use .dot, .svg or .png", ext)
	}
	if err != nil {
		return err
	}

	if err := os.WriteFile(output, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "writing %s", output)
	}
	printSuccess("Graph written")
	printFile(output)
	return nil
}
