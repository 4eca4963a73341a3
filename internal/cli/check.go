package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pyelevate/pyelevate/pkg/graph"
	"github.com/pyelevate/pyelevate/pkg/manifest"
)

func (c *CLI) checkCommand() *cobra.Command {
	var requirements string
	var noCache bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check all packages for available upgrades and vulnerabilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := c.requirementsPath(requirements)
			if err != nil {
				return err
			}
			return c.runCheck(cmd, path, noCache)
		},
	}

	cmd.Flags().StringVarP(&requirements, "requirements", "r", "", "path to the requirements file")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the response cache")
	return cmd
}

func (c *CLI) runCheck(cmd *cobra.Command, path string, noCache bool) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	file, err := manifest.ParseFile(path)
	if err != nil {
		return err
	}

	engine := c.newEngine(ctx, noCache)
	engine.Analyze(ctx, file.Packages, logger)

	conflicts := graph.DetectConflicts(file.Packages)

	stats := manifest.NewStats(file.Packages)
	stats.Conflicts = len(conflicts)

	printCheckReport(path, file.Packages, stats)
	return nil
}

func printCheckReport(path string, packages []*manifest.Package, stats manifest.Stats) {
	fmt.Println()
	fmt.Println(StyleTitle.Render("┌──────────────────────────────────────────────┐"))
	fmt.Println(StyleTitle.Render("│            DEPENDENCY CHECK REPORT           │"))
	fmt.Println(StyleTitle.Render("└──────────────────────────────────────────────┘"))
	printFile(path)
	fmt.Println()

	fmt.Printf("  %s %d\n", StyleDim.Render("Total packages:   "), stats.Total)
	fmt.Printf("  %s %d\n", StyleDim.Render("Patch available:  "), stats.PatchAvailable)
	fmt.Printf("  %s %d\n", StyleDim.Render("Minor available:  "), stats.MinorAvailable)
	fmt.Printf("  %s %d\n", StyleDim.Render("Major available:  "), stats.MajorAvailable)
	fmt.Printf("  %s %d\n", StyleDim.Render("Up to date:       "), stats.UpToDate)
	fmt.Printf("  %s %d\n", StyleDim.Render("Vulnerable:       "), stats.Vulnerable)
	fmt.Printf("  %s %d\n", StyleDim.Render("Errors:           "), stats.Errors)
	if stats.Conflicts > 0 {
		fmt.Printf("  %s %d\n", StyleWarning.Render("Conflicts:        "), stats.Conflicts)
	}
	fmt.Println()

	header := fmt.Sprintf("%-30s %-15s %-15s %-15s", "PACKAGE", "CURRENT", "LATEST", "STATUS")
	fmt.Println("  " + StyleDim.Render(header))
	fmt.Println("  " + StyleDim.Render(strings.Repeat("─", len(header))))
	for _, pkg := range packages {
		latest := pkg.LatestVersion
		if latest == "" {
			latest = "N/A"
		}
		line := fmt.Sprintf("%-30s %-15s %-15s ", pkg.DisplayName(), pkg.CurrentVersion, latest)
		fmt.Println("  " + line + statusStyle(pkg.Status).Render(pkg.Status.String()))
		if pkg.Err != "" {
			printDetail("%s", pkg.Err)
		}
	}
	fmt.Println()
}
