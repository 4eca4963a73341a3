package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pyelevate/pyelevate/pkg/manifest"
	"github.com/pyelevate/pyelevate/pkg/upgrade"
)

func (c *CLI) upgradeCommand() *cobra.Command {
	var requirements string
	var noCache bool
	var dryRun bool
	var writeLock bool

	cmd := &cobra.Command{
		Use:   "upgrade",
		Short: "Upgrade every package with a newer release available",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := c.requirementsPath(requirements)
			if err != nil {
				return err
			}
			return c.runUpgrade(cmd, path, noCache, dryRun, writeLock)
		},
	}

	cmd.Flags().StringVarP(&requirements, "requirements", "r", "", "path to the requirements file")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the response cache")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "d", false, "show what would change without writing")
	cmd.Flags().BoolVar(&writeLock, "lock", false, "also write a requirements.lock with resolved pins")
	return cmd
}

func (c *CLI) runUpgrade(cmd *cobra.Command, path string, noCache, dryRun, writeLock bool) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	file, err := manifest.ParseFile(path)
	if err != nil {
		return err
	}

	engine := c.newEngine(ctx, noCache)
	engine.Analyze(ctx, file.Packages, logger)

	// List exactly the lines the rewrite below will touch.
	var upgradable []*manifest.Package
	for _, pkg := range file.Packages {
		if upgrade.Eligible(pkg, false) {
			upgradable = append(upgradable, pkg)
		}
	}
	if len(upgradable) == 0 {
		printSuccess("All packages are up to date")
		return nil
	}

	fmt.Println()
	fmt.Println(StyleTitle.Render("Upgrades available:"))
	for _, pkg := range upgradable {
		status := statusStyle(pkg.Status).Render(pkg.Status.String())
		fmt.Printf("  %s %s %s %s (%s)\n",
			StyleValue.Render(pkg.DisplayName()), pkg.CurrentVersion,
			StyleDim.Render("→"), pkg.LatestVersion, status)
	}
	fmt.Println()

	if dryRun {
		printInfo("Dry run, no files were modified")
		return nil
	}

	backup, err := upgrade.CreateBackup(path)
	if err != nil {
		return err
	}
	printDetail("Backup written to %s", backup)

	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	rewritten := upgrade.Rewrite(string(content), file.Packages, false)
	if err := upgrade.WriteRequirements(path, rewritten); err != nil {
		return err
	}
	printSuccess("Upgraded %d %s in %s", len(upgradable), pluralize(len(upgradable), "package"), path)

	if writeLock {
		lockPath, err := upgrade.WriteLock(path, file.Packages)
		if err != nil {
			return err
		}
		printFile(lockPath)
	}
	return nil
}

func pluralize(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
