package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pyelevate/pyelevate/pkg/manifest"
	"github.com/pyelevate/pyelevate/pkg/simulate"
)

func (c *CLI) simulateCommand() *cobra.Command {
	var requirements string
	var noCache bool

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simulate upgrading everything and report the risk",
		Long:  `Simulate resolves every package, marks everything upgradable as selected and prints the upgrade report without touching any files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := c.requirementsPath(requirements)
			if err != nil {
				return err
			}
			return c.runSimulate(cmd, path, noCache)
		},
	}

	cmd.Flags().StringVarP(&requirements, "requirements", "r", "", "path to the requirements file")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the response cache")
	return cmd
}

func (c *CLI) runSimulate(cmd *cobra.Command, path string, noCache bool) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	file, err := manifest.ParseFile(path)
	if err != nil {
		return err
	}

	engine := c.newEngine(ctx, noCache)
	engine.Analyze(ctx, file.Packages, logger)

	for _, pkg := range file.Packages {
		if pkg.Upgradable() {
			pkg.Selected = true
		}
	}

	fmt.Println(simulate.Report(file.Packages))
	return nil
}
