package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"grant-workers/internal/matching/regression"
)

var ErrRegressionFailed = errors.New("regression scenarios failed")

type regressOptions struct {
	scenarios string
	grants    string
}

func newRegressCmd(g *globals) *cobra.Command {
	o := &regressOptions{}
	cmd := &cobra.Command{
		Use:   "regress",
		Short: "Run the ranking regression suite",
		Long:  `Run literal ranking assertions against the discovery pipeline.

Without --scenarios the built-in suite runs. --grants replaces the suite's
grant pool, e.g. with an export of production grants.

Exits non-zero when any assertion fails.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegress(cmd, g, o)
		},
	}

	cmd.Flags().StringVar(&o.scenarios, "scenarios", "", "scenario YAML file (default: built-in suite)")
	cmd.Flags().StringVar(&o.grants, "grants", "", "grant pool JSON file replacing the suite's grants")
	return cmd
}

func runRegress(cmd *cobra.Command, g *globals, o *regressOptions) error {
	log := g.logger()

	suite := regression.DefaultSuite()
	if o.scenarios != "" {
		s, err := regression.LoadFile(o.scenarios)
		if err != nil {
			return err
		}
		suite = s
	}
	if o.grants != "" {
		grants, err := loadGrants(o.grants, log)
		if err != nil {
			return err
		}
		suite.WithPool(grants)
	}

	report, err := regression.NewRunner(log).Run(cmd.Context(), suite)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if g.output == "json" {
		err = writeJSON(out, report)
	} else {
		err = regressTable(out, report)
	}
	if err != nil {
		return err
	}
	if !report.OK() {
		return fmt.Errorf("%w: %d of %d", ErrRegressionFailed, report.Failed, len(report.Scenarios))
	}
	return nil
}
