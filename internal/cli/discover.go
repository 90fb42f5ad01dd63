package cli

import (
	"github.com/spf13/cobra"

	"grant-workers/internal/matching/pipeline"
)

type discoverOptions struct {
	profile  string
	grants   string
	limit    int
	minScore int
	sortBy   string
	debug    bool
	now      string
}

func newDiscoverCmd(g *globals) *cobra.Command {
	o := &discoverOptions{}
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Rank a grant pool for one profile",
		Long:  `Run the discovery pipeline for a profile against a local grant pool.

Examples:
  grantmatch discover --profile p.json --grants g.json
  grantmatch discover --profile p.json --grants g.json --sort deadline --limit 5
  grantmatch discover --profile p.json --grants g.json --debug -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiscover(cmd, g, o)
		},
	}

	cmd.Flags().StringVar(&o.profile, "profile", "", "profile JSON file")
	cmd.Flags().StringVar(&o.grants, "grants", "", "grant pool JSON file")
	cmd.Flags().IntVar(&o.limit, "limit", 0, "maximum number of results (default 20)")
	cmd.Flags().IntVar(&o.minScore, "min-score", 0, "drop grants scoring below this (0-100)")
	cmd.Flags().StringVar(&o.sortBy, "sort", string(pipeline.SortBestMatch), "best_match, deadline, amount or newest")
	cmd.Flags().BoolVar(&o.debug, "debug", false, "include the ranking trace")
	cmd.Flags().StringVar(&o.now, "now", "", "reference time for deadlines (RFC3339 or YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("profile")
	_ = cmd.MarkFlagRequired("grants")
	return cmd
}

func runDiscover(cmd *cobra.Command, g *globals, o *discoverOptions) error {
	log := g.logger()

	profile, err := loadProfile(o.profile)
	if err != nil {
		return err
	}
	grants, err := loadGrants(o.grants, log)
	if err != nil {
		return err
	}
	now, err := parseNow(o.now)
	if err != nil {
		return err
	}

	p := pipeline.New(pipeline.DefaultConfig(), log).WithClock(now)
	res, err := p.Run(cmd.Context(), grants, profile, pipeline.Options{
		Limit:        o.limit,
		MinScore:     o.minScore,
		SortBy:       pipeline.SortBy(o.sortBy),
		IncludeDebug: o.debug,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if g.output == "json" {
		return writeJSON(out, res)
	}
	return discoverTable(out, res, now())
}
