package cli

import (
	"github.com/spf13/cobra"

	"grant-workers/internal/matching/relevance"
	"grant-workers/internal/models"
)

type searchOptions struct {
	term     string
	profile  string
	grants   string
	limit    int
	minScore int
}

type searchOutput struct {
	Term    string             `json:"searchTerm"`
	Results []relevance.Ranked `json:"results"`
	Stats   relevance.Stats    `json:"stats"`
}

func newSearchCmd(g *globals) *cobra.Command {
	o := &searchOptions{}
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Filter a grant pool the way search results are shown",
		Long:  `Apply search-time relevance filtering to a local grant pool.

The profile is optional; without one the search runs as an anonymous visitor.

Examples:
  grantmatch search --term youth --grants g.json
  grantmatch search --term "farm equipment" --profile p.json --grants g.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, g, o)
		},
	}

	cmd.Flags().StringVar(&o.term, "term", "", "search term or category")
	cmd.Flags().StringVar(&o.profile, "profile", "", "profile JSON file (optional)")
	cmd.Flags().StringVar(&o.grants, "grants", "", "grant pool JSON file")
	cmd.Flags().IntVar(&o.limit, "limit", 0, "maximum number of results (0 for all)")
	cmd.Flags().IntVar(&o.minScore, "min-score", relevance.DefaultMinScore, "lowest relevance score shown")
	_ = cmd.MarkFlagRequired("grants")
	return cmd
}

func runSearch(cmd *cobra.Command, g *globals, o *searchOptions) error {
	log := g.logger()

	var profile *models.UserProfile
	if o.profile != "" {
		p, err := loadProfile(o.profile)
		if err != nil {
			return err
		}
		p.Normalize()
		if err := p.Validate(); err != nil {
			return err
		}
		profile = p
	}
	grants, err := loadGrants(o.grants, log)
	if err != nil {
		return err
	}

	cfg := relevance.DefaultConfig()
	cfg.MinScore = o.minScore
	results, stats := relevance.NewEngine(cfg).FilterSearchResults(grants, profile, o.term)
	if o.limit > 0 && len(results) > o.limit {
		results = results[:o.limit]
		stats.Returned = len(results)
	}

	out := cmd.OutOrStdout()
	if g.output == "json" {
		return writeJSON(out, searchOutput{Term: o.term, Results: results, Stats: stats})
	}
	return searchTable(out, results, stats)
}
