package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"grant-workers/internal/matching/pipeline"
	"grant-workers/internal/matching/regression"
	"grant-workers/internal/matching/relevance"
	"grant-workers/internal/matching/taxonomy"
)

func writeJSON(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func discoverTable(w io.Writer, res *pipeline.Result, now time.Time) error {
	if len(res.Grants) == 0 {
		fmt.Fprintln(w, "No matching grants.")
	} else {
		rows := make([][]string, 0, len(res.Grants))
		for i, r := range res.Grants {
			rows = append(rows, []string{
				strconv.Itoa(i + 1),
				r.Grant.ID,
				truncate(r.Grant.Title, 48),
				strconv.Itoa(r.MatchScore),
				string(r.Tier),
				string(r.AppliesToUser),
				taxonomy.FormatDeadline(r.Grant.DeadlineDate, now),
				taxonomy.FormatAmountRange(r.Grant.AmountMin, r.Grant.AmountMax, r.Grant.AmountText),
			})
		}
		table := tablewriter.NewWriter(w)
		table.Header("Rank", "Grant", "Title", "Score", "Tier", "Applies", "Deadline", "Amount")
		if err := table.Bulk(rows); err != nil {
			return err
		}
		if err := table.Render(); err != nil {
			return err
		}
	}

	s := res.Stats
	fmt.Fprintf(w, "\n%d of %d grants returned (eligible %d, ineligible %d, below min score %d, malformed %d) in %dms\n",
		s.Returned, s.Total, s.Eligible, s.Ineligible, s.BelowMinScore, s.Malformed, s.DurationMs)
	if len(s.FailedFilters) > 0 {
		fmt.Fprintf(w, "Failed filters: %s\n", formatCounts(s.FailedFilters))
	}

	if res.Debug != nil && len(res.Debug.Excluded) > 0 {
		fmt.Fprintf(w, "\nExcluded (run %s):\n", res.Debug.RunID)
		rows := make([][]string, 0, len(res.Debug.Excluded))
		for _, e := range res.Debug.Excluded {
			failed := make([]string, 0, len(e.FailedFilters))
			for _, f := range e.FailedFilters {
				failed = append(failed, string(f))
			}
			rows = append(rows, []string{
				e.GrantID,
				e.ExcludedBy,
				strings.Join(failed, ","),
				truncate(e.PrimaryReason, 60),
			})
		}
		table := tablewriter.NewWriter(w)
		table.Header("Grant", "Excluded By", "Failed Filters", "Reason")
		if err := table.Bulk(rows); err != nil {
			return err
		}
		return table.Render()
	}
	return nil
}

func searchTable(w io.Writer, results []relevance.Ranked, stats relevance.Stats) error {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results.")
	} else {
		rows := make([][]string, 0, len(results))
		for _, r := range results {
			rows = append(rows, []string{
				r.Grant.ID,
				truncate(r.Grant.Title, 48),
				strconv.Itoa(r.Relevance.RelevanceScore),
				truncate(strings.Join(r.Relevance.MatchReasons, "; "), 60),
			})
		}
		table := tablewriter.NewWriter(w)
		table.Header("Grant", "Title", "Relevance", "Reasons")
		if err := table.Bulk(rows); err != nil {
			return err
		}
		if err := table.Render(); err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "\n%d of %d grants shown\n", stats.Returned, stats.Total)
	if len(stats.BlockedBy) > 0 {
		fmt.Fprintf(w, "Blocked: %s\n", formatCounts(stats.BlockedBy))
	}
	return nil
}

func regressTable(w io.Writer, report *regression.Report) error {
	rows := make([][]string, 0, len(report.Scenarios))
	for _, sc := range report.Scenarios {
		result := "PASS"
		if !sc.Passed {
			result = "FAIL"
		}
		rows = append(rows, []string{
			sc.Name,
			result,
			strconv.Itoa(sc.Checks),
			strconv.Itoa(sc.Returned),
			truncate(strings.Join(sc.TopGrants, "; "), 60),
		})
	}
	table := tablewriter.NewWriter(w)
	table.Header("Scenario", "Result", "Checks", "Returned", "Top Grants")
	if err := table.Bulk(rows); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	for _, sc := range report.Scenarios {
		for _, f := range sc.Failures {
			fmt.Fprintf(w, "  %s: %s\n", sc.Name, f)
		}
	}
	fmt.Fprintf(w, "\n%d passed, %d failed\n", report.Passed, report.Failed)
	return nil
}

func sweepTable(w io.Writer, out sweepOutput) error {
	r := out.Report
	table := tablewriter.NewWriter(w)
	table.Header("Scanned", "Expired", "Corrupt", "Orphan Grant", "Orphan User", "Deleted", "Batches")
	if err := table.Bulk([][]string{{
		strconv.Itoa(r.Scanned),
		strconv.Itoa(r.Expired),
		strconv.Itoa(r.Corrupt),
		strconv.Itoa(r.OrphanGrant),
		strconv.Itoa(r.OrphanUser),
		strconv.Itoa(r.Deleted),
		strconv.Itoa(r.Batches),
	}}); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nSwept at %s in %dms\n", out.SweptAt.Format(time.RFC3339), out.DurationMs)
	return nil
}

// formatCounts renders a histogram as "a=3, b=1", largest first.
func formatCounts[K ~string](counts map[K]int) string {
	keys := make([]K, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	return strings.Join(parts, ", ")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
