package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grant-workers/internal/matching/pipeline"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	SetVersionInfo("1.2.3", "abc123", "2026-03-01")
	t.Cleanup(func() { SetVersionInfo("dev", "unknown", "unknown") })

	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "grantmatch 1.2.3")
	assert.Contains(t, out, "commit: abc123")
}

func TestDiscover(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		out, err := run(t, "discover",
			"--profile", "testdata/profile.json",
			"--grants", "testdata/grants.json",
			"--now", "2026-03-01",
			"--debug", "-o", "json")
		require.NoError(t, err)

		var res pipeline.Result
		require.NoError(t, json.Unmarshal([]byte(out), &res))
		require.Len(t, res.Grants, 1)
		assert.Equal(t, "g-ca-crop", res.Grants[0].Grant.ID)
		assert.Equal(t, 2, res.Stats.Total)
		assert.Equal(t, 1, res.Stats.Ineligible)
		require.NotNil(t, res.Debug)
		require.Len(t, res.Debug.Excluded, 1)
		assert.Equal(t, "g-youth", res.Debug.Excluded[0].GrantID)
	})

	t.Run("table", func(t *testing.T) {
		out, err := run(t, "discover",
			"--profile", "testdata/profile.json",
			"--grants", "testdata/grants.json",
			"--now", "2026-03-01",
			"--debug")
		require.NoError(t, err)
		assert.Contains(t, out, "g-ca-crop")
		assert.Contains(t, out, "Closes in 35 days")
		assert.Contains(t, out, "1 of 2 grants returned")
		assert.Contains(t, out, "Excluded (run ")
		assert.Contains(t, out, "g-youth")
	})

	t.Run("invalid sort", func(t *testing.T) {
		_, err := run(t, "discover",
			"--profile", "testdata/profile.json",
			"--grants", "testdata/grants.json",
			"--sort", "popularity")
		assert.ErrorIs(t, err, pipeline.ErrInvalidOptions)
	})

	t.Run("missing profile flag", func(t *testing.T) {
		_, err := run(t, "discover", "--grants", "testdata/grants.json")
		assert.Error(t, err)
	})
}

func TestSearch(t *testing.T) {
	out, err := run(t, "search",
		"--term", "agriculture",
		"--grants", "testdata/grants.json",
		"--min-score", "0",
		"-o", "json")
	require.NoError(t, err)

	var res searchOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "agriculture", res.Term)
	assert.Equal(t, 2, res.Stats.Total)

	ids := make([]string, 0, len(res.Results))
	for _, r := range res.Results {
		ids = append(ids, r.Grant.ID)
	}
	assert.Contains(t, ids, "g-ca-crop")
	assert.NotContains(t, ids, "g-youth")
}

func TestRegress(t *testing.T) {
	t.Run("built-in suite", func(t *testing.T) {
		out, err := run(t, "regress")
		require.NoError(t, err)
		assert.Contains(t, out, "4 passed, 0 failed")
	})

	t.Run("failing scenario", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "scenarios.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
now: 2026-03-01T12:00:00Z
grants:
  - id: g-tx
    title: Texas Water Grant
    url: https://grants.example.org/water
    eligibility: [nonprofit]
    locations: [TX]
scenarios:
  - name: out of state
    profile:
      entityType: nonprofit
      state: CA
    assertions:
      - kind: in_top
        grantId: g-tx
        n: 1
`), 0o644))

		out, err := run(t, "regress", "--scenarios", path)
		assert.ErrorIs(t, err, ErrRegressionFailed)
		assert.Contains(t, out, "FAIL")
		assert.Contains(t, out, "0 passed, 1 failed")
	})
}

func TestUnknownOutputFormat(t *testing.T) {
	_, err := run(t, "regress", "-o", "xml")
	assert.EqualError(t, err, "unknown output format: xml")
}
