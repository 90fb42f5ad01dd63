// Package e2e runs the grant workers against live Postgres, Redis,
// Elasticsearch and Zeebe. Set E2E=1 and start the services from
// docker-compose before running.
package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grant-workers/internal/common/camunda"
	"grant-workers/internal/common/config"
	"grant-workers/internal/common/database"
	"grant-workers/internal/common/logger"
	"grant-workers/internal/matching/cache"
	"grant-workers/internal/matching/pipeline"
	"grant-workers/internal/matching/relevance"
	"grant-workers/internal/matching/source"
	"grant-workers/internal/models"
	agm "grant-workers/internal/workers/ai/analyze-grant-match"
	qg "grant-workers/internal/workers/data-access/query-grants"
	dg "grant-workers/internal/workers/matching/discover-grants"
	smc "grant-workers/internal/workers/matching/sweep-match-cache"
	sg "grant-workers/internal/workers/search/search-grants"
)

const (
	testUserID  = "e2e-user-farm"
	cropGrantID = "e2e-crop"
	youthGrant  = "e2e-youth"
	ruralGrant  = "e2e-rural"
)

type services struct {
	cfg   *config.Config
	log   logger.Logger
	pg    *database.PostgresClient
	redis *database.RedisClient
	es    *database.ElasticsearchClient
	index string
}

var env *services

func TestMain(m *testing.M) {
	if os.Getenv("E2E") == "" {
		fmt.Println("E2E not set, skipping end-to-end tests")
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		fmt.Printf("postgres: %v\n", err)
		os.Exit(1)
	}
	redis, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		fmt.Printf("redis: %v\n", err)
		os.Exit(1)
	}
	es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	if err != nil {
		fmt.Printf("elasticsearch: %v\n", err)
		os.Exit(1)
	}

	env = &services{
		cfg:   cfg,
		log:   logger.NewZapAdapter(logger.New("info", "console")),
		pg:    pg,
		redis: redis,
		es:    es,
		index: fmt.Sprintf("e2e-grants-%d", time.Now().Unix()),
	}

	code := m.Run()

	_ = redis.Close()
	_ = pg.Close()
	os.Exit(code)
}

func TestFullE2E(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	t.Run("connectivity", testConnectivity)

	seedPostgres(t, ctx, env.pg.DB)
	t.Cleanup(func() { cleanupPostgres(env.pg.DB) })

	seedElasticsearch(t, ctx)
	t.Cleanup(func() {
		_, _ = env.es.Client.Indices.Delete([]string{env.index})
	})

	t.Run("query-grants", testQueryGrants)
	t.Run("discover-grants", testDiscoverGrants)
	t.Run("search-grants", testSearchGrants)
	t.Run("analyze-grant-match", testAnalyzeGrantMatch)
	t.Run("sweep-match-cache", testSweepMatchCache)
}

func testConnectivity(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, env.pg.Ping(ctx), "postgres")
	require.NoError(t, env.redis.Ping(ctx), "redis")
	require.NoError(t, env.es.Ping(ctx), "elasticsearch")

	zeebe, err := camunda.NewClientFromConfig(env.cfg.Camunda)
	require.NoError(t, err)
	defer zeebe.Close()
	assert.NoError(t, zeebe.HealthCheck(ctx), "zeebe")
}

func deadline(days int) time.Time {
	return time.Now().UTC().AddDate(0, 0, days).Truncate(24 * time.Hour)
}

type fixtureGrant struct {
	id          string
	title       string
	categories  string
	eligibility string
	locations   string
	amountMax   float64
	deadline    time.Time
}

func fixtureGrants() []fixtureGrant {
	return []fixtureGrant{
		{
			id:          cropGrantID,
			title:       "E2E Crop Resilience Grant",
			categories:  `["Agriculture"]`,
			eligibility: `{"tags":["small_business"]}`,
			locations:   `[{"type":"state","value":"CA"}]`,
			amountMax:   50000,
			deadline:    deadline(30),
		},
		{
			id:          youthGrant,
			title:       "E2E Youth Arts Program",
			categories:  `["Arts"]`,
			eligibility: `{"tags":["nonprofit"]}`,
			locations:   `[{"type":"state","value":"NY"}]`,
			amountMax:   10000,
			deadline:    deadline(45),
		},
		{
			id:          ruralGrant,
			title:       "E2E Rural Agriculture Innovation",
			categories:  `["Agriculture","Technology"]`,
			eligibility: `[]`,
			locations:   `[{"type":"national"}]`,
			amountMax:   250000,
			deadline:    deadline(60),
		},
	}
}

func seedPostgres(t *testing.T, ctx context.Context, db *sql.DB) {
	t.Helper()

	queries := []string{
		`CREATE TABLE IF NOT EXISTS grants (
			id VARCHAR(255) PRIMARY KEY,
			title TEXT NOT NULL,
			sponsor TEXT,
			summary TEXT,
			description TEXT,
			categories TEXT,
			eligibility TEXT,
			locations TEXT,
			amount_min NUMERIC,
			amount_max NUMERIC,
			amount_text TEXT,
			funding_type VARCHAR(100),
			purpose_tags TEXT,
			deadline_date TIMESTAMP,
			status VARCHAR(50) NOT NULL DEFAULT 'open',
			quality_score INTEGER DEFAULT 0,
			url TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS user_profiles (
			user_id VARCHAR(255) PRIMARY KEY,
			entity_type VARCHAR(100),
			country VARCHAR(10),
			state VARCHAR(100),
			industry_tags TEXT,
			size_band VARCHAR(50),
			stage VARCHAR(50),
			annual_budget VARCHAR(50),
			grant_preferences TEXT,
			profile_version INTEGER DEFAULT 1
		)`,
	}
	for _, q := range queries {
		_, err := db.ExecContext(ctx, q)
		require.NoError(t, err)
	}
	cleanupPostgres(db)

	for _, g := range fixtureGrants() {
		_, err := db.ExecContext(ctx, `
			INSERT INTO grants (id, title, sponsor, categories, eligibility, locations,
			                    amount_max, deadline_date, status, quality_score, url)
			VALUES ($1, $2, 'E2E Foundation', $3, $4, $5, $6, $7, 'open', 80, $8)`,
			g.id, g.title, g.categories, g.eligibility, g.locations, g.amountMax, g.deadline,
			"https://grants.example.org/"+g.id,
		)
		require.NoError(t, err, g.id)
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO user_profiles (user_id, entity_type, country, state, industry_tags,
		                           size_band, stage, annual_budget, profile_version)
		VALUES ($1, 'small_business', 'US', 'CA', '["agriculture"]', 'small', 'growth', '50k_250k', 1)`,
		testUserID,
	)
	require.NoError(t, err)
}

func cleanupPostgres(db *sql.DB) {
	_, _ = db.Exec(`DELETE FROM grants WHERE id LIKE 'e2e-%'`)
	_, _ = db.Exec(`DELETE FROM user_profiles WHERE user_id LIKE 'e2e-%'`)
}

func seedElasticsearch(t *testing.T, ctx context.Context) {
	t.Helper()
	es := env.es.Client

	for _, g := range fixtureGrants() {
		doc := map[string]interface{}{
			"id":            g.id,
			"title":         g.title,
			"sponsor":       "E2E Foundation",
			"categories":    json.RawMessage(g.categories),
			"locations":     json.RawMessage(g.locations),
			"amount_max":    g.amountMax,
			"deadline_date": g.deadline,
			"status":        "open",
			"quality_score": 80,
			"url":           "https://grants.example.org/" + g.id,
		}
		body, err := json.Marshal(doc)
		require.NoError(t, err)

		res, err := es.Index(env.index, bytes.NewReader(body),
			es.Index.WithDocumentID(g.id),
			es.Index.WithRefresh("true"),
			es.Index.WithContext(ctx),
		)
		require.NoError(t, err)
		res.Body.Close()
		require.False(t, res.IsError(), res.String())
	}
}

func testQueryGrants(t *testing.T) {
	handler := qg.NewHandler(&qg.Config{Timeout: 10 * time.Second}, env.pg.DB, env.log)

	out, err := handler.Execute(context.Background(), &qg.Input{
		QueryType: string(models.QueryTypeGrantByID),
		GrantID:   cropGrantID,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, out.RowCount)
	grant, ok := out.Data.(*models.Grant)
	require.True(t, ok)
	assert.Equal(t, "E2E Crop Resilience Grant", grant.Title)

	out, err = handler.Execute(context.Background(), &qg.Input{
		QueryType: string(models.QueryTypeGrantIDsExist),
		GrantIDs:  []string{cropGrantID, "e2e-missing"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, out.RowCount)

	_, err = handler.Execute(context.Background(), &qg.Input{
		QueryType: string(models.QueryTypeUserProfile),
		UserID:    "e2e-nobody",
	})
	assert.ErrorIs(t, err, qg.ErrRecordNotFound)
}

func testDiscoverGrants(t *testing.T) {
	store := source.NewPostgresStore(env.pg.DB, env.log)
	matchCache := cache.NewRedisStore(env.redis.Client, time.Hour)
	p := pipeline.New(pipeline.ConfigFromMatching(env.cfg.Matching), env.log).WithCache(matchCache)

	handler := dg.NewHandler(&dg.Config{Timeout: 30 * time.Second, PoolSize: source.MaxPoolSize}, store, store, p, env.log)
	out, err := handler.Execute(context.Background(), &dg.Input{
		UserID:  testUserID,
		Options: map[string]interface{}{"limit": 50, "minScore": 0, "includeDebug": true},
	})
	require.NoError(t, err)
	assert.Contains(t, out.TopGrantIDs, cropGrantID)
	assert.Contains(t, out.TopGrantIDs, ruralGrant)
	assert.NotContains(t, out.TopGrantIDs, youthGrant)
	require.NotNil(t, out.Debug)
	assert.NotEmpty(t, out.Debug.RunID)
}

func testSearchGrants(t *testing.T) {
	searcher := source.NewElasticsearchGrantSearch(env.es.Client, env.index, env.log)
	cfg := sg.LoadConfig()
	cfg.Relevance = relevance.DefaultConfig()
	cfg.Relevance.MinScore = 0

	handler := sg.NewHandler(cfg, searcher, env.log)
	out, err := handler.Execute(context.Background(), &sg.Input{SearchTerm: "agriculture", Limit: 10})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, out.TotalHits, int64(2))

	var ids []string
	for _, r := range out.Results {
		ids = append(ids, r.Grant.ID)
	}
	assert.Contains(t, ids, cropGrantID)
	assert.Contains(t, ids, ruralGrant)
}

func testAnalyzeGrantMatch(t *testing.T) {
	store := source.NewPostgresStore(env.pg.DB, env.log)
	profile, err := store.GetProfile(context.Background(), testUserID)
	require.NoError(t, err)
	grant, err := store.GetGrant(context.Background(), cropGrantID)
	require.NoError(t, err)

	matchCache := cache.NewRedisStore(env.redis.Client, time.Hour)
	handler := agm.NewHandler(agm.LoadConfig(), nil, matchCache, env.log)

	out, err := handler.Execute(context.Background(), &agm.Input{Profile: profile, Grant: grant})
	require.NoError(t, err)
	assert.True(t, out.Eligibility.IsEligible)
	assert.True(t, out.Fallback)
	assert.Nil(t, out.Analysis)

	_, err = handler.Execute(context.Background(), &agm.Input{Profile: profile, Grant: grant, Required: true})
	assert.Error(t, err)
}

func testSweepMatchCache(t *testing.T) {
	ctx := context.Background()
	store := source.NewPostgresStore(env.pg.DB, env.log)
	matchCache := cache.NewRedisStore(env.redis.Client, time.Hour)

	orphan := &models.Grant{ID: "e2e-deleted-grant", Title: "Gone", UpdatedAt: time.Now().UTC()}
	kept, err := store.GetGrant(ctx, cropGrantID)
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, matchCache.Put(ctx, cache.NewEntry(testUserID, orphan, 1, models.MatchAnalysis{FitSummary: "stale"}, now, time.Hour)))
	require.NoError(t, matchCache.Put(ctx, cache.NewEntry(testUserID, kept, 1, models.MatchAnalysis{FitSummary: "fresh"}, now, time.Hour)))

	sweeper := cache.NewSweeper(matchCache, store, 100, env.log).WithUserChecker(store)
	handler := smc.NewHandler(&smc.Config{Timeout: time.Minute}, sweeper, env.log)

	out, err := handler.Execute(ctx, &smc.Input{Trigger: "e2e"})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, out.Report.OrphanGrant, 1)

	entry, err := matchCache.Get(ctx, testUserID, orphan.ID)
	assert.NoError(t, err)
	assert.Nil(t, entry)

	entry, err = matchCache.Get(ctx, testUserID, cropGrantID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "fresh", entry.Analysis.FitSummary)

	_, _ = matchCache.Delete(ctx, cache.Key(testUserID, cropGrantID))
}

func BenchmarkDiscoverGrants(b *testing.B) {
	if env == nil {
		b.Skip("services not configured")
	}
	store := source.NewPostgresStore(env.pg.DB, logger.NewNoOpLogger())
	p := pipeline.New(pipeline.DefaultConfig(), logger.NewNoOpLogger())
	handler := dg.NewHandler(dg.LoadConfig(), store, store, p, logger.NewNoOpLogger())
	input := &dg.Input{UserID: testUserID}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = handler.Execute(context.Background(), input)
	}
}
