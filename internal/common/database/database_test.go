package database

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"grant-workers/internal/common/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedis_PingAgainstMiniredis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, client.Ping(context.Background()))
}

func TestNewRedis_URL(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := NewRedis(config.RedisConfig{Address: "redis://" + mr.Addr() + "/2"})
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, 2, client.Client.Options().DB)
	assert.NoError(t, client.Ping(context.Background()))
}

func TestNewRedis_InvalidAddress(t *testing.T) {
	_, err := NewRedis(config.RedisConfig{})
	assert.Error(t, err)

	_, err = NewRedis(config.RedisConfig{Address: "redis://:bad port"})
	assert.Error(t, err)
}

func TestPostgres_MissingTables(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT to_regclass`).WithArgs("grants").
		WillReturnRows(sqlmock.NewRows([]string{"to_regclass"}).AddRow("grants"))
	mock.ExpectQuery(`SELECT to_regclass`).WithArgs("user_profiles").
		WillReturnRows(sqlmock.NewRows([]string{"to_regclass"}).AddRow(nil))

	client := newPostgresClient(db, config.PostgresConfig{MaxConnections: 4})
	missing, err := client.MissingTables(context.Background(), MatchingTables...)
	require.NoError(t, err)
	assert.Equal(t, []string{"user_profiles"}, missing)
	assert.Equal(t, 4, db.Stats().MaxOpenConnections)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPostgres_DSN(t *testing.T) {
	cfg := config.PostgresConfig{
		Host: "db", Port: 5432, Database: "grants", User: "svc", Password: "pw", SSLMode: "disable",
		MaxConnections: 4, MaxIdle: 2,
	}
	assert.Equal(t, "host=db port=5432 user=svc password=pw dbname=grants sslmode=disable", cfg.GetDSN())

	client, err := NewPostgres(cfg)
	require.NoError(t, err)
	assert.NoError(t, client.Close())
}

func TestElasticsearch_IndexExists(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		expected bool
		wantErr  bool
	}{
		{name: "present", status: http.StatusOK, expected: true},
		{name: "missing", status: http.StatusNotFound, expected: false},
		{name: "server error", status: http.StatusInternalServerError, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("X-Elastic-Product", "Elasticsearch")
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			client, err := NewElasticsearch(config.ElasticsearchConfig{URL: srv.URL, GrantIndex: "grants"})
			require.NoError(t, err)

			exists, err := client.IndexExists(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, exists)
		})
	}
}
