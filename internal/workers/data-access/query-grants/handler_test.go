package querygrants

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"grant-workers/internal/common/logger"
	"grant-workers/internal/matching/source"
	"grant-workers/internal/matching/taxonomy"
	"grant-workers/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	return &Config{
		Timeout: 5 * time.Second,
	}
}

func createTestLogger(t *testing.T) logger.Logger {
	return logger.NewZapAdapter(zaptest.NewLogger(t))
}

func setupHandler(t *testing.T, config *Config) (*Handler, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewHandler(config, db, createTestLogger(t)), mock
}

var grantRowColumns = []string{
	"id", "title", "sponsor", "summary", "description", "categories", "eligibility", "locations",
	"amount_min", "amount_max", "amount_text", "funding_type", "purpose_tags", "deadline_date",
	"status", "quality_score", "url", "created_at", "updated_at",
}

var profileColumns = []string{
	"user_id", "entity_type", "country", "state", "industry_tags", "size_band",
	"stage", "annual_budget", "grant_preferences", "profile_version",
}

var updated = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

func farmGrantRows() *sqlmock.Rows {
	deadline := time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(grantRowColumns).AddRow(
		"g-farm", "Beginning Farmer Grant", "USDA", "Support for new farms", nil,
		`["Agriculture"]`, `{"tags":["small_business"]}`, `[{"type":"state","value":"California"}]`,
		nil, 25000.0, nil, "grant", `["farm"]`, deadline,
		"open", 85, "https://grants.example.org/farm", updated, updated)
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	tests := []struct {
		name           string
		input          *Input
		mockQuery      func(mock sqlmock.Sqlmock)
		validateOutput func(t *testing.T, output *Output)
	}{
		{
			name: "open grants filtered by state",
			input: &Input{
				QueryType: string(models.QueryTypeOpenGrants),
				Filters:   map[string]interface{}{"state": "california", "limit": 25.0, "status": "closed"},
			},
			mockQuery: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT id, title, .* FROM grants WHERE status = \$1 AND .* LIMIT \$4`).
					WithArgs("open", "CA", "California", 25).
					WillReturnRows(farmGrantRows())
			},
			validateOutput: func(t *testing.T, output *Output) {
				assert.Equal(t, 1, output.RowCount)
				grants, ok := output.Data.([]*models.Grant)
				require.True(t, ok)
				assert.Equal(t, "g-farm", grants[0].ID)
				assert.Equal(t, []models.Location{{Type: taxonomy.LocationState, Value: "CA"}}, grants[0].Locations)
			},
		},
		{
			name: "grants by status with no rows",
			input: &Input{
				QueryType: string(models.QueryTypeGrantsByStatus),
				Filters:   map[string]interface{}{"status": "closed"},
			},
			mockQuery: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM grants WHERE status = \$1 ORDER BY deadline_date ASC NULLS LAST, id LIMIT \$2`).
					WithArgs("closed", source.DefaultPoolSize).
					WillReturnRows(sqlmock.NewRows(grantRowColumns))
			},
			validateOutput: func(t *testing.T, output *Output) {
				assert.Equal(t, 0, output.RowCount)
				assert.Equal(t, []*models.Grant{}, output.Data)
			},
		},
		{
			name:  "grant by id",
			input: &Input{QueryType: string(models.QueryTypeGrantByID), GrantID: "g-farm"},
			mockQuery: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM grants WHERE id = \$1`).
					WithArgs("g-farm").
					WillReturnRows(farmGrantRows())
			},
			validateOutput: func(t *testing.T, output *Output) {
				assert.Equal(t, 1, output.RowCount)
				grant, ok := output.Data.(*models.Grant)
				require.True(t, ok)
				assert.Equal(t, "Beginning Farmer Grant", grant.Title)
				require.NotNil(t, grant.AmountMax)
				assert.Equal(t, 25000.0, *grant.AmountMax)
			},
		},
		{
			name:  "user profile",
			input: &Input{QueryType: string(models.QueryTypeUserProfile), UserID: "u-1"},
			mockQuery: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT user_id, entity_type, .* FROM user_profiles WHERE user_id = \$1`).
					WithArgs("u-1").
					WillReturnRows(sqlmock.NewRows(profileColumns).AddRow(
						"u-1", "Small Business", nil, "ca", `["Agriculture"]`, "small",
						"growth", "50k_250k", nil, 4))
			},
			validateOutput: func(t *testing.T, output *Output) {
				assert.Equal(t, 1, output.RowCount)
				profile, ok := output.Data.(*models.UserProfile)
				require.True(t, ok)
				assert.Equal(t, taxonomy.EntitySmallBusiness, profile.EntityType)
				assert.Equal(t, "CA", profile.State)
				assert.Equal(t, int64(4), profile.ProfileVersion)
			},
		},
		{
			name:  "grant ids exist",
			input: &Input{QueryType: string(models.QueryTypeGrantIDsExist), GrantIDs: []string{"g-1", "g-2", "g-3"}},
			mockQuery: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT id FROM grants WHERE id = ANY\(\$1\)`).
					WithArgs(sqlmock.AnyArg()).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("g-1").AddRow("g-3"))
			},
			validateOutput: func(t *testing.T, output *Output) {
				assert.Equal(t, 2, output.RowCount)
				assert.Equal(t, map[string]bool{"g-1": true, "g-2": false, "g-3": true}, output.Data)
			},
		},
		{
			name:  "user ids exist",
			input: &Input{QueryType: string(models.QueryTypeUserIDsExist), UserIDs: []string{"u-1", "u-2"}},
			mockQuery: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT user_id FROM user_profiles WHERE user_id = ANY\(\$1\)`).
					WithArgs(sqlmock.AnyArg()).
					WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u-2"))
			},
			validateOutput: func(t *testing.T, output *Output) {
				assert.Equal(t, 1, output.RowCount)
				assert.Equal(t, map[string]bool{"u-1": false, "u-2": true}, output.Data)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, mock := setupHandler(t, createTestConfig())
			tt.mockQuery(mock)

			output, err := handler.Execute(context.Background(), tt.input)
			require.NoError(t, err)
			require.NotNil(t, output)
			assert.GreaterOrEqual(t, output.QueryExecutionTime, int64(0))
			tt.validateOutput(t, output)

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name        string
		input       *Input
		mockQuery   func(mock sqlmock.Sqlmock)
		wantErr     error
		wantCode    string
		wantRetries int32
	}{
		{
			name:        "unknown query type",
			input:       &Input{QueryType: "franchise_outlets"},
			mockQuery:   func(mock sqlmock.Sqlmock) {},
			wantErr:     ErrInvalidQueryType,
			wantCode:    "INVALID_QUERY_TYPE",
			wantRetries: 0,
		},
		{
			name:        "grant by id without id",
			input:       &Input{QueryType: string(models.QueryTypeGrantByID)},
			mockQuery:   func(mock sqlmock.Sqlmock) {},
			wantErr:     ErrMissingParameter,
			wantCode:    "MISSING_PARAMETER",
			wantRetries: 0,
		},
		{
			name:        "grants by status without status",
			input:       &Input{QueryType: string(models.QueryTypeGrantsByStatus)},
			mockQuery:   func(mock sqlmock.Sqlmock) {},
			wantErr:     ErrMissingParameter,
			wantCode:    "MISSING_PARAMETER",
			wantRetries: 0,
		},
		{
			name:        "existence check without ids",
			input:       &Input{QueryType: string(models.QueryTypeUserIDsExist)},
			mockQuery:   func(mock sqlmock.Sqlmock) {},
			wantErr:     ErrMissingParameter,
			wantCode:    "MISSING_PARAMETER",
			wantRetries: 0,
		},
		{
			name:  "grant not found",
			input: &Input{QueryType: string(models.QueryTypeGrantByID), GrantID: "g-gone"},
			mockQuery: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM grants WHERE id = \$1`).WithArgs("g-gone").WillReturnError(sql.ErrNoRows)
			},
			wantErr:     ErrRecordNotFound,
			wantCode:    "RECORD_NOT_FOUND",
			wantRetries: 0,
		},
		{
			name:  "profile not found",
			input: &Input{QueryType: string(models.QueryTypeUserProfile), UserID: "u-gone"},
			mockQuery: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM user_profiles`).WithArgs("u-gone").WillReturnError(sql.ErrNoRows)
			},
			wantErr:     ErrRecordNotFound,
			wantCode:    "RECORD_NOT_FOUND",
			wantRetries: 0,
		},
		{
			name:  "database error",
			input: &Input{QueryType: string(models.QueryTypeOpenGrants)},
			mockQuery: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM grants`).WillReturnError(errors.New("connection reset by peer"))
			},
			wantErr:     ErrQueryExecutionFailed,
			wantCode:    "QUERY_EXECUTION_FAILED",
			wantRetries: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, mock := setupHandler(t, createTestConfig())
			tt.mockQuery(mock)

			output, err := handler.Execute(context.Background(), tt.input)
			require.Error(t, err)
			assert.Nil(t, output)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantCode, handler.mapErrorToCode(err))
			assert.Equal(t, tt.wantRetries, handler.getRetryCount(err))

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestHandler_Execute_Timeout(t *testing.T) {
	handler, mock := setupHandler(t, createTestConfig())
	mock.ExpectQuery(`FROM grants WHERE id = \$1`).
		WithArgs("g-slow").
		WillDelayFor(200 * time.Millisecond).
		WillReturnRows(farmGrantRows())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := handler.Execute(ctx, &Input{QueryType: string(models.QueryTypeGrantByID), GrantID: "g-slow"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQueryTimeout)
	assert.Equal(t, "QUERY_TIMEOUT", handler.mapErrorToCode(err))
	assert.Equal(t, int32(2), handler.getRetryCount(err))
}

func TestHandler_Execute_NilInput(t *testing.T) {
	handler, _ := setupHandler(t, createTestConfig())

	_, err := handler.Execute(context.Background(), nil)
	assert.Error(t, err)
}
