// Package source loads grants and profiles from storage and converts them
// into validated models. Rows that cannot be decoded are skipped and logged;
// only a failure to load the pool or the profile as a whole is an error.
package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"grant-workers/internal/common/logger"
	"grant-workers/internal/matching/taxonomy"
	"grant-workers/internal/models"
)

var (
	ErrProfileNotFound   = errors.New("PROFILE_NOT_FOUND")
	ErrProfileLoadFailed = errors.New("PROFILE_LOAD_FAILED")
	ErrGrantPoolFailed   = errors.New("GRANT_POOL_UNAVAILABLE")
	ErrGrantNotFound     = errors.New("GRANT_NOT_FOUND")
)

const (
	DefaultPoolSize = 300
	MaxPoolSize     = 1000
)

// GrantFilter narrows the candidate pool. A State keeps national grants and
// grants listing that state or no location at all.
type GrantFilter struct {
	Status taxonomy.GrantStatus
	State  string
	Limit  int
}

type GrantSource interface {
	ListGrants(ctx context.Context, filter GrantFilter) ([]*models.Grant, error)
}

type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
}

// PostgresStore reads grants and profiles. It also answers the cache
// sweeper's existence checks.
type PostgresStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresStore(db *sql.DB, log logger.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "postgres-source"}),
	}
}

const grantColumns = `id, title, sponsor, summary, description, categories, eligibility, locations,
		amount_min, amount_max, amount_text, funding_type, purpose_tags, deadline_date,
		status, quality_score, url, created_at, updated_at`

func (s *PostgresStore) ListGrants(ctx context.Context, filter GrantFilter) ([]*models.Grant, error) {
	if filter.Status == "" {
		filter.Status = taxonomy.StatusOpen
	}
	if filter.Limit <= 0 {
		filter.Limit = DefaultPoolSize
	}
	if filter.Limit > MaxPoolSize {
		filter.Limit = MaxPoolSize
	}

	query := `SELECT ` + grantColumns + `
		FROM grants
		WHERE status = $1`
	args := []interface{}{string(filter.Status)}
	if state, ok := taxonomy.NormalizeState(filter.State); ok {
		args = append(args, state, taxonomy.StateName(state))
		query += `
		  AND (locations IS NULL OR locations = '' OR locations = '[]'
		       OR locations ILIKE '%national%'
		       OR locations ILIKE '%' || $2 || '%'
		       OR locations ILIKE '%' || $3 || '%'
		       OR locations ILIKE '%region%')`
	}
	args = append(args, filter.Limit)
	query += fmt.Sprintf(`
		ORDER BY deadline_date ASC NULLS LAST, id
		LIMIT $%d`, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGrantPoolFailed, err)
	}
	defer rows.Close()

	var grants []*models.Grant
	skipped := 0
	for rows.Next() {
		var r grantRow
		if err := rows.Scan(r.dest()...); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrGrantPoolFailed, err)
		}
		g, err := r.toGrant()
		if err != nil {
			skipped++
			s.logger.Warn("Skipping malformed grant row", map[string]interface{}{
				"grantId": r.id,
				"error":   err.Error(),
			})
			continue
		}
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGrantPoolFailed, err)
	}

	s.logger.Debug("Loaded grant pool", map[string]interface{}{
		"count":   len(grants),
		"skipped": skipped,
		"state":   filter.State,
	})
	return grants, nil
}

func (s *PostgresStore) GetGrant(ctx context.Context, id string) (*models.Grant, error) {
	var r grantRow
	err := s.db.QueryRowContext(ctx, `SELECT `+grantColumns+`
		FROM grants
		WHERE id = $1`, id).Scan(r.dest()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrGrantNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return r.toGrant()
}

func (s *PostgresStore) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	var r profileRow
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, entity_type, country, state, industry_tags, size_band,
		       stage, annual_budget, grant_preferences, profile_version
		FROM user_profiles
		WHERE user_id = $1`, userID).Scan(r.dest()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileLoadFailed, err)
	}

	p, err := r.toProfile()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileLoadFailed, err)
	}
	return p, nil
}

func (s *PostgresStore) ExistingGrantIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	return s.existing(ctx, `SELECT id FROM grants WHERE id = ANY($1)`, ids)
}

func (s *PostgresStore) ExistingUserIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	return s.existing(ctx, `SELECT user_id FROM user_profiles WHERE user_id = ANY($1)`, ids)
}

func (s *PostgresStore) existing(ctx context.Context, query string, ids []string) (map[string]bool, error) {
	found := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[strings.TrimSpace(id)] = true
	}
	return found, rows.Err()
}
