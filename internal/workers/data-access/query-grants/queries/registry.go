package queries

import (
	"context"
	"errors"
	"fmt"

	"grant-workers/internal/matching/source"
	"grant-workers/internal/models"
)

var (
	ErrMissingParam     = errors.New("missing required parameter")
	ErrUnknownQueryType = errors.New("unknown query type")
)

// Store is the read side of the grant database. *source.PostgresStore
// satisfies it.
type Store interface {
	ListGrants(ctx context.Context, filter source.GrantFilter) ([]*models.Grant, error)
	GetGrant(ctx context.Context, id string) (*models.Grant, error)
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	ExistingGrantIDs(ctx context.Context, ids []string) (map[string]bool, error)
	ExistingUserIDs(ctx context.Context, ids []string) (map[string]bool, error)
}

// QueryFunc returns: data, rowCount, executionTime (ms), error
type QueryFunc func(ctx context.Context, store Store, params map[string]interface{}) (interface{}, int, int64, error)

var Registry = map[models.QueryType]QueryFunc{
	models.QueryTypeOpenGrants:     OpenGrants,
	models.QueryTypeGrantsByStatus: GrantsByStatus,
	models.QueryTypeGrantByID:      GrantByID,
	models.QueryTypeUserProfile:    UserProfile,
	models.QueryTypeGrantIDsExist:  GrantIDsExist,
	models.QueryTypeUserIDsExist:   UserIDsExist,
}

func Execute(ctx context.Context, store Store, queryType models.QueryType, params map[string]interface{}) (interface{}, int, int64, error) {
	fn, exists := Registry[queryType]
	if !exists {
		return nil, 0, 0, fmt.Errorf("%w: %s", ErrUnknownQueryType, queryType)
	}
	return fn(ctx, store, params)
}

func stringParam(params map[string]interface{}, key string) (string, error) {
	v, ok := params[key].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingParam, key)
	}
	return v, nil
}

func stringsParam(params map[string]interface{}, key string) ([]string, error) {
	v, ok := params[key].([]string)
	if !ok || len(v) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingParam, key)
	}
	return v, nil
}
