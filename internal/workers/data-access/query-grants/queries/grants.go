package queries

import (
	"context"
	"fmt"
	"time"

	"grant-workers/internal/matching/source"
	"grant-workers/internal/matching/taxonomy"
	"grant-workers/internal/models"
)

func OpenGrants(ctx context.Context, store Store, params map[string]interface{}) (interface{}, int, int64, error) {
	filter := filterFrom(params)
	filter.Status = taxonomy.StatusOpen
	return listGrants(ctx, store, filter)
}

func GrantsByStatus(ctx context.Context, store Store, params map[string]interface{}) (interface{}, int, int64, error) {
	filter := filterFrom(params)
	if filter.Status == "" {
		return nil, 0, 0, fmt.Errorf("%w: filters.status", ErrMissingParam)
	}
	if !filter.Status.Valid() {
		return nil, 0, 0, fmt.Errorf("%w: unknown status %q", ErrMissingParam, filter.Status)
	}
	return listGrants(ctx, store, filter)
}

func listGrants(ctx context.Context, store Store, filter source.GrantFilter) (interface{}, int, int64, error) {
	start := time.Now()

	grants, err := store.ListGrants(ctx, filter)
	if err != nil {
		return nil, 0, 0, err
	}
	if grants == nil {
		grants = []*models.Grant{}
	}

	execTime := time.Since(start).Milliseconds()
	return grants, len(grants), execTime, nil
}

func GrantByID(ctx context.Context, store Store, params map[string]interface{}) (interface{}, int, int64, error) {
	grantID, err := stringParam(params, "grantId")
	if err != nil {
		return nil, 0, 0, err
	}

	start := time.Now()

	grant, err := store.GetGrant(ctx, grantID)
	if err != nil {
		return nil, 0, 0, err
	}

	execTime := time.Since(start).Milliseconds()
	return grant, 1, execTime, nil
}

func GrantIDsExist(ctx context.Context, store Store, params map[string]interface{}) (interface{}, int, int64, error) {
	ids, err := stringsParam(params, "grantIds")
	if err != nil {
		return nil, 0, 0, err
	}
	return existence(ctx, ids, store.ExistingGrantIDs)
}

func existence(ctx context.Context, ids []string, lookup func(context.Context, []string) (map[string]bool, error)) (interface{}, int, int64, error) {
	start := time.Now()

	found, err := lookup(ctx, ids)
	if err != nil {
		return nil, 0, 0, err
	}

	result := make(map[string]bool, len(ids))
	for _, id := range ids {
		result[id] = found[id]
	}

	execTime := time.Since(start).Milliseconds()
	return result, len(found), execTime, nil
}

// filterFrom reads the optional status, state and limit filters. Limits
// arrive as float64 from decoded job variables.
func filterFrom(params map[string]interface{}) source.GrantFilter {
	var filter source.GrantFilter
	filters, _ := params["filters"].(map[string]interface{})
	if filters == nil {
		return filter
	}
	if s, ok := filters["status"].(string); ok {
		filter.Status = taxonomy.GrantStatus(s)
	}
	if s, ok := filters["state"].(string); ok {
		filter.State = s
	}
	switch v := filters["limit"].(type) {
	case float64:
		filter.Limit = int(v)
	case int:
		filter.Limit = v
	}
	return filter
}
