package queries

import (
	"context"
	"time"
)

func UserProfile(ctx context.Context, store Store, params map[string]interface{}) (interface{}, int, int64, error) {
	userID, err := stringParam(params, "userId")
	if err != nil {
		return nil, 0, 0, err
	}

	start := time.Now()

	profile, err := store.GetProfile(ctx, userID)
	if err != nil {
		return nil, 0, 0, err
	}

	execTime := time.Since(start).Milliseconds()
	return profile, 1, execTime, nil
}

func UserIDsExist(ctx context.Context, store Store, params map[string]interface{}) (interface{}, int, int64, error) {
	ids, err := stringsParam(params, "userIds")
	if err != nil {
		return nil, 0, 0, err
	}
	return existence(ctx, ids, store.ExistingUserIDs)
}
