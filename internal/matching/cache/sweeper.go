package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"grant-workers/internal/common/logger"
	"grant-workers/internal/common/metrics"
)

// GrantChecker reports which of the given grant IDs still exist.
type GrantChecker interface {
	ExistingGrantIDs(ctx context.Context, ids []string) (map[string]bool, error)
}

// UserChecker reports which of the given user IDs still exist.
type UserChecker interface {
	ExistingUserIDs(ctx context.Context, ids []string) (map[string]bool, error)
}

const (
	ReasonExpired     = "expired"
	ReasonCorrupt     = "corrupt"
	ReasonOrphanGrant = "orphan_grant"
	ReasonOrphanUser  = "orphan_user"
)

type SweepReport struct {
	Scanned     int `json:"scanned"`
	Expired     int `json:"expired"`
	Corrupt     int `json:"corrupt"`
	OrphanGrant int `json:"orphanGrant"`
	OrphanUser  int `json:"orphanUser"`
	Deleted     int `json:"deleted"`
	Batches     int `json:"batches"`
}

// Sweeper removes expired, undecodable and orphaned entries. It runs
// independently of lookups.
type Sweeper struct {
	store     *RedisStore
	grants    GrantChecker
	users     UserChecker
	batchSize int64
	logger    logger.Logger
}

func NewSweeper(store *RedisStore, grants GrantChecker, batchSize int, log logger.Logger) *Sweeper {
	if batchSize <= 0 {
		batchSize = 200
	}
	return &Sweeper{
		store:     store,
		grants:    grants,
		batchSize: int64(batchSize),
		logger:    log.WithFields(map[string]interface{}{"component": "cache-sweeper"}),
	}
}

// WithUserChecker also deletes entries whose user no longer exists.
func (s *Sweeper) WithUserChecker(users UserChecker) *Sweeper {
	s.users = users
	return s
}

// Sweep walks every cache key once. Existence checks that fail abort the
// sweep; entries already deleted stay deleted.
func (s *Sweeper) Sweep(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	var cursor uint64
	for {
		keys, next, err := s.store.client.Scan(ctx, cursor, KeyPrefix+"*", s.batchSize).Result()
		if err != nil {
			return report, fmt.Errorf("%w: scan: %v", ErrCacheUnavailable, err)
		}
		if len(keys) > 0 {
			report.Batches++
			if err := s.sweepBatch(ctx, keys, &report); err != nil {
				return report, err
			}
		}
		if next == 0 {
			break
		}
		cursor = next
		if err := ctx.Err(); err != nil {
			return report, err
		}
	}

	s.logger.Info("Cache sweep completed", map[string]interface{}{
		"scanned":     report.Scanned,
		"deleted":     report.Deleted,
		"expired":     report.Expired,
		"corrupt":     report.Corrupt,
		"orphanGrant": report.OrphanGrant,
		"orphanUser":  report.OrphanUser,
	})
	return report, nil
}

type candidate struct {
	key     string
	userID  string
	grantID string
}

func (s *Sweeper) sweepBatch(ctx context.Context, keys []string, report *SweepReport) error {
	values, err := s.store.client.MGet(ctx, keys...).Result()
	if err != nil {
		return fmt.Errorf("%w: mget: %v", ErrCacheUnavailable, err)
	}
	now := s.store.now()

	doomed := map[string][]string{}
	var live []candidate
	for i, key := range keys {
		raw, ok := values[i].(string)
		if !ok {
			// expired or deleted between SCAN and MGET
			continue
		}
		report.Scanned++
		entry, err := decodeEntry(key, []byte(raw))
		switch {
		case err != nil:
			doomed[ReasonCorrupt] = append(doomed[ReasonCorrupt], key)
		case entry.Expired(now):
			doomed[ReasonExpired] = append(doomed[ReasonExpired], key)
		default:
			live = append(live, candidate{key: key, userID: entry.UserID, grantID: entry.GrantID})
		}
	}

	if len(live) > 0 && s.grants != nil {
		ids := uniqueIDs(live, func(c candidate) string { return c.grantID })
		exists, err := s.grants.ExistingGrantIDs(ctx, ids)
		if err != nil {
			return fmt.Errorf("check grant existence: %w", err)
		}
		live = partition(live, func(c candidate) bool { return exists[c.grantID] }, func(c candidate) {
			doomed[ReasonOrphanGrant] = append(doomed[ReasonOrphanGrant], c.key)
		})
	}
	if len(live) > 0 && s.users != nil {
		ids := uniqueIDs(live, func(c candidate) string { return c.userID })
		exists, err := s.users.ExistingUserIDs(ctx, ids)
		if err != nil {
			return fmt.Errorf("check user existence: %w", err)
		}
		partition(live, func(c candidate) bool { return exists[c.userID] }, func(c candidate) {
			doomed[ReasonOrphanUser] = append(doomed[ReasonOrphanUser], c.key)
		})
	}

	for _, reason := range []string{ReasonCorrupt, ReasonExpired, ReasonOrphanGrant, ReasonOrphanUser} {
		batch := doomed[reason]
		if len(batch) == 0 {
			continue
		}
		n, err := s.store.Delete(ctx, batch...)
		if err != nil {
			return err
		}
		report.Deleted += int(n)
		switch reason {
		case ReasonCorrupt:
			report.Corrupt += len(batch)
		case ReasonExpired:
			report.Expired += len(batch)
		case ReasonOrphanGrant:
			report.OrphanGrant += len(batch)
		case ReasonOrphanUser:
			report.OrphanUser += len(batch)
		}
		metrics.CacheSweepDeleted.WithLabelValues(reason).Add(float64(n))
	}
	return nil
}

func uniqueIDs(list []candidate, id func(candidate) string) []string {
	seen := make(map[string]bool, len(list))
	out := make([]string, 0, len(list))
	for _, c := range list {
		v := id(c)
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// partition returns the candidates for which keep is true and passes the
// rest to drop.
func partition(list []candidate, keep func(candidate) bool, drop func(candidate)) []candidate {
	out := list[:0]
	for _, c := range list {
		if keep(c) {
			out = append(out, c)
		} else {
			drop(c)
		}
	}
	return out
}

// RunPeriodic sweeps every interval until ctx is done.
func (s *Sweeper) RunPeriodic(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Warn("Cache sweep failed", map[string]interface{}{"error": err.Error()})
			}
		}
	}
}
