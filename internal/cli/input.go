package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"grant-workers/internal/common/logger"
	"grant-workers/internal/models"
)

func loadProfile(path string) (*models.UserProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	var profile models.UserProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", path, err)
	}
	return &profile, nil
}

// loadGrants reads a JSON array of grants, or an object with a "grants"
// array as written by the discover-grants worker. Grants that fail
// validation are logged and dropped.
func loadGrants(path string, log logger.Logger) ([]*models.Grant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read grants: %w", err)
	}

	var grants []*models.Grant
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapper struct {
			Grants []*models.Grant `json:"grants"`
		}
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, fmt.Errorf("decode grants %s: %w", path, err)
		}
		grants = wrapper.Grants
	} else if err := json.Unmarshal(data, &grants); err != nil {
		return nil, fmt.Errorf("decode grants %s: %w", path, err)
	}

	valid := grants[:0]
	for _, g := range grants {
		if g == nil {
			continue
		}
		g.Normalize()
		if err := g.Validate(); err != nil {
			log.Warn("Skipping malformed grant", map[string]interface{}{
				"grantId": g.ID,
				"error":   err.Error(),
			})
			continue
		}
		valid = append(valid, g)
	}
	return valid, nil
}

// parseNow reads --now; empty means the wall clock.
func parseNow(s string) (func() time.Time, error) {
	if s == "" {
		return func() time.Time { return time.Now().UTC() }, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		if t, err = time.Parse("2006-01-02", s); err != nil {
			return nil, fmt.Errorf("invalid --now %q: use RFC3339 or YYYY-MM-DD", s)
		}
	}
	return func() time.Time { return t }, nil
}
