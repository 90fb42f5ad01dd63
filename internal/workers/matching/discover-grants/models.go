package discovergrants

import (
	"grant-workers/internal/matching/pipeline"
)

type Input struct {
	UserID  string                 `json:"userId"`
	Options map[string]interface{} `json:"options,omitempty"`
}

type Output struct {
	UserID      string                 `json:"userId"`
	Grants      []pipeline.RankedGrant `json:"grants"`
	TotalFound  int                    `json:"totalFound"`
	PoolSize    int                    `json:"poolSize"`
	Stats       pipeline.Stats         `json:"stats"`
	Debug       *pipeline.Debug        `json:"debug,omitempty"`
	TopGrantIDs []string               `json:"topGrantIds"`
}
