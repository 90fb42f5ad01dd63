package parsediscoveryoptions

import "grant-workers/internal/matching/pipeline"

type Input struct {
	Options map[string]interface{} `json:"options"`
}

type Output struct {
	Options      pipeline.Options `json:"options"`
	LimitClamped bool             `json:"limitClamped"`
}
