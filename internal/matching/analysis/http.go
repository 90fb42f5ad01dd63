package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	httpclient "grant-workers/internal/common/http"
	"grant-workers/internal/common/logger"
	"grant-workers/internal/models"
)

// HTTPAnalyzer calls the internal GenAI gateway.
type HTTPAnalyzer struct {
	baseURL     string
	client      *httpclient.Client
	maxTokens   int
	temperature float64
	logger      logger.Logger
}

func NewHTTPAnalyzer(baseURL string, maxRetries int, log logger.Logger) *HTTPAnalyzer {
	// no client timeout; the caller's context carries the deadline
	return &HTTPAnalyzer{
		baseURL:     strings.TrimRight(baseURL, "/"),
		client:      httpclient.NewClient(0).WithRetries(maxRetries),
		maxTokens:   800,
		temperature: 0.2,
		logger:      log.WithFields(map[string]interface{}{"analyzer": ProviderGateway}),
	}
}

func (a *HTTPAnalyzer) Name() string {
	return ProviderGateway
}

type gatewayResponse struct {
	Analysis *models.MatchAnalysis `json:"analysis"`
	Model    string                `json:"model"`
}

func (a *HTTPAnalyzer) Analyze(ctx context.Context, req Request) (*models.MatchAnalysis, error) {
	body, err := json.Marshal(map[string]interface{}{
		"system":          systemInstruction,
		"prompt":          BuildPrompt(req),
		"response_format": "json",
		"max_tokens":      a.maxTokens,
		"temperature":     a.temperature,
		"context": map[string]interface{}{
			"grantId": req.Grant.ID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}

	resp, err := a.client.PostJSON(ctx, a.baseURL+"/api/ai/match-analysis", body)
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer resp.Body.Close()

	var out gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode error: %v", ErrAnalysisFailed, err)
	}
	if out.Analysis == nil {
		return nil, fmt.Errorf("%w: empty analysis", ErrAnalysisFailed)
	}

	out.Analysis.Model = out.Model
	a.logger.Debug("Match analysis completed", map[string]interface{}{
		"grantId":    req.Grant.ID,
		"matchScore": out.Analysis.MatchScore,
	})
	return sanitize(out.Analysis, req), nil
}
