package analysis

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"grant-workers/internal/common/logger"
	"grant-workers/internal/models"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiAnalyzer asks Gemini for a structured match explanation.
type GeminiAnalyzer struct {
	client *genai.Client
	model  string
	logger logger.Logger
}

func NewGeminiAnalyzer(ctx context.Context, apiKey, model string, log logger.Logger) (*GeminiAnalyzer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiAnalyzer{
		client: client,
		model:  model,
		logger: log.WithFields(map[string]interface{}{"analyzer": ProviderGemini, "model": model}),
	}, nil
}

func (a *GeminiAnalyzer) Name() string {
	return ProviderGemini + ":" + a.model
}

func (a *GeminiAnalyzer) Analyze(ctx context.Context, req Request) (*models.MatchAnalysis, error) {
	userContent := &genai.Content{
		Parts: []*genai.Part{{Text: BuildPrompt(req)}},
		Role:  "user",
	}

	resp, err := a.client.Models.GenerateContent(ctx, a.model, []*genai.Content{userContent}, &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemInstruction}}},
		ResponseMIMEType:  "application/json",
		ResponseSchema:    responseSchema(),
		Temperature:       genai.Ptr[float32](0.2),
	})
	if err != nil {
		return nil, classify(ctx, fmt.Errorf("gemini API call failed: %w", err))
	}

	respText := resp.Text()
	var analysis models.MatchAnalysis
	if err := json.Unmarshal([]byte(respText), &analysis); err != nil {
		a.logger.Warn("Unparseable gemini response", map[string]interface{}{
			"grantId": req.Grant.ID,
			"error":   err.Error(),
		})
		return nil, fmt.Errorf("%w: decode gemini response: %v", ErrAnalysisFailed, err)
	}
	analysis.Model = a.model
	return sanitize(&analysis, req), nil
}

func responseSchema() *genai.Schema {
	list := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}, Description: desc}
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"fitSummary":        {Type: genai.TypeString, Description: "Two sentence summary of the fit."},
			"whyMatch":          list("Concrete reasons the grant fits the applicant."),
			"eligibilityStatus": {Type: genai.TypeString, Enum: []string{"eligible", "likely", "uncertain", "ineligible"}},
			"matchScore":        {Type: genai.TypeInteger, Description: "Fit from 0 to 100."},
			"confidence":        {Type: genai.TypeString, Enum: []string{"high", "medium", "low"}},
			"nextSteps":         list("Actions the applicant should take before applying."),
			"concerns":          list("Risks or gaps in the application."),
		},
		Required: []string{"fitSummary", "whyMatch", "eligibilityStatus", "matchScore", "confidence"},
	}
}
