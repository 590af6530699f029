package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// SafetyClassifier maps image bytes to a probability in [0,1] that the image
// is unsafe. Implementations must be deterministic for identical input, and
// a failure is a typed error, never a score.
type SafetyClassifier interface {
	Classify(ctx context.Context, imageData []byte) (float64, error)
}

// ClassifierService calls an external NSFW detection HTTP service.
type ClassifierService struct {
	client   *resty.Client
	endpoint string
	model    string
}

// ClassifierConfig holds configuration for the classifier adapter.
type ClassifierConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// NewClassifierService creates a new safety classifier adapter.
// Parameters:
//   - cfg: classifier configuration including endpoint and model.
// Returns:
//   - *ClassifierService: initialized classifier client wrapper.
func NewClassifierService(cfg *ClassifierConfig) *ClassifierService {
	client := resty.New()
	client.SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client.SetTimeout(timeout)

	return &ClassifierService{
		client:   client,
		endpoint: cfg.BaseURL + "/v1/classify",
		model:    cfg.Model,
	}
}

// GetModel returns the model name being used.
// Parameters: none.
// Returns:
//   - string: model identifier.
func (s *ClassifierService) GetModel() string {
	return s.model
}

type classifyRequest struct {
	Model string `json:"model"`
	Image string `json:"image"` // base64-encoded bytes
}

type classifyResponse struct {
	Scores map[string]float64 `json:"scores"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Classify sends the image to the external detector and folds the per-category
// scores into a single unsafe probability: porn + hentai + sexy, clamped to 1.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - imageData: raw image bytes.
// Returns:
//   - float64: unsafe probability in [0,1].
//   - error: wraps ErrClassifierUnavailable if the call or response fails.
func (s *ClassifierService) Classify(ctx context.Context, imageData []byte) (float64, error) {
	req := classifyRequest{
		Model: s.model,
		Image: base64.StdEncoding.EncodeToString(imageData),
	}

	var resp classifyResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(s.endpoint)

	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
	}
	if httpResp.StatusCode() != http.StatusOK {
		return 0, fmt.Errorf("%w: http status %d", ErrClassifierUnavailable, httpResp.StatusCode())
	}
	if resp.Error != nil {
		return 0, fmt.Errorf("%w: %s", ErrClassifierUnavailable, resp.Error.Message)
	}
	if resp.Scores == nil {
		return 0, fmt.Errorf("%w: malformed response", ErrClassifierUnavailable)
	}

	score := resp.Scores["porn"] + resp.Scores["hentai"] + resp.Scores["sexy"]
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, nil
}
