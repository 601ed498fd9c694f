package flowise

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/espelita/portfolio/backend/internal/config"
)

// ErrUnreachable marks transport failures: DNS, refused connections, resets.
var ErrUnreachable = errors.New("prediction service unreachable")

// StatusError is returned for any non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API Error: %d", e.StatusCode)
}

type predictionRequest struct {
	Question       string         `json:"question"`
	OverrideConfig overrideConfig `json:"overrideConfig"`
}

type overrideConfig struct {
	SessionID string `json:"sessionId"`
}

// Client talks to a Flowise chatflow prediction endpoint.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient builds a client for cfg. A missing chatflow id or API key is
// logged but not fatal; the service answers such requests with an error.
func NewClient(cfg config.FlowiseConfig, logger *zap.Logger, opts ...Option) (*Client, error) {
	endpoint, err := cfg.PredictionEndpoint()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled() {
		logger.Warn("flowise chatflow id or api key missing; predictions will fail",
			zap.Bool("has_chatflow_id", cfg.ChatflowID != ""),
			zap.Bool("has_api_key", cfg.APIKey != ""),
		)
	}

	c := &Client{
		endpoint:   endpoint,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.Named("flowise"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint returns the resolved prediction URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Predict posts question under sessionID and returns the display text of
// the answer. A cancelled ctx yields ctx.Err().
func (c *Client) Predict(ctx context.Context, sessionID, question string) (string, error) {
	payload, err := json.Marshal(predictionRequest{
		Question:       question,
		OverrideConfig: overrideConfig{SessionID: sessionID},
	})
	if err != nil {
		return "", fmt.Errorf("encode prediction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build prediction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.logger.Debug("prediction request",
		zap.String("session_id", sessionID),
		zap.Bool("has_api_key", c.apiKey != ""),
		zap.Int("question_len", len(question)),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("read prediction response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("prediction failed",
			zap.Int("status", resp.StatusCode),
			zap.String("body", truncate(string(body), 512)),
		)
		return "", &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	c.logger.Debug("prediction response",
		zap.Int("status", resp.StatusCode),
		zap.String("content_type", resp.Header.Get("Content-Type")),
		zap.Int("bytes", len(body)),
	)
	return DisplayText(body), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
