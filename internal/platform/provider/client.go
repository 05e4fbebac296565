// Package provider is the read-only client for the external payment
// processor. It is used only by the admin reconciliation path to ask whether
// a stuck payment intent actually succeeded; all state-changing truth arrives
// via webhooks.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	cfgpkg "github.com/lendery/backend/pkg/config"
)

// ErrTimeout marks a reconciliation lookup that did not answer within the
// configured bound. Callers surface it as a typed failure, never hang.
var ErrTimeout = errors.New("payment provider request timed out")

// IntentStatus values mirror the processor's intent lifecycle.
type IntentStatus string

const (
	IntentStatusSucceeded  IntentStatus = "succeeded"
	IntentStatusProcessing IntentStatus = "processing"
	IntentStatusFailed     IntentStatus = "failed"
	IntentStatusCancelled  IntentStatus = "cancelled"
)

// Intent is the processor's view of one payment attempt.
type Intent struct {
	ID       string            `json:"id"`
	Status   IntentStatus      `json:"status"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Metadata map[string]string `json:"metadata"`
}

// IntentFetcher is the seam the override controller depends on.
type IntentFetcher interface {
	GetIntent(ctx context.Context, intentID string) (*Intent, error)
}

type Client struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	hc      *http.Client
	log     *zap.SugaredLogger
}

func NewClient(cfg *cfgpkg.Config, log *zap.SugaredLogger) *Client {
	timeout := cfg.Provider.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: cfg.Provider.BaseURL,
		apiKey:  cfg.Provider.APIKey,
		timeout: timeout,
		hc:      &http.Client{Timeout: timeout},
		log:     log,
	}
}

// GetIntent fetches one intent by id. The call is bounded by the configured
// timeout regardless of the caller's context.
func (c *Client) GetIntent(ctx context.Context, intentID string) (*Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := fmt.Sprintf("%s/v1/intents/%s", c.baseURL, url.PathEscape(intentID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build intent request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.hc.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			c.log.Warnw("provider_intent_timeout", "intent_id", intentID)
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("fetch intent: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch intent: provider returned %d", resp.StatusCode)
	}

	var it Intent
	if err := json.NewDecoder(resp.Body).Decode(&it); err != nil {
		return nil, fmt.Errorf("decode intent: %w", err)
	}
	return &it, nil
}

var _ IntentFetcher = (*Client)(nil)

var Module = fx.Options(
	fx.Provide(NewClient),
	fx.Provide(func(c *Client) IntentFetcher { return c }),
)
