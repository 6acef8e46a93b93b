package quality

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fyrsmithlabs/memengine/internal/errs"
)

// RemoteTierConfig configures one of the two hosted-LLM tiers (spec.md
// §4.7 tiers 3 and 4). A tier with an empty Endpoint declares itself
// unavailable at every call, so the chain falls through to the next
// tier without ever dialing out — this is how "remote LLM B" stays a
// no-op until an operator wires a second endpoint.
type RemoteTierConfig struct {
	Name     string
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// ApplyDefaults fills unset fields.
func (c *RemoteTierConfig) ApplyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
}

// RemoteTier calls a hosted scoring endpoint: POST {query, content} ->
// {score}. It is deliberately a narrow internal interface rather than a
// full LLM orchestration client — the chain needs one scalar back, not
// chat completions, tool use, or streaming.
type RemoteTier struct {
	cfg    RemoteTierConfig
	client *http.Client
}

// NewRemoteTier constructs a RemoteTier. Pass an httpClient of nil to
// use a new http.Client with cfg.Timeout.
func NewRemoteTier(cfg RemoteTierConfig, httpClient *http.Client) *RemoteTier {
	cfg.ApplyDefaults()
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &RemoteTier{cfg: cfg, client: httpClient}
}

func (t *RemoteTier) Name() string {
	if t.cfg.Name != "" {
		return t.cfg.Name
	}
	return "remote"
}

type remoteScoreRequest struct {
	Query   string `json:"query,omitempty"`
	Content string `json:"content"`
}

type remoteScoreResponse struct {
	Score float64 `json:"score"`
}

// Score calls the configured endpoint. Network failures and rate limits
// map to errs.ErrEvaluatorUnavailable (triggering fallback to the next
// tier), not errs.ErrTransient: unlike the sync engine's mirror writes,
// a quality score that cannot be computed right now degrades gracefully
// to the next tier instead of being retried.
func (t *RemoteTier) Score(ctx context.Context, req ScoreRequest) (float64, error) {
	if t.cfg.Endpoint == "" {
		return 0, fmt.Errorf("%w: remote tier %s has no endpoint configured", errs.ErrEvaluatorUnavailable, t.Name())
	}

	body, err := json.Marshal(remoteScoreRequest{Query: req.Query, Content: req.Content})
	if err != nil {
		return 0, fmt.Errorf("%w: encoding request: %v", errs.ErrEvaluatorUnavailable, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("%w: building request: %v", errs.ErrEvaluatorUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if t.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+t.cfg.APIKey)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("%w: calling %s: %v", errs.ErrEvaluatorUnavailable, t.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return 0, fmt.Errorf("%w: %s returned status %d", errs.ErrEvaluatorUnavailable, t.Name(), resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: %s returned status %d", errs.ErrEvaluatorUnavailable, t.Name(), resp.StatusCode)
	}

	var out remoteScoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("%w: decoding response: %v", errs.ErrEvaluatorUnavailable, err)
	}
	return clamp01(out.Score), nil
}

var _ Tier = (*RemoteTier)(nil)
