package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"trustlens/internal/domain/models"
	"trustlens/pkg/logger"
)

// maxClassifyTextBytes truncates oversized text before sending it to the
// sidecar; spam verdicts stabilize long before this size.
const maxClassifyTextBytes = 4096

// healthCheckInterval is how long a health verdict is trusted before the
// sidecar is pinged again.
const healthCheckInterval = 30 * time.Second

// SidecarClassifier talks to the local model sidecar over HTTP. All three
// classifier surfaces (URL features, HTML features, raw text) live behind
// it. Callers must treat any error as "signal unavailable".
type SidecarClassifier struct {
	baseURL string
	client  *http.Client
	logger  *logger.Logger

	mu        sync.Mutex
	healthy   bool
	lastCheck time.Time
}

// NewSidecarClassifier creates the client. An empty baseURL yields a
// permanently unavailable classifier.
func NewSidecarClassifier(baseURL string, timeout time.Duration, log *logger.Logger) *SidecarClassifier {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &SidecarClassifier{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  log.WithComponent("sidecar"),
	}
}

// Available reports whether the sidecar answered a recent health ping.
// The verdict is cached briefly so every assessment does not ping.
func (c *SidecarClassifier) Available() bool {
	if c.baseURL == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if time.Since(c.lastCheck) < healthCheckInterval {
		return c.healthy
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.client.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		c.healthy = false
		c.lastCheck = time.Now()
		return false
	}
	resp, err := c.client.Do(req)
	if err == nil {
		resp.Body.Close()
	}

	c.healthy = err == nil && resp.StatusCode == http.StatusOK
	c.lastCheck = time.Now()
	if !c.healthy {
		c.logger.Debug().Msg("model sidecar unavailable")
	}
	return c.healthy
}

type classifyFeaturesRequest struct {
	Features []float64 `json:"features"`
}

type classifyTextRequest struct {
	Text string `json:"text"`
}

// ClassifyURL scores a URL feature vector as benign/malicious.
func (c *SidecarClassifier) ClassifyURL(ctx context.Context, features []float64) (models.Probability, error) {
	var prob models.Probability
	err := c.post(ctx, "/classify/url", classifyFeaturesRequest{Features: features}, &prob)
	return prob, err
}

// ClassifyHTML scores an HTML-structure feature vector.
func (c *SidecarClassifier) ClassifyHTML(ctx context.Context, features []float64) (models.Probability, error) {
	var prob models.Probability
	err := c.post(ctx, "/classify/html", classifyFeaturesRequest{Features: features}, &prob)
	return prob, err
}

// ClassifyText scores raw text as ham/spam, truncating oversized input.
func (c *SidecarClassifier) ClassifyText(ctx context.Context, text string) (models.HamSpam, error) {
	if len(text) > maxClassifyTextBytes {
		text = text[:maxClassifyTextBytes]
	}
	var hs models.HamSpam
	err := c.post(ctx, "/classify/text", classifyTextRequest{Text: text}, &hs)
	return hs, err
}

func (c *SidecarClassifier) post(ctx context.Context, path string, payload, dest any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("sidecar call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sidecar %s returned status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode sidecar response: %w", err)
	}
	return nil
}
