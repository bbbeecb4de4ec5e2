// Package connectivity answers the network questions of the setup wizard:
// which npm registry is reachable and whether a model API accepts a key.
package connectivity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/glorpus-work/clawstrap/internal/logger"
	"github.com/glorpus-work/clawstrap/pkg/errors"
	"github.com/glorpus-work/clawstrap/pkg/netprobe"
)

// Registries and probe settings.
const (
	OfficialRegistry     = "https://registry.npmjs.org"
	MirrorRegistry       = "https://registry.npmmirror.com"
	OfficialRegistryAddr = "registry.npmjs.org:443"
	RegistryProbeTimeout = 3 * time.Second
	DefaultAPITimeout    = 15 * time.Second
	ProviderOllama       = "ollama"
	maxErrorBody         = 4 << 10
)

// DetectNPMRegistry returns the official registry when it accepts a TCP
// connection within RegistryProbeTimeout, otherwise the mirror.
func DetectNPMRegistry(ctx context.Context, prober netprobe.Prober) string {
	if prober.Reachable(ctx, OfficialRegistryAddr, RegistryProbeTimeout) {
		return OfficialRegistry
	}
	logger.Info("Official npm registry unreachable, using mirror", logger.Fields{"registry": MirrorRegistry})
	return MirrorRegistry
}

// APIRequest holds the test_api_connection arguments.
type APIRequest struct {
	Provider string `json:"provider"`
	APIKey   string `json:"api_key"`
	Endpoint string `json:"endpoint"`
	Model    string `json:"model"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

// Client probes model provider APIs.
type Client struct {
	client    *http.Client
	userAgent string
}

// NewClient creates a Client. A zero timeout uses DefaultAPITimeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultAPITimeout
	}
	return &Client{
		client:    &http.Client{Timeout: timeout},
		userAgent: "clawstrap/1.0",
	}
}

// TestAPIConnection sends the cheapest request the provider understands.
// Ollama gets GET /api/tags; everything else is treated as OpenAI compatible.
func (c *Client) TestAPIConnection(ctx context.Context, req APIRequest) (string, error) {
	base := strings.TrimRight(req.Endpoint, "/")
	if req.Provider == ProviderOllama {
		return c.testOllama(ctx, base)
	}

	body, err := json.Marshal(chatRequest{
		Model:     req.Model,
		Messages:  []chatMessage{{Role: "user", Content: "hi"}},
		MaxTokens: 5,
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to encode request")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "Connection failed")
	}
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", errors.Wrap(err, "Connection failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		logger.Debug("API connection ok", logger.Fields{"provider": req.Provider})
		return "Connection successful", nil
	}
	text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return "", fmt.Errorf("API returned %s - %s", resp.Status, string(text))
}

func (c *Client) testOllama(ctx context.Context, base string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/tags", http.NoBody)
	if err != nil {
		return "", errors.Wrap(err, "Cannot reach Ollama")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "Cannot reach Ollama")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return "Ollama connected", nil
	}
	return "", fmt.Errorf("Ollama returned status %s", resp.Status)
}
