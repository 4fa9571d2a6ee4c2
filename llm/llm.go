package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/flarexio/docrag/fault"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultMaxTokens = 512

	Placeholder = "[LLM endpoint not configured] This is a stubbed response. Provide a real LLM_ENDPOINT to get model answers."

	maxErrorBody = 512
)

type Provider string

const (
	ProviderGeneric Provider = ""
	ProviderOpenAI  Provider = "openai"
	ProviderGroq    Provider = "groq"
	ProviderKlangoo Provider = "klangoo"
	ProviderOllama  Provider = "ollama"
)

func (p Provider) String() string {
	if p == ProviderGeneric {
		return "generic"
	}

	return string(p)
}

type Config struct {
	Endpoint    string        `yaml:"endpoint"`
	APIKey      string        `yaml:"apiKey"`
	Provider    Provider      `yaml:"provider"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"maxTokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Generator produces an answer for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// ProviderError reports a failed call to the answer provider: a network
// failure (Status 0) or a non-2xx response.
type ProviderError struct {
	Provider Provider
	Status   int
	Body     string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("llm provider %s: %v", e.Provider, e.Err)
	}

	return fmt.Sprintf("llm provider %s returned status %d: %s", e.Provider, e.Status, e.Body)
}

func (e *ProviderError) Unwrap() []error {
	if e.Err == nil {
		return []error{fault.ErrUpstreamProvider}
	}

	return []error{fault.ErrUpstreamProvider, e.Err}
}

type Client struct {
	cfg     Config
	binding Binding
	client  *http.Client
	log     *zap.Logger
}

func NewClient(cfg Config) (*Client, error) {
	cfg.Provider = Provider(strings.ToLower(strings.TrimSpace(string(cfg.Provider))))
	if cfg.Provider == "generic" {
		cfg.Provider = ProviderGeneric
	}

	binding, ok := bindings[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: unknown llm provider %q", fault.ErrConfiguration, cfg.Provider)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	log := zap.L().With(
		zap.String("component", "llm"),
		zap.String("provider", cfg.Provider.String()),
	)

	return &Client{
		cfg:     cfg,
		binding: binding,
		client:  &http.Client{Timeout: cfg.Timeout},
		log:     log,
	}, nil
}

func (c *Client) Configured() bool {
	return c.cfg.Endpoint != ""
}

// Generate sends the prompt to the configured provider and extracts the
// answer text. Without an endpoint it returns Placeholder. maxTokens <= 0
// falls back to the configured limit.
func (c *Client) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if !c.Configured() {
		return Placeholder, nil
	}

	if maxTokens <= 0 {
		maxTokens = c.cfg.MaxTokens
	}

	body, err := json.Marshal(c.binding.Body(c.cfg, prompt, maxTokens))
	if err != nil {
		return "", err
	}

	url := c.binding.URL(c.cfg.Endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: invalid llm endpoint: %w", fault.ErrConfiguration, err)
	}

	req.Header.Set("Content-Type", "application/json")

	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if fault.IsTimeout(err) {
			return "", fmt.Errorf("%w: llm provider %s: %w", fault.ErrUpstreamTimeout, c.binding.Name, err)
		}

		return "", &ProviderError{
			Provider: c.binding.Name,
			Err:      err,
		}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if fault.IsTimeout(err) {
			return "", fmt.Errorf("%w: llm provider %s: %w", fault.ErrUpstreamTimeout, c.binding.Name, err)
		}

		return "", &ProviderError{
			Provider: c.binding.Name,
			Status:   resp.StatusCode,
			Err:      err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(data)
		if len(snippet) > maxErrorBody {
			snippet = strings.ToValidUTF8(snippet[:maxErrorBody], "")
		}

		return "", &ProviderError{
			Provider: c.binding.Name,
			Status:   resp.StatusCode,
			Body:     snippet,
		}
	}

	return c.extract(data), nil
}

// extract returns the first string found by the binding rules. When none
// matches, the whole body is returned so that the caller still sees what the
// provider said.
func (c *Client) extract(data []byte) string {
	if !gjson.ValidBytes(data) {
		c.log.Warn(fault.ErrPartialResponseParse.Error(), zap.String("reason", "response is not json"))
		return strings.TrimSpace(string(data))
	}

	for _, rule := range c.binding.Rules {
		result := gjson.GetBytes(data, rule)
		if result.Type == gjson.String {
			return strings.TrimSpace(result.String())
		}
	}

	c.log.Warn(fault.ErrPartialResponseParse.Error(), zap.Strings("rules", c.binding.Rules))

	return gjson.GetBytes(data, "@ugly").Raw
}

// IsProviderError reports whether err came from the answer provider.
func IsProviderError(err error) bool {
	var perr *ProviderError
	return errors.As(err, &perr)
}
