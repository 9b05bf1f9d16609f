// Package llm talks to an OpenAI-compatible chat completions server (LM Studio
// by default) to turn a card description into a BRD.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/k2brd/k2brd/pkg/config"
	"github.com/k2brd/k2brd/pkg/logger"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// placeholderToken satisfies clients that insist on a bearer token; local
// servers ignore it.
const placeholderToken = "lm-studio"

var (
	// ErrProviderUnavailable is returned when the health probe fails.
	ErrProviderUnavailable = errors.New("generation provider unavailable")
	// ErrEmptyCompletion is returned when the provider answers without any choice.
	ErrEmptyCompletion = errors.New("generation provider returned no choices")
	// ErrModelRequired is returned when no model name is configured.
	ErrModelRequired = errors.New("generation model is required")
)

// Params are the sampling parameters sent with every completion.
type Params struct {
	Temperature float64
	MaxTokens   int
}

// Completer is the text-generation capability.
type Completer interface {
	Complete(ctx context.Context, prompt string, params Params) (string, error)
	HealthCheck(ctx context.Context) bool
}

// Client implements Completer on top of langchaingo's OpenAI client and adds
// the BRD prompt assembly.
type Client struct {
	model  llms.Model
	http   *resty.Client
	prompt PromptConfig
	params Params
}

// Option customizes a Client.
type Option func(*Client)

// WithModel replaces the langchaingo model, mainly for tests.
func WithModel(m llms.Model) Option {
	return func(c *Client) { c.model = m }
}

// WithPromptConfig overrides the instructions and temperature.
func WithPromptConfig(p PromptConfig) Option {
	return func(c *Client) {
		c.prompt = p
		c.params.Temperature = p.Temperature
	}
}

// NewClient builds a provider client from configuration.
func NewClient(cfg *config.LLMConfig, opts ...Option) (*Client, error) {
	host := strings.TrimRight(cfg.Host, "/")
	c := &Client{
		http: resty.New().
			SetBaseURL(host).
			SetTimeout(10 * time.Second).
			SetHeader("Accept", "application/json"),
		prompt: PromptConfig{Instructions: cfg.Instructions, Temperature: cfg.Temperature},
		params: Params{Temperature: cfg.Temperature, MaxTokens: cfg.MaxTokens},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.model == nil {
		if cfg.Model == "" {
			return nil, ErrModelRequired
		}
		token := cfg.APIKey.Value()
		if token == "" {
			token = placeholderToken
		}
		model, err := openai.New(
			openai.WithBaseURL(host+"/v1"),
			openai.WithToken(token),
			openai.WithModel(cfg.Model),
			openai.WithHTTPClient(&tokenLimitDoer{next: &http.Client{Timeout: cfg.Timeout}}),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create chat completions client: %w", err)
		}
		c.model = model
	}
	return c, nil
}

// Params returns the default sampling parameters of this client.
func (c *Client) Params() Params {
	return c.params
}

// Complete sends a single user message and returns the first choice's text.
func (c *Client) Complete(ctx context.Context, prompt string, params Params) (string, error) {
	log := logger.FromContext(ctx)
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}
	options := []llms.CallOption{llms.WithTemperature(params.Temperature)}
	if params.MaxTokens > 0 {
		options = append(options, llms.WithMaxTokens(params.MaxTokens))
	}
	log.Debug("Sending completion request", "prompt_chars", len(prompt), "max_tokens", params.MaxTokens)
	resp, err := c.model.GenerateContent(ctx, messages, options...)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Content, nil
}

// GenerateDocument builds the BRD prompt for one card and completes it.
func (c *Client) GenerateDocument(ctx context.Context, description string, promptCtx PromptContext) (string, error) {
	prompt, err := BuildPrompt(c.prompt.Instructions, promptCtx, description)
	if err != nil {
		return "", err
	}
	return c.Complete(ctx, prompt, c.params)
}

// HealthCheck probes GET {host}/v1/models and reports availability only on HTTP 200.
func (c *Client) HealthCheck(ctx context.Context) bool {
	resp, err := c.http.R().SetContext(ctx).Get("/v1/models")
	if err != nil {
		logger.FromContext(ctx).Warn("Provider health probe failed", "error", err)
		return false
	}
	return resp.StatusCode() == http.StatusOK
}
