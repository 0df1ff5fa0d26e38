// Package llm implements the LLM Client: a single gateway-configurable
// entry point that treats the model as an opaque text oracle. It never
// passes tool schemas to the API; the raw text response is handed to
// internal/actionparse instead of relying on native tool-calling.
package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
)

// Role distinguishes the two sides of a rendered conversation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the conversation handed to the model.
type Message struct {
	Role Role
	Text string
}

// Response is the model's reply, paired with the token counts billed for
// producing it.
type Response struct {
	Text      string
	TokensIn  int64
	TokensOut int64
}

// Caller is the narrow interface the Subagent and Orchestrator runtimes
// depend on, so tests can substitute a fake model instead of calling the
// gateway. *Client satisfies it.
type Caller interface {
	Call(ctx context.Context, system string, messages []Message) (Response, error)
}

// Config selects the gateway endpoint and model. Every field is sourced
// from an environment variable by internal/config; Config itself has no
// knowledge of env vars, keeping env parsing and client construction
// separate.
type Config struct {
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int64
}

// Client calls a LiteLLM-fronted model gateway through the Anthropic
// message format, tracking cumulative token usage with a TokenTracker.
type Client struct {
	inner       anthropic.Client
	model       anthropic.Model
	temperature float64
	maxTokens   int64
	tracker     *TokenTracker
}

// New creates a Client pointed at cfg.BaseURL with cfg.APIKey, aimed
// at an arbitrary gateway rather than the Anthropic API directly. A
// BaseURL of "bedrock" or "bedrock/<region>" selects the AWS Bedrock
// transport instead; credentials then come from the AWS default chain and
// no API key is needed.
func New(cfg Config) (*Client, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("llm: model is required")
	}

	model := anthropic.Model(cfg.Model)
	var opts []option.RequestOption

	if region, ok := bedrockBase(cfg.BaseURL); ok {
		var loadOpts []func(*awsconfig.LoadOptions) error
		if region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(region))
		}
		opts = append(opts, bedrock.WithLoadDefaultConfig(context.Background(), loadOpts...))
		model = translateModelForBedrock(model)
	} else {
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("llm: API key is required")
		}
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
		if cfg.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.BaseURL))
		}
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 8192
	}

	return &Client{
		inner:       anthropic.NewClient(opts...),
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
		tracker:     NewTokenTracker(),
	}, nil
}

// bedrockBase reports whether base selects the Bedrock transport, and the
// region it names, if any.
func bedrockBase(base string) (region string, ok bool) {
	if base == "bedrock" {
		return "", true
	}
	if strings.HasPrefix(base, "bedrock/") {
		return strings.TrimPrefix(base, "bedrock/"), true
	}
	return "", false
}

// translateModelForBedrock rewrites a gateway-form model id
// ("anthropic/claude-sonnet-4-5-20250929") into the cross-region Bedrock
// inference profile ("us.anthropic.claude-sonnet-4-5-20250929-v1:0").
// Ids already in Bedrock form pass through unchanged.
func translateModelForBedrock(model anthropic.Model) anthropic.Model {
	s := strings.TrimPrefix(string(model), "anthropic/")
	if strings.HasPrefix(s, "us.anthropic.") {
		return anthropic.Model(s)
	}
	return anthropic.Model("us.anthropic." + s + "-v1:0")
}

// Tracker returns the token tracker accumulating usage across every Call.
func (c *Client) Tracker() *TokenTracker {
	return c.tracker
}

// retryPolicy bounds Call's backoff: up to ten attempts, exponential
// delay doubling from 1s with ~10% jitter, capped at 60s.
const (
	maxAttempts  = 10
	initialDelay = 1 * time.Second
	maxDelay     = 60 * time.Second
)

// Call sends system+messages as a single completion request and returns
// the model's raw text, retrying transient failures with exponential
// backoff. A non-retryable error (e.g. invalid request, auth failure)
// surfaces immediately as a turn failure instead of being retried.
func (c *Client) Call(ctx context.Context, system string, messages []Message) (Response, error) {
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Min(
				float64(maxDelay),
				float64(initialDelay)*math.Pow(2, float64(attempt-1)),
			))
			delay += rand.N(delay/10 + 1)
			select {
			case <-ctx.Done():
				return Response{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := c.call(ctx, system, messages)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retryable(err) {
			return Response{}, err
		}
	}

	return Response{}, fmt.Errorf("llm: exhausted %d attempts: %w", maxAttempts, lastErr)
}

func (c *Client) call(ctx context.Context, system string, messages []Message) (Response, error) {
	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages:    toAnthropicMessages(messages),
		Temperature: anthropic.Float(c.temperature),
	}

	resp, err := c.inner.Messages.New(ctx, params)
	if err != nil {
		return Response{}, err
	}

	c.tracker.Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	var text string
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += variant.Text
		}
	}

	return Response{Text: text, TokensIn: resp.Usage.InputTokens, TokensOut: resp.Usage.OutputTokens}, nil
}

func toAnthropicMessages(messages []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		block := anthropic.NewTextBlock(m.Text)
		if m.Role == RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(block))
		} else {
			out = append(out, anthropic.NewUserMessage(block))
		}
	}
	return out
}

// retryable reports whether err represents a transient failure (rate
// limit, timeout, 5xx) worth retrying rather than a request the gateway
// will reject on every attempt.
func retryable(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429, 500, 502, 503, 504:
			return true
		default:
			return false
		}
	}
	// Network-level errors (no structured API error) are treated as
	// transient: a dropped connection to the gateway is worth retrying.
	return true
}

// TokenTracker accumulates input/output token usage across every Call made
// by a Client.
type TokenTracker struct {
	mu        sync.Mutex
	inputTok  int64
	outputTok int64
	calls     int
}

// NewTokenTracker creates an empty TokenTracker.
func NewTokenTracker() *TokenTracker {
	return &TokenTracker{}
}

// Add records one call's token usage.
func (t *TokenTracker) Add(input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inputTok += input
	t.outputTok += output
	t.calls++
}

// Total returns cumulative input and output tokens.
func (t *TokenTracker) Total() (input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inputTok, t.outputTok
}

// Calls returns the number of completions made through this tracker.
func (t *TokenTracker) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// Cost estimates the accumulated spend in USD. Uses approximate Sonnet
// pricing ($3/1M input, $15/1M output); update as pricing changes.
func (t *TokenTracker) Cost() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	inputCost := float64(t.inputTok) / 1_000_000 * 3.0
	outputCost := float64(t.outputTok) / 1_000_000 * 15.0
	return inputCost + outputCost
}
