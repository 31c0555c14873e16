// Package llm talks to the Anthropic API for recipe extraction and
// modification. Responses are parsed and shape-validated before they reach
// the editing core; a failure here never produces a partially populated
// recipe.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mealdraft/mealdraft/internal/debug"
	"github.com/mealdraft/mealdraft/internal/recipe"
	"github.com/mealdraft/mealdraft/internal/telemetry"
)

const (
	maxRetries     = 3
	initialBackoff = 1 * time.Second
	maxTokens      = 2048
)

// errAPIKeyRequired is returned when no API key is available.
var errAPIKeyRequired = errors.New("API key required")

// ServiceError wraps any failure of the recipe acquisition service so
// callers can distinguish it from validation errors in the editing core.
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string { return fmt.Sprintf("recipe service: %s: %v", e.Op, e.Err) }
func (e *ServiceError) Unwrap() error { return e.Err }

// Client wraps the Anthropic API for recipe extraction and modification.
type Client struct {
	client         anthropic.Client
	model          anthropic.Model
	extractTmpl    *template.Template
	modifyTmpl     *template.Template
	maxRetries     uint64
	initialBackoff time.Duration
}

// New creates an API client. Env var ANTHROPIC_API_KEY takes precedence
// over the explicit apiKey.
func New(apiKey, model string) (*Client, error) {
	if envKey := os.Getenv("ANTHROPIC_API_KEY"); envKey != "" {
		apiKey = envKey
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: set ANTHROPIC_API_KEY", errAPIKeyRequired)
	}

	extractTmpl, err := template.New("extract").Parse(extractPromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse extract template: %w", err)
	}
	modifyTmpl, err := template.New("modify").Parse(modifyPromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse modify template: %w", err)
	}

	aiMetricsOnce.Do(initAIMetrics)

	return &Client{
		client:         anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:          anthropic.Model(model),
		extractTmpl:    extractTmpl,
		modifyTmpl:     modifyTmpl,
		maxRetries:     maxRetries,
		initialBackoff: initialBackoff,
	}, nil
}

// ExtractRecipe turns raw recipe text into a structured, validated recipe.
func (c *Client) ExtractRecipe(ctx context.Context, text string) (*recipe.Recipe, error) {
	var buf strings.Builder
	if err := c.extractTmpl.Execute(&buf, struct{ Text string }{Text: text}); err != nil {
		return nil, &ServiceError{Op: "extract", Err: err}
	}

	raw, err := c.callWithRetry(ctx, buf.String(), "extract")
	if err != nil {
		return nil, &ServiceError{Op: "extract", Err: err}
	}

	r, err := ParseRecipeResponse(raw)
	if err != nil {
		return nil, &ServiceError{Op: "extract", Err: err}
	}
	return r, nil
}

// ModifyRecipe applies a natural-language change request to the current
// recipe and returns the complete modified recipe.
func (c *Client) ModifyRecipe(ctx context.Context, current *recipe.Recipe, request string) (*recipe.Recipe, error) {
	data := struct{ Recipe, Request string }{Recipe: current.Markdown(), Request: request}
	var buf strings.Builder
	if err := c.modifyTmpl.Execute(&buf, data); err != nil {
		return nil, &ServiceError{Op: "modify", Err: err}
	}

	raw, err := c.callWithRetry(ctx, buf.String(), "modify")
	if err != nil {
		return nil, &ServiceError{Op: "modify", Err: err}
	}

	r, err := ParseRecipeResponse(raw)
	if err != nil {
		return nil, &ServiceError{Op: "modify", Err: err}
	}
	return r, nil
}

// recipePayload mirrors the JSON shape the prompts request.
type recipePayload struct {
	Name         string   `json:"name"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
	MakesMin     *int     `json:"makes_min"`
	MakesMax     *int     `json:"makes_max"`
	MakesUnit    string   `json:"makes_unit"`
}

// ParseRecipeResponse decodes a model response into a validated recipe.
// A fenced ```json block around the object is tolerated.
func ParseRecipeResponse(raw string) (*recipe.Recipe, error) {
	body := stripFences(strings.TrimSpace(raw))

	var payload recipePayload
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return nil, fmt.Errorf("response is not valid recipe JSON: %w", err)
	}

	r := &recipe.Recipe{
		Name:         strings.TrimSpace(payload.Name),
		Ingredients:  trimAll(payload.Ingredients),
		Instructions: trimAll(payload.Instructions),
		MakesMin:     payload.MakesMin,
		MakesMax:     payload.MakesMax,
		MakesUnit:    strings.TrimSpace(payload.MakesUnit),
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("extracted recipe failed validation: %w", err)
	}
	return r, nil
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func trimAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if t := strings.TrimSpace(it); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// aiMetrics holds lazily-initialized OTel instruments for Anthropic calls.
var aiMetrics struct {
	inputTokens  metric.Int64Counter
	outputTokens metric.Int64Counter
	duration     metric.Float64Histogram
}

var aiMetricsOnce sync.Once

func initAIMetrics() {
	m := telemetry.Meter("github.com/mealdraft/mealdraft/llm")
	aiMetrics.inputTokens, _ = m.Int64Counter("mealdraft.ai.input_tokens",
		metric.WithDescription("Anthropic API input tokens consumed"),
		metric.WithUnit("{token}"),
	)
	aiMetrics.outputTokens, _ = m.Int64Counter("mealdraft.ai.output_tokens",
		metric.WithDescription("Anthropic API output tokens generated"),
		metric.WithUnit("{token}"),
	)
	aiMetrics.duration, _ = m.Float64Histogram("mealdraft.ai.request.duration",
		metric.WithDescription("Anthropic API request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
}

func (c *Client) callWithRetry(ctx context.Context, prompt, operation string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initialBackoff
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.maxRetries), ctx)

	var text string
	err := backoff.Retry(func() error {
		t0 := time.Now()
		message, err := c.client.Messages.New(ctx, params)
		ms := float64(time.Since(t0).Milliseconds())

		if err != nil {
			if !isRetryable(err) {
				return backoff.Permanent(err)
			}
			debug.Logf("llm: retryable %s error: %v\n", operation, err)
			return err
		}

		modelAttr := attribute.String("mealdraft.ai.model", string(c.model))
		opAttr := attribute.String("mealdraft.ai.operation", operation)
		if aiMetrics.inputTokens != nil {
			aiMetrics.inputTokens.Add(ctx, message.Usage.InputTokens, metric.WithAttributes(modelAttr, opAttr))
			aiMetrics.outputTokens.Add(ctx, message.Usage.OutputTokens, metric.WithAttributes(modelAttr, opAttr))
			aiMetrics.duration.Record(ctx, ms, metric.WithAttributes(modelAttr, opAttr))
		}

		if len(message.Content) == 0 {
			return backoff.Permanent(errors.New("unexpected response format: no content blocks"))
		}
		content := message.Content[0]
		if content.Type != "text" {
			return backoff.Permanent(fmt.Errorf("unexpected response format: not a text block (type=%s)", content.Type))
		}
		text = content.Text
		return nil
	}, policy)

	if err != nil {
		return "", err
	}
	return text, nil
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return false
}
