package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/kaptinlin/jsonrepair"
	"go.uber.org/zap"

	"github.com/ogghst/puntini/internal/domain"
	"github.com/ogghst/puntini/internal/ports"
)

const (
	defaultModel     = "claude-sonnet-4-20250514"
	defaultMaxTokens = 4096
)

// Client implements ports.Planner against the Anthropic Messages API. Every
// call is a single synchronous completion; the response must be one JSON
// decision object.
type Client struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
	metrics   ports.MetricsCollector
	logger    *zap.Logger
}

// NewClient creates an Anthropic-backed planner. model may be empty to use
// the default.
func NewClient(apiKey, model string, metrics ports.MetricsCollector, logger *zap.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}
	if model == "" {
		model = defaultModel
	}

	return &Client{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     anthropic.Model(model),
		maxTokens: defaultMaxTokens,
		metrics:   metrics,
		logger:    logger,
	}, nil
}

// Decide sends one planner question and decodes the structured decision.
// A response that cannot be parsed into a valid decision comes back as a
// validation-coded error, which the failure classifier treats as
// systematic rather than transient.
func (c *Client) Decide(ctx context.Context, pc *domain.PlannerContext) (*domain.PlannerDecision, error) {
	prompt, err := buildPrompt(pc)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeValidation, err, "failed to build planner prompt")
	}

	start := time.Now()
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt(pc.Mode)},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	duration := time.Since(start)

	if err != nil {
		c.logger.Error("planner call failed",
			zap.String("mode", string(pc.Mode)),
			zap.Duration("duration", duration),
			zap.Error(err))
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}

	if c.metrics != nil {
		c.metrics.RecordPlannerCall(pc.Mode, duration,
			message.Usage.InputTokens, message.Usage.OutputTokens)
	}

	text := collectText(message)
	if text == "" {
		return nil, domain.NewError(domain.ErrCodeValidation, "planner returned no text content")
	}

	decision, err := decodeDecision(text)
	if err != nil {
		c.logger.Warn("planner output unparsable",
			zap.String("mode", string(pc.Mode)),
			zap.Int("response_length", len(text)),
			zap.Error(err))
		return nil, domain.WrapError(domain.ErrCodeValidation, err, "planner returned malformed decision")
	}

	c.logger.Debug("planner decision",
		zap.String("mode", string(pc.Mode)),
		zap.String("kind", string(decision.Kind)),
		zap.Duration("duration", duration),
		zap.Int64("input_tokens", message.Usage.InputTokens),
		zap.Int64("output_tokens", message.Usage.OutputTokens))

	return decision, nil
}

// buildPrompt serializes the planner context as the user message.
func buildPrompt(pc *domain.PlannerContext) (string, error) {
	payload, err := json.MarshalIndent(pc, "", "  ")
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Context:\n")
	b.Write(payload)
	b.WriteString("\n\nRespond with exactly one JSON object and nothing else.")
	return b.String(), nil
}

// systemPrompt names the contract for one planner mode.
func systemPrompt(mode domain.PlannerMode) string {
	var task string
	switch mode {
	case domain.ModeParseIntent:
		task = `Classify the goal. Respond with:
{"kind":"intent","intent":{"intent":"<short label>","complexity":"simple|complex","needs_context":<bool>,"mentions":["<entity mention>", ...]}}
Set needs_context true when the goal refers to entities that may already exist in the graph.`
	case domain.ModePlanStep:
		task = `Propose the single next tool call toward the goal. Respond with:
{"kind":"step","step":{"tool":"<tool name>","args":{...},"rationale":"<one sentence>"}}
Use only the tools listed in tool_signatures, with their required arguments.`
	case domain.ModeEvaluate:
		task = `Judge whether the goal is complete given the last tool result. Respond with:
{"kind":"evaluation","evaluation":{"verdict":"complete|continue|retry","summary":"<one sentence>"}}`
	default:
		task = "Respond with one JSON decision object."
	}

	return "You are the planning component of a graph mutation engine. " +
		"You decide one thing per call and answer with a single JSON object, no prose.\n\n" + task
}

// collectText concatenates the text blocks of the response.
func collectText(message *anthropic.Message) string {
	var b strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(b.String())
}

// decodeDecision parses model output into a decision, repairing almost-JSON
// (markdown fences, single quotes, trailing commas) before giving up.
func decodeDecision(text string) (*domain.PlannerDecision, error) {
	raw := stripFences(text)

	var decision domain.PlannerDecision
	if err := json.Unmarshal([]byte(raw), &decision); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(raw)
		if repairErr != nil {
			return nil, fmt.Errorf("unmarshal failed (%v) and repair failed: %w", err, repairErr)
		}
		if err := json.Unmarshal([]byte(repaired), &decision); err != nil {
			return nil, fmt.Errorf("unmarshal failed after repair: %w", err)
		}
	}

	if err := decision.Validate(); err != nil {
		return nil, err
	}
	return &decision, nil
}

// stripFences removes a surrounding markdown code fence, if any.
func stripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
