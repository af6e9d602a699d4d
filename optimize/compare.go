package optimize

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/promptlabs/promptopt/history"
	"github.com/promptlabs/promptopt/llm"
	"github.com/promptlabs/promptopt/templates"
)

// CompareRequest describes one original-vs-optimized comparison run.
type CompareRequest struct {
	OriginalPrompt  string
	OptimizedPrompt string
	TestInput       string
	Provider        string
	Model           string
	Config          *llm.GenerationConfig
}

// CompareMetrics summarizes the measurable differences between the two
// responses.
type CompareMetrics struct {
	OriginalLatency  time.Duration
	OptimizedLatency time.Duration
	// LatencyDelta is optimized minus original; negative means faster.
	LatencyDelta time.Duration

	OriginalTokens  int64
	OptimizedTokens int64

	OriginalLength  int
	OptimizedLength int
}

// CompareResult is the outcome of one comparison run.
type CompareResult struct {
	TaskID          string
	OriginalOutput  string
	OptimizedOutput string
	Analysis        string
	Metrics         CompareMetrics
	Provider        string
	Model           string
}

// Comparer runs both prompts against the same test input and asks the
// model to evaluate the difference. The history store is optional.
type Comparer struct {
	clients ClientResolver
	store   *history.Store
	logger  zerolog.Logger
}

// NewComparer creates a comparison service. store may be nil to skip
// persistence.
func NewComparer(clients ClientResolver, store *history.Store, logger zerolog.Logger) *Comparer {
	return &Comparer{
		clients: clients,
		store:   store,
		logger:  logger.With().Str("component", "compareService").Logger(),
	}
}

// Compare runs the original and optimized prompts on the same test
// input, measures both responses, and produces a model-written
// side-by-side analysis.
func (c *Comparer) Compare(ctx context.Context, req CompareRequest) (*CompareResult, error) {
	if strings.TrimSpace(req.OriginalPrompt) == "" || strings.TrimSpace(req.OptimizedPrompt) == "" {
		return nil, llm.NewInvalidRequestError("both prompts must be provided for comparison", nil)
	}
	if strings.TrimSpace(req.TestInput) == "" {
		return nil, llm.NewInvalidRequestError("test input must not be empty", nil)
	}

	client, err := c.clients.Client(req.Provider, req.Model)
	if err != nil {
		return nil, err
	}

	originalResult, err := client.Generate(ctx, applyPrompt(req.OriginalPrompt, req.TestInput), req.Config)
	if err != nil {
		return nil, fmt.Errorf("original prompt run failed: %w", err)
	}
	optimizedResult, err := client.Generate(ctx, applyPrompt(req.OptimizedPrompt, req.TestInput), req.Config)
	if err != nil {
		return nil, fmt.Errorf("optimized prompt run failed: %w", err)
	}

	analysisPrompt, err := templates.RenderComparison(templates.ComparisonData{
		OriginalPrompt:  req.OriginalPrompt,
		OptimizedPrompt: req.OptimizedPrompt,
		TestInput:       req.TestInput,
	})
	if err != nil {
		return nil, err
	}
	analysisResult, err := client.Generate(ctx, analysisPrompt, req.Config)
	if err != nil {
		return nil, fmt.Errorf("comparison analysis failed: %w", err)
	}

	result := &CompareResult{
		TaskID:          uuid.NewString(),
		OriginalOutput:  originalResult.Text,
		OptimizedOutput: optimizedResult.Text,
		Analysis:        analysisResult.Text,
		Metrics:         buildMetrics(originalResult, optimizedResult),
		Provider:        req.Provider,
		Model:           req.Model,
	}

	c.logger.Info().
		Str("taskId", result.TaskID).
		Str("provider", req.Provider).
		Str("model", req.Model).
		Dur("originalLatency", result.Metrics.OriginalLatency).
		Dur("optimizedLatency", result.Metrics.OptimizedLatency).
		Msg("Compared prompts")

	c.record(ctx, req, result)
	return result, nil
}

func (c *Comparer) record(ctx context.Context, req CompareRequest, result *CompareResult) {
	if c.store == nil {
		return
	}
	err := c.store.SaveComparison(ctx, &history.ComparisonRecord{
		ID:               result.TaskID,
		Provider:         req.Provider,
		Model:            req.Model,
		OriginalPrompt:   req.OriginalPrompt,
		OptimizedPrompt:  req.OptimizedPrompt,
		TestInput:        req.TestInput,
		OriginalOutput:   result.OriginalOutput,
		OptimizedOutput:  result.OptimizedOutput,
		Analysis:         result.Analysis,
		OriginalLatency:  result.Metrics.OriginalLatency,
		OptimizedLatency: result.Metrics.OptimizedLatency,
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("taskId", result.TaskID).Msg("Failed to record comparison run")
	}
}

// applyPrompt combines a prompt with the test input the way a user
// would paste content under an instruction.
func applyPrompt(prompt, testInput string) string {
	return prompt + "\n\n" + testInput
}

func buildMetrics(original, optimized *llm.Result) CompareMetrics {
	metrics := CompareMetrics{
		OriginalLatency:  original.Latency,
		OptimizedLatency: optimized.Latency,
		LatencyDelta:     optimized.Latency - original.Latency,
		OriginalLength:   len(original.Text),
		OptimizedLength:  len(optimized.Text),
	}
	if original.Usage != nil {
		metrics.OriginalTokens = original.Usage.PromptTokens + original.Usage.CompletionTokens
	}
	if optimized.Usage != nil {
		metrics.OptimizedTokens = optimized.Usage.PromptTokens + optimized.Usage.CompletionTokens
	}
	return metrics
}
