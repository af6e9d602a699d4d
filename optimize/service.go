// Package optimize implements the prompt-optimization workflows: running
// a strategy template against a model to produce an improved prompt, and
// comparing an original and optimized prompt on the same test input.
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

// ClientResolver resolves a (provider, model) pair to a ready client.
// Satisfied by registry.Registry.
type ClientResolver interface {
	Client(provider, model string) (*llm.Client, error)
}

// Request describes one optimization run.
type Request struct {
	Prompt   string
	Strategy string // defaults to templates.StrategyGeneral
	Provider string
	Model    string
	Config   *llm.GenerationConfig
}

// Result is the outcome of one optimization run.
type Result struct {
	TaskID          string
	OriginalPrompt  string
	OptimizedPrompt string
	Suggestions     []string
	Strategy        string
	Provider        string
	Model           string
	Duration        time.Duration
}

// Service runs prompt optimizations. The history store is optional;
// when present, every successful run is recorded.
type Service struct {
	clients ClientResolver
	store   *history.Store
	logger  zerolog.Logger
}

// NewService creates an optimization service. store may be nil to skip
// persistence.
func NewService(clients ClientResolver, store *history.Store, logger zerolog.Logger) *Service {
	return &Service{
		clients: clients,
		store:   store,
		logger:  logger.With().Str("component", "optimizeService").Logger(),
	}
}

// Optimize renders the strategy template for the request's prompt, runs
// it through the selected model, and returns the optimized prompt with
// improvement suggestions.
func (s *Service) Optimize(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, llm.NewInvalidRequestError("prompt must not be empty", nil)
	}
	strategy := req.Strategy
	if strategy == "" {
		strategy = templates.StrategyGeneral
	}

	metaPrompt, err := templates.Render(strategy, req.Prompt)
	if err != nil {
		return nil, err
	}

	client, err := s.clients.Client(req.Provider, req.Model)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	generated, err := client.Generate(ctx, metaPrompt, req.Config)
	if err != nil {
		return nil, fmt.Errorf("optimization call failed: %w", err)
	}

	result := &Result{
		TaskID:          uuid.NewString(),
		OriginalPrompt:  req.Prompt,
		OptimizedPrompt: generated.Text,
		Suggestions:     buildSuggestions(req.Prompt, strategy),
		Strategy:        strategy,
		Provider:        req.Provider,
		Model:           req.Model,
		Duration:        time.Since(started),
	}

	s.logger.Info().
		Str("taskId", result.TaskID).
		Str("strategy", strategy).
		Str("provider", req.Provider).
		Str("model", req.Model).
		Dur("duration", result.Duration).
		Msg("Optimized prompt")

	s.record(ctx, result)
	return result, nil
}

// record persists the run. Persistence failures are logged, not
// returned; losing a history row must not fail the optimization.
func (s *Service) record(ctx context.Context, result *Result) {
	if s.store == nil {
		return
	}
	err := s.store.SaveOptimization(ctx, &history.OptimizationRecord{
		ID:              result.TaskID,
		Provider:        result.Provider,
		Model:           result.Model,
		Strategy:        result.Strategy,
		OriginalPrompt:  result.OriginalPrompt,
		OptimizedPrompt: result.OptimizedPrompt,
		Suggestions:     result.Suggestions,
		Duration:        result.Duration,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("taskId", result.TaskID).Msg("Failed to record optimization run")
	}
}

// buildSuggestions derives usage suggestions from the prompt and the
// strategy applied.
func buildSuggestions(original, strategy string) []string {
	suggestions := []string{
		fmt.Sprintf("Applied the %s strategy", strategy),
		"Added structured prompt formatting",
		"Clarified the task requirements and output format",
	}
	if len(original) < 50 {
		suggestions = append(suggestions, "The original prompt was short; more detailed guidance was added")
	}
	if !strings.Contains(strings.ToLower(original), "example") {
		suggestions = append(suggestions, "Consider adding concrete examples when using the prompt")
	}
	return suggestions
}
