// Package templates holds the prompt-optimization strategy templates and
// the comparison-evaluation template. Strategies are meta-prompts: each
// one instructs a model how to rewrite the user's prompt from a
// particular angle.
package templates

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/samber/lo"

	"github.com/promptlabs/promptopt/llm"
)

// Strategy keys. The set is closed; Render rejects anything else.
const (
	StrategyGeneral      = "general"
	StrategyStructured   = "structured"
	StrategyRoleBased    = "role_based"
	StrategyTaskOriented = "task_oriented"
	StrategyCreative     = "creative"
	StrategyLogical      = "logical"
)

// Strategy describes one optimization strategy for display purposes.
type Strategy struct {
	Key         string
	Name        string
	Description string
}

// Strategies returns the available strategies in display order.
func Strategies() []Strategy {
	return []Strategy{
		{Key: StrategyGeneral, Name: "General", Description: "General-purpose optimization suitable for most prompts"},
		{Key: StrategyStructured, Name: "Structured", Description: "Adds explicit structure and output format requirements"},
		{Key: StrategyRoleBased, Name: "Role-based", Description: "Optimizes around a specific role or persona"},
		{Key: StrategyTaskOriented, Name: "Task-oriented", Description: "Optimizes toward a concrete task and deliverables"},
		{Key: StrategyCreative, Name: "Creative", Description: "Boosts creativity and expressiveness"},
		{Key: StrategyLogical, Name: "Logical", Description: "Strengthens reasoning and analytical rigor"},
	}
}

// StrategyKeys returns the valid strategy keys in display order.
func StrategyKeys() []string {
	return lo.Map(Strategies(), func(s Strategy, _ int) string { return s.Key })
}

const generalTemplate = `You are an expert prompt engineer. Optimize the following prompt so it is clearer, more effective, and easier to follow.

Original prompt:
{{.Prompt}}

Apply these optimizations:
1. Make the goal and intent explicit
2. Improve wording and structure
3. Add any context the task needs
4. Ensure every instruction is unambiguous
5. Improve formatting and readability

Provide:
1. The optimized prompt
2. Notes on what was improved and why
3. Usage suggestions`

const structuredTemplate = `You are an expert in structured thinking. Rework the following prompt to add explicit structure, format requirements, and output specifications.

Original prompt:
{{.Prompt}}

Apply these optimizations:
1. Specify a concrete output format (JSON, Markdown, table, and so on)
2. Define clear steps and workflow
3. Add input and output specifications
4. Add error handling requirements
5. State success criteria and how to verify them

Provide the structured, optimized version.`

const roleBasedTemplate = `You are an expert in persona design. Add a fitting role definition to the following prompt so it becomes more authoritative and targeted.

Original prompt:
{{.Prompt}}

Apply these optimizations:
1. Define a clear role identity (expert, assistant, mentor, and so on)
2. Set an appropriate tone and style
3. Add relevant professional background and domain knowledge
4. Refine the interaction and response style
5. Keep the persona consistent throughout

Provide the role-based, optimized version.`

const taskOrientedTemplate = `You are an expert in task decomposition. Rework the following prompt so it drives concrete task execution.

Original prompt:
{{.Prompt}}

Apply these optimizations:
1. State the task goal and deliverables explicitly
2. Break the task into steps and milestones
3. Add timing and prioritization guidance
4. Add quality standards and acceptance criteria
5. Clarify required resources and dependencies

Provide the task-oriented, optimized version.`

const creativeTemplate = `You are an expert at sparking creativity. Rework the following prompt to raise its originality and imaginative range.

Original prompt:
{{.Prompt}}

Apply these optimizations:
1. Introduce creative elements and imaginative framing
2. Strengthen narrative pull and engagement
3. Add points of emotional resonance
4. Enrich visual and sensory description
5. Push for uniqueness and novelty

Provide the creatively optimized version.`

const logicalTemplate = `You are an expert in logical reasoning. Rework the following prompt to strengthen its reasoning and analytical depth.

Original prompt:
{{.Prompt}}

Apply these optimizations:
1. Tighten the chain of reasoning
2. Add analysis and argumentation structure
3. Make cause-and-effect relationships explicit
4. Require supporting evidence and data
5. Build in critical-thinking checkpoints

Provide the logically optimized version.`

const comparisonTemplate = `Evaluate how the following two prompts perform on the same input.

Original prompt:
{{.OriginalPrompt}}

Optimized prompt:
{{.OptimizedPrompt}}

Test input:
{{.TestInput}}

Evaluate along these dimensions:
1. Response quality
2. Relevance
3. Completeness
4. Accuracy
5. Originality

Provide a detailed side-by-side analysis.`

// optimizationData feeds the strategy templates.
type optimizationData struct {
	Prompt string
}

// ComparisonData feeds the comparison-evaluation template.
type ComparisonData struct {
	OriginalPrompt  string
	OptimizedPrompt string
	TestInput       string
}

var optimizationTemplates = map[string]*template.Template{
	StrategyGeneral:      template.Must(template.New(StrategyGeneral).Parse(generalTemplate)),
	StrategyStructured:   template.Must(template.New(StrategyStructured).Parse(structuredTemplate)),
	StrategyRoleBased:    template.Must(template.New(StrategyRoleBased).Parse(roleBasedTemplate)),
	StrategyTaskOriented: template.Must(template.New(StrategyTaskOriented).Parse(taskOrientedTemplate)),
	StrategyCreative:     template.Must(template.New(StrategyCreative).Parse(creativeTemplate)),
	StrategyLogical:      template.Must(template.New(StrategyLogical).Parse(logicalTemplate)),
}

var comparisonTmpl = template.Must(template.New("comparison").Parse(comparisonTemplate))

// Render renders the optimization meta-prompt for the given strategy.
// Unknown strategy keys fail with an invalid_request error naming the
// valid set.
func Render(strategy, prompt string) (string, error) {
	tmpl, ok := optimizationTemplates[strategy]
	if !ok {
		return "", llm.NewInvalidRequestError(
			fmt.Sprintf("unknown strategy %q, valid strategies: %s", strategy, strings.Join(StrategyKeys(), ", ")), nil)
	}

	var out strings.Builder
	if err := tmpl.Execute(&out, optimizationData{Prompt: prompt}); err != nil {
		return "", fmt.Errorf("failed to render %s template: %w", strategy, err)
	}
	return out.String(), nil
}

// RenderComparison renders the evaluation prompt used to compare an
// original and an optimized prompt on the same test input.
func RenderComparison(data ComparisonData) (string, error) {
	var out strings.Builder
	if err := comparisonTmpl.Execute(&out, data); err != nil {
		return "", fmt.Errorf("failed to render comparison template: %w", err)
	}
	return out.String(), nil
}
