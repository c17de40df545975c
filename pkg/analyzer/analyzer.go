// Package analyzer decomposes a task description into capability
// requirements, using an LLM when one is configured and a local
// heuristic splitter otherwise.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/pkoukk/tiktoken-go"

	"github.com/crewkit/crewkit/pkg/capability"
	"github.com/crewkit/crewkit/pkg/llms"
)

// Priority ranks how important a requirement is to the task.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Weight returns the score multiplier for a priority. Unknown priorities
// weigh the same as medium.
func (p Priority) Weight() float32 {
	switch p {
	case PriorityLow:
		return 0.75
	case PriorityHigh:
		return 1.25
	case PriorityCritical:
		return 1.5
	default:
		return 1.0
	}
}

// ValidPriority reports whether p is a known priority level.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Requirement is one capability need extracted from a task description.
type Requirement struct {
	Text     string              `json:"text"`
	Priority Priority            `json:"priority"`
	Category capability.Category `json:"category,omitempty"` // hint, may be empty
}

// Source identifies which path produced an analysis.
type Source string

const (
	SourceLLM      Source = "llm"
	SourceFallback Source = "fallback"
)

// Analysis is the decomposition of one task description.
type Analysis struct {
	Requirements []Requirement `json:"requirements"`
	Source       Source        `json:"source"`
	Model        string        `json:"model,omitempty"`
	Tokens       int           `json:"tokens,omitempty"`
}

// maxPromptTokens caps the task description sent to the LLM. Longer
// descriptions are truncated at a token boundary.
const maxPromptTokens = 1500

// Analyzer extracts requirements from task descriptions. The LLM provider
// is optional; without one every analysis uses the heuristic fallback.
type Analyzer struct {
	provider llms.Provider
	encoding *tiktoken.Tiktoken
	logger   *slog.Logger
}

// New creates an Analyzer. provider may be nil.
func New(provider llms.Provider, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	// cl100k_base ships with the library, so this only fails on a
	// programming error.
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		logger.Warn("Token encoding unavailable, prompt truncation disabled", "error", err)
	}
	return &Analyzer{provider: provider, encoding: encoding, logger: logger}
}

// Analyze decomposes a task description into requirements. The only fatal
// input is an empty description; LLM failures degrade to the heuristic
// fallback instead of failing the call.
func (a *Analyzer) Analyze(ctx context.Context, description string) (*Analysis, error) {
	if emptyDescription(description) {
		return nil, &AnalysisError{Reason: "task description cannot be empty"}
	}

	if a.provider == nil {
		return a.fallbackAnalysis(description), nil
	}

	analysis, err := a.llmAnalysis(ctx, description)
	if err != nil {
		a.logger.Warn("LLM analysis failed, using heuristic fallback",
			"model", a.provider.GetModelName(),
			"error", err)
		return a.fallbackAnalysis(description), nil
	}
	return analysis, nil
}

const analysisSystemPrompt = `You decompose task descriptions into discrete capability requirements for assembling a team of software agents.

Respond with one line per requirement, nothing else, in exactly this format:
REQUIREMENT: <short capability phrase> | PRIORITY: <low|medium|high|critical> | CATEGORY: <reasoning|creation|analysis|execution|coordination|specialized>

Rules:
- 2 to 8 requirements, each a distinct capability.
- Phrase requirements as capabilities ("parse CSV files"), not outcomes.
- Use CATEGORY: specialized when unsure.`

func (a *Analyzer) llmAnalysis(ctx context.Context, description string) (*Analysis, error) {
	prompt := a.truncate(description)

	text, tokens, err := a.provider.Generate(ctx, analysisSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	requirements := parseRequirements(text)
	if len(requirements) == 0 {
		return nil, fmt.Errorf("no requirements parsed from model output")
	}

	return &Analysis{
		Requirements: requirements,
		Source:       SourceLLM,
		Model:        a.provider.GetModelName(),
		Tokens:       tokens,
	}, nil
}

// parseRequirements extracts REQUIREMENT lines from model output,
// skipping anything malformed.
func parseRequirements(text string) []Requirement {
	var requirements []Requirement
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(strings.ToUpper(line), "REQUIREMENT:") {
			continue
		}

		req := Requirement{Priority: PriorityMedium}
		for _, field := range strings.Split(line, "|") {
			key, value, found := strings.Cut(field, ":")
			if !found {
				continue
			}
			value = strings.TrimSpace(value)
			switch strings.ToUpper(strings.TrimSpace(key)) {
			case "REQUIREMENT":
				req.Text = value
			case "PRIORITY":
				if p := Priority(strings.ToLower(value)); ValidPriority(p) {
					req.Priority = p
				}
			case "CATEGORY":
				if c := capability.Category(strings.ToLower(value)); capability.ValidCategory(c) {
					req.Category = c
				}
			}
		}
		if req.Text != "" {
			requirements = append(requirements, req)
		}
	}
	return requirements
}

// emptyDescription reports whether a description carries no analyzable
// content. Punctuation-only input would otherwise survive to the clause
// splitter and come back as a requirement with empty text.
func emptyDescription(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsNumber(r)
	}) == -1
}

// truncate trims the description to maxPromptTokens at a token boundary.
func (a *Analyzer) truncate(description string) string {
	if a.encoding == nil {
		return description
	}
	tokens := a.encoding.Encode(description, nil, nil)
	if len(tokens) <= maxPromptTokens {
		return description
	}
	a.logger.Debug("Truncating task description",
		"tokens", len(tokens),
		"limit", maxPromptTokens)
	return a.encoding.Decode(tokens[:maxPromptTokens])
}
