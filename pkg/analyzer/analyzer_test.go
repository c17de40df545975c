package analyzer

import (
	"context"
	"errors"
	"testing"

	"github.com/crewkit/crewkit/pkg/capability"
)

type fakeProvider struct {
	response string
	tokens   int
	err      error
}

func (f *fakeProvider) Generate(ctx context.Context, system, prompt string) (string, int, error) {
	if f.err != nil {
		return "", 0, f.err
	}
	return f.response, f.tokens, nil
}

func (f *fakeProvider) GetModelName() string    { return "fake-model" }
func (f *fakeProvider) GetTemperature() float64 { return 0 }
func (f *fakeProvider) Close() error            { return nil }

func TestAnalyze_EmptyDescription(t *testing.T) {
	a := New(nil, nil)

	// Punctuation-only input must fail here, not survive to the clause
	// splitter and come back as a requirement with empty text.
	for _, description := range []string{"", "  \n ", ".", "?! ,;", "- . -"} {
		_, err := a.Analyze(context.Background(), description)
		var analysisErr *AnalysisError
		if !errors.As(err, &analysisErr) {
			t.Errorf("Analyze(%q) error = %v, want AnalysisError", description, err)
		}
	}
}

func TestAnalyze_LLMPath(t *testing.T) {
	provider := &fakeProvider{
		tokens: 42,
		response: `REQUIREMENT: parse CSV files | PRIORITY: high | CATEGORY: execution
some stray commentary the model added
REQUIREMENT: summarize findings | PRIORITY: medium | CATEGORY: creation`,
	}
	a := New(provider, nil)

	analysis, err := a.Analyze(context.Background(), "Process the sales data and write a summary")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if analysis.Source != SourceLLM {
		t.Errorf("Source = %q, want %q", analysis.Source, SourceLLM)
	}
	if analysis.Model != "fake-model" || analysis.Tokens != 42 {
		t.Errorf("Model/Tokens = %q/%d, want fake-model/42", analysis.Model, analysis.Tokens)
	}
	if len(analysis.Requirements) != 2 {
		t.Fatalf("got %d requirements, want 2", len(analysis.Requirements))
	}

	first := analysis.Requirements[0]
	if first.Text != "parse CSV files" || first.Priority != PriorityHigh || first.Category != capability.CategoryExecution {
		t.Errorf("first requirement = %+v", first)
	}
}

func TestAnalyze_MalformedFieldsGetDefaults(t *testing.T) {
	provider := &fakeProvider{
		response: "REQUIREMENT: do the thing | PRIORITY: sometime | CATEGORY: magic",
	}
	a := New(provider, nil)

	analysis, err := a.Analyze(context.Background(), "do the thing")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	req := analysis.Requirements[0]
	if req.Priority != PriorityMedium {
		t.Errorf("Priority = %q, want medium for unknown value", req.Priority)
	}
	if req.Category != "" {
		t.Errorf("Category = %q, want empty for unknown value", req.Category)
	}
}

func TestAnalyze_ProviderErrorFallsBack(t *testing.T) {
	provider := &fakeProvider{err: errors.New("connection refused")}
	a := New(provider, nil)

	analysis, err := a.Analyze(context.Background(), "analyze logs and fix the parser")
	if err != nil {
		t.Fatalf("Analyze() error = %v, fallback must not fail", err)
	}
	if analysis.Source != SourceFallback {
		t.Errorf("Source = %q, want %q", analysis.Source, SourceFallback)
	}
	if len(analysis.Requirements) == 0 {
		t.Error("fallback produced no requirements")
	}
}

func TestAnalyze_UnparseableOutputFallsBack(t *testing.T) {
	provider := &fakeProvider{response: "I cannot help with that."}
	a := New(provider, nil)

	analysis, err := a.Analyze(context.Background(), "review the design")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if analysis.Source != SourceFallback {
		t.Errorf("Source = %q, want %q", analysis.Source, SourceFallback)
	}
}

func TestFallback_ClauseSplitting(t *testing.T) {
	a := New(nil, nil)

	analysis, err := a.Analyze(context.Background(),
		"Analyze the server logs, implement a fix and write a postmortem")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(analysis.Requirements) < 2 {
		t.Fatalf("got %d requirements, want at least 2", len(analysis.Requirements))
	}
	if analysis.Requirements[0].Category != capability.CategoryAnalysis {
		t.Errorf("first category = %q, want analysis", analysis.Requirements[0].Category)
	}
}

func TestFallback_SingleClause(t *testing.T) {
	a := New(nil, nil)

	analysis, err := a.Analyze(context.Background(), "Deploy the service.")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(analysis.Requirements) != 1 {
		t.Fatalf("got %d requirements, want 1", len(analysis.Requirements))
	}
	req := analysis.Requirements[0]
	if req.Text != "Deploy the service" {
		t.Errorf("Text = %q", req.Text)
	}
	if req.Category != capability.CategoryExecution {
		t.Errorf("Category = %q, want execution", req.Category)
	}
}

func TestFallback_PriorityKeywords(t *testing.T) {
	tests := []struct {
		clause string
		want   Priority
	}{
		{"this step is critical for release", PriorityCritical},
		{"important refactoring work", PriorityHigh},
		{"optional cleanup if possible", PriorityLow},
		{"collect the metrics", PriorityMedium},
	}
	for _, tt := range tests {
		if got := inferPriority(tt.clause); got != tt.want {
			t.Errorf("inferPriority(%q) = %q, want %q", tt.clause, got, tt.want)
		}
	}
}

func TestPriorityWeight(t *testing.T) {
	if PriorityCritical.Weight() <= PriorityMedium.Weight() {
		t.Error("critical must outweigh medium")
	}
	if PriorityLow.Weight() >= PriorityMedium.Weight() {
		t.Error("low must weigh less than medium")
	}
	if Priority("bogus").Weight() != PriorityMedium.Weight() {
		t.Error("unknown priority must weigh the same as medium")
	}
}
