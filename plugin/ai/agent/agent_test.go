package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/plugin/ai"
	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/plugin/ai/rag"
	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/plugin/ai/router"
	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/store"
)

const abstractReply = `## Background
PCR efficiency limits low-input assays.

## Methods
We varied annealing temperature and magnesium concentration.

## Results
Yield improved threefold at 62 C.

## Conclusions
A two-factor optimization suffices.

Keywords: PCR, optimization, annealing`

func researchContext() *rag.AggregatedContext {
	return &rag.AggregatedContext{
		Profile: &store.UserProfile{ID: 1, FirstName: "Ada", ResearchInterests: []string{"microscopy", "gene editing"}},
		WeightedResults: []rag.WeightedResult{
			{Source: store.SourceExperiment, Origin: store.SourceExperiment, SourceID: "experiment-1", Title: "PCR optimization", Content: strings.Repeat("x", 300), RelevanceScore: 0.9, Weight: 0.8, WeightedScore: 0.72},
			{Source: store.SourcePaper, Origin: store.SourcePaper, SourceID: "paper-1", Title: "Live neurons", Content: "abstract", RelevanceScore: 0.5, Weight: 0.9, WeightedScore: 0.45, Metadata: map[string]any{"journal": "Nature", "year": 2021}},
			{Source: store.SourceNotebookEntry, Origin: store.SourceNotebookEntry, SourceID: "entry-1", Title: "Gel run", Content: "bands at 500bp", RelevanceScore: 0.5, Weight: 0.8, WeightedScore: 0.40},
		},
		TotalRelevance: 0.52,
		SourcesUsed:    []store.SourceType{store.SourceExperiment, store.SourcePaper, store.SourceNotebookEntry},
		Method:         rag.MethodKeyword,
	}
}

func abstractInput() *Input {
	return &Input{Text: "We optimized PCR conditions for low-input samples across twelve annealing temperatures."}
}

func mustCreate(t *testing.T, f *Factory, taskType router.TaskType) Agent {
	t.Helper()
	a, err := f.Create(taskType)
	require.NoError(t, err)
	return a
}

func TestExecute_InvalidInputSkipsBackend(t *testing.T) {
	backend := &fakeBackend{id: "openai", reply: abstractReply}
	agg := &fakeAggregator{context: researchContext()}
	deps, selector := newTestDeps(backend, agg)
	unit := mustCreate(t, NewFactory(deps), router.TaskAbstractWriting)

	result := unit.Execute(context.Background(), &Input{Text: "too short"}, &Context{UserID: 1}, nil)

	assert.False(t, result.Success)
	assert.Equal(t, ErrorKindInvalidInput, result.Metadata.ErrorKind)
	assert.Contains(t, result.Error, "at least 50 characters")
	assert.Zero(t, selector.calls)
	assert.Zero(t, agg.calls)
	assert.Zero(t, backend.calls)
	assert.Nil(t, result.Content)
}

func TestExecute_AbstractWriting(t *testing.T) {
	backend := &fakeBackend{id: "openai", reply: abstractReply, usage: &ai.Usage{TotalTokens: 321}}
	agg := &fakeAggregator{context: researchContext()}
	deps, selector := newTestDeps(backend, agg)
	unit := mustCreate(t, NewFactory(deps), router.TaskAbstractWriting)

	result := unit.Execute(context.Background(), abstractInput(), &Context{UserID: 7}, nil)
	require.True(t, result.Success, result.Error)

	assert.Equal(t, "abstract_writing", selector.taskType)
	assert.Empty(t, selector.preferred)
	assert.Equal(t, 1, agg.calls)
	assert.Equal(t, int32(7), agg.userID)
	assert.Equal(t, abstractInput().Text, agg.query)

	assert.Equal(t, "openai", result.Metadata.BackendID)
	assert.Equal(t, "openai-model", result.Metadata.Model)
	assert.Equal(t, 321, result.Metadata.TokensUsed)
	assert.Empty(t, result.Metadata.ErrorKind)
	// The paper result is outside the unit's sources.
	assert.Equal(t, 2, result.Metadata.Extra["context_items"])

	require.NotNil(t, backend.cfg.Temperature)
	assert.InDelta(t, 0.7, *backend.cfg.Temperature, 1e-6)
	assert.Equal(t, 1000, backend.cfg.MaxTokens)
	assert.True(t, backend.deadline)

	system := backend.systemPrompt()
	assert.True(t, strings.HasPrefix(system, promptAbstractWriting))
	assert.Contains(t, system, "The user's name is Ada.")

	prompt := backend.userPrompt()
	assert.Contains(t, prompt, abstractInput().Text)
	assert.Contains(t, prompt, "--- Context ---")
	assert.Contains(t, prompt, "Research Interests: microscopy, gene editing")
	assert.Contains(t, prompt, "1. PCR optimization: "+strings.Repeat("x", 200)+"...")
	assert.NotContains(t, prompt, "Live neurons")

	content, ok := result.Content.(*AbstractResult)
	require.True(t, ok)
	assert.Equal(t, "PCR efficiency limits low-input assays.", content.Background)
	assert.Equal(t, "We varied annealing temperature and magnesium concentration.", content.Methods)
	assert.Equal(t, "Yield improved threefold at 62 C.", content.Results)
	assert.Equal(t, "A two-factor optimization suffices.", content.Conclusions)
	assert.Equal(t, []string{"PCR", "optimization", "annealing"}, content.Keywords)
	assert.NotContains(t, content.Abstract, "Keywords")
	assert.Equal(t, wordCount(content.Abstract), content.WordCount)
}

func TestExecute_SuppliedContextSkipsAggregation(t *testing.T) {
	backend := &fakeBackend{id: "openai", reply: abstractReply}
	agg := &fakeAggregator{context: researchContext()}
	deps, _ := newTestDeps(backend, agg)
	unit := mustCreate(t, NewFactory(deps), router.TaskAbstractWriting)

	supplied := researchContext()
	result := unit.Execute(context.Background(), abstractInput(), &Context{UserID: 1, Aggregated: supplied}, nil)

	require.True(t, result.Success)
	assert.Zero(t, agg.calls)
	// Supplied context is used as given.
	assert.Contains(t, backend.userPrompt(), "--- Recent Papers ---")
	assert.Contains(t, backend.userPrompt(), "1. Live neurons (Nature, 2021)")
}

func TestExecute_NoRequiredSources(t *testing.T) {
	reply := "Here is the fit:\n\n```python\nimport numpy as np\nprint(np.polyfit([1, 2], [2, 4], 1))\n```\n\nIt fits a line."
	backend := &fakeBackend{id: "openai", reply: reply}
	agg := &fakeAggregator{context: researchContext()}
	deps, _ := newTestDeps(backend, agg)
	unit := mustCreate(t, NewFactory(deps), router.TaskCodeGeneration)

	assert.Empty(t, unit.RequiredSources())

	result := unit.Execute(context.Background(), &Input{Text: "fit a line"}, &Context{UserID: 1}, nil)
	require.True(t, result.Success)
	assert.Zero(t, agg.calls)
	assert.NotContains(t, backend.userPrompt(), "--- Context ---")
	assert.Nil(t, result.Metadata.Extra)

	code := result.Content.(*CodeResult)
	assert.Equal(t, "python", code.Language)
	assert.Equal(t, "import numpy as np\nprint(np.polyfit([1, 2], [2, 4], 1))", code.Code)
	assert.Contains(t, code.Explanation, "It fits a line.")
}

func TestExecute_ConfigOverrides(t *testing.T) {
	backend := &fakeBackend{id: "openai", reply: "Hola mundo"}
	deps, selector := newTestDeps(backend, nil)
	unit := mustCreate(t, NewFactory(deps), router.TaskTranslation)

	temperature := float32(0.1)
	result := unit.Execute(context.Background(),
		&Input{Text: "Hello world", Parameters: map[string]any{"target_language": "spanish"}},
		&Context{UserID: 1},
		&Config{BackendID: "claude", Model: "claude-x", Temperature: &temperature, MaxTokens: 42},
	)
	require.True(t, result.Success)

	assert.Equal(t, "claude", selector.preferred)
	assert.Equal(t, "claude", result.Metadata.BackendID)
	assert.Equal(t, "claude-x", backend.cfg.Model)
	assert.InDelta(t, 0.1, *backend.cfg.Temperature, 1e-6)
	assert.Equal(t, 42, backend.cfg.MaxTokens)
	assert.Equal(t, &Translation{Text: "Hola mundo", TargetLanguage: "spanish"}, result.Content)
}

func TestExecute_HistoryBetweenSystemAndUser(t *testing.T) {
	backend := &fakeBackend{id: "openai", reply: "done"}
	deps, _ := newTestDeps(backend, nil)
	unit := mustCreate(t, NewFactory(deps), router.TaskContentWriting)

	history := []ai.Message{ai.UserMessage("earlier question"), ai.AssistantMessage("earlier answer")}
	result := unit.Execute(context.Background(), &Input{Text: "write a blog post about CRISPR"}, &Context{History: history}, nil)
	require.True(t, result.Success)

	require.Len(t, backend.messages, 4)
	assert.Equal(t, "system", backend.messages[0].Role)
	assert.Equal(t, history, backend.messages[1:3])
	assert.Equal(t, "user", backend.messages[3].Role)
}

func TestExecute_Failures(t *testing.T) {
	tests := []struct {
		name        string
		selectorErr error
		backendErr  error
		reply       string
		want        ErrorKind
	}{
		{name: "no credential", selectorErr: fmt.Errorf("%w: task type summarization", ai.ErrNoCredential), want: ErrorKindNoCredential},
		{name: "unknown backend", selectorErr: fmt.Errorf("%w: mystery", ai.ErrUnknownBackend), want: ErrorKindBackend},
		{name: "backend error", backendErr: errors.New("openai chat: status 500"), want: ErrorKindBackend},
		{name: "timeout", backendErr: fmt.Errorf("chat: %w", context.DeadlineExceeded), want: ErrorKindTimeout},
		{name: "unsupported", backendErr: &ai.CapabilityError{BackendID: "perplexity", Operation: "embeddings"}, want: ErrorKindUnsupportedCapability},
		{name: "empty response", reply: "   ", want: ErrorKindBackend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{id: "openai", reply: tt.reply, err: tt.backendErr}
			deps, selector := newTestDeps(backend, nil)
			selector.err = tt.selectorErr
			unit := mustCreate(t, NewFactory(deps), router.TaskSummarization)

			result := unit.Execute(context.Background(), &Input{Text: strings.Repeat("long text ", 10)}, &Context{}, nil)

			assert.False(t, result.Success)
			assert.Equal(t, tt.want, result.Metadata.ErrorKind)
			assert.NotEmpty(t, result.Error)
			assert.Nil(t, result.Content)
			if tt.selectorErr != nil {
				assert.Zero(t, backend.calls)
			} else {
				assert.Equal(t, "openai", result.Metadata.BackendID)
			}
		})
	}
}

func TestExecute_ImageCreation(t *testing.T) {
	t.Run("backend without images", func(t *testing.T) {
		backend := &fakeBackend{id: "claude"}
		deps, _ := newTestDeps(backend, nil)
		unit := mustCreate(t, NewFactory(deps), router.TaskImageCreation)

		result := unit.Execute(context.Background(), &Input{Text: "a diagram of the Krebs cycle"}, &Context{}, nil)

		assert.False(t, result.Success)
		assert.Equal(t, ErrorKindUnsupportedCapability, result.Metadata.ErrorKind)
		assert.Zero(t, backend.calls)
	})

	t.Run("generates image", func(t *testing.T) {
		backend := &fakeBackend{id: "openai", image: true, imageURL: "https://images.example/1.png"}
		deps, _ := newTestDeps(backend, nil)
		unit := mustCreate(t, NewFactory(deps), router.TaskImageCreation)

		in := &Input{Text: "a diagram of the Krebs cycle", Parameters: map[string]any{"style": "flat"}}
		result := unit.Execute(context.Background(), in, &Context{}, nil)

		require.True(t, result.Success, result.Error)
		assert.Equal(t, &ImageResult{URL: "https://images.example/1.png", Prompt: "a diagram of the Krebs cycle. Style: flat"}, result.Content)
		assert.Equal(t, "a diagram of the Krebs cycle. Style: flat", backend.prompt)
	})
}

func TestExecute_WithBackendFactory(t *testing.T) {
	registry := ai.NewCapabilityRegistry(ai.Capability{
		BackendID: "mock",
		BestFor:   []string{"abstract_writing"},
		Quality:   ai.TierHigh,
		Cost:      ai.TierLow,
	})
	factory := ai.NewBackendFactory(registry, nil)
	backend := &fakeBackend{id: "mock", reply: abstractReply}
	require.NoError(t, factory.Register("mock", func(string, ai.BackendOptions) (ai.Backend, error) {
		return backend, nil
	}, ai.FeatureChat))

	units := NewFactory(Deps{Backends: factory})
	unit := mustCreate(t, units, router.TaskAbstractWriting)

	creds := ai.CredentialProviderFunc(func(_ context.Context, id string) (string, bool) {
		return "key", id == "mock"
	})
	result := unit.Execute(context.Background(), abstractInput(), &Context{Credentials: creds}, nil)
	require.True(t, result.Success, result.Error)
	assert.Equal(t, "mock", result.Metadata.BackendID)

	result = unit.Execute(context.Background(), abstractInput(), &Context{}, nil)
	assert.Equal(t, ErrorKindNoCredential, result.Metadata.ErrorKind)
}

func TestExecute_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	backend := &fakeBackend{id: "openai", reply: "done", usage: &ai.Usage{TotalTokens: 10}}
	deps, _ := newTestDeps(backend, nil)
	deps.Metrics = metrics
	unit := mustCreate(t, NewFactory(deps), router.TaskContentWriting)

	unit.Execute(context.Background(), &Input{Text: "draft"}, &Context{}, nil)
	unit.Execute(context.Background(), &Input{Text: "draft"}, &Context{}, nil)
	unit.Execute(context.Background(), &Input{}, &Context{}, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Executions.WithLabelValues("content_writing", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Executions.WithLabelValues("content_writing", "invalid_input")))
	assert.Equal(t, 20.0, testutil.ToFloat64(metrics.Tokens.WithLabelValues("content_writing", "openai")))
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.Duration))
}

func TestValidateInput(t *testing.T) {
	f := NewFactory(Deps{})

	tests := []struct {
		taskType router.TaskType
		input    *Input
		valid    bool
	}{
		{router.TaskPaperFinding, &Input{Text: "CRISPR"}, true},
		{router.TaskPaperFinding, &Input{Text: "  "}, false},
		{router.TaskAbstractWriting, abstractInput(), true},
		{router.TaskAbstractWriting, &Input{Text: strings.Repeat("a", 49)}, false},
		{router.TaskIdeaGeneration, &Input{}, true},
		{router.TaskProposalWriting, &Input{Title: "Neural imaging grant"}, true},
		{router.TaskProposalWriting, &Input{}, false},
		{router.TaskTranslation, &Input{Text: "hello"}, false},
		{router.TaskTranslation, &Input{Text: "hello", Parameters: map[string]any{"target_language": "german"}}, true},
		{router.TaskSummarization, &Input{Text: "short"}, false},
		{TaskLiteratureReview, &Input{Text: "optogenetics"}, true},
		{TaskHypothesisGeneration, &Input{}, false},
	}

	for _, tt := range tests {
		unit := mustCreate(t, f, tt.taskType)
		err := unit.ValidateInput(tt.input)
		if tt.valid {
			assert.NoError(t, err, tt.taskType)
		} else {
			assert.ErrorIs(t, err, ErrInvalidInput, tt.taskType)
		}
	}

	unit := mustCreate(t, f, router.TaskCodeGeneration)
	assert.ErrorIs(t, unit.ValidateInput(nil), ErrInvalidInput)
}

func TestExecute_SkipContext(t *testing.T) {
	backend := &fakeBackend{id: "openai", reply: abstractReply}
	agg := &fakeAggregator{context: researchContext()}
	deps, _ := newTestDeps(backend, agg)
	unit := mustCreate(t, NewFactory(deps), router.TaskAbstractWriting)

	result := unit.Execute(context.Background(), abstractInput(), &Context{UserID: 1, SkipContext: true}, nil)

	require.True(t, result.Success)
	assert.Zero(t, agg.calls)
	assert.NotContains(t, backend.userPrompt(), "--- Context ---")
}
