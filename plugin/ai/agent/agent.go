package agent

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/plugin/ai"
	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/plugin/ai/router"
	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/plugin/ai/timeout"
	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/store"
)

// unitSpec describes one execution unit. Units differ only in prompts,
// validation, sampling and parsing; the execution flow is shared.
type unitSpec struct {
	taskType    router.TaskType
	name        string
	description string
	sources     []store.SourceType

	systemPrompt string
	temperature  float32
	maxTokens    int

	// validate runs before any backend call.
	validate func(in *Input) error
	// prompt renders the user prompt without context.
	prompt func(in *Input) string
	// parse turns the raw answer into the unit's content. It is best effort.
	parse func(raw string, in *Input) any
	// image units call GenerateImage instead of Chat.
	image bool
}

// unit executes a unitSpec.
type unit struct {
	spec unitSpec
	deps Deps
}

func newUnit(spec unitSpec, deps Deps) *unit {
	return &unit{spec: spec, deps: deps}
}

func (u *unit) TaskType() router.TaskType { return u.spec.taskType }

func (u *unit) Name() string { return u.spec.name }

func (u *unit) Description() string { return u.spec.description }

func (u *unit) RequiredSources() []store.SourceType {
	return append([]store.SourceType(nil), u.spec.sources...)
}

func (u *unit) ValidateInput(in *Input) error {
	if in == nil {
		return invalidInput("input is required")
	}
	if u.spec.validate == nil {
		return nil
	}
	return u.spec.validate(in)
}

// Execute validates the input, resolves a backend, gathers context when the
// unit needs it, calls the backend and parses the answer.
func (u *unit) Execute(ctx context.Context, in *Input, agentCtx *Context, cfg *Config) *Result {
	start := time.Now()
	if agentCtx == nil {
		agentCtx = &Context{}
	}
	if cfg == nil {
		cfg = &Config{}
	}

	result := u.execute(ctx, in, agentCtx, cfg)
	elapsed := time.Since(start)
	result.Metadata.DurationMs = elapsed.Milliseconds()
	u.deps.Metrics.observe(string(u.spec.taskType), result, elapsed)

	if !result.Success {
		slog.Warn("agent execution failed",
			slog.String("task_type", string(u.spec.taskType)),
			slog.Int("user_id", int(agentCtx.UserID)),
			slog.String("error_kind", string(result.Metadata.ErrorKind)),
			slog.String("error", result.Error),
		)
	}
	return result
}

func (u *unit) execute(ctx context.Context, in *Input, agentCtx *Context, cfg *Config) *Result {
	if err := u.ValidateInput(in); err != nil {
		return failure(err, nil)
	}
	if u.deps.Backends == nil {
		return failure(ai.ErrNoCredential, nil)
	}

	selection, err := u.deps.Backends.SelectBackend(ctx, string(u.spec.taskType), cfg.BackendID, agentCtx.Credentials)
	if err != nil {
		return failure(err, nil)
	}
	backend := selection.Backend
	meta := Metadata{BackendID: selection.BackendID}

	aggregated := agentCtx.Aggregated
	if aggregated == nil && !agentCtx.SkipContext && len(u.spec.sources) > 0 && u.deps.Aggregator != nil {
		query := strings.TrimSpace(strings.Join([]string{in.Title, in.Text}, " "))
		aggregated = filterSources(u.deps.Aggregator.Aggregate(ctx, agentCtx.UserID, query, nil, DefaultContextLimit), u.spec.sources)
	}
	if aggregated != nil {
		meta.Extra = map[string]any{
			"context_items":  len(aggregated.WeightedResults),
			"context_method": string(aggregated.Method),
		}
	}

	prompt := withContext(u.spec.prompt(in), aggregated)

	callCtx, cancel := timeout.WithDefault(ctx, timeout.BackendCallTimeout)
	defer cancel()

	if u.spec.image {
		if !backend.SupportsImageGeneration() {
			return failure(&ai.CapabilityError{BackendID: selection.BackendID, Operation: "image generation"}, &meta)
		}
		url, err := backend.GenerateImage(callCtx, prompt, &ai.ImageConfig{Model: cfg.Model})
		if err != nil {
			return failure(err, &meta)
		}
		meta.Model = cfg.Model
		return &Result{Success: true, Content: u.spec.parse(url, in), Metadata: meta}
	}

	var profile *store.UserProfile
	if aggregated != nil {
		profile = aggregated.Profile
	}
	messages := ai.FormatMessages(buildSystemPrompt(u.spec.systemPrompt, profile), prompt, agentCtx.History)

	resp, err := backend.Chat(callCtx, messages, u.chatConfig(cfg))
	if err != nil {
		return failure(err, &meta)
	}
	meta.Model = resp.Model
	if resp.Usage != nil {
		meta.TokensUsed = resp.Usage.TotalTokens
	}
	if strings.TrimSpace(resp.Content) == "" {
		return failure(ai.ErrEmptyResponse, &meta)
	}

	return &Result{Success: true, Content: u.spec.parse(resp.Content, in), Metadata: meta}
}

func (u *unit) chatConfig(cfg *Config) *ai.ChatConfig {
	temperature := u.spec.temperature
	if cfg.Temperature != nil {
		temperature = *cfg.Temperature
	}
	maxTokens := u.spec.maxTokens
	if cfg.MaxTokens > 0 {
		maxTokens = cfg.MaxTokens
	}
	return &ai.ChatConfig{
		Model:       cfg.Model,
		Temperature: &temperature,
		MaxTokens:   maxTokens,
	}
}

// failure converts err into a failed result.
func failure(err error, meta *Metadata) *Result {
	result := &Result{Success: false, Error: err.Error()}
	if meta != nil {
		result.Metadata = *meta
	}
	result.Metadata.ErrorKind = ClassifyError(err).Kind
	return result
}
