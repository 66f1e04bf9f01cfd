// Package agent provides the execution units that turn a classified research
// request into a structured result.
package agent

import (
	"context"

	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/plugin/ai"
	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/plugin/ai/rag"
	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/plugin/ai/router"
	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/store"
)

// Task types served only by execution units. The analyzer never produces them.
const (
	TaskLiteratureReview     router.TaskType = "literature_review"
	TaskHypothesisGeneration router.TaskType = "hypothesis_generation"

	TaskExperimentDesign     router.TaskType = "experiment_design"
	TaskProtocolOptimization router.TaskType = "protocol_optimization"
	TaskQualityValidation    router.TaskType = "quality_validation"
	TaskReferenceManagement  router.TaskType = "reference_management"
	TaskDataReading          router.TaskType = "data_reading"
	TaskOutputFormatting     router.TaskType = "output_formatting"
	TaskDraftCompilation     router.TaskType = "draft_compilation"
)

// Agent is one execution unit. Execute never returns an error: every failure
// is reported through Result.
type Agent interface {
	TaskType() router.TaskType
	Name() string
	Description() string
	// RequiredSources lists the source types gathered when no context is supplied.
	RequiredSources() []store.SourceType
	// ValidateInput checks the input without calling any backend.
	ValidateInput(input *Input) error
	Execute(ctx context.Context, input *Input, agentCtx *Context, cfg *Config) *Result
}

// Input is the task payload.
type Input struct {
	// Text is the query, description or body the unit works on.
	Text string `json:"text"`
	// Title is an optional title for writing units.
	Title string `json:"title,omitempty"`
	// Parameters carries unit-specific options, e.g. "target_language" or "word_limit".
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Context is the per-request execution context.
type Context struct {
	UserID int32
	// Aggregated is pre-gathered context. When nil, units with required
	// sources gather it themselves.
	Aggregated *rag.AggregatedContext
	// SkipContext disables gathering when Aggregated is nil.
	SkipContext bool
	// History is prior conversation placed between the system and user prompts.
	History []ai.Message
	// Credentials resolves the user's backend credentials.
	Credentials ai.CredentialProvider
}

// Config holds per-call overrides. Zero values use the unit defaults.
type Config struct {
	BackendID   string
	Model       string
	Temperature *float32
	MaxTokens   int
}

// Result is the uniform envelope of an execution.
type Result struct {
	Success  bool     `json:"success"`
	Content  any      `json:"content,omitempty"`
	Error    string   `json:"error,omitempty"`
	Metadata Metadata `json:"metadata"`
}

// Metadata describes how a result was produced.
type Metadata struct {
	BackendID  string         `json:"backend_id,omitempty"`
	Model      string         `json:"model,omitempty"`
	TokensUsed int            `json:"tokens_used,omitempty"`
	DurationMs int64          `json:"duration_ms"`
	ErrorKind  ErrorKind      `json:"error_kind,omitempty"`
	Extra      map[string]any `json:"extra,omitempty"`
}

// BackendSelector resolves the backend that serves a task type.
// It is implemented by *ai.BackendFactory.
type BackendSelector interface {
	SelectBackend(ctx context.Context, taskType, preferred string, creds ai.CredentialProvider) (*ai.Selection, error)
}

// ContextAggregator gathers ranked user context. It is implemented by *rag.Aggregator.
type ContextAggregator interface {
	Aggregate(ctx context.Context, userID int32, query string, weights []rag.SourceWeight, limit int) *rag.AggregatedContext
}

// Deps are the collaborators shared by every unit.
type Deps struct {
	Backends   BackendSelector
	Aggregator ContextAggregator
	// Metrics may be nil.
	Metrics *Metrics
}
