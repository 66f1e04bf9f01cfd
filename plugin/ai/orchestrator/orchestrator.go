// Package orchestrator ties task analysis, backend selection, context
// aggregation and execution units into one request pipeline.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"maps"

	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/internal/observability"
	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/plugin/ai"
	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/plugin/ai/agent"
	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/plugin/ai/rag"
	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/plugin/ai/router"
)

// Dependencies are the collaborators of an Orchestrator. Analyzer and Agents
// default to the built-in implementations when nil.
type Dependencies struct {
	Analyzer   router.Analyzer
	Backends   agent.BackendSelector
	Aggregator agent.ContextAggregator
	Agents     *agent.Factory
	// Credentials resolves stored user credentials for requests that carry none.
	Credentials rag.UserCredentials
	Metrics     *agent.Metrics
	Logger      *slog.Logger
}

// Orchestrator is the library surface used by request handlers.
type Orchestrator struct {
	analyzer    router.Analyzer
	backends    agent.BackendSelector
	aggregator  agent.ContextAggregator
	agents      *agent.Factory
	credentials rag.UserCredentials
	logger      *slog.Logger
}

// New creates an orchestrator.
func New(deps Dependencies) *Orchestrator {
	if deps.Analyzer == nil {
		deps.Analyzer = router.NewTaskAnalyzer()
	}
	if deps.Agents == nil {
		deps.Agents = agent.NewFactory(agent.Deps{
			Backends:   deps.Backends,
			Aggregator: deps.Aggregator,
			Metrics:    deps.Metrics,
		})
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Orchestrator{
		analyzer:    deps.Analyzer,
		backends:    deps.Backends,
		aggregator:  deps.Aggregator,
		agents:      deps.Agents,
		credentials: deps.Credentials,
		logger:      deps.Logger,
	}
}

// AnalyzeTask classifies text. It never fails.
func (o *Orchestrator) AnalyzeTask(text string) router.TaskAnalysis {
	return o.analyzer.Analyze(text)
}

// SelectBackend picks the backend for taskType among those creds holds a credential for.
func (o *Orchestrator) SelectBackend(ctx context.Context, taskType router.TaskType, creds ai.CredentialProvider) (*ai.Selection, error) {
	if o.backends == nil {
		return nil, fmt.Errorf("%w: no backends configured", ai.ErrNoCredential)
	}
	return o.backends.SelectBackend(ctx, string(taskType), "", creds)
}

// RetrieveContext returns the user's ranked context for query. It never fails;
// without an aggregator the context is empty.
func (o *Orchestrator) RetrieveContext(ctx context.Context, userID int32, query string, limit int) *rag.AggregatedContext {
	if o.aggregator == nil {
		return &rag.AggregatedContext{WeightedResults: []rag.WeightedResult{}}
	}
	return o.aggregator.Aggregate(ctx, userID, query, nil, limit)
}

// RunAgent executes the unit registered for taskType. Every failure,
// including an unknown task type, is reported through the result.
func (o *Orchestrator) RunAgent(ctx context.Context, taskType router.TaskType, input *agent.Input, agentCtx *agent.Context, cfg *agent.Config) *agent.Result {
	unit, err := o.agents.Create(taskType)
	if err != nil {
		return &agent.Result{
			Success:  false,
			Error:    err.Error(),
			Metadata: agent.Metadata{ErrorKind: agent.ErrorKindInvalidInput},
		}
	}
	if agentCtx != nil && agentCtx.Credentials == nil && o.credentials != nil {
		withCreds := *agentCtx
		withCreds.Credentials = ForUser(o.credentials, agentCtx.UserID)
		agentCtx = &withCreds
	}
	return unit.Execute(ctx, input, agentCtx, cfg)
}

// SupportedTaskTypes lists the task types that have an execution unit.
func (o *Orchestrator) SupportedTaskTypes() []router.TaskType {
	return o.agents.ListAvailable()
}

// Request is one free-text request handled end to end.
type Request struct {
	UserID int32
	Text   string
	Title  string
	// TaskType skips classification when set.
	TaskType router.TaskType
	// Parameters override the parameters extracted by the analyzer.
	Parameters map[string]any
	History    []ai.Message
	Config     *agent.Config
	// Credentials overrides the orchestrator's credential lookup.
	Credentials ai.CredentialProvider
}

// Response is the outcome of Handle.
type Response struct {
	RequestID  string              `json:"request_id"`
	Analysis   router.TaskAnalysis `json:"analysis"`
	Result     *agent.Result       `json:"result"`
	DurationMs int64               `json:"duration_ms"`
}

// Handle runs the full pipeline: analysis, context, execution.
func (o *Orchestrator) Handle(ctx context.Context, req *Request) *Response {
	reqCtx := observability.NewRequestContext(o.logger, req.UserID)
	ctx = observability.WithRequestContext(ctx, reqCtx)

	analysis := o.AnalyzeTask(req.Text)
	if req.TaskType != "" && req.TaskType != analysis.TaskType {
		// The classified decision belongs to another task type.
		analysis.TaskType = req.TaskType
		analysis.RequiresContext = router.RequiresUserContext(req.TaskType, req.Text) || o.declaresSources(req.TaskType)
	}
	reqCtx.SetTaskType(string(analysis.TaskType))
	reqCtx.Debug(ctx, "task analyzed",
		slog.Float64("confidence", analysis.Confidence),
		slog.Bool("requires_context", analysis.RequiresContext),
	)

	params := maps.Clone(analysis.Parameters)
	if params == nil {
		params = map[string]any{}
	}
	maps.Copy(params, req.Parameters)
	input := &agent.Input{Text: req.Text, Title: req.Title, Parameters: params}

	agentCtx := &agent.Context{
		UserID:      req.UserID,
		History:     req.History,
		Credentials: req.Credentials,
		SkipContext: !analysis.RequiresContext,
	}
	if analysis.RequiresContext && !o.declaresSources(analysis.TaskType) {
		agentCtx.Aggregated = o.RetrieveContext(ctx, req.UserID, req.Text, agent.DefaultContextLimit)
	}

	result := o.RunAgent(ctx, analysis.TaskType, input, agentCtx, req.Config)

	attrs := []slog.Attr{
		slog.String(observability.LogFieldBackend, result.Metadata.BackendID),
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()),
	}
	if result.Success {
		reqCtx.Info(ctx, "request handled", attrs...)
	} else {
		attrs = append(attrs, slog.String(observability.LogFieldErrorKind, string(result.Metadata.ErrorKind)))
		reqCtx.Warn(ctx, "request failed", append(attrs, slog.String("error", result.Error))...)
	}

	return &Response{
		RequestID:  reqCtx.RequestID,
		Analysis:   analysis,
		Result:     result,
		DurationMs: reqCtx.DurationMs(),
	}
}

func (o *Orchestrator) declaresSources(taskType router.TaskType) bool {
	unit, err := o.agents.Create(taskType)
	return err == nil && len(unit.RequiredSources()) > 0
}

// ForUser binds user credentials to one user.
func ForUser(creds rag.UserCredentials, userID int32) ai.CredentialProvider {
	return ai.CredentialProviderFunc(func(ctx context.Context, backendID string) (string, bool) {
		return creds.Credential(ctx, userID, backendID)
	})
}
