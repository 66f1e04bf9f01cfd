package agent

import (
	"context"
	"sync"

	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/plugin/ai"
	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/plugin/ai/rag"
)

// fakeBackend records the last chat call and answers with a canned reply.
type fakeBackend struct {
	id       string
	reply    string
	err      error
	usage    *ai.Usage
	image    bool
	imageURL string

	mu       sync.Mutex
	calls    int
	messages []ai.Message
	cfg      *ai.ChatConfig
	prompt   string
	deadline bool
}

func (b *fakeBackend) ID() string                    { return b.id }
func (b *fakeBackend) Name() string                  { return "Fake " + b.id }
func (b *fakeBackend) SupportsChat() bool            { return true }
func (b *fakeBackend) SupportsEmbeddings() bool      { return false }
func (b *fakeBackend) SupportsImageGeneration() bool { return b.image }
func (b *fakeBackend) DefaultChatModel() string      { return b.id + "-model" }
func (b *fakeBackend) DefaultEmbeddingModel() string { return "" }

func (b *fakeBackend) Chat(ctx context.Context, messages []ai.Message, cfg *ai.ChatConfig) (*ai.ChatResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	b.messages = messages
	b.cfg = cfg
	_, b.deadline = ctx.Deadline()
	if b.err != nil {
		return nil, b.err
	}
	return &ai.ChatResponse{Content: b.reply, Model: b.id + "-model", Usage: b.usage}, nil
}

func (b *fakeBackend) Embed(context.Context, string, *ai.EmbedConfig) (*ai.EmbeddingResponse, error) {
	return nil, ai.ErrUnsupportedCapability
}

func (b *fakeBackend) GenerateImage(_ context.Context, prompt string, _ *ai.ImageConfig) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	b.prompt = prompt
	if b.err != nil {
		return "", b.err
	}
	return b.imageURL, nil
}

func (b *fakeBackend) ValidateCredential(context.Context, string) bool { return true }

func (b *fakeBackend) userPrompt() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.messages) == 0 {
		return ""
	}
	return b.messages[len(b.messages)-1].Content
}

func (b *fakeBackend) systemPrompt() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.messages) == 0 || b.messages[0].Role != "system" {
		return ""
	}
	return b.messages[0].Content
}

// fakeSelector always returns its backend unless err is set.
type fakeSelector struct {
	backend *fakeBackend
	err     error

	calls     int
	taskType  string
	preferred string
}

func (s *fakeSelector) SelectBackend(_ context.Context, taskType, preferred string, _ ai.CredentialProvider) (*ai.Selection, error) {
	s.calls++
	s.taskType = taskType
	s.preferred = preferred
	if s.err != nil {
		return nil, s.err
	}
	id := s.backend.id
	if preferred != "" {
		id = preferred
	}
	return &ai.Selection{BackendID: id, Backend: s.backend}, nil
}

// fakeAggregator returns a fixed context and records its calls.
type fakeAggregator struct {
	context *rag.AggregatedContext

	calls  int
	userID int32
	query  string
}

func (a *fakeAggregator) Aggregate(_ context.Context, userID int32, query string, _ []rag.SourceWeight, _ int) *rag.AggregatedContext {
	a.calls++
	a.userID = userID
	a.query = query
	return a.context
}

func newTestDeps(backend *fakeBackend, agg *fakeAggregator) (Deps, *fakeSelector) {
	selector := &fakeSelector{backend: backend}
	deps := Deps{Backends: selector}
	if agg != nil {
		deps.Aggregator = agg
	}
	return deps, selector
}
