package rag

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/plugin/ai"
	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/store"
)

// memStore is an in-memory ContentStore and PreferenceStore.
type memStore struct {
	mu        sync.Mutex
	profile   *store.UserProfile
	papers    []*store.Paper
	entries   []*store.NotebookEntry
	protocols []*store.Protocol
	exps      []*store.Experiment
	processed []*store.ProcessedContent
	prefs     map[int32]*store.AIPreferences

	failSources map[string]error
}

func (m *memStore) fail(source string) error {
	if m.failSources == nil {
		return nil
	}
	return m.failSources[source]
}

func (m *memStore) GetUserProfile(_ context.Context, userID int32) (*store.UserProfile, error) {
	if err := m.fail("profile"); err != nil {
		return nil, err
	}
	if m.profile == nil || m.profile.ID != userID {
		return nil, nil
	}
	return m.profile, nil
}

func (m *memStore) ListPapers(_ context.Context, find *store.FindContent) ([]*store.Paper, error) {
	if err := m.fail("paper"); err != nil {
		return nil, err
	}
	var list []*store.Paper
	for _, p := range m.papers {
		if p.UserID == find.UserID {
			list = append(list, p)
		}
	}
	return list, nil
}

func (m *memStore) ListNotebookEntries(_ context.Context, find *store.FindContent) ([]*store.NotebookEntry, error) {
	if err := m.fail("notebook_entry"); err != nil {
		return nil, err
	}
	var list []*store.NotebookEntry
	for _, e := range m.entries {
		if e.UserID == find.UserID {
			list = append(list, e)
		}
	}
	return list, nil
}

func (m *memStore) ListProtocols(_ context.Context, find *store.FindContent) ([]*store.Protocol, error) {
	if err := m.fail("protocol"); err != nil {
		return nil, err
	}
	var list []*store.Protocol
	for _, p := range m.protocols {
		if p.UserID == find.UserID {
			list = append(list, p)
		}
	}
	return list, nil
}

func (m *memStore) ListExperiments(_ context.Context, find *store.FindContent) ([]*store.Experiment, error) {
	if err := m.fail("experiment"); err != nil {
		return nil, err
	}
	var list []*store.Experiment
	for _, e := range m.exps {
		if e.UserID == find.UserID {
			list = append(list, e)
		}
	}
	return list, nil
}

func (m *memStore) ListProcessedContent(_ context.Context, find *store.FindProcessedContent) ([]*store.ProcessedContent, error) {
	if err := m.fail("processed_content"); err != nil {
		return nil, err
	}
	var list []*store.ProcessedContent
	for _, c := range m.processed {
		if c.UserID != find.UserID {
			continue
		}
		if find.WithEmbedding && !c.HasEmbedding() {
			continue
		}
		if len(find.TitleOrKeywords) > 0 && !matchesAny(c, find.TitleOrKeywords) {
			continue
		}
		list = append(list, c)
		if find.Limit > 0 && len(list) == find.Limit {
			break
		}
	}
	return list, nil
}

func matchesAny(c *store.ProcessedContent, words []string) bool {
	title := strings.ToLower(c.Title)
	for _, w := range words {
		if strings.Contains(title, w) {
			return true
		}
		for _, k := range c.Keywords {
			if strings.ToLower(k) == w {
				return true
			}
		}
	}
	return false
}

func (m *memStore) GetAIPreferences(_ context.Context, userID int32) (*store.AIPreferences, error) {
	if err := m.fail("preferences"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.prefs[userID]; ok {
		clone := *p
		return &clone, nil
	}
	return &store.AIPreferences{}, nil
}

func (m *memStore) SaveAIPreferences(_ context.Context, userID int32, prefs *store.AIPreferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.prefs == nil {
		m.prefs = map[int32]*store.AIPreferences{}
	}
	clone := *prefs
	m.prefs[userID] = &clone
	return nil
}

// fakeEmbedder returns a fixed vector for every query.
type fakeEmbedder struct {
	id     string
	vector []float32
	err    error
	calls  atomic.Int32
}

func (f *fakeEmbedder) ID() string                    { return f.id }
func (f *fakeEmbedder) Name() string                  { return "fake " + f.id }
func (f *fakeEmbedder) SupportsChat() bool            { return true }
func (f *fakeEmbedder) SupportsEmbeddings() bool      { return f.id != ai.BackendClaude }
func (f *fakeEmbedder) SupportsImageGeneration() bool { return false }
func (f *fakeEmbedder) DefaultChatModel() string      { return "fake-chat" }
func (f *fakeEmbedder) DefaultEmbeddingModel() string { return "fake-embed" }

func (f *fakeEmbedder) Chat(context.Context, []ai.Message, *ai.ChatConfig) (*ai.ChatResponse, error) {
	return &ai.ChatResponse{Content: "ok"}, nil
}

func (f *fakeEmbedder) Embed(context.Context, string, *ai.EmbedConfig) (*ai.EmbeddingResponse, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &ai.EmbeddingResponse{Embedding: f.vector, Model: "fake-embed"}, nil
}

func (f *fakeEmbedder) GenerateImage(context.Context, string, *ai.ImageConfig) (string, error) {
	return "", ai.ErrUnsupportedCapability
}

func (f *fakeEmbedder) ValidateCredential(context.Context, string) bool { return true }

// fakeBackends hands out one embedder per backend id.
type fakeBackends struct {
	embedders map[string]*fakeEmbedder
	created   []string
	mu        sync.Mutex
}

func (f *fakeBackends) CreateBackend(backendID, credential string) (ai.Backend, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, backendID)
	if credential == "" {
		return nil, ai.ErrNoCredential
	}
	e, ok := f.embedders[backendID]
	if !ok {
		return nil, errors.New("unknown backend " + backendID)
	}
	return e, nil
}

func credentialsFor(backendIDs ...string) UserCredentials {
	return UserCredentialsFunc(func(_ context.Context, _ int32, backendID string) (string, bool) {
		for _, id := range backendIDs {
			if id == backendID {
				return "key-" + id, true
			}
		}
		return "", false
	})
}
