package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

const (
	defaultGeminiChatModel      = "gemini-pro"
	defaultGeminiEmbeddingModel = "embedding-001"
)

// geminiBackend talks to Google Gemini through the genai SDK.
type geminiBackend struct {
	client         *genai.Client
	opts           BackendOptions
	chatModel      string
	embeddingModel string
}

// NewGeminiBackend creates the Google Gemini backend (chat and embeddings).
func NewGeminiBackend(credential string, opts BackendOptions) (Backend, error) {
	if credential == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoCredential, BackendGemini)
	}

	client, err := newGenAIClient(credential, opts)
	if err != nil {
		return nil, err
	}

	b := &geminiBackend{
		client:         client,
		opts:           opts,
		chatModel:      defaultGeminiChatModel,
		embeddingModel: defaultGeminiEmbeddingModel,
	}
	if opts.ChatModel != "" {
		b.chatModel = opts.ChatModel
	}
	if opts.EmbeddingModel != "" {
		b.embeddingModel = opts.EmbeddingModel
	}
	return b, nil
}

func newGenAIClient(credential string, opts BackendOptions) (*genai.Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:  credential,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}

	// The context only scopes credential discovery, which an explicit key skips.
	client, err := genai.NewClient(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return client, nil
}

func (b *geminiBackend) ID() string   { return BackendGemini }
func (b *geminiBackend) Name() string { return "Google Gemini" }

func (b *geminiBackend) SupportsChat() bool            { return true }
func (b *geminiBackend) SupportsEmbeddings() bool      { return true }
func (b *geminiBackend) SupportsImageGeneration() bool { return false }

func (b *geminiBackend) DefaultChatModel() string      { return b.chatModel }
func (b *geminiBackend) DefaultEmbeddingModel() string { return b.embeddingModel }

func (b *geminiBackend) Chat(ctx context.Context, messages []Message, cfg *ChatConfig) (*ChatResponse, error) {
	if len(messages) == 0 {
		return nil, errors.New("no messages provided for chat")
	}

	model := b.chatModel
	genCfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.7),
		MaxOutputTokens: 2000,
	}
	if cfg != nil {
		if cfg.Model != "" {
			model = cfg.Model
		}
		if cfg.Temperature != nil {
			genCfg.Temperature = genai.Ptr(*cfg.Temperature)
		}
		if cfg.MaxTokens > 0 {
			genCfg.MaxOutputTokens = int32(cfg.MaxTokens)
		}
	}

	// Gemini takes system prompts out of band and names the assistant role "model".
	var contents []*genai.Content
	for _, m := range messages {
		switch m.Role {
		case "system":
			genCfg.SystemInstruction = genai.NewContentFromText(m.Content, genai.RoleUser)
		case "assistant":
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(contents) == 0 {
		return nil, errors.New("no user content provided for chat")
	}

	resp, err := b.client.Models.GenerateContent(ctx, model, contents, genCfg)
	if err != nil {
		return nil, fmt.Errorf("Google Gemini generate content failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("Google Gemini generate content: %w", ErrEmptyResponse)
	}

	out := &ChatResponse{
		Content: text,
		Model:   model,
	}
	if resp.ModelVersion != "" {
		out.Model = resp.ModelVersion
	}
	if len(resp.Candidates) > 0 {
		out.FinishReason = string(resp.Candidates[0].FinishReason)
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = &Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return out, nil
}

func (b *geminiBackend) Embed(ctx context.Context, text string, cfg *EmbedConfig) (*EmbeddingResponse, error) {
	model := b.embeddingModel
	embedCfg := &genai.EmbedContentConfig{
		TaskType: "RETRIEVAL_QUERY",
	}
	if cfg != nil {
		if cfg.Model != "" {
			model = cfg.Model
		}
		if cfg.Dimensions > 0 {
			embedCfg.OutputDimensionality = genai.Ptr(int32(cfg.Dimensions))
		}
	}

	result, err := b.client.Models.EmbedContent(ctx,
		model,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		embedCfg,
	)
	if err != nil {
		return nil, fmt.Errorf("GenAI embed failed: %w", err)
	}

	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("GenAI embed: %w", ErrEmptyResponse)
	}

	return &EmbeddingResponse{
		Embedding: result.Embeddings[0].Values,
		Model:     model,
	}, nil
}

func (b *geminiBackend) GenerateImage(_ context.Context, _ string, _ *ImageConfig) (string, error) {
	return "", unsupported(BackendGemini, "image generation")
}

func (b *geminiBackend) ValidateCredential(ctx context.Context, key string) bool {
	if key == "" {
		return false
	}

	client, err := newGenAIClient(key, b.opts)
	if err != nil {
		return false
	}

	_, err = client.Models.GenerateContent(ctx, b.chatModel,
		genai.Text("test"),
		&genai.GenerateContentConfig{MaxOutputTokens: 1},
	)
	return !isGenAIUnauthorized(err)
}

// isGenAIUnauthorized mirrors isUnauthorized for genai API errors.
func isGenAIUnauthorized(err error) bool {
	if err == nil {
		return false
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return unauthorizedAPIError(apiErr)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return unauthorizedAPIError(*apiErrPtr)
	}
	return false
}

func unauthorizedAPIError(e genai.APIError) bool {
	switch {
	case e.Code == http.StatusUnauthorized, e.Code == http.StatusForbidden:
		return true
	case e.Status == "UNAUTHENTICATED", e.Status == "PERMISSION_DENIED":
		return true
	// Gemini reports a malformed key as 400 INVALID_ARGUMENT.
	case e.Code == http.StatusBadRequest && strings.Contains(e.Message, "API key not valid"):
		return true
	}
	return false
}
