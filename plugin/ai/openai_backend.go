package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

// BackendOptions carries endpoint and model overrides for a backend constructor.
type BackendOptions struct {
	BaseURL        string
	ChatModel      string
	EmbeddingModel string
	HTTPClient     *http.Client
}

// openAICompatSpec describes one service reachable through the OpenAI wire protocol.
type openAICompatSpec struct {
	id             string
	name           string
	baseURL        string
	chatModel      string
	embeddingModel string // empty: embeddings unsupported
	imageModel     string // empty: images unsupported
	// validateModel is used for a one-token chat probe when the service has no model listing.
	validateModel string
}

var (
	openAISpec = openAICompatSpec{
		id:             BackendOpenAI,
		name:           "OpenAI",
		baseURL:        "https://api.openai.com/v1",
		chatModel:      "gpt-4",
		embeddingModel: "text-embedding-3-small",
		imageModel:     openai.CreateImageModelDallE3,
	}

	// Anthropic exposes an OpenAI compatible endpoint for chat only.
	claudeSpec = openAICompatSpec{
		id:            BackendClaude,
		name:          "Anthropic Claude",
		baseURL:       "https://api.anthropic.com/v1/",
		chatModel:     "claude-3-opus-20240229",
		validateModel: "claude-3-haiku-20240307",
	}

	perplexitySpec = openAICompatSpec{
		id:            BackendPerplexity,
		name:          "Perplexity",
		baseURL:       "https://api.perplexity.ai",
		chatModel:     "llama-3.1-sonar-large-128k-online",
		validateModel: "llama-3.1-sonar-small-128k-online",
	}
)

type openAICompatBackend struct {
	spec   openAICompatSpec
	client *openai.Client
	opts   BackendOptions
}

// NewOpenAIBackend creates the OpenAI backend (chat, embeddings, images).
func NewOpenAIBackend(credential string, opts BackendOptions) (Backend, error) {
	return newOpenAICompatBackend(openAISpec, credential, opts)
}

// NewClaudeBackend creates the Anthropic Claude backend (chat only).
func NewClaudeBackend(credential string, opts BackendOptions) (Backend, error) {
	return newOpenAICompatBackend(claudeSpec, credential, opts)
}

// NewPerplexityBackend creates the Perplexity backend (chat only).
func NewPerplexityBackend(credential string, opts BackendOptions) (Backend, error) {
	return newOpenAICompatBackend(perplexitySpec, credential, opts)
}

func newOpenAICompatBackend(spec openAICompatSpec, credential string, opts BackendOptions) (*openAICompatBackend, error) {
	if credential == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoCredential, spec.id)
	}
	if opts.ChatModel != "" {
		spec.chatModel = opts.ChatModel
	}
	if opts.EmbeddingModel != "" && spec.embeddingModel != "" {
		spec.embeddingModel = opts.EmbeddingModel
	}

	return &openAICompatBackend{
		spec:   spec,
		client: newOpenAIClient(spec, credential, opts),
		opts:   opts,
	}, nil
}

func newOpenAIClient(spec openAICompatSpec, credential string, opts BackendOptions) *openai.Client {
	clientConfig := openai.DefaultConfig(credential)
	clientConfig.BaseURL = spec.baseURL
	if opts.BaseURL != "" {
		clientConfig.BaseURL = opts.BaseURL
	}
	if opts.HTTPClient != nil {
		clientConfig.HTTPClient = opts.HTTPClient
	}
	return openai.NewClientWithConfig(clientConfig)
}

func (b *openAICompatBackend) ID() string   { return b.spec.id }
func (b *openAICompatBackend) Name() string { return b.spec.name }

func (b *openAICompatBackend) SupportsChat() bool            { return true }
func (b *openAICompatBackend) SupportsEmbeddings() bool      { return b.spec.embeddingModel != "" }
func (b *openAICompatBackend) SupportsImageGeneration() bool { return b.spec.imageModel != "" }

func (b *openAICompatBackend) DefaultChatModel() string      { return b.spec.chatModel }
func (b *openAICompatBackend) DefaultEmbeddingModel() string { return b.spec.embeddingModel }

func (b *openAICompatBackend) Chat(ctx context.Context, messages []Message, cfg *ChatConfig) (*ChatResponse, error) {
	if len(messages) == 0 {
		return nil, errors.New("no messages provided for chat")
	}

	req := openai.ChatCompletionRequest{
		Model:       b.spec.chatModel,
		Messages:    convertMessages(messages),
		Temperature: 0.7,
		MaxTokens:   2000,
	}
	if cfg != nil {
		if cfg.Model != "" {
			req.Model = cfg.Model
		}
		if cfg.Temperature != nil {
			req.Temperature = *cfg.Temperature
		}
		if cfg.MaxTokens > 0 {
			req.MaxTokens = cfg.MaxTokens
		}
	}

	resp, err := b.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s chat completion failed: %w", b.spec.name, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s chat completion: %w", b.spec.name, ErrEmptyResponse)
	}

	return &ChatResponse{
		Content:      resp.Choices[0].Message.Content,
		Model:        resp.Model,
		FinishReason: string(resp.Choices[0].FinishReason),
		Usage: &Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func (b *openAICompatBackend) Embed(ctx context.Context, text string, cfg *EmbedConfig) (*EmbeddingResponse, error) {
	if !b.SupportsEmbeddings() {
		return nil, unsupported(b.spec.id, "embeddings")
	}

	model := b.spec.embeddingModel
	req := openai.EmbeddingRequest{
		Input: []string{text},
	}
	if cfg != nil {
		if cfg.Model != "" {
			model = cfg.Model
		}
		req.Dimensions = cfg.Dimensions
	}
	req.Model = openai.EmbeddingModel(model)

	resp, err := b.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create embeddings failed: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("create embeddings: %w", ErrEmptyResponse)
	}

	return &EmbeddingResponse{
		Embedding: resp.Data[0].Embedding,
		Model:     model,
		Usage: &Usage{
			PromptTokens: resp.Usage.PromptTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}, nil
}

func (b *openAICompatBackend) GenerateImage(ctx context.Context, prompt string, cfg *ImageConfig) (string, error) {
	if !b.SupportsImageGeneration() {
		return "", unsupported(b.spec.id, "image generation")
	}

	req := openai.ImageRequest{
		Prompt:         prompt,
		Model:          b.spec.imageModel,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		Quality:        openai.CreateImageQualityStandard,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	}
	if cfg != nil {
		if cfg.Model != "" {
			req.Model = cfg.Model
		}
		if cfg.Size != "" {
			req.Size = cfg.Size
		}
		if cfg.Quality != "" {
			req.Quality = cfg.Quality
		}
	}

	resp, err := b.client.CreateImage(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s image generation failed: %w", b.spec.name, err)
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", fmt.Errorf("%s image generation: %w", b.spec.name, ErrEmptyResponse)
	}
	return resp.Data[0].URL, nil
}

func (b *openAICompatBackend) ValidateCredential(ctx context.Context, key string) bool {
	if key == "" {
		return false
	}

	client := newOpenAIClient(b.spec, key, b.opts)

	var err error
	if b.spec.validateModel == "" {
		_, err = client.ListModels(ctx)
	} else {
		_, err = client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:     b.spec.validateModel,
			MaxTokens: 1,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: "test"},
			},
		})
	}

	return !isUnauthorized(err)
}

// isUnauthorized reports whether err is an explicit 401/403 answer.
// Transport failures and other statuses are not treated as invalid credentials.
func isUnauthorized(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusUnauthorized || apiErr.HTTPStatusCode == http.StatusForbidden
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusUnauthorized || reqErr.HTTPStatusCode == http.StatusForbidden
	}

	return false
}

func convertMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case "system":
			role = openai.ChatMessageRoleSystem
		case "assistant":
			role = openai.ChatMessageRoleAssistant
		}
		out[i] = openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		}
	}
	return out
}
