package ai

import (
	"context"
	"errors"
)

// Backend identifiers known to the default registry.
const (
	BackendOpenAI     = "openai"
	BackendGemini     = "google_gemini"
	BackendClaude     = "anthropic_claude"
	BackendPerplexity = "perplexity"
)

var (
	// ErrUnsupportedCapability is returned when a backend is asked for an operation it does not offer.
	ErrUnsupportedCapability = errors.New("capability not supported by backend")

	// ErrNoCredential is returned when no usable credential exists for the selected backend.
	ErrNoCredential = errors.New("no credential configured for backend")

	// ErrUnknownBackend is returned for identifiers without a registered constructor.
	ErrUnknownBackend = errors.New("unknown backend")

	// ErrEmptyResponse is returned when a backend answers without content.
	ErrEmptyResponse = errors.New("empty response")
)

// Message represents a chat message.
type Message struct {
	Role    string // system, user, assistant
	Content string
}

// Usage reports token consumption of a single backend call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ChatConfig holds per-call chat options. Zero values fall back to backend defaults.
type ChatConfig struct {
	Model       string
	Temperature *float32
	MaxTokens   int
}

// ChatResponse is the result of a chat completion.
type ChatResponse struct {
	Content      string
	Model        string
	Usage        *Usage
	FinishReason string
}

// EmbedConfig holds per-call embedding options.
type EmbedConfig struct {
	Model      string
	Dimensions int
}

// EmbeddingResponse is the result of an embedding call.
type EmbeddingResponse struct {
	Embedding []float32
	Model     string
	Usage     *Usage
}

// ImageConfig holds per-call image generation options.
type ImageConfig struct {
	Model   string
	Size    string
	Quality string
}

// Backend is a uniform interface over heterogeneous AI services.
type Backend interface {
	// ID returns the registry identifier, e.g. "openai".
	ID() string
	// Name returns a human readable name.
	Name() string

	SupportsChat() bool
	SupportsEmbeddings() bool
	SupportsImageGeneration() bool

	// DefaultChatModel returns the model used when ChatConfig.Model is empty.
	DefaultChatModel() string
	// DefaultEmbeddingModel returns "" for backends without embeddings.
	DefaultEmbeddingModel() string

	Chat(ctx context.Context, messages []Message, cfg *ChatConfig) (*ChatResponse, error)
	Embed(ctx context.Context, text string, cfg *EmbedConfig) (*EmbeddingResponse, error)
	// GenerateImage returns a URL or data URI of the generated image.
	GenerateImage(ctx context.Context, prompt string, cfg *ImageConfig) (string, error)

	// ValidateCredential reports whether key is accepted by the service.
	// Only an explicit unauthorized answer yields false.
	ValidateCredential(ctx context.Context, key string) bool
}

// Helper for creating system prompts
func SystemPrompt(content string) Message {
	return Message{Role: "system", Content: content}
}

// Helper for creating user messages
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// Helper for creating assistant messages
func AssistantMessage(content string) Message {
	return Message{Role: "assistant", Content: content}
}

// FormatMessages builds a message list from a system prompt, history and the user content.
func FormatMessages(systemPrompt string, userContent string, history []Message) []Message {
	messages := []Message{}
	if systemPrompt != "" {
		messages = append(messages, SystemPrompt(systemPrompt))
	}
	messages = append(messages, history...)
	messages = append(messages, UserMessage(userContent))
	return messages
}

func unsupported(backendID, operation string) error {
	return &CapabilityError{BackendID: backendID, Operation: operation}
}

// CapabilityError describes a request for an operation the backend cannot serve.
type CapabilityError struct {
	BackendID string
	Operation string
}

func (e *CapabilityError) Error() string {
	return e.BackendID + " does not support " + e.Operation
}

// Unwrap lets errors.Is match ErrUnsupportedCapability.
func (e *CapabilityError) Unwrap() error {
	return ErrUnsupportedCapability
}
