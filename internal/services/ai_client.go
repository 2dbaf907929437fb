package services

import (
	"context"
	"strings"

	"github.com/voxnote/voxnote-backend/internal/platform/gemini"
	"github.com/voxnote/voxnote-backend/internal/platform/openai"
	"github.com/voxnote/voxnote-backend/internal/types"
)

// Turn is one prior exchange entry passed to a generation provider.
type Turn struct {
	Role    string
	Content string
}

type Generation struct {
	Text  string
	Usage types.Usage
}

// GenerationProvider produces an answer from history + user message +
// optional system instruction. Callers never branch on provider identity;
// all provider-specific prompt shaping stays behind this interface.
type GenerationProvider interface {
	Name() string
	Model() string
	Generate(ctx context.Context, history []Turn, userMessage string, systemInstruction string) (Generation, error)
}

// EmbeddingProvider converts text to a fixed-length vector. It never
// truncates internally; callers cap input length to the model limit.
type EmbeddingProvider interface {
	Model() string
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ---- OpenAI: native role-structured messages ----

type openAIProvider struct {
	client openai.Client
}

func NewOpenAIProvider(client openai.Client) GenerationProvider {
	return &openAIProvider{client: client}
}

func (p *openAIProvider) Name() string  { return "openai" }
func (p *openAIProvider) Model() string { return p.client.ChatModel() }

func (p *openAIProvider) Generate(ctx context.Context, history []Turn, userMessage string, systemInstruction string) (Generation, error) {
	messages := make([]openai.Message, 0, len(history)+1)
	for _, h := range history {
		messages = append(messages, openai.Message{Role: h.Role, Content: h.Content})
	}
	messages = append(messages, openai.Message{Role: types.RoleUser, Content: userMessage})

	completion, err := p.client.ChatComplete(ctx, systemInstruction, messages)
	if err != nil {
		return Generation{}, &ProviderError{Provider: "openai", Op: "generation", Err: err}
	}
	return Generation{Text: completion.Text, Usage: completion.Usage}, nil
}

// ---- Gemini: single-context, history flattened into one text block ----

type geminiProvider struct {
	client gemini.Client
}

func NewGeminiProvider(client gemini.Client) GenerationProvider {
	return &geminiProvider{client: client}
}

func (p *geminiProvider) Name() string  { return "gemini" }
func (p *geminiProvider) Model() string { return p.client.Model() }

func (p *geminiProvider) Generate(ctx context.Context, history []Turn, userMessage string, systemInstruction string) (Generation, error) {
	prompt := flattenHistory(history, userMessage)

	parts := make([]string, 0, 2)
	if strings.TrimSpace(systemInstruction) != "" {
		parts = append(parts, systemInstruction)
	}
	parts = append(parts, prompt)

	gen, err := p.client.GenerateContent(ctx, parts)
	if err != nil {
		return Generation{}, &ProviderError{Provider: "gemini", Op: "generation", Err: err}
	}
	return Generation{Text: gen.Text, Usage: gen.Usage}, nil
}

// flattenHistory folds prior turns into "role: content" lines followed by
// the new user message. The new message keeps its "user: " prefix even on
// the first turn, so the flattened format is uniform across a thread.
// Upgrading this integration to a native multi-turn call only touches
// geminiProvider.
func flattenHistory(history []Turn, userMessage string) string {
	var b strings.Builder
	for _, h := range history {
		b.WriteString(h.Role)
		b.WriteString(": ")
		b.WriteString(h.Content)
		b.WriteString("\n")
	}
	b.WriteString(types.RoleUser)
	b.WriteString(": ")
	b.WriteString(userMessage)
	return b.String()
}

// ---- Embedding adapter ----

type openAIEmbedder struct {
	client openai.Client
}

// NewOpenAIEmbedder is the canonical embedding provider. It is independent
// of which generation provider answers: indexed vectors and query vectors
// must come from the same model.
func NewOpenAIEmbedder(client openai.Client) EmbeddingProvider {
	return &openAIEmbedder{client: client}
}

func (e *openAIEmbedder) Model() string { return e.client.EmbedModel() }

func (e *openAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.client.Embed(ctx, text)
	if err != nil {
		return nil, &ProviderError{Provider: "openai", Op: "embedding", Err: err}
	}
	return vec, nil
}

// ProviderSet resolves the caller's model selection to a provider,
// defaulting to OpenAI for unknown or empty names.
type ProviderSet struct {
	providers map[string]GenerationProvider
	fallback  GenerationProvider
}

func NewProviderSet(fallback GenerationProvider, others ...GenerationProvider) *ProviderSet {
	set := &ProviderSet{
		providers: map[string]GenerationProvider{fallback.Name(): fallback},
		fallback:  fallback,
	}
	for _, p := range others {
		if p != nil {
			set.providers[p.Name()] = p
		}
	}
	return set
}

func (s *ProviderSet) For(name string) GenerationProvider {
	if p, ok := s.providers[strings.ToLower(strings.TrimSpace(name))]; ok {
		return p
	}
	return s.fallback
}
