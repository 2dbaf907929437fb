package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/voxnote/voxnote-backend/internal/logger"
	"github.com/voxnote/voxnote-backend/internal/types"
)

// Client is the OpenAI API surface used by the rest of the backend:
// embeddings, chat completions and Whisper transcription.
type Client interface {
	Embed(ctx context.Context, input string) ([]float32, error)
	ChatComplete(ctx context.Context, system string, messages []Message) (Completion, error)
	Transcribe(ctx context.Context, audioPath string, language string) (Transcription, error)

	EmbedModel() string
	ChatModel() string
	TranscribeModel() string
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Completion struct {
	Text  string
	Usage types.Usage
}

type Transcription struct {
	Text     string
	Duration float64 // seconds
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	embedModel string
	sttModel   string
	httpClient *http.Client
	sttClient  *http.Client
	maxRetries int
}

func NewClient(log *logger.Logger) (Client, error) {
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}

	baseURL := strings.TrimSpace(os.Getenv("OPENAI_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	model := strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	if model == "" {
		model = "gpt-4o-mini"
	}
	embedModel := strings.TrimSpace(os.Getenv("OPENAI_EMBED_MODEL"))
	if embedModel == "" {
		embedModel = "text-embedding-3-small"
	}
	sttModel := strings.TrimSpace(os.Getenv("OPENAI_STT_MODEL"))
	if sttModel == "" {
		sttModel = "whisper-1"
	}

	timeout := time.Duration(envInt("OPENAI_TIMEOUT_SECONDS", 120)) * time.Second
	// Whisper uploads of long chunks need more headroom than chat calls.
	sttTimeout := time.Duration(envInt("OPENAI_STT_TIMEOUT_SECONDS", 600)) * time.Second

	return &client{
		log:        log.With("client", "OpenAIClient"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		embedModel: embedModel,
		sttModel:   sttModel,
		httpClient: &http.Client{Timeout: timeout},
		sttClient:  &http.Client{Timeout: sttTimeout},
		maxRetries: envInt("OPENAI_MAX_RETRIES", 2),
	}, nil
}

func (c *client) EmbedModel() string      { return c.embedModel }
func (c *client) ChatModel() string       { return c.model }
func (c *client) TranscribeModel() string { return c.sttModel }

func envInt(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	var parsed int
	if _, err := fmt.Sscanf(v, "%d", &parsed); err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

// -------------------- transport --------------------

type httpError struct {
	StatusCode int
	Body       string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

func isRetryable(err error) bool {
	var he *httpError
	if errors.As(err, &he) {
		return he.StatusCode == http.StatusTooManyRequests || he.StatusCode >= 500
	}
	// Network-level errors are worth one more try.
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func (c *client) doOnce(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &httpError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if out == nil {
		return nil
	}
	if uErr := json.Unmarshal(raw, out); uErr != nil {
		return fmt.Errorf("openai decode error: %w; raw=%s", uErr, string(raw))
	}
	return nil
}

func (c *client) do(ctx context.Context, method, path string, body any, out any) error {
	backoff := 1 * time.Second
	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := c.doOnce(ctx, method, path, body, out)
		if err == nil {
			return nil
		}
		if attempt == c.maxRetries || !isRetryable(err) {
			return err
		}
		c.log.Warn("OpenAI request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", backoff.String(),
			"error", err.Error(),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

// -------------------- embeddings --------------------

type embeddingsRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (c *client) Embed(ctx context.Context, input string) ([]float32, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		input = " "
	}

	req := embeddingsRequest{Model: c.embedModel, Input: input}
	var resp embeddingsResponse
	if err := c.do(ctx, "POST", "/v1/embeddings", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embeddings: empty response for model %s", c.embedModel)
	}

	vec := make([]float32, len(resp.Data[0].Embedding))
	for i, f := range resp.Data[0].Embedding {
		vec[i] = float32(f)
	}
	return vec, nil
}

// -------------------- chat completions --------------------

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func (c *client) ChatComplete(ctx context.Context, system string, messages []Message) (Completion, error) {
	all := make([]Message, 0, len(messages)+1)
	if strings.TrimSpace(system) != "" {
		all = append(all, Message{Role: "system", Content: system})
	}
	all = append(all, messages...)

	req := chatRequest{Model: c.model, Messages: all}
	var resp chatResponse
	if err := c.do(ctx, "POST", "/v1/chat/completions", req, &resp); err != nil {
		return Completion{}, err
	}
	if len(resp.Choices) == 0 {
		return Completion{}, fmt.Errorf("openai chat: no choices returned for model %s", c.model)
	}
	return Completion{
		Text: resp.Choices[0].Message.Content,
		Usage: types.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// -------------------- transcription --------------------

type transcriptionResponse struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
}

// Transcribe uploads one audio file to Whisper. Chunking of large files is
// the caller's job; this call is a single multipart request.
func (c *client) Transcribe(ctx context.Context, audioPath string, language string) (Transcription, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return Transcription{}, err
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return Transcription{}, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return Transcription{}, err
	}
	_ = mw.WriteField("model", c.sttModel)
	if language != "" {
		_ = mw.WriteField("language", language)
	}
	_ = mw.WriteField("response_format", "verbose_json")
	if err := mw.Close(); err != nil {
		return Transcription{}, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/audio/transcriptions", &buf)
	if err != nil {
		return Transcription{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.sttClient.Do(req)
	if err != nil {
		return Transcription{}, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return Transcription{}, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Transcription{}, &httpError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var parsed transcriptionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Transcription{}, fmt.Errorf("openai transcription decode error: %w", err)
	}
	return Transcription{Text: parsed.Text, Duration: parsed.Duration}, nil
}
