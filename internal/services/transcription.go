package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/voxnote/voxnote-backend/internal/logger"
	"github.com/voxnote/voxnote-backend/internal/platform/openai"
	"github.com/voxnote/voxnote-backend/internal/types"
)

const (
	shortExtractTimeout = 30 * time.Second
	longExtractTimeout  = 5 * time.Minute
	segmentSeconds      = 600 // 10-minute chunks
	// Whisper rejects uploads above 25 MB; chunk anything close to it.
	chunkThresholdBytes = 24 * 1024 * 1024
)

const (
	shortSummaryPrompt   = "你是一個專業的影音轉型文字助手。請將下方的逐字稿整理成：1. 核心重點（列表） 2. 摘要 3. 建議。請使用繁體中文。"
	longSummaryPrompt    = "你是一個專業的影音轉型文字助手。這是一段長影片的逐字稿，請將其整理成：1. 核心重點（列表） 2. 整體摘要 3. 逐段重點 4. 關鍵結論。請使用繁體中文。"
	fileSummaryPrompt    = "你是一個專業的影音轉型文字助手。這是一段錄音或影片的逐字稿，請將其整理成：1. 核心重點（列表） 2. 整體摘要 3. 逐段重點 4. 關鍵結論。請使用繁體中文。"
	meetingSummaryPrompt = "你是一個專業的會議記錄助手。請根據逐字稿整理出：1. 會議核心議題 2. 重點討論細節 3. 決議事項與 Action Items。請使用繁體中文。"
)

type TranscribeResult struct {
	Transcript   string      `json:"transcript"`
	Summary      string      `json:"summary"`
	OriginalName string      `json:"originalName,omitempty"`
	URL          string      `json:"url,omitempty"`
	Usage        types.Usage `json:"usage"`
	Cost         string      `json:"cost"`
}

type TranscriptionService interface {
	// TranscribeURL handles a short reel/shorts link end to end.
	TranscribeURL(ctx context.Context, url string, model string) (*TranscribeResult, error)
	// TranscribeLongURL downloads the full audio, splits it into 10-minute
	// chunks and transcribes them sequentially to stay under rate limits.
	TranscribeLongURL(ctx context.Context, url string, model string) (*TranscribeResult, error)
	// TranscribeFile processes an uploaded audio or video file.
	TranscribeFile(ctx context.Context, path string, contentType string, originalName string, model string) (*TranscribeResult, error)
	// ProcessMeeting transcribes a live meeting recording.
	ProcessMeeting(ctx context.Context, path string, model string) (*TranscribeResult, error)
}

type transcriptionService struct {
	log       *logger.Logger
	oai       openai.Client
	providers *ProviderSet
	media     MediaToolsService
	pricing   *PricingService
	language  string
}

func NewTranscriptionService(baseLog *logger.Logger, oai openai.Client, providers *ProviderSet, media MediaToolsService, pricing *PricingService, language string) TranscriptionService {
	if language == "" {
		language = "zh"
	}
	return &transcriptionService{
		log:       baseLog.With("service", "TranscriptionService"),
		oai:       oai,
		providers: providers,
		media:     media,
		pricing:   pricing,
		language:  language,
	}
}

func isSupportedShortURL(url string) bool {
	return strings.Contains(url, "instagram.com/reel/") ||
		strings.Contains(url, "instagram.com/p/") ||
		strings.Contains(url, "youtube.com/shorts/") ||
		strings.Contains(url, "youtu.be/")
}

func (s *transcriptionService) TranscribeURL(ctx context.Context, url string, model string) (*TranscribeResult, error) {
	if strings.TrimSpace(url) == "" {
		return nil, NewValidationError("URL is required")
	}
	if !isSupportedShortURL(url) {
		return nil, NewValidationError("請提供有效的 Instagram Reel 或 YouTube Shorts 連結。")
	}

	workDir, cleanup, err := s.media.MakeWorkDir()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	audioPath := filepath.Join(workDir, "audio.mp3")
	s.log.Info("Starting extraction", "url", url, "model", model)
	if err := s.media.ExtractAudioFromURL(ctx, url, audioPath, shortExtractTimeout); err != nil {
		return nil, &ProviderError{Provider: "yt-dlp", Op: "audio extraction", Err: err}
	}

	transcription, err := s.oai.Transcribe(ctx, audioPath, s.language)
	if err != nil {
		return nil, &ProviderError{Provider: "openai", Op: "transcription", Err: err}
	}
	s.log.Info("Transcription complete", "duration_seconds", transcription.Duration)

	return s.summarize(ctx, model, transcription.Text, transcription.Duration, shortSummaryPrompt)
}

func (s *transcriptionService) TranscribeLongURL(ctx context.Context, url string, model string) (*TranscribeResult, error) {
	if strings.TrimSpace(url) == "" {
		return nil, NewValidationError("URL is required")
	}

	workDir, cleanup, err := s.media.MakeWorkDir()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	audioPath := filepath.Join(workDir, "full_audio.mp3")
	s.log.Info("Starting long extraction", "url", url)
	if err := s.media.ExtractAudioFromURL(ctx, url, audioPath, longExtractTimeout); err != nil {
		return nil, &ProviderError{Provider: "yt-dlp", Op: "audio extraction", Err: err}
	}

	transcript, duration, err := s.transcribeChunked(ctx, audioPath, workDir)
	if err != nil {
		return nil, err
	}

	return s.summarize(ctx, model, transcript, duration, longSummaryPrompt)
}

func (s *transcriptionService) TranscribeFile(ctx context.Context, path string, contentType string, originalName string, model string) (*TranscribeResult, error) {
	workDir, cleanup, err := s.media.MakeWorkDir()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	audioPath := path
	if strings.HasPrefix(contentType, "video/") {
		s.log.Info("Extracting audio from video file", "name", originalName)
		extracted := filepath.Join(workDir, "extracted_audio.mp3")
		if err := s.media.ExtractAudioFromVideo(ctx, path, extracted); err != nil {
			return nil, &ProviderError{Provider: "ffmpeg", Op: "audio extraction", Err: err}
		}
		audioPath = extracted
	}

	info, err := os.Stat(audioPath)
	if err != nil {
		return nil, err
	}

	var (
		transcript string
		duration   float64
	)
	if info.Size() > chunkThresholdBytes {
		s.log.Info("File exceeds single-upload limit, chunking", "bytes", info.Size())
		transcript, duration, err = s.transcribeChunked(ctx, audioPath, workDir)
		if err != nil {
			return nil, err
		}
	} else {
		transcription, terr := s.oai.Transcribe(ctx, audioPath, s.language)
		if terr != nil {
			return nil, &ProviderError{Provider: "openai", Op: "transcription", Err: terr}
		}
		transcript = transcription.Text
		duration = transcription.Duration
	}

	result, err := s.summarize(ctx, model, transcript, duration, fileSummaryPrompt)
	if err != nil {
		return nil, err
	}
	result.OriginalName = originalName
	return result, nil
}

func (s *transcriptionService) ProcessMeeting(ctx context.Context, path string, model string) (*TranscribeResult, error) {
	transcription, err := s.oai.Transcribe(ctx, path, s.language)
	if err != nil {
		return nil, &ProviderError{Provider: "openai", Op: "transcription", Err: err}
	}

	result, err := s.summarize(ctx, model, transcription.Text, transcription.Duration, meetingSummaryPrompt)
	if err != nil {
		return nil, err
	}
	result.URL = "即時會議錄音"
	return result, nil
}

// transcribeChunked splits the audio into 10-minute segments and stitches
// the per-chunk transcripts with time-range headers.
func (s *transcriptionService) transcribeChunked(ctx context.Context, audioPath string, workDir string) (string, float64, error) {
	chunks, err := s.media.SegmentAudio(ctx, audioPath, workDir, segmentSeconds)
	if err != nil {
		return "", 0, &ProviderError{Provider: "ffmpeg", Op: "audio segmentation", Err: err}
	}
	s.log.Info("Audio split into chunks", "count", len(chunks))

	var (
		full     strings.Builder
		duration float64
	)
	for i, chunkPath := range chunks {
		s.log.Info("Transcribing chunk", "index", i+1, "total", len(chunks))
		transcription, terr := s.oai.Transcribe(ctx, chunkPath, s.language)
		if terr != nil {
			return "", 0, &ProviderError{Provider: "openai", Op: "transcription", Err: terr}
		}
		fmt.Fprintf(&full, "[時段 %d:00 - %d:00]\n%s\n\n", i*10, (i+1)*10, transcription.Text)
		duration += transcription.Duration
	}
	return full.String(), duration, nil
}

func (s *transcriptionService) summarize(ctx context.Context, model string, transcript string, durationSeconds float64, systemPrompt string) (*TranscribeResult, error) {
	provider := s.providers.For(model)
	generation, err := provider.Generate(ctx, nil, transcript, systemPrompt)
	if err != nil {
		return nil, err
	}

	cost := s.pricing.TokenCost(provider.Model(), generation.Usage) +
		s.pricing.MinuteCost(s.oai.TranscribeModel(), durationSeconds)

	return &TranscribeResult{
		Transcript: transcript,
		Summary:    generation.Text,
		Usage:      generation.Usage,
		Cost:       FormatCost(cost),
	}, nil
}
