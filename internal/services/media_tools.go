package services

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/voxnote/voxnote-backend/internal/logger"
)

// MediaToolsService is the glue around system binaries:
//
// REQUIRED BINARIES in the server runtime:
// - yt-dlp for URL -> audio extraction
// - ffmpeg for video -> audio and audio segmentation
//
// Synchronous and deterministic; every invocation runs under a bounded
// timeout, and work directories are released by the caller-held cleanup.
type MediaToolsService interface {
	AssertReady(ctx context.Context) error

	// MakeWorkDir returns a fresh scoped directory and its cleanup. The
	// cleanup must run on success and failure paths alike.
	MakeWorkDir() (string, func(), error)

	ExtractAudioFromURL(ctx context.Context, url string, outPath string, timeout time.Duration) error
	ExtractAudioFromVideo(ctx context.Context, videoPath string, outPath string) error
	// SegmentAudio splits audio into segmentSeconds pieces, returning chunk
	// paths in playback order.
	SegmentAudio(ctx context.Context, audioPath string, outDir string, segmentSeconds int) ([]string, error)
}

type mediaToolsService struct {
	log *logger.Logger

	ytdlpPath  string
	ffmpegPath string
	workRoot   string

	defaultTimeout time.Duration
}

func NewMediaToolsService(log *logger.Logger) MediaToolsService {
	workRoot := strings.TrimSpace(os.Getenv("MEDIA_WORK_ROOT"))
	if workRoot == "" {
		workRoot = filepath.Join(os.TempDir(), "voxnote-media")
	}
	return &mediaToolsService{
		log:            log.With("service", "MediaToolsService"),
		ytdlpPath:      "yt-dlp",
		ffmpegPath:     "ffmpeg",
		workRoot:       workRoot,
		defaultTimeout: 10 * time.Minute,
	}
}

func (m *mediaToolsService) AssertReady(ctx context.Context) error {
	for _, bin := range []string{m.ytdlpPath, m.ffmpegPath} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("missing required binary %q in PATH: %w", bin, err)
		}
	}
	if err := os.MkdirAll(m.workRoot, 0o755); err != nil {
		return fmt.Errorf("create workRoot: %w", err)
	}
	return nil
}

func (m *mediaToolsService) MakeWorkDir() (string, func(), error) {
	dir := filepath.Join(m.workRoot, uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("create work dir: %w", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			m.log.Warn("Work dir cleanup failed", "dir", dir, "error", err)
		}
	}
	return dir, cleanup, nil
}

func (m *mediaToolsService) run(ctx context.Context, timeout time.Duration, name string, args ...string) error {
	if timeout <= 0 {
		timeout = m.defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%s timed out after %s", name, timeout)
		}
		return fmt.Errorf("%s failed: %w: %s", name, err, truncateRunes(string(out), 500))
	}
	return nil
}

func (m *mediaToolsService) ExtractAudioFromURL(ctx context.Context, url string, outPath string, timeout time.Duration) error {
	err := m.run(ctx, timeout, m.ytdlpPath,
		"-x", "--audio-format", "mp3",
		"-o", outPath,
		url,
	)
	if err != nil {
		return err
	}
	if _, statErr := os.Stat(outPath); statErr != nil {
		return fmt.Errorf("yt-dlp produced no audio file: %w", statErr)
	}
	return nil
}

func (m *mediaToolsService) ExtractAudioFromVideo(ctx context.Context, videoPath string, outPath string) error {
	return m.run(ctx, 0, m.ffmpegPath,
		"-i", videoPath,
		"-vn",
		"-acodec", "libmp3lame",
		"-q:a", "2",
		outPath,
	)
}

func (m *mediaToolsService) SegmentAudio(ctx context.Context, audioPath string, outDir string, segmentSeconds int) ([]string, error) {
	template := filepath.Join(outDir, "chunk_%03d.mp3")
	err := m.run(ctx, 0, m.ffmpegPath,
		"-i", audioPath,
		"-f", "segment",
		"-segment_time", strconv.Itoa(segmentSeconds),
		"-c:a", "libmp3lame",
		template,
	)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, err
	}
	var chunks []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "chunk_") && strings.HasSuffix(name, ".mp3") {
			chunks = append(chunks, filepath.Join(outDir, name))
		}
	}
	sort.Strings(chunks)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("ffmpeg produced no segments for %s", audioPath)
	}
	return chunks, nil
}
