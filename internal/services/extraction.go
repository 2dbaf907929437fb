package services

import (
	"context"
	"os"
	"strings"
)

// ContentExtractor pulls retrievable text out of an uploaded file. PDF and
// DOCX extraction are external collaborators; plug richer implementations in
// behind this interface.
type ContentExtractor interface {
	Extract(ctx context.Context, path string, contentType string) (string, error)
}

type plainTextExtractor struct{}

func NewPlainTextExtractor() ContentExtractor {
	return &plainTextExtractor{}
}

func (plainTextExtractor) Extract(ctx context.Context, path string, contentType string) (string, error) {
	switch {
	case strings.HasPrefix(contentType, "text/plain"),
		strings.HasPrefix(contentType, "text/markdown"):
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	default:
		return "", NewValidationError("不支援的檔案格式，請上傳純文字檔案。")
	}
}
