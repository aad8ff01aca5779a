package scanning

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	// ErrNoTranscriber is returned when an image needs transcribing but no Transcriber is configured.
	ErrNoTranscriber = errors.New("no transcriber configured for image documents")
	// ErrUnsupportedDocument is returned for content that is neither text, PDF nor an image.
	ErrUnsupportedDocument = errors.New("unsupported document type")
	// ErrEmptyDocument is returned when no text could be read from the document.
	ErrEmptyDocument = errors.New("document contains no readable text")
)

// DocumentReader turns uploaded invoice and receipt files into plain text
type DocumentReader struct {
	transcriber Transcriber
}

// NewDocumentReader creates a DocumentReader. transcriber may be nil, in which
// case only text and text-layer PDFs can be read.
func NewDocumentReader(transcriber Transcriber) *DocumentReader {
	return &DocumentReader{transcriber: transcriber}
}

// ReadText returns the document text.
// PDFs use their text layer when they have one; scanned PDFs and images are transcribed.
func (r *DocumentReader) ReadText(ctx context.Context, data []byte, contentType string) (string, error) {
	mimeType := normalizeMimeType(contentType, data)

	var text string
	var err error
	switch {
	case strings.HasPrefix(mimeType, "text/"):
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%w: text is not valid UTF-8", ErrUnsupportedDocument)
		}
		text = string(data)
	case mimeType == "application/pdf":
		text, err = pdfText(data)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(text) == "" {
			text, err = r.transcribe(ctx, data, mimeType)
		}
	case strings.HasPrefix(mimeType, "image/"):
		text, err = r.transcribe(ctx, data, mimeType)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedDocument, mimeType)
	}
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyDocument
	}
	return text, nil
}

func (r *DocumentReader) transcribe(ctx context.Context, data []byte, mimeType string) (string, error) {
	if r.transcriber == nil {
		return "", ErrNoTranscriber
	}
	text, err := r.transcriber.Transcribe(ctx, data, mimeType)
	if err != nil {
		return "", fmt.Errorf("transcribing document: %w", err)
	}
	return text, nil
}
