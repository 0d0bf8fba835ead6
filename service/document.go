package service

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Accepted document MIME types
const (
	MIMEPDF  = "application/pdf"
	MIMEDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var (
	ErrUnsupportedType  = errors.New("only PDF and DOCX files are supported")
	ErrDocumentTooLarge = errors.New("document exceeds the upload size limit")
	ErrEmptyDocument    = errors.New("document is empty")
)

// Document is an upload that passed validation
type Document struct {
	Filename    string
	ContentType string
	Size        int64
}

// sniffLen is mimetype's default read limit; zip-based formats need more than
// the first 512 bytes to be told apart
const sniffLen = 3072

// ValidateDocument decides whether an upload may be forwarded to the analysis
// service. The declared part type wins; when the browser sent none (or the
// generic octet-stream) the leading bytes of the file are sniffed.
func ValidateDocument(filename, declaredType string, size, maxSize int64, r io.ReadSeeker) (*Document, error) {
	if size == 0 {
		return nil, ErrEmptyDocument
	}
	if maxSize > 0 && size > maxSize {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrDocumentTooLarge, size, maxSize)
	}

	contentType := normalizeMediaType(declaredType)
	if contentType == "" || contentType == "application/octet-stream" {
		detected, err := sniffDocument(r)
		if err != nil {
			return nil, err
		}
		contentType = detected
	}

	if !IsAcceptedType(contentType) {
		return nil, fmt.Errorf("%w: got %s", ErrUnsupportedType, contentType)
	}

	return &Document{
		Filename:    filename,
		ContentType: contentType,
		Size:        size,
	}, nil
}

// IsAcceptedType reports whether the media type is PDF or DOCX
func IsAcceptedType(contentType string) bool {
	switch normalizeMediaType(contentType) {
	case MIMEPDF, MIMEDOCX:
		return true
	default:
		return false
	}
}

func normalizeMediaType(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(v)
	if err != nil {
		return strings.ToLower(v)
	}
	return mediaType
}

func sniffDocument(r io.ReadSeeker) (string, error) {
	buffer := make([]byte, sniffLen)
	n, err := io.ReadFull(r, buffer)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to rewind file: %w", err)
	}

	detected := mimetype.Detect(buffer[:n])
	for m := detected; m != nil; m = m.Parent() {
		if IsAcceptedType(m.String()) {
			return normalizeMediaType(m.String()), nil
		}
	}
	return normalizeMediaType(detected.String()), nil
}
