// Package ingest turns uploaded files into content the detector can score.
//
// Ingestion never fails: unreadable input degrades to placeholder content.
// Validate is the only gate that rejects an upload.
package ingest

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"

	"github.com/pndeyyash-cmd/ai-content-detector/internal/detector"
)

const (
	MIMEText = "text/plain"
	MIMEPDF  = "application/pdf"
	MIMEDoc  = "application/msword"
	MIMEDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var (
	// ErrUnsupportedType is returned by Validate for types outside the
	// accepted upload list.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrTooLarge is returned by Validate for uploads over the size limit.
	ErrTooLarge = errors.New("file too large")
	// ErrEmpty is returned by Validate for zero-byte uploads.
	ErrEmpty = errors.New("file is empty")
)

// ProcessedFile is the ingestion output. The detector only reads Content
// and Kind.
type ProcessedFile struct {
	Content  string               `json:"content"`
	Kind     detector.ContentKind `json:"type"`
	Metadata FileMetadata         `json:"metadata"`
}

// FileMetadata describes the upload.
type FileMetadata struct {
	Name          string         `json:"name"`
	Size          int64          `json:"size"`
	MimeType      string         `json:"mimeType"`
	Encoding      string         `json:"encoding,omitempty"`
	ExtractedText string         `json:"extractedText,omitempty"`
	ImageAnalysis *ImageAnalysis `json:"imageAnalysis,omitempty"`
}

var extensionTypes = map[string]string{
	".txt":  MIMEText,
	".pdf":  MIMEPDF,
	".doc":  MIMEDoc,
	".docx": MIMEDocx,
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
}

var typeDescriptions = map[string]string{
	MIMEText:     "Text Document",
	MIMEPDF:      "PDF Document",
	MIMEDoc:      "Word Document",
	MIMEDocx:     "Word Document",
	"image/jpeg": "JPEG Image",
	"image/jpg":  "JPEG Image",
	"image/png":  "PNG Image",
	"image/gif":  "GIF Image",
	"image/bmp":  "BMP Image",
	"image/webp": "WebP Image",
}

// ResolveMIME returns the effective MIME type of an upload. A declared
// type wins unless it is empty or generic; then the extension is tried,
// then the content is sniffed.
func ResolveMIME(name, declared string, data []byte) string {
	declared = normalizeMIME(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if t, ok := extensionTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return t
	}
	if len(data) == 0 {
		return declared
	}

	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		if _, ok := typeDescriptions[normalizeMIME(m.String())]; ok {
			return normalizeMIME(m.String())
		}
	}
	return normalizeMIME(detected.String())
}

func normalizeMIME(m string) string {
	m, _, _ = strings.Cut(m, ";")
	return strings.ToLower(strings.TrimSpace(m))
}

// Accepted reports whether mimeType is on the upload allow list.
func Accepted(mimeType string) bool {
	m := normalizeMIME(mimeType)
	if strings.HasPrefix(m, "image/") {
		_, ok := typeDescriptions[m]
		return ok
	}
	switch m {
	case MIMEText, MIMEPDF, MIMEDoc, MIMEDocx:
		return true
	}
	return false
}

// Validate rejects uploads that should not reach ProcessFile.
func Validate(name, mimeType string, size, maxSize int64) error {
	if size <= 0 {
		return fmt.Errorf("%s: %w", name, ErrEmpty)
	}
	if maxSize > 0 && size > maxSize {
		return fmt.Errorf("%s is %s, limit is %s: %w", name, FormatSize(size), FormatSize(maxSize), ErrTooLarge)
	}
	if !Accepted(mimeType) {
		return fmt.Errorf("%s (%s): %w", name, mimeType, ErrUnsupportedType)
	}
	return nil
}

// ProcessFile extracts analyzable content from an upload. mimeType should
// already be resolved with ResolveMIME.
func ProcessFile(name, mimeType string, data []byte) *ProcessedFile {
	mimeType = normalizeMIME(mimeType)
	meta := FileMetadata{
		Name:     name,
		Size:     int64(len(data)),
		MimeType: mimeType,
	}

	switch {
	case strings.HasPrefix(mimeType, "image/"):
		analysis, err := analyzeImage(data, mimeType)
		if err != nil {
			return &ProcessedFile{
				Content:  "Image file: " + name,
				Kind:     detector.KindImage,
				Metadata: meta,
			}
		}
		meta.ImageAnalysis = analysis
		return &ProcessedFile{
			Content: fmt.Sprintf("Image analysis: %dx%d %s image",
				analysis.Dimensions.Width, analysis.Dimensions.Height, analysis.Format),
			Kind:     detector.KindImage,
			Metadata: meta,
		}

	case mimeType == MIMEText:
		text, enc := DecodeText(data)
		meta.Encoding = enc
		meta.ExtractedText = text
		return &ProcessedFile{Content: text, Kind: detector.KindText, Metadata: meta}

	case mimeType == MIMEPDF:
		text := fmt.Sprintf(pdfPlaceholder, name)
		meta.ExtractedText = text
		return &ProcessedFile{Content: text, Kind: detector.KindDocument, Metadata: meta}

	case strings.Contains(mimeType, "word") || strings.Contains(mimeType, "document"):
		text := fmt.Sprintf(wordPlaceholder, name)
		meta.ExtractedText = text
		return &ProcessedFile{Content: text, Kind: detector.KindDocument, Metadata: meta}
	}

	return &ProcessedFile{
		Content:  "File: " + name,
		Kind:     detector.KindDocument,
		Metadata: meta,
	}
}

// Binary document parsing is not implemented; these stand in for the
// extracted text.
const (
	pdfPlaceholder  = `This is mock extracted text from the PDF document "%s". In a real implementation, this would use a PDF parsing library like pdf-parse or PDF.js to extract actual text content from the PDF file. The extracted text would then be analyzed for AI-generated content patterns.`
	wordPlaceholder = `This is mock extracted text from the document "%s". In a real implementation, this would use libraries like mammoth.js for Word documents to extract actual text content. The extracted text would then be analyzed for AI-generated content patterns and linguistic markers.`
)

// TypeDescription is a human label for a MIME type.
func TypeDescription(mimeType string) string {
	if d, ok := typeDescriptions[normalizeMIME(mimeType)]; ok {
		return d
	}
	return "Unknown File Type"
}

// FormatSize renders a byte count such as "1.5 MB".
func FormatSize(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	return humanize.Bytes(uint64(n))
}

const previewLimit = 500

// Preview truncates content for display, appending "..." when cut.
func Preview(content string) string {
	r := []rune(content)
	if len(r) <= previewLimit {
		return content
	}
	return string(r[:previewLimit]) + "..."
}
