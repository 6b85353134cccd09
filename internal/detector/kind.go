package detector

import (
	"errors"
	"fmt"
	"strings"
)

// ContentKind is the declared category of submitted material.
type ContentKind string

const (
	// KindText is free text typed or pasted by the user
	KindText ContentKind = "text"
	// KindDocument is text extracted from an uploaded document
	KindDocument ContentKind = "document"
	// KindImage is an uploaded image; no text features are derived
	KindImage ContentKind = "image"
)

// ErrUnknownKind is returned for content kinds outside text/document/image.
var ErrUnknownKind = errors.New("unknown content kind")

// Kinds lists every supported content kind.
func Kinds() []ContentKind {
	return []ContentKind{KindText, KindDocument, KindImage}
}

// Valid reports whether k is a supported kind.
func (k ContentKind) Valid() bool {
	switch k {
	case KindText, KindDocument, KindImage:
		return true
	}
	return false
}

// String returns the wire name of the kind.
func (k ContentKind) String() string {
	return string(k)
}

// ParseContentKind parses a wire name. An empty string means text.
func ParseContentKind(s string) (ContentKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return KindText, nil
	}
	k := ContentKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}
