package ingest

import (
	"bytes"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encoding names reported in FileMetadata.
const (
	EncodingUTF8        = "utf-8"
	EncodingUTF16LE     = "utf-16le"
	EncodingUTF16BE     = "utf-16be"
	EncodingWindows1252 = "windows-1252"
)

const maxEncodingSample = 8192

// DetectEncoding guesses the character encoding of a text upload: byte
// order mark first, then a NUL-byte heuristic for BOM-less UTF-16, then
// UTF-8. Text that is mostly UTF-8 with a few stray bytes stays UTF-8 and
// the stray bytes decode to U+FFFD. Only text with no well-formed
// multi-byte sequence at all is treated as windows-1252.
func DetectEncoding(data []byte) (name string, hasBOM bool) {
	switch {
	case bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}):
		return EncodingUTF8, true
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		return EncodingUTF16LE, true
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		return EncodingUTF16BE, true
	}

	sample := data
	if len(sample) > maxEncodingSample {
		sample = sample[:maxEncodingSample]
	}

	if enc := guessUTF16(sample); enc != "" {
		return enc, false
	}
	if validUTF8Prefix(sample, len(data) > len(sample)) || mostlyUTF8(sample) {
		return EncodingUTF8, false
	}
	return EncodingWindows1252, false
}

// mostlyUTF8 reports whether sample holds at least one well-formed
// multi-byte sequence and no more invalid bytes than such sequences.
func mostlyUTF8(sample []byte) bool {
	var multi, invalid int
	for len(sample) > 0 {
		r, size := utf8.DecodeRune(sample)
		switch {
		case r == utf8.RuneError && size == 1:
			invalid++
		case size > 1:
			multi++
		}
		sample = sample[size:]
	}
	return multi > 0 && invalid <= multi
}

// validUTF8Prefix tolerates a rune cut off by sampling.
func validUTF8Prefix(sample []byte, truncated bool) bool {
	if utf8.Valid(sample) {
		return true
	}
	if !truncated {
		return false
	}
	for cut := 1; cut < utf8.UTFMax && cut < len(sample); cut++ {
		if utf8.Valid(sample[:len(sample)-cut]) {
			return true
		}
	}
	return false
}

// guessUTF16 looks for the zero high bytes that ASCII-range text leaves in
// UTF-16.
func guessUTF16(sample []byte) string {
	if len(sample) < 4 || len(sample)%2 != 0 {
		return ""
	}
	pairs := len(sample) / 2
	var evenZero, oddZero int
	for i := 0; i+1 < len(sample); i += 2 {
		if sample[i] == 0 {
			evenZero++
		}
		if sample[i+1] == 0 {
			oddZero++
		}
	}
	switch {
	case float64(oddZero)/float64(pairs) > 0.75 && evenZero == 0:
		return EncodingUTF16LE
	case float64(evenZero)/float64(pairs) > 0.75 && oddZero == 0:
		return EncodingUTF16BE
	}
	return ""
}

// DecodeText converts data to UTF-8 and strips any byte order mark.
// Undecodable bytes become U+FFFD.
func DecodeText(data []byte) (text, encodingName string) {
	name, _ := DetectEncoding(data)

	var dec *encoding.Decoder
	switch name {
	case EncodingUTF16LE:
		dec = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
	case EncodingUTF16BE:
		dec = unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()
	case EncodingWindows1252:
		dec = charmap.Windows1252.NewDecoder()
	default:
		data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
		return string(bytes.ToValidUTF8(data, []byte("�"))), name
	}

	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), dec))
	if err != nil {
		return string(bytes.ToValidUTF8(data, []byte("�"))), name
	}
	return string(bytes.ToValidUTF8(out, []byte("�"))), name
}
