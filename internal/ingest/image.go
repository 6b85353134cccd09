package ingest

import (
	"bytes"
	"encoding/binary"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ImageAnalysis describes an uploaded image.
type ImageAnalysis struct {
	Dimensions  Dimensions `json:"dimensions"`
	Format      string     `json:"format"`
	HasMetadata bool       `json:"hasMetadata"`
}

// Dimensions are pixel sizes.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// analyzeImage reads the header of data. format is the upper-cased MIME
// subtype, e.g. "JPEG" for image/jpeg.
func analyzeImage(data []byte, mimeType string) (*ImageAnalysis, error) {
	cfg, decoded, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	format := strings.ToUpper(decoded)
	if _, sub, ok := strings.Cut(mimeType, "/"); ok && sub != "" {
		format = strings.ToUpper(sub)
	}

	return &ImageAnalysis{
		Dimensions:  Dimensions{Width: cfg.Width, Height: cfg.Height},
		Format:      format,
		HasMetadata: hasEmbeddedMetadata(data, decoded),
	}, nil
}

// hasEmbeddedMetadata reports whether the image carries EXIF, XMP or
// textual annotations.
func hasEmbeddedMetadata(data []byte, format string) bool {
	switch format {
	case "png":
		return pngHasText(data)
	case "jpeg":
		return jpegHasMetadata(data)
	case "webp":
		return webpHasMetadata(data)
	case "gif":
		// comment extension
		return bytes.Contains(data, []byte{0x21, 0xFE})
	}
	return false
}

func pngHasText(data []byte) bool {
	const sigLen = 8
	for off := sigLen; off+8 <= len(data); {
		n := int(binary.BigEndian.Uint32(data[off:]))
		typ := string(data[off+4 : off+8])
		switch typ {
		case "tEXt", "zTXt", "iTXt", "eXIf":
			return true
		case "IDAT", "IEND":
			return false
		}
		if n < 0 || off+12+n > len(data) {
			return false
		}
		off += 12 + n
	}
	return false
}

func jpegHasMetadata(data []byte) bool {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return false
	}
	for off := 2; off+4 <= len(data); {
		if data[off] != 0xFF {
			return false
		}
		marker := data[off+1]
		if marker == 0xDA || marker == 0xD9 {
			return false
		}
		n := int(binary.BigEndian.Uint16(data[off+2:]))
		if n < 2 || off+2+n > len(data) {
			return false
		}
		seg := data[off+4 : off+2+n]
		switch {
		case marker == 0xFE:
			return true
		case marker == 0xE1 && (bytes.HasPrefix(seg, []byte("Exif\x00")) || bytes.HasPrefix(seg, []byte("http://ns.adobe.com/xap/"))):
			return true
		}
		off += 2 + n
	}
	return false
}

func webpHasMetadata(data []byte) bool {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WEBP" {
		return false
	}
	for off := 12; off+8 <= len(data); {
		id := string(data[off : off+4])
		n := int(binary.LittleEndian.Uint32(data[off+4:]))
		if id == "EXIF" || id == "XMP " {
			return true
		}
		if n < 0 || off+8+n > len(data) {
			return false
		}
		off += 8 + n + n%2
	}
	return false
}
