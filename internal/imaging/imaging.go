// Package imaging turns inbound image strings (data-URLs or bare base64) into
// binary payloads with a supported MIME type.
package imaging

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tphakala/trapcam/internal/errors"
)

const (
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
	MIMEWebP = "image/webp"

	// DefaultMIME is assumed for bare base64 input without a data-URL prefix
	DefaultMIME = MIMEJPEG
)

// Payload is a decoded image ready to be attached to a model call
type Payload struct {
	Data     []byte
	MIMEType string
	// Digest is the hex SHA-256 of Data
	Digest string
}

// Base64 returns the payload re-encoded with standard padding
func (p Payload) Base64() string {
	return base64.StdEncoding.EncodeToString(p.Data)
}

// DataURL renders the payload as a data:image/...;base64 URL
func (p Payload) DataURL() string {
	return "data:" + p.MIMEType + ";base64," + p.Base64()
}

// Size returns the decoded size in bytes
func (p Payload) Size() int {
	return len(p.Data)
}

var (
	dataURLPattern = regexp.MustCompile(`(?is)^data:image/([a-z0-9.+-]+);base64,(.*)$`)
	whitespace     = strings.NewReplacer(" ", "", "\n", "", "\r", "", "\t", "")

	// subtype -> canonical MIME
	supportedSubtypes = map[string]string{
		"jpeg": MIMEJPEG,
		"jpg":  MIMEJPEG,
		"png":  MIMEPNG,
		"webp": MIMEWebP,
	}
)

// Normalizer decodes image input. MaxBytes bounds the decoded size; zero means unlimited.
type Normalizer struct {
	MaxBytes int
}

// Normalize decodes with no size limit
func Normalize(input string) (Payload, error) {
	return Normalizer{}.Normalize(input)
}

// Normalize accepts `data:image/<jpeg|jpg|png|webp>;base64,<payload>` or bare
// base64 (assumed JPEG). Everything else is an input error.
func (n Normalizer) Normalize(input string) (Payload, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return Payload{}, errors.InputError("imaging", "image is required")
	}

	mime := DefaultMIME
	encoded := s
	if len(s) >= 5 && strings.EqualFold(s[:5], "data:") {
		m := dataURLPattern.FindStringSubmatch(s)
		if m == nil {
			return Payload{}, errors.InputError("imaging", "image must be a data URL of the form data:image/<type>;base64,<data>")
		}
		canonical, ok := supportedSubtypes[strings.ToLower(m[1])]
		if !ok {
			return Payload{}, errors.InputError("imaging", fmt.Sprintf("unsupported image type %q (expected jpeg, png or webp)", m[1]))
		}
		mime, encoded = canonical, m[2]
	}

	data, err := decodeBase64(whitespace.Replace(encoded))
	if err != nil {
		return Payload{}, errors.New(fmt.Errorf("image is not valid base64: %w", err)).
			Component("imaging").
			Category(errors.CategoryValidation).
			Build()
	}

	return n.payload(data, mime)
}

// NormalizeBytes builds a payload from raw file bytes. The MIME type is sniffed
// from content and falls back to the file extension.
func (n Normalizer) NormalizeBytes(data []byte, filename string) (Payload, error) {
	mime := sniffMIME(data)
	if mime == "" {
		mime = mimeFromExtension(filename)
	}
	if mime == "" {
		return Payload{}, errors.InputError("imaging", fmt.Sprintf("unsupported image file %q (expected jpeg, png or webp)", filepath.Base(filename)))
	}
	return n.payload(data, mime)
}

func (n Normalizer) payload(data []byte, mime string) (Payload, error) {
	if len(data) == 0 {
		return Payload{}, errors.InputError("imaging", "image payload is empty")
	}
	if n.MaxBytes > 0 && len(data) > n.MaxBytes {
		return Payload{}, errors.New(fmt.Errorf("image is %d bytes, limit is %d", len(data), n.MaxBytes)).
			Component("imaging").
			Category(errors.CategoryValidation).
			Context("size_bytes", len(data)).
			Build()
	}
	sum := sha256.Sum256(data)
	return Payload{Data: data, MIMEType: mime, Digest: hex.EncodeToString(sum[:])}, nil
}

// decodeBase64 tries padded standard, unpadded standard, then URL-safe alphabets
func decodeBase64(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return b, nil
	}
	if b, err2 := base64.RawStdEncoding.DecodeString(s); err2 == nil {
		return b, nil
	}
	if b, err2 := base64.URLEncoding.DecodeString(s); err2 == nil {
		return b, nil
	}
	if b, err2 := base64.RawURLEncoding.DecodeString(s); err2 == nil {
		return b, nil
	}
	return nil, err
}

func sniffMIME(data []byte) string {
	switch http.DetectContentType(data) {
	case MIMEJPEG:
		return MIMEJPEG
	case MIMEPNG:
		return MIMEPNG
	case MIMEWebP:
		return MIMEWebP
	}
	return ""
}

func mimeFromExtension(filename string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	return supportedSubtypes[ext]
}

// IsImageFile reports whether filename has a supported image extension
func IsImageFile(filename string) bool {
	return mimeFromExtension(filename) != ""
}
