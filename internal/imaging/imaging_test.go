package imaging

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/trapcam/internal/errors"
)

var (
	jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}
	pngBytes  = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00}
)

func TestNormalizeDataURLs(t *testing.T) {
	t.Parallel()

	b64 := base64.StdEncoding.EncodeToString(jpegBytes)

	tests := []struct {
		name  string
		input string
		mime  string
	}{
		{"jpeg", "data:image/jpeg;base64," + b64, MIMEJPEG},
		{"jpg normalized", "data:image/jpg;base64," + b64, MIMEJPEG},
		{"png", "data:image/png;base64," + b64, MIMEPNG},
		{"webp", "data:image/webp;base64," + b64, MIMEWebP},
		{"uppercase subtype", "data:image/JPEG;base64," + b64, MIMEJPEG},
		{"surrounding whitespace", "  data:image/png;base64," + b64 + "\n", MIMEPNG},
		{"line-wrapped payload", "data:image/jpeg;base64," + b64[:8] + "\n" + b64[8:], MIMEJPEG},
		{"bare base64 defaults to jpeg", b64, MIMEJPEG},
		{"unpadded base64", strings.TrimRight(b64, "="), MIMEJPEG},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, err := Normalize(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.mime, p.MIMEType)
			assert.Equal(t, jpegBytes, p.Data)
			assert.Len(t, p.Digest, 64)
		})
	}
}

func TestNormalizeRejectsMalformedInput(t *testing.T) {
	t.Parallel()

	b64 := base64.StdEncoding.EncodeToString(jpegBytes)

	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace", "   \n"},
		{"gif not supported", "data:image/gif;base64," + b64},
		{"not an image", "data:text/plain;base64," + b64},
		{"missing base64 marker", "data:image/png," + b64},
		{"not base64", "this is definitely not base64!!"},
		{"empty payload", "data:image/png;base64,"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Normalize(tt.input)
			require.Error(t, err)
			assert.True(t, errors.IsInput(err), "expected input error, got %v", err)
		})
	}
}

func TestNormalizeMaxBytes(t *testing.T) {
	t.Parallel()

	n := Normalizer{MaxBytes: 4}
	_, err := n.Normalize(base64.StdEncoding.EncodeToString(jpegBytes))
	require.Error(t, err)
	assert.True(t, errors.IsInput(err))
}

func TestNormalizeBytes(t *testing.T) {
	t.Parallel()

	p, err := Normalizer{}.NormalizeBytes(pngBytes, "trap.jpg")
	require.NoError(t, err)
	assert.Equal(t, MIMEPNG, p.MIMEType, "content sniffing wins over extension")

	p, err = Normalizer{}.NormalizeBytes([]byte("RIFFxxxxWEBPVP8 "), "x.bin")
	require.NoError(t, err)
	assert.Equal(t, MIMEWebP, p.MIMEType)

	_, err = Normalizer{}.NormalizeBytes([]byte("plain text"), "notes.txt")
	require.Error(t, err)
	assert.True(t, errors.IsInput(err))
}

func TestPayloadDataURLRoundTrip(t *testing.T) {
	t.Parallel()

	p, err := Normalize("data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes))
	require.NoError(t, err)

	again, err := Normalize(p.DataURL())
	require.NoError(t, err)
	assert.Equal(t, p, again)
}

func TestIsImageFile(t *testing.T) {
	t.Parallel()

	assert.True(t, IsImageFile("IMG_0001.JPG"))
	assert.True(t, IsImageFile("a.webp"))
	assert.False(t, IsImageFile("a.gif"))
	assert.False(t, IsImageFile("README"))
}
