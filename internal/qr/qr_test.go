package qr

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"strings"
	"testing"

	qrcode "github.com/skip2/go-qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncoder_Encode(t *testing.T) {
	enc, err := NewEncoder("M", 256)
	require.NoError(t, err)

	t.Run("square png of configured size", func(t *testing.T) {
		out, err := enc.Encode("https://viewer.example.com/view/01j9z8x7w6v5t4s3r2q1p0n9m8")
		require.NoError(t, err)

		img, err := png.Decode(bytes.NewReader(out))
		require.NoError(t, err)
		b := img.Bounds()
		assert.Equal(t, 256, b.Dx())
		assert.Equal(t, b.Dx(), b.Dy())
	})

	t.Run("deterministic", func(t *testing.T) {
		a, err := enc.Encode("https://viewer.example.com/view/abc")
		require.NoError(t, err)
		b, err := enc.Encode("https://viewer.example.com/view/abc")
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	for _, in := range []string{"", "   ", "viewer.example.com/view/abc", "/view/abc", "https://"} {
		t.Run("rejects "+in, func(t *testing.T) {
			out, err := enc.Encode(in)
			assert.ErrorIs(t, err, ErrEncoding)
			assert.Nil(t, out)
		})
	}
}

func TestNewEncoder(t *testing.T) {
	_, err := NewEncoder("M", MinSize-1)
	assert.Error(t, err)

	_, err = NewEncoder("L", 256)
	assert.Error(t, err)

	enc, err := NewEncoder("q", MinSize)
	require.NoError(t, err)
	assert.Equal(t, qrcode.High, enc.level)
}

func TestDataURI(t *testing.T) {
	assert.Equal(t, "", DataURI(nil))

	uri := DataURI([]byte{0x89, 'P', 'N', 'G'})
	require.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, "data:image/png;base64,"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, raw)
}
