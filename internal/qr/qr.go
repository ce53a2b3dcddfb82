// Package qr renders viewer URLs as PNG QR codes.
package qr

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// MinSize is the smallest accepted image edge in pixels.
const MinSize = 200

// ErrEncoding is returned for inputs that cannot be turned into a QR image.
var ErrEncoding = errors.New("qr encoding failed")

// Encoder is immutable after construction and safe for concurrent use.
type Encoder struct {
	level qrcode.RecoveryLevel
	size  int
}

// NewEncoder builds an Encoder. level is "M" or "Q"; size is the PNG edge in pixels.
func NewEncoder(level string, size int) (*Encoder, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if size < MinSize {
		return nil, fmt.Errorf("qr size %d below minimum %d", size, MinSize)
	}
	return &Encoder{level: lvl, size: size}, nil
}

// ParseLevel maps a configuration value to a recovery level.
func ParseLevel(level string) (qrcode.RecoveryLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "", "M":
		return qrcode.Medium, nil
	case "Q":
		// go-qrcode's High is the 25% recovery level, i.e. QR level Q.
		return qrcode.High, nil
	default:
		return 0, fmt.Errorf("unsupported qr level %q (want M or Q)", level)
	}
}

// Encode returns a square PNG encoding rawURL. Output is deterministic for a given input.
func (e *Encoder) Encode(rawURL string) ([]byte, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, fmt.Errorf("%w: empty url", ErrEncoding)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: url %q needs scheme and host", ErrEncoding, rawURL)
	}

	png, err := qrcode.Encode(rawURL, e.level, e.size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	return png, nil
}

// DataURI wraps a PNG payload as a data URI suitable for an <img> src.
func DataURI(png []byte) string {
	if len(png) == 0 {
		return ""
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}
