package model

import (
	"strings"
	"time"
)

// AssetKind identifies which half of an AR experience a blob belongs to.
// Photo and video blobs live in separate key namespaces.
type AssetKind string

const (
	AssetPhoto AssetKind = "photo"
	AssetVideo AssetKind = "video"
)

// Prefix is the key namespace for the kind, e.g. "photos".
func (k AssetKind) Prefix() string {
	return string(k) + "s"
}

// Accepts reports whether contentType is an acceptable media type for the kind.
func (k AssetKind) Accepts(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	switch k {
	case AssetPhoto:
		return strings.HasPrefix(ct, "image/")
	case AssetVideo:
		return strings.HasPrefix(ct, "video/")
	default:
		return false
	}
}

// Asset is one uploaded binary payload together with its declared media type.
type Asset struct {
	Data        []byte
	ContentType string
}

// ArRecord is the committed metadata for one published photo+video pair.
// Records are immutable once committed.
type ArRecord struct {
	ArID        string    `json:"arId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PhotoKey    string    `json:"photoKey"`
	VideoKey    string    `json:"videoKey"`
	QRImage     []byte    `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
}
