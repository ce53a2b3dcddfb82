package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"arpublish/internal/model"
)

// Uploader stores AR assets and derives their public locations.
type Uploader interface {
	// Upload stores data for the given kind under a key derived only from (kind, arID).
	// Repeating the call with the same pair overwrites the earlier object.
	Upload(ctx context.Context, kind model.AssetKind, arID string, data []byte, contentType string) (string, error)
	// PublicURL derives the public link for a key returned by Upload. It does no I/O.
	PublicURL(key string) (string, error)
}

// BlobUploader routes each asset kind to its own bucket. It performs no retries;
// every store failure comes back wrapped in ErrUnavailable.
type BlobUploader struct {
	publicBase string
	stores     map[model.AssetKind]Storage
}

var _ Uploader = (*BlobUploader)(nil)

// NewBlobUploader builds a BlobUploader. publicBase is the origin public URLs are derived from.
func NewBlobUploader(publicBase string, photos, videos Storage) *BlobUploader {
	return &BlobUploader{
		publicBase: strings.TrimRight(publicBase, "/"),
		stores: map[model.AssetKind]Storage{
			model.AssetPhoto: photos,
			model.AssetVideo: videos,
		},
	}
}

// ObjectKey is the deterministic key for an asset: "<kind>s/<arID>".
func ObjectKey(kind model.AssetKind, arID string) string {
	return kind.Prefix() + "/" + arID
}

func (u *BlobUploader) Upload(ctx context.Context, kind model.AssetKind, arID string, data []byte, contentType string) (string, error) {
	store, ok := u.stores[kind]
	if !ok || store == nil {
		return "", fmt.Errorf("no storage bound for asset kind %q", kind)
	}
	if arID == "" {
		return "", fmt.Errorf("ar id is required")
	}

	key := ObjectKey(kind, arID)
	_, err := store.Put(ctx, key, bytes.NewReader(data), PutObjectOptions{
		Size:        int64(len(data)),
		ContentType: contentType,
		Metadata: map[string]string{
			"ar-id": arID,
			"kind":  string(kind),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: put %s/%s: %w", ErrUnavailable, store.Bucket(), key, err)
	}
	return key, nil
}

func (u *BlobUploader) PublicURL(key string) (string, error) {
	store, err := u.storeForKey(key)
	if err != nil {
		return "", err
	}
	return url.JoinPath(u.publicBase, store.Bucket(), key)
}

func (u *BlobUploader) storeForKey(key string) (Storage, error) {
	prefix, rest, ok := strings.Cut(key, "/")
	if !ok || rest == "" {
		return nil, fmt.Errorf("malformed storage key %q", key)
	}
	for kind, store := range u.stores {
		if kind.Prefix() == prefix && store != nil {
			return store, nil
		}
	}
	return nil, fmt.Errorf("storage key %q has no asset kind", key)
}
