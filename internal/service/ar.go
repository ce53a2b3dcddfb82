package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"arpublish/internal/model"
	"arpublish/internal/qr"
	"arpublish/internal/repository"
	"arpublish/internal/storage"
)

// IDGenerator mints public identifiers.
type IDGenerator interface {
	Generate() string
}

// QREncoder renders a URL as an image payload.
type QREncoder interface {
	Encode(rawURL string) ([]byte, error)
}

// Limits bound what Publish accepts.
type Limits struct {
	PhotoMaxBytes     int64
	VideoMaxBytes     int64
	TitleMaxLen       int
	DescriptionMaxLen int
}

// PublishInput is one photo+video pair with its user-supplied text.
type PublishInput struct {
	Photo       model.Asset
	Video       model.Asset
	Title       string
	Description string
}

// PublishResult is returned only after the record is committed.
type PublishResult struct {
	ArID   string `json:"arId"`
	QRCode string `json:"qrCode"`
}

// ResolvedRecord is a committed record plus the public locations of its assets.
type ResolvedRecord struct {
	ArID        string    `json:"arId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PhotoKey    string    `json:"photoKey"`
	VideoKey    string    `json:"videoKey"`
	QRCode      string    `json:"qrCode"`
	CreatedAt   time.Time `json:"createdAt"`
	PhotoURL    string    `json:"photoUrl"`
	VideoURL    string    `json:"videoUrl"`
}

// ArService defines the publish and resolve use cases.
type ArService interface {
	// Publish validates the input, mints an identifier, uploads photo then video, renders the
	// viewer QR code and commits the record. Nothing is committed unless both uploads succeeded.
	// Failed attempts are never retried here; a caller retry mints a fresh identifier.
	Publish(ctx context.Context, in PublishInput) (*PublishResult, error)

	// Resolve returns the record and both public asset URLs, or ErrNotFound.
	Resolve(ctx context.Context, arID string) (*ResolvedRecord, error)
}

// Option customizes an ArService.
type Option func(*arService)

// WithLogger sets the logger used for pipeline events.
func WithLogger(l *zap.Logger) Option {
	return func(s *arService) { s.log = l }
}

// WithMetrics sets the pipeline counters.
func WithMetrics(m *PipelineMetrics) Option {
	return func(s *arService) { s.metrics = m }
}

// WithClock overrides the commit timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *arService) { s.now = now }
}

// arService holds only immutable collaborators; concurrent calls share nothing mutable.
type arService struct {
	ids      IDGenerator
	uploader storage.Uploader
	qr       QREncoder
	repo     repository.ArRepository

	viewerBase string
	limits     Limits

	log     *zap.Logger
	metrics *PipelineMetrics
	tracer  trace.Tracer
	now     func() time.Time
}

// NewArService constructs a new ArService. viewerBase is the frontend origin that viewer
// links are built from, e.g. https://ar.example.com.
func NewArService(
	ids IDGenerator,
	uploader storage.Uploader,
	encoder QREncoder,
	repo repository.ArRepository,
	viewerBase string,
	limits Limits,
	opts ...Option,
) ArService {
	s := &arService{
		ids:        ids,
		uploader:   uploader,
		qr:         encoder,
		repo:       repo,
		viewerBase: strings.TrimRight(viewerBase, "/"),
		limits:     limits,
		log:        zap.NewNop(),
		tracer:     otel.Tracer("arpublish/internal/service"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ViewerURL is the link encoded into an experience's QR code.
func ViewerURL(base, arID string) string {
	return strings.TrimRight(base, "/") + "/view/" + url.PathEscape(arID)
}

func (s *arService) Publish(ctx context.Context, in PublishInput) (*PublishResult, error) {
	ctx, span := s.tracer.Start(ctx, "ArService.Publish")
	defer span.End()

	if err := s.validate(in); err != nil {
		s.metrics.failed("validation")
		span.SetStatus(codes.Error, "validation")
		return nil, err
	}

	arID := s.ids.Generate()
	span.SetAttributes(attribute.String("ar.id", arID))
	log := s.log.With(zap.String("ar_id", arID))

	photoKey, err := s.uploader.Upload(ctx, model.AssetPhoto, arID, in.Photo.Data, in.Photo.ContentType)
	if err != nil {
		return nil, s.fail(span, log, string(model.AssetPhoto), &UploadFailedError{Stage: model.AssetPhoto, ArID: arID, Err: err})
	}
	span.AddEvent("photo stored", trace.WithAttributes(attribute.String("key", photoKey)))

	videoKey, err := s.uploader.Upload(ctx, model.AssetVideo, arID, in.Video.Data, in.Video.ContentType)
	if err != nil {
		// The photo blob stays unreferenced; a retry under the same id overwrites it.
		log.Warn("photo blob orphaned", zap.String("photo_key", photoKey))
		return nil, s.fail(span, log, string(model.AssetVideo), &UploadFailedError{Stage: model.AssetVideo, ArID: arID, Err: err})
	}
	span.AddEvent("video stored", trace.WithAttributes(attribute.String("key", videoKey)))

	png, err := s.qr.Encode(ViewerURL(s.viewerBase, arID))
	if err != nil {
		return nil, s.fail(span, log, ReasonQREncode, &PublishFailedError{Reason: ReasonQREncode, ArID: arID, Err: err})
	}

	rec := &model.ArRecord{
		ArID:        arID,
		Title:       in.Title,
		Description: in.Description,
		PhotoKey:    photoKey,
		VideoKey:    videoKey,
		QRImage:     png,
		CreatedAt:   s.now().UTC(),
	}
	if _, err := s.repo.Create(ctx, rec); err != nil {
		reason := ReasonCommit
		if errors.Is(err, repository.ErrConflict) {
			reason = ReasonIDConflict
		}
		log.Warn("asset blobs orphaned",
			zap.String("photo_key", photoKey),
			zap.String("video_key", videoKey),
		)
		return nil, s.fail(span, log, reason, &PublishFailedError{Reason: reason, ArID: arID, Err: err})
	}

	s.metrics.published()
	log.Info("ar record published",
		zap.String("photo_key", photoKey),
		zap.String("video_key", videoKey),
		zap.Int("photo_bytes", len(in.Photo.Data)),
		zap.Int("video_bytes", len(in.Video.Data)),
	)
	return &PublishResult{ArID: arID, QRCode: qr.DataURI(png)}, nil
}

func (s *arService) fail(span trace.Span, log *zap.Logger, stage string, err error) error {
	s.metrics.failed(stage)
	span.RecordError(err)
	span.SetStatus(codes.Error, stage)
	log.Error("publish failed", zap.String("stage", stage), zap.Error(err))
	return err
}

func (s *arService) validate(in PublishInput) error {
	if err := checkAsset(model.AssetPhoto, in.Photo, s.limits.PhotoMaxBytes); err != nil {
		return err
	}
	if err := checkAsset(model.AssetVideo, in.Video, s.limits.VideoMaxBytes); err != nil {
		return err
	}
	if n := utf8.RuneCountInString(in.Title); n > s.limits.TitleMaxLen {
		return &ValidationError{Field: "title", Reason: fmt.Sprintf("%d characters exceeds limit of %d", n, s.limits.TitleMaxLen)}
	}
	if n := utf8.RuneCountInString(in.Description); n > s.limits.DescriptionMaxLen {
		return &ValidationError{Field: "description", Reason: fmt.Sprintf("%d characters exceeds limit of %d", n, s.limits.DescriptionMaxLen)}
	}
	return nil
}

func checkAsset(kind model.AssetKind, a model.Asset, maxBytes int64) error {
	field := string(kind)
	switch {
	case len(a.Data) == 0:
		return &ValidationError{Field: field, Reason: "is required"}
	case int64(len(a.Data)) > maxBytes:
		return &ValidationError{Field: field, Reason: fmt.Sprintf("%d bytes exceeds limit of %d", len(a.Data), maxBytes)}
	case !kind.Accepts(a.ContentType):
		return &ValidationError{Field: field, Reason: fmt.Sprintf("content type %q not allowed", a.ContentType)}
	}
	return nil
}

func (s *arService) Resolve(ctx context.Context, arID string) (*ResolvedRecord, error) {
	ctx, span := s.tracer.Start(ctx, "ArService.Resolve", trace.WithAttributes(attribute.String("ar.id", arID)))
	defer span.End()

	if arID == "" {
		return nil, ErrNotFound
	}

	rec, err := s.repo.FindByID(ctx, arID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", arID, ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "read")
		return nil, fmt.Errorf("%w: read %s: %w", ErrStorageUnavailable, arID, err)
	}

	photoURL, err := s.uploader.PublicURL(rec.PhotoKey)
	if err != nil {
		return nil, fmt.Errorf("resolve photo url for %s: %w", arID, err)
	}
	videoURL, err := s.uploader.PublicURL(rec.VideoKey)
	if err != nil {
		return nil, fmt.Errorf("resolve video url for %s: %w", arID, err)
	}

	return &ResolvedRecord{
		ArID:        rec.ArID,
		Title:       rec.Title,
		Description: rec.Description,
		PhotoKey:    rec.PhotoKey,
		VideoKey:    rec.VideoKey,
		QRCode:      qr.DataURI(rec.QRImage),
		CreatedAt:   rec.CreatedAt,
		PhotoURL:    photoURL,
		VideoURL:    videoURL,
	}, nil
}
