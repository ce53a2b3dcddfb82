package handler

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"

	"arpublish/internal/idgen"
	"arpublish/internal/model"
	"arpublish/internal/service"
)

const notFoundMessage = "AR photo not found"

// Pinger reports whether the metadata store is reachable. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers only translate between HTTP and the service; the pipeline lives in service.ArService.
func RegisterRoutes(app *fiber.App, health Pinger, arSvc service.ArService, log *zap.Logger) {
	app.Get("/health", HealthCheck(health))
	app.Get("/healthz", LivenessProbe())

	app.Post("/upload", UploadAr(arSvc, log))
	app.Get("/ar/:id", GetAr(arSvc, log))
}

// HealthCheck checks metadata-store connectivity only.
func HealthCheck(p Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if p == nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		if err := p.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is a dependency-free liveness probe.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// UploadAr publishes a photo+video pair.
//
// @Summary  Publish an AR experience
// @Accept   multipart/form-data
// @Produce  json
// @Param    photo        formData file   true  "Photo (image/*)"
// @Param    video        formData file   true  "Video (video/*)"
// @Param    title        formData string false "Title"
// @Param    description  formData string false "Description"
// @Success  201 {object} service.PublishResult
// @Failure  400 {object} errorPayload
// @Failure  500 {object} errorPayload
// @Router   /upload [post]
func UploadAr(arSvc service.ArService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		photo, err := formAsset(c, model.AssetPhoto)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "PHOTO_REQUIRED", "photo file is required")
		}
		video, err := formAsset(c, model.AssetVideo)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "VIDEO_REQUIRED", "video file is required")
		}

		res, err := arSvc.Publish(c.UserContext(), service.PublishInput{
			Photo:       photo,
			Video:       video,
			Title:       c.FormValue("title"),
			Description: c.FormValue("description"),
		})
		if err != nil {
			return writePublishError(c, log, err)
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

func writePublishError(c *fiber.Ctx, log *zap.Logger, err error) error {
	var (
		ve *service.ValidationError
		ue *service.UploadFailedError
	)
	switch {
	case errors.As(err, &ve):
		return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", ve.Error())
	case errors.As(err, &ue):
		log.Error("upload failed", zap.String("request_id", requestIDFromCtx(c)), zap.Error(err))
		return writeError(c, fiber.StatusInternalServerError, "UPLOAD_FAILED", "upload failed at "+string(ue.Stage)+" stage")
	case errors.Is(err, service.ErrIDConflict):
		log.Error("identifier conflict", zap.String("request_id", requestIDFromCtx(c)), zap.Error(err))
		return writeError(c, fiber.StatusInternalServerError, "ID_CONFLICT", "identifier conflict, retry the upload")
	case errors.Is(err, service.ErrStorageUnavailable):
		log.Error("commit failed", zap.String("request_id", requestIDFromCtx(c)), zap.Error(err))
		return writeError(c, fiber.StatusInternalServerError, "STORAGE_UNAVAILABLE", "storage unavailable")
	default:
		log.Error("publish failed", zap.String("request_id", requestIDFromCtx(c)), zap.Error(err))
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// GetAr resolves an identifier to its record and asset URLs.
//
// @Summary  Resolve an AR experience
// @Produce  json
// @Param    id  path string true "AR identifier"
// @Success  200 {object} service.ResolvedRecord
// @Failure  404 {object} errorPayload
// @Router   /ar/{id} [get]
func GetAr(arSvc service.ArService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Params aliases the request buffer, which Fiber reuses once the handler returns.
		id := utils.CopyString(c.Params("id"))
		if !idgen.Valid(id) {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", notFoundMessage)
		}
		rec, err := arSvc.Resolve(c.UserContext(), id)
		if err != nil {
			if !errors.Is(err, service.ErrNotFound) {
				log.Error("resolve failed",
					zap.String("request_id", requestIDFromCtx(c)),
					zap.String("ar_id", id),
					zap.Error(err),
				)
			}
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", notFoundMessage)
		}
		return c.JSON(rec)
	}
}

// formAsset reads one uploaded file fully. A missing Content-Type is sniffed from the content.
func formAsset(c *fiber.Ctx, kind model.AssetKind) (model.Asset, error) {
	fh, err := c.FormFile(string(kind))
	if err != nil {
		return model.Asset{}, err
	}
	data, err := readFile(fh)
	if err != nil {
		return model.Asset{}, err
	}
	ct := fh.Header.Get("Content-Type")
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(data)
	}
	return model.Asset{Data: data, ContentType: ct}, nil
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
