package service

import (
	"errors"
	"fmt"

	"arpublish/internal/model"
)

// Error kinds surfaced to the HTTP layer. Every collaborator failure is mapped onto one of them.
var (
	ErrValidation         = errors.New("invalid input")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrIDConflict         = errors.New("identifier conflict")
	ErrNotFound           = errors.New("AR record not found")
)

// ValidationError rejects input before any side effect is attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// UploadFailedError reports which asset upload failed. Nothing references the blobs
// written before the failure.
type UploadFailedError struct {
	Stage model.AssetKind
	ArID  string
	Err   error
}

func (e *UploadFailedError) Error() string {
	return fmt.Sprintf("upload failed at %s stage: %v", e.Stage, e.Err)
}

func (e *UploadFailedError) Unwrap() error { return e.Err }

func (e *UploadFailedError) Is(target error) bool { return target == ErrStorageUnavailable }

// Publish failure reasons after both blobs are stored.
const (
	ReasonIDConflict = "idConflict"
	ReasonQREncode   = "qrEncode"
	ReasonCommit     = "commit"
)

// PublishFailedError reports a failure after the uploads succeeded.
// The blobs stay orphaned under the attempt's keys.
type PublishFailedError struct {
	Reason string
	ArID   string
	Err    error
}

func (e *PublishFailedError) Error() string {
	return fmt.Sprintf("publish %s failed (%s): %v", e.ArID, e.Reason, e.Err)
}

func (e *PublishFailedError) Unwrap() error { return e.Err }

func (e *PublishFailedError) Is(target error) bool {
	switch e.Reason {
	case ReasonIDConflict:
		return target == ErrIDConflict
	case ReasonCommit:
		return target == ErrStorageUnavailable
	}
	return false
}
