package repository

import (
	"context"
	"errors"

	"arpublish/internal/model"
)

// Package repository contains data access layer abstractions.
// Implementations live in subpackages (postgres, memory) inside this directory.

var (
	// ErrNotFound is returned for identifiers that were never committed.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a record with the same identifier already exists.
	ErrConflict = errors.New("record already exists")
)

// ArRepository persists AR records. Records are written once and never updated.
type ArRepository interface {
	// Create atomically inserts the full record. It returns ErrConflict, and leaves the
	// existing row untouched, if rec.ArID is already taken.
	Create(ctx context.Context, rec *model.ArRecord) (*model.ArRecord, error)

	// FindByID returns the committed record or ErrNotFound.
	FindByID(ctx context.Context, id string) (*model.ArRecord, error)
}
