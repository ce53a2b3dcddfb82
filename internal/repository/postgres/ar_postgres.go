package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"arpublish/internal/model"
	"arpublish/internal/repository"
)

const uniqueViolation = "23505"

// ArPostgres is a PostgreSQL implementation of repository.ArRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type ArPostgres struct {
	db *sql.DB
}

// NewArPostgres creates a new ArPostgres repository.
func NewArPostgres(db *sql.DB) *ArPostgres {
	return &ArPostgres{db: db}
}

var _ repository.ArRepository = (*ArPostgres)(nil)

// Create inserts a record in a single statement. An existing ar_id yields no row, which is
// reported as repository.ErrConflict.
func (r *ArPostgres) Create(ctx context.Context, rec *model.ArRecord) (*model.ArRecord, error) {
	const q = `
		INSERT INTO ar_records (ar_id, title, description, photo_key, video_key, qr_image, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (ar_id) DO NOTHING
		RETURNING ar_id, title, description, photo_key, video_key, qr_image, created_at
	`
	row := r.db.QueryRowContext(ctx, q,
		rec.ArID,
		rec.Title,
		rec.Description,
		rec.PhotoKey,
		rec.VideoKey,
		rec.QRImage,
		rec.CreatedAt,
	)
	out, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isUniqueViolation(err) {
			return nil, fmt.Errorf("ar_id %s: %w", rec.ArID, repository.ErrConflict)
		}
		return nil, err
	}
	return out, nil
}

// FindByID fetches a single record by its identifier.
func (r *ArPostgres) FindByID(ctx context.Context, id string) (*model.ArRecord, error) {
	const q = `
		SELECT ar_id, title, description, photo_key, video_key, qr_image, created_at
		FROM ar_records
		WHERE ar_id = $1
	`
	out, err := scanRecord(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return out, nil
}

func scanRecord(row *sql.Row) (*model.ArRecord, error) {
	var rec model.ArRecord
	if err := row.Scan(
		&rec.ArID,
		&rec.Title,
		&rec.Description,
		&rec.PhotoKey,
		&rec.VideoKey,
		&rec.QRImage,
		&rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &rec, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
