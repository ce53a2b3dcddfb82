package memory

import (
	"context"
	"fmt"
	"sync"

	"arpublish/internal/model"
	"arpublish/internal/repository"
)

// ArMemory is an in-process repository.ArRepository for local development and tests.
// Each Create is a single critical section, so a record is either fully visible or absent.
type ArMemory struct {
	mu      sync.RWMutex
	records map[string]model.ArRecord
}

var _ repository.ArRepository = (*ArMemory)(nil)

// NewArMemory returns an empty store.
func NewArMemory() *ArMemory {
	return &ArMemory{records: make(map[string]model.ArRecord)}
}

func (m *ArMemory) Create(ctx context.Context, rec *model.ArRecord) (*model.ArRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stored := clone(*rec)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.ArID]; ok {
		return nil, fmt.Errorf("ar_id %s: %w", rec.ArID, repository.ErrConflict)
	}
	m.records[rec.ArID] = stored
	out := clone(stored)
	return &out, nil
}

func (m *ArMemory) FindByID(ctx context.Context, id string) (*model.ArRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	rec, ok := m.records[id]
	m.mu.RUnlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := clone(rec)
	return &out, nil
}

// PingContext always succeeds; it lets the store stand in for a database health check.
func (m *ArMemory) PingContext(ctx context.Context) error {
	return ctx.Err()
}

func clone(rec model.ArRecord) model.ArRecord {
	rec.QRImage = append([]byte(nil), rec.QRImage...)
	return rec
}
