package mocks

import (
	"context"

	"arpublish/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockArRepository struct {
	mock.Mock
}

func (m *MockArRepository) Create(ctx context.Context, rec *model.ArRecord) (*model.ArRecord, error) {
	args := m.Called(ctx, rec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ArRecord), args.Error(1)
}

func (m *MockArRepository) FindByID(ctx context.Context, id string) (*model.ArRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ArRecord), args.Error(1)
}
