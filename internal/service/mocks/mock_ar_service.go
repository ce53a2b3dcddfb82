package mocks

import (
	"context"

	"arpublish/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockArService struct {
	mock.Mock
}

func (m *MockArService) Publish(ctx context.Context, in service.PublishInput) (*service.PublishResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PublishResult), args.Error(1)
}

func (m *MockArService) Resolve(ctx context.Context, arID string) (*service.ResolvedRecord, error) {
	args := m.Called(ctx, arID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ResolvedRecord), args.Error(1)
}
