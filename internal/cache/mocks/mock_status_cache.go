package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockStatusCache struct {
	mock.Mock
}

func (m *MockStatusCache) Get(ctx context.Context, applicationID string) (string, bool, error) {
	args := m.Called(ctx, applicationID)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockStatusCache) Set(ctx context.Context, applicationID, status string, ttl time.Duration) error {
	args := m.Called(ctx, applicationID, status, ttl)
	return args.Error(0)
}
