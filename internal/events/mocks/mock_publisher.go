package mocks

import (
	"context"

	"loanapi/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event model.SubmissionEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
