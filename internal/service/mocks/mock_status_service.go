package mocks

import (
	"context"

	"loanapi/internal/model"
	"loanapi/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockStatusService struct {
	mock.Mock
}

func (m *MockStatusService) GetStatus(ctx context.Context, applicationID string) (*service.StatusResult, error) {
	args := m.Called(ctx, applicationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.StatusResult), args.Error(1)
}

func (m *MockStatusService) ListDocuments(ctx context.Context, applicationID string) ([]model.DocumentSummary, error) {
	args := m.Called(ctx, applicationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DocumentSummary), args.Error(1)
}
