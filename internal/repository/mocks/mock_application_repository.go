package mocks

import (
	"context"

	"loanapi/internal/model"
	"loanapi/internal/repository"
	"github.com/stretchr/testify/mock"
)

type MockApplicationRepository struct {
	mock.Mock
}

func (m *MockApplicationRepository) BeginTx(ctx context.Context) (repository.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(repository.Tx), args.Error(1)
}

func (m *MockApplicationRepository) GetStatus(ctx context.Context, applicationID string) (model.ApplicationStatus, error) {
	args := m.Called(ctx, applicationID)
	return args.Get(0).(model.ApplicationStatus), args.Error(1)
}

func (m *MockApplicationRepository) ListDocuments(ctx context.Context, applicationID string) ([]model.DocumentSummary, error) {
	args := m.Called(ctx, applicationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DocumentSummary), args.Error(1)
}

func (m *MockApplicationRepository) FindByIdempotencyKey(ctx context.Context, key string) (*model.Application, []model.Document, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*model.Application), args.Get(1).([]model.Document), args.Error(2)
}

type MockTx struct {
	mock.Mock
}

func (m *MockTx) InsertApplication(ctx context.Context, app *model.Application) (*model.Application, error) {
	args := m.Called(ctx, app)
	if f, ok := args.Get(0).(func(context.Context, *model.Application) *model.Application); ok {
		return f(ctx, app), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Application), args.Error(1)
}

func (m *MockTx) InsertDocument(ctx context.Context, doc *model.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockTx) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockTx) Rollback() error {
	args := m.Called()
	return args.Error(0)
}
