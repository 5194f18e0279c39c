package mocks

import (
	"context"

	"loanapi/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockStager struct {
	mock.Mock
}

func (m *MockStager) Stage(ctx context.Context, applicationID, documentID string, u storage.Upload) (storage.StagedObject, error) {
	args := m.Called(ctx, applicationID, documentID, u)
	if f, ok := args.Get(0).(func(context.Context, string, string, storage.Upload) storage.StagedObject); ok {
		return f(ctx, applicationID, documentID, u), args.Error(1)
	}
	return args.Get(0).(storage.StagedObject), args.Error(1)
}

func (m *MockStager) Discard(ctx context.Context, obj storage.StagedObject) error {
	args := m.Called(ctx, obj)
	return args.Error(0)
}
