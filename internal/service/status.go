package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"loanapi/internal/cache"
	"loanapi/internal/model"
	"loanapi/internal/repository"
)

// StatusSource names where a status read was served from.
type StatusSource string

const (
	SourceCache    StatusSource = "cache"
	SourceDatabase StatusSource = "database"
)

// StatusResult is the answer to a status lookup.
type StatusResult struct {
	ApplicationID string       `json:"applicationId"`
	Status        string       `json:"status"`
	Source        StatusSource `json:"source"`
}

// StatusService serves the read side of applications.
type StatusService interface {
	GetStatus(ctx context.Context, applicationID string) (*StatusResult, error)
	ListDocuments(ctx context.Context, applicationID string) ([]model.DocumentSummary, error)
}

type statusService struct {
	repo  repository.ApplicationRepository
	cache cache.StatusCache
	ttl   time.Duration
	log   *zap.Logger
}

// NewStatusService returns a cache-aside StatusService. Cache failures are
// logged and the read falls through to the repository.
func NewStatusService(repo repository.ApplicationRepository, c cache.StatusCache, ttl time.Duration, log *zap.Logger) StatusService {
	if log == nil {
		log = zap.NewNop()
	}
	return &statusService{repo: repo, cache: c, ttl: ttl, log: log}
}

func (s *statusService) GetStatus(ctx context.Context, applicationID string) (*StatusResult, error) {
	if applicationID == "" {
		return nil, ErrNotFound
	}
	log := s.log.With(zap.String("application_id", applicationID))

	status, hit, err := s.cache.Get(ctx, applicationID)
	switch {
	case err != nil:
		log.Warn("Status cache read failed", zap.Error(err))
	case hit:
		return &StatusResult{ApplicationID: applicationID, Status: status, Source: SourceCache}, nil
	}

	st, err := s.repo.GetStatus(ctx, applicationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapRead("get status", err)
	}

	if err := s.cache.Set(ctx, applicationID, string(st), s.ttl); err != nil {
		log.Warn("Status cache write failed", zap.Error(err))
	}
	return &StatusResult{ApplicationID: applicationID, Status: string(st), Source: SourceDatabase}, nil
}

func (s *statusService) ListDocuments(ctx context.Context, applicationID string) ([]model.DocumentSummary, error) {
	docs, err := s.repo.ListDocuments(ctx, applicationID)
	if err != nil {
		return nil, wrapRead("list documents", err)
	}
	if docs == nil {
		docs = []model.DocumentSummary{}
	}
	return docs, nil
}

func wrapRead(op string, err error) error {
	if isUnavailable(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
