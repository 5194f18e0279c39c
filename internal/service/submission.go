package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"loanapi/internal/correlation"
	"loanapi/internal/events"
	"loanapi/internal/model"
	"loanapi/internal/repository"
	"loanapi/internal/storage"
)

var tracer = otel.Tracer("loanapi/internal/service")

// SubmissionRequest is a loan application as received from the client.
// Numeric fields are kept as text until validation.
type SubmissionRequest struct {
	CustomerID     string
	LoanAmount     string
	LoanPurpose    string
	Income         string
	Files          []storage.Upload
	IdempotencyKey string
}

// SubmissionResult is the committed state of a submission. Replayed is set
// when an earlier submission with the same idempotency key was returned.
type SubmissionResult struct {
	Application model.Application
	Documents   []model.Document
	Replayed    bool
}

// SubmissionService accepts loan applications.
type SubmissionService interface {
	// Submit stages every document, records the application and its
	// documents, and publishes one ApplicationSubmitted event. It either
	// commits all three or compensates what it already wrote.
	Submit(ctx context.Context, req SubmissionRequest) (*SubmissionResult, error)
}

// Options tunes the submission coordinator.
type Options struct {
	Limits            Limits
	StageConcurrency  int
	CompensateTimeout time.Duration
	Logger            *zap.Logger
	Metrics           *Metrics
	// NewID and Now default to uuid.NewString and time.Now.
	NewID func() string
	Now   func() time.Time
}

type submissionService struct {
	stager    storage.Stager
	repo      repository.ApplicationRepository
	publisher events.Publisher

	limits            Limits
	concurrency       int
	compensateTimeout time.Duration
	log               *zap.Logger
	metrics           *Metrics
	newID             func() string
	now               func() time.Time
}

// NewSubmissionService wires the coordinator over its three stores.
func NewSubmissionService(stager storage.Stager, repo repository.ApplicationRepository, publisher events.Publisher, opts Options) SubmissionService {
	s := &submissionService{
		stager:            stager,
		repo:              repo,
		publisher:         publisher,
		limits:            opts.Limits,
		concurrency:       opts.StageConcurrency,
		compensateTimeout: opts.CompensateTimeout,
		log:               opts.Logger,
		metrics:           opts.Metrics,
		newID:             opts.NewID,
		now:               opts.Now,
	}
	if s.concurrency <= 0 {
		s.concurrency = 1
	}
	if s.compensateTimeout <= 0 {
		s.compensateTimeout = 30 * time.Second
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

type identities struct {
	applicationID string
	eventID       string
	documentIDs   []string
}

func (s *submissionService) Submit(ctx context.Context, req SubmissionRequest) (*SubmissionResult, error) {
	ctx, span := tracer.Start(ctx, "submission.Submit")
	defer span.End()

	log := s.log.With(zap.String("correlation_id", correlation.FromContext(ctx)))

	in, err := validate(req, s.limits)
	if err != nil {
		s.metrics.submission(outcomeRejected)
		span.SetStatus(codes.Error, StageValidate)
		log.Info("Submission rejected", zap.String("stage", StageValidate), zap.Error(err))
		return nil, err
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	if key != "" {
		res, err := s.replay(ctx, key)
		if err != nil {
			return nil, s.fail(log, span, StagePersist, ErrPersistenceFailed, err)
		}
		if res != nil {
			s.metrics.submission(outcomeReplayed)
			log.Info("Replayed submission", zap.String("application_id", res.Application.ID))
			return res, nil
		}
	}

	ids := identities{
		applicationID: s.newID(),
		eventID:       s.newID(),
		documentIDs:   make([]string, len(in.files)),
	}
	for i := range ids.documentIDs {
		ids.documentIDs[i] = s.newID()
	}
	span.SetAttributes(attribute.String("application.id", ids.applicationID))
	log = log.With(zap.String("application_id", ids.applicationID))

	staged, err := s.stageAll(ctx, ids, in.files)
	if err != nil {
		s.compensate(ctx, log, nil, staged)
		return nil, s.fail(log, span, StageStage, ErrUploadFailed, err)
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.compensate(ctx, log, nil, staged)
		return nil, s.fail(log, span, StagePersist, ErrPersistenceFailed, err)
	}
	released := false
	defer func() {
		if !released {
			_ = tx.Rollback()
		}
	}()

	app, docs, err := s.persist(ctx, tx, ids, key, in, staged)
	if err != nil {
		released = true
		s.compensate(ctx, log, tx, staged)
		if key != "" && errors.Is(err, repository.ErrIdempotencyConflict) {
			res, lookupErr := s.replay(ctx, key)
			if lookupErr == nil && res != nil {
				s.metrics.submission(outcomeReplayed)
				log.Info("Concurrent submission won idempotency key", zap.String("winner_id", res.Application.ID))
				return res, nil
			}
		}
		return nil, s.fail(log, span, StagePersist, ErrPersistenceFailed, err)
	}

	event := buildEvent(ids.eventID, correlation.FromContext(ctx), app, docs, s.now().UTC())
	if err := s.publish(ctx, event); err != nil {
		released = true
		s.compensate(ctx, log, tx, staged)
		return nil, s.fail(log, span, StagePublish, ErrNotificationFailed, err)
	}

	released = true
	if err := tx.Commit(); err != nil {
		if errors.Is(err, repository.ErrTxAborted) {
			s.compensate(ctx, log, nil, staged)
		} else {
			// The commit may have landed. Objects stay for reconciliation.
			log.Error("Commit outcome unknown after publish",
				zap.String("event_id", ids.eventID),
				zap.Strings("object_keys", objectKeys(staged)),
				zap.Error(err),
			)
		}
		return nil, s.fail(log, span, StageCommit, ErrPersistenceFailed, err)
	}

	s.metrics.submission(outcomeCommitted)
	log.Info("Application submitted successfully",
		zap.String("event_id", ids.eventID),
		zap.Int("documents", len(docs)),
	)
	return &SubmissionResult{Application: *app, Documents: docs}, nil
}

// replay returns the committed submission for key, or nil when none exists.
func (s *submissionService) replay(ctx context.Context, key string) (*SubmissionResult, error) {
	app, docs, err := s.repo.FindByIdempotencyKey(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup idempotency key: %w", err)
	}
	return &SubmissionResult{Application: *app, Documents: docs, Replayed: true}, nil
}

func (s *submissionService) stageAll(ctx context.Context, ids identities, files []storage.Upload) ([]storage.StagedObject, error) {
	ctx, span := s.startStage(ctx, StageStage)
	defer span.End()
	start := time.Now()
	defer func() { s.metrics.observeStage(StageStage, time.Since(start).Seconds()) }()

	results := make([]*storage.StagedObject, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			obj, err := s.stager.Stage(gctx, ids.applicationID, ids.documentIDs[i], f)
			if err != nil {
				return fmt.Errorf("stage %s: %w", f.FileName, err)
			}
			results[i] = &obj
			return nil
		})
	}
	err := g.Wait()

	staged := make([]storage.StagedObject, 0, len(files))
	for _, r := range results {
		if r != nil {
			staged = append(staged, *r)
		}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return staged, err
}

func (s *submissionService) persist(ctx context.Context, tx repository.Tx, ids identities, key string, in *validSubmission, staged []storage.StagedObject) (*model.Application, []model.Document, error) {
	ctx, span := s.startStage(ctx, StagePersist)
	defer span.End()
	start := time.Now()
	defer func() { s.metrics.observeStage(StagePersist, time.Since(start).Seconds()) }()

	now := s.now().UTC()
	app, err := tx.InsertApplication(ctx, &model.Application{
		ID:             ids.applicationID,
		CustomerID:     in.customerID,
		LoanAmount:     in.loanAmount,
		LoanPurpose:    in.loanPurpose,
		Income:         in.income,
		Status:         model.StatusPending,
		IdempotencyKey: key,
		CreatedAt:      now,
	})
	if err != nil {
		span.RecordError(err)
		return nil, nil, fmt.Errorf("insert application: %w", err)
	}

	docs := make([]model.Document, 0, len(staged))
	for i, obj := range staged {
		doc := model.Document{
			ID:            obj.DocumentID,
			ApplicationID: app.ID,
			DocumentType:  in.files[i].FieldName,
			FileName:      in.files[i].FileName,
			FileSize:      obj.Size,
			ContentType:   obj.ContentType,
			StorageBucket: obj.Bucket,
			ObjectKey:     obj.Key,
			UploadedAt:    now,
		}
		if err := tx.InsertDocument(ctx, &doc); err != nil {
			span.RecordError(err)
			return nil, nil, fmt.Errorf("insert document %s: %w", doc.ID, err)
		}
		docs = append(docs, doc)
	}
	return app, docs, nil
}

func (s *submissionService) publish(ctx context.Context, event model.SubmissionEvent) error {
	ctx, span := s.startStage(ctx, StagePublish)
	defer span.End()
	start := time.Now()
	defer func() { s.metrics.observeStage(StagePublish, time.Since(start).Seconds()) }()

	span.SetAttributes(attribute.String("event.id", event.EventID))
	if err := s.publisher.Publish(ctx, event); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// compensate rolls back tx when given and deletes every staged object. It runs
// detached from ctx so a cancelled request still cleans up, and never fails:
// leftovers are logged as orphans.
func (s *submissionService) compensate(ctx context.Context, log *zap.Logger, tx repository.Tx, staged []storage.StagedObject) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.compensateTimeout)
	defer cancel()
	_, span := tracer.Start(cctx, "submission.compensate")
	defer span.End()

	if tx != nil {
		err := tx.Rollback()
		s.metrics.compensation("metadata", err)
		if err != nil {
			log.Error("Rollback failed", zap.Error(err))
		}
	}

	for _, obj := range staged {
		err := s.stager.Discard(cctx, obj)
		s.metrics.compensation("object", err)
		if err != nil {
			span.RecordError(err)
			log.Error("Orphaned object, delete failed",
				zap.String("bucket", obj.Bucket),
				zap.String("object_key", obj.Key),
				zap.Error(err),
			)
		}
	}
}

func (s *submissionService) fail(log *zap.Logger, span trace.Span, stage string, kind, err error) error {
	serr := newSubmissionError(stage, kind, err)
	span.RecordError(serr)
	span.SetStatus(codes.Error, stage)

	switch {
	case errors.Is(kind, ErrUploadFailed):
		s.metrics.submission(outcomeUploadFailed)
	case errors.Is(kind, ErrNotificationFailed):
		s.metrics.submission(outcomeNotificationFailed)
	default:
		s.metrics.submission(outcomePersistenceFailed)
	}
	log.Error("Submission failed", zap.String("stage", stage), zap.Error(err))
	return serr
}

func (s *submissionService) startStage(ctx context.Context, stage string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "submission."+stage)
}

func buildEvent(eventID, correlationID string, app *model.Application, docs []model.Document, at time.Time) model.SubmissionEvent {
	evDocs := make([]model.EventDocument, 0, len(docs))
	for _, d := range docs {
		evDocs = append(evDocs, model.EventDocument{
			DocumentID:   d.ID,
			DocumentType: d.DocumentType,
			FileName:     d.FileName,
		})
	}
	return model.SubmissionEvent{
		EventID:       eventID,
		EventType:     model.EventTypeApplicationSubmitted,
		Timestamp:     at,
		ApplicationID: app.ID,
		CustomerID:    app.CustomerID,
		CorrelationID: correlationID,
		Payload: model.SubmissionEventPayload{
			LoanAmount:  app.LoanAmount,
			LoanPurpose: app.LoanPurpose,
			Income:      app.Income,
			Documents:   evDocs,
		},
	}
}

func objectKeys(staged []storage.StagedObject) []string {
	keys := make([]string, 0, len(staged))
	for _, o := range staged {
		keys = append(keys, o.Key)
	}
	return keys
}
