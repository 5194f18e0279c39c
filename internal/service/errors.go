package service

import (
	"errors"
	"fmt"

	"loanapi/internal/events"
	"loanapi/internal/repository"
	"loanapi/internal/storage"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUploadFailed       = errors.New("document upload failed")
	ErrPersistenceFailed  = errors.New("application persistence failed")
	ErrNotificationFailed = errors.New("submission notification failed")
	ErrUnavailable        = errors.New("backing store unavailable")
	ErrNotFound           = errors.New("application not found")
)

// Submission stages, used in logs, metrics and SubmissionError.
const (
	StageValidate = "validate"
	StageStage    = "stage_documents"
	StagePersist  = "persist_metadata"
	StagePublish  = "publish_event"
	StageCommit   = "commit"
)

// ValidationError carries a message that is safe to return to the client.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// SubmissionError reports which stage of a submission failed. It matches its
// Kind, its cause, and ErrUnavailable when the cause was a store outage.
type SubmissionError struct {
	Stage string
	Kind  error
	Err   error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Stage, e.Kind, e.Err)
}

func (e *SubmissionError) Unwrap() []error {
	errs := []error{e.Kind, e.Err}
	if isUnavailable(e.Err) {
		errs = append(errs, ErrUnavailable)
	}
	return errs
}

func newSubmissionError(stage string, kind, err error) *SubmissionError {
	return &SubmissionError{Stage: stage, Kind: kind, Err: err}
}

func isUnavailable(err error) bool {
	return errors.Is(err, storage.ErrStoreUnavailable) ||
		errors.Is(err, repository.ErrUnavailable) ||
		errors.Is(err, events.ErrBrokerUnavailable) ||
		errors.Is(err, events.ErrTimeout)
}
