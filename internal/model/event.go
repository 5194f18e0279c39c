package model

import "time"

// EventTypeApplicationSubmitted tags the event emitted once per submission.
const EventTypeApplicationSubmitted = "ApplicationSubmitted"

// SubmissionEvent is the domain event appended to the event log. Consumers
// deduplicate redeliveries by EventID or ApplicationID.
type SubmissionEvent struct {
	EventID       string                 `json:"eventId"`
	EventType     string                 `json:"eventType"`
	Timestamp     time.Time              `json:"timestamp"`
	ApplicationID string                 `json:"applicationId"`
	CustomerID    string                 `json:"customerId"`
	CorrelationID string                 `json:"correlationId"`
	Payload       SubmissionEventPayload `json:"payload"`
}

type SubmissionEventPayload struct {
	LoanAmount  float64         `json:"loanAmount"`
	LoanPurpose string          `json:"loanPurpose"`
	Income      float64         `json:"income"`
	Documents   []EventDocument `json:"documents"`
}

type EventDocument struct {
	DocumentID   string `json:"documentId"`
	DocumentType string `json:"documentType"`
	FileName     string `json:"fileName"`
}
