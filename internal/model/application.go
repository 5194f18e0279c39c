package model

import "time"

// ApplicationStatus is the lifecycle state of a loan application. Only
// StatusPending is produced by submission; later states are set by
// downstream services.
type ApplicationStatus string

const (
	StatusPending ApplicationStatus = "PENDING"
)

// Application is a loan application row. JSON tags mirror the column names
// because the submission response echoes the stored row.
type Application struct {
	ID             string            `json:"id"`
	CustomerID     string            `json:"customer_id"`
	LoanAmount     float64           `json:"loan_amount"`
	LoanPurpose    string            `json:"loan_purpose"`
	Income         float64           `json:"income"`
	Status         ApplicationStatus `json:"status"`
	IdempotencyKey string            `json:"-"`
	CreatedAt      time.Time         `json:"created_at"`
}
