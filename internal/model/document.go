package model

import "time"

// Document is the metadata of an uploaded file. The bytes live in the object
// store under StorageBucket/ObjectKey; the row is only written after the
// object exists.
type Document struct {
	ID            string    `json:"id"`
	ApplicationID string    `json:"applicationId"`
	DocumentType  string    `json:"documentType"`
	FileName      string    `json:"fileName"`
	FileSize      int64     `json:"fileSize"`
	ContentType   string    `json:"contentType"`
	StorageBucket string    `json:"-"`
	ObjectKey     string    `json:"-"`
	UploadedAt    time.Time `json:"uploadedAt"`
}

// DocumentSummary is the listing projection of a Document.
type DocumentSummary struct {
	ID           string    `json:"id"`
	DocumentType string    `json:"documentType"`
	FileName     string    `json:"fileName"`
	UploadedAt   time.Time `json:"uploadedAt"`
}
