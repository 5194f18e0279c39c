package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// Upload is one document payload as received from the client. Open is called
// once per staging attempt and the returned reader is streamed to the store.
type Upload struct {
	FieldName   string
	FileName    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// StagedObject is the handle of a document whose bytes are durably stored.
type StagedObject struct {
	DocumentID  string
	Bucket      string
	Key         string
	Size        int64
	ContentType string
	ETag        string
}

// Stager places document bytes into the object store ahead of any metadata
// write and removes them again when a submission is abandoned.
type Stager interface {
	// Stage streams u under a key scoped by applicationID and documentID.
	// It never overwrites an existing object. Errors match ErrStoreUnavailable
	// or ErrWriteFailed.
	Stage(ctx context.Context, applicationID, documentID string, u Upload) (StagedObject, error)
	// Discard deletes a previously staged object.
	Discard(ctx context.Context, obj StagedObject) error
}

type objectStager struct {
	store Storage
}

// NewStager returns a Stager writing into store's bucket.
func NewStager(store Storage) Stager {
	return &objectStager{store: store}
}

// ObjectKey builds the storage key for a document of an application.
func ObjectKey(applicationID, documentID, fileName string) string {
	return fmt.Sprintf("applications/%s/%s-%s", applicationID, documentID, sanitizeFileName(fileName))
}

func (s *objectStager) Stage(ctx context.Context, applicationID, documentID string, u Upload) (StagedObject, error) {
	if u.Open == nil {
		return StagedObject{}, fmt.Errorf("%w: %s has no content", ErrWriteFailed, u.FileName)
	}
	key := ObjectKey(applicationID, documentID, u.FileName)

	_, err := s.store.Stat(ctx, key)
	switch {
	case err == nil:
		return StagedObject{}, fmt.Errorf("%w: object %s already exists", ErrWriteFailed, key)
	case !errors.Is(err, ErrObjectNotFound):
		return StagedObject{}, asStageError("stat", err)
	}

	r, err := u.Open()
	if err != nil {
		return StagedObject{}, fmt.Errorf("%w: open %s: %w", ErrWriteFailed, u.FileName, err)
	}
	defer r.Close()

	info, err := s.store.Put(ctx, key, r, PutObjectOptions{
		Size:        u.Size,
		ContentType: u.ContentType,
		Metadata: map[string]string{
			"application-id":    applicationID,
			"document-id":       documentID,
			"original-filename": u.FileName,
		},
	})
	if err != nil {
		return StagedObject{}, asStageError("put", err)
	}

	if info.Size != u.Size {
		mismatch := fmt.Errorf("%w: %s stored %d bytes, expected %d", ErrWriteFailed, key, info.Size, u.Size)
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			return StagedObject{}, errors.Join(mismatch, fmt.Errorf("delete short object: %w", delErr))
		}
		return StagedObject{}, mismatch
	}

	return StagedObject{
		DocumentID:  documentID,
		Bucket:      s.store.Bucket(),
		Key:         key,
		Size:        info.Size,
		ContentType: u.ContentType,
		ETag:        info.ETag,
	}, nil
}

func (s *objectStager) Discard(ctx context.Context, obj StagedObject) error {
	return s.store.Delete(ctx, obj.Key)
}

func asStageError(op string, err error) error {
	if errors.Is(err, ErrStoreUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrWriteFailed, op, err)
}

// sanitizeFileName keeps the base name and replaces anything outside
// [A-Za-z0-9._-] so client names cannot escape the application prefix.
func sanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "file"
	}
	return out
}
