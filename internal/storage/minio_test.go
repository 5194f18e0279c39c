package storage

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"

	"loanapi/internal/config"
)

func TestClassifyMinio(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "missing key",
			err:  minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound},
			want: ErrObjectNotFound,
		},
		{
			name: "missing bucket",
			err:  minio.ErrorResponse{Code: "NoSuchBucket", StatusCode: http.StatusNotFound},
			want: ErrStoreUnavailable,
		},
		{
			name: "server error",
			err:  minio.ErrorResponse{Code: "InternalError", StatusCode: http.StatusServiceUnavailable},
			want: ErrStoreUnavailable,
		},
		{
			name: "transport failure",
			err:  errors.New("dial tcp 10.0.0.1:9000: connect: connection refused"),
			want: ErrStoreUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, classifyMinio(tt.err), tt.want)
		})
	}

	denied := minio.ErrorResponse{Code: "AccessDenied", StatusCode: http.StatusForbidden}
	got := classifyMinio(denied)
	assert.NotErrorIs(t, got, ErrStoreUnavailable)
	assert.NotErrorIs(t, got, ErrObjectNotFound)
}

func TestNewMinIO_Validation(t *testing.T) {
	ctx := context.Background()

	_, err := NewMinIO(ctx, config.MinIOConfig{})
	assert.ErrorContains(t, err, "endpoint is required")

	_, err = NewMinIO(ctx, config.MinIOConfig{Endpoint: "minio:9000"})
	assert.ErrorContains(t, err, "credentials are required")

	_, err = NewMinIO(ctx, config.MinIOConfig{Endpoint: "minio:9000", AccessKey: "a", SecretKey: "b"})
	assert.ErrorContains(t, err, "bucket is required")
}
