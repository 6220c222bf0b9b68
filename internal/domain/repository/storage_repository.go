package repository

import (
	"context"
	"time"

	"github.com/diillson/sandbox-cost-collector/internal/domain/entity"
)

// StorageRepository defines the interface for the durable report store.
type StorageRepository interface {
	// UploadReportCSV writes the rendered CSV under the key "{leaseID}.csv"
	// with a content checksum attached to the write.
	UploadReportCSV(ctx context.Context, leaseID, body string) (entity.StoredObject, error)

	// PresignReport generates a time-limited retrieval URL for an uploaded
	// artifact and reports when that URL expires.
	PresignReport(ctx context.Context, key string) (url string, expiresAt time.Time, err error)
}
