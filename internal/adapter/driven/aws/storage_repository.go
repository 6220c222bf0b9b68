package aws

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3Types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/inconshreveable/log15"

	"github.com/diillson/sandbox-cost-collector/internal/domain/entity"
	"github.com/diillson/sandbox-cost-collector/internal/domain/repository"
)

const reportContentType = "text/csv"

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type s3Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// StorageRepositoryImpl implementa o StorageRepository sobre o S3.
type StorageRepositoryImpl struct {
	client    s3API
	presigner s3Presigner
	bucket    string
	urlExpiry time.Duration
	log       log15.Logger
	now       func() time.Time
}

// NewStorageRepository cria uma nova implementação do StorageRepository.
func NewStorageRepository(cfg aws.Config, bucket string, urlExpiry time.Duration, logger log15.Logger) repository.StorageRepository {
	client := s3.NewFromConfig(cfg)
	return &StorageRepositoryImpl{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    bucket,
		urlExpiry: urlExpiry,
		log:       logger,
		now:       time.Now,
	}
}

func (r *StorageRepositoryImpl) UploadReportCSV(ctx context.Context, leaseID, body string) (entity.StoredObject, error) {
	key := leaseID + ".csv"

	out, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:            aws.String(r.bucket),
		Key:               aws.String(key),
		Body:              strings.NewReader(body),
		ContentType:       aws.String(reportContentType),
		ChecksumAlgorithm: s3Types.ChecksumAlgorithmSha256,
	})
	if err != nil {
		return entity.StoredObject{}, fmt.Errorf("failed to upload report to s3://%s/%s: %w", r.bucket, key, err)
	}

	checksum := aws.ToString(out.ChecksumSHA256)
	r.log.Info("report uploaded", "bucket", r.bucket, "key", key, "checksumSHA256", checksum)

	return entity.StoredObject{Bucket: r.bucket, Key: key, ChecksumSHA256: checksum}, nil
}

func (r *StorageRepositoryImpl) PresignReport(ctx context.Context, key string) (string, time.Time, error) {
	req, err := r.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = r.urlExpiry
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to presign s3://%s/%s: %w", r.bucket, key, err)
	}

	// The reported expiry leaves a safety margin under the signature's real
	// lifetime so a consumer acting on it never hits an already-dead URL.
	expiresAt := r.now().Add(r.urlExpiry - credentialSafetyMargin).UTC()
	return req.URL, expiresAt, nil
}
