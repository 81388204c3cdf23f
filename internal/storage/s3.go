package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/kapu/cashier-dialog-gen/internal/config"
	"github.com/kapu/cashier-dialog-gen/internal/constants"
	"github.com/kapu/cashier-dialog-gen/internal/domain"
	"github.com/kapu/cashier-dialog-gen/pkg/errors"
)

// ObjectPutter is the part of the S3 client the exporter needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store exports each record as a JSON object under a key prefix.
type S3Store struct {
	client ObjectPutter
	bucket string
	prefix string
	logger *zap.Logger
}

// NewS3Store builds a client from the default AWS credential chain. A custom
// endpoint (MinIO, LocalStack) switches to path-style addressing.
func NewS3Store(ctx context.Context, cfg config.S3Config, logger *zap.Logger) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, errors.NewStorageError("failed to load AWS config", "s3", "init", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("S3 export enabled",
		zap.String("bucket", cfg.Bucket),
		zap.String("prefix", cfg.Prefix),
		zap.String("region", cfg.Region),
	)

	return NewS3StoreWithClient(client, cfg.Bucket, cfg.Prefix, logger), nil
}

func NewS3StoreWithClient(client ObjectPutter, bucket, prefix string, logger *zap.Logger) *S3Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &S3Store{client: client, bucket: bucket, prefix: prefix, logger: logger}
}

func (s *S3Store) Name() string { return "s3" }

// Key returns the object key for a dialog id.
func (s *S3Store) Key(id int64) string {
	return path.Join(s.prefix, fmt.Sprintf(constants.StorageConfig.RecordPattern, id))
}

func (s *S3Store) Save(ctx context.Context, rec *domain.DialogueRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errors.NewStorageError("failed to encode dialogue record", s.Name(), "save", err)
	}

	key := s.Key(rec.DialogID)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"mode":   rec.Mode,
			"run-id": rec.RunID,
		},
	})
	if err != nil {
		s.logger.Error("S3 upload failed", zap.String("key", key), zap.Error(err))
		return errors.NewStorageError("failed to upload dialogue record", s.Name(), "put", err)
	}
	return nil
}
