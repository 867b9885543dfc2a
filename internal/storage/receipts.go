// Package storage keeps uploaded payment receipt images in an S3-compatible bucket.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"rental-backend/internal/config"
)

// ReceiptStore accepts an uploaded image and returns a retrievable reference URL
type ReceiptStore interface {
	Put(ctx context.Context, bookingID int, filename, contentType string, body io.Reader, size int64) (string, error)
}

var allowedTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// Extension returns the stored file extension for an accepted content type
func Extension(contentType string) (string, bool) {
	ext, ok := allowedTypes[strings.ToLower(contentType)]
	return ext, ok
}

// ObjectKey is receipts/{bookingID}/{uuid}{ext}
func ObjectKey(bookingID int, ext string) string {
	return path.Join("receipts", fmt.Sprint(bookingID), uuid.NewString()+ext)
}

type S3ReceiptStore struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

// NewS3ReceiptStore builds a client for AWS S3 or any S3-compatible endpoint (R2, MinIO)
func NewS3ReceiptStore(ctx context.Context, cfg *config.Config) (*S3ReceiptStore, error) {
	rc := cfg.Receipts
	if rc.Bucket == "" {
		return nil, fmt.Errorf("receipts bucket not configured")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(rc.Region)}
	if rc.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(rc.AccessKey, rc.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if rc.Endpoint != "" {
			o.BaseEndpoint = aws.String(rc.Endpoint)
			o.UsePathStyle = true
		}
	})

	baseURL := strings.TrimRight(rc.PublicBaseURL, "/")
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", rc.Bucket, rc.Region)
	}

	return &S3ReceiptStore{client: client, bucket: rc.Bucket, baseURL: baseURL}, nil
}

func (s *S3ReceiptStore) Put(ctx context.Context, bookingID int, filename, contentType string, body io.Reader, size int64) (string, error) {
	ext, ok := Extension(contentType)
	if !ok {
		return "", fmt.Errorf("unsupported receipt type %q", contentType)
	}
	key := ObjectKey(bookingID, ext)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
		Metadata: map[string]string{
			"original-filename": path.Base(filename),
			"booking-id":        fmt.Sprint(bookingID),
		},
	})
	if err != nil {
		return "", fmt.Errorf("upload receipt: %w", err)
	}

	return s.baseURL + "/" + key, nil
}
