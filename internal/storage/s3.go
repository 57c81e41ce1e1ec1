package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Service stores avatars in Amazon S3 (or compatible APIs).
type S3Service struct {
	client   *s3.Client
	uploader *manager.Uploader
	region   string
	endpoint string
}

func NewS3Service(client *s3.Client, region, endpoint string) *S3Service {
	return &S3Service{
		client:   client,
		uploader: manager.NewUploader(client),
		region:   region,
		endpoint: strings.TrimSuffix(endpoint, "/"),
	}
}

func (s *S3Service) UploadObject(ctx context.Context, opts UploadOptions, key, contentType string, body io.Reader) (string, error) {
	if opts.Bucket == "" {
		return "", fmt.Errorf("storage bucket is required")
	}
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("object key is required")
	}

	fullKey := strings.Trim(opts.KeyPrefix, "/")
	if fullKey != "" {
		fullKey += "/"
	}
	fullKey += strings.TrimPrefix(key, "/")

	input := &s3.PutObjectInput{
		Bucket: aws.String(opts.Bucket),
		Key:    aws.String(fullKey),
		Body:   body,
		ACL:    types.ObjectCannedACLPublicRead,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return "", fmt.Errorf("upload %s: %w", fullKey, err)
	}

	return s.objectURL(opts.Bucket, fullKey), nil
}

func (s *S3Service) DeleteObject(ctx context.Context, bucket, key string) error {
	if bucket == "" {
		return fmt.Errorf("storage bucket is required")
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("object key is required")
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// objectURL builds the public URL for an uploaded object. With a custom
// endpoint (minio etc.) path-style addressing is assumed, matching the
// client configuration in main.
func (s *S3Service) objectURL(bucket, key string) string {
	if s.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", s.endpoint, bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, s.region, key)
}

var _ Service = (*S3Service)(nil)
