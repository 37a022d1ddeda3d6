package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of the S3 client the image store uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3ImageStore stores images in a bucket readable through publicBaseURL.
type S3ImageStore struct {
	client        S3API
	bucket        string
	publicBaseURL string
}

// NewS3ImageStore loads AWS credentials from the default chain. When
// publicBaseURL is empty the virtual-hosted bucket URL is used.
func NewS3ImageStore(ctx context.Context, bucket, region, publicBaseURL string) (*S3ImageStore, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewS3ImageStoreWithClient(s3.NewFromConfig(awsCfg), bucket, region, publicBaseURL), nil
}

func NewS3ImageStoreWithClient(client S3API, bucket, region, publicBaseURL string) *S3ImageStore {
	if publicBaseURL == "" {
		publicBaseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	return &S3ImageStore{client: client, bucket: bucket, publicBaseURL: publicBaseURL}
}

func (s *S3ImageStore) Put(ctx context.Context, key, contentType string, body []byte) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
		CacheControl:  aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return "", fmt.Errorf("put s3 object %s: %w", key, err)
	}
	return s.publicBaseURL + "/" + key, nil
}
