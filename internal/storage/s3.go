package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/codebuildervaibhav/lecture-grader/internal/apperr"
	"github.com/codebuildervaibhav/lecture-grader/internal/types"
)

// S3 error codes that mean the configured credentials are unusable.
var credentialErrorCodes = map[string]bool{
	"InvalidAccessKeyId":    true,
	"SignatureDoesNotMatch": true,
	"ExpiredToken":          true,
	"InvalidToken":          true,
	"TokenRefreshRequired":  true,
}

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store uploads public-read objects to a single bucket.
type S3Store struct {
	client putObjectAPI
	bucket string
	region string
}

// NewS3Store creates an S3 client with static credentials. Retries are
// disabled; a failed put surfaces immediately.
func NewS3Store(ctx context.Context, bucket, region, accessKeyID, secretAccessKey string) (*S3Store, error) {
	if bucket == "" || region == "" {
		return nil, apperr.Newf(apperr.KindConfiguration, "s3 store", "bucket and region are required")
	}
	if accessKeyID == "" || secretAccessKey == "" {
		return nil, apperr.Newf(apperr.KindConfiguration, "s3 store", "AWS credentials not configured properly")
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, apperr.New(apperr.KindConfiguration, "s3 store", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.Retryer = aws.NopRetryer{}
	})

	return newS3Store(client, bucket, region), nil
}

func newS3Store(client putObjectAPI, bucket, region string) *S3Store {
	return &S3Store{client: client, bucket: bucket, region: region}
}

// Backend implements ObjectStore.
func (s *S3Store) Backend() string { return "s3" }

// Store implements ObjectStore.
func (s *S3Store) Store(ctx context.Context, data []byte, originalName string) (*types.UploadedAsset, error) {
	key := NewObjectKey(originalName)

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
		ACL:    s3types.ObjectCannedACLPublicRead,
	}
	if ct := mime.TypeByExtension(filepath.Ext(key)); ct != "" {
		input.ContentType = aws.String(ct)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return nil, classifyS3Error(err)
	}

	return &types.UploadedAsset{
		StorageKey: key,
		PublicURL:  s.PublicURL(key),
	}, nil
}

// PublicURL derives the virtual-hosted style URL for key.
func (s *S3Store) PublicURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

func classifyS3Error(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && credentialErrorCodes[apiErr.ErrorCode()] {
		return apperr.New(apperr.KindStorageUnavailable, "s3 put object", err)
	}

	var sendErr *smithyhttp.RequestSendError
	if errors.As(err, &sendErr) || isNetworkError(err) {
		return apperr.New(apperr.KindStorageUnavailable, "s3 put object", err)
	}

	return apperr.New(apperr.KindStorage, "s3 put object", err)
}
