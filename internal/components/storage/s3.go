package storage

import (
	"context"
	"errors"
	"fmt"

	"icebergtest/internal/component"
	"icebergtest/internal/components/awsenv"
	"icebergtest/internal/config"
	"icebergtest/pkg/logging"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const (
	s3Subsystem = "S3"

	S3Key = "s3"

	// maximum keys per DeleteObjects call
	deleteBatchSize = 1000
)

type s3API interface {
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	ListObjectVersions(ctx context.Context, params *s3.ListObjectVersionsInput, optFns ...func(*s3.Options)) (*s3.ListObjectVersionsOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	DeleteBucket(ctx context.Context, params *s3.DeleteBucketInput, optFns ...func(*s3.Options)) (*s3.DeleteBucketOutput, error)
}

var newS3Client = func(ctx context.Context, creds config.AWSCredentials) (s3API, error) {
	cfg, err := awsenv.LoadConfig(ctx, creds)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(cfg), nil
}

// S3 is a bucket in AWS S3.
type S3 struct {
	*component.Base
	env     *component.Env
	creds   config.AWSCredentials
	client  s3API
	created bool
}

// NewS3 builds the s3 storage.
func NewS3(env *component.Env) (component.Storage, error) {
	return &S3{
		Base:  component.NewBase(S3Key, component.RoleStorage),
		env:   env,
		creds: env.Secrets.AWS(),
	}, nil
}

// BucketName is the bucket created for this run.
func (s *S3) BucketName() string {
	return "iceberg-test-" + s.env.RunName()
}

func (s *S3) BucketURL() string {
	return "s3://" + s.BucketName()
}

func (s *S3) S3() component.S3Config {
	return component.S3Config{
		Bucket:          s.BucketName(),
		AccessKeyID:     s.creds.AccessKeyID,
		SecretAccessKey: s.creds.SecretAccessKey,
		Region:          s.creds.Region,
		Public:          true,
		AWS:             true,
	}
}

func (s *S3) CatalogProperties() map[string]string {
	return map[string]string{
		"s3.access-key-id":     s.creds.AccessKeyID,
		"s3.secret-access-key": s.creds.SecretAccessKey,
		"s3.region":            s.creds.Region,
	}
}

func (s *S3) Setup(ctx context.Context) error {
	client, err := newS3Client(ctx, s.creds)
	if err != nil {
		return err
	}
	s.client = client

	input := &s3.CreateBucketInput{Bucket: aws.String(s.BucketName())}
	if s.creds.Region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.creds.Region),
		}
	}
	if _, err := client.CreateBucket(ctx, input); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.BucketName(), err)
	}
	s.created = true
	logging.Info(s3Subsystem, "Created bucket %s in %s", s.BucketName(), s.creds.Region)
	return nil
}

// Teardown empties the bucket, current objects first and then every
// remaining version and delete marker, and deletes it.
func (s *S3) Teardown(ctx context.Context) error {
	if !s.created {
		return nil
	}
	bucket := s.BucketName()

	if err := s.deleteObjects(ctx, bucket); err != nil {
		return err
	}
	if err := s.deleteVersions(ctx, bucket); err != nil {
		return err
	}
	if _, err := s.client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(bucket)}); err != nil {
		return fmt.Errorf("failed to delete bucket %s: %w", bucket, err)
	}
	s.created = false
	logging.Info(s3Subsystem, "Deleted bucket %s", bucket)
	return nil
}

func (s *S3) deleteObjects(ctx context.Context, bucket string) error {
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{Bucket: aws.String(bucket), ContinuationToken: token})
		if err != nil {
			return fmt.Errorf("failed to list objects in %s: %w", bucket, err)
		}
		ids := make([]types.ObjectIdentifier, 0, len(out.Contents))
		for _, obj := range out.Contents {
			ids = append(ids, types.ObjectIdentifier{Key: obj.Key})
		}
		if err := s.deleteBatch(ctx, bucket, ids); err != nil {
			return err
		}
		if !aws.ToBool(out.IsTruncated) {
			return nil
		}
		token = out.NextContinuationToken
	}
}

func (s *S3) deleteVersions(ctx context.Context, bucket string) error {
	var keyMarker, versionMarker *string
	for {
		out, err := s.client.ListObjectVersions(ctx, &s3.ListObjectVersionsInput{
			Bucket:          aws.String(bucket),
			KeyMarker:       keyMarker,
			VersionIdMarker: versionMarker,
		})
		if err != nil {
			return fmt.Errorf("failed to list object versions in %s: %w", bucket, err)
		}
		ids := make([]types.ObjectIdentifier, 0, len(out.Versions)+len(out.DeleteMarkers))
		for _, v := range out.Versions {
			ids = append(ids, types.ObjectIdentifier{Key: v.Key, VersionId: v.VersionId})
		}
		for _, m := range out.DeleteMarkers {
			ids = append(ids, types.ObjectIdentifier{Key: m.Key, VersionId: m.VersionId})
		}
		if err := s.deleteBatch(ctx, bucket, ids); err != nil {
			return err
		}
		if !aws.ToBool(out.IsTruncated) {
			return nil
		}
		keyMarker, versionMarker = out.NextKeyMarker, out.NextVersionIdMarker
	}
}

func (s *S3) deleteBatch(ctx context.Context, bucket string, ids []types.ObjectIdentifier) error {
	for start := 0; start < len(ids); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(ids))
		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &types.Delete{Objects: ids[start:end], Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("failed to delete objects in %s: %w", bucket, err)
		}
		if len(out.Errors) > 0 {
			var errs []error
			for _, e := range out.Errors {
				errs = append(errs, fmt.Errorf("%s: %s", aws.ToString(e.Key), aws.ToString(e.Message)))
			}
			return fmt.Errorf("failed to delete %d objects in %s: %w", len(out.Errors), bucket, errors.Join(errs...))
		}
		logging.Debug(s3Subsystem, "Deleted %d objects from %s", end-start, bucket)
	}
	return nil
}
