package writer

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"ldexplorer/config"
	"ldexplorer/logger"
)

// putObjectAPI is the part of the S3 client the uploader needs.
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader stores encoded reports in a bucket.
type S3Uploader struct {
	client  putObjectAPI
	bucket  string
	version string
	log     *logger.Log
}

// NewS3Uploader builds an S3 client from the storage section. Static
// credentials are used when both keys are set, otherwise the default chain.
func NewS3Uploader(ctx context.Context, cfg config.S3Config, version string) (*S3Uploader, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	return &S3Uploader{client: client, bucket: cfg.Bucket, version: version, log: logger.GetLogger()}, nil
}

// Upload puts data under key and returns its s3:// location.
func (u *S3Uploader) Upload(ctx context.Context, key, contentType string, data []byte, meta map[string]string) (string, error) {
	log := u.log.WithComponent("s3_writer").WithFields(logger.Fields{
		"operation": "upload_to_s3",
		"data_size": len(data),
		"s3_key":    key,
	})
	log.Debug("uploading to S3")

	md := map[string]string{"ldexplorer-version": u.version}
	for k, v := range meta {
		md[k] = v
	}

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		Metadata:    md,
	})
	if err != nil {
		log.WithError(err).WithEnv("S3_BUCKET").WithField("bucket", u.bucket).Error("failed to upload to S3")
		return "", fmt.Errorf("failed to upload to S3 bucket %s: %w", u.bucket, err)
	}

	log.Info("successfully uploaded to S3")
	return fmt.Sprintf("s3://%s/%s", u.bucket, key), nil
}
