package services

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pandeptwidyaop/homelab-remote/internal/config"
)

// S3Uploader copies a finished archive to object storage.
type S3Uploader interface {
	Upload(ctx context.Context, cfg config.S3Config, file string) (string, error)
}

// AWSUploader implements S3Uploader with the AWS SDK. It works with any
// S3 compatible endpoint.
type AWSUploader struct{}

// NewAWSUploader creates a new AWSUploader instance.
func NewAWSUploader() *AWSUploader {
	return &AWSUploader{}
}

func (u *AWSUploader) client(ctx context.Context, cfg config.S3Config) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// ObjectKey returns the key an archive is stored under.
func ObjectKey(prefix, file string) string {
	return path.Join(prefix, filepath.Base(file))
}

// Upload puts file into the configured bucket and returns its s3:// location.
func (u *AWSUploader) Upload(ctx context.Context, cfg config.S3Config, file string) (string, error) {
	cli, err := u.client(ctx, cfg)
	if err != nil {
		return "", err
	}

	f, err := os.Open(file)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	key := ObjectKey(cfg.Prefix, file)
	_, err = cli.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(cfg.Bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String("application/zip"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	return "s3://" + cfg.Bucket + "/" + key, nil
}
