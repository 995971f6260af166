package services

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/tzikbal/internal/common"
	"github.com/dmitrijs2005/tzikbal/internal/logging"
	sc "github.com/dmitrijs2005/tzikbal/internal/server/config"
	"github.com/dmitrijs2005/tzikbal/internal/server/models"
	"github.com/google/uuid"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}

	newObjectID = uuid.NewString
)

// MediaService stores uploaded files in an S3 bucket and returns their
// public URL.
type MediaService struct {
	config *sc.Config
	log    logging.Logger
}

func NewMediaService(config *sc.Config, log logging.Logger) *MediaService {
	return &MediaService{
		config: config,
		log:    log.With("module", "media"),
	}
}

// StorageKey returns "<uuid>-<name>" where name is the base name of the
// client-supplied file name.
func StorageKey(originalName string) string {
	name := path.Base(strings.ReplaceAll(originalName, `\`, "/"))
	return fmt.Sprintf("%s-%s", newObjectID(), name)
}

// ObjectURL returns the public URL of key. A custom endpoint (MinIO,
// LocalStack) uses path-style addressing.
func (s *MediaService) ObjectURL(key string) string {
	if s.config.S3BaseEndpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.config.S3BaseEndpoint, "/"), s.config.S3Bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.config.S3Bucket, s.config.S3Region, key)
}

func (s *MediaService) getClient(ctx context.Context) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(s.config.S3Region),
	}
	if s.config.S3AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3AccessKeyID,
			s.config.S3SecretAccessKey,
			"",
		)))
	}

	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if s.config.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return client, nil
}

// Upload puts f into the bucket under a fresh key and returns its URL.
func (s *MediaService) Upload(ctx context.Context, f models.UploadedFile) (string, error) {
	if f.Body == nil || f.OriginalName == "" || f.Size <= 0 {
		return "", common.ErrInvalidFile
	}
	if f.Size > s.config.MaxUploadSize {
		return "", fmt.Errorf("%w: file exceeds %d bytes", common.ErrInvalidFile, s.config.MaxUploadSize)
	}

	client, err := s.getClient(ctx)
	if err != nil {
		return "", fmt.Errorf("error creating storage client: %w", err)
	}

	key := StorageKey(f.OriginalName)
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = putObject(client, ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.config.S3Bucket),
		Key:           aws.String(key),
		Body:          f.Body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(f.Size),
	})
	if err != nil {
		return "", fmt.Errorf("error uploading object: %w", err)
	}

	s.log.Info(ctx, "file uploaded", "key", key, "size", f.Size)
	return s.ObjectURL(key), nil
}
