package uploads

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Seams for testing the AWS call chain without a live endpoint.
var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// S3Config holds the settings for the optional archive mirror. The
// mirror is disabled when Bucket is empty.
type S3Config struct {
	RootUser     string
	RootPassword string
	Bucket       string
	Region       string
	BaseEndpoint string
}

// ArchiveMirror copies finalized session archives into an S3-compatible
// bucket and hands out presigned download URLs for them.
type ArchiveMirror struct {
	svc *Service
	cfg S3Config
}

func NewArchiveMirror(svc *Service, cfg S3Config) *ArchiveMirror {
	return &ArchiveMirror{svc: svc, cfg: cfg}
}

func (m *ArchiveMirror) Enabled() bool {
	return m.cfg.Bucket != ""
}

func (m *ArchiveMirror) storageKey(id string) string {
	return fmt.Sprintf("uploads/%s.zip", id)
}

func (m *ArchiveMirror) getClient(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(m.cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			m.cfg.RootUser,
			m.cfg.RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(m.cfg.BaseEndpoint)
		o.UsePathStyle = true
	}), nil
}

// MirrorArchive packages the session into a zip and uploads it to the
// bucket. Returns the storage key of the uploaded object.
func (m *ArchiveMirror) MirrorArchive(ctx context.Context, id string) (string, error) {
	var buf bytes.Buffer
	if err := m.svc.Archive(ctx, id, &buf); err != nil {
		return "", err
	}

	client, err := m.getClient(ctx)
	if err != nil {
		return "", err
	}

	bucket := m.cfg.Bucket
	key := m.storageKey(id)
	_, err = putObject(client, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
		Body:   bytes.NewReader(buf.Bytes()),
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

// PresignDownload returns a time-limited GET URL for a previously
// mirrored session archive.
func (m *ArchiveMirror) PresignDownload(ctx context.Context, id string) (string, error) {
	client, err := m.getClient(ctx)
	if err != nil {
		return "", err
	}

	bucket := m.cfg.Bucket
	key := m.storageKey(id)
	req, err := presignGetObject(newS3PresignClient(client), ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}
