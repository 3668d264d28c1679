// Package storage pushes finished documents to an S3-compatible bucket
// and fetches them back, with optional at-rest encryption.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	retry "github.com/avast/retry-go/v4"
	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

// Config defines bucket connectivity. Endpoint is only needed for
// S3-compatible services; empty AccessKey falls back to the default
// AWS credential chain.
type Config struct {
	Bucket     string
	Prefix     string
	Region     string
	Endpoint   string
	AccessKey  string
	SecretKey  string
	Passphrase string
}

// Artifacts is the S3-backed artifact store.
type Artifacts struct {
	client     *s3.Client
	uploader   *manager.Uploader
	downloader *manager.Downloader
	cfg        Config
}

// New connects to the configured bucket.
func New(ctx context.Context, cfg Config) (*Artifacts, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("artifact bucket not configured")
	}
	var loadOpts []func(*awscfg.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awscfg.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	ac, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	cli := s3.NewFromConfig(ac, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &Artifacts{
		client:     cli,
		uploader:   manager.NewUploader(cli),
		downloader: manager.NewDownloader(cli),
		cfg:        cfg,
	}, nil
}

func (a *Artifacts) objectKey(key string) string {
	if a.cfg.Prefix == "" {
		return key
	}
	return path.Join(a.cfg.Prefix, key)
}

// Upload pushes a local file under the configured prefix and returns
// its bucket URL. Transient failures are retried before giving up.
func (a *Artifacts) Upload(ctx context.Context, localPath, key string) (string, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to read artifact: %w", err)
	}

	contentType := "application/octet-stream"
	if mt, merr := mimetype.DetectFile(localPath); merr == nil {
		contentType = mt.String()
	}

	encrypted := false
	if a.cfg.Passphrase != "" {
		data, err = encrypt(data, a.cfg.Passphrase)
		if err != nil {
			return "", fmt.Errorf("failed to encrypt artifact: %w", err)
		}
		encrypted = true
	}

	objKey := a.objectKey(key)
	meta := map[string]string{
		"name":      filepath.Base(localPath),
		"encrypted": strconv.FormatBool(encrypted),
	}
	err = retry.Do(
		func() error {
			_, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
				Bucket:      aws.String(a.cfg.Bucket),
				Key:         aws.String(objKey),
				Body:        bytes.NewReader(data),
				ContentType: aws.String(contentType),
				Metadata:    meta,
			})
			return err
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
	)
	if err != nil {
		return "", fmt.Errorf("failed to upload artifact: %w", err)
	}

	log.Info().Str("key", objKey).Int("bytes", len(data)).Bool("encrypted", encrypted).Msg("Artifact uploaded")
	return fmt.Sprintf("s3://%s/%s", a.cfg.Bucket, objKey), nil
}

// Download fetches an object and transparently decrypts it when the
// envelope magic is present.
func (a *Artifacts) Download(ctx context.Context, key string) ([]byte, error) {
	buf := manager.NewWriteAtBuffer(nil)
	_, err := a.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(a.cfg.Bucket),
		Key:    aws.String(a.objectKey(key)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download artifact: %w", err)
	}
	data := buf.Bytes()
	if !isEncrypted(data) {
		return data, nil
	}
	if a.cfg.Passphrase == "" {
		return nil, fmt.Errorf("artifact is encrypted and no passphrase is configured")
	}
	plain, err := decrypt(data, a.cfg.Passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt artifact: %w", err)
	}
	return plain, nil
}

// List returns the stored object keys for one job.
func (a *Artifacts) List(ctx context.Context, jobID string) ([]string, error) {
	prefix := a.objectKey(jobID) + "/"
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(a.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.cfg.Bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list artifacts: %w", err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			keys = append(keys, *obj.Key)
		}
	}
	return keys, nil
}

// Health verifies the bucket is reachable.
func (a *Artifacts) Health(ctx context.Context) error {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(a.cfg.Bucket)})
	return err
}
