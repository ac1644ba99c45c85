package provider

import (
	"context"
	"errors"
	"path"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"relaychat/internal/pkg/logx"
)

const (
	// maxGalleryObjects bounds how many bucket objects one refresh lists.
	maxGalleryObjects = 100

	// presignedURLDuration is how long a presigned gallery URL stays valid.
	presignedURLDuration = 15 * time.Minute
)

// S3Config holds the configuration required to connect to an S3-compatible
// gallery bucket.
type S3Config struct {
	BucketName      string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// Enabled reports whether the S3 gallery block was configured at all.
func (c S3Config) Enabled() bool {
	return c.BucketName != ""
}

// S3Media implements Media over an S3-compatible bucket of gallery images.
// Each refresh lists the bucket and presigns a bounded number of GET URLs.
type S3Media struct {
	cfg      S3Config
	s3Client *s3.Client
	logger   zerolog.Logger

	mu     sync.RWMutex
	cached []ImageRef
}

// NewS3Media initializes the S3 client using a custom configuration that
// supports S3-compatible endpoints.
func NewS3Media(cfg S3Config) (*S3Media, error) {
	sdkCfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		logx.Error(err, "Failed to load AWS SDK config")
		return nil, errors.New("failed to initialize S3 gallery configuration")
	}

	client := s3.NewFromConfig(sdkCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	return &S3Media{
		cfg:      cfg,
		s3Client: client,
		logger:   logx.Logger().With().Str("component", "S3Media").Logger(),
	}, nil
}

// Images returns the current catalogue, listing the bucket first if empty.
func (m *S3Media) Images(ctx context.Context) []ImageRef {
	m.mu.RLock()
	cached := m.cached
	m.mu.RUnlock()

	if len(cached) > 0 {
		return cached
	}

	if _, err := m.Refresh(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("S3 gallery refresh failed. Serving empty catalogue.")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cached
}

// Refresh lists the gallery bucket and presigns a GET URL per object.
func (m *S3Media) Refresh(ctx context.Context) (int, error) {
	list, err := m.s3Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  &m.cfg.BucketName,
		MaxKeys: aws.Int32(maxGalleryObjects),
	})
	if err != nil {
		m.logger.Warn().Err(err).Str("bucket", m.cfg.BucketName).Msg("Failed to list gallery bucket.")
		return 0, errors.New("failed to list gallery bucket")
	}

	presignClient := s3.NewPresignClient(m.s3Client)

	refs := make([]ImageRef, 0, len(list.Contents))
	for _, obj := range list.Contents {
		if obj.Key == nil {
			continue
		}

		presigned, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: &m.cfg.BucketName,
			Key:    obj.Key,
		}, s3.WithPresignExpires(presignedURLDuration))
		if err != nil {
			m.logger.Warn().Err(err).Str("key", *obj.Key).Msg("Failed to presign gallery object. Skipping.")
			continue
		}

		refs = append(refs, ImageRef{
			ID:          *obj.Key,
			Author:      path.Base(*obj.Key),
			URL:         presigned.URL,
			DownloadURL: presigned.URL,
		})
	}

	m.mu.Lock()
	m.cached = refs
	m.mu.Unlock()

	m.logger.Info().Int("images", len(refs)).Str("bucket", m.cfg.BucketName).Msg("S3 gallery catalogue refreshed.")

	return len(refs), nil
}
