// Package archive mirrors the persisted article set to an S3-compatible bucket.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/bilgisen/newsfeed/internal/config"
	"github.com/bilgisen/newsfeed/internal/models"
	"github.com/bilgisen/newsfeed/internal/utils"
)

// ObjectPutter is the slice of the S3 API the archive needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archive writes the latest article set as JSON to <prefix>articles/latest.json.
type Archive struct {
	client ObjectPutter
	bucket string
	key    string

	mu       sync.Mutex
	lastHash string
}

// New builds an Archive from cfg. Static credentials are used when configured,
// otherwise the default AWS credential chain applies.
func New(ctx context.Context, cfg *config.Config) (*Archive, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.ArchiveRegion != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.ArchiveRegion))
	}
	if cfg.ArchiveAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.ArchiveAccessKey, cfg.ArchiveSecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load archive config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.ArchiveEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.ArchiveEndpoint)
		}
		o.UsePathStyle = cfg.ArchivePathStyle
	})

	return NewWithClient(client, cfg.ArchiveBucket, cfg.ArchivePrefix), nil
}

// NewWithClient builds an Archive on an existing client.
func NewWithClient(client ObjectPutter, bucket, prefix string) *Archive {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &Archive{
		client: client,
		bucket: bucket,
		key:    prefix + "articles/latest.json",
	}
}

// Key is the object key the archive writes to.
func (a *Archive) Key() string {
	return a.key
}

// Mirror uploads records unless they match the last uploaded set.
func (a *Archive) Mirror(ctx context.Context, records []models.ArticleEntity) error {
	if records == nil {
		records = []models.ArticleEntity{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal articles: %w", err)
	}
	hash := utils.HashBytes(data)

	a.mu.Lock()
	defer a.mu.Unlock()

	if hash == a.lastHash {
		return nil
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(a.bucket),
		Key:          aws.String(a.key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String("application/json"),
		CacheControl: aws.String("no-cache"),
		Metadata:     map[string]string{"sha256": hash},
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", a.key, err)
	}

	a.lastHash = hash
	return nil
}
