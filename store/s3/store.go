// Package s3 provides an AWS S3 store for bucketsample.
//
// It exposes the three capabilities the sampling pipeline needs: paged
// object listing, streaming object reads, and one-time downloads for
// formats that require random access. Transient provider errors are
// retried with exponential backoff.
//
// Basic usage:
//
//	store, err := s3.New(s3.Config{
//	    Bucket: "my-bucket",
//	    Region: "us-east-1",
//	})
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/grokify/mogo/log/slogutil"

	"github.com/grokify/bucketsample"
)

// Errors specific to the S3 store.
var (
	ErrBucketRequired = errors.New("s3: bucket is required")
)

// listPageSize is the number of keys requested per listing page.
const listPageSize = 1000

// Store implements bucketsample.Store for AWS S3.
type Store struct {
	client     *s3.Client
	downloader *manager.Downloader
	config     Config
	retry      bucketsample.RetryConfig
	logger     *slog.Logger
	closed     bool
	mu         sync.RWMutex
}

// New creates a new S3 store with the given configuration.
func New(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slogutil.Null()
	}

	var optFns []func(*config.LoadOptions) error

	if cfg.Region != "" {
		optFns = append(optFns, config.WithRegion(cfg.Region))
	}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		creds := credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			cfg.SessionToken,
		)
		optFns = append(optFns, config.WithCredentialsProvider(creds))
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), optFns...)
	if err != nil {
		return nil, fmt.Errorf("s3: loading AWS config: %w", err)
	}

	// Role assumption: route all requests through refreshed STS credentials.
	if cfg.RoleARN != "" {
		stsClient := sts.NewFromConfig(awsCfg)
		provider := stscreds.NewAssumeRoleProvider(stsClient, cfg.RoleARN, func(o *stscreds.AssumeRoleOptions) {
			if cfg.ExternalID != "" {
				o.ExternalID = aws.String(cfg.ExternalID)
			}
		})
		awsCfg.Credentials = aws.NewCredentialsCache(provider)
	}

	var s3OptFns []func(*s3.Options)

	if cfg.Endpoint != "" {
		s3OptFns = append(s3OptFns, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	if cfg.UsePathStyle {
		s3OptFns = append(s3OptFns, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3OptFns...)

	retry := bucketsample.DefaultRetryConfig()
	retry.Logger = logger

	return &Store{
		client:     client,
		downloader: manager.NewDownloader(client),
		config:     cfg,
		retry:      retry,
		logger:     logger,
	}, nil
}

// Objects lists objects under prefix, fetched lazily in pages of 1000.
// Each page fetch is retried on transient provider errors.
func (s *Store) Objects(ctx context.Context, prefix string) bucketsample.ObjectIterator {
	if err := s.checkClosed(); err != nil {
		return &objectIterator{err: err}
	}

	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.config.Bucket),
		MaxKeys: aws.Int32(listPageSize),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	return &objectIterator{
		ctx:       ctx,
		store:     s,
		prefix:    prefix,
		paginator: s3.NewListObjectsV2Paginator(s.client, input),
	}
}

// Open returns a streaming reader for the object's bytes.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := s.checkClosed(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var body io.ReadCloser
	err := bucketsample.Retry(ctx, s.retry, func() error {
		result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.config.Bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return err
		}
		body = result.Body
		return nil
	})
	if err != nil {
		return nil, s.translateError(err, key)
	}
	return body, nil
}

// Download copies the object to localPath using the transfer manager,
// creating parent directories as needed.
func (s *Store) Download(ctx context.Context, key, localPath string) error {
	if err := s.checkClosed(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return fmt.Errorf("s3: creating download directory: %w", err)
	}

	err := bucketsample.Retry(ctx, s.retry, func() error {
		f, err := os.Create(localPath)
		if err != nil {
			return err
		}
		if _, err := s.downloader.Download(ctx, f, &s3.GetObjectInput{
			Bucket: aws.String(s.config.Bucket),
			Key:    aws.String(key),
		}); err != nil {
			_ = f.Close()
			_ = os.Remove(localPath)
			return err
		}
		return f.Close()
	})
	if err != nil {
		return s.translateError(err, key)
	}
	return nil
}

// Close releases any resources held by the store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

func (s *Store) checkClosed() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return bucketsample.ErrStoreClosed
	}
	return nil
}

// translateError converts S3 errors to bucketsample errors.
func (s *Store) translateError(err error, key string) error {
	if err == nil {
		return nil
	}

	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return bucketsample.ErrNotFound
	}

	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return fmt.Errorf("s3: bucket not found: %s", s.config.Bucket)
	}

	var apiErr interface{ ErrorCode() string }
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return bucketsample.ErrNotFound
		}
	}

	return fmt.Errorf("s3: %s: %w", key, err)
}

// objectIterator pulls listing pages on demand.
type objectIterator struct {
	ctx       context.Context
	store     *Store
	prefix    string
	paginator *s3.ListObjectsV2Paginator
	page      []bucketsample.Object
	pos       int
	count     int
	pages     int
	done      bool
	err       error
}

func (it *objectIterator) Next() (bucketsample.Object, error) {
	if it.err != nil {
		return bucketsample.Object{}, it.err
	}

	for it.pos >= len(it.page) {
		if it.done || !it.paginator.HasMorePages() {
			it.finish()
			return bucketsample.Object{}, io.EOF
		}

		var page *s3.ListObjectsV2Output
		err := bucketsample.Retry(it.ctx, it.store.retry, func() error {
			var err error
			page, err = it.paginator.NextPage(it.ctx)
			return err
		})
		if err != nil {
			it.err = fmt.Errorf("s3: listing objects: %w", err)
			return bucketsample.Object{}, it.err
		}

		it.pages++
		it.store.logger.Debug("fetched listing page", slog.Int("page", it.pages))

		it.page = it.page[:0]
		it.pos = 0
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			o := bucketsample.Object{Key: *obj.Key}
			if obj.Size != nil {
				o.Size = *obj.Size
			}
			if obj.LastModified != nil {
				o.LastModified = *obj.LastModified
			}
			it.page = append(it.page, o)
		}
		it.count += len(it.page)
	}

	obj := it.page[it.pos]
	it.pos++
	return obj, nil
}

func (it *objectIterator) finish() {
	if it.done {
		return
	}
	it.done = true
	if it.count > 0 {
		it.store.logger.Info("listed bucket objects",
			slog.Int("objects", it.count),
			slog.String("bucket", it.store.config.Bucket),
		)
	} else {
		it.store.logger.Warn("found no objects for bucket and prefix",
			slog.String("bucket", it.store.config.Bucket),
			slog.String("prefix", it.prefix),
		)
	}
}

// Ensure Store implements bucketsample.Store
var _ bucketsample.Store = (*Store)(nil)
