// Package s3store keeps page content in an S3-compatible bucket.
package s3store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	domainpages "pagebin/app/internal/domain/pages"
)

const (
	objectSuffix      = ".html"
	objectContentType = "text/html; charset=utf-8"
)

// objectAPI is the subset of the S3 client used by BlobStore.
type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Options configures the S3 blob store.
type Options struct {
	Bucket   string
	Region   string
	Endpoint string
	Prefix   string
	Logger   *logrus.Logger
}

// BlobStore stores each page as <prefix><slug>.html.
type BlobStore struct {
	client objectAPI
	bucket string
	prefix string
	logger *logrus.Logger
}

var _ domainpages.BlobStore = (*BlobStore)(nil)

// New loads the default AWS configuration and builds a client. A non-empty
// endpoint switches to path-style addressing for MinIO and similar servers.
func New(ctx context.Context, opts Options) (*BlobStore, error) {
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, eris.New("s3 bucket is required")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, eris.Wrap(err, "loading AWS config")
	}

	var s3opts []func(*s3.Options)
	if opts.Endpoint != "" {
		s3opts = append(s3opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		})
	}

	return newWithClient(s3.NewFromConfig(cfg, s3opts...), opts)
}

func newWithClient(client objectAPI, opts Options) (*BlobStore, error) {
	if client == nil {
		return nil, eris.New("s3 client is required")
	}
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, eris.New("s3 bucket is required")
	}

	prefix := strings.TrimLeft(opts.Prefix, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	return &BlobStore{
		client: client,
		bucket: opts.Bucket,
		prefix: prefix,
		logger: opts.Logger,
	}, nil
}

// Put uploads content for slug.
func (s *BlobStore) Put(ctx context.Context, slug string, content []byte) error {
	key := s.key(slug)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(objectContentType),
	})
	if err != nil {
		s.logError(key, err, "s3 put object failed")
		return eris.Wrapf(err, "s3 put object %s", key)
	}
	return nil
}

// Get downloads the content for slug.
func (s *BlobStore) Get(ctx context.Context, slug string) ([]byte, error) {
	key := s.key(slug)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isMissing(err) {
			return nil, eris.Wrapf(domainpages.ErrBlobNotFound, "s3 object %s", key)
		}
		s.logError(key, err, "s3 get object failed")
		return nil, eris.Wrapf(err, "s3 get object %s", key)
	}
	defer out.Body.Close()

	content, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "reading s3 object %s", key)
	}
	return content, nil
}

// Delete removes the object for slug. S3 deletes are idempotent, so the
// object is checked first to report a missing blob.
func (s *BlobStore) Delete(ctx context.Context, slug string) error {
	exists, err := s.Exists(ctx, slug)
	if err != nil {
		return err
	}
	key := s.key(slug)
	if !exists {
		return eris.Wrapf(domainpages.ErrBlobNotFound, "s3 object %s", key)
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		s.logError(key, err, "s3 delete object failed")
		return eris.Wrapf(err, "s3 delete object %s", key)
	}
	return nil
}

// Exists reports whether an object is stored for slug.
func (s *BlobStore) Exists(ctx context.Context, slug string) (bool, error) {
	key := s.key(slug)
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isMissing(err) {
			return false, nil
		}
		s.logError(key, err, "s3 head object failed")
		return false, eris.Wrapf(err, "s3 head object %s", key)
	}
	return true, nil
}

func (s *BlobStore) key(slug string) string {
	return s.prefix + strings.TrimSpace(slug) + objectSuffix
}

func (s *BlobStore) logError(key string, err error, message string) {
	if s.logger == nil {
		return
	}
	s.logger.WithFields(logrus.Fields{
		"component": "pages.s3",
		"bucket":    s.bucket,
		"key":       key,
		"error":     err.Error(),
	}).Error(message)
}

func isMissing(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	return errors.As(err, &notFound)
}
