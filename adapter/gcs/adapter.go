package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
)

const scheme = "gs://"

// Adapter stores uploaded documents in a Google Cloud Storage bucket so
// the HTTP server and workers don't need a shared disk.
type Adapter struct {
	client *storage.Client
	bucket string
	prefix string
	logger *zap.Logger
}

type Option func(*Adapter)

// WithPrefix puts objects under a folder like prefix inside the bucket.
func WithPrefix(prefix string) Option {
	return func(a *Adapter) {
		a.prefix = strings.Trim(prefix, "/")
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

func New(client *storage.Client, bucket string, options ...Option) *Adapter {
	a := &Adapter{
		client: client,
		bucket: bucket,
		logger: zap.NewNop(),
	}

	for _, o := range options {
		o(a)
	}

	a.logger.Sugar().With(
		"bucket", a.bucket,
		"prefix", a.prefix,
	).Info("init gcs adapter")

	return a
}

func (a *Adapter) Remote() bool {
	return true
}

// Write uploads contents and returns a gs://bucket/object location.
func (a *Adapter) Write(ctx context.Context, name string, contents io.Reader) (string, error) {
	object := path.Join(a.prefix, path.Base(name))

	w := a.client.Bucket(a.bucket).Object(object).NewWriter(ctx)
	w.ContentType = "application/pdf"

	if _, err := io.Copy(w, contents); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("uploading %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("uploading %s: %w", object, err)
	}

	return scheme + a.bucket + "/" + object, nil
}

func (a *Adapter) Read(ctx context.Context, location string) (io.ReadCloser, error) {
	bucket, object, err := parseLocation(location)
	if err != nil {
		return nil, err
	}

	r, err := a.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", location, err)
	}

	return r, nil
}

// Delete removes the object. An object that is already gone is not an error.
func (a *Adapter) Delete(ctx context.Context, location string) error {
	bucket, object, err := parseLocation(location)
	if err != nil {
		return err
	}

	if err := a.client.Bucket(bucket).Object(object).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("deleting %s: %w", location, err)
	}

	return nil
}

func parseLocation(location string) (string, string, error) {
	rest, ok := strings.CutPrefix(location, scheme)
	if !ok {
		return "", "", fmt.Errorf("invalid gcs location: %s", location)
	}
	bucket, object, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("invalid gcs location: %s", location)
	}
	return bucket, object, nil
}
