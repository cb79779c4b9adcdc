package filestorage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Adapter keeps uploaded documents in a local directory. Workers must share
// the directory with the HTTP server.
type Adapter struct {
	dir    string
	logger *zap.Logger
}

type Option func(*Adapter)

func WithDir(dir string) Option {
	return func(a *Adapter) {
		a.dir = dir
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

func New(opts ...Option) (*Adapter, error) {
	a := &Adapter{
		dir:    os.TempDir(),
		logger: zap.NewNop(),
	}

	for _, o := range opts {
		o(a)
	}

	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return nil, err
	}

	a.logger.Sugar().With(
		"directory", a.dir,
	).Info("init filestorage adapter")

	return a, nil
}

func (a *Adapter) Remote() bool {
	return false
}

// Write stores contents under the base name of name and returns the path.
func (a *Adapter) Write(ctx context.Context, name string, contents io.Reader) (string, error) {
	location := filepath.Join(a.dir, filepath.Base(name))

	f, err := os.Create(location)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, contents); err != nil {
		return "", fmt.Errorf("writing %s: %w", location, err)
	}

	if err := f.Sync(); err != nil {
		return "", err
	}

	return location, nil
}

func (a *Adapter) Read(ctx context.Context, location string) (io.ReadCloser, error) {
	return os.Open(location)
}

// Delete removes the file. A file that is already gone is not an error.
func (a *Adapter) Delete(ctx context.Context, location string) error {
	if err := os.Remove(location); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
