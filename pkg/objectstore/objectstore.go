package objectstore

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/go-faster/errors"

	"github.com/DFE-Digital/trs-workforce/pkg/configuration"
)

var (
	ErrNotFound   = errors.New("object not found")
	ErrInvalidKey = errors.New("invalid object key")
)

// OpError reports a failed store call.
type OpError struct {
	Backend string
	Op      string
	Key     string
	Err     error
}

func (e *OpError) Error() string {
	return e.Backend + " " + e.Op + " " + e.Key + ": " + e.Err.Error()
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// Store is the blob storage capability the pipeline consumes.
type Store interface {
	// Open returns a reader over the object. The caller must close it.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// List returns the keys under prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
	Move(ctx context.Context, src, dst string) error
}

// New builds the backend selected by the storage configuration.
func New(ctx context.Context, opts configuration.StorageOptions) (Store, error) {
	switch opts.Backend {
	case configuration.StorageBackendLocal:
		return NewLocalStore(opts.LocalRoot), nil
	case configuration.StorageBackendMinio, "":
		return NewMinioStore(ctx, MinioOptions{
			Endpoint:  opts.Endpoint,
			AccessKey: opts.AccessKey,
			SecretKey: opts.SecretKey,
			UseSSL:    opts.UseSSL,
			Bucket:    opts.Bucket,
		})
	default:
		return nil, errors.Errorf("unsupported storage backend %q", opts.Backend)
	}
}

// Join builds an object key from slash separated parts.
func Join(parts ...string) string {
	return strings.TrimPrefix(path.Join(parts...), "/")
}

func cleanKey(key string) (string, error) {
	k := strings.TrimPrefix(path.Clean("/"+strings.TrimSpace(key)), "/")
	if k == "" || k == "." {
		return "", errors.Wrapf(ErrInvalidKey, "%q", key)
	}
	return k, nil
}
