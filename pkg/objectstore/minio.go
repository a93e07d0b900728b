package objectstore

import (
	"context"
	"io"
	"sort"

	"github.com/go-faster/errors"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const backendMinio = "minio"

type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore connects to an S3 compatible endpoint and makes sure the bucket exists.
func NewMinioStore(ctx context.Context, opts MinioOptions) (*MinioStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "minio client")
	}
	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, errors.Wrapf(err, "check bucket %s", opts.Bucket)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, errors.Wrapf(err, "make bucket %s", opts.Bucket)
		}
	}
	return &MinioStore{client: client, bucket: opts.Bucket}, nil
}

func (s *MinioStore) Open(ctx context.Context, key string) (_ io.ReadCloser, err error) {
	defer observe(backendMinio, "open", key)(&err)
	k, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, k, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "get %s", k)
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, errors.Wrapf(ErrNotFound, "%s", k)
		}
		return nil, errors.Wrapf(err, "stat %s", k)
	}
	return obj, nil
}

func (s *MinioStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (err error) {
	defer observe(backendMinio, "put", key)(&err)
	k, err := cleanKey(key)
	if err != nil {
		return err
	}
	info, err := s.client.PutObject(ctx, s.bucket, k, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return errors.Wrapf(err, "put %s", k)
	}
	metricsSingleton().bytesWritten.WithLabelValues(backendMinio).Add(float64(info.Size))
	return nil
}

func (s *MinioStore) List(ctx context.Context, prefix string) (_ []string, err error) {
	defer observe(backendMinio, "list", prefix)(&err)
	return collectKeys(ctx, prefix, func(ctx context.Context) <-chan minio.ObjectInfo {
		return s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true})
	})
}

// collectKeys drains a listing into sorted keys. The listing context is cancelled on
// return so the producer goroutine exits when the loop stops early on an error.
func collectKeys(ctx context.Context, prefix string, list func(context.Context) <-chan minio.ObjectInfo) ([]string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var keys []string
	for obj := range list(ctx) {
		if obj.Err != nil {
			return nil, errors.Wrapf(obj.Err, "list %s", prefix)
		}
		keys = append(keys, obj.Key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *MinioStore) Move(ctx context.Context, src, dst string) (err error) {
	defer observe(backendMinio, "move", src)(&err)
	srcKey, err := cleanKey(src)
	if err != nil {
		return err
	}
	dstKey, err := cleanKey(dst)
	if err != nil {
		return err
	}
	if _, err := s.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: s.bucket, Object: dstKey},
		minio.CopySrcOptions{Bucket: s.bucket, Object: srcKey},
	); err != nil {
		return errors.Wrapf(err, "copy %s to %s", srcKey, dstKey)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, srcKey, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrapf(err, "remove %s", srcKey)
	}
	return nil
}
