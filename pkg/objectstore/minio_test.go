package objectstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/require"
)

// listing mimics the minio producer: it sends objects until the context is done.
func listing(objs []minio.ObjectInfo, stopped chan<- struct{}) func(context.Context) <-chan minio.ObjectInfo {
	return func(ctx context.Context) <-chan minio.ObjectInfo {
		ch := make(chan minio.ObjectInfo)
		go func() {
			defer close(stopped)
			defer close(ch)
			for _, o := range objs {
				select {
				case ch <- o:
				case <-ctx.Done():
					return
				}
			}
		}()
		return ch
	}
}

func TestCollectKeys_Sorted(t *testing.T) {
	stopped := make(chan struct{})
	keys, err := collectKeys(context.Background(), "tps/pending/", listing([]minio.ObjectInfo{
		{Key: "tps/pending/b.csv"},
		{Key: "tps/pending/a.csv"},
	}, stopped))

	require.NoError(t, err)
	require.Equal(t, []string{"tps/pending/a.csv", "tps/pending/b.csv"}, keys)
	<-stopped
}

func TestCollectKeys_ErrorStopsProducer(t *testing.T) {
	denied := errors.New("access denied")
	stopped := make(chan struct{})
	keys, err := collectKeys(context.Background(), "tps/pending/", listing([]minio.ObjectInfo{
		{Key: "tps/pending/a.csv"},
		{Err: denied},
		{Key: "tps/pending/b.csv"},
		{Key: "tps/pending/c.csv"},
	}, stopped))

	require.ErrorIs(t, err, denied)
	require.Nil(t, keys)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("listing goroutine still running after collectKeys returned")
	}
}
