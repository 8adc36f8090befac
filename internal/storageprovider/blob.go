package storageprovider

import (
	"context"
	"io"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	"gocloud.dev/gcerrors"

	"github.com/hpcprof/cct/internal/storageutil"
)

// Blob implements storageutil.ObjectHandler interface to handle object read and writes.
type Blob struct {
	Bucket *blob.Bucket
}

// Open opens the bucket at url, for instance file:///var/profiles,
// mem:// or gs://bucket.
func Open(ctx context.Context, url string) (*Blob, error) {
	b, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, err
	}
	return &Blob{Bucket: b}, nil
}

// Put writes a file to the storage provider with name being the path.
func (b *Blob) Put(ctx context.Context, name string) (io.WriteCloser, error) {
	return b.Bucket.NewWriter(ctx, name, &blob.WriterOptions{
		ContentType: "application/octet-stream",
	})
}

// Get reads a file from the storage provider with name being the path.
// If a key was not found, it will return ErrObjectNotFound.
func (b *Blob) Get(ctx context.Context, name string) (storageutil.ReadSizeCloser, error) {
	r, err := b.Bucket.NewReader(ctx, name, nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, storageutil.ErrObjectNotFound
		}
		return nil, err
	}
	return r, nil
}

// List returns the names of the objects below prefix.
func (b *Blob) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	it := b.Bucket.List(&blob.ListOptions{Prefix: prefix})
	for {
		obj, err := it.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if !obj.IsDir {
			names = append(names, obj.Key)
		}
	}
	return names, nil
}

func (b *Blob) Close() error {
	return b.Bucket.Close()
}
