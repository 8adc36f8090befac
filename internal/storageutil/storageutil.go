package storageutil

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"

	"github.com/pierrec/lz4/v4"
)

// ErrObjectNotFound indicates an object was not found.
var ErrObjectNotFound = errors.New("object not found")

// Timeout bounds a single object read or write.
var Timeout = 30 * time.Second

type ReadSizeCloser interface {
	io.Reader
	io.Closer
	Size() int64
}

// ObjectHandler provides common interface for multiple storage providers.
type ObjectHandler interface {
	// Put writes a file to the storage provider with name being the path.
	Put(ctx context.Context, name string) (io.WriteCloser, error)
	// Get reads a file from the storage provider with name being the path.
	// If a key was not found, it will return ErrObjectNotFound.
	Get(ctx context.Context, name string) (ReadSizeCloser, error)
}

// CompressedWrite stores what write produces as objectName, lz4 compressed.
func CompressedWrite(ctx context.Context, b ObjectHandler, objectName string, write func(w io.Writer) error) error {
	ctx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()

	ow, err := b.Put(ctx, objectName)
	if err != nil {
		return err
	}
	zw := lz4.NewWriter(ow)
	_ = zw.Apply(lz4.CompressionLevelOption(lz4.Level9))
	err = write(zw)
	if err != nil {
		_ = ow.Close()
		return err
	}
	err = zw.Close()
	if err != nil {
		_ = ow.Close()
		return err
	}
	return ow.Close()
}

// ReadCompressed decompresses objectName and hands it to read.
func ReadCompressed(ctx context.Context, b ObjectHandler, objectName string, read func(r io.Reader) error) error {
	ctx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()

	or, err := b.Get(ctx, objectName)
	if err != nil {
		return err
	}
	defer or.Close()
	return read(lz4.NewReader(or))
}

// lz4Magic opens every lz4 frame.
var lz4Magic = []byte{0x04, 0x22, 0x4d, 0x18}

// MaybeDecompress returns a reader over the decompressed content of r when
// r holds an lz4 frame, and over r itself otherwise.
func MaybeDecompress(r io.Reader) (io.Reader, error) {
	head := make([]byte, len(lz4Magic))
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	head = head[:n]
	full := io.MultiReader(bytes.NewReader(head), r)
	if bytes.Equal(head, lz4Magic) {
		return lz4.NewReader(full), nil
	}
	return full, nil
}
