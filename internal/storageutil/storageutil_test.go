package storageutil

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/pierrec/lz4/v4"
)

type memoryHandler struct {
	objects map[string][]byte
}

type memoryWriter struct {
	bytes.Buffer
	name string
	h    *memoryHandler
}

func (w *memoryWriter) Close() error {
	w.h.objects[w.name] = w.Bytes()
	return nil
}

type memoryReader struct {
	*bytes.Reader
}

func (memoryReader) Close() error {
	return nil
}

func (h *memoryHandler) Put(_ context.Context, name string) (io.WriteCloser, error) {
	return &memoryWriter{name: name, h: h}, nil
}

func (h *memoryHandler) Get(_ context.Context, name string) (ReadSizeCloser, error) {
	b, ok := h.objects[name]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return memoryReader{bytes.NewReader(b)}, nil
}

func TestCompressedRoundTrip(t *testing.T) {
	ctx := context.Background()
	h := &memoryHandler{objects: map[string][]byte{}}
	objectName := uuid.New().String()
	originalData := []byte("HPCRUN-profile____02.00l")

	err := CompressedWrite(ctx, h, objectName, func(w io.Writer) error {
		_, err := w.Write(originalData)
		return err
	})
	if err != nil {
		t.Fatalf("we should be able to write: %v", err)
	}

	uncompressedData, err := io.ReadAll(lz4.NewReader(bytes.NewReader(h.objects[objectName])))
	if err != nil {
		t.Fatalf("we should be able to uncompress the data: %v", err)
	}
	if !bytes.Equal(originalData, uncompressedData) {
		t.Fatal("data should be identical")
	}

	var readBack []byte
	err = ReadCompressed(ctx, h, objectName, func(r io.Reader) error {
		readBack, err = io.ReadAll(r)
		return err
	})
	if err != nil {
		t.Fatalf("we should be able to read the object: %v", err)
	}
	if !bytes.Equal(originalData, readBack) {
		t.Fatal("data should be identical")
	}
}

func TestCompressedWriteCallbackError(t *testing.T) {
	h := &memoryHandler{objects: map[string][]byte{}}
	boom := errors.New("boom")
	err := CompressedWrite(context.Background(), h, "p", func(io.Writer) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected the callback error, got %v", err)
	}
}

func TestReadCompressedNotFound(t *testing.T) {
	h := &memoryHandler{objects: map[string][]byte{}}
	err := ReadCompressed(context.Background(), h, "missing", func(io.Reader) error { return nil })
	if !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestMaybeDecompress(t *testing.T) {
	original := "HPCRUN-profile____"
	var compressed bytes.Buffer
	zw := lz4.NewWriter(&compressed)
	_, _ = zw.Write([]byte(original))
	if err := zw.Close(); err != nil {
		t.Fatalf("we should be able to close the writer: %v", err)
	}

	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{name: "compressed", input: compressed.Bytes(), want: original},
		{name: "plain", input: []byte(original), want: original},
		{name: "short", input: []byte("HP"), want: "HP"},
		{name: "empty", input: nil, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := MaybeDecompress(bytes.NewReader(tt.input))
			if err != nil {
				t.Fatal(err)
			}
			var sb strings.Builder
			if _, err := io.Copy(&sb, r); err != nil {
				t.Fatal(err)
			}
			if sb.String() != tt.want {
				t.Fatalf("got %q, want %q", sb.String(), tt.want)
			}
		})
	}
}
