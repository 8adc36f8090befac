package main

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/hpcprof/cct/internal/profile"
	"github.com/hpcprof/cct/internal/storageprovider"
	"github.com/hpcprof/cct/internal/storageutil"
)

type loadResult struct {
	name    string
	profile *profile.Profile
	err     error
}

// expand replaces every target ending in "/" with the objects stored below
// it.
func expand(ctx context.Context, bucket *storageprovider.Blob, targets []string) ([]string, error) {
	var names []string
	for _, t := range targets {
		if !strings.HasSuffix(t, "/") {
			names = append(names, t)
			continue
		}
		objects, err := bucket.List(ctx, t)
		if err != nil {
			return nil, err
		}
		names = append(names, objects...)
	}
	return names, nil
}

// loadProfile reads name from the local filesystem when such a file
// exists, and from the bucket otherwise.
func loadProfile(ctx context.Context, bucket storageutil.ObjectHandler, name string) (*profile.Profile, error) {
	f, err := os.Open(name)
	if err == nil {
		defer f.Close()
		r, err := storageutil.MaybeDecompress(f)
		if err != nil {
			return nil, err
		}
		return profile.Load(r, name)
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	var p *profile.Profile
	err = storageutil.ReadCompressed(ctx, bucket, name, func(r io.Reader) error {
		var err error
		p, err = profile.Load(r, name)
		return err
	})
	return p, err
}

// loadAll loads names with workers goroutines and returns the results in
// the order of names.
func loadAll(ctx context.Context, bucket storageutil.ObjectHandler, names []string, workers int) []loadResult {
	if workers < 1 {
		workers = 1
	}
	results := make([]loadResult, len(names))
	indexes := make(chan int, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				p, err := loadProfile(ctx, bucket, names[i])
				results[i] = loadResult{name: names[i], profile: p, err: err}
			}
		}()
	}
	for i := range names {
		indexes <- i
	}
	close(indexes)
	wg.Wait()
	return results
}
