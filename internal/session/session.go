package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hpcprof/cct/internal/cct"
	"github.com/hpcprof/cct/internal/errorutil"
	"github.com/hpcprof/cct/internal/hpcfmt"
	"github.com/hpcprof/cct/internal/metric"
	"github.com/hpcprof/cct/internal/notify"
	"github.com/hpcprof/cct/internal/profile"
	"github.com/hpcprof/cct/internal/storageutil"
)

type (
	// Notifier is told about every profile object a flush writes.
	Notifier interface {
		Notify(ctx context.Context, m notify.ProfileMessage) error
	}

	Options struct {
		Arena cct.ArenaOptions
		// FirstID is the first persistent id handed out; 0 means
		// cct.DefaultFirstID.
		FirstID         int32
		RetainRecursion bool
		LogicalUnwind   bool
		// Values are copied into the header of every profile.
		Values []hpcfmt.NameValue
	}

	// Session is one profiled process: the persistent id counter, metric
	// registry and load map shared by all of its threads.
	Session struct {
		ID string

		opts     Options
		ids      *cct.IDGenerator
		registry *metric.Registry
		modules  *hpcfmt.LoadMap
		storage  storageutil.ObjectHandler
		notifier Notifier
		logger   zerolog.Logger

		mu      sync.Mutex
		threads []*Thread
		closed  bool
	}

	// Thread holds the trees and metrics of one sampled thread. Sample may
	// only be called by the goroutine that owns the thread.
	Thread struct {
		ID int

		session *Session
		bundle  *cct.Bundle
		metrics *metric.Table
		samples uint64
		dropped uint64
	}
)

// New returns a session storing profiles through storage. notifier may be
// nil.
func New(storage storageutil.ObjectHandler, notifier Notifier, opts Options) *Session {
	first := opts.FirstID
	if first == 0 {
		first = cct.DefaultFirstID
	}
	id := uuid.New().String()
	return &Session{
		ID:       id,
		opts:     opts,
		ids:      cct.NewIDGenerator(first),
		registry: metric.NewRegistry(),
		modules:  hpcfmt.NewLoadMap(),
		storage:  storage,
		notifier: notifier,
		logger:   log.With().Str("session_id", id).Logger(),
	}
}

func (s *Session) Registry() *metric.Registry {
	return s.registry
}

func (s *Session) Modules() *hpcfmt.LoadMap {
	return s.modules
}

// NewThread creates a thread. A non-nil creator, captured from the
// creating thread, becomes the calling context of the new thread's tree.
func (s *Session) NewThread(creator *cct.CreationContext) (*Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.New("session: closed")
	}
	tree := cct.NewTree(cct.NewArena(s.opts.Arena), s.ids)
	bundle, err := cct.NewBundle(tree, creator)
	if err != nil {
		tree.Arena().Release()
		return nil, fmt.Errorf("session: creating thread: %w", err)
	}
	t := &Thread{
		ID:      len(s.threads),
		session: s,
		bundle:  bundle,
		metrics: metric.NewTable(),
	}
	s.threads = append(s.threads, t)
	return t, nil
}

// Threads returns the threads created so far.
func (s *Session) Threads() []*Thread {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Thread(nil), s.threads...)
}

// ObjectName returns the storage path of a thread's profile.
func (s *Session) ObjectName(t *Thread) string {
	return fmt.Sprintf("%s/%d.hpcrun", s.ID, t.ID)
}

// Sample records one complete unwind and adds datum to metric metricID of
// the innermost frame. A sample that does not fit in the arena is dropped
// and reported with errorutil.ErrSampleDropped.
func (t *Thread) Sample(frames []cct.Frame, metricID int, datum metric.Value) (*cct.Node, error) {
	return t.record(frames, false, metricID, datum)
}

// SamplePartial is Sample for an unwind that did not reach the thread
// entry point.
func (t *Thread) SamplePartial(frames []cct.Frame, metricID int, datum metric.Value) (*cct.Node, error) {
	return t.record(frames, true, metricID, datum)
}

func (t *Thread) record(frames []cct.Frame, partial bool, metricID int, datum metric.Value) (*cct.Node, error) {
	n, err := t.bundle.Record(frames, partial, t.session.opts.RetainRecursion)
	if err != nil {
		t.dropped++
		return nil, fmt.Errorf("%w: %w", errorutil.ErrSampleDropped, err)
	}
	t.samples++
	t.session.registry.Update(t.metrics.Reify(n.ID()), metricID, datum)
	return n, nil
}

// CaptureContext copies the calling context at leaf so a thread created
// there can start below it.
func (t *Thread) CaptureContext(leaf *cct.Node) (*cct.CreationContext, error) {
	return cct.CaptureContext(t.session.ids, leaf, t.session.opts.Arena)
}

func (t *Thread) Bundle() *cct.Bundle {
	return t.bundle
}

func (t *Thread) Metrics() *metric.Table {
	return t.metrics
}

func (t *Thread) Samples() uint64 {
	return t.samples
}

func (t *Thread) Dropped() uint64 {
	return t.dropped
}

// Flush writes one profile object per thread and notifies the notifier of
// each. Sampling must have stopped. Failures are logged and returned
// together; a failing thread does not stop the others.
func (s *Session) Flush(ctx context.Context) error {
	descs := s.registry.Freeze()
	modules := s.modules.Modules()
	var errs []error
	for _, t := range s.Threads() {
		if err := s.flushThread(ctx, t, descs, modules); err != nil {
			s.logger.Error().Err(err).Int("thread_id", t.ID).Msg("error writing thread profile")
			errs = append(errs, fmt.Errorf("session: thread %d: %w", t.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Session) header(t *Thread) hpcfmt.Header {
	values := append([]hpcfmt.NameValue(nil), s.opts.Values...)
	values = append(values,
		hpcfmt.NameValue{Name: "session-id", Value: s.ID},
		hpcfmt.NameValue{Name: "thread-id", Value: strconv.Itoa(t.ID)},
	)
	return hpcfmt.Header{Version: hpcfmt.Version, Values: values}
}

func (s *Session) flushThread(ctx context.Context, t *Thread, descs []metric.Descriptor, modules []hpcfmt.LoadModule) error {
	root := t.bundle.Finalize()
	var flags hpcfmt.EpochFlags
	if s.opts.LogicalUnwind {
		flags |= hpcfmt.FlagLogicalUnwind
	}
	name := s.ObjectName(t)
	err := storageutil.CompressedWrite(ctx, s.storage, name, func(w io.Writer) error {
		pw, err := profile.NewWriter(w, s.header(t))
		if err != nil {
			return err
		}
		err = pw.WriteEpoch(profile.Epoch{
			Header: hpcfmt.EpochHeader{
				Flags:                  flags,
				MeasurementGranularity: 1,
				RAToCallsiteOffset:     1,
			},
			Metrics: descs,
			Modules: modules,
			Root:    root,
			Values:  t.metrics,
		})
		if err != nil {
			return err
		}
		return pw.Close()
	})
	if err != nil {
		return err
	}
	nodes := cct.NumNodes(root)
	s.logger.Info().
		Str("object_name", name).
		Int("thread_id", t.ID).
		Int("nodes", nodes).
		Uint64("dropped_samples", t.dropped).
		Msg("profile written")
	if s.notifier == nil {
		return nil
	}
	return s.notifier.Notify(ctx, notify.ProfileMessage{
		SessionID:  s.ID,
		ThreadID:   t.ID,
		ObjectName: name,
		Nodes:      nodes,
		Samples:    t.samples,
		Dropped:    t.dropped,
		Timestamp:  time.Now().Unix(),
	})
}

// Close releases the memory of every thread. Trees must not be used
// afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.threads {
		t.bundle.Release()
	}
	s.threads = nil
	s.closed = true
}
