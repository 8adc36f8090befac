package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog/log"

	"github.com/hpcprof/cct/internal/collapsed"
	"github.com/hpcprof/cct/internal/errorutil"
	"github.com/hpcprof/cct/internal/hpcfmt"
	"github.com/hpcprof/cct/internal/logutil"
	"github.com/hpcprof/cct/internal/metric"
	"github.com/hpcprof/cct/internal/notify"
	"github.com/hpcprof/cct/internal/session"
	"github.com/hpcprof/cct/internal/storageprovider"
)

var release string

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		fmt.Println("./cctrecord <folded stacks file or -> ...") // nolint
		return
	}

	cfg, err := readConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading config: %v\n", err)
		os.Exit(1)
	}
	logutil.ConfigureLogger(logutil.ParseLevel(cfg.LogLevel))

	err = sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.SentryDSN,
		Environment: cfg.Environment,
		Release:     release,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("can't initialize sentry")
	}
	defer sentry.Flush(5 * time.Second)

	ctx := context.Background()
	bucket, err := storageprovider.Open(ctx, cfg.BucketURL)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal().Err(err).Str("bucket_url", cfg.BucketURL).Msg("error opening bucket")
	}
	defer bucket.Close()

	var notifier session.Notifier
	if len(cfg.KafkaBrokers) > 0 {
		w := notify.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() {
			if err := w.Close(); err != nil {
				sentry.CaptureException(err)
			}
		}()
		notifier = notify.NewKafka(w)
	}

	s := session.New(bucket, notifier, session.Options{
		Arena:           cfg.arenaOptions(),
		RetainRecursion: cfg.RetainRecursion,
		Values: []hpcfmt.NameValue{
			{Name: "program-name", Value: "cctrecord"},
		},
	})
	defer s.Close()

	samples, err := s.Registry().Register(metric.Descriptor{
		Name:        "samples",
		Description: "folded stack sample count",
		Kind:        metric.KindInt,
		Period:      1,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("error registering metric")
	}

	parser := collapsed.NewParser(s.Modules())
	for _, name := range args {
		if err := recordFile(s, parser, samples, name); err != nil {
			sentry.CaptureException(err)
			log.Fatal().Err(err).Str("input", name).Msg("error recording samples")
		}
	}

	if err := s.Flush(ctx); err != nil {
		sentry.CaptureException(err)
		log.Error().Err(err).Msg("error flushing session")
		os.Exit(1)
	}
	for _, t := range s.Threads() {
		fmt.Println(s.ObjectName(t)) // nolint
	}
}

// recordFile records the stacks of one input as a thread of s.
func recordFile(s *session.Session, parser *collapsed.Parser, metricID int, name string) error {
	var r io.Reader = os.Stdin
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	t, err := s.NewThread(nil)
	if err != nil {
		return err
	}
	err = parser.Parse(r, func(smp collapsed.Sample) error {
		_, err := t.Sample(smp.Frames, metricID, metric.IntValue(smp.Count))
		if errors.Is(err, errorutil.ErrSampleDropped) {
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	log.Info().
		Str("input", name).
		Int("thread_id", t.ID).
		Uint64("samples", t.Samples()).
		Uint64("dropped_samples", t.Dropped()).
		Msg("samples recorded")
	return nil
}
