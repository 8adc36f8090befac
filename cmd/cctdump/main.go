package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/hpcprof/cct/internal/logutil"
	"github.com/hpcprof/cct/internal/metrics"
	"github.com/hpcprof/cct/internal/profile"
	"github.com/hpcprof/cct/internal/speedscope"
	"github.com/hpcprof/cct/internal/storageprovider"
)

var release string

func main() {
	args := os.Args[1:]
	if len(args) < 2 {
		fmt.Println("./cctdump <text|json|summary|speedscope|functions> <file, object name or prefix/> ...") // nolint
		return
	}
	mode, targets := args[0], args[1:]
	switch mode {
	case "text", "json", "summary", "speedscope", "functions":
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", mode)
		os.Exit(2)
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

	names, err := expand(ctx, bucket, targets)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal().Err(err).Msg("error listing profiles")
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	failed := false
	functions := metrics.NewAggregator(cfg.FunctionsMetric, cfg.MaxUniqueFunctions, cfg.MaxNumOfExamples)
	for _, r := range loadAll(ctx, bucket, names, cfg.Workers) {
		if r.err != nil {
			sentry.CaptureException(r.err)
			log.Error().Err(r.err).Str("profile", r.name).Msg("error loading profile")
			failed = true
			continue
		}
		err = nil
		switch mode {
		case "text":
			printText(out, r.profile)
		case "json":
			err = profile.WriteJSON(out, r.profile)
		case "summary":
			printSummary(out, r.profile)
		case "functions":
			functions.AddProfile(r.profile)
		case "speedscope":
			err = json.NewEncoder(out).Encode(speedscope.FromProfile(r.profile, cfg.SpeedscopeMetric))
		}
		if err != nil {
			log.Error().Err(err).Str("profile", r.name).Msg("error writing output")
			failed = true
		}
	}
	if mode == "functions" {
		if err := json.NewEncoder(out).Encode(functions.ToMetrics()); err != nil {
			log.Error().Err(err).Msg("error writing output")
			failed = true
		}
	}
	if failed {
		out.Flush()
		os.Exit(1)
	}
}
