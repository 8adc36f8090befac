package main

import "github.com/ilyakaznacheev/cleanenv"

type ServiceConfig struct {
	Environment string `env:"SENTRY_ENVIRONMENT" env-default:"development"`
	SentryDSN   string `env:"SENTRY_DSN"`
	LogLevel    string `env:"CCT_LOG_LEVEL" env-default:"warn"`

	BucketURL string `env:"CCT_BUCKET_URL" env-default:"file:///tmp/cct-profiles"`
	Workers   int    `env:"CCT_DUMP_WORKERS" env-default:"8"`

	SpeedscopeMetric string `env:"CCT_SPEEDSCOPE_METRIC" env-default:"samples"`

	FunctionsMetric    string `env:"CCT_FUNCTIONS_METRIC" env-default:"samples"`
	MaxUniqueFunctions uint   `env:"CCT_MAX_UNIQUE_FUNCTIONS" env-default:"100"`
	MaxNumOfExamples   uint   `env:"CCT_MAX_EXAMPLES" env-default:"5"`
}

func readConfig() (ServiceConfig, error) {
	var cfg ServiceConfig
	err := cleanenv.ReadEnv(&cfg)
	return cfg, err
}
