package main

import (
	"github.com/ilyakaznacheev/cleanenv"

	"github.com/hpcprof/cct/internal/cct"
)

type ServiceConfig struct {
	Environment string `env:"SENTRY_ENVIRONMENT" env-default:"development"`
	SentryDSN   string `env:"SENTRY_DSN"`
	LogLevel    string `env:"CCT_LOG_LEVEL" env-default:"info"`

	BucketURL string `env:"CCT_BUCKET_URL" env-default:"file:///tmp/cct-profiles"`

	KafkaBrokers []string `env:"CCT_KAFKA_BROKERS" env-separator:","`
	KafkaTopic   string   `env:"CCT_KAFKA_TOPIC" env-default:"cct-profiles"`

	SlabSize        int  `env:"CCT_SLAB_SIZE" env-default:"4096"`
	MaxNodes        int  `env:"CCT_MAX_NODES" env-default:"0"`
	FreeableArenas  bool `env:"CCT_FREEABLE_ARENAS" env-default:"false"`
	RetainRecursion bool `env:"CCT_RETAIN_RECURSION" env-default:"false"`
}

func readConfig() (ServiceConfig, error) {
	var cfg ServiceConfig
	err := cleanenv.ReadEnv(&cfg)
	return cfg, err
}

func (c ServiceConfig) arenaOptions() cct.ArenaOptions {
	return cct.ArenaOptions{
		SlabSize: c.SlabSize,
		MaxNodes: c.MaxNodes,
		Freeable: c.FreeableArenas,
	}
}
