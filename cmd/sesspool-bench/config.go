package main

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// benchConfig holds runtime configuration of the load generator.
// Pool limits are read separately with sesspool.NewConfigFromEnv.
type benchConfig struct {
	NATS    natsSection    `mapstructure:"nats"`
	Load    loadSection    `mapstructure:"load"`
	Metrics metricsSection `mapstructure:"metrics"`
	Logging loggingSection `mapstructure:"logging"`
}

type natsSection struct {
	URL            string        `mapstructure:"url"`
	Name           string        `mapstructure:"name"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
}

type loadSection struct {
	Workers        int           `mapstructure:"workers"`
	Rate           float64       `mapstructure:"rate"`
	Burst          int           `mapstructure:"burst"`
	Duration       time.Duration `mapstructure:"duration"`
	Subject        string        `mapstructure:"subject"`
	PayloadSize    int           `mapstructure:"payload_size"`
	Transacted     bool          `mapstructure:"transacted"`
	ReportInterval time.Duration `mapstructure:"report_interval"`
}

type metricsSection struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
	Endpoint   string `mapstructure:"endpoint"`
}

type loggingSection struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// loadConfig reads configuration from the optional sesspool-bench.{yaml,toml,json} file
// and SESSPOOL_* environment variables (e.g. SESSPOOL_LOAD_WORKERS).
func loadConfig() (benchConfig, error) {
	v := viper.New()

	v.SetDefault("nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("nats.name", "sesspool-bench")
	v.SetDefault("nats.connect_timeout", 2*time.Second)
	v.SetDefault("nats.max_reconnects", 60)

	v.SetDefault("load.workers", 16)
	v.SetDefault("load.rate", 1000.0)
	v.SetDefault("load.burst", 50)
	v.SetDefault("load.duration", time.Duration(0))
	v.SetDefault("load.subject", "sesspool.bench")
	v.SetDefault("load.payload_size", 128)
	v.SetDefault("load.transacted", false)
	v.SetDefault("load.report_interval", 10*time.Second)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.listen_addr", ":9097")
	v.SetDefault("metrics.endpoint", "/metrics")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)

	v.SetConfigName("sesspool-bench")
	v.AddConfigPath(".")
	v.SetEnvPrefix("SESSPOOL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return benchConfig{}, errors.Wrap(err, "can't read config file")
		}
	}

	var cfg benchConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return benchConfig{}, errors.Wrap(err, "config unmarshal")
	}

	if cfg.Load.Workers <= 0 {
		return benchConfig{}, errors.Errorf("at least one worker is required, got %d", cfg.Load.Workers)
	}

	if cfg.Load.Burst <= 0 {
		cfg.Load.Burst = 1
	}

	return cfg, nil
}
