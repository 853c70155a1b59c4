package natspool

import (
	"time"

	"github.com/derElektrobesen/sesspool"
	"github.com/nats-io/nats.go"
)

const (
	// DefaultConnectTimeout declares default value for ConnectTimeout config variable
	DefaultConnectTimeout = 2 * time.Second

	// DefaultReconnectWait declares default value for ReconnectWait config variable
	DefaultReconnectWait = 2 * time.Second

	// DefaultPingInterval declares default value for PingInterval config variable
	DefaultPingInterval = 2 * time.Minute

	DefaultMaxReconnects       = 60
	DefaultMaxPingsOutstanding = 2
)

// Config describes a configuration of the NATS connections pool.
type Config struct {
	// PoolConfig describes a configuration for protocol-independent connections pool
	PoolConfig *sesspool.Config

	// URL is a comma separated list of NATS servers. nats.DefaultURL is used if not set.
	URL string

	// Name is sent to the server to identify the connections in monitoring.
	Name string

	// ConnectTimeout bounds one dial attempt. Context deadline passed to the pool shortens it.
	ConnectTimeout time.Duration

	// ReconnectWait, MaxReconnects, PingInterval and MaxPingsOutstanding are passed to nats.go as is.
	// Connection is reported as failed to the pool when nats.go gives up reconnecting.
	ReconnectWait       time.Duration
	MaxReconnects       int
	PingInterval        time.Duration
	MaxPingsOutstanding int
}

// FlagsParser extends sesspool.FlagsParser with string flags. flag.FlagSet satisfies it.
type FlagsParser interface {
	sesspool.FlagsParser
	StringVar(p *string, name string, value string, usage string)
}

// NewConfig creates new configuration for the NATS connections pool from flags parser passed.
func NewConfig(p FlagsParser) *Config {
	c := &Config{
		PoolConfig: sesspool.NewConfig(p),
	}

	p.StringVar(&c.URL, "nats_url", nats.DefaultURL, "NATS servers to connect to")
	p.StringVar(&c.Name, "nats_connection_name", "", "Connection name reported to NATS server")

	p.DurationVar(&c.ConnectTimeout, "nats_connect_timeout", DefaultConnectTimeout,
		"Timeout to open one NATS connection")
	p.DurationVar(&c.ReconnectWait, "nats_reconnect_wait", DefaultReconnectWait,
		"Time to wait between reconnection attempts")
	p.DurationVar(&c.PingInterval, "nats_ping_interval", DefaultPingInterval,
		"Interval between client pings")

	p.IntVar(&c.MaxReconnects, "nats_max_reconnects", DefaultMaxReconnects,
		"Number of reconnection attempts before connection is reported as broken (-1 for infinite)")
	p.IntVar(&c.MaxPingsOutstanding, "nats_max_pings_outstanding", DefaultMaxPingsOutstanding,
		"Number of unanswered pings before connection is considered stale")

	return c
}

// WithDefaults returns a copy of the base configuration object with filled with defaults not set config variables.
func (c Config) WithDefaults() Config {
	if c.PoolConfig == nil {
		c.PoolConfig = &sesspool.Config{}
	}

	baseCfg := c.PoolConfig.WithDefaults()
	c.PoolConfig = &baseCfg

	if c.URL == "" {
		c.URL = nats.DefaultURL
	}

	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}

	if c.ReconnectWait == 0 {
		c.ReconnectWait = DefaultReconnectWait
	}

	if c.PingInterval == 0 {
		c.PingInterval = DefaultPingInterval
	}

	if c.MaxReconnects == 0 {
		c.MaxReconnects = DefaultMaxReconnects
	}

	if c.MaxPingsOutstanding == 0 {
		c.MaxPingsOutstanding = DefaultMaxPingsOutstanding
	}

	return c
}

func (c Config) options(timeout time.Duration) []nats.Option {
	opts := []nats.Option{
		nats.Timeout(timeout),
		nats.ReconnectWait(c.ReconnectWait),
		nats.MaxReconnects(c.MaxReconnects),
		nats.PingInterval(c.PingInterval),
		nats.MaxPingsOutstanding(c.MaxPingsOutstanding),
	}

	if c.Name != "" {
		opts = append(opts, nats.Name(c.Name))
	}

	return opts
}
