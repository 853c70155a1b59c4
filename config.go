package sesspool

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

const (
	DefMaxConnections           = 1
	DefMaxSessionsPerConnection = 500
	DefInitBackoffInterval      = 100 * time.Millisecond
	DefMaxBackoffInterval       = 30 * time.Second

	// UnlimitedSessions disables session slots accounting for every connection.
	// Zero MaxSessionsPerConnection means the same.
	UnlimitedSessions = -1
)

// Config holds the pool configuration.
//
// The configuration is sealed when the pool is used for the first time: see ConnPool setters.
type Config struct {
	// MaxConnections declares maximum number of raw connections opened by the pool.
	// When all of them are opened, the pool hands out existing connections in round-robin order.
	//
	// Default is DefMaxConnections.
	MaxConnections int `env:"MAX_CONNECTIONS"`

	// MaxSessionsPerConnection declares maximum number of concurrently active sessions per one connection.
	// Zero or UnlimitedSessions disables the limit.
	//
	// NewConfig and NewConfigFromEnv use DefMaxSessionsPerConnection when the value is not passed.
	MaxSessionsPerConnection int `env:"MAX_SESSIONS_PER_CONNECTION" envDefault:"500"`

	// BlockIfSessionPoolFull makes AcquireSession wait for a free session slot instead of returning
	// ErrSessionPoolExhausted immediately.
	BlockIfSessionPoolFull bool `env:"BLOCK_IF_SESSION_POOL_FULL"`

	// SessionWaitTimeout bounds the wait for a session slot when BlockIfSessionPoolFull is set.
	// Zero means no bound: the wait could be broken with the context only.
	SessionWaitTimeout time.Duration `env:"SESSION_WAIT_TIMEOUT"`

	// CreateConnectionsOnStartup makes the pool open all MaxConnections connections at once
	// (on Start() or on the first acquisition) instead of opening them one by one on demand.
	CreateConnectionsOnStartup bool `env:"CREATE_CONNECTIONS_ON_STARTUP"`

	// InitialBackoffInterval configures InitialInterval for ExponentialBackOff algorithm used by
	// AcquireConnectionRetry.
	// See https://godoc.org/github.com/cenkalti/backoff#ExponentialBackOff for more info.
	//
	// Default is DefInitBackoffInterval
	InitialBackoffInterval time.Duration `env:"INIT_BACKOFF_INTERVAL"`

	// MaxBackoffInterval configures MaxInterval for ExponentialBackOff algorithm.
	//
	// Default is DefMaxBackoffInterval
	MaxBackoffInterval time.Duration `env:"MAX_BACKOFF_INTERVAL"`

	// Clock could be used to reimplement behaviour of system clock.
	// SystemClock by default.
	Clock Clock

	// Logger could be used to view some messages, printed by the library.
	// This messages could contain information about broken connections or something else.
	Logger Logger

	// backoffRandomizationFactor is used in tests only: default randomization factor is used in produnction.
	backoffRandomizationFactor *float64
}

// FlagsParser is needed to embed sesspool into production application.
// For example flag.FlagSet could be used here (https://golang.org/pkg/flag/#FlagSet) or you could implement
// your own config parser.
type FlagsParser interface {
	IntVar(dst *int, name string, def int, descr string)
	BoolVar(dst *bool, name string, def bool, descr string)
	DurationVar(p *time.Duration, name string, value time.Duration, usage string)
}

// NewConfig initializes configuration using FlagsParser.
// If you use flag.FlagSet-based parsers, config will be filled only after Parse() method invoked.
func NewConfig(p FlagsParser) *Config {
	var c Config

	p.IntVar(&c.MaxConnections, "max_connections", DefMaxConnections,
		"Maximum number of opened connections")
	p.IntVar(&c.MaxSessionsPerConnection, "max_sessions_per_connection", DefMaxSessionsPerConnection,
		"Maximum number of active sessions per one connection (0 or -1 for unlimited)")

	p.BoolVar(&c.BlockIfSessionPoolFull, "block_if_session_pool_full", false,
		"Wait for a free session slot instead of failing immediately")
	p.BoolVar(&c.CreateConnectionsOnStartup, "create_connections_on_startup", false,
		"Open all connections at once on startup")

	p.DurationVar(&c.SessionWaitTimeout, "session_wait_timeout", 0,
		"Maximum amount of time to wait for a free session slot (0 to wait forever)")
	p.DurationVar(&c.InitialBackoffInterval, "init_backoff_interval", DefInitBackoffInterval,
		"Initial backoff interval to retry connection opening")
	p.DurationVar(&c.MaxBackoffInterval, "max_backoff_interval", DefMaxBackoffInterval,
		"Maximum backoff interval to retry connection opening")

	return &c
}

// NewConfigFromEnv initializes configuration from environment variables.
// Variable names are the `env` tags of Config fields prefixed with prefix, e.g. SESSPOOL_MAX_CONNECTIONS.
// Not set variables are filled with defaults.
func NewConfigFromEnv(prefix string) (*Config, error) {
	var c Config

	if err := env.ParseWithOptions(&c, env.Options{Prefix: prefix}); err != nil {
		return nil, errors.Wrap(err, "can't parse environment")
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	c = c.WithDefaults()
	return &c, nil
}

// Validate checks configuration for out of range values.
func (c Config) Validate() error {
	if c.MaxConnections < 0 {
		return errors.Wrapf(ErrInvalidConfig, "max connections should be positive, got %d", c.MaxConnections)
	}

	if c.MaxSessionsPerConnection < UnlimitedSessions {
		return errors.Wrapf(ErrInvalidConfig, "max sessions per connection should be non-negative or %d, got %d",
			UnlimitedSessions, c.MaxSessionsPerConnection)
	}

	if c.SessionWaitTimeout < 0 {
		return errors.Wrapf(ErrInvalidConfig, "negative session wait timeout %s", c.SessionWaitTimeout)
	}

	return nil
}

// WithDefaults returns a copy of the configuration with not set variables filled with defaults.
func (c Config) WithDefaults() Config {
	if c.MaxConnections <= 0 {
		c.MaxConnections = DefMaxConnections
	}

	if c.InitialBackoffInterval == 0 {
		c.InitialBackoffInterval = DefInitBackoffInterval
	}

	if c.MaxBackoffInterval == 0 {
		c.MaxBackoffInterval = DefMaxBackoffInterval
	}

	if c.Clock == nil {
		c.Clock = SystemClock{}
	}

	if c.Logger == nil {
		c.Logger = DummyLogger{}
	}

	return c
}

func (c Config) sessionPolicy() SessionPolicy {
	if c.BlockIfSessionPoolFull {
		return Block
	}

	return FailFast
}
