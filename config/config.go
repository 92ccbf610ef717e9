package config

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jonwraymond/kvops/cache"
	"github.com/jonwraymond/kvops/logstats"
	"github.com/jonwraymond/kvops/observe"
)

// EnvPrefix prefixes environment variables: redis.addr is KVOPS_REDIS_ADDR.
const EnvPrefix = "KVOPS"

// DefaultServiceName names the service in telemetry.
const DefaultServiceName = "kvops"

var (
	// ErrInvalidRedisDB indicates a negative Redis database index.
	ErrInvalidRedisDB = errors.New("config: redis db must be >= 0")

	// ErrMissingMongoCollection indicates an empty database or collection name.
	ErrMissingMongoCollection = errors.New("config: mongo database and collection are required")
)

// Config is the complete kvops configuration.
type Config struct {
	Redis   Redis   `mapstructure:"redis"`
	Mongo   Mongo   `mapstructure:"mongo"`
	Observe Observe `mapstructure:"observe"`
}

// Redis locates the key-value store.
type Redis struct {
	URL  string `mapstructure:"url"`
	Addr string `mapstructure:"addr"`
	DB   int    `mapstructure:"db"`
}

// Options converts r for cache.NewRedisBackend.
func (r Redis) Options() cache.RedisOptions {
	return cache.RedisOptions{URL: r.URL, Addr: r.Addr, DB: r.DB}
}

// Mongo locates the nginx log collection.
type Mongo struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

// Options converts m for logstats.Connect.
func (m Mongo) Options() logstats.MongoOptions {
	return logstats.MongoOptions{URI: m.URI, Database: m.Database, Collection: m.Collection}
}

// Observe selects telemetry exporters. An empty exporter disables that
// subsystem.
type Observe struct {
	ServiceName string  `mapstructure:"service_name"`
	LogLevel    string  `mapstructure:"log_level"`
	Tracing     string  `mapstructure:"tracing"`
	SamplePct   float64 `mapstructure:"sample_pct"`
	Metrics     string  `mapstructure:"metrics"`
}

// ObserveConfig converts o for observe.NewObserver. Logs go to w.
func (o Observe) ObserveConfig(version string, w io.Writer) observe.Config {
	return observe.Config{
		ServiceName: o.ServiceName,
		Version:     version,
		Tracing: observe.TracingConfig{
			Enabled:   o.Tracing != "",
			Exporter:  o.Tracing,
			SamplePct: o.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  o.Metrics != "",
			Exporter: o.Metrics,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   o.LogLevel,
			Writer:  w,
		},
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Redis.DB < 0 {
		return fmt.Errorf("%w, got: %d", ErrInvalidRedisDB, c.Redis.DB)
	}
	if c.Mongo.Database == "" || c.Mongo.Collection == "" {
		return ErrMissingMongoCollection
	}
	obs := c.Observe.ObserveConfig("", nil)
	if err := obs.Validate(); err != nil {
		return fmt.Errorf("config: observe: %w", err)
	}
	return nil
}

// flagKeys maps flag names to configuration keys.
var flagKeys = []struct {
	flag, key string
}{
	{"redis-url", "redis.url"},
	{"redis-addr", "redis.addr"},
	{"redis-db", "redis.db"},
	{"mongo-uri", "mongo.uri"},
	{"mongo-database", "mongo.database"},
	{"mongo-collection", "mongo.collection"},
	{"log-level", "observe.log_level"},
	{"tracing", "observe.tracing"},
	{"metrics", "observe.metrics"},
}

// RegisterFlags adds the connection and telemetry flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a config file (yaml, json or toml)")
	fs.String("redis-url", "", "redis:// URL; overrides --redis-addr and --redis-db")
	fs.String("redis-addr", cache.DefaultRedisAddr, "Redis host:port")
	fs.Int("redis-db", 0, "Redis database index")
	fs.String("mongo-uri", logstats.DefaultMongoURI, "MongoDB connection string")
	fs.String("mongo-database", logstats.DefaultDatabase, "MongoDB database holding the logs")
	fs.String("mongo-collection", logstats.DefaultCollection, "MongoDB collection holding the logs")
	fs.String("log-level", "warn", "log level: debug|info|warn|error")
	fs.String("tracing", "", "trace exporter: otlp|jaeger|stdout|none (empty disables)")
	fs.String("metrics", "", "metrics exporter: otlp|prometheus|stdout|none (empty disables)")
}

// BindFlags binds the flags added by RegisterFlags into v.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	if f := fs.Lookup("config"); f != nil {
		if err := v.BindPFlag("config", f); err != nil {
			return fmt.Errorf("config: bind --config: %w", err)
		}
	}
	for _, fk := range flagKeys {
		f := fs.Lookup(fk.flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(fk.key, f); err != nil {
			return fmt.Errorf("config: bind --%s: %w", fk.flag, err)
		}
	}
	return nil
}

// SetDefaults registers every key with its default so that environment
// variables are picked up by Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.addr", cache.DefaultRedisAddr)
	v.SetDefault("redis.db", 0)
	v.SetDefault("mongo.uri", logstats.DefaultMongoURI)
	v.SetDefault("mongo.database", logstats.DefaultDatabase)
	v.SetDefault("mongo.collection", logstats.DefaultCollection)
	v.SetDefault("observe.service_name", DefaultServiceName)
	v.SetDefault("observe.log_level", "warn")
	v.SetDefault("observe.tracing", "")
	v.SetDefault("observe.sample_pct", 1.0)
	v.SetDefault("observe.metrics", "")
}

// Load reads the configuration from v.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	for _, s := range []*string{&cfg.Redis.URL, &cfg.Redis.Addr, &cfg.Mongo.URI} {
		expanded, err := ExpandEnvStrict(*s)
		if err != nil {
			return nil, err
		}
		*s = expanded
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
