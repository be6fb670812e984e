// Package config loads logbase configuration.
//
// Sources, lowest precedence first: built-in defaults, a YAML file, a .env
// file in the working directory, and LOGBASE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// PathEnv names the variable consulted for the config file path.
const PathEnv = "LOGBASE_CONFIG"

// candidatePaths are tried in order when no path is given.
var candidatePaths = []string{
	"logbase.yaml",
	"config/logbase.yaml",
	"/etc/logbase/logbase.yaml",
}

type Config struct {
	Env     string        `koanf:"env" validate:"required"`
	HTTP    HTTPConfig    `koanf:"http"`
	Store   StoreConfig   `koanf:"store"`
	SQLite  SQLiteConfig  `koanf:"sqlite"`
	CQL     CQLConfig     `koanf:"cql"`
	Redis   RedisConfig   `koanf:"redis"`
	Log     LogConfig     `koanf:"log"`
	Tracing TracingConfig `koanf:"tracing"`
}

type HTTPConfig struct {
	Host            string        `koanf:"host"`
	Port            uint16        `koanf:"port" validate:"gt=0"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// Addr returns host:port for net.Listen.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type StoreConfig struct {
	Engine       string        `koanf:"engine" validate:"oneof=sqlite cql"`
	QueryTimeout time.Duration `koanf:"query_timeout" validate:"gt=0"`
	RecentWindow time.Duration `koanf:"recent_window" validate:"gt=0"`
	RecentLimit  int           `koanf:"recent_limit" validate:"gt=0,lte=10000"`
}

type SQLiteConfig struct {
	Path string `koanf:"path" validate:"required"`
}

type CQLConfig struct {
	Hosts          []string      `koanf:"hosts"`
	Keyspace       string        `koanf:"keyspace"`
	Consistency    string        `koanf:"consistency"`
	Username       string        `koanf:"username"`
	Password       string        `koanf:"password"`
	Timeout        time.Duration `koanf:"timeout"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
	Bootstrap      bool          `koanf:"bootstrap"`
}

type RedisConfig struct {
	Enabled   bool          `koanf:"enabled"`
	Addr      string        `koanf:"addr" validate:"required_if=Enabled true"`
	Password  string        `koanf:"password"`
	DB        int           `koanf:"db" validate:"gte=0"`
	KeyPrefix string        `koanf:"key_prefix"`
	TTL       time.Duration `koanf:"ttl"`
}

type LogConfig struct {
	Level      string `koanf:"level" validate:"oneof=debug info warn error"`
	Encoding   string `koanf:"encoding" validate:"oneof=json console"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
}

type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint" validate:"required_if=Enabled true"`
	ServiceName string  `koanf:"service_name"`
	SampleRatio float64 `koanf:"sample_ratio" validate:"gte=0,lte=1"`
}

// ResolvePath picks the config file: the explicit path, then $LOGBASE_CONFIG,
// then the first candidate that exists. It returns "" when none applies.
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p := GetString(PathEnv, ""); p != "" {
		return p
	}
	for _, p := range candidatePaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Load reads configuration from path (optional), .env and the environment.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	applyDefaults(k)
	applyEnvOverrides(k)
	setDefault(k, "cql.keyspace", keyspaceFor(k.String("env")))

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and cross-field requirements.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Store.Engine == "cql" && len(c.CQL.Hosts) == 0 {
		return fmt.Errorf("invalid config: cql engine requires cql.hosts")
	}
	return nil
}

// keyspaceFor keeps test data out of the production keyspace.
func keyspaceFor(env string) string {
	if env == "test" {
		return "logbase_test"
	}
	return "logbase"
}

func applyDefaults(k *koanf.Koanf) {
	setDefault(k, "env", "development")

	setDefault(k, "http.host", "0.0.0.0")
	setDefault(k, "http.port", 8080)
	setDefault(k, "http.read_timeout", 10*time.Second)
	setDefault(k, "http.write_timeout", 30*time.Second)
	setDefault(k, "http.shutdown_timeout", 10*time.Second)

	setDefault(k, "store.engine", "sqlite")
	setDefault(k, "store.query_timeout", 3*time.Second)
	setDefault(k, "store.recent_window", 72*time.Hour)
	setDefault(k, "store.recent_limit", 1000)

	setDefault(k, "sqlite.path", "logbase.db")

	setDefault(k, "cql.hosts", []string{"127.0.0.1:9042"})
	setDefault(k, "cql.consistency", "LOCAL_QUORUM")
	setDefault(k, "cql.timeout", 5*time.Second)
	setDefault(k, "cql.connect_timeout", 10*time.Second)

	setDefault(k, "redis.key_prefix", "logbase:frozen:")
	setDefault(k, "redis.ttl", 24*time.Hour)

	setDefault(k, "log.level", "info")
	setDefault(k, "log.encoding", "json")
	setDefault(k, "log.max_size_mb", 100)
	setDefault(k, "log.max_backups", 5)
	setDefault(k, "log.max_age_days", 30)

	setDefault(k, "tracing.service_name", "logbase")
	setDefault(k, "tracing.sample_ratio", 1.0)
}

func applyEnvOverrides(k *koanf.Koanf) {
	if v := GetString("LOGBASE_ENV", ""); v != "" {
		k.Set("env", v)
	}

	if host := GetString("LOGBASE_HTTP_HOST", ""); host != "" {
		k.Set("http.host", host)
	}
	if port := GetInt("LOGBASE_HTTP_PORT", 0); port > 0 {
		k.Set("http.port", port)
	}

	if engine := GetString("LOGBASE_STORE_ENGINE", ""); engine != "" {
		k.Set("store.engine", engine)
	}
	if timeout := GetDuration("LOGBASE_STORE_QUERY_TIMEOUT", 0); timeout > 0 {
		k.Set("store.query_timeout", timeout)
	}

	if path := GetString("LOGBASE_SQLITE_PATH", ""); path != "" {
		k.Set("sqlite.path", path)
	}

	if hosts := GetStrings("LOGBASE_CQL_HOSTS", nil); len(hosts) > 0 {
		k.Set("cql.hosts", hosts)
	}
	if ks := GetString("LOGBASE_CQL_KEYSPACE", ""); ks != "" {
		k.Set("cql.keyspace", ks)
	}
	if user := GetString("LOGBASE_CQL_USERNAME", ""); user != "" {
		k.Set("cql.username", user)
	}
	if pass := GetString("LOGBASE_CQL_PASSWORD", ""); pass != "" {
		k.Set("cql.password", pass)
	}

	if addr := GetString("LOGBASE_REDIS_ADDR", ""); addr != "" {
		k.Set("redis.addr", addr)
		k.Set("redis.enabled", true)
	}
	if pass := GetString("LOGBASE_REDIS_PASSWORD", ""); pass != "" {
		k.Set("redis.password", pass)
	}

	if level := GetString("LOGBASE_LOG_LEVEL", ""); level != "" {
		k.Set("log.level", level)
	}
	if f := GetString("LOGBASE_LOG_FILE", ""); f != "" {
		k.Set("log.file", f)
	}

	if endpoint := GetString("LOGBASE_TRACING_ENDPOINT", ""); endpoint != "" {
		k.Set("tracing.endpoint", endpoint)
		k.Set("tracing.enabled", true)
	}
}

// setDefault only sets the value if the key doesn't already exist
func setDefault(k *koanf.Koanf, key string, value any) {
	if !k.Exists(key) {
		k.Set(key, value)
	}
}
