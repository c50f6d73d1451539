// Package config defines service configuration and its layered loader.
package config

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// DBDriver selects the store: memory, sqlite or postgres.
	DBDriver string `koanf:"db_driver" validate:"oneof=memory sqlite postgres"`

	// DBDSN is the data source name passed to the SQL driver.
	DBDSN string `koanf:"db_dsn" validate:"required_unless=DBDriver memory"`

	// DBMaxOpenConns caps the postgres connection pool; 0 leaves it unbounded.
	DBMaxOpenConns int `koanf:"db_max_open_conns" validate:"gte=0"`

	// DefaultMetric ranks queries that name no metric.
	DefaultMetric string `koanf:"default_metric" validate:"required"`

	// CacheSize bounds the number of memoized leaderboards; 0 disables the cache.
	CacheSize int `koanf:"cache_size" validate:"gte=0"`

	// ReadTimeoutMS bounds how long a request may wait on the store.
	ReadTimeoutMS int `koanf:"read_timeout_ms" validate:"gt=0"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		LogFormat:      "text",
		Addr:           ":9080",
		DBDriver:       "sqlite",
		DBDSN:          "file:tally.db?_pragma=busy_timeout(5000)",
		DBMaxOpenConns: 10,
		DefaultMetric:  "totalPoints",
		CacheSize:      256,
		ReadTimeoutMS:  5000,
	}
}
