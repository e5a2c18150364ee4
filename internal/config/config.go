package config

import "time"

// Config holds runtime settings for the fieldsync engine.
//
// Units: all intervals are time.Duration values (e.g. 3*time.Second).
type Config struct {
	// ServerEndpointAddr is the base URL of the backend REST endpoint.
	ServerEndpointAddr string

	// DatabasePath is the SQLite file backing the durable local store.
	DatabasePath string

	// SyncInterval is how often the periodic sync trigger fires.
	SyncInterval time.Duration

	// OnlineCheckInterval is how often the engine probes server reachability.
	OnlineCheckInterval time.Duration

	// CacheMaxAge is the default staleness threshold for reference data.
	CacheMaxAge time.Duration

	// RetentionDays bounds how long successfully synced records are kept.
	RetentionDays int
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://127.0.0.1:8080"
	c.DatabasePath = "fieldsync.db"
	c.SyncInterval = 60 * time.Second
	c.OnlineCheckInterval = 3 * time.Second
	c.CacheMaxAge = 24 * time.Hour
	c.RetentionDays = 7
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
