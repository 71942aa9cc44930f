// Package config holds runtime settings for the feltkeeper client.
package config

import "time"

// Config holds runtime settings for the client.
//
// Units: SyncInterval and RequestTimeout are time.Durations; PushBatchSize is
// a count of outbox intents per push request.
type Config struct {
	// APIBaseURL is the root of the remote sync service, e.g.
	// "https://api.feltkeeper.app".
	APIBaseURL string

	// DatabasePath is the SQLite file holding the local store.
	DatabasePath string

	// TokenPath is the file the bearer token is read from after login.
	TokenPath string

	SyncInterval   time.Duration
	RequestTimeout time.Duration
	PushBatchSize  int
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://127.0.0.1:8080"
	c.DatabasePath = "feltkeeper.db"
	c.TokenPath = ".feltkeeper_token"
	c.SyncInterval = 30 * time.Second
	c.RequestTimeout = 15 * time.Second
	c.PushBatchSize = 50
}

// Load constructs a Config: defaults first, then values from the JSON file at
// path when path is non-empty. JSON values take precedence over defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJSON(cfg, path); err != nil {
		return nil, err
	}
	return cfg, nil
}
