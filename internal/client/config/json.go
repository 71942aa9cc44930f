package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Duration accepts either a string like "30s" or integer nanoseconds, so a
// JSON config can spell intervals the readable way.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		d.Duration = parsed
		return nil
	default:
		return fmt.Errorf("invalid duration: %s", string(data))
	}
}

// jsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer fields
// distinguish "absent" from "zero" so a partial file only overrides what it
// names.
type jsonConfig struct {
	APIBaseURL     *string   `json:"api_base_url"`
	DatabasePath   *string   `json:"database_path"`
	TokenPath      *string   `json:"token_path"`
	SyncInterval   *Duration `json:"sync_interval"`
	RequestTimeout *Duration `json:"request_timeout"`
	PushBatchSize  *int      `json:"push_batch_size"`
}

// parseJSON overlays cfg with values from the JSON file at path. An empty
// path means no file is loaded.
func parseJSON(cfg *Config, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	if jc.APIBaseURL != nil {
		cfg.APIBaseURL = *jc.APIBaseURL
	}
	if jc.DatabasePath != nil {
		cfg.DatabasePath = *jc.DatabasePath
	}
	if jc.TokenPath != nil {
		cfg.TokenPath = *jc.TokenPath
	}
	if jc.SyncInterval != nil {
		cfg.SyncInterval = jc.SyncInterval.Duration
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.PushBatchSize != nil {
		cfg.PushBatchSize = *jc.PushBatchSize
	}
	return nil
}
