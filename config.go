package omnibridge

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML shape of a config file. Durations are written as
// Go duration strings ("30s", "5m"); zero values fall back to defaults.
type fileConfig struct {
	OsascriptPath        string            `yaml:"osascript_path"`
	ScriptTimeout        string            `yaml:"script_timeout"`
	DefaultTTL           string            `yaml:"default_ttl"`
	CacheCleanupInterval string            `yaml:"cache_cleanup_interval"`
	BatchWarnSize        int               `yaml:"batch_warn_size"`
	CacheTTLs            map[string]string `yaml:"cache_ttls"`
}

// LoadConfig reads a YAML config file and overlays it on DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to open config file '%s': %w", path, err)
	}
	defer f.Close()

	var fc fileConfig
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		return cfg, fmt.Errorf("failed to decode config file '%s': %w", path, err)
	}

	if fc.OsascriptPath != "" {
		cfg.OsascriptPath = fc.OsascriptPath
	}
	if fc.BatchWarnSize > 0 {
		cfg.BatchWarnSize = fc.BatchWarnSize
	}
	if err := overlayDuration(&cfg.ScriptTimeout, fc.ScriptTimeout, "script_timeout"); err != nil {
		return cfg, err
	}
	if err := overlayDuration(&cfg.DefaultTTL, fc.DefaultTTL, "default_ttl"); err != nil {
		return cfg, err
	}
	if err := overlayDuration(&cfg.CacheCleanupInterval, fc.CacheCleanupInterval, "cache_cleanup_interval"); err != nil {
		return cfg, err
	}
	for ns, raw := range fc.CacheTTLs {
		var d time.Duration
		if err := overlayDuration(&d, raw, "cache_ttls."+ns); err != nil {
			return cfg, err
		}
		cfg.CacheTTLs[ns] = d
	}

	return cfg, nil
}

// overlayDuration parses raw into dst when raw is non-empty.
func overlayDuration(dst *time.Duration, raw, field string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration for %s: %w", field, err)
	}
	if d <= 0 {
		return fmt.Errorf("duration for %s must be positive", field)
	}
	*dst = d
	return nil
}
