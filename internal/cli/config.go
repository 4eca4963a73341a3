package cli

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/pyelevate/pyelevate/pkg/errors"
)

// configName is the optional configuration file, looked up in the
// working directory first and the home directory second.
const configName = ".pyelevate.toml"

// Config holds user-level settings. Zero values select the defaults.
type Config struct {
	// Requirements is the default manifest path.
	Requirements string `toml:"requirements"`

	// CacheDir overrides the XDG cache location.
	CacheDir string `toml:"cache_dir"`

	// CacheTTLHours is the lifetime of cached HTTP responses.
	CacheTTLHours int `toml:"cache_ttl_hours"`

	// RedisAddr selects a Redis cache backend (host:port) instead of
	// the file cache.
	RedisAddr string `toml:"redis_addr"`
}

// loadConfig reads the first config file found. A missing file is not
// an error; a malformed one is.
func loadConfig() (Config, error) {
	var cfg Config
	for _, path := range configPaths() {
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return cfg, errors.Wrap(errors.ErrCodeInvalidPath, err, "failed to read %s", path)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.Wrap(errors.ErrCodeInvalidFormat, err, "failed to parse %s", path)
		}
		break
	}
	if cfg.CacheTTLHours <= 0 {
		cfg.CacheTTLHours = 24
	}
	return cfg, nil
}

func configPaths() []string {
	paths := []string{configName}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, configName))
	}
	return paths
}
