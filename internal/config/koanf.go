package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in
// priority order; the first one found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/twprofiles/config.yaml",
	"/etc/twprofiles/config.yml",
}

// ConfigPathEnvVar overrides the config file search with an explicit path.
const ConfigPathEnvVar = "TWPROFILES_CONFIG_PATH"

// envPrefix is stripped (and the remainder lowercased and
// underscore-to-dot mapped) from every environment variable the
// loader considers.
const envPrefix = "TWPROFILES_"

// Load builds a Config by layering, in increasing priority: built-in
// defaults, an optional YAML config file, then environment variables
// prefixed TWPROFILES_ (e.g. TWPROFILES_STORE_PATH -> store.path).
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envTransformFunc maps TWPROFILES_STORE_PATH -> store.path: strip
// the prefix, lowercase, and replace the underscore that ends the
// section name with a dot. Section names are single words except
// rate_limit, which is matched whole (TWPROFILES_RATE_LIMIT_APP_BURST
// -> rate_limit.app_burst); for every other key the first remaining
// underscore separates section from field.
func envTransformFunc(key string) string {
	key = strings.TrimPrefix(strings.ToLower(key), strings.ToLower(envPrefix))
	for _, section := range []string{"rate_limit"} {
		if strings.HasPrefix(key, section+"_") {
			return section + "." + key[len(section)+1:]
		}
	}
	idx := strings.Index(key, "_")
	if idx < 0 {
		return key
	}
	return key[:idx] + "." + key[idx+1:]
}
