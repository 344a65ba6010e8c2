// Package config loads the gateway configuration from YAML, with environment
// variable expansion and MODELGATE_* overrides for runtime knobs.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"

	"github.com/germanamz/modelgate/pkg/models"
	"github.com/germanamz/modelgate/pkg/transport"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MODELGATE_"

// Config is the top-level gateway configuration.
type Config struct {
	Log            LogConfig             `yaml:"log"`
	Transport      TransportConfig       `yaml:"transport"`
	Assignments    map[string]Assignment `yaml:"assignments"`
	Providers      []ProviderConfig      `yaml:"providers"`
	AttachmentsDir string                `yaml:"attachments_dir" env:"ATTACHMENTS_DIR"`
}

// LogConfig selects the logger level and output format.
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"` // json or console
}

// TransportConfig holds HTTP timeouts as duration strings (e.g. "5s").
type TransportConfig struct {
	ConnectTimeout string `yaml:"connect_timeout" env:"CONNECT_TIMEOUT"`
	IdleTimeout    string `yaml:"idle_timeout" env:"IDLE_TIMEOUT"`
	RequestTimeout string `yaml:"request_timeout" env:"REQUEST_TIMEOUT"`
}

// Assignment maps capabilities (text, vision, title, ...) to model ids.
type Assignment struct {
	Defaults map[string]string `yaml:"defaults"`
	System   map[string]string `yaml:"system"`
}

// ProviderConfig describes one provider and its models.
type ProviderConfig struct {
	ID         string          `yaml:"id"`
	Adapter    string          `yaml:"adapter"`
	Active     *bool           `yaml:"active"`
	Credential string          `yaml:"credential"` //nolint:gosec // configuration field, not a hardcoded secret
	APIURL     string          `yaml:"api_url"`
	StreamURL  string          `yaml:"stream_url"`
	PingURL    string          `yaml:"ping_url"`
	MaxRetries int             `yaml:"max_retries"`
	Models     []models.Record `yaml:"models"`
}

// IsActive reports whether the provider is enabled. An omitted flag means active.
func (p ProviderConfig) IsActive() bool {
	return p.Active == nil || *p.Active
}

// Provider converts the configuration into a models.Provider.
func (p ProviderConfig) Provider() models.Provider {
	return models.Provider{
		ID:         p.ID,
		Family:     p.Adapter,
		Active:     p.IsActive(),
		Credential: p.Credential,
		APIURL:     p.APIURL,
		StreamURL:  p.StreamURL,
		PingURL:    p.PingURL,
		MaxRetries: p.MaxRetries,
		Models:     p.Models,
	}
}

func (p ProviderConfig) isGeneric() bool {
	a := strings.ToLower(strings.TrimSpace(p.Adapter))
	return a == "" || a == "generic"
}

// Load reads a YAML file and returns a Config.
// Environment variables referenced as ${VAR} or $VAR in the YAML are expanded
// before parsing, then MODELGATE_* variables override runtime knobs.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration
	if err != nil {
		return Config{}, fmt.Errorf("config: load: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML data the same way Load does.
func Parse(data []byte) (Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("config: env overrides: %w", err)
	}

	return cfg, nil
}

// TransportOptions parses the transport timeouts. Unset values fall back to
// transport.DefaultOptions.
func (c Config) TransportOptions() (transport.Options, error) {
	var opts transport.Options
	var errs []error

	for _, f := range []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"transport.connect_timeout", c.Transport.ConnectTimeout, &opts.ConnectTimeout},
		{"transport.idle_timeout", c.Transport.IdleTimeout, &opts.IdleTimeout},
		{"transport.request_timeout", c.Transport.RequestTimeout, &opts.RequestTimeout},
	} {
		if strings.TrimSpace(f.raw) == "" {
			continue
		}
		d, err := time.ParseDuration(strings.TrimSpace(f.raw))
		if err != nil || d < 0 {
			errs = append(errs, &models.ConfigError{Key: f.key, Reason: fmt.Sprintf("is not a valid duration: %q", f.raw)})
			continue
		}
		*f.dst = d
	}

	if len(errs) > 0 {
		return transport.Options{}, errors.Join(errs...)
	}

	return opts.WithDefaults(), nil
}

// Validate checks that the configuration is internally consistent. Every
// problem found is reported.
func (c Config) Validate() error {
	var errs []error

	if _, err := c.TransportOptions(); err != nil {
		errs = append(errs, err)
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "json", "console":
	default:
		errs = append(errs, &models.ConfigError{Key: "log.format", Reason: fmt.Sprintf("must be json or console, got %q", c.Log.Format)})
	}

	for key := range c.Assignments {
		if _, err := models.ParseUsageType(key); err != nil {
			errs = append(errs, &models.ConfigError{Key: "assignments." + key, Reason: "names an unknown usage type"})
		}
	}

	seen := make(map[string]struct{}, len(c.Providers))
	for i, p := range c.Providers {
		if strings.TrimSpace(p.ID) == "" {
			errs = append(errs, &models.ConfigError{Key: fmt.Sprintf("providers[%d].id", i), Reason: "is required"})
			continue
		}
		if _, dup := seen[p.ID]; dup {
			errs = append(errs, &models.ConfigError{Provider: p.ID, Key: "id", Reason: "is duplicated"})
		}
		seen[p.ID] = struct{}{}

		if p.isGeneric() && strings.TrimSpace(p.APIURL) == "" {
			errs = append(errs, &models.ConfigError{Provider: p.ID, Key: "api_url", Reason: "is required"})
		}

		for j, m := range p.Models {
			if strings.TrimSpace(m.ID) == "" {
				errs = append(errs, &models.ConfigError{Provider: p.ID, Key: fmt.Sprintf("models[%d].id", j), Reason: "is required"})
			}
		}
	}

	return errors.Join(errs...)
}

// AssignmentFor returns the assignment of a usage type.
func (c Config) AssignmentFor(u models.UsageType) Assignment {
	for key, a := range c.Assignments {
		if parsed, err := models.ParseUsageType(key); err == nil && parsed == u {
			return a
		}
	}
	return Assignment{}
}
