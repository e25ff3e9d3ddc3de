package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment overrides, e.g. RESTLING_TIMEOUT.
const EnvPrefix = "RESTLING"

// Config represents the top-level configuration
type Config struct {
	DefaultProfile string             `json:"defaultProfile,omitempty" yaml:"defaultProfile,omitempty"`
	Profiles       map[string]Profile `json:"profiles" yaml:"profiles"`
}

// Profile holds client settings for one target API
type Profile struct {
	Headers     map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Variables   map[string]string `json:"variables,omitempty" yaml:"variables,omitempty"`
	Timeout     string            `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	UserAgent   string            `json:"userAgent,omitempty" yaml:"userAgent,omitempty"`
	Serializer  string            `json:"serializer,omitempty" yaml:"serializer,omitempty"`
	UnsafeXML   bool              `json:"unsafeXml,omitempty" yaml:"unsafeXml,omitempty"`
	UnsafeURI   bool              `json:"unsafeUri,omitempty" yaml:"unsafeUri,omitempty"`
	NoLocalhost bool              `json:"noLocalhost,omitempty" yaml:"noLocalhost,omitempty"`
	CookieFile  string            `json:"cookieFile,omitempty" yaml:"cookieFile,omitempty"`
	RateLimit   float64           `json:"rateLimit,omitempty" yaml:"rateLimit,omitempty"`
	LogLevel    string            `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`
	Auth        *Auth             `json:"auth,omitempty" yaml:"auth,omitempty"`

	// CookiePassphrase encrypts CookieFile. It is only read from the
	// environment.
	CookiePassphrase string `json:"-" yaml:"-"`
}

// Auth configures the Authorization header. Set User (with Password) for
// Basic, Token for Bearer, or Scheme and Parameter for anything else.
type Auth struct {
	User      string `json:"user,omitempty" yaml:"user,omitempty"`
	Password  string `json:"password,omitempty" yaml:"password,omitempty"`
	Token     string `json:"token,omitempty" yaml:"token,omitempty"`
	Scheme    string `json:"scheme,omitempty" yaml:"scheme,omitempty"`
	Parameter string `json:"parameter,omitempty" yaml:"parameter,omitempty"`
}

// TimeoutDuration parses Timeout, returning fallback when it is unset.
func (p Profile) TimeoutDuration(fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(p.Timeout) == "" {
		return fallback, nil
	}
	return parseDurationString(p.Timeout)
}

// LoadConfig loads and validates a configuration file. Files ending in
// .yaml or .yml are parsed as YAML, everything else as JSON.
func LoadConfig(path string) (*Config, error) {
	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		err = json.Unmarshal(data, &config)
	}
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if verrs := ValidateConfig(&config); len(verrs) > 0 {
		return nil, fmt.Errorf("invalid config file %s: %w", path, joinValidationErrors(verrs))
	}

	return &config, nil
}

// Profile returns the named profile. An empty name selects the default
// profile, or an empty profile when none is configured.
func (c *Config) Profile(name string) (Profile, error) {
	if name == "" {
		name = c.DefaultProfile
	}
	if name == "" {
		return Profile{}, nil
	}
	p, ok := c.Profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("profile not found: %s", name)
	}
	return p, nil
}

// envOverrides are read with envconfig. Strings keep "unset" distinct from
// false and zero.
type envOverrides struct {
	Timeout    string `envconfig:"TIMEOUT"`
	UserAgent  string `envconfig:"USER_AGENT"`
	Serializer string `envconfig:"SERIALIZER"`
	UnsafeXML  string `envconfig:"UNSAFE_XML"`
	CookieFile string `envconfig:"COOKIE_FILE"`
	Passphrase string `envconfig:"COOKIE_PASSPHRASE"`
	RateLimit  string `envconfig:"RATE_LIMIT"`
	LogLevel   string `envconfig:"LOG_LEVEL"`
	Token      string `envconfig:"TOKEN"`
}

// ApplyEnv overlays RESTLING_* environment variables on p and validates
// the result.
func ApplyEnv(p Profile) (Profile, error) {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return p, fmt.Errorf("error reading environment: %w", err)
	}

	if env.Timeout != "" {
		p.Timeout = env.Timeout
	}
	if env.UserAgent != "" {
		p.UserAgent = env.UserAgent
	}
	if env.Serializer != "" {
		p.Serializer = env.Serializer
	}
	if env.UnsafeXML != "" {
		v, err := strconv.ParseBool(env.UnsafeXML)
		if err != nil {
			return p, fmt.Errorf("%s_UNSAFE_XML: %w", EnvPrefix, err)
		}
		p.UnsafeXML = v
	}
	if env.CookieFile != "" {
		p.CookieFile = env.CookieFile
	}
	if env.Passphrase != "" {
		p.CookiePassphrase = env.Passphrase
	}
	if env.RateLimit != "" {
		v, err := strconv.ParseFloat(env.RateLimit, 64)
		if err != nil {
			return p, fmt.Errorf("%s_RATE_LIMIT: %w", EnvPrefix, err)
		}
		p.RateLimit = v
	}
	if env.LogLevel != "" {
		p.LogLevel = env.LogLevel
	}
	if env.Token != "" {
		p.Auth = &Auth{Token: env.Token}
	}

	if verrs := ValidateProfile("env", p); len(verrs) > 0 {
		return p, joinValidationErrors(verrs)
	}
	return p, nil
}

// ResolveProfile loads path when it is non-empty, selects the profile and
// applies environment overrides.
func ResolveProfile(path, name string) (Profile, error) {
	var p Profile
	if path != "" {
		cfg, err := LoadConfig(path)
		if err != nil {
			return Profile{}, err
		}
		if p, err = cfg.Profile(name); err != nil {
			return Profile{}, err
		}
	} else if name != "" {
		return Profile{}, fmt.Errorf("profile %q requested without a config file", name)
	}
	return ApplyEnv(p)
}

func joinValidationErrors(verrs []ValidationError) error {
	errs := make([]error, len(verrs))
	for i, v := range verrs {
		errs[i] = v
	}
	return errors.Join(errs...)
}

// parseDurationString parses duration strings like "30s", "5m", "1h"
func parseDurationString(duration string) (time.Duration, error) {
	duration = strings.TrimSpace(duration)
	if duration == "" {
		return 0, fmt.Errorf("duration cannot be empty")
	}

	if d, err := time.ParseDuration(duration); err == nil {
		return d, nil
	}

	// Handle additional formats like "1 minute", "30 seconds"
	duration = strings.ToLower(duration)
	duration = strings.ReplaceAll(duration, " ", "")

	for _, r := range []struct{ word, abbrev string }{
		{"seconds", "s"}, {"second", "s"},
		{"minutes", "m"}, {"minute", "m"},
		{"hours", "h"}, {"hour", "h"},
	} {
		duration = strings.ReplaceAll(duration, r.word, r.abbrev)
	}

	return time.ParseDuration(duration)
}

// ProcessVariables replaces {{name}} placeholders in input
func ProcessVariables(input string, vars map[string]string) string {
	result := input
	for key, value := range vars {
		result = strings.ReplaceAll(result, "{{"+key+"}}", value)
	}
	return result
}

// ProcessVariablesInMap applies ProcessVariables to every value
func ProcessVariablesInMap(input map[string]string, vars map[string]string) map[string]string {
	result := make(map[string]string, len(input))
	for key, value := range input {
		result[key] = ProcessVariables(value, vars)
	}
	return result
}
