package config

import (
	"fmt"
	"sort"

	"github.com/amdevit/restling/internal/logging"
	"github.com/amdevit/restling/pkg/serialization"
	"go.uber.org/zap/zapcore"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Path    string
	Message string
}

// Error returns the error message
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidateConfig validates the configuration
func ValidateConfig(config *Config) []ValidationError {
	var errors []ValidationError

	if config.DefaultProfile != "" {
		if _, ok := config.Profiles[config.DefaultProfile]; !ok {
			errors = append(errors, ValidationError{
				Path:    "defaultProfile",
				Message: fmt.Sprintf("profile %q is not defined", config.DefaultProfile),
			})
		}
	}

	names := make([]string, 0, len(config.Profiles))
	for name := range config.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		errors = append(errors, ValidateProfile("profiles."+name, config.Profiles[name])...)
	}

	return errors
}

// ValidateProfile validates one profile; path prefixes error locations
func ValidateProfile(path string, p Profile) []ValidationError {
	var errors []ValidationError

	if p.Timeout != "" {
		if d, err := parseDurationString(p.Timeout); err != nil {
			errors = append(errors, ValidationError{
				Path:    path + ".timeout",
				Message: fmt.Sprintf("invalid duration: %v", err),
			})
		} else if d < 0 {
			errors = append(errors, ValidationError{
				Path:    path + ".timeout",
				Message: "must not be negative",
			})
		}
	}

	if _, err := serialization.ParseLibrary(p.Serializer); err != nil {
		errors = append(errors, ValidationError{
			Path:    path + ".serializer",
			Message: err.Error(),
		})
	}

	if p.RateLimit < 0 {
		errors = append(errors, ValidationError{
			Path:    path + ".rateLimit",
			Message: "must not be negative",
		})
	}

	if p.LogLevel != "" && p.LogLevel != logging.LevelOff {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(p.LogLevel)); err != nil {
			errors = append(errors, ValidationError{
				Path:    path + ".logLevel",
				Message: fmt.Sprintf("unknown level %q", p.LogLevel),
			})
		}
	}

	if p.Auth != nil {
		errors = append(errors, validateAuth(path+".auth", *p.Auth)...)
	}

	return errors
}

func validateAuth(path string, a Auth) []ValidationError {
	kinds := 0
	if a.User != "" {
		kinds++
	}
	if a.Token != "" {
		kinds++
	}
	if a.Scheme != "" {
		kinds++
	}

	switch {
	case kinds == 0:
		return []ValidationError{{Path: path, Message: "one of user, token or scheme is required"}}
	case kinds > 1:
		return []ValidationError{{Path: path, Message: "user, token and scheme are mutually exclusive"}}
	case a.Password != "" && a.User == "":
		return []ValidationError{{Path: path + ".password", Message: "password requires user"}}
	case a.Parameter != "" && a.Scheme == "":
		return []ValidationError{{Path: path + ".parameter", Message: "parameter requires scheme"}}
	}
	return nil
}
