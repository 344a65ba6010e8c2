package models

import (
	"errors"
	"fmt"
)

// Programming and configuration errors. They are returned as Go errors and are
// never folded into a Response.
var (
	ErrModelMissing      = errors.New("model missing from payload")
	ErrNoModel           = errors.New("no model set")
	ErrModelNotAvailable = errors.New("model not available")
	ErrOwnership         = errors.New("client does not own the requested model")
	ErrUnbound           = errors.New("model is not bound to a provider")
	ErrAlreadyBound      = errors.New("model is already bound")
)

// ConfigError reports a missing or invalid configuration key.
type ConfigError struct {
	Provider string
	Key      string
	Reason   string
}

func (e *ConfigError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("config: %s %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("config: provider %q: %s %s", e.Provider, e.Key, e.Reason)
}
