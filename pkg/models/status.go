package models

import (
	"fmt"
	"strings"
)

// Status is the availability of a model.
type Status string

const (
	StatusOnline  Status = "ONLINE"
	StatusOffline Status = "OFFLINE"
	StatusUnknown Status = "UNKNOWN"
)

// String returns the underlying string value of the status.
func (s Status) String() string { return string(s) }

// ParseStatus parses a status name case-insensitively.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusOnline:
		return StatusOnline, nil
	case StatusOffline:
		return StatusOffline, nil
	case StatusUnknown:
		return StatusUnknown, nil
	}
	return StatusUnknown, fmt.Errorf("models: unknown status %q", s)
}

// UsageType partitions the catalogue between internal and external use.
type UsageType string

const (
	UsageDefault     UsageType = "DEFAULT"
	UsageExternalApp UsageType = "EXTERNAL_APP"
)

// UsageTypes lists every usage type.
var UsageTypes = []UsageType{UsageDefault, UsageExternalApp}

// String returns the underlying string value of the usage type.
func (u UsageType) String() string { return string(u) }

// ParseUsageType parses "default" / "external_app" case-insensitively.
func ParseUsageType(s string) (UsageType, error) {
	switch UsageType(strings.ToUpper(strings.TrimSpace(s))) {
	case UsageDefault:
		return UsageDefault, nil
	case UsageExternalApp:
		return UsageExternalApp, nil
	}
	return "", fmt.Errorf("models: unknown usage type %q", s)
}
