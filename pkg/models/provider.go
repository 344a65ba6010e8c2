package models

import "strings"

// Provider describes the connection parameters of one external AI API.
type Provider struct {
	ID         string
	Family     string
	Active     bool
	Credential string
	APIURL     string
	StreamURL  string
	PingURL    string
	MaxRetries int // Retries after HTTP 429; 0 disables retrying.
	Models     []Record
}

// APIEndpoint returns the base URL used for synchronous requests.
func (p Provider) APIEndpoint() string {
	return trimURL(p.APIURL)
}

// StreamEndpoint returns the base URL used for streaming requests.
func (p Provider) StreamEndpoint() string {
	if p.StreamURL != "" {
		return trimURL(p.StreamURL)
	}
	return trimURL(p.APIURL)
}

// PingEndpoint returns the base URL used for status sweeps.
func (p Provider) PingEndpoint() string {
	if p.PingURL != "" {
		return trimURL(p.PingURL)
	}
	return trimURL(p.APIURL)
}

// Require returns the value of a required key or a *ConfigError when it is empty.
// Known keys: id, adapter, credential, api_url.
func (p Provider) Require(key string) (string, error) {
	var v string
	switch key {
	case "id":
		v = p.ID
	case "adapter":
		v = p.Family
	case "credential":
		v = p.Credential
	case "api_url":
		v = p.APIURL
	default:
		return "", &ConfigError{Provider: p.ID, Key: key, Reason: "is not a provider key"}
	}

	if strings.TrimSpace(v) == "" {
		return "", &ConfigError{Provider: p.ID, Key: key, Reason: "is required"}
	}

	return v, nil
}

func trimURL(u string) string {
	return strings.TrimRight(strings.TrimSpace(u), "/")
}
