package shipstation

import (
	"errors"
	"net/url"
	"strings"
)

// Config holds configuration for the ShipStation OData API
type Config struct {
	// BaseURL is the root of the OData service
	BaseURL string
	// Username is the default API user, used when a request carries none
	Username string
	// Password is the default API password
	Password string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
	// MaxPages bounds how many __next links a single query follows
	MaxPages int
	// RequestsPerMinute throttles outgoing requests; 0 disables throttling
	RequestsPerMinute int
}

const (
	// DefaultBaseURL is the production OData endpoint
	DefaultBaseURL = "https://data.shipstation.com/1.1"

	defaultTimeoutSeconds = 30
	defaultMaxPages       = 100
)

// Errors for ShipStation configuration
var (
	ErrConfigInvalidBaseURL = errors.New("shipstation: base url must be an absolute http(s) url")
)

// NewConfig creates a new configuration with defaults
func NewConfig(username, password string) *Config {
	return &Config{
		BaseURL:        DefaultBaseURL,
		Username:       username,
		Password:       password,
		TimeoutSeconds: defaultTimeoutSeconds,
		MaxPages:       defaultMaxPages,
	}
}

// Validate validates the configuration and fills in defaults.
// Credentials are optional here since each request may bring its own.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrConfigInvalidBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = defaultTimeoutSeconds
	}
	if c.MaxPages <= 0 {
		c.MaxPages = defaultMaxPages
	}
	if c.RequestsPerMinute < 0 {
		c.RequestsPerMinute = 0
	}
	return nil
}
