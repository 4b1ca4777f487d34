package tracking

import (
	"errors"
	"time"
)

const (
	DefaultAPIURL         = "http://localhost:3001"
	DefaultSessionTimeout = 30 * time.Minute
)

// Config configures a Tracker. Zero durations and an empty APIURL fall back
// to the defaults; a zero MaxRetries disables retries, so start from
// DefaultConfig when building a Config in code.
type Config struct {
	ClientID     string `env:"ALYTICA_CLIENT_ID"`
	ClientSecret string `env:"ALYTICA_CLIENT_SECRET"`
	APIURL       string `env:"ALYTICA_API_URL" envDefault:"http://localhost:3001"`

	Debug           bool `env:"ALYTICA_DEBUG" envDefault:"false"`
	Disabled        bool `env:"ALYTICA_DISABLED" envDefault:"false"`
	WaitForProfile  bool `env:"ALYTICA_WAIT_FOR_PROFILE" envDefault:"false"`
	ProcessProfiles bool `env:"ALYTICA_PROCESS_PROFILES" envDefault:"false"`

	SessionTimeout    time.Duration `env:"ALYTICA_SESSION_TIMEOUT" envDefault:"30m"`
	MaxRetries        int           `env:"ALYTICA_MAX_RETRIES" envDefault:"3"`
	InitialRetryDelay time.Duration `env:"ALYTICA_INITIAL_RETRY_DELAY" envDefault:"500ms"`
	RequestTimeout    time.Duration `env:"ALYTICA_REQUEST_TIMEOUT" envDefault:"10s"`
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig(clientID string) Config {
	return Config{
		ClientID:          clientID,
		APIURL:            DefaultAPIURL,
		SessionTimeout:    DefaultSessionTimeout,
		MaxRetries:        3,
		InitialRetryDelay: 500 * time.Millisecond,
		RequestTimeout:    10 * time.Second,
	}
}

// Validate reports configuration misuse.
func (c Config) Validate() error {
	var errs []error
	if c.ClientID == "" {
		errs = append(errs, ErrMissingClientID)
	}
	if c.SessionTimeout < 0 {
		errs = append(errs, ErrInvalidSessionTimeout)
	}
	if c.MaxRetries < 0 {
		errs = append(errs, ErrInvalidMaxRetries)
	}
	return errors.Join(errs...)
}

func (c Config) withDefaults() Config {
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	if c.SessionTimeout == 0 {
		c.SessionTimeout = DefaultSessionTimeout
	}
	if c.InitialRetryDelay == 0 {
		c.InitialRetryDelay = 500 * time.Millisecond
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 10 * time.Second
	}
	return c
}
