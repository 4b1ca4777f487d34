package alytica

import (
	"github.com/dmitrymomot/alytica/pkg/config"
	"github.com/dmitrymomot/alytica/pkg/tracking"
)

// Config configures a client. The embedded tracking.Config covers identity,
// sessions and delivery; the Track* toggles enable the auto-instrumentation
// observers.
type Config struct {
	tracking.Config

	TrackPageViews     bool `env:"ALYTICA_TRACK_PAGE_VIEWS" envDefault:"false"`
	TrackOutgoingLinks bool `env:"ALYTICA_TRACK_OUTGOING_LINKS" envDefault:"false"`
	TrackAttributes    bool `env:"ALYTICA_TRACK_ATTRIBUTES" envDefault:"false"`
	TrackHashChanges   bool `env:"ALYTICA_TRACK_HASH_CHANGES" envDefault:"false"`
	TrackWebVitals     bool `env:"ALYTICA_TRACK_WEB_VITALS" envDefault:"false"`
}

// DefaultConfig returns a Config with tracking defaults and every
// auto-instrumentation toggle off.
func DefaultConfig(clientID string) Config {
	return Config{Config: tracking.DefaultConfig(clientID)}
}

// LoadConfig reads the configuration from the environment and an optional
// .env file.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
