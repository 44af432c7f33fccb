// Package worms provides a client for the WoRMS (World Register of Marine
// Species) REST API, used to normalize AphiaIDs to their accepted taxa.
package worms

import (
	"time"

	"github.com/obistack/occurrence-go/internal/conf"
)

// Config holds configuration for the WoRMS client
type Config struct {
	BaseURL     string        // WoRMS REST API base URL
	Timeout     time.Duration // per-request timeout
	CacheTTL    time.Duration // how long resolved IDs stay cached
	RateLimit   time.Duration // minimum interval between requests
	BatchSize   int           // AphiaIDs per batch request
	MaxRetries  int           // retry attempts for transient failures
	MaxInFlight int           // concurrent batch requests
}

// DefaultConfig returns the default WoRMS client configuration
func DefaultConfig() Config {
	return Config{
		BaseURL:     "https://www.marinespecies.org/rest",
		Timeout:     10 * time.Second,
		CacheTTL:    60 * time.Minute,
		RateLimit:   200 * time.Millisecond,
		BatchSize:   50,
		MaxRetries:  3,
		MaxInFlight: 4,
	}
}

// ConfigFromSettings builds a client configuration from application settings,
// falling back to defaults for unset values.
func ConfigFromSettings(settings *conf.Settings) Config {
	config := DefaultConfig()

	if settings.WoRMS.Endpoint != "" {
		config.BaseURL = settings.WoRMS.Endpoint
	}
	if settings.WoRMS.TimeoutSec > 0 {
		config.Timeout = time.Duration(settings.WoRMS.TimeoutSec) * time.Second
	}
	if settings.WoRMS.CacheTTLMin > 0 {
		config.CacheTTL = time.Duration(settings.WoRMS.CacheTTLMin) * time.Minute
	}
	if settings.WoRMS.RateLimitMS > 0 {
		config.RateLimit = time.Duration(settings.WoRMS.RateLimitMS) * time.Millisecond
	}
	if settings.WoRMS.BatchSize > 0 {
		config.BatchSize = settings.WoRMS.BatchSize
	}
	if settings.WoRMS.MaxRetries > 0 {
		config.MaxRetries = settings.WoRMS.MaxRetries
	}
	if settings.WoRMS.MaxInFlight > 0 {
		config.MaxInFlight = settings.WoRMS.MaxInFlight
	}

	return config
}

// AphiaRecord is the subset of a WoRMS Aphia record this client consumes.
type AphiaRecord struct {
	AphiaID        int64  `json:"AphiaID"`
	ValidAphiaID   *int64 `json:"valid_AphiaID"`
	ScientificName string `json:"scientificname"`
	Status         string `json:"status"`
}
