package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ICSFeedConfig describes one ICS subscription merged into the agenda
// alongside the Google calendars.
type ICSFeedConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for logging and event IDs.
	ID string `yaml:"id" json:"id"`
}

// GoogleConfig holds the OAuth2 client-credential pair and long-lived
// refresh token for the Calendar API. Acquisition of the refresh token is a
// one-time external setup flow.
type GoogleConfig struct {
	ClientID     string `yaml:"client_id" json:"client_id"`
	ClientSecret string `yaml:"client_secret" json:"client_secret"`
	RefreshToken string `yaml:"refresh_token" json:"refresh_token"`
}

// TransitConfig selects the departure board stop and vehicle categories.
type TransitConfig struct {
	// StopID is the provider's stop identifier.
	StopID string `yaml:"stop_id" json:"stop_id"`
	// Products lists the vehicle categories requested from the provider.
	// Categories not listed are excluded at the query level.
	Products []string `yaml:"products" json:"products"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the web endpoints.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA display timezone (e.g. "Europe/Berlin"). Every
	// clock time and day label on the dashboard is rendered in it.
	Timezone string `yaml:"timezone" json:"timezone"`

	// Latitude / Longitude are the fixed coordinates for the weather query.
	Latitude  float64 `yaml:"latitude" json:"latitude"`
	Longitude float64 `yaml:"longitude" json:"longitude"`

	// RefreshCron is a cron-style schedule (e.g. "*/5 * * * *") driving the
	// periodic screenshot capture.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// CalendarIDs lists the Google calendar identifiers to query.
	CalendarIDs []string `yaml:"calendar_ids" json:"calendar_ids"`

	// ICSFeeds lists additional ICS subscriptions merged into the agenda.
	ICSFeeds []ICSFeedConfig `yaml:"ics_feeds" json:"ics_feeds"`

	Google  GoogleConfig  `yaml:"google" json:"google"`
	Transit TransitConfig `yaml:"transit" json:"transit"`

	// ScreenPath is where the captured PNG is written and served from.
	ScreenPath string `yaml:"screen_path" json:"screen_path"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      "127.0.0.1:8080",
		Timezone:    "Europe/Berlin",
		Latitude:    52.52,
		Longitude:   13.405,
		RefreshCron: "*/5 * * * *",
		CalendarIDs: []string{"primary"},
		ICSFeeds:    []ICSFeedConfig{},
		Transit: TransitConfig{
			Products: []string{"suburban", "regional"},
		},
		ScreenPath: "/var/lib/kindledash/screen.png",
		BasicAuth:  nil,
	}
}

// Normalize fills in missing/zero values with defaults so partially-filled
// configs still behave, then applies environment overrides for credentials
// and identifiers (the .env surface of the original deployment).
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Timezone == "" {
		c.Timezone = "Europe/Berlin"
	}
	if c.Latitude == 0 && c.Longitude == 0 {
		c.Latitude = 52.52
		c.Longitude = 13.405
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/5 * * * *"
	}
	if len(c.CalendarIDs) == 0 {
		c.CalendarIDs = []string{"primary"}
	}
	if c.ICSFeeds == nil {
		c.ICSFeeds = []ICSFeedConfig{}
	}
	if len(c.Transit.Products) == 0 {
		c.Transit.Products = []string{"suburban", "regional"}
	}
	if c.ScreenPath == "" {
		c.ScreenPath = "/var/lib/kindledash/screen.png"
	}

	c.applyEnv()
}

// applyEnv lets environment variables win over the YAML file for values
// that typically live in a .env file rather than on disk.
func (c *Config) applyEnv() {
	if v := os.Getenv("GOOGLE_CLIENT_ID"); v != "" {
		c.Google.ClientID = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_SECRET"); v != "" {
		c.Google.ClientSecret = v
	}
	if v := os.Getenv("GOOGLE_REFRESH_TOKEN"); v != "" {
		c.Google.RefreshToken = v
	}
	if v := os.Getenv("GOOGLE_CALENDAR_IDS"); v != "" {
		ids := make([]string, 0)
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		if len(ids) > 0 {
			c.CalendarIDs = ids
		}
	}
	if v := os.Getenv("TRANSIT_STATION_ID"); v != "" {
		c.Transit.StopID = v
	}
	if v := os.Getenv("KINDLEDASH_TIMEZONE"); v != "" {
		c.Timezone = v
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written (0600, parent
//     directory created) and returned.
//   - If the file exists, it is unmarshaled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			cfg.Normalize()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the configuration atomically (temp file + rename) with 0600
// permissions, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".kindledash-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
