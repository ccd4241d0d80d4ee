// Package config loads the replay configuration from TOML files.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	LibrarySources []string `koanf:"library_sources"` // paths to scan for local music
	MusicFolder    string   `koanf:"music_folder"`    // where downloads land
	LogLevel       string   `koanf:"log_level"`       // debug, info, warn, error

	// Catalog API (Piped-compatible instance)
	Catalog CatalogConfig `koanf:"catalog"`

	// Spotify Web API credentials (enables Spotify playlist import)
	Spotify SpotifyConfig `koanf:"spotify"`

	// Last.fm (enables scrobbling, similar artists and photo fallback)
	Lastfm LastfmConfig `koanf:"lastfm"`

	// History retention and recording
	History HistoryConfig `koanf:"history"`

	// Artist photo fetching
	Photos PhotosConfig `koanf:"photos"`

	// Suggestion station settings
	Station StationConfig `koanf:"station"`

	// Playlist import settings
	Import ImportConfig `koanf:"import"`
}

// CatalogConfig holds the catalog API configuration.
type CatalogConfig struct {
	URL      string `koanf:"url"`      // e.g. "https://pipedapi.kavin.rocks"
	Fallback string `koanf:"fallback"` // optional second instance tried on error
}

// SpotifyConfig holds Spotify Web API credentials.
type SpotifyConfig struct {
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
}

// LastfmConfig holds Last.fm configuration.
type LastfmConfig struct {
	APIKey    string `koanf:"api_key"`
	APISecret string `koanf:"api_secret"`
	Username  string `koanf:"username"`
	Password  string `koanf:"password"`
	Scrobble  bool   `koanf:"scrobble"` // enqueue plays for scrobbling
}

// HistoryConfig holds history retention settings.
type HistoryConfig struct {
	MaxRecords int `koanf:"max_records"` // per-source cap enforced by maintenance (default: 500)
}

// PhotosConfig holds artist photo fetch settings.
type PhotosConfig struct {
	CacheTTLDays int `koanf:"cache_ttl_days"` // photo cache TTL in days (default: 30)
	Workers      int `koanf:"workers"`        // concurrent fetches (1-16, default: 4)
}

// StationConfig holds suggestion station settings.
type StationConfig struct {
	Seeds                int     `koanf:"seeds"`                  // top artists used as seeds (default: 5)
	CacheTTLDays         int     `koanf:"cache_ttl_days"`         // similar-artists cache TTL (default: 7)
	ArtistMatchThreshold float64 `koanf:"artist_match_threshold"` // fuzzy match threshold (0.0-1.0, default: 0.8)
	KnownBoost           float64 `koanf:"known_boost"`            // multiplier for artists already in history (default: 1.3)
	SkipPenalty          float64 `koanf:"skip_penalty"`           // multiplier per recorded skip (default: 0.7)
}

// ImportConfig holds playlist import settings.
type ImportConfig struct {
	Workers int `koanf:"workers"` // concurrent track resolutions (1-8, default: 4)
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Try config files in order of priority (last wins)
	for _, path := range getConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	return decode(k)
}

// LoadFrom reads configuration from a single explicit file, skipping the
// usual search paths. The file must exist.
func LoadFrom(path string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return nil, err
	}
	return decode(k)
}

func decode(k *koanf.Koanf) (*Config, error) {
	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	for i, src := range cfg.LibrarySources {
		cfg.LibrarySources[i] = expandPath(src)
	}
	if cfg.MusicFolder != "" {
		cfg.MusicFolder = expandPath(cfg.MusicFolder)
	}

	// Normalize instance URLs (remove trailing slash)
	cfg.Catalog.URL = strings.TrimSuffix(cfg.Catalog.URL, "/")
	cfg.Catalog.Fallback = strings.TrimSuffix(cfg.Catalog.Fallback, "/")

	return cfg, nil
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/replay/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "replay", "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// HasSpotifyConfig returns true if Spotify playlist import is configured.
func (c *Config) HasSpotifyConfig() bool {
	return c.Spotify.ClientID != "" && c.Spotify.ClientSecret != ""
}

// HasLastfmConfig returns true if Last.fm integration is configured.
func (c *Config) HasLastfmConfig() bool {
	return c.Lastfm.APIKey != "" && c.Lastfm.APISecret != ""
}

// GetHistoryConfig returns history settings with defaults applied.
func (c *Config) GetHistoryConfig() HistoryConfig {
	cfg := c.History
	if cfg.MaxRecords <= 0 {
		cfg.MaxRecords = 500
	}
	return cfg
}

// GetPhotosConfig returns photo fetch settings with defaults applied.
func (c *Config) GetPhotosConfig() PhotosConfig {
	cfg := c.Photos
	if cfg.CacheTTLDays <= 0 {
		cfg.CacheTTLDays = 30
	}
	if cfg.Workers <= 0 || cfg.Workers > 16 {
		cfg.Workers = 4
	}
	return cfg
}

// GetStationConfig returns station settings with defaults applied.
func (c *Config) GetStationConfig() StationConfig {
	cfg := c.Station

	if cfg.Seeds <= 0 || cfg.Seeds > 20 {
		cfg.Seeds = 5
	}
	if cfg.CacheTTLDays <= 0 {
		cfg.CacheTTLDays = 7
	}
	if cfg.ArtistMatchThreshold <= 0 || cfg.ArtistMatchThreshold > 1 {
		cfg.ArtistMatchThreshold = 0.8
	}
	if cfg.KnownBoost <= 0 {
		cfg.KnownBoost = 1.3
	}
	if cfg.SkipPenalty <= 0 || cfg.SkipPenalty > 1 {
		cfg.SkipPenalty = 0.7
	}

	return cfg
}

// GetImportConfig returns import settings with defaults applied.
func (c *Config) GetImportConfig() ImportConfig {
	cfg := c.Import
	if cfg.Workers <= 0 || cfg.Workers > 8 {
		cfg.Workers = 4
	}
	return cfg
}

// CatalogURL returns the configured catalog instance or the public default.
func (c *Config) CatalogURL() string {
	if c.Catalog.URL != "" {
		return c.Catalog.URL
	}
	return "https://pipedapi.kavin.rocks"
}
