// Package app wires configuration, storage and clients into the
// services behind the CLI commands.
package app

import (
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"

	"github.com/lmerle/replay/internal/catalog"
	"github.com/lmerle/replay/internal/config"
	"github.com/lmerle/replay/internal/downloads"
	"github.com/lmerle/replay/internal/embed"
	"github.com/lmerle/replay/internal/history"
	"github.com/lmerle/replay/internal/importer"
	"github.com/lmerle/replay/internal/lastfm"
	"github.com/lmerle/replay/internal/library"
	"github.com/lmerle/replay/internal/logging"
	"github.com/lmerle/replay/internal/photos"
	"github.com/lmerle/replay/internal/playlists"
	"github.com/lmerle/replay/internal/scrobbler"
	"github.com/lmerle/replay/internal/spotify"
	"github.com/lmerle/replay/internal/state"
	"github.com/lmerle/replay/internal/station"
)

// App holds every wired service. Optional integrations stay nil when
// their credentials are missing; command methods check before use.
type App struct {
	Config *config.Config
	State  *state.State
	Log    zerolog.Logger

	History   *history.Store
	Playlists *playlists.Store
	Library   *library.Library
	Downloads *downloads.Manager

	Catalog *catalog.Client
	Spotify *spotify.Client // nil without credentials
	Lastfm  *lastfm.Client  // nil without credentials

	Photos        *photos.Service
	PhotoCache    *photos.Cache
	StationCache  *station.Cache
	Station       *station.Station // nil without Last.fm
	Importer      *importer.Importer
	Embedder      *embed.Embedder
	ScrobbleQueue *scrobbler.Queue
	Scrobbler     *scrobbler.Scrobbler // nil unless scrobbling is enabled
	Worker        *downloads.Worker
}

// New wires the application from configuration and an open database.
func New(cfg *config.Config, st *state.State, log zerolog.Logger) *App {
	db := st.DB()

	a := &App{
		Config:        cfg,
		State:         st,
		Log:           log,
		History:       history.New(db),
		Playlists:     playlists.New(db),
		Library:       library.New(db, logging.Component(log, "library")),
		Downloads:     downloads.New(db),
		ScrobbleQueue: scrobbler.NewQueue(db),
	}

	bases := []string{cfg.CatalogURL()}
	if cfg.Catalog.Fallback != "" {
		bases = append(bases, cfg.Catalog.Fallback)
	}
	a.Catalog = catalog.New(bases...)

	if cfg.HasSpotifyConfig() {
		a.Spotify = spotify.New(cfg.Spotify.ClientID, cfg.Spotify.ClientSecret)
	}
	if cfg.HasLastfmConfig() {
		a.Lastfm = lastfm.New(cfg.Lastfm.APIKey, cfg.Lastfm.APISecret)
	}

	photosCfg := cfg.GetPhotosConfig()
	a.PhotoCache = photos.NewCache(db, photosCfg.CacheTTLDays)
	sources := []photos.Source{a.Catalog}
	if a.Lastfm != nil {
		sources = append(sources, a.Lastfm)
	}
	a.Photos = photos.NewService(a.PhotoCache, sources, photosCfg.Workers,
		logging.Component(log, "photos"))

	stationCfg := cfg.GetStationConfig()
	a.StationCache = station.NewCache(db, stationCfg.CacheTTLDays)
	if a.Lastfm != nil {
		a.Station = station.New(db, a.History, a.Lastfm, stationCfg,
			logging.Component(log, "station"))
	}

	var spotifySource importer.SpotifySource
	if a.Spotify != nil {
		spotifySource = a.Spotify
	}
	a.Importer = importer.New(a.Catalog, spotifySource, a.Playlists,
		cfg.GetImportConfig().Workers, logging.Component(log, "importer"))

	a.Embedder = embed.New(logging.Component(log, "embed"))
	a.Worker = downloads.NewWorker(a.Downloads, a.Catalog, a.Embedder,
		MusicDir(cfg), logging.Component(log, "downloads"))

	if a.Lastfm != nil && cfg.Lastfm.Scrobble {
		a.Scrobbler = scrobbler.New(a.ScrobbleQueue, a.Lastfm,
			logging.Component(log, "scrobbler"))
	}

	return a
}

// MusicDir is where downloaded tracks land.
func MusicDir(cfg *config.Config) string {
	if cfg.MusicFolder != "" {
		return cfg.MusicFolder
	}
	return filepath.Join(xdg.UserDirs.Music, "replay")
}

// The clients double as sources for the services that consume them.
var (
	_ photos.Source          = (*catalog.Client)(nil)
	_ photos.Source          = (*lastfm.Client)(nil)
	_ importer.CatalogSource = (*catalog.Client)(nil)
	_ importer.SpotifySource = (*spotify.Client)(nil)
	_ downloads.StreamSource = (*catalog.Client)(nil)
	_ scrobbler.Submitter    = (*lastfm.Client)(nil)
	_ station.SimilarSource  = (*lastfm.Client)(nil)
)
