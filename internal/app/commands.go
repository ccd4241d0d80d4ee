package app

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/lmerle/replay/internal/artist"
	"github.com/lmerle/replay/internal/catalog"
	"github.com/lmerle/replay/internal/daemon"
	"github.com/lmerle/replay/internal/downloads"
	"github.com/lmerle/replay/internal/history"
	"github.com/lmerle/replay/internal/importer"
	"github.com/lmerle/replay/internal/lastfm"
	"github.com/lmerle/replay/internal/library"
	"github.com/lmerle/replay/internal/logging"
	"github.com/lmerle/replay/internal/scrobbler"
	"github.com/lmerle/replay/internal/spotify"
	"github.com/lmerle/replay/internal/station"
	"github.com/lmerle/replay/internal/stats"
)

// Last.fm rejects scrobbles for tracks shorter than 30 seconds.
const minScrobbleSecs = 30

// ArtistsView aggregates online history and library credits into the
// artists list. Local play history is left out: a played library track
// is already represented by its library row. With fetchPhotos, missing
// photos are resolved first; the view always reads whatever the cache
// holds.
func (a *App) ArtistsView(ctx context.Context, fetchPhotos bool) ([]artist.View, error) {
	online, err := a.History.Credits(history.SourceOnline)
	if err != nil {
		return nil, fmt.Errorf("load online credits: %w", err)
	}
	local, err := a.Library.Credits()
	if err != nil {
		return nil, fmt.Errorf("load library credits: %w", err)
	}
	credits := append(online, local...)

	names := artistNames(artist.Aggregate(credits, nil))
	if fetchPhotos {
		if err := a.Photos.FetchAll(ctx, names); err != nil {
			return nil, err
		}
	}
	snapshot, err := a.Photos.Lookup(names)
	if err != nil {
		return nil, fmt.Errorf("load photo cache: %w", err)
	}
	return artist.Aggregate(credits, snapshot), nil
}

func artistNames(views []artist.View) []string {
	names := make([]string, len(views))
	for i, v := range views {
		names[i] = v.Name
	}
	return names
}

// RecordPlay stores the play and, when scrobbling is enabled, queues
// the scrobble. A failed enqueue is logged, not returned: the play
// itself is already recorded.
func (a *App) RecordPlay(p history.Play) error {
	if err := a.History.RecordPlay(p); err != nil {
		return err
	}
	if a.Scrobbler == nil || p.Title == "" || p.ArtistText == "" {
		return nil
	}
	if p.DurationSecs > 0 && p.DurationSecs < minScrobbleSecs {
		return nil
	}
	if err := a.ScrobbleQueue.Enqueue(p.ArtistText, p.Title, p.Album, time.Now()); err != nil {
		a.Log.Warn().Err(err).Msg("scrobble enqueue failed")
	}
	return nil
}

// Import brings a playlist URL into the store, dispatching on the URL
// shape. Spotify URLs need configured credentials.
func (a *App) Import(ctx context.Context, rawURL string) (*importer.Result, error) {
	if spotify.PlaylistID(rawURL) != "" {
		if a.Spotify == nil {
			return nil, spotify.ErrNotConfigured
		}
		return a.Importer.ImportSpotify(ctx, rawURL)
	}
	return a.Importer.ImportYouTube(ctx, rawURL)
}

// Suggest returns up to n station suggestions.
func (a *App) Suggest(ctx context.Context, n int) ([]station.Suggestion, error) {
	if a.Station == nil {
		return nil, errors.New("suggestions require last.fm api credentials")
	}
	return a.Station.Suggestions(ctx, n)
}

// Scan walks the configured library sources.
func (a *App) Scan(ctx context.Context) (*library.ScanStats, error) {
	if len(a.Config.LibrarySources) == 0 {
		return nil, errors.New("no library sources configured")
	}
	return a.Library.Scan(ctx, a.Config.LibrarySources)
}

// Stats collects the listening report.
func (a *App) Stats(topN int) (*stats.Summary, error) {
	return stats.Collect(a.History, a.Library, topN)
}

var bareIDPattern = regexp.MustCompile(`^[0-9A-Za-z_-]{11}$`)

// QueueDownload queues a track for download. arg is a watch URL, a bare
// video id, or a search query resolved to its first song hit.
func (a *App) QueueDownload(ctx context.Context, arg string) (*downloads.Download, error) {
	videoID := catalog.VideoID(arg)
	if videoID == "" && bareIDPattern.MatchString(arg) {
		videoID = arg
	}

	var title, artistText, thumb string
	if videoID != "" {
		streams, err := a.Catalog.Streams(ctx, videoID)
		if err != nil {
			return nil, fmt.Errorf("resolve video: %w", err)
		}
		title = streams.Title
		artistText = catalog.UploaderArtist(streams.Uploader)
		thumb = streams.ThumbnailURL
	} else {
		items, err := a.Catalog.Search(ctx, arg, catalog.FilterSongs)
		if err != nil {
			return nil, fmt.Errorf("search catalog: %w", err)
		}
		for _, item := range items {
			if id := catalog.VideoID(item.URL); id != "" {
				videoID = id
				title = item.Title
				artistText = catalog.UploaderArtist(item.UploaderName)
				thumb = item.Thumbnail
				break
			}
		}
		if videoID == "" {
			return nil, fmt.Errorf("no result for %q", arg)
		}
	}

	id, err := a.Downloads.Queue(videoID, title, artistText, "", thumb)
	if err != nil {
		return nil, err
	}
	return a.Downloads.Get(id)
}

// FlushScrobbles logs in when needed and drains the scrobble queue.
// A rejected session key is dropped so the next run logs in fresh.
func (a *App) FlushScrobbles(ctx context.Context) (int, error) {
	if a.Scrobbler == nil {
		return 0, errors.New("scrobbling is not enabled in the config")
	}
	if err := a.ensureLastfmSession(); err != nil {
		return 0, err
	}

	n, err := a.Scrobbler.Flush(ctx)
	if err != nil && lastfm.IsAuthError(err) {
		if delErr := a.State.DeleteLastfmSession(); delErr != nil {
			a.Log.Warn().Err(delErr).Msg("could not unlink last.fm session")
		}
	}
	return n, err
}

// ensureLastfmSession restores the stored session key, falling back to
// a username/password login whose key is then stored for later runs.
func (a *App) ensureLastfmSession() error {
	if a.Lastfm.IsAuthenticated() {
		return nil
	}

	if sess, err := a.State.GetLastfmSession(); err == nil && sess != nil {
		a.Lastfm.SetSessionKey(sess.Username, sess.SessionKey)
		return nil
	}

	if a.Config.Lastfm.Username == "" || a.Config.Lastfm.Password == "" {
		return fmt.Errorf("last.fm username and password required: %w", lastfm.ErrNotAuthenticated)
	}
	if err := a.Lastfm.Login(a.Config.Lastfm.Username, a.Config.Lastfm.Password); err != nil {
		return fmt.Errorf("last.fm login: %w", err)
	}
	if key := a.Lastfm.SessionKey(); key != "" {
		if err := a.State.SaveLastfmSession(a.Lastfm.Username(), key); err != nil {
			a.Log.Warn().Err(err).Msg("could not store last.fm session")
		}
	}
	return nil
}

func (a *App) daemonOptions(scrob *scrobbler.Scrobbler, worker *downloads.Worker) daemon.Options {
	return daemon.Options{
		History:      a.History,
		PhotoCache:   a.PhotoCache,
		StationCache: a.StationCache,
		Scrobbler:    scrob,
		Worker:       worker,
		Downloads:    a.Downloads,
		HistoryKeep:  a.Config.GetHistoryConfig().MaxRecords,
	}
}

// Daemon assembles the background daemon. A failed Last.fm login
// disables scrobbling for the run instead of blocking startup.
func (a *App) Daemon() *daemon.Daemon {
	scrob := a.Scrobbler
	if scrob != nil {
		if err := a.ensureLastfmSession(); err != nil {
			a.Log.Warn().Err(err).Msg("scrobbling disabled for this run")
			scrob = nil
		}
	}
	return daemon.New(a.daemonOptions(scrob, a.Worker), logging.Component(a.Log, "daemon"))
}

// Maintain runs the nightly maintenance pass immediately.
func (a *App) Maintain() error {
	d := daemon.New(a.daemonOptions(nil, nil), logging.Component(a.Log, "maintenance"))
	return d.RunMaintenanceNow()
}
