package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/lmerle/replay/internal/app"
	"github.com/lmerle/replay/internal/config"
	"github.com/lmerle/replay/internal/downloads"
	"github.com/lmerle/replay/internal/embed"
	"github.com/lmerle/replay/internal/errmsg"
	"github.com/lmerle/replay/internal/history"
	"github.com/lmerle/replay/internal/logging"
	"github.com/lmerle/replay/internal/state"
	"github.com/lmerle/replay/internal/stats"
)

const usageText = `replay tracks what you listen to and where to find more of it.

Usage: replay [flags] <command> [command flags] [args]

Commands:
  artists         aggregated artist view from history and the local library
  record          record a play or a skip (record play|skip <source> <track-id>)
  history         recent listening history
  suggest         similar-artist suggestions seeded from history
  import          import a YouTube or Spotify playlist by URL
  playlists       manage imported playlists (list|show|rename|delete)
  scan            scan configured library folders
  stats           listening statistics
  download        queue an audio download by URL, video id or search query
  downloads       manage the download queue (list|run|clear)
  embed           write tags and cover art into a music file
  scrobble-flush  submit queued scrobbles to Last.fm
  maintain        run maintenance once: trim history, clean caches
  daemon          run the background schedule until interrupted

Flags:
`

func main() {
	configPath := flag.String("config", "", "load configuration from this file only")
	dbPath := flag.String("db", "", "state database path (default: xdg data dir)")
	logLevel := flag.String("log-level", "", "debug, info, warn or error")
	jsonLog := flag.Bool("json", false, "JSON log output even on a terminal")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usageText)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatal(errmsg.Wrap(errmsg.OpInitialize, err))
	}

	level := cfg.LogLevel
	if *logLevel != "" {
		level = *logLevel
	}
	log := logging.New(logging.Config{Level: level, JSON: *jsonLog})

	st, err := openState(*dbPath)
	if err != nil {
		fatal(errmsg.Wrap(errmsg.OpInitialize, err))
	}

	a := app.New(cfg, st, log)

	// Ctrl-C cancels whatever command is in flight.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		cancel()
	}()

	err = run(ctx, a, flag.Arg(0), flag.Args()[1:])
	st.Close()
	if err != nil {
		fatal(err)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

func openState(path string) (*state.State, error) {
	if path != "" {
		return state.OpenAt(path)
	}
	return state.Open()
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func run(ctx context.Context, a *app.App, cmd string, args []string) error {
	switch cmd {
	case "artists":
		return cmdArtists(ctx, a, args)
	case "record":
		return cmdRecord(a, args)
	case "history":
		return cmdHistory(a, args)
	case "suggest":
		return cmdSuggest(ctx, a, args)
	case "import":
		return cmdImport(ctx, a, args)
	case "playlists":
		return cmdPlaylists(a, args)
	case "scan":
		return cmdScan(ctx, a)
	case "stats":
		return cmdStats(a, args)
	case "download":
		return cmdDownload(ctx, a, args)
	case "downloads":
		return cmdDownloads(ctx, a, args)
	case "embed":
		return cmdEmbed(ctx, a, args)
	case "scrobble-flush":
		return cmdScrobbleFlush(ctx, a)
	case "maintain":
		return cmdMaintain(a)
	case "daemon":
		return cmdDaemon(ctx, a)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		flag.Usage()
		os.Exit(2)
		return nil
	}
}

func cmdArtists(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("artists", flag.ExitOnError)
	fetch := fs.Bool("photos", false, "fetch missing artist photos before listing")
	_ = fs.Parse(args)

	views, err := a.ArtistsView(ctx, *fetch)
	if err != nil {
		return errmsg.Wrap(errmsg.OpArtistsLoad, err)
	}
	if len(views) == 0 {
		fmt.Println("No listening history yet.")
		return nil
	}

	w := newTable()
	fmt.Fprintln(w, "NAME\tSONGS\tONLINE\tPHOTO")
	for _, v := range views {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", v.Name, v.SongCount, mark(v.Online), mark(v.ImageURL != ""))
	}
	return w.Flush()
}

func cmdRecord(a *app.App, args []string) error {
	usage := errors.New("usage: replay record play|skip [flags] <source> <track-id>")
	if len(args) == 0 || (args[0] != "play" && args[0] != "skip") {
		return usage
	}
	action := args[0]

	fs := flag.NewFlagSet("record", flag.ExitOnError)
	title := fs.String("title", "", "track title")
	artistText := fs.String("artist", "", "artist credit as displayed")
	album := fs.String("album", "", "album name")
	duration := fs.Int("duration", 0, "track length in seconds")
	thumb := fs.String("thumb", "", "thumbnail URL")
	_ = fs.Parse(args[1:])

	source, trackID := fs.Arg(0), fs.Arg(1)
	if source == "" || trackID == "" {
		return usage
	}
	if source != history.SourceOnline && source != history.SourceLocal {
		return fmt.Errorf("unknown source %q (expected %s or %s)", source, history.SourceOnline, history.SourceLocal)
	}

	if action == "skip" {
		if err := a.History.RecordSkip(source, trackID); err != nil {
			return errmsg.Wrap(errmsg.OpHistorySkip, err)
		}
		fmt.Println("Recorded skip.")
		return nil
	}

	err := a.RecordPlay(history.Play{
		Source:       source,
		TrackID:      trackID,
		Title:        *title,
		ArtistText:   *artistText,
		Album:        *album,
		DurationSecs: *duration,
		ThumbnailURL: *thumb,
	})
	if err != nil {
		return errmsg.Wrap(errmsg.OpHistoryRecord, err)
	}
	fmt.Println("Recorded play.")
	return nil
}

func cmdHistory(a *app.App, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	source := fs.String("source", history.SourceOnline, "online or local")
	limit := fs.Int("limit", 20, "maximum records to show")
	_ = fs.Parse(args)

	records, err := a.History.Recent(*source, *limit)
	if err != nil {
		return errmsg.Wrap(errmsg.OpHistoryLoad, err)
	}
	if len(records) == 0 {
		fmt.Println("No listening history yet.")
		return nil
	}

	w := newTable()
	fmt.Fprintln(w, "TITLE\tARTIST\tPLAYS\tSKIPS\tLAST PLAYED")
	for _, r := range records {
		title := r.Title
		if title == "" {
			title = r.TrackID
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
			title, r.ArtistText, r.PlayCount, r.SkipCount,
			humanize.Time(time.Unix(r.LastPlayedAt, 0)))
	}
	return w.Flush()
}

func cmdSuggest(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("suggest", flag.ExitOnError)
	n := fs.Int("n", 10, "number of suggestions")
	_ = fs.Parse(args)

	suggestions, err := a.Suggest(ctx, *n)
	if err != nil {
		return errmsg.Wrap(errmsg.OpSuggest, err)
	}
	if len(suggestions) == 0 {
		fmt.Println("No suggestions yet. Listen to some music first.")
		return nil
	}

	w := newTable()
	for i, s := range suggestions {
		fmt.Fprintf(w, "%d.\t%s\t%s\n", i+1, s.Artist, s.Reason)
	}
	return w.Flush()
}

func cmdImport(ctx context.Context, a *app.App, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: replay import <playlist-url>")
	}

	result, err := a.Import(ctx, args[0])
	if err != nil {
		return errmsg.Wrap(errmsg.OpImportPlaylist, err)
	}

	fmt.Printf("Imported %q: %d of %d tracks (playlist %d)\n",
		result.Name, result.Imported, result.Total, result.PlaylistID)
	for _, title := range result.Failed {
		fmt.Printf("  could not import: %s\n", title)
	}
	return nil
}

func cmdPlaylists(a *app.App, args []string) error {
	sub := "list"
	if len(args) > 0 {
		sub = args[0]
		args = args[1:]
	}

	switch sub {
	case "list":
		return playlistList(a)
	case "show":
		if len(args) != 1 {
			return errors.New("usage: replay playlists show <id>")
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return playlistShow(a, id)
	case "rename":
		if len(args) != 2 {
			return errors.New("usage: replay playlists rename <id> <name>")
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if err := a.Playlists.Rename(id, args[1]); err != nil {
			return errmsg.Wrap(errmsg.OpPlaylistRename, err)
		}
		fmt.Printf("Renamed playlist %d to %q\n", id, args[1])
		return nil
	case "delete":
		if len(args) != 1 {
			return errors.New("usage: replay playlists delete <id>")
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if err := a.Playlists.Delete(id); err != nil {
			return errmsg.Wrap(errmsg.OpPlaylistDelete, err)
		}
		fmt.Printf("Deleted playlist %d\n", id)
		return nil
	default:
		return fmt.Errorf("unknown playlists command %q (expected list, show, rename or delete)", sub)
	}
}

func playlistList(a *app.App) error {
	lists, err := a.Playlists.List()
	if err != nil {
		return errmsg.Wrap(errmsg.OpPlaylistList, err)
	}
	if len(lists) == 0 {
		fmt.Println("No playlists imported yet.")
		return nil
	}

	w := newTable()
	fmt.Fprintln(w, "ID\tNAME\tSOURCE\tTRACKS\tIMPORTED")
	for _, p := range lists {
		count, err := a.Playlists.TrackCount(p.ID)
		if err != nil {
			return errmsg.Wrap(errmsg.OpPlaylistList, err)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n",
			p.ID, p.Name, p.Source, count, humanize.Time(time.Unix(p.CreatedAt, 0)))
	}
	return w.Flush()
}

func playlistShow(a *app.App, id int64) error {
	p, err := a.Playlists.Get(id)
	if err != nil {
		return errmsg.Wrap(errmsg.OpPlaylistShow, err)
	}
	tracks, err := a.Playlists.Tracks(id)
	if err != nil {
		return errmsg.Wrap(errmsg.OpPlaylistShow, err)
	}

	fmt.Printf("%s (%s, %s)\n\n", p.Name, p.Source, english.Plural(len(tracks), "track", ""))
	w := newTable()
	for _, tr := range tracks {
		fmt.Fprintf(w, "%d.\t%s\t%s\t%s\n",
			tr.Position+1, tr.Title, tr.ArtistText, formatDuration(tr.DurationSecs))
	}
	return w.Flush()
}

func cmdScan(ctx context.Context, a *app.App) error {
	scanStats, err := a.Scan(ctx)
	if err != nil {
		return errmsg.Wrap(errmsg.OpLibraryScan, err)
	}
	fmt.Printf("Scanned %s: %d added, %d updated, %d removed, %d failed\n",
		english.Plural(scanStats.Discovered, "file", ""),
		scanStats.Added, scanStats.Updated, scanStats.Removed, scanStats.Failed)
	return nil
}

func cmdStats(a *app.App, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	top := fs.Int("top", 10, "entries per listing")
	_ = fs.Parse(args)

	summary, err := a.Stats(*top)
	if err != nil {
		return errmsg.Wrap(errmsg.OpStatsLoad, err)
	}
	return stats.Render(os.Stdout, summary)
}

func cmdDownload(ctx context.Context, a *app.App, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: replay download <url|video-id|search query>")
	}

	d, err := a.QueueDownload(ctx, strings.Join(args, " "))
	if err != nil {
		return errmsg.Wrap(errmsg.OpDownloadQueue, err)
	}
	if d.Artist != "" {
		fmt.Printf("Queued download %d: %s by %s\n", d.ID, d.Title, d.Artist)
	} else {
		fmt.Printf("Queued download %d: %s\n", d.ID, d.Title)
	}
	fmt.Println("Run it with: replay downloads run")
	return nil
}

func cmdDownloads(ctx context.Context, a *app.App, args []string) error {
	sub := "list"
	if len(args) > 0 {
		sub = args[0]
	}

	switch sub {
	case "list":
		return downloadsList(a)
	case "run":
		return downloadsRun(ctx, a)
	case "clear":
		if err := a.Downloads.ClearCompleted(); err != nil {
			return errmsg.Wrap(errmsg.OpDownloadClear, err)
		}
		fmt.Println("Cleared completed downloads.")
		return nil
	default:
		return fmt.Errorf("unknown downloads command %q (expected list, run or clear)", sub)
	}
}

func downloadsList(a *app.App) error {
	list, err := a.Downloads.List()
	if err != nil {
		return errmsg.Wrap(errmsg.OpDownloadList, err)
	}
	if len(list) == 0 {
		fmt.Println("Download queue is empty.")
		return nil
	}

	w := newTable()
	fmt.Fprintln(w, "ID\tSTATUS\tTITLE\tARTIST\tDETAIL")
	for _, d := range list {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", d.ID, d.Status, d.Title, d.Artist, downloadDetail(d))
	}
	return w.Flush()
}

func downloadDetail(d downloads.Download) string {
	switch d.Status {
	case downloads.StatusCompleted:
		return d.Path
	case downloads.StatusFailed:
		return d.Error
	case downloads.StatusDownloading:
		if d.TotalBytes > 0 {
			return fmt.Sprintf("%s of %s", humanize.Bytes(uint64(d.BytesRead)), humanize.Bytes(uint64(d.TotalBytes)))
		}
		return humanize.Bytes(uint64(d.BytesRead))
	default:
		return ""
	}
}

func downloadsRun(ctx context.Context, a *app.App) error {
	n, err := a.Downloads.RequeueStalled()
	if err != nil {
		return errmsg.Wrap(errmsg.OpDownloadRun, err)
	}
	if n > 0 {
		fmt.Printf("Requeued %s\n", english.Plural(int(n), "stalled download", ""))
	}

	if err := a.Worker.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return errmsg.Wrap(errmsg.OpDownloadRun, err)
	}
	fmt.Println("Download queue drained.")
	return nil
}

func cmdEmbed(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("embed", flag.ExitOnError)
	title := fs.String("title", "", "track title")
	artistText := fs.String("artist", "", "artist name")
	album := fs.String("album", "", "album name")
	cover := fs.String("cover", "", "cover art URL")
	_ = fs.Parse(args)

	path := fs.Arg(0)
	if path == "" || *title == "" || *artistText == "" {
		return errors.New("usage: replay embed -title <title> -artist <artist> [-album <album>] [-cover <url>] <file>")
	}

	meta := embed.Meta{Title: *title, Artist: *artistText, Album: *album, ThumbnailURL: *cover}
	if err := a.Embedder.Embed(ctx, path, meta); err != nil {
		return errors.New(errmsg.FormatWith(errmsg.OpEmbedTags, filepath.Base(path), err))
	}
	fmt.Printf("Tagged %s\n", path)
	return nil
}

func cmdScrobbleFlush(ctx context.Context, a *app.App) error {
	n, err := a.FlushScrobbles(ctx)
	if err != nil {
		return errmsg.Wrap(errmsg.OpScrobbleFlush, err)
	}
	if n == 0 {
		fmt.Println("Nothing queued to scrobble.")
		return nil
	}
	fmt.Printf("Submitted %s\n", english.Plural(n, "scrobble", ""))
	return nil
}

func cmdMaintain(a *app.App) error {
	if err := a.Maintain(); err != nil {
		return errmsg.Wrap(errmsg.OpMaintain, err)
	}
	fmt.Println("Maintenance finished.")
	return nil
}

func cmdDaemon(ctx context.Context, a *app.App) error {
	if err := a.Daemon().Run(ctx); err != nil {
		return errmsg.Wrap(errmsg.OpDaemonRun, err)
	}
	return nil
}

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
}

func mark(b bool) string {
	if b {
		return "yes"
	}
	return "-"
}

func formatDuration(secs int) string {
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad playlist id %q", s)
	}
	return id, nil
}
