package downloads

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lmerle/replay/internal/catalog"
	"github.com/lmerle/replay/internal/embed"
)

// Retry configuration
const (
	maxAttempts    = 3
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Progress rows are advisory; flushing every chunk would hammer the
// database on fast links.
const progressStep int64 = 256 * 1024

// StreamSource resolves a video id to its stream manifest.
type StreamSource interface {
	Streams(ctx context.Context, videoID string) (*catalog.Streams, error)
}

// Worker drains the download queue, one transfer at a time.
type Worker struct {
	manager  *Manager
	catalog  StreamSource
	embedder *embed.Embedder
	musicDir string

	httpClient *http.Client
	backoff    time.Duration
	log        zerolog.Logger
}

// NewWorker creates a download worker writing into musicDir.
func NewWorker(m *Manager, source StreamSource, embedder *embed.Embedder, musicDir string, log zerolog.Logger) *Worker {
	return &Worker{
		manager:  m,
		catalog:  source,
		embedder: embedder,
		musicDir: musicDir,
		// No client timeout: transfers can be long, cancellation goes
		// through the request context.
		httpClient: &http.Client{},
		backoff:    initialBackoff,
		log:        log,
	}
}

// Run processes pending downloads until the queue is drained or the
// context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		d, err := w.manager.NextPending()
		if err != nil {
			return err
		}
		if d == nil {
			return nil
		}

		if err := w.process(ctx, d); err != nil {
			return err
		}
	}
}

// process runs a single download to completion. Transfer failures are
// recorded on the row; only infrastructure errors propagate.
func (w *Worker) process(ctx context.Context, d *Download) error {
	if err := w.manager.markDownloading(d.ID); err != nil {
		return err
	}

	path, err := w.downloadWithRetry(ctx, d)
	if err != nil {
		if ctx.Err() != nil {
			// Put the job back for the next run
			if reqErr := w.manager.markPending(d.ID); reqErr != nil {
				return reqErr
			}
			return ctx.Err()
		}
		w.log.Error().Err(err).Int64("id", d.ID).Str("video", d.VideoID).Msg("download failed")
		return w.manager.markFailed(d.ID, err.Error())
	}

	w.embedMetadata(ctx, d, path)

	if err := w.manager.markCompleted(d.ID, path); err != nil {
		return err
	}

	w.log.Info().Int64("id", d.ID).Str("video", d.VideoID).Str("path", path).Msg("download completed")
	return nil
}

func (w *Worker) embedMetadata(ctx context.Context, d *Download, path string) {
	meta := embed.Meta{
		Title:        d.Title,
		Artist:       d.Artist,
		Album:        d.Album,
		ThumbnailURL: d.ThumbnailURL,
	}
	if err := w.embedder.Embed(ctx, path, meta); err != nil {
		// The file itself is fine, keep it
		w.log.Warn().Err(err).Str("path", path).Msg("metadata embedding failed")
	}
}

func (w *Worker) downloadWithRetry(ctx context.Context, d *Download) (string, error) {
	var lastErr error
	backoff := w.backoff

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return "", lastErr
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxBackoff)
		}

		path, err := w.download(ctx, d)
		if err == nil {
			return path, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", lastErr
		}
		w.log.Warn().Err(err).Int("attempt", attempt).Str("video", d.VideoID).Msg("download attempt failed")
	}

	return "", lastErr
}

// download fetches the best audio stream to
// <musicDir>/<artist>/<title>.<ext>, reporting byte progress as it goes.
func (w *Worker) download(ctx context.Context, d *Download) (string, error) {
	streams, err := w.catalog.Streams(ctx, d.VideoID)
	if err != nil {
		return "", fmt.Errorf("resolve streams: %w", err)
	}

	stream := pickStream(streams.AudioStreams)
	if stream == nil {
		return "", fmt.Errorf("no audio stream for %s", d.VideoID)
	}

	title := d.Title
	if title == "" {
		title = streams.Title
	}

	dir := filepath.Join(w.musicDir, sanitizeFilename(d.Artist))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}
	path := filepath.Join(dir, sanitizeFilename(title)+streamExt(stream))

	if err := w.transfer(ctx, d.ID, stream, path); err != nil {
		return "", err
	}
	return path, nil
}

// transfer streams the audio into path via a temp file so a failed
// download never leaves a half-written track behind.
func (w *Worker) transfer(ctx context.Context, id int64, stream *catalog.AudioStream, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, stream.URL, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stream returned status %d", resp.StatusCode)
	}

	total := stream.ContentLength
	if total <= 0 {
		total = resp.ContentLength
	}

	tmpPath := path + ".part"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	progress := &progressWriter{manager: w.manager, id: id, total: total}
	_, copyErr := io.Copy(io.MultiWriter(f, progress), resp.Body)
	closeErr := f.Close()

	if copyErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("transfer: %w", copyErr)
	}
	if closeErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close file: %w", closeErr)
	}

	// Pin the final byte count
	_ = w.manager.updateProgress(id, progress.read, total)

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("move file: %w", err)
	}
	return nil
}

// progressWriter mirrors transferred byte counts into the queue row.
type progressWriter struct {
	manager *Manager
	id      int64
	total   int64
	read    int64
	flushed int64
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.read += int64(len(b))
	if p.read-p.flushed >= progressStep {
		_ = p.manager.updateProgress(p.id, p.read, p.total)
		p.flushed = p.read
	}
	return len(b), nil
}

// pickStream prefers m4a streams since that is the container the tag
// writer handles, falling back to the best stream of any container.
func pickStream(streams []catalog.AudioStream) *catalog.AudioStream {
	var m4a []catalog.AudioStream
	for _, s := range streams {
		if strings.Contains(s.MimeType, "mp4") {
			m4a = append(m4a, s)
		}
	}
	if best := catalog.BestAudio(m4a); best != nil {
		return best
	}
	return catalog.BestAudio(streams)
}

// streamExt maps a stream's container to a file extension.
func streamExt(s *catalog.AudioStream) string {
	switch {
	case strings.Contains(s.MimeType, "mp4"), s.Format == "M4A":
		return ".m4a"
	case strings.Contains(s.MimeType, "webm"):
		return ".webm"
	case strings.Contains(s.MimeType, "ogg"), strings.Contains(s.MimeType, "opus"):
		return ".opus"
	case strings.Contains(s.MimeType, "mpeg"):
		return ".mp3"
	default:
		return ".m4a"
	}
}

var (
	// illegalFileChars matches characters not allowed in filenames,
	// with surrounding whitespace.
	illegalFileChars = regexp.MustCompile(`\s*[/\\><*:|]+\s*`)
	questionMarks    = regexp.MustCompile(`[?¿]+`)
)

// sanitizeFilename makes a string safe to use as a single path element.
func sanitizeFilename(s string) string {
	s = questionMarks.ReplaceAllString(s, "")
	s = illegalFileChars.ReplaceAllString(s, " - ")
	s = strings.Trim(s, " .-")
	if s == "" {
		return "Unknown"
	}
	return s
}
