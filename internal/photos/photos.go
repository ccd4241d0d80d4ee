package photos

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Source resolves an artist name to a photo URL. An empty URL without an
// error means the source has no photo for that artist.
type Source interface {
	ArtistImage(ctx context.Context, name string) (string, error)
}

// Service fetches and caches artist photos.
type Service struct {
	cache   *Cache
	sources []Source
	workers int
	log     zerolog.Logger
}

// NewService creates a photo service. Sources are tried in order until
// one returns a URL.
func NewService(cache *Cache, sources []Source, workers int, log zerolog.Logger) *Service {
	if workers <= 0 {
		workers = 4
	}
	return &Service{
		cache:   cache,
		sources: sources,
		workers: workers,
		log:     log,
	}
}

type fetchResult struct {
	name string
	url  string
}

// FetchAll resolves photos for every name not already cached. Fetches run
// on a bounded worker pool; results (including misses) are written to the
// cache sequentially. Individual fetch failures are logged and skipped,
// a cancelled context aborts the remainder.
func (s *Service) FetchAll(ctx context.Context, names []string) error {
	missing, err := s.missingNames(names)
	if err != nil {
		return err
	}
	if len(missing) == 0 {
		return nil
	}

	workCh := make(chan string, len(missing))
	resultCh := make(chan fetchResult, len(missing))

	var fetched, failed atomic.Int64

	var wg sync.WaitGroup
	for range s.workers {
		wg.Go(func() {
			for name := range workCh {
				if ctx.Err() != nil {
					continue
				}
				url, ok := s.fetchOne(ctx, name)
				if !ok {
					failed.Add(1)
					continue
				}
				fetched.Add(1)
				resultCh <- fetchResult{name: name, url: url}
			}
		})
	}

	go func() {
		for _, name := range missing {
			workCh <- name
		}
		close(workCh)
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// Cache writes stay sequential to avoid SQLite contention.
	for r := range resultCh {
		if err := s.cache.Set(r.name, r.url); err != nil {
			s.log.Warn().Err(err).Str("artist", r.name).Msg("cache photo")
		}
	}

	s.log.Debug().
		Int64("fetched", fetched.Load()).
		Int64("failed", failed.Load()).
		Int("cached", len(names)-len(missing)).
		Msg("artist photos resolved")

	return ctx.Err()
}

// Lookup returns the cached photo snapshot for the given names. It never
// fetches; pair it with FetchAll when fresh photos are wanted.
func (s *Service) Lookup(names []string) (map[string]string, error) {
	return s.cache.Snapshot(names)
}

func (s *Service) missingNames(names []string) ([]string, error) {
	var missing []string
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}

		_, found, err := s.cache.Get(name)
		if err != nil {
			return nil, err
		}
		if !found {
			missing = append(missing, name)
		}
	}
	return missing, nil
}

// fetchOne tries each source in order. ok is false only when every
// source errored; a miss on all sources is a valid empty result.
func (s *Service) fetchOne(ctx context.Context, name string) (string, bool) {
	errored := 0
	for _, src := range s.sources {
		url, err := src.ArtistImage(ctx, name)
		if err != nil {
			errored++
			s.log.Debug().Err(err).Str("artist", name).Msg("photo source failed")
			continue
		}
		if url != "" {
			return url, true
		}
	}
	if len(s.sources) > 0 && errored == len(s.sources) {
		return "", false
	}
	return "", true
}
