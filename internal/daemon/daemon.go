// Package daemon runs the background schedule: nightly maintenance,
// periodic scrobble flushes and the download worker loop.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/lmerle/replay/internal/downloads"
	"github.com/lmerle/replay/internal/history"
	"github.com/lmerle/replay/internal/photos"
	"github.com/lmerle/replay/internal/scrobbler"
	"github.com/lmerle/replay/internal/station"
)

// Maintenance runs nightly at 02:00 local time, scrobbles flush every
// ten minutes and the download worker polls the queue between runs.
const (
	maintenanceSpec    = "0 2 * * *"
	scrobbleSpec       = "@every 10m"
	workerPollInterval = 15 * time.Second
)

// Options carries the collaborators the daemon schedules. Scrobbler and
// Worker may be nil when the matching integration is not configured;
// their jobs are skipped. Everything else is required.
type Options struct {
	History      *history.Store
	PhotoCache   *photos.Cache
	StationCache *station.Cache
	Scrobbler    *scrobbler.Scrobbler
	Worker       *downloads.Worker
	Downloads    *downloads.Manager
	HistoryKeep  int
}

// Daemon owns the cron schedule and the download worker loop.
type Daemon struct {
	hist         *history.Store
	photoCache   *photos.Cache
	stationCache *station.Cache
	scrob        *scrobbler.Scrobbler
	worker       *downloads.Worker
	manager      *downloads.Manager
	keep         int
	log          zerolog.Logger
}

// New creates a daemon from its collaborators.
func New(opts Options, log zerolog.Logger) *Daemon {
	return &Daemon{
		hist:         opts.History,
		photoCache:   opts.PhotoCache,
		stationCache: opts.StationCache,
		scrob:        opts.Scrobbler,
		worker:       opts.Worker,
		manager:      opts.Downloads,
		keep:         opts.HistoryKeep,
		log:          log,
	}
}

// Run blocks until ctx is cancelled, then waits for running jobs to
// finish. Downloads orphaned mid-transfer by a previous run are
// requeued before the schedule starts.
func (d *Daemon) Run(ctx context.Context) error {
	if n, err := d.manager.RequeueStalled(); err != nil {
		d.log.Warn().Err(err).Msg("requeue stalled downloads failed")
	} else if n > 0 {
		d.log.Info().Int64("count", n).Msg("requeued stalled downloads")
	}

	c := cron.New(
		cron.WithLocation(time.Local),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{d.log})),
	)
	if _, err := c.AddFunc(maintenanceSpec, func() {
		if err := d.RunMaintenanceNow(); err != nil {
			d.log.Error().Err(err).Msg("maintenance failed")
		}
	}); err != nil {
		return fmt.Errorf("schedule maintenance: %w", err)
	}
	if d.scrob != nil {
		if _, err := c.AddFunc(scrobbleSpec, func() {
			if _, err := d.scrob.Flush(ctx); err != nil {
				d.log.Warn().Err(err).Msg("scrobble flush failed")
			}
		}); err != nil {
			return fmt.Errorf("schedule scrobble flush: %w", err)
		}
	}

	c.Start()
	d.log.Info().
		Str("maintenance", maintenanceSpec).
		Bool("scrobbling", d.scrob != nil).
		Bool("downloads", d.worker != nil).
		Msg("daemon running")

	d.workerLoop(ctx)

	<-c.Stop().Done()
	d.log.Info().Msg("daemon stopped")
	return nil
}

// workerLoop re-runs the download worker whenever the poll interval
// elapses. Run returns as soon as the queue drains, so the loop sits
// idle between polls.
func (d *Daemon) workerLoop(ctx context.Context) {
	if d.worker == nil {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(workerPollInterval)
	defer ticker.Stop()
	for {
		if err := d.worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			d.log.Error().Err(err).Msg("download worker failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunMaintenanceNow trims history to the configured cap and removes
// expired photo and similar-artist cache rows. Steps run independently,
// a failing one does not stop the rest.
func (d *Daemon) RunMaintenanceNow() error {
	start := time.Now()
	var errs []error

	var trimmed int64
	for _, source := range []string{history.SourceOnline, history.SourceLocal} {
		n, err := d.hist.TrimOldest(source, d.keep)
		if err != nil {
			errs = append(errs, fmt.Errorf("trim %s history: %w", source, err))
			continue
		}
		trimmed += n
	}
	if err := d.photoCache.CleanExpired(); err != nil {
		errs = append(errs, fmt.Errorf("clean photo cache: %w", err))
	}
	if err := d.stationCache.CleanExpired(); err != nil {
		errs = append(errs, fmt.Errorf("clean similar-artist cache: %w", err))
	}

	if len(errs) == 0 {
		d.log.Info().Int64("trimmed", trimmed).Dur("took", time.Since(start)).Msg("maintenance finished")
	}
	return errors.Join(errs...)
}

// cronLogger adapts zerolog to the cron.Logger interface. Scheduler
// chatter goes out at debug level.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
