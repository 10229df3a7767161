// Package schedule drives daily captures at configured wall-clock times.
package schedule

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/pagevault/internal/capture"
	"github.com/example/pagevault/internal/clock"
	"github.com/example/pagevault/internal/metrics"
)

// maxSlots is the highest number of daily slots per category that fits the
// two-digit run-slot field ("01" through "09"; "99" is reserved for manual
// captures).
const maxSlots = 9

// Fetcher retrieves page content.
type Fetcher interface {
	Page(ctx context.Context, url string, renderJS bool) (string, error)
}

// PageSaver archives fetched content.
type PageSaver interface {
	Save(ctx context.Context, url, content string, categoryChar byte, runSlot string) (string, error)
}

// Job is one (url, category, time-of-day) capture slot.
type Job struct {
	URL          string
	CategoryChar byte
	RunSlot      string
	At           string // HH:MM
	hour, minute int
	next         time.Time
}

// Driver owns the job table and the polling loop. Jobs run strictly one at
// a time; the local store has a single writer.
type Driver struct {
	fetcher Fetcher
	saver   PageSaver
	clock   clock.Clock
	logger  *zap.Logger

	jobs     []*Job
	stop     chan struct{}
	stopOnce sync.Once
}

// New builds an empty Driver.
func New(fetcher Fetcher, saver PageSaver, clk clock.Clock, logger *zap.Logger) *Driver {
	return &Driver{
		fetcher: fetcher,
		saver:   saver,
		clock:   clk,
		logger:  logger,
		stop:    make(chan struct{}),
	}
}

// Configure rebuilds the job table from the target URLs and the primary and
// backup time slots. URLs without an http(s) scheme are skipped, as are
// slots beyond the run-slot field's capacity.
func (d *Driver) Configure(urls, primary, backup []string) {
	d.jobs = d.jobs[:0]
	for _, raw := range urls {
		url := strings.TrimSpace(raw)
		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			d.logger.Warn("skipping target without http(s) scheme", zap.String("url", raw))
			continue
		}
		d.addSlots(url, capture.CategoryPrimary, primary)
		d.addSlots(url, capture.CategoryBackup, backup)
	}
	d.logger.Info("schedule configured", zap.Int("jobs", len(d.jobs)))
}

func (d *Driver) addSlots(url string, categoryChar byte, slots []string) {
	for idx, at := range slots {
		hour, minute, err := parseClock(at)
		if err != nil {
			d.logger.Warn("skipping malformed time slot",
				zap.String("url", url),
				zap.String("category", string(categoryChar)),
				zap.String("at", at),
				zap.Error(err),
			)
			continue
		}
		if idx >= maxSlots {
			d.logger.Warn("slot beyond run-slot capacity, skipping",
				zap.String("url", url),
				zap.String("category", string(categoryChar)),
				zap.Int("slot_index", idx),
				zap.String("at", at),
			)
			continue
		}
		d.jobs = append(d.jobs, &Job{
			URL:          url,
			CategoryChar: categoryChar,
			RunSlot:      fmt.Sprintf("%02d", idx+1),
			At:           at,
			hour:         hour,
			minute:       minute,
		})
	}
}

// Jobs returns the configured job table.
func (d *Driver) Jobs() []Job {
	out := make([]Job, len(d.jobs))
	for i, j := range d.jobs {
		out[i] = *j
	}
	return out
}

// Run polls once per second and fires every job whose time has arrived,
// then reschedules it 24 hours later. It returns when ctx is cancelled,
// Stop is called, or the optional maxDuration elapses.
func (d *Driver) Run(ctx context.Context, maxDuration time.Duration) error {
	now := d.clock.Now()
	for _, j := range d.jobs {
		j.next = nextOccurrence(now, j.hour, j.minute)
		d.logger.Info("job scheduled",
			zap.String("url", j.URL),
			zap.String("category", string(j.CategoryChar)),
			zap.String("run_slot", j.RunSlot),
			zap.Time("next", j.next),
		)
	}

	var deadline time.Time
	if maxDuration > 0 {
		deadline = now.Add(maxDuration)
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.stop:
			return nil
		case <-ticker.C:
		}

		now := d.clock.Now()
		if !deadline.IsZero() && !now.Before(deadline) {
			d.logger.Info("run duration elapsed, stopping")
			return nil
		}
		for _, j := range d.jobs {
			if now.Before(j.next) {
				continue
			}
			d.runJob(ctx, j)
			j.next = j.next.Add(24 * time.Hour)
		}
	}
}

// Stop ends Run after the current job, if any, finishes.
func (d *Driver) Stop() {
	d.stopOnce.Do(func() { close(d.stop) })
}

func (d *Driver) runJob(ctx context.Context, j *Job) {
	d.logger.Info("running scheduled capture",
		zap.String("url", j.URL),
		zap.String("category", string(j.CategoryChar)),
		zap.String("run_slot", j.RunSlot),
	)
	content, err := d.fetcher.Page(ctx, j.URL, true)
	if err != nil {
		metrics.FetchFailures.Inc()
		d.logger.Warn("fetch failed, skipping capture",
			zap.String("url", j.URL), zap.Error(err))
		return
	}
	id, err := d.saver.Save(ctx, j.URL, content, j.CategoryChar, j.RunSlot)
	if err != nil {
		d.logger.Error("scheduled capture failed",
			zap.String("url", j.URL), zap.Error(err))
		return
	}
	d.logger.Info("scheduled capture complete",
		zap.String("url", j.URL), zap.String("identifier", id))
}

// nextOccurrence returns the next time the slot comes around, relative to
// now (today if still ahead, otherwise tomorrow).
func nextOccurrence(now time.Time, hour, minute int) time.Time {
	candidate := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if candidate.After(now) {
		return candidate
	}
	return candidate.Add(24 * time.Hour)
}

// parseClock validates an HH:MM slot.
func parseClock(at string) (int, int, error) {
	if len(at) != 5 || at[2] != ':' {
		return 0, 0, fmt.Errorf("invalid time %q (want HH:MM)", at)
	}
	hour, err := strconv.Atoi(at[:2])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time %q: %w", at, err)
	}
	minute, err := strconv.Atoi(at[3:])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time %q: %w", at, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid time value %q", at)
	}
	return hour, minute, nil
}
