// Package diagnostics runs connectivity checks over the archiver's stores
// and target URLs.
package diagnostics

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/pagevault/internal/store"
)

const probeTimeout = 10 * time.Second

// Pinger is anything that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Fetcher retrieves page content for the content probe.
type Fetcher interface {
	Page(ctx context.Context, url string, renderJS bool) (string, error)
}

// URLResult is the outcome of probing one target.
type URLResult struct {
	URL       string
	Reachable bool
	HasBody   bool
	Err       string
}

// Report aggregates all check outcomes.
type Report struct {
	LocalOK       bool
	LocalErr      string
	RemoteOK      bool
	RemoteSkipped bool
	RemoteErr     string
	URLs          []URLResult
}

// OK reports whether every executed check passed.
func (r Report) OK() bool {
	if !r.LocalOK {
		return false
	}
	if !r.RemoteSkipped && !r.RemoteOK {
		return false
	}
	for _, u := range r.URLs {
		if !u.Reachable || !u.HasBody {
			return false
		}
	}
	return true
}

// Runner executes the checks.
type Runner struct {
	local   Pinger
	mirror  store.Mirror
	fetcher Fetcher
	logger  *zap.Logger
	client  *http.Client
}

// New builds a Runner. mirror may be nil when no remote is configured.
func New(local Pinger, mirror store.Mirror, fetcher Fetcher, logger *zap.Logger) *Runner {
	return &Runner{
		local:   local,
		mirror:  mirror,
		fetcher: fetcher,
		logger:  logger,
		client:  &http.Client{Timeout: probeTimeout},
	}
}

// Run checks the local store, the mirror (if configured), and each target
// URL via a HEAD request followed by a static fetch that must contain a
// body element.
func (r *Runner) Run(ctx context.Context, urls []string) Report {
	report := Report{}

	if err := r.local.Ping(ctx); err != nil {
		report.LocalErr = err.Error()
		r.logger.Error("local store unreachable", zap.Error(err))
	} else {
		report.LocalOK = true
	}

	if r.mirror == nil {
		report.RemoteSkipped = true
		r.logger.Info("no mirror configured, skipping remote check")
	} else if err := r.mirror.Ping(ctx); err != nil {
		report.RemoteErr = err.Error()
		r.logger.Error("mirror unreachable", zap.Error(err))
	} else {
		report.RemoteOK = true
	}

	for _, url := range urls {
		report.URLs = append(report.URLs, r.probeURL(ctx, url))
	}
	return report
}

func (r *Runner) probeURL(ctx context.Context, url string) URLResult {
	result := URLResult{URL: url}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		result.Err = err.Error()
		return result
	}
	resp, err := r.client.Do(req)
	if err != nil {
		result.Err = err.Error()
		r.logger.Warn("target unreachable", zap.String("url", url), zap.Error(err))
		return result
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		result.Err = resp.Status
		r.logger.Warn("target returned error status",
			zap.String("url", url), zap.Int("status", resp.StatusCode))
		return result
	}
	result.Reachable = true

	content, err := r.fetcher.Page(ctx, url, false)
	if err != nil {
		result.Err = err.Error()
		r.logger.Warn("content probe failed", zap.String("url", url), zap.Error(err))
		return result
	}
	result.HasBody = strings.Contains(strings.ToLower(content), "<body")
	if !result.HasBody {
		result.Err = "no body element in fetched content"
	}
	return result
}
