// Package capture orchestrates the save path: identifier generation, the
// authoritative local write, and the best-effort remote mirror.
package capture

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/example/pagevault/internal/clock"
	"github.com/example/pagevault/internal/extract"
	"github.com/example/pagevault/internal/identifier"
	"github.com/example/pagevault/internal/metrics"
	"github.com/example/pagevault/internal/store"
)

// Category characters carried in identifiers. Manual captures alternate
// between Test and Manual on each invocation.
const (
	CategoryPrimary = 'P'
	CategoryBackup  = 'B'
	CategoryTest    = 'T'
	CategoryManual  = 'M'
)

// ManualRunSlot is the run-slot field used for operator-triggered captures.
const ManualRunSlot = "99"

var (
	// ErrEmptyContent is returned when there is nothing to archive.
	ErrEmptyContent = errors.New("capture: content is empty")
	// ErrLocalPersist wraps failures of the authoritative local write.
	ErrLocalPersist = errors.New("capture: local persist failed")
)

// LocalStore is the slice of the local store the saver needs.
type LocalStore interface {
	NextSequence(ctx context.Context, sourceCode, categoryChar string) (int64, error)
	HasIdenticalContent(ctx context.Context, url, content string) (bool, error)
	SaveCapture(ctx context.Context, c store.Capture, tags []store.Tag) error
}

// IdentifierSource produces capture identifiers.
type IdentifierSource interface {
	Generate(ctx context.Context, category byte, runSlot, url string, next identifier.SequenceFunc) (string, error)
}

// Saver persists captures. The local write decides success; the mirror is
// fire-and-forget from the caller's point of view.
type Saver struct {
	local   LocalStore
	mirror  store.Mirror
	ids     IdentifierSource
	clock   clock.Clock
	logger  *zap.Logger
	extract func(string) ([]extract.Tag, error)
}

// NewSaver builds a Saver. mirror may be nil when no remote is configured.
func NewSaver(local LocalStore, mirror store.Mirror, ids IdentifierSource, clk clock.Clock, logger *zap.Logger) *Saver {
	return &Saver{
		local:   local,
		mirror:  mirror,
		ids:     ids,
		clock:   clk,
		logger:  logger,
		extract: extract.Tags,
	}
}

// Save archives one page. It returns the new identifier once the local
// transaction has committed; mirror failures are logged and counted but do
// not fail the save.
func (s *Saver) Save(ctx context.Context, url, content string, categoryChar byte, runSlot string) (string, error) {
	category := string(categoryChar)
	if strings.TrimSpace(content) == "" {
		metrics.Captures.WithLabelValues(category, "empty_content").Inc()
		return "", ErrEmptyContent
	}

	id, err := s.ids.Generate(ctx, categoryChar, runSlot, url, s.local.NextSequence)
	if err != nil {
		return "", fmt.Errorf("generate identifier: %w", err)
	}

	duplicate, err := s.local.HasIdenticalContent(ctx, url, content)
	if err != nil {
		s.logger.Warn("duplicate probe failed, assuming new content",
			zap.String("identifier", id), zap.Error(err))
		duplicate = false
	}

	tags, err := s.extract(content)
	if err != nil {
		metrics.Captures.WithLabelValues(category, "local_failure").Inc()
		return "", fmt.Errorf("%w: extract tags: %v", ErrLocalPersist, err)
	}
	metrics.TagsExtracted.Add(float64(len(tags)))

	rec := store.Capture{
		Identifier:          id,
		URL:                 url,
		CapturedAt:          s.clock.Now(),
		Category:            category,
		Content:             content,
		DuplicateOfPrevious: duplicate,
		Version:             1,
	}
	storeTags := make([]store.Tag, 0, len(tags))
	for _, t := range tags {
		storeTags = append(storeTags, store.Tag{
			TagType:    t.Type,
			Content:    t.Text,
			Location:   t.Path,
			Attributes: t.Attributes,
		})
	}

	if err := s.local.SaveCapture(ctx, rec, storeTags); err != nil {
		metrics.Captures.WithLabelValues(category, "local_failure").Inc()
		return "", fmt.Errorf("%w: %v", ErrLocalPersist, err)
	}

	s.mirrorCapture(ctx, rec, storeTags)

	metrics.Captures.WithLabelValues(category, "saved").Inc()
	s.logger.Info("capture saved",
		zap.String("identifier", id),
		zap.String("url", url),
		zap.Int("tags", len(storeTags)),
		zap.Bool("duplicate_of_previous", duplicate),
	)
	return id, nil
}

func (s *Saver) mirrorCapture(ctx context.Context, rec store.Capture, tags []store.Tag) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.InsertCapture(ctx, rec); err != nil {
		metrics.MirrorFailures.Inc()
		s.logger.Warn("mirror capture failed",
			zap.String("identifier", rec.Identifier), zap.Error(err))
		return
	}
	for _, t := range tags {
		if err := s.mirror.InsertTag(ctx, rec.Identifier, t); err != nil {
			metrics.MirrorFailures.Inc()
			s.logger.Warn("mirror tag failed",
				zap.String("identifier", rec.Identifier),
				zap.String("tag_type", t.TagType),
				zap.Error(err))
		}
	}
}
