// Package registry assigns stable two-letter source codes to capture URLs.
//
// Codes are persisted alongside the rest of the configuration; the persisted
// mapping is the ground truth, so every assignment is written through and
// read back before being returned.
package registry

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"go.uber.org/zap"

	"github.com/example/pagevault/internal/config"
)

var (
	// ErrEmptyURL is returned when the URL to resolve is blank.
	ErrEmptyURL = errors.New("registry: url is empty")
	// ErrCodeSpaceExhausted is returned when no unused code could be found.
	ErrCodeSpaceExhausted = errors.New("registry: source code space exhausted")
)

// maxCodeAttempts bounds the randomized probing for a free code. The space
// holds 26*26 codes, so hitting the cap means the registry is effectively
// full.
const maxCodeAttempts = 1000

// Registry resolves URLs to their persisted source codes, assigning new
// codes on first sight.
type Registry struct {
	cfg    *config.Store
	logger *zap.Logger
}

// New builds a Registry over the given configuration store.
func New(cfg *config.Store, logger *zap.Logger) *Registry {
	return &Registry{cfg: cfg, logger: logger}
}

// Resolve returns the source code for url, assigning and persisting a fresh
// one if the URL has never been seen. Resolve is idempotent: the same URL
// always yields the same code.
func (r *Registry) Resolve(rawURL string) (string, error) {
	url := strings.TrimSpace(rawURL)
	if url == "" {
		return "", ErrEmptyURL
	}

	snap, err := r.cfg.Snapshot()
	if err != nil {
		return "", fmt.Errorf("load source codes: %w", err)
	}
	if code, ok := snap.SourceCodes[url]; ok {
		return code, nil
	}

	used := make(map[string]bool, len(snap.SourceCodes))
	for _, code := range snap.SourceCodes {
		used[code] = true
	}

	code, err := pickCode(used)
	if err != nil {
		return "", err
	}

	snap.SourceCodes[url] = code
	persisted, err := r.cfg.SetSourceCodes(snap.SourceCodes)
	if err != nil {
		return "", fmt.Errorf("persist source code for %s: %w", url, err)
	}

	// Trust what actually landed on disk, not what we intended to write.
	final, ok := persisted.SourceCodes[url]
	if !ok {
		return "", fmt.Errorf("source code for %s missing after persist", url)
	}
	r.logger.Info("assigned source code",
		zap.String("url", url),
		zap.String("code", final),
	)
	return final, nil
}

func pickCode(used map[string]bool) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := string([]byte{
			byte('A' + rand.IntN(26)),
			byte('A' + rand.IntN(26)),
		})
		if !used[code] {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}
