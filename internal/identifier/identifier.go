// Package identifier builds the 30-character capture identifiers.
//
// Layout: category (1) + run slot (2) + source code (2) +
// UTC timestamp (14, yyyymmddhhmmss) + salt (8, A-Z0-9) + sequence (3).
package identifier

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"go.uber.org/zap"

	"github.com/example/pagevault/internal/clock"
)

var (
	// ErrInvalidCategory is returned for category characters outside P, B, T, M.
	ErrInvalidCategory = errors.New("identifier: invalid category character")
	// ErrInvalidRunSlot is returned when the run slot is not two digits.
	ErrInvalidRunSlot = errors.New("identifier: run slot must be two digits")
	// ErrInvalidURL is returned when the source URL is blank.
	ErrInvalidURL = errors.New("identifier: url is empty")
)

const (
	saltAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	saltLength   = 8
	maxSequence  = 999
)

// Resolver maps a URL to its two-letter source code.
type Resolver interface {
	Resolve(url string) (string, error)
}

// SequenceFunc advances and returns the per-(source code, category) counter.
type SequenceFunc func(ctx context.Context, sourceCode, categoryChar string) (int64, error)

// Generator produces capture identifiers.
type Generator struct {
	clock  clock.Clock
	codes  Resolver
	logger *zap.Logger
}

// New builds a Generator.
func New(clk clock.Clock, codes Resolver, logger *zap.Logger) *Generator {
	return &Generator{clock: clk, codes: codes, logger: logger}
}

// Generate validates its inputs in order (category, run slot, URL), resolves
// the source code, advances the sequence counter via next, and assembles the
// identifier. Sequence values above 999 are rendered as "999"; the counter
// itself keeps growing.
func (g *Generator) Generate(ctx context.Context, category byte, runSlot, rawURL string, next SequenceFunc) (string, error) {
	switch category {
	case 'P', 'B', 'T', 'M':
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, string(category))
	}
	if len(runSlot) != 2 || !isDigit(runSlot[0]) || !isDigit(runSlot[1]) {
		return "", fmt.Errorf("%w: %q", ErrInvalidRunSlot, runSlot)
	}
	url := strings.TrimSpace(rawURL)
	if url == "" {
		return "", ErrInvalidURL
	}

	code, err := g.codes.Resolve(url)
	if err != nil {
		return "", fmt.Errorf("resolve source code: %w", err)
	}

	seq, err := next(ctx, code, string(category))
	if err != nil {
		return "", fmt.Errorf("advance sequence for %s/%c: %w", code, category, err)
	}
	if seq > maxSequence {
		g.logger.Warn("sequence counter exceeds identifier capacity, clamping",
			zap.String("source_code", code),
			zap.String("category", string(category)),
			zap.Int64("sequence", seq),
		)
		seq = maxSequence
	}

	timestamp := g.clock.Now().UTC().Format("20060102150405")
	return fmt.Sprintf("%c%s%s%s%s%03d", category, runSlot, code, timestamp, salt(), seq), nil
}

func salt() string {
	b := make([]byte, saltLength)
	for i := range b {
		b[i] = saltAlphabet[rand.IntN(len(saltAlphabet))]
	}
	return string(b)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
