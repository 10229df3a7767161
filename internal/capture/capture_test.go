package capture_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/pagevault/internal/capture"
	"github.com/example/pagevault/internal/identifier"
	"github.com/example/pagevault/internal/metrics"
	"github.com/example/pagevault/internal/store"
)

const testID = "P01AB20240307140000AAAA0000001"

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fakeLocal struct {
	duplicate bool
	probeErr  error
	saveErr   error

	saved     *store.Capture
	savedTags []store.Tag
}

func (f *fakeLocal) NextSequence(context.Context, string, string) (int64, error) {
	return 1, nil
}

func (f *fakeLocal) HasIdenticalContent(context.Context, string, string) (bool, error) {
	return f.duplicate, f.probeErr
}

func (f *fakeLocal) SaveCapture(_ context.Context, c store.Capture, tags []store.Tag) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = &c
	f.savedTags = tags
	return nil
}

type fakeMirror struct {
	captureErr error
	tagErr     error

	captures int
	tags     int
}

func (f *fakeMirror) InsertCapture(context.Context, store.Capture) error {
	if f.captureErr != nil {
		return f.captureErr
	}
	f.captures++
	return nil
}

func (f *fakeMirror) InsertTag(context.Context, string, store.Tag) error {
	if f.tagErr != nil {
		return f.tagErr
	}
	f.tags++
	return nil
}

func (f *fakeMirror) Ping(context.Context) error { return nil }
func (f *fakeMirror) Close()                     {}

type fakeIDs struct{}

func (fakeIDs) Generate(context.Context, byte, string, string, identifier.SequenceFunc) (string, error) {
	return testID, nil
}

func newSaver(local *fakeLocal, mirror store.Mirror) *capture.Saver {
	metrics.Init()
	clk := fixedClock{t: time.Date(2024, 3, 7, 14, 0, 0, 0, time.UTC)}
	return capture.NewSaver(local, mirror, fakeIDs{}, clk, zap.NewNop())
}

const pageContent = `<html><body><div id="x">hello</div></body></html>`

func TestSaveRejectsEmptyContent(t *testing.T) {
	s := newSaver(&fakeLocal{}, nil)

	_, err := s.Save(context.Background(), "https://example.com", "   ", capture.CategoryPrimary, "01")
	assert.ErrorIs(t, err, capture.ErrEmptyContent)
}

func TestSavePersistsLocallyAndMirrors(t *testing.T) {
	local := &fakeLocal{}
	mirror := &fakeMirror{}
	s := newSaver(local, mirror)

	id, err := s.Save(context.Background(), "https://example.com", pageContent, capture.CategoryPrimary, "01")
	require.NoError(t, err)
	assert.Equal(t, testID, id)

	require.NotNil(t, local.saved)
	assert.Equal(t, "https://example.com", local.saved.URL)
	assert.Equal(t, "P", local.saved.Category)
	assert.Equal(t, pageContent, local.saved.Content)
	assert.False(t, local.saved.DuplicateOfPrevious)
	assert.NotEmpty(t, local.savedTags)

	assert.Equal(t, 1, mirror.captures)
	assert.Equal(t, len(local.savedTags), mirror.tags)
}

func TestSaveLocalFailureIsFatal(t *testing.T) {
	local := &fakeLocal{saveErr: errors.New("disk full")}
	mirror := &fakeMirror{}
	s := newSaver(local, mirror)

	_, err := s.Save(context.Background(), "https://example.com", pageContent, capture.CategoryBackup, "02")
	assert.ErrorIs(t, err, capture.ErrLocalPersist)
	assert.Zero(t, mirror.captures)
}

func TestSaveMirrorFailureIsTolerated(t *testing.T) {
	local := &fakeLocal{}
	mirror := &fakeMirror{captureErr: errors.New("unreachable")}
	s := newSaver(local, mirror)

	id, err := s.Save(context.Background(), "https://example.com", pageContent, capture.CategoryPrimary, "01")
	require.NoError(t, err)
	assert.Equal(t, testID, id)
	assert.Zero(t, mirror.tags)
}

func TestSaveWithoutMirror(t *testing.T) {
	local := &fakeLocal{}
	s := newSaver(local, nil)

	_, err := s.Save(context.Background(), "https://example.com", pageContent, capture.CategoryManual, capture.ManualRunSlot)
	require.NoError(t, err)
	require.NotNil(t, local.saved)
}

func TestSaveFlagsDuplicateContent(t *testing.T) {
	local := &fakeLocal{duplicate: true}
	s := newSaver(local, nil)

	_, err := s.Save(context.Background(), "https://example.com", pageContent, capture.CategoryPrimary, "01")
	require.NoError(t, err)
	require.NotNil(t, local.saved)
	assert.True(t, local.saved.DuplicateOfPrevious)
}

func TestSaveDuplicateProbeFailureAssumesNew(t *testing.T) {
	local := &fakeLocal{probeErr: errors.New("probe broken")}
	s := newSaver(local, nil)

	_, err := s.Save(context.Background(), "https://example.com", pageContent, capture.CategoryPrimary, "01")
	require.NoError(t, err)
	require.NotNil(t, local.saved)
	assert.False(t, local.saved.DuplicateOfPrevious)
}

// countingIDs hands out a fresh identifier per call so repeat saves do not
// collide on the primary key.
type countingIDs struct{ n int }

func (c *countingIDs) Generate(context.Context, byte, string, string, identifier.SequenceFunc) (string, error) {
	c.n++
	return fmt.Sprintf("P01AB20240307140000AAAA00%05d", c.n), nil
}

func TestSaveFlagsIdenticalContentOnRepeat(t *testing.T) {
	metrics.Init()
	ctx := context.Background()

	local, err := store.OpenLocal(ctx, filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	require.NoError(t, err)
	defer local.Close()
	require.NoError(t, local.InitSchema(ctx))

	clk := fixedClock{t: time.Date(2024, 3, 7, 14, 0, 0, 0, time.UTC)}
	s := capture.NewSaver(local, nil, &countingIDs{}, clk, zap.NewNop())

	first, err := s.Save(ctx, "https://example.com", pageContent, capture.CategoryPrimary, "01")
	require.NoError(t, err)
	second, err := s.Save(ctx, "https://example.com", pageContent, capture.CategoryPrimary, "01")
	require.NoError(t, err)

	firstLoaded, err := local.CaptureByIdentifier(ctx, first)
	require.NoError(t, err)
	assert.False(t, firstLoaded.DuplicateOfPrevious)

	secondLoaded, err := local.CaptureByIdentifier(ctx, second)
	require.NoError(t, err)
	assert.True(t, secondLoaded.DuplicateOfPrevious,
		"second identical capture must carry the duplicate flag")
}
