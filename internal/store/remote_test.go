package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/pagevault/internal/store"
)

func newMockMirror(t *testing.T) (*store.PostgresMirror, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return store.NewMirrorWithPool(mock), mock
}

func TestMirrorInsertCapture(t *testing.T) {
	mirror, mock := newMockMirror(t)

	c := store.Capture{
		Identifier: "P01AB20240307140000AAAA0000001",
		URL:        "https://example.com",
		CapturedAt: time.Date(2024, 3, 7, 14, 0, 0, 0, time.UTC),
		Category:   "P",
		Content:    "<html></html>",
		Version:    1,
	}
	mock.ExpectExec("INSERT INTO captures").
		WithArgs(c.Identifier, c.URL, c.CapturedAt, c.Category, c.Content, false, 1).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, mirror.InsertCapture(context.Background(), c))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMirrorInsertCaptureError(t *testing.T) {
	mirror, mock := newMockMirror(t)

	mock.ExpectExec("INSERT INTO captures").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection refused"))

	err := mirror.InsertCapture(context.Background(), store.Capture{Identifier: "X"})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMirrorInsertTag(t *testing.T) {
	mirror, mock := newMockMirror(t)

	mock.ExpectExec("INSERT INTO tags").
		WithArgs("P01AB20240307140000AAAA0000001", "div", "hi", "html > body", `{"id":"x"}`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tag := store.Tag{TagType: "div", Content: "hi", Location: "html > body", Attributes: map[string]string{"id": "x"}}
	require.NoError(t, mirror.InsertTag(context.Background(), "P01AB20240307140000AAAA0000001", tag))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMirrorEnsureSchema(t *testing.T) {
	mirror, mock := newMockMirror(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS captures").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, mirror.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMirrorPingUnavailable(t *testing.T) {
	mirror, mock := newMockMirror(t)

	mock.ExpectPing().WillReturnError(errors.New("down"))

	err := mirror.Ping(context.Background())
	assert.ErrorIs(t, err, store.ErrUnavailable)
}
