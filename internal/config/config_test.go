package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/pagevault/internal/config"
	"github.com/example/pagevault/internal/logging"
)

func tempStore(t *testing.T) (*config.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	st, err := config.Open(path)
	require.NoError(t, err)
	return st, path
}

func TestOpenCreatesFileAndAppliesDefaults(t *testing.T) {
	st, path := tempStore(t)

	_, err := os.Stat(path)
	require.NoError(t, err)

	snap, err := st.Snapshot()
	require.NoError(t, err)
	assert.Empty(t, snap.TargetURLs)
	assert.Equal(t, []string{"08:00", "17:00"}, snap.PrimarySlots)
	assert.Equal(t, []string{"22:00", "05:00"}, snap.BackupSlots)
	assert.Equal(t, "pagevault.db", snap.LocalDBPath)
	assert.Empty(t, snap.RemoteDSN)
	assert.Empty(t, snap.SourceCodes)
	assert.Equal(t, "M", snap.LastManualCategory)
	assert.Equal(t, logging.VerbosityRegular, snap.Verbosity)
}

func TestSetPersistsAcrossReopen(t *testing.T) {
	st, path := tempStore(t)

	snap, err := st.Set(config.KeyTargetURLs, "https://a.example, https://b.example")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, snap.TargetURLs)

	reopened, err := config.Open(path)
	require.NoError(t, err)
	snap, err = reopened.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, snap.TargetURLs)
}

func TestSetSourceCodesRoundTrip(t *testing.T) {
	st, path := tempStore(t)

	snap, err := st.SetSourceCodes(map[string]string{
		"https://a.example": "AB",
		"https://b.example": "CD",
	})
	require.NoError(t, err)
	assert.Equal(t, "AB", snap.SourceCodes["https://a.example"])

	reopened, err := config.Open(path)
	require.NoError(t, err)
	snap, err = reopened.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "CD", snap.SourceCodes["https://b.example"])
}

func TestSnapshotRejectsBadTimes(t *testing.T) {
	st, _ := tempStore(t)

	_, err := st.Set(config.KeyPrimarySlots, "25:00")
	assert.Error(t, err)
}

func TestParseTimes(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []string
		wantErr bool
	}{
		{name: "two valid", in: "08:00,17:30", want: []string{"08:00", "17:30"}},
		{name: "spaces trimmed", in: " 09:15 , 23:59 ", want: []string{"09:15", "23:59"}},
		{name: "empty", in: "", want: nil},
		{name: "hour out of range", in: "24:00", wantErr: true},
		{name: "minute out of range", in: "10:60", wantErr: true},
		{name: "missing colon", in: "1000", wantErr: true},
		{name: "not digits", in: "ab:cd", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := config.ParseTimes(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
