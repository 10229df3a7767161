// Package config loads and persists archiver configuration via Viper.
//
// The persisted form is a flat key=value dotenv file. Every mutation writes
// through to disk and re-reads the file, so callers always work against a
// snapshot derived from the persisted state rather than an in-memory cache.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/example/pagevault/internal/logging"
)

// Configuration keys as they appear in the dotenv file.
const (
	KeyTargetURLs         = "TARGET_URLS"
	KeyPrimarySlots       = "CAPTURE_TIMES_PRIMARY"
	KeyBackupSlots        = "CAPTURE_TIMES_BACKUP"
	KeyLocalDBPath        = "LOCAL_DB_PATH"
	KeyRemoteDSN          = "REMOTE_DSN"
	KeySourceCodes        = "SOURCE_CODES"
	KeyLastManualCategory = "LAST_MANUAL_CATEGORY"
	KeyVerbosity          = "LOG_LEVEL"
)

// Defaults applied when the dotenv file does not set a key.
const (
	DefaultLocalDBPath  = "pagevault.db"
	DefaultPrimarySlots = "08:00,17:00"
	DefaultBackupSlots  = "22:00,05:00"
	DefaultVerbosity    = string(logging.VerbosityRegular)
)

// Config is an immutable snapshot of the persisted configuration.
type Config struct {
	TargetURLs         []string
	PrimarySlots       []string
	BackupSlots        []string
	LocalDBPath        string
	RemoteDSN          string
	SourceCodes        map[string]string
	LastManualCategory string
	Verbosity          logging.Verbosity
}

// Store owns the dotenv file and hands out snapshots.
type Store struct {
	mu   sync.Mutex
	path string
	v    *viper.Viper
}

// Open binds a Store to the dotenv file at path, creating an empty file if
// none exists so later writes have a target.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is required")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if werr := os.WriteFile(path, []byte(""), 0o600); werr != nil {
			return nil, fmt.Errorf("create config file %s: %w", path, werr)
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("dotenv")
	setDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return &Store{path: path, v: v}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyTargetURLs, "")
	v.SetDefault(KeyPrimarySlots, DefaultPrimarySlots)
	v.SetDefault(KeyBackupSlots, DefaultBackupSlots)
	v.SetDefault(KeyLocalDBPath, DefaultLocalDBPath)
	v.SetDefault(KeyRemoteDSN, "")
	v.SetDefault(KeySourceCodes, "{}")
	v.SetDefault(KeyLastManualCategory, "M")
	v.SetDefault(KeyVerbosity, DefaultVerbosity)
}

// Path returns the dotenv file location.
func (s *Store) Path() string {
	return s.path
}

// Snapshot parses the current persisted state into a typed Config.
func (s *Store) Snapshot() (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() (Config, error) {
	primary, err := ParseTimes(s.v.GetString(KeyPrimarySlots))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", KeyPrimarySlots, err)
	}
	backup, err := ParseTimes(s.v.GetString(KeyBackupSlots))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", KeyBackupSlots, err)
	}
	verbosity, err := logging.ParseVerbosity(s.v.GetString(KeyVerbosity))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", KeyVerbosity, err)
	}

	codes := map[string]string{}
	if raw := s.v.GetString(KeySourceCodes); raw != "" {
		if err := json.Unmarshal([]byte(raw), &codes); err != nil {
			return Config{}, fmt.Errorf("%s is not a JSON object: %w", KeySourceCodes, err)
		}
	}

	manual := strings.ToUpper(strings.TrimSpace(s.v.GetString(KeyLastManualCategory)))
	if manual != "M" && manual != "T" {
		manual = "M"
	}

	return Config{
		TargetURLs:         splitList(s.v.GetString(KeyTargetURLs)),
		PrimarySlots:       primary,
		BackupSlots:        backup,
		LocalDBPath:        s.v.GetString(KeyLocalDBPath),
		RemoteDSN:          s.v.GetString(KeyRemoteDSN),
		SourceCodes:        codes,
		LastManualCategory: manual,
		Verbosity:          verbosity,
	}, nil
}

// Set persists a single key and returns a snapshot re-read from disk.
func (s *Store) Set(key, value string) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.v.Set(key, value)
	if err := s.v.WriteConfig(); err != nil {
		return Config{}, fmt.Errorf("write config %s: %w", s.path, err)
	}
	if err := s.v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reload config %s: %w", s.path, err)
	}
	return s.snapshotLocked()
}

// SetSourceCodes persists the full url→code mapping as a JSON object.
func (s *Store) SetSourceCodes(codes map[string]string) (Config, error) {
	data, err := json.Marshal(codes)
	if err != nil {
		return Config{}, fmt.Errorf("marshal source codes: %w", err)
	}
	return s.Set(KeySourceCodes, string(data))
}

// ParseTimes splits a comma-separated list of HH:MM times, validating each
// entry. An empty input yields an empty list.
func ParseTimes(value string) ([]string, error) {
	entries := splitList(value)
	for _, t := range entries {
		if err := validateClock(t); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func validateClock(t string) error {
	if len(t) != 5 || t[2] != ':' {
		return fmt.Errorf("invalid time %q (want HH:MM)", t)
	}
	for _, i := range []int{0, 1, 3, 4} {
		if t[i] < '0' || t[i] > '9' {
			return fmt.Errorf("invalid time %q (want HH:MM)", t)
		}
	}
	hour := int(t[0]-'0')*10 + int(t[1]-'0')
	minute := int(t[3]-'0')*10 + int(t[4]-'0')
	if hour > 23 || minute > 59 {
		return fmt.Errorf("invalid time value %q", t)
	}
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
