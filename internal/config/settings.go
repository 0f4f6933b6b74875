package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "REPLICATE_"

// Settings are the process-level options of the replicator.
type Settings struct {
	// Database is the SQLite file holding items, history and filters.
	Database string `yaml:"database"`

	// Topology is the directory of CUE topology files.
	Topology string `yaml:"topology"`

	// MaxFailures caps forced retries of an item.
	MaxFailures int `yaml:"max_failures"`

	PageSize     int           `yaml:"page_size"`
	Workers      int           `yaml:"workers"`
	Period       time.Duration `yaml:"period"`
	DrainTimeout time.Duration `yaml:"drain_timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`

	// HistoryCSV, if set, receives a CSV copy of every recorded status.
	HistoryCSV string `yaml:"history_csv"`
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		Database:     "replicate.db",
		Topology:     "topology",
		MaxFailures:  5,
		PageSize:     100,
		Workers:      1,
		Period:       5 * time.Minute,
		DrainTimeout: 30 * time.Second,
		PollInterval: time.Second,
	}
}

// LookupFunc reads an environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// LoadSettings returns Defaults overlaid with the YAML file at path (if
// path is non-empty), a .env file in the working directory (if present),
// and the process environment.
func LoadSettings(path string) (Settings, error) {
	s := Defaults()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Settings{}, fmt.Errorf("open settings: %w", err)
		}
		defer f.Close()
		if err := s.decode(f); err != nil {
			return Settings{}, fmt.Errorf("parse settings %s: %w", path, err)
		}
	}
	if err := loadDotenv(".env"); err != nil {
		return Settings{}, err
	}
	if err := s.ApplyEnv(os.LookupEnv); err != nil {
		return Settings{}, err
	}
	return s, s.Validate()
}

// decode overlays YAML from r. Unknown keys are rejected; an empty
// document leaves s unchanged.
func (s *Settings) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// loadDotenv loads path into the environment without overriding variables
// that are already set. A missing file is ignored.
func loadDotenv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays REPLICATE_* variables read through lookup.
func (s *Settings) ApplyEnv(lookup LookupFunc) error {
	var errs []error
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + name); ok {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = d
		}
	}

	str("DB", &s.Database)
	str("TOPOLOGY", &s.Topology)
	str("HISTORY_CSV", &s.HistoryCSV)
	num("MAX_FAILURES", &s.MaxFailures)
	num("PAGE_SIZE", &s.PageSize)
	num("WORKERS", &s.Workers)
	dur("PERIOD", &s.Period)
	dur("DRAIN_TIMEOUT", &s.DrainTimeout)
	dur("POLL_INTERVAL", &s.PollInterval)
	return errors.Join(errs...)
}

// Validate checks ranges.
func (s Settings) Validate() error {
	var errs []error
	if strings.TrimSpace(s.Database) == "" {
		errs = append(errs, errors.New("settings: database is required"))
	}
	if s.MaxFailures < 1 {
		errs = append(errs, fmt.Errorf("settings: max_failures must be positive, got %d", s.MaxFailures))
	}
	if s.PageSize < 1 {
		errs = append(errs, fmt.Errorf("settings: page_size must be positive, got %d", s.PageSize))
	}
	if s.Workers < 1 {
		errs = append(errs, fmt.Errorf("settings: workers must be positive, got %d", s.Workers))
	}
	if s.Period <= 0 {
		errs = append(errs, errors.New("settings: period must be positive"))
	}
	if s.DrainTimeout <= 0 || s.PollInterval <= 0 {
		errs = append(errs, errors.New("settings: drain_timeout and poll_interval must be positive"))
	}
	return errors.Join(errs...)
}
