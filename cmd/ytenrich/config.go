package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"github.com/mxpv/ytenrich/pkg/cache"
	"github.com/mxpv/ytenrich/pkg/enrich"
	"github.com/mxpv/ytenrich/pkg/model"
)

type Config struct {
	// Tokens is API keys to use to access YouTube API.
	Tokens Tokens `toml:"tokens"`
	// Cache is the metadata cache configuration
	Cache cache.Config `toml:"cache"`
	// YouTube API client configuration
	YouTube YouTube `toml:"youtube"`
	// Enrich holds the enrichment run options
	Enrich Enrich `toml:"enrich"`
	// Log is the optional logging configuration
	Log Log `toml:"log"`
}

type Tokens struct {
	YouTube StringSlice `toml:"youtube"`
}

type YouTube struct {
	// Timeout bounds every API request
	Timeout time.Duration `toml:"timeout"`
}

type Enrich struct {
	FailureThreshold  int   `toml:"failure_threshold"`
	EmitPrivacyStatus *bool `toml:"emit_privacy_status"`
	TrackPlaylists    *bool `toml:"track_playlists"`
}

// Options converts the configuration to engine options.
func (e Enrich) Options() enrich.Options {
	return enrich.Options{
		FailureThreshold:  e.FailureThreshold,
		EmitPrivacyStatus: e.EmitPrivacyStatus != nil && *e.EmitPrivacyStatus,
		TrackPlaylists:    e.TrackPlaylists != nil && *e.TrackPlaylists,
	}
}

type Log struct {
	// Filename to write the log to (instead of stderr)
	Filename string `toml:"filename"`
	// MaxSize is the maximum size of the log file in MB
	MaxSize int `toml:"max_size"`
	// MaxBackups is the maximum number of log file backups to keep after rotation
	MaxBackups int `toml:"max_backups"`
	// MaxAge is the maximum number of days to keep the logs for
	MaxAge int `toml:"max_age"`
	// Compress old backups
	Compress bool `toml:"compress"`
}

// LoadConfig loads TOML configuration from a file path.
// When optional is set, a missing file yields the default configuration.
func LoadConfig(path string, optional bool) (*Config, error) {
	config := Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &config); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal toml")
		}
	case os.IsNotExist(err) && optional:
	default:
		return nil, errors.Wrapf(err, "failed to read config file: %s", path)
	}

	if err := config.applyDefaults(); err != nil {
		return nil, err
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	var result *multierror.Error

	switch c.Cache.Backend {
	case cache.BackendSQLite, cache.BackendBadger:
	default:
		result = multierror.Append(result, errors.Errorf("unsupported cache backend %q", c.Cache.Backend))
	}

	if c.Enrich.FailureThreshold < 1 {
		result = multierror.Append(result, errors.New("failure threshold must be at least 1"))
	}

	if c.YouTube.Timeout < 0 {
		result = multierror.Append(result, errors.New("timeout can't be negative"))
	}

	for idx, key := range c.Tokens.YouTube {
		if key == "" {
			result = multierror.Append(result, errors.Errorf("youtube token %d is empty", idx))
		}
	}

	return result.ErrorOrNil()
}

func (c *Config) applyDefaults() error {
	if c.Log.Filename != "" {
		if c.Log.MaxSize == 0 {
			c.Log.MaxSize = model.DefaultLogMaxSize
		}
		if c.Log.MaxAge == 0 {
			c.Log.MaxAge = model.DefaultLogMaxAge
		}
		if c.Log.MaxBackups == 0 {
			c.Log.MaxBackups = model.DefaultLogMaxBackups
		}
	}

	if c.Cache.Dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return errors.Wrap(err, "failed to resolve home directory for cache")
		}

		c.Cache.Dir = filepath.Join(home, model.DefaultCacheDirName)
	}

	if c.Cache.Backend == "" {
		c.Cache.Backend = model.DefaultCacheBackend
	}

	if c.YouTube.Timeout == 0 {
		c.YouTube.Timeout = model.DefaultRequestTimeout
	}

	if c.Enrich.FailureThreshold == 0 {
		c.Enrich.FailureThreshold = model.DefaultFailureThreshold
	}

	enabled := true
	if c.Enrich.EmitPrivacyStatus == nil {
		c.Enrich.EmitPrivacyStatus = &enabled
	}
	if c.Enrich.TrackPlaylists == nil {
		c.Enrich.TrackPlaylists = &enabled
	}

	return nil
}

// StringSlice is a toml extension that lets you to specify either a string
// value (a slice with just one element) or a string slice.
type StringSlice []string

func (s *StringSlice) UnmarshalTOML(v interface{}) error {
	switch value := v.(type) {
	case string:
		*s = []string{value}
		return nil
	case []string:
		*s = value
		return nil
	case []interface{}:
		list := make([]string, 0, len(value))
		for _, item := range value {
			str, ok := item.(string)
			if !ok {
				return errors.Errorf("unexpected %T in string slice", item)
			}
			list = append(list, str)
		}
		*s = list
		return nil
	}

	return errors.New("failed to decode string slice field")
}
