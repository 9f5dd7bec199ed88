package cache

import (
	"github.com/pkg/errors"
)

// New opens the cache backend selected by the configuration.
func New(config *Config) (Storage, error) {
	switch config.Backend {
	case "", BackendSQLite:
		return NewSQLite(config)
	case BackendBadger:
		return NewBadger(config)
	default:
		return nil, errors.Errorf("unsupported cache backend %q", config.Backend)
	}
}
