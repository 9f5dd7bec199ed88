package youtube

import (
	"sync"

	"github.com/pkg/errors"
)

// KeyProvider returns the API key to use for the next request.
type KeyProvider interface {
	Get() string
}

// NewKeyProvider picks a fixed provider for a single key and a rotating one otherwise.
func NewKeyProvider(keys []string) (KeyProvider, error) {
	switch len(keys) {
	case 0:
		return nil, errors.New("no API keys")
	case 1:
		return NewFixedKey(keys[0])
	default:
		return NewRotatedKeys(keys)
	}
}

// FixedKeyProvider always returns the same key.
type FixedKeyProvider struct {
	key string
}

func NewFixedKey(key string) (KeyProvider, error) {
	if key == "" {
		return nil, errors.New("key can't be empty")
	}

	return &FixedKeyProvider{key: key}, nil
}

func (p FixedKeyProvider) Get() string {
	return p.key
}

// RotatedKeyProvider spreads API quota usage across several keys in round-robin order.
type RotatedKeyProvider struct {
	keys  []string
	lock  sync.Mutex
	index int
}

func NewRotatedKeys(keys []string) (KeyProvider, error) {
	if len(keys) < 2 {
		return nil, errors.Errorf("at least 2 keys required (got %d)", len(keys))
	}

	for i, key := range keys {
		if key == "" {
			return nil, errors.Errorf("key %d can't be empty", i)
		}
	}

	return &RotatedKeyProvider{keys: keys, index: 0}, nil
}

func (p *RotatedKeyProvider) Get() string {
	p.lock.Lock()
	defer p.lock.Unlock()

	current := p.index % len(p.keys)
	p.index++

	return p.keys[current]
}
