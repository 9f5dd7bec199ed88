package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger"
	"github.com/dgraph-io/badger/options"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/mxpv/ytenrich/pkg/model"
)

const (
	CurrentVersion = 1

	badgerDirName = "badger"
	versionPath   = "ytenrich/version"
	entryPrefix   = "%s/"
	entryPath     = "%s/%s" // Kind + ID
)

// BadgerConfig represents BadgerDB configuration parameters
type BadgerConfig struct {
	Truncate bool `toml:"truncate"`
	FileIO   bool `toml:"file_io"`
}

// Badger keeps cache entries in an embedded BadgerDB directory.
// Keys are namespaced by kind, values are JSON envelopes with the write timestamp.
type Badger struct {
	db   *badger.DB
	path string
	now  func() time.Time
}

type envelope struct {
	Timestamp string          `json:"timestamp"`
	Content   json.RawMessage `json:"content"`
}

var _ Storage = (*Badger)(nil)

func NewBadger(config *Config) (*Badger, error) {
	var (
		dir = filepath.Join(config.Dir, badgerDirName)
	)

	log.Debugf("opening cache %q", dir)

	// Make sure cache directory exists
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "could not mkdir cache dir")
	}

	opts := badger.DefaultOptions(dir).
		WithLogger(log.StandardLogger()).
		WithSyncWrites(true).
		WithTruncate(true)

	if config.Badger != nil {
		opts.Truncate = config.Badger.Truncate
		if config.Badger.FileIO {
			opts.ValueLogLoadingMode = options.FileIO
		}
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open cache database")
	}

	if err := db.Update(func(txn *badger.Txn) error {
		data, err := json.Marshal(CurrentVersion)
		if err != nil {
			return err
		}
		return txn.Set([]byte(versionPath), data)
	}); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to write cache version")
	}

	return &Badger{db: db, path: dir, now: time.Now}, nil
}

func (b *Badger) Close() error {
	log.Debug("closing cache")
	return b.db.Close()
}

func (b *Badger) Path() string {
	return b.path
}

func (b *Badger) Version() (int, error) {
	var (
		version = -1
	)

	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(versionPath))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &version)
		})
	})

	return version, err
}

func (b *Badger) Put(_ context.Context, kind Kind, id string, obj interface{}) error {
	if err := validKind(kind); err != nil {
		return err
	}

	content, err := json.Marshal(obj)
	if err != nil {
		return errors.Wrapf(err, "failed to serialize %s %q", kind, id)
	}

	data, err := json.Marshal(envelope{Timestamp: formatTime(b.now()), Content: content})
	if err != nil {
		return errors.Wrapf(err, "failed to serialize %s %q", kind, id)
	}

	if err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(b.getKey(entryPath, kind, id), data)
	}); err != nil {
		return errors.Wrapf(err, "failed to store %s %q", kind, id)
	}

	return nil
}

func (b *Badger) Get(_ context.Context, kind Kind, id string, out interface{}) error {
	if err := validKind(kind); err != nil {
		return err
	}

	var env envelope
	if err := b.db.View(func(txn *badger.Txn) error {
		return b.getObj(txn, b.getKey(entryPath, kind, id), &env)
	}); err != nil {
		return err
	}

	if err := json.Unmarshal(env.Content, out); err != nil {
		return errors.Wrapf(err, "failed to decode cached %s %q", kind, id)
	}

	return nil
}

func (b *Badger) Remove(_ context.Context, kind Kind, id string) (bool, error) {
	if err := validKind(kind); err != nil {
		return false, err
	}

	var (
		key     = b.getKey(entryPath, kind, id)
		removed = false
	)

	err := b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}

		removed = true
		return txn.Delete(key)
	})
	if err != nil {
		return false, errors.Wrapf(err, "failed to remove %s %q", kind, id)
	}

	return removed, nil
}

func (b *Badger) Clear(_ context.Context, kinds ...Kind) error {
	for _, kind := range kindsOrAll(kinds) {
		if err := validKind(kind); err != nil {
			return err
		}

		if err := b.db.DropPrefix(b.getKey(entryPrefix, kind)); err != nil {
			return errors.Wrapf(err, "failed to clear %s cache", kind)
		}
	}

	return nil
}

func (b *Badger) Stats(ctx context.Context) (*Stats, error) {
	detailed, err := b.DetailedStats(ctx)
	if err != nil {
		return nil, err
	}

	return &Stats{
		Path:     b.path,
		Videos:   detailed.Videos.Count,
		Channels: detailed.Channels.Count,
	}, nil
}

func (b *Badger) DetailedStats(_ context.Context) (*DetailedStats, error) {
	stats := &DetailedStats{Path: b.path}

	err := b.db.View(func(txn *badger.Txn) error {
		for kind, ns := range map[Kind]*NamespaceStats{KindVideo: &stats.Videos, KindChannel: &stats.Channels} {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = b.getKey(entryPrefix, kind)
			opts.PrefetchValues = true

			var oldest, newest string
			if err := b.iterator(txn, opts, func(item *badger.Item) error {
				var env envelope
				if err := b.unmarshalObj(item, &env); err != nil {
					return err
				}

				ns.Count++
				if oldest == "" || env.Timestamp < oldest {
					oldest = env.Timestamp
				}
				if env.Timestamp > newest {
					newest = env.Timestamp
				}
				return nil
			}); err != nil {
				return errors.Wrapf(err, "failed to iterate %s entries", kind)
			}

			if ns.Count > 0 {
				var err error
				if ns.Oldest, err = parseTime(oldest); err != nil {
					return err
				}
				if ns.Newest, err = parseTime(newest); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return stats, nil
}

func (b *Badger) iterator(txn *badger.Txn, opts badger.IteratorOptions, callback func(item *badger.Item) error) error {
	iter := txn.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		item := iter.Item()

		if err := callback(item); err != nil {
			return err
		}
	}

	return nil
}

func (b *Badger) getKey(format string, a ...interface{}) []byte {
	resourcePath := fmt.Sprintf(format, a...)
	fullPath := fmt.Sprintf("ytenrich/v%d/%s", CurrentVersion, resourcePath)

	return []byte(fullPath)
}

func (b *Badger) getObj(txn *badger.Txn, key []byte, out interface{}) error {
	item, err := txn.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return model.ErrNotFound
		}

		return err
	}

	return b.unmarshalObj(item, out)
}

func (b *Badger) unmarshalObj(item *badger.Item, out interface{}) error {
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}
