package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/mxpv/ytenrich/pkg/model"
)

const sqliteFileName = "cache.sqlite3"

var tables = map[Kind]string{
	KindVideo:   "videos",
	KindChannel: "channels",
}

// SQLite keeps cache entries in a single SQLite file with one table per namespace.
// Each row is (id, timestamp, JSON content).
type SQLite struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

var _ Storage = (*SQLite)(nil)

func NewSQLite(config *Config) (*SQLite, error) {
	var (
		dir  = config.Dir
		path = filepath.Join(dir, sqliteFileName)
	)

	log.Debugf("opening cache %q", path)

	// Make sure cache directory exists
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "could not mkdir cache dir")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open cache database")
	}

	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	storage := &SQLite{db: db, path: path, now: time.Now}
	if err := storage.migrate(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to initialize cache tables")
	}

	return storage, nil
}

func (s *SQLite) migrate() error {
	for _, kind := range Kinds {
		query := `CREATE TABLE IF NOT EXISTS ` + tables[kind] + ` (
	id TEXT PRIMARY KEY,
	timestamp TEXT NOT NULL,
	content TEXT NOT NULL
)`
		if _, err := s.db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}

func (s *SQLite) Close() error {
	log.Debug("closing cache")
	return s.db.Close()
}

func (s *SQLite) Path() string {
	return s.path
}

func (s *SQLite) Put(ctx context.Context, kind Kind, id string, obj interface{}) error {
	if err := validKind(kind); err != nil {
		return err
	}

	content, err := json.Marshal(obj)
	if err != nil {
		return errors.Wrapf(err, "failed to serialize %s %q", kind, id)
	}

	query := `INSERT OR REPLACE INTO ` + tables[kind] + ` (id, timestamp, content) VALUES (?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, id, formatTime(s.now()), string(content)); err != nil {
		return errors.Wrapf(err, "failed to store %s %q", kind, id)
	}

	return nil
}

func (s *SQLite) Get(ctx context.Context, kind Kind, id string, out interface{}) error {
	if err := validKind(kind); err != nil {
		return err
	}

	var content string
	query := `SELECT content FROM ` + tables[kind] + ` WHERE id = ?`
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&content); err != nil {
		if err == sql.ErrNoRows {
			return model.ErrNotFound
		}

		return errors.Wrapf(err, "failed to query %s %q", kind, id)
	}

	if err := json.Unmarshal([]byte(content), out); err != nil {
		return errors.Wrapf(err, "failed to decode cached %s %q", kind, id)
	}

	return nil
}

func (s *SQLite) Remove(ctx context.Context, kind Kind, id string) (bool, error) {
	if err := validKind(kind); err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM `+tables[kind]+` WHERE id = ?`, id)
	if err != nil {
		return false, errors.Wrapf(err, "failed to remove %s %q", kind, id)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

func (s *SQLite) Clear(ctx context.Context, kinds ...Kind) error {
	for _, kind := range kindsOrAll(kinds) {
		if err := validKind(kind); err != nil {
			return err
		}

		if _, err := s.db.ExecContext(ctx, `DELETE FROM `+tables[kind]); err != nil {
			return errors.Wrapf(err, "failed to clear %s cache", kind)
		}
	}

	return nil
}

func (s *SQLite) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{Path: s.path}

	for kind, count := range map[Kind]*int{KindVideo: &stats.Videos, KindChannel: &stats.Channels} {
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+tables[kind]).Scan(count); err != nil {
			return nil, errors.Wrapf(err, "failed to count %s entries", kind)
		}
	}

	return stats, nil
}

func (s *SQLite) DetailedStats(ctx context.Context) (*DetailedStats, error) {
	stats := &DetailedStats{Path: s.path}

	for kind, ns := range map[Kind]*NamespaceStats{KindVideo: &stats.Videos, KindChannel: &stats.Channels} {
		var oldest, newest sql.NullString

		query := `SELECT COUNT(*), MIN(timestamp), MAX(timestamp) FROM ` + tables[kind]
		if err := s.db.QueryRowContext(ctx, query).Scan(&ns.Count, &oldest, &newest); err != nil {
			return nil, errors.Wrapf(err, "failed to query %s statistics", kind)
		}

		if oldest.Valid {
			t, err := parseTime(oldest.String)
			if err != nil {
				return nil, err
			}
			ns.Oldest = t
		}

		if newest.Valid {
			t, err := parseTime(newest.String)
			if err != nil {
				return nil, err
			}
			ns.Newest = t
		}
	}

	return stats, nil
}
