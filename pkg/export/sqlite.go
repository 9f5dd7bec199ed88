package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/mxpv/ytenrich/pkg/enrich"
	"github.com/mxpv/ytenrich/pkg/model"
)

var schema = []string{
	`CREATE TABLE channels (
	id TEXT PRIMARY KEY,
	title TEXT,
	description TEXT,
	url TEXT,
	thumbnail_url TEXT,
	country TEXT,
	subscriber_count INTEGER,
	published_at TEXT,
	topic_ids TEXT,
	topic_categories TEXT,
	extracted_at TEXT
)`,
	`CREATE TABLE playlists (
	id TEXT PRIMARY KEY,
	title TEXT,
	visibility TEXT,
	video_order TEXT,
	created_at TEXT,
	updated_at TEXT,
	add_new_videos_to_top INTEGER
)`,
	`CREATE TABLE videos (
	id TEXT PRIMARY KEY,
	title TEXT,
	description TEXT,
	thumbnail_url TEXT,
	channel_id TEXT,
	privacy_status TEXT,
	view_count INTEGER,
	like_count INTEGER,
	comment_count INTEGER,
	topics TEXT,
	playlists TEXT,
	added_at TEXT,
	extracted_at TEXT,
	error TEXT,
	FOREIGN KEY (channel_id) REFERENCES channels(id)
)`,
	`CREATE TABLE video_playlists (
	video_id TEXT,
	playlist_id TEXT,
	added_at TEXT,
	PRIMARY KEY (video_id, playlist_id),
	FOREIGN KEY (video_id) REFERENCES videos(id),
	FOREIGN KEY (playlist_id) REFERENCES playlists(id)
)`,
}

var indexes = []string{
	`CREATE INDEX idx_videos_channel_id ON videos(channel_id)`,
	`CREATE INDEX idx_videos_added_at ON videos(added_at)`,
	`CREATE INDEX idx_video_playlists_playlist_id ON video_playlists(playlist_id)`,
}

// SQLite writes enrichment results to a standalone SQLite database.
type SQLite struct{}

func NewSQLite() *SQLite {
	return &SQLite{}
}

// Export replaces the database at path with a snapshot of result.
// playlists is optional; without it the playlists and video_playlists tables stay empty.
// The snapshot is built in a temporary file next to path, a failed export leaves the previous one intact.
func (s *SQLite) Export(ctx context.Context, path string, result *enrich.Result, playlists []*model.Playlist) error {
	if result == nil {
		return errors.New("nothing to export")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "failed to create export directory %q", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "failed to create temporary export file")
	}

	tmpPath := tmp.Name()
	if err := tmp.Close(); err != nil {
		_ = remove(tmpPath)
		return errors.Wrap(err, "failed to close temporary export file")
	}

	if err := s.build(ctx, tmpPath, result, playlists); err != nil {
		_ = remove(tmpPath)
		return err
	}

	// Journal files of the previous export must not be applied to the new one
	if err := removeJournals(path); err != nil {
		_ = remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = remove(tmpPath)
		return errors.Wrapf(err, "failed to move export to %q", path)
	}

	log.WithFields(log.Fields{
		"path":      path,
		"videos":    len(result.Videos),
		"channels":  len(result.Channels),
		"playlists": len(playlists),
	}).Info("exported database")

	return nil
}

// build writes the complete snapshot to an empty database file at path.
func (s *SQLite) build(ctx context.Context, path string, result *enrich.Result, playlists []*model.Playlist) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return errors.Wrapf(err, "failed to open export database %q", path)
	}
	defer db.Close()

	db.SetMaxOpenConns(1)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin export transaction")
	}

	if err := write(ctx, tx, result, playlists); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit export")
	}

	return errors.Wrap(db.Close(), "failed to close export database")
}

// remove deletes a database file along with its journal files.
func remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to remove %q", path)
	}

	return removeJournals(path)
}

func removeJournals(path string) error {
	for _, suffix := range []string{"-journal", "-wal", "-shm"} {
		if err := os.Remove(path + suffix); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "failed to remove %q", path+suffix)
		}
	}

	return nil
}

func write(ctx context.Context, tx *sql.Tx, result *enrich.Result, playlists []*model.Playlist) error {
	for _, query := range schema {
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return errors.Wrap(err, "failed to create export schema")
		}
	}

	if err := writeChannels(ctx, tx, result.Channels); err != nil {
		return err
	}

	ids, err := writePlaylists(ctx, tx, playlists)
	if err != nil {
		return err
	}

	if err := writeVideos(ctx, tx, result.Videos, ids); err != nil {
		return err
	}

	for _, query := range indexes {
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return errors.Wrap(err, "failed to create export index")
		}
	}

	return nil
}

func writeChannels(ctx context.Context, tx *sql.Tx, channels map[string]*model.Channel) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO channels (
	id, title, description, url, thumbnail_url, country,
	subscriber_count, published_at, topic_ids, topic_categories, extracted_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "failed to prepare channel insert")
	}
	defer stmt.Close()

	for id, channel := range channels {
		if channel == nil {
			continue
		}

		var published interface{}
		if channel.PublishedAt != nil {
			published = timestamp(*channel.PublishedAt)
		}

		_, err := stmt.ExecContext(ctx,
			id,
			channel.Title,
			channel.Description,
			channel.URL,
			channel.ThumbnailURL,
			nullString(channel.Country),
			integer(channel.SubscriberCount),
			published,
			jsonList(channel.TopicIDs),
			jsonList(channel.TopicCategories),
			timestamp(channel.ExtractedAt),
		)
		if err != nil {
			return errors.Wrapf(err, "failed to export channel %q", id)
		}
	}

	return nil
}

// writePlaylists inserts playlist metadata and returns the title to id mapping used by the junction table.
func writePlaylists(ctx context.Context, tx *sql.Tx, playlists []*model.Playlist) (map[string]string, error) {
	ids := map[string]string{}

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO playlists (
	id, title, visibility, video_order, created_at, updated_at, add_new_videos_to_top
) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to prepare playlist insert")
	}
	defer stmt.Close()

	for _, playlist := range playlists {
		if playlist == nil || playlist.ID == "" {
			continue
		}

		addToTop := 0
		if playlist.AddNewVideosToTop {
			addToTop = 1
		}

		_, err := stmt.ExecContext(ctx,
			playlist.ID,
			playlist.Title,
			playlist.Visibility,
			playlist.VideoOrder,
			playlist.CreatedAt,
			playlist.UpdatedAt,
			addToTop,
		)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to export playlist %q", playlist.ID)
		}

		if playlist.Title != "" {
			ids[playlist.Title] = playlist.ID
		}
	}

	return ids, nil
}

func writeVideos(ctx context.Context, tx *sql.Tx, items []*enrich.VideoItem, playlistIDs map[string]string) error {
	videoStmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO videos (
	id, title, description, thumbnail_url, channel_id, privacy_status,
	view_count, like_count, comment_count, topics, playlists,
	added_at, extracted_at, error
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "failed to prepare video insert")
	}
	defer videoStmt.Close()

	linkStmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO video_playlists (video_id, playlist_id, added_at) VALUES (?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "failed to prepare video playlist insert")
	}
	defer linkStmt.Close()

	for _, item := range items {
		if item == nil || item.ID == "" {
			continue
		}

		var (
			video = item.Video
			row   = videoRow{id: item.ID}
		)

		if video != nil {
			row.title = video.Title
			row.description = video.Description
			row.thumbnail = video.ThumbnailURL
			row.channelID = nullString(video.ChannelID)
			row.privacy = video.PrivacyStatus
			row.extractedAt = timestamp(video.ExtractedAt)
			row.topics = video.Topics.TopicCategories

			if stats := video.Statistics; stats != nil {
				row.views = integer(stats.ViewCount)
				row.likes = integer(stats.LikeCount)
				row.comments = integer(stats.CommentCount)
			}
		}

		var itemErr interface{}
		if item.Error != "" {
			itemErr = item.Error
		}

		_, err := videoStmt.ExecContext(ctx,
			row.id,
			nullIfEmpty(row.title),
			nullIfEmpty(row.description),
			nullIfEmpty(row.thumbnail),
			row.channelID,
			nullIfEmpty(row.privacy),
			row.views,
			row.likes,
			row.comments,
			jsonList(row.topics),
			jsonList(item.Playlists),
			nullIfEmpty(item.AddedAt),
			row.extractedAt,
			itemErr,
		)
		if err != nil {
			return errors.Wrapf(err, "failed to export video %q", item.ID)
		}

		for _, name := range item.Playlists {
			playlistID, ok := playlistIDs[name]
			if !ok {
				continue
			}

			if _, err := linkStmt.ExecContext(ctx, item.ID, playlistID, nullIfEmpty(item.AddedAt)); err != nil {
				return errors.Wrapf(err, "failed to link video %q to playlist %q", item.ID, playlistID)
			}
		}
	}

	return nil
}

type videoRow struct {
	id          string
	title       string
	description string
	thumbnail   string
	channelID   interface{}
	privacy     string
	views       interface{}
	likes       interface{}
	comments    interface{}
	topics      []string
	extractedAt interface{}
}

// integer coerces a counter to an SQL integer, values that don't fit are stored as NULL.
func integer(value *uint64) interface{} {
	if value == nil || *value > math.MaxInt64 {
		return nil
	}

	return int64(*value)
}

func timestamp(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}

	return t.UTC().Format(time.RFC3339)
}

func nullString(s *string) interface{} {
	if s == nil {
		return nil
	}

	return *s
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}

	return s
}

// jsonList encodes a list of strings, nil lists become "[]".
func jsonList(list []string) string {
	if list == nil {
		list = []string{}
	}

	data, _ := json.Marshal(list)
	return string(data)
}
