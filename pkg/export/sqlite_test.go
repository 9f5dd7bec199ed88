package export

import (
	"context"
	"database/sql"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mxpv/ytenrich/pkg/enrich"
	"github.com/mxpv/ytenrich/pkg/model"
)

var (
	testCtx  = context.Background()
	testTime = time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
)

func u64(v uint64) *uint64 { return &v }

func str(s string) *string { return &s }

func getResult() *enrich.Result {
	return &enrich.Result{
		Channels: map[string]*model.Channel{
			"c1": {
				ID:              "c1",
				Title:           "Channel",
				URL:             model.ChannelURL("c1"),
				Country:         str("US"),
				SubscriberCount: u64(1000),
				PublishedAt:     &testTime,
				TopicIDs:        []string{"/m/04rlf"},
				ExtractedAt:     testTime,
			},
		},
		Videos: []*enrich.VideoItem{
			{
				ID:        "v1",
				AddedAt:   "2023-01-01 10:00:00 UTC",
				Playlists: []string{"Music", "Unknown"},
				Outcome:   enrich.OutcomeFetched,
				Video: &model.Video{
					ID:            "v1",
					Title:         "First",
					ChannelID:     str("c1"),
					PrivacyStatus: "public",
					Statistics: &model.Statistics{
						ViewCount:    u64(10),
						LikeCount:    u64(math.MaxUint64),
						CommentCount: nil,
					},
					Topics:      model.Topics{TopicCategories: []string{"https://en.wikipedia.org/wiki/Music"}},
					ExtractedAt: testTime,
				},
			},
			{
				ID:        "v2",
				AddedAt:   "2023-01-02 10:00:00 UTC",
				Playlists: []string{"Music"},
				Outcome:   enrich.OutcomeNotFound,
				Error:     "video not found",
			},
		},
	}
}

func getPlaylists() []*model.Playlist {
	return []*model.Playlist{
		{ID: "PL1", Title: "Music", Visibility: "Private", VideoOrder: "Manual", AddNewVideosToTop: true},
		{ID: "PL2", Title: "Empty"},
	}
}

func openDB(t *testing.T, path string) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func count(t *testing.T, db *sql.DB, table string) int {
	t.Helper()

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))
	return n
}

func TestSQLite_Export(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.db")

	err := NewSQLite().Export(testCtx, path, getResult(), getPlaylists())
	require.NoError(t, err)

	db := openDB(t, path)

	assert.Equal(t, 2, count(t, db, "videos"))
	assert.Equal(t, 1, count(t, db, "channels"))
	assert.Equal(t, 2, count(t, db, "playlists"))
	assert.Equal(t, 2, count(t, db, "video_playlists"))

	var (
		title     sql.NullString
		channelID sql.NullString
		views     sql.NullInt64
		likes     sql.NullInt64
		comments  sql.NullInt64
		topics    string
		playlists string
		extracted sql.NullString
		itemErr   sql.NullString
	)

	err = db.QueryRow(`SELECT title, channel_id, view_count, like_count, comment_count, topics, playlists, extracted_at, error
		FROM videos WHERE id = ?`, "v1").
		Scan(&title, &channelID, &views, &likes, &comments, &topics, &playlists, &extracted, &itemErr)
	require.NoError(t, err)

	assert.Equal(t, "First", title.String)
	assert.Equal(t, "c1", channelID.String)
	assert.Equal(t, int64(10), views.Int64)
	assert.False(t, likes.Valid)
	assert.False(t, comments.Valid)
	assert.Equal(t, `["https://en.wikipedia.org/wiki/Music"]`, topics)
	assert.Equal(t, `["Music","Unknown"]`, playlists)
	assert.Equal(t, "2024-03-01T12:30:00Z", extracted.String)
	assert.False(t, itemErr.Valid)

	err = db.QueryRow(`SELECT title, channel_id, error FROM videos WHERE id = ?`, "v2").Scan(&title, &channelID, &itemErr)
	require.NoError(t, err)
	assert.False(t, title.Valid)
	assert.False(t, channelID.Valid)
	assert.Equal(t, "video not found", itemErr.String)

	var subscribers int64
	require.NoError(t, db.QueryRow(`SELECT subscriber_count FROM channels WHERE id = 'c1'`).Scan(&subscribers))
	assert.EqualValues(t, 1000, subscribers)

	var addToTop int
	require.NoError(t, db.QueryRow(`SELECT add_new_videos_to_top FROM playlists WHERE id = 'PL1'`).Scan(&addToTop))
	assert.Equal(t, 1, addToTop)

	// "Unknown" can't be resolved to a playlist id
	rows, err := db.Query(`SELECT video_id FROM video_playlists WHERE playlist_id = 'PL1' ORDER BY video_id`)
	require.NoError(t, err)
	defer rows.Close()

	var linked []string
	for rows.Next() {
		var id string
		require.NoError(t, rows.Scan(&id))
		linked = append(linked, id)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"v1", "v2"}, linked)
}

func TestSQLite_ExportIndexes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.db")
	require.NoError(t, NewSQLite().Export(testCtx, path, getResult(), nil))

	db := openDB(t, path)

	for _, name := range []string{"idx_videos_channel_id", "idx_videos_added_at", "idx_video_playlists_playlist_id"} {
		var found string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'index' AND name = ?`, name).Scan(&found)
		require.NoError(t, err, name)
	}

	assert.Equal(t, 0, count(t, db, "playlists"))
	assert.Equal(t, 0, count(t, db, "video_playlists"))
}

func TestSQLite_ExportReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.db")

	exporter := NewSQLite()
	require.NoError(t, exporter.Export(testCtx, path, getResult(), getPlaylists()))
	require.NoError(t, exporter.Export(testCtx, path, getResult(), getPlaylists()))

	db := openDB(t, path)
	assert.Equal(t, 2, count(t, db, "videos"))
	assert.Equal(t, 1, count(t, db, "channels"))
	assert.Equal(t, 2, count(t, db, "playlists"))
	assert.Equal(t, 2, count(t, db, "video_playlists"))
	require.NoError(t, db.Close())

	// A smaller result must not leave rows of the previous export behind
	result := getResult()
	result.Videos = result.Videos[:1]
	require.NoError(t, exporter.Export(testCtx, path, result, nil))

	db = openDB(t, path)
	assert.Equal(t, 1, count(t, db, "videos"))
	assert.Equal(t, 0, count(t, db, "playlists"))
}

func TestSQLite_ExportNil(t *testing.T) {
	err := NewSQLite().Export(testCtx, filepath.Join(t.TempDir(), "export.db"), nil, nil)
	assert.Error(t, err)
}

func TestSQLite_ExportFailureKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "export.db")

	exporter := NewSQLite()
	require.NoError(t, exporter.Export(testCtx, path, getResult(), getPlaylists()))

	ctx, cancel := context.WithCancel(testCtx)
	cancel()

	result := getResult()
	result.Videos = nil
	err := exporter.Export(ctx, path, result, nil)
	require.Error(t, err)

	db := openDB(t, path)
	assert.Equal(t, 2, count(t, db, "videos"))
	assert.Equal(t, 2, count(t, db, "playlists"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "export.db", entries[0].Name())
}
