// Package takeout reads playlist exports produced by Google Takeout.
package takeout

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/mxpv/ytenrich/pkg/model"
)

const (
	PlaylistsFileName = "playlists.csv"
	videosFileSuffix  = "-videos.csv"
)

const (
	columnVideoID      = "Video ID"
	columnVideoAddedAt = "Playlist Video Creation Timestamp"

	columnPlaylistID         = "Playlist ID"
	columnPlaylistTitle      = "Playlist Title (Original)"
	columnPlaylistVisibility = "Playlist Visibility"
	columnPlaylistOrder      = "Playlist Video Order"
	columnPlaylistCreated    = "Playlist Create Timestamp"
	columnPlaylistUpdated    = "Playlist Update Timestamp"
	columnPlaylistAddToTop   = "Add new videos to top"
)

// Export is the content of a Takeout playlists directory.
type Export struct {
	Playlists []*model.Playlist
	Sources   []model.PlaylistSource
}

// table is a CSV file with a header row.
type table struct {
	columns map[string]int
	rows    [][]string
}

func (t *table) value(row []string, column string) string {
	idx, ok := t.columns[column]
	if !ok || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}

func readTable(r io.Reader, required ...string) (*table, error) {
	reader := bufio.NewReader(r)

	// Takeout files may start with a UTF-8 BOM
	if bom, err := reader.Peek(3); err == nil && string(bom) == "\xef\xbb\xbf" {
		_, _ = reader.Discard(3)
	}

	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read csv")
	}

	if len(records) == 0 {
		return nil, errors.New("csv file is empty")
	}

	t := &table{columns: map[string]int{}, rows: records[1:]}
	for idx, name := range records[0] {
		t.columns[strings.TrimSpace(name)] = idx
	}

	for _, name := range required {
		if _, ok := t.columns[name]; !ok {
			return nil, errors.Errorf("missing column %q", name)
		}
	}

	return t, nil
}

// ParseVideos reads a playlist videos file. Rows without a video id are skipped.
func ParseVideos(r io.Reader) ([]model.Entry, error) {
	t, err := readTable(r, columnVideoID)
	if err != nil {
		return nil, err
	}

	entries := make([]model.Entry, 0, len(t.rows))
	for _, row := range t.rows {
		id := t.value(row, columnVideoID)
		if id == "" {
			continue
		}

		entries = append(entries, model.Entry{
			VideoID: id,
			AddedAt: t.value(row, columnVideoAddedAt),
		})
	}

	return entries, nil
}

// ParsePlaylists reads playlists.csv. Rows without a playlist id are skipped.
func ParsePlaylists(r io.Reader) ([]*model.Playlist, error) {
	t, err := readTable(r, columnPlaylistID)
	if err != nil {
		return nil, err
	}

	var playlists []*model.Playlist
	for _, row := range t.rows {
		id := t.value(row, columnPlaylistID)
		if id == "" {
			continue
		}

		playlists = append(playlists, &model.Playlist{
			ID:                id,
			Title:             t.value(row, columnPlaylistTitle),
			Visibility:        t.value(row, columnPlaylistVisibility),
			VideoOrder:        t.value(row, columnPlaylistOrder),
			CreatedAt:         t.value(row, columnPlaylistCreated),
			UpdatedAt:         t.value(row, columnPlaylistUpdated),
			AddNewVideosToTop: strings.EqualFold(t.value(row, columnPlaylistAddToTop), "true"),
		})
	}

	return playlists, nil
}

// LoadFile reads a single playlist videos file.
func LoadFile(path string) ([]model.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %q", path)
	}
	defer f.Close()

	entries, err := ParseVideos(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %q", path)
	}

	return entries, nil
}

// PlaylistName derives the playlist name from a videos file name,
// "Watch later-videos.csv" becomes "Watch later".
func PlaylistName(path string) string {
	name := filepath.Base(path)
	if strings.HasSuffix(name, videosFileSuffix) {
		return strings.TrimSuffix(name, videosFileSuffix)
	}

	return strings.TrimSuffix(name, filepath.Ext(name))
}

// LoadDir reads a Takeout playlists directory: playlists.csv and every "*-videos.csv" file.
func LoadDir(dir string) (*Export, error) {
	playlistsPath := filepath.Join(dir, PlaylistsFileName)

	f, err := os.Open(playlistsPath)
	if err != nil {
		return nil, errors.Wrapf(err, "%s not found in %q", PlaylistsFileName, dir)
	}
	defer f.Close()

	playlists, err := ParsePlaylists(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %q", playlistsPath)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*"+videosFileSuffix))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list playlist files")
	}

	if len(files) == 0 {
		return nil, errors.Errorf("no *%s files found in %q", videosFileSuffix, dir)
	}

	sort.Strings(files)

	export := &Export{Playlists: playlists}
	for _, path := range files {
		entries, err := LoadFile(path)
		if err != nil {
			return nil, err
		}

		name := PlaylistName(path)
		log.WithFields(log.Fields{
			"playlist": name,
			"videos":   len(entries),
		}).Debug("loaded playlist")

		export.Sources = append(export.Sources, model.PlaylistSource{Name: name, Entries: entries})
	}

	return export, nil
}
