package enrich

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/mxpv/ytenrich/pkg/model"
)

// Result is the outcome of an enrichment run.
type Result struct {
	Metadata Metadata                  `json:"metadata"`
	Channels map[string]*model.Channel `json:"channels"`
	Videos   []*VideoItem              `json:"videos"`
}

type Metadata struct {
	Source        string    `json:"source,omitempty"`
	EnrichedAt    time.Time `json:"enriched_at"`
	TotalChannels int       `json:"total_channels"`
	APIErrors     int       `json:"api_errors"`
	Run
}

// VideoItem is a single processed input item.
// Exactly one of Video and Error is set.
type VideoItem struct {
	ID        string       `json:"video_id"`
	AddedAt   string       `json:"added_at"`
	Playlists []string     `json:"appears_in_playlists,omitempty"`
	Outcome   Outcome      `json:"outcome"`
	Video     *model.Video `json:"video,omitempty"`
	Error     string       `json:"error,omitempty"`
}

func (v *VideoItem) Failed() bool {
	return v.Error != ""
}

// ChannelID returns the channel referenced by the video, if any.
func (v *VideoItem) ChannelID() string {
	return v.Video.ChannelRef()
}

// LoadJSON reads a result previously written with WriteJSON.
func LoadJSON(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read result file: %s", path)
	}

	result := &Result{}
	if err := json.Unmarshal(data, result); err != nil {
		return nil, errors.Wrapf(err, "failed to decode result file: %s", path)
	}

	return result, nil
}

// WriteJSON writes v (usually a *Result) as indented JSON to path. The file is replaced atomically.
func WriteJSON(path string, v interface{}) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "failed to create output directory %q", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "failed to create temporary file")
	}

	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		cleanup()
		return errors.Wrap(err, "failed to encode result")
	}

	if err := tmp.Sync(); err != nil {
		cleanup()
		return errors.Wrap(err, "failed to sync result file")
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.Wrap(err, "failed to close result file")
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.Wrapf(err, "failed to write result to %q", path)
	}

	return nil
}
