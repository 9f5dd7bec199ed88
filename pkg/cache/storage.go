package cache

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Kind selects one of the independent cache namespaces.
type Kind string

const (
	KindVideo   = Kind("video")
	KindChannel = Kind("channel")
)

// Kinds lists every namespace known to the cache.
var Kinds = []Kind{KindVideo, KindChannel}

// timeLayout is fixed width so that lexicographic order of stored timestamps
// matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000Z"

type Storage interface {
	Close() error
	// Path returns the location of the cache on disk
	Path() string

	// Put stores obj as the current value for (kind, id), replacing any prior value.
	// The entry is stamped with the current UTC time and persisted before Put returns.
	Put(ctx context.Context, kind Kind, id string, obj interface{}) error

	// Get decodes the most recently stored value into out.
	// Returns model.ErrNotFound if there is no entry.
	Get(ctx context.Context, kind Kind, id string, out interface{}) error

	// Remove deletes the entry and reports whether it existed
	Remove(ctx context.Context, kind Kind, id string) (bool, error)

	// Clear deletes every entry of the given namespaces (all namespaces if none given)
	Clear(ctx context.Context, kinds ...Kind) error

	// Stats returns the number of entries per namespace
	Stats(ctx context.Context) (*Stats, error)

	// DetailedStats returns counts along with the oldest and newest write time per namespace
	DetailedStats(ctx context.Context) (*DetailedStats, error)
}

type Stats struct {
	Path     string `json:"db_path"`
	Videos   int    `json:"videos"`
	Channels int    `json:"channels"`
}

type NamespaceStats struct {
	Count  int        `json:"count"`
	Oldest *time.Time `json:"oldest"`
	Newest *time.Time `json:"newest"`
}

type DetailedStats struct {
	Path     string         `json:"db_path"`
	Videos   NamespaceStats `json:"videos"`
	Channels NamespaceStats `json:"channels"`
}

// ParseKind converts user input ("video", "videos", "channel", ...) to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "video", "videos":
		return KindVideo, nil
	case "channel", "channels":
		return KindChannel, nil
	default:
		return "", errors.Errorf("unknown cache kind %q", s)
	}
}

func validKind(kind Kind) error {
	switch kind {
	case KindVideo, KindChannel:
		return nil
	default:
		return errors.Errorf("unsupported cache kind %q", kind)
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (*time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse cache timestamp %q", s)
	}

	return &t, nil
}

func kindsOrAll(kinds []Kind) []Kind {
	if len(kinds) == 0 {
		return Kinds
	}

	return kinds
}
