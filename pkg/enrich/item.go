package enrich

import (
	"strings"

	"github.com/mxpv/ytenrich/pkg/model"
)

// Item is a single input identifier with its provenance.
type Item struct {
	VideoID string
	AddedAt string
	// Playlists lists the names of the playlists the video appeared in
	Playlists []string
}

// Items converts the entries of a single playlist to engine input.
func Items(entries []model.Entry) []Item {
	items := make([]Item, 0, len(entries))
	for _, entry := range entries {
		items = append(items, Item{
			VideoID: strings.TrimSpace(entry.VideoID),
			AddedAt: entry.AddedAt,
		})
	}

	return items
}

// Merge combines several playlists into a single ordered list of unique items.
// The first occurrence of an identifier defines its position and "added at" time,
// later occurrences only extend the list of playlists it appeared in.
func Merge(sources []model.PlaylistSource) []Item {
	var (
		items []Item
		index = map[string]int{}
	)

	for _, source := range sources {
		for _, entry := range source.Entries {
			id := strings.TrimSpace(entry.VideoID)
			if id == "" {
				continue
			}

			pos, ok := index[id]
			if !ok {
				index[id] = len(items)
				items = append(items, Item{
					VideoID:   id,
					AddedAt:   entry.AddedAt,
					Playlists: []string{source.Name},
				})
				continue
			}

			if !contains(items[pos].Playlists, source.Name) {
				items[pos].Playlists = append(items[pos].Playlists, source.Name)
			}
		}
	}

	return items
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}

	return false
}
