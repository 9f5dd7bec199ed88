package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mxpv/ytenrich/pkg/model"
)

func TestItems(t *testing.T) {
	items := Items([]model.Entry{
		{VideoID: " abc ", AddedAt: "2023-01-01"},
		{VideoID: "def", AddedAt: "2023-01-02"},
	})

	require.Len(t, items, 2)
	assert.Equal(t, "abc", items[0].VideoID)
	assert.Equal(t, "2023-01-02", items[1].AddedAt)
	assert.Empty(t, items[0].Playlists)
}

func TestMerge(t *testing.T) {
	items := Merge([]model.PlaylistSource{
		{
			Name: "Watch later",
			Entries: []model.Entry{
				{VideoID: "a", AddedAt: "1"},
				{VideoID: "b", AddedAt: "2"},
				{VideoID: "a", AddedAt: "3"},
			},
		},
		{
			Name: "Music",
			Entries: []model.Entry{
				{VideoID: "c", AddedAt: "4"},
				{VideoID: " b", AddedAt: "5"},
				{VideoID: "", AddedAt: "6"},
			},
		},
	})

	require.Len(t, items, 3)

	assert.Equal(t, "a", items[0].VideoID)
	assert.Equal(t, "1", items[0].AddedAt)
	assert.Equal(t, []string{"Watch later"}, items[0].Playlists)

	assert.Equal(t, "b", items[1].VideoID)
	assert.Equal(t, "2", items[1].AddedAt)
	assert.Equal(t, []string{"Watch later", "Music"}, items[1].Playlists)

	assert.Equal(t, "c", items[2].VideoID)
	assert.Equal(t, []string{"Music"}, items[2].Playlists)
}

func TestMerge_Empty(t *testing.T) {
	assert.Empty(t, Merge(nil))
}
