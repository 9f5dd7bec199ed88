package model

// Playlist is the playlist metadata found in a Takeout export (playlists.csv).
type Playlist struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	Visibility        string `json:"visibility"`
	VideoOrder        string `json:"video_order"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
	AddNewVideosToTop bool   `json:"add_new_videos_to_top"`
}

// Entry is a single row of a playlist: the video identifier and the time it
// was added to the playlist.
type Entry struct {
	VideoID string
	AddedAt string
}

// PlaylistSource is an ordered list of entries read from one playlist file.
type PlaylistSource struct {
	Name    string
	Entries []Entry
}
