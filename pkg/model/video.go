package model

import (
	"fmt"
	"time"
)

// Video is the metadata of a single video as returned by the metadata source
// and stored in the cache.
type Video struct {
	ID            string      `json:"video_id"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	ThumbnailURL  string      `json:"thumbnail_url"`
	ChannelID     *string     `json:"channel_id"`
	PrivacyStatus string      `json:"privacy_status,omitempty"`
	Statistics    *Statistics `json:"statistics"`
	Topics        Topics      `json:"topic_details"`
	// ExtractedAt is set when the record is fetched from the source
	ExtractedAt time.Time `json:"extracted_at"`
}

// Statistics holds video counters. A nil counter means the API withheld it.
type Statistics struct {
	ViewCount     *uint64 `json:"view_count"`
	LikeCount     *uint64 `json:"like_count"`
	FavoriteCount *uint64 `json:"favorite_count"`
	CommentCount  *uint64 `json:"comment_count"`
}

type Topics struct {
	TopicIDs         []string `json:"topic_ids"`
	RelevantTopicIDs []string `json:"relevant_topic_ids"`
	TopicCategories  []string `json:"topic_categories"`
}

// ChannelRef returns the owning channel identifier or an empty string.
func (v *Video) ChannelRef() string {
	if v == nil || v.ChannelID == nil {
		return ""
	}

	return *v.ChannelID
}

// VideoURL returns the public watch URL of a video.
func VideoURL(id string) string {
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s", id)
}
