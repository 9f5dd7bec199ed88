package model

import (
	"fmt"
	"time"
)

type Channel struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	URL             string     `json:"url"`
	ThumbnailURL    string     `json:"thumbnail_url"`
	Country         *string    `json:"country"`
	SubscriberCount *uint64    `json:"subscriber_count"`
	PublishedAt     *time.Time `json:"published_at"`
	TopicIDs        []string   `json:"topic_ids"`
	TopicCategories []string   `json:"topic_categories"`
	ExtractedAt     time.Time  `json:"extracted_at"`
}

// ChannelURL returns the canonical URL of a channel.
func ChannelURL(id string) string {
	return fmt.Sprintf("https://www.youtube.com/channel/%s", id)
}
