package youtube

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/mxpv/ytenrich/pkg/model"
)

var (
	videoParts   = []string{"snippet", "statistics", "topicDetails", "status"}
	channelParts = []string{"snippet", "statistics", "topicDetails", "brandingSettings"}
)

type apiKey string

func (key apiKey) Get() (string, string) {
	return "key", string(key)
}

// Source fetches video and channel metadata from the YouTube Data API v3.
type Source struct {
	client *youtube.Service
	keys   KeyProvider
}

// NewSource creates a metadata source. Every request is bounded by timeout.
// Additional client options (e.g. a custom endpoint) may be passed in opts.
func NewSource(ctx context.Context, keys KeyProvider, timeout time.Duration, opts ...option.ClientOption) (*Source, error) {
	if keys == nil {
		return nil, errors.New("API key provider is required")
	}

	if timeout <= 0 {
		timeout = model.DefaultRequestTimeout
	}

	opts = append([]option.ClientOption{option.WithHTTPClient(&http.Client{Timeout: timeout})}, opts...)

	yt, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create youtube client")
	}

	return &Source{client: yt, keys: keys}, nil
}

// FetchVideo queries a single video.
// Cost: 1 unit. See https://developers.google.com/youtube/v3/docs/videos/list
func (yt *Source) FetchVideo(ctx context.Context, id string) (*model.Video, error) {
	resp, err := yt.client.Videos.List(videoParts).Id(id).Context(ctx).Do(apiKey(yt.keys.Get()))
	if err != nil {
		return nil, classify(err, "failed to query video %q", id)
	}

	if len(resp.Items) == 0 {
		return nil, errors.Wrapf(model.ErrNotFound, "video %q", id)
	}

	item := resp.Items[0]
	if item.Snippet == nil {
		return nil, errors.Errorf("unexpected response for video %q: missing snippet", id)
	}

	video := &model.Video{
		ID:           id,
		Title:        item.Snippet.Title,
		Description:  item.Snippet.Description,
		ThumbnailURL: yt.selectThumbnail(item.Snippet.Thumbnails, id),
	}

	if item.Snippet.ChannelId != "" {
		channelID := item.Snippet.ChannelId
		video.ChannelID = &channelID
	}

	if item.Status != nil {
		video.PrivacyStatus = item.Status.PrivacyStatus
	}

	if stats := item.Statistics; stats != nil {
		video.Statistics = &model.Statistics{
			ViewCount:     counter(stats.ViewCount),
			LikeCount:     counter(stats.LikeCount),
			FavoriteCount: counter(stats.FavoriteCount),
			CommentCount:  counter(stats.CommentCount),
		}
	}

	if topics := item.TopicDetails; topics != nil {
		video.Topics = model.Topics{
			TopicIDs:         topics.TopicIds,
			RelevantTopicIDs: topics.RelevantTopicIds,
			TopicCategories:  topics.TopicCategories,
		}
	}

	return video, nil
}

// RawVideo returns the unprocessed videos.list response for a single video.
// API errors are returned as is (wrapped), without classification.
func (yt *Source) RawVideo(ctx context.Context, id string) (*youtube.VideoListResponse, error) {
	resp, err := yt.client.Videos.List(videoParts).Id(id).Context(ctx).Do(apiKey(yt.keys.Get()))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query video %q", id)
	}

	return resp, nil
}

// VideoParts lists the resource parts requested for videos.
func VideoParts() []string {
	return append([]string(nil), videoParts...)
}

// FetchChannel queries a single channel.
// Cost: 1 unit. See https://developers.google.com/youtube/v3/docs/channels/list
func (yt *Source) FetchChannel(ctx context.Context, id string) (*model.Channel, error) {
	resp, err := yt.client.Channels.List(channelParts).Id(id).Context(ctx).Do(apiKey(yt.keys.Get()))
	if err != nil {
		return nil, classify(err, "failed to query channel %q", id)
	}

	if len(resp.Items) == 0 {
		return nil, errors.Wrapf(model.ErrNotFound, "channel %q", id)
	}

	item := resp.Items[0]
	if item.Snippet == nil {
		return nil, errors.Errorf("unexpected response for channel %q: missing snippet", id)
	}

	channel := &model.Channel{
		ID:           id,
		Title:        item.Snippet.Title,
		Description:  item.Snippet.Description,
		URL:          model.ChannelURL(id),
		ThumbnailURL: yt.selectThumbnail(item.Snippet.Thumbnails, ""),
	}

	if item.Snippet.Country != "" {
		country := item.Snippet.Country
		channel.Country = &country
	}

	if item.Snippet.PublishedAt != "" {
		date, err := yt.parseDate(item.Snippet.PublishedAt)
		if err != nil {
			return nil, err
		}
		channel.PublishedAt = &date
	}

	if stats := item.Statistics; stats != nil && !stats.HiddenSubscriberCount {
		subscribers := stats.SubscriberCount
		channel.SubscriberCount = &subscribers
	}

	if topics := item.TopicDetails; topics != nil {
		channel.TopicIDs = topics.TopicIds
		channel.TopicCategories = topics.TopicCategories
	}

	return channel, nil
}

func (yt *Source) parseDate(s string) (time.Time, error) {
	date, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "failed to parse date: %s", s)
	}

	return date.UTC(), nil
}

func (yt *Source) selectThumbnail(snippet *youtube.ThumbnailDetails, videoID string) string {
	if snippet == nil {
		if videoID != "" {
			return fmt.Sprintf("https://img.youtube.com/vi/%s/default.jpg", videoID)
		}

		return ""
	}

	for _, thumbnail := range []*youtube.Thumbnail{snippet.Default, snippet.Medium, snippet.High} {
		if thumbnail != nil && thumbnail.Url != "" {
			return thumbnail.Url
		}
	}

	return ""
}

// classify maps API errors to model.ErrNotFound / model.ErrQuotaExceeded where possible.
// Anything else is returned as a transient failure.
func classify(err error, format string, args ...interface{}) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return errors.Wrapf(err, format, args...)
	}

	if apiErr.Code == http.StatusNotFound {
		return errors.Wrapf(model.ErrNotFound, format, args...)
	}

	for _, item := range apiErr.Errors {
		switch item.Reason {
		case "videoNotFound", "channelNotFound":
			return errors.Wrapf(model.ErrNotFound, format, args...)
		case "quotaExceeded", "dailyLimitExceeded", "rateLimitExceeded":
			log.WithField("reason", item.Reason).Warn("youtube API quota exceeded")
			return errors.Wrapf(model.ErrQuotaExceeded, format+": %s", append(args, apiErr.Message)...)
		}
	}

	return errors.Wrapf(err, format, args...)
}

func counter(value uint64) *uint64 {
	return &value
}
