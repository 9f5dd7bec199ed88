package youtube

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/mxpv/ytenrich/pkg/model"
)

var testCtx = context.Background()

const videoResponse = `{
  "items": [{
    "id": "v1",
    "snippet": {
      "title": "Video title",
      "description": "Video description",
      "channelId": "c1",
      "thumbnails": {"default": {"url": "https://i.ytimg.com/vi/v1/default.jpg"}}
    },
    "statistics": {"viewCount": "1234", "likeCount": "56", "favoriteCount": "0", "commentCount": "7"},
    "topicDetails": {
      "topicIds": ["/m/04rlf"],
      "relevantTopicIds": ["/m/02mscn"],
      "topicCategories": ["https://en.wikipedia.org/wiki/Music"]
    },
    "status": {"privacyStatus": "unlisted"}
  }]
}`

const channelResponse = `{
  "items": [{
    "id": "c1",
    "snippet": {
      "title": "Channel title",
      "description": "Channel description",
      "publishedAt": "2012-03-04T05:06:07Z",
      "country": "DE",
      "thumbnails": {"default": {"url": "https://yt3.ggpht.com/c1.jpg"}}
    },
    "statistics": {"subscriberCount": "9000", "hiddenSubscriberCount": false},
    "topicDetails": {"topicIds": ["/m/04rlf"], "topicCategories": ["https://en.wikipedia.org/wiki/Music"]}
  }]
}`

func newTestSource(t *testing.T, handler http.HandlerFunc) *Source {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	keys, err := NewFixedKey("test-key")
	require.NoError(t, err)

	source, err := NewSource(testCtx, keys, time.Second, option.WithEndpoint(server.URL+"/"))
	require.NoError(t, err)

	return source
}

func reply(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestSource_FetchVideo(t *testing.T) {
	source := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/videos"))
		assert.Equal(t, "v1", r.URL.Query().Get("id"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		reply(http.StatusOK, videoResponse)(w, r)
	})

	video, err := source.FetchVideo(testCtx, "v1")
	require.NoError(t, err)

	assert.Equal(t, "v1", video.ID)
	assert.Equal(t, "Video title", video.Title)
	assert.Equal(t, "Video description", video.Description)
	assert.Equal(t, "https://i.ytimg.com/vi/v1/default.jpg", video.ThumbnailURL)
	assert.Equal(t, "c1", video.ChannelRef())
	assert.Equal(t, "unlisted", video.PrivacyStatus)

	require.NotNil(t, video.Statistics)
	assert.EqualValues(t, 1234, *video.Statistics.ViewCount)
	assert.EqualValues(t, 56, *video.Statistics.LikeCount)
	assert.EqualValues(t, 7, *video.Statistics.CommentCount)

	assert.Equal(t, []string{"/m/04rlf"}, video.Topics.TopicIDs)
	assert.Equal(t, []string{"/m/02mscn"}, video.Topics.RelevantTopicIDs)
	assert.Equal(t, []string{"https://en.wikipedia.org/wiki/Music"}, video.Topics.TopicCategories)
	assert.True(t, video.ExtractedAt.IsZero())
}

func TestSource_FetchVideoWithoutStatistics(t *testing.T) {
	source := newTestSource(t, reply(http.StatusOK, `{"items": [{"id": "v2", "snippet": {"title": "No stats"}}]}`))

	video, err := source.FetchVideo(testCtx, "v2")
	require.NoError(t, err)

	assert.Nil(t, video.Statistics)
	assert.Nil(t, video.ChannelID)
	assert.Equal(t, "https://img.youtube.com/vi/v2/default.jpg", video.ThumbnailURL)
}

func TestSource_FetchVideoNotFound(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "empty items", status: http.StatusOK, body: `{"items": []}`},
		{name: "http 404", status: http.StatusNotFound, body: `{"error": {"code": 404, "message": "gone"}}`},
		{
			name:   "reason",
			status: http.StatusBadRequest,
			body:   `{"error": {"code": 400, "message": "gone", "errors": [{"reason": "videoNotFound"}]}}`,
		},
	}

	for _, tst := range tests {
		t.Run(tst.name, func(t *testing.T) {
			source := newTestSource(t, reply(tst.status, tst.body))

			_, err := source.FetchVideo(testCtx, "missing")
			require.Error(t, err)
			assert.True(t, errors.Is(err, model.ErrNotFound))
		})
	}
}

func TestSource_FetchVideoTransient(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		quota  bool
	}{
		{
			name:   "invalid key",
			status: http.StatusBadRequest,
			body:   `{"error": {"code": 400, "message": "API key not valid", "errors": [{"reason": "keyInvalid"}]}}`,
		},
		{
			name:   "quota",
			status: http.StatusForbidden,
			body:   `{"error": {"code": 403, "message": "quota", "errors": [{"reason": "quotaExceeded"}]}}`,
			quota:  true,
		},
		{name: "malformed body", status: http.StatusOK, body: `{"items": [`},
		{name: "missing snippet", status: http.StatusOK, body: `{"items": [{"id": "v1"}]}`},
	}

	for _, tst := range tests {
		t.Run(tst.name, func(t *testing.T) {
			source := newTestSource(t, reply(tst.status, tst.body))

			_, err := source.FetchVideo(testCtx, "v1")
			require.Error(t, err)
			assert.False(t, errors.Is(err, model.ErrNotFound))
			assert.Equal(t, tst.quota, errors.Is(err, model.ErrQuotaExceeded))
		})
	}
}

func TestSource_FetchChannel(t *testing.T) {
	source := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/channels"))
		assert.Equal(t, "c1", r.URL.Query().Get("id"))
		reply(http.StatusOK, channelResponse)(w, r)
	})

	channel, err := source.FetchChannel(testCtx, "c1")
	require.NoError(t, err)

	assert.Equal(t, "c1", channel.ID)
	assert.Equal(t, "Channel title", channel.Title)
	assert.Equal(t, "Channel description", channel.Description)
	assert.Equal(t, "https://www.youtube.com/channel/c1", channel.URL)
	assert.Equal(t, "https://yt3.ggpht.com/c1.jpg", channel.ThumbnailURL)
	require.NotNil(t, channel.Country)
	assert.Equal(t, "DE", *channel.Country)
	require.NotNil(t, channel.SubscriberCount)
	assert.EqualValues(t, 9000, *channel.SubscriberCount)
	require.NotNil(t, channel.PublishedAt)
	assert.True(t, time.Date(2012, 3, 4, 5, 6, 7, 0, time.UTC).Equal(*channel.PublishedAt))
	assert.Equal(t, []string{"/m/04rlf"}, channel.TopicIDs)
}

func TestSource_FetchChannelHiddenSubscribers(t *testing.T) {
	source := newTestSource(t, reply(http.StatusOK, `{"items": [{"id": "c2", "snippet": {"title": "Hidden"}, "statistics": {"hiddenSubscriberCount": true}}]}`))

	channel, err := source.FetchChannel(testCtx, "c2")
	require.NoError(t, err)
	assert.Nil(t, channel.SubscriberCount)
	assert.Nil(t, channel.Country)
	assert.Nil(t, channel.PublishedAt)
}

func TestSource_FetchChannelNotFound(t *testing.T) {
	source := newTestSource(t, reply(http.StatusOK, `{"items": []}`))

	_, err := source.FetchChannel(testCtx, "missing")
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestSource_RotatesKeys(t *testing.T) {
	var seen []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.URL.Query().Get("key"))
		reply(http.StatusOK, videoResponse)(w, r)
	}))
	defer server.Close()

	keys, err := NewRotatedKeys([]string{"a", "b"})
	require.NoError(t, err)

	source, err := NewSource(testCtx, keys, time.Second, option.WithEndpoint(server.URL+"/"))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := source.FetchVideo(testCtx, "v1")
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"a", "b", "a"}, seen)
}

func TestNewSource_RequiresKeys(t *testing.T) {
	_, err := NewSource(testCtx, nil, time.Second)
	assert.Error(t, err)
}

func TestSource_RawVideo(t *testing.T) {
	source := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "snippet,statistics,topicDetails,status", r.URL.Query().Get("part"))
		assert.Equal(t, "v1", r.URL.Query().Get("id"))
		w.Header().Set("X-Test", "yes")
		reply(http.StatusOK, videoResponse)(w, r)
	})

	resp, err := source.RawVideo(testCtx, "v1")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.HTTPStatusCode)
	assert.Equal(t, "yes", resp.Header.Get("X-Test"))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "unlisted", resp.Items[0].Status.PrivacyStatus)
	assert.EqualValues(t, 1234, resp.Items[0].Statistics.ViewCount)

	assert.Equal(t, []string{"snippet", "statistics", "topicDetails", "status"}, VideoParts())
}

func TestSource_RawVideoError(t *testing.T) {
	source := newTestSource(t, reply(http.StatusForbidden, `{"error": {"code": 403, "message": "quota", "errors": [{"reason": "quotaExceeded"}]}}`))

	_, err := source.RawVideo(testCtx, "v1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, model.ErrQuotaExceeded))
	assert.Contains(t, err.Error(), "403")
}
