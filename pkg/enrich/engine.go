package enrich

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/mxpv/ytenrich/pkg/cache"
	"github.com/mxpv/ytenrich/pkg/model"
)

type Options struct {
	// FailureThreshold is the number of consecutive transient failures that aborts the run
	FailureThreshold int
	// EmitPrivacyStatus keeps the privacy status on output items
	EmitPrivacyStatus bool
	// TrackPlaylists records the playlists each item appeared in
	TrackPlaylists bool
}

// Engine turns input identifiers into enriched items, serving from the cache
// whenever possible and fetching from the source otherwise.
type Engine struct {
	cache  Cache
	source Source
	opts   Options
	now    func() time.Time
}

func New(cache Cache, source Source, opts Options) *Engine {
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = model.DefaultFailureThreshold
	}

	return &Engine{
		cache:  cache,
		source: source,
		opts:   opts,
		now:    time.Now,
	}
}

// lookup is the tagged result of resolving a single video or channel.
type lookup struct {
	outcome Outcome
	video   *model.Video
	err     error
}

// session is the mutable state of a single Run call.
type session struct {
	run      *Run
	breaker  *breaker
	channels map[string]*model.Channel // nil value: resolution was attempted and failed
}

// Run processes items in order. The returned result is never nil and holds every item
// processed so far, even when an error is returned.
//
// The run stops early when the circuit breaker trips (error matches ErrAborted),
// when ctx is cancelled, or when the cache fails (storage errors are fatal).
func (e *Engine) Run(ctx context.Context, items []Item) (*Result, error) {
	var (
		run = &Run{State: StateRunning, TotalItems: len(items)}
		s   = &session{
			run:      run,
			breaker:  newBreaker(e.opts.FailureThreshold),
			channels: map[string]*model.Channel{},
		}
		result = &Result{Channels: map[string]*model.Channel{}}
	)

	defer func() {
		e.finish(result, s)
	}()

	for idx, item := range items {
		if err := ctx.Err(); err != nil {
			run.State = StateInterrupted
			return result, err
		}

		logger := log.WithFields(log.Fields{
			"index":    idx,
			"video_id": item.VideoID,
		})

		entry, err := e.processItem(ctx, s, item, logger)
		if err != nil {
			run.State = StateAborted
			return result, err
		}

		result.Videos = append(result.Videos, entry)
		run.Processed++

		if s.breaker.Tripped() {
			run.State = StateAborted
			run.Aborted = true

			logger.Errorf("aborting: %d consecutive API failures", s.breaker.Consecutive())
			return result, errors.Wrapf(ErrAborted, "%d consecutive API failures after %d of %d item(s)",
				s.breaker.Consecutive(), run.Processed, run.TotalItems)
		}
	}

	run.State = StateDone
	return result, nil
}

func (e *Engine) finish(result *Result, s *session) {
	for id, channel := range s.channels {
		if channel != nil {
			result.Channels[id] = channel
		}
	}

	s.run.ConsecutiveFailures = s.breaker.Consecutive()

	result.Metadata.Run = *s.run
	result.Metadata.TotalChannels = len(result.Channels)
	result.Metadata.APIErrors = s.run.APIErrors()
	result.Metadata.EnrichedAt = e.now().UTC()
}

func (e *Engine) processItem(ctx context.Context, s *session, item Item, logger log.FieldLogger) (*VideoItem, error) {
	entry := &VideoItem{
		ID:      item.VideoID,
		AddedAt: item.AddedAt,
	}

	if e.opts.TrackPlaylists {
		entry.Playlists = item.Playlists
	}

	res, err := e.resolveVideo(ctx, s, item.VideoID)
	if err != nil {
		return nil, err
	}

	entry.Outcome = res.outcome
	logger = logger.WithField("outcome", res.outcome)

	if !res.outcome.Usable() {
		entry.Error = res.err.Error()
		logger.WithError(res.err).Warn("failed to enrich video")
		return entry, nil
	}

	logger.Debug("video resolved")

	video := res.video
	if !e.opts.EmitPrivacyStatus && video.PrivacyStatus != "" {
		stripped := *video
		stripped.PrivacyStatus = ""
		video = &stripped
	}
	entry.Video = video

	if channelID := video.ChannelRef(); channelID != "" {
		if err := e.resolveChannel(ctx, s, channelID, logger); err != nil {
			return nil, err
		}
	}

	return entry, nil
}

// resolveVideo implements the cache-or-fetch discipline for a video.
// The returned error is fatal (storage), per-item failures are reported in lookup.
func (e *Engine) resolveVideo(ctx context.Context, s *session, id string) (*lookup, error) {
	cached := &model.Video{}
	err := e.cache.Get(ctx, cache.KindVideo, id, cached)
	if err == nil {
		s.run.VideoCacheHits++
		return &lookup{outcome: OutcomeHit, video: cached}, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, errors.Wrapf(err, "failed to read video %q from cache", id)
	}

	s.run.APICalls++
	video, err := e.source.FetchVideo(ctx, id)
	if err != nil {
		return e.failure(s, err), nil
	}

	s.run.APISuccess++
	s.breaker.RecordSuccess()

	video.ID = id
	video.ExtractedAt = e.now().UTC()
	if err := e.cache.Put(ctx, cache.KindVideo, id, video); err != nil {
		return nil, errors.Wrapf(err, "failed to cache video %q", id)
	}

	return &lookup{outcome: OutcomeFetched, video: video}, nil
}

// resolveChannel resolves a channel at most once per run: run-local map first, then cache, then source.
// Failures do not affect the video item that referenced the channel.
func (e *Engine) resolveChannel(ctx context.Context, s *session, id string, logger log.FieldLogger) error {
	logger = logger.WithField("channel_id", id)

	if channel, ok := s.channels[id]; ok {
		// Failed channels are not retried within a run and don't count as hits
		if channel != nil {
			s.run.ChannelRunHits++
		} else {
			logger.Debug("skipping channel that failed earlier in this run")
		}
		return nil
	}

	cached := &model.Channel{}
	err := e.cache.Get(ctx, cache.KindChannel, id, cached)
	if err == nil {
		s.run.ChannelCacheHits++
		s.channels[id] = cached
		return nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return errors.Wrapf(err, "failed to read channel %q from cache", id)
	}

	s.run.APICalls++
	channel, err := e.source.FetchChannel(ctx, id)
	if err != nil {
		res := e.failure(s, err)
		s.channels[id] = nil
		logger.WithError(res.err).WithField("outcome", res.outcome).Warn("failed to resolve channel")
		return nil
	}

	s.run.APISuccess++
	s.breaker.RecordSuccess()

	channel.ID = id
	channel.ExtractedAt = e.now().UTC()
	if err := e.cache.Put(ctx, cache.KindChannel, id, channel); err != nil {
		return errors.Wrapf(err, "failed to cache channel %q", id)
	}

	s.channels[id] = channel
	logger.Debug("channel fetched")
	return nil
}

// failure classifies a source error and updates counters and the breaker.
func (e *Engine) failure(s *session, err error) *lookup {
	if errors.Is(err, model.ErrNotFound) {
		s.run.NotFound++
		s.breaker.RecordSuccess()
		return &lookup{outcome: OutcomeNotFound, err: err}
	}

	s.run.TransientErrors++
	s.breaker.RecordFailure()
	return &lookup{outcome: OutcomeTransient, err: err}
}
