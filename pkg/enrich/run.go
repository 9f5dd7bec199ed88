package enrich

import (
	"github.com/pkg/errors"
)

// ErrAborted is returned by Engine.Run when the circuit breaker trips.
var ErrAborted = errors.New("run aborted")

// Outcome is the result of resolving a single video or channel.
type Outcome string

const (
	OutcomeHit       = Outcome("hit")
	OutcomeFetched   = Outcome("fetched")
	OutcomeNotFound  = Outcome("not_found")
	OutcomeTransient = Outcome("error")
)

// Usable reports whether the outcome produced metadata.
func (o Outcome) Usable() bool {
	return o == OutcomeHit || o == OutcomeFetched
}

type State string

const (
	StateRunning     = State("running")
	StateAborted     = State("aborted")
	StateInterrupted = State("interrupted")
	StateDone        = State("done")
)

// Run holds the counters of a single enrichment run. It is never persisted.
type Run struct {
	State            State `json:"state"`
	TotalItems       int   `json:"total_videos"`
	Processed        int   `json:"processed"`
	VideoCacheHits   int   `json:"video_cache_hits"`
	ChannelCacheHits int   `json:"channel_cache_hits"`
	// ChannelRunHits counts channel references satisfied by channels already resolved in this run
	ChannelRunHits      int  `json:"channel_run_hits"`
	APICalls            int  `json:"api_calls"`
	APISuccess          int  `json:"api_success"`
	NotFound            int  `json:"not_found"`
	TransientErrors     int  `json:"transient_errors"`
	ConsecutiveFailures int  `json:"consecutive_failures"`
	Aborted             bool `json:"aborted"`
}

// APIErrors is the total number of failed API calls of any class.
func (r *Run) APIErrors() int {
	return r.NotFound + r.TransientErrors
}
