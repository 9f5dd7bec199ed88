package enrich

// breaker counts consecutive transient failures and trips once the threshold is reached.
// Unlike a recovering circuit breaker it never closes again: a tripped run is aborted.
type breaker struct {
	threshold   int
	consecutive int
}

func newBreaker(threshold int) *breaker {
	if threshold <= 0 {
		threshold = 1
	}

	return &breaker{threshold: threshold}
}

// RecordSuccess resets the consecutive failure counter.
// Not-found outcomes are reported as successes since they are not a systemic fault.
func (b *breaker) RecordSuccess() {
	b.consecutive = 0
}

func (b *breaker) RecordFailure() {
	b.consecutive++
}

func (b *breaker) Tripped() bool {
	return b.consecutive >= b.threshold
}

func (b *breaker) Consecutive() int {
	return b.consecutive
}
