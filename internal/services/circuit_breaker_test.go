package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(maxFailures int, reset time.Duration) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:              "test",
		MaxFailures:       maxFailures,
		ResetTimeout:      reset,
		HalfOpenSuccesses: 2,
	}, nil).(*CircuitBreaker)
	cb.now = clock.now
	return cb, clock
}

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Minute)

	cb.Failure()
	cb.Failure()
	assert.True(t, cb.Allow())
	assert.Equal(t, 2, cb.Failures())

	cb.Failure()
	assert.False(t, cb.Allow())
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_SuccessClearsFailures(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Minute)

	cb.Failure()
	cb.Failure()
	cb.Success()

	assert.Zero(t, cb.Failures())
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_StaysOpenUntilTimeout(t *testing.T) {
	cb, clock := newTestBreaker(1, time.Minute)
	cb.Failure()

	clock.advance(59 * time.Second)
	assert.False(t, cb.Allow())

	clock.advance(time.Second)
	assert.True(t, cb.Allow())
	assert.Equal(t, StateHalfOpen, cb.State())
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb, clock := newTestBreaker(1, time.Minute)
	cb.Failure()
	clock.advance(time.Minute)
	assert.True(t, cb.Allow())

	cb.Success()
	assert.Equal(t, StateHalfOpen, cb.State())
	cb.Success()
	assert.Equal(t, StateClosed, cb.State())
	assert.Zero(t, cb.Failures())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, clock := newTestBreaker(1, time.Minute)
	cb.Failure()
	clock.advance(time.Minute)
	assert.True(t, cb.Allow())

	cb.Success()
	cb.Failure()
	assert.Equal(t, StateOpen, cb.State())

	// the reset timeout restarts from the reopening
	clock.advance(30 * time.Second)
	assert.False(t, cb.Allow())
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb, _ := newTestBreaker(1, time.Hour)
	cb.Failure()

	cb.Reset()

	assert.True(t, cb.Allow())
	assert.Zero(t, cb.Failures())
}

func TestCircuitBreaker_DefaultsApplied(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{}, nil).(*CircuitBreaker)

	assert.Equal(t, DefaultCircuitBreakerConfig().MaxFailures, cb.cfg.MaxFailures)
	assert.Equal(t, 1, cb.cfg.HalfOpenSuccesses)
}

func TestBreakerGauge(t *testing.T) {
	assert.Equal(t, 0.0, breakerGauge(StateClosed))
	assert.Equal(t, 1.0, breakerGauge(StateOpen))
	assert.Equal(t, 2.0, breakerGauge(StateHalfOpen))
	assert.Equal(t, 0.0, breakerGauge("unknown"))
}

func TestRecordOperation_TagsStatus(t *testing.T) {
	rec := &recordingMetrics{}

	recordOperation(rec, "trend", time.Now(), nil)
	recordOperation(rec, "trend", time.Now(), assert.AnError)

	assert.Equal(t, []string{"trend/success", "trend/error"}, rec.counters)
	assert.Equal(t, 2, rec.timings)
}

type recordingMetrics struct {
	counters []string
	timings  int
}

func (r *recordingMetrics) IncrementCounter(name string, tags map[string]string) {
	if name == MetricAnalyticsRequest {
		r.counters = append(r.counters, tags["operation"]+"/"+tags["status"])
	}
}

func (r *recordingMetrics) RecordProcessingTime(string, time.Duration) {
	r.timings++
}

func (r *recordingMetrics) RecordGauge(string, float64, map[string]string) {}
