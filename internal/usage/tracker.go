package usage

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// QuotaStatus is a point-in-time view of quota consumption.
type QuotaStatus struct {
	// Exceeded is true once today's requests reach the daily limit. The
	// quota is soft: the tracker reports exceedance, the caller refuses work.
	Exceeded bool
	// Approaching is true once usage crosses the warn fraction.
	Approaching bool
	// Percentage is used/limit in [0,∞).
	Percentage float64
	// Remaining is limit minus used, floored at zero.
	Remaining int
	// Used is today's recorded request count.
	Used int
	// Limit is the configured daily limit.
	Limit int
}

// Tracker enforces a rolling daily quota over a persisted usage record.
//
// Day boundary detection is lazy: every read or write first compares the
// stored day to the current wall clock and resets the daily counters if they
// differ. A tracker untouched for several days resets correctly on the next
// touch with no background timer.
//
// The tracker is process-wide shared state and serializes all access.
type Tracker struct {
	store        *Store
	dailyLimit   int
	warnFraction float64

	// now is injectable for tests.
	now func() time.Time

	mu  sync.Mutex
	rec *Record
}

// NewTracker creates a tracker over the given store. The record is read once
// here and re-written after every mutation.
func NewTracker(store *Store, dailyLimit int, warnFraction float64) (*Tracker, error) {
	t := &Tracker{
		store:        store,
		dailyLimit:   dailyLimit,
		warnFraction: warnFraction,
		now:          time.Now,
	}

	rec, err := store.Load(t.today())
	if err != nil {
		return nil, err
	}
	t.rec = rec

	return t, nil
}

// SetClock replaces the wall clock (for tests).
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
}

func (t *Tracker) today() string {
	return t.now().Format("2006-01-02")
}

// rolloverLocked resets the daily counters when the stored day differs from
// today. Callers must hold t.mu. The reset is idempotent: a second call on
// the same day is a no-op.
func (t *Tracker) rolloverLocked() {
	today := t.today()
	if t.rec.Day == today {
		return
	}

	log.Printf("[usage] new day detected (%s -> %s), resetting daily counters", t.rec.Day, today)
	t.rec.Day = today
	t.rec.RequestsToday = 0
	t.rec.TokensToday = 0
	t.rec.LastWarningAt = nil

	if err := t.store.Save(t.rec); err != nil {
		log.Printf("[usage] persisting day rollover: %v", err)
	}
}

// RecordRequest records one completed request and its token count. fallback
// marks requests served by the fallback model.
func (t *Tracker) RecordRequest(tokensUsed int, fallback bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rolloverLocked()

	t.rec.RequestsToday++
	t.rec.RequestsTotal++
	t.rec.TokensToday += tokensUsed
	t.rec.TokensTotal += tokensUsed
	if fallback {
		t.rec.FallbackCount++
	}

	if err := t.store.Save(t.rec); err != nil {
		log.Printf("[usage] persisting request: %v", err)
	}

	log.Printf("[usage] recorded: %d/%d requests today", t.rec.RequestsToday, t.dailyLimit)
}

// CheckQuota reports the current quota status after applying any pending day
// rollover. It does not mutate the counters.
func (t *Tracker) CheckQuota() QuotaStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rolloverLocked()

	used := t.rec.RequestsToday
	percentage := float64(used) / float64(t.dailyLimit)
	remaining := t.dailyLimit - used
	if remaining < 0 {
		remaining = 0
	}

	return QuotaStatus{
		Exceeded:    used >= t.dailyLimit,
		Approaching: percentage >= t.warnFraction,
		Percentage:  percentage,
		Remaining:   remaining,
		Used:        used,
		Limit:       t.dailyLimit,
	}
}

// ShouldWarn returns true at most once per day: the first time usage crosses
// the approaching threshold. The warning timestamp persists so a restart does
// not repeat the warning.
func (t *Tracker) ShouldWarn() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rolloverLocked()

	percentage := float64(t.rec.RequestsToday) / float64(t.dailyLimit)
	if percentage < t.warnFraction || t.rec.LastWarningAt != nil {
		return false
	}

	ts := t.now()
	t.rec.LastWarningAt = &ts
	if err := t.store.Save(t.rec); err != nil {
		log.Printf("[usage] persisting warning timestamp: %v", err)
	}
	return true
}

// Summary returns a human-readable usage summary.
func (t *Tracker) Summary() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rolloverLocked()

	used := t.rec.RequestsToday
	percentage := float64(used) / float64(t.dailyLimit) * 100
	remaining := t.dailyLimit - used
	if remaining < 0 {
		remaining = 0
	}

	return fmt.Sprintf(
		"Today: %d/%d requests (%.1f%%)\nRemaining: %d requests\nTokens today: %d\nFallback responses: %d\nAll time: %d requests, %d tokens",
		used, t.dailyLimit, percentage, remaining,
		t.rec.TokensToday, t.rec.FallbackCount,
		t.rec.RequestsTotal, t.rec.TokensTotal,
	)
}
