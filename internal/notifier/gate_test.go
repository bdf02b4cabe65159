package notifier

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	sent []string
	err  error
}

func (r *recorder) SendText(text string) error {
	r.sent = append(r.sent, text)
	return r.err
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func at(hour, minute int) *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, hour, minute, 0, 0, time.UTC)}
}

func TestParsePeriod(t *testing.T) {
	start, end, err := ParsePeriod("9-17")
	require.NoError(t, err)
	assert.Equal(t, 9, start)
	assert.Equal(t, 17, end)

	for _, bad := range []string{"", "9", "a-b", "9-17-20"} {
		_, _, err := ParsePeriod(bad)
		assert.ErrorIs(t, err, ErrBadPeriod, bad)
	}
}

func TestGate_NotifyRespectsHourWindow(t *testing.T) {
	rec := &recorder{}
	clock := at(10, 0)
	g := NewGate(rec, "9-17", WithClock(clock.Now))

	assert.True(t, g.Notify("hello"))

	clock.t = time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)
	assert.False(t, g.Notify("late"))

	clock.t = time.Date(2024, 3, 1, 17, 0, 0, 0, time.UTC)
	assert.False(t, g.Notify("end is exclusive"))

	clock.t = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	assert.True(t, g.Notify("start is inclusive"))

	assert.Equal(t, []string{"hello", "start is inclusive"}, rec.sent)
}

func TestGate_UsesUTCHour(t *testing.T) {
	rec := &recorder{}
	loc := time.FixedZone("UTC+8", 8*3600)
	g := NewGate(rec, "9-17", WithClock(func() time.Time {
		return time.Date(2024, 3, 1, 18, 0, 0, 0, loc) // 10:00 UTC
	}))
	assert.True(t, g.Notify("x"))
}

func TestGate_TransportFailureReturnsFalse(t *testing.T) {
	rec := &recorder{err: errors.New("boom")}
	g := NewGate(rec, "0-24", WithClock(at(12, 0).Now))
	assert.False(t, g.Notify("x"))
	assert.Len(t, rec.sent, 1)
}

func TestGate_BlankPeriodDisables(t *testing.T) {
	rec := &recorder{}
	g := NewGate(rec, "", WithClock(at(12, 0).Now))
	assert.False(t, g.Notify("x"))
	assert.Empty(t, rec.sent)

	require.NoError(t, g.SetPeriod("0-24"))
	assert.True(t, g.Notify("y"))
}

func TestGate_WrappingWindowNeverMatches(t *testing.T) {
	rec := &recorder{}
	clock := at(23, 0)
	g := NewGate(rec, "22-6", WithClock(clock.Now))
	assert.False(t, g.Notify("x"))
	clock.t = time.Date(2024, 3, 1, 2, 0, 0, 0, time.UTC)
	assert.False(t, g.Notify("y"))
}

func TestGate_NotifyWithInterval(t *testing.T) {
	rec := &recorder{}
	clock := at(10, 0)
	g := NewGate(rec, "9-17", WithClock(clock.Now))

	assert.True(t, g.NotifyWithInterval("a", 5))
	clock.Advance(2 * time.Minute)
	assert.False(t, g.NotifyWithInterval("b", 5))
	clock.Advance(3 * time.Minute)
	assert.True(t, g.NotifyWithInterval("c", 5))

	assert.Equal(t, []string{"a", "c"}, rec.sent)
}

func TestGate_IntervalAdvancesOutsideWindow(t *testing.T) {
	rec := &recorder{}
	clock := at(8, 58)
	g := NewGate(rec, "9-17", WithClock(clock.Now))

	assert.False(t, g.NotifyWithInterval("dropped by window", 5))
	clock.Advance(3 * time.Minute) // 09:01, inside the window but inside the interval
	assert.False(t, g.NotifyWithInterval("throttled", 5))
	assert.Empty(t, rec.sent)

	clock.Advance(2 * time.Minute)
	assert.True(t, g.NotifyWithInterval("sent", 5))
	assert.Equal(t, []string{"sent"}, rec.sent)
}

func TestGate_IntervalCountsFailedSends(t *testing.T) {
	rec := &recorder{err: errors.New("robot offline")}
	clock := at(10, 0)
	g := NewGate(rec, "9-17", WithClock(clock.Now))

	assert.False(t, g.NotifyWithInterval("first", 5))
	rec.err = nil
	clock.Advance(time.Minute)
	assert.False(t, g.NotifyWithInterval("throttled", 5))
	assert.Equal(t, []string{"first"}, rec.sent)
}
