package notifier

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"aurora/internal/logger"
)

// ErrBadPeriod reports a notification period that is not "<start>-<end>".
var ErrBadPeriod = errors.New("notifier: period must look like 9-17")

// Gate forwards messages to a transport only inside a UTC hour window and can
// throttle messages to one per interval.
type Gate struct {
	mu      sync.Mutex
	sender  TextNotifier
	start   int
	end     int
	enabled bool
	last    time.Time
	now     func() time.Time
}

// Option customizes a Gate.
type Option func(*Gate)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGate builds a gate for the window "<start>-<end>" (UTC hours, end
// exclusive). A period that does not parse leaves the gate closed.
func NewGate(sender TextNotifier, period string, opts ...Option) *Gate {
	g := &Gate{sender: sender, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	if err := g.SetPeriod(period); err != nil {
		logger.Warnf("notification period %q unusable, notifications disabled: %v", period, err)
	}
	return g
}

// ParsePeriod splits "9-17" into its hour bounds.
func ParsePeriod(period string) (start, end int, err error) {
	parts := strings.Split(strings.TrimSpace(period), "-")
	if len(parts) != 2 {
		return 0, 0, ErrBadPeriod
	}
	start, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrBadPeriod, err)
	}
	end, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrBadPeriod, err)
	}
	return start, end, nil
}

// SetPeriod swaps the active window. On error the gate closes.
func (g *Gate) SetPeriod(period string) error {
	start, end, err := ParsePeriod(period)
	g.mu.Lock()
	defer g.mu.Unlock()
	if err != nil {
		g.enabled = false
		return err
	}
	if start > end {
		// Windows that wrap midnight never match.
		logger.Warnf("notification period %q wraps midnight and will never match", period)
	}
	g.start, g.end, g.enabled = start, end, true
	return nil
}

// Period returns the active window bounds and whether the gate is open at all.
func (g *Gate) Period() (start, end int, enabled bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.start, g.end, g.enabled
}

// Notify sends text when the current UTC hour lies in [start, end). It
// reports whether the transport accepted the message.
func (g *Gate) Notify(text string) bool {
	g.mu.Lock()
	hour := g.now().UTC().Hour()
	open := g.enabled && g.start <= hour && hour < g.end
	sender := g.sender
	g.mu.Unlock()

	if !open || sender == nil {
		logger.Infof("message = %s not sent", text)
		return false
	}
	if err := sender.SendText(text); err != nil {
		logger.Warnf("notification failed: %v", err)
		return false
	}
	return true
}

// NotifyWithInterval drops text when fewer than minutes have passed since the
// previous call that got past this check. The interval counts attempts, not
// successful sends: the timestamp advances before the hour window and the
// transport are consulted, so a window drop or a failed send still counts.
func (g *Gate) NotifyWithInterval(text string, minutes int) bool {
	g.mu.Lock()
	now := g.now()
	if !g.last.IsZero() && now.Sub(g.last) < time.Duration(minutes)*time.Minute {
		g.mu.Unlock()
		return false
	}
	g.last = now
	g.mu.Unlock()
	return g.Notify(text)
}
