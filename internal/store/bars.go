package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"aurora/internal/market"
)

// Exporter writes one durable artifact holding a slot's full bar sequence.
type Exporter interface {
	Export(ctx context.Context, slot market.SlotID, bars []market.Bar) error
}

// BarStore keeps, per slot, an ordered sequence of bars with one bar per date.
// Writes come from the single event loop; the mutex only makes concurrent
// readers (HTTP) safe.
type BarStore struct {
	mu       sync.RWMutex
	data     map[market.SlotID][]market.Bar
	exporter Exporter
}

func NewBarStore(exporter Exporter) *BarStore {
	return &BarStore{
		data:     make(map[market.SlotID][]market.Bar),
		exporter: exporter,
	}
}

// Upsert replaces the last bar when it carries the same date (the gateway
// re-streams a still-forming bar) and appends otherwise.
func (s *BarStore) Upsert(slot market.SlotID, bar market.Bar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.data[slot]
	if n := len(cur); n > 0 && cur[n-1].SameDate(bar) {
		cur[n-1] = bar
		return
	}
	s.data[slot] = append(cur, bar)
}

// Get returns a copy of the slot's sequence.
func (s *BarStore) Get(slot market.SlotID) []market.Bar {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cur := s.data[slot]
	out := make([]market.Bar, len(cur))
	copy(out, cur)
	return out
}

func (s *BarStore) Len(slot market.SlotID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data[slot])
}

// Slots lists slots holding at least one bar, ascending.
func (s *BarStore) Slots() []market.SlotID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]market.SlotID, 0, len(s.data))
	for k, v := range s.data {
		if len(v) > 0 {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Flush exports the slot's full sequence.
func (s *BarStore) Flush(ctx context.Context, slot market.SlotID) error {
	if s.exporter == nil {
		return nil
	}
	bars := s.Get(slot)
	if len(bars) == 0 {
		return nil
	}
	if err := s.exporter.Export(ctx, slot, bars); err != nil {
		return fmt.Errorf("flush slot %d: %w", slot, err)
	}
	return nil
}

// FlushAll exports every non-empty slot and returns the first failure.
func (s *BarStore) FlushAll(ctx context.Context) error {
	var firstErr error
	for _, slot := range s.Slots() {
		if err := s.Flush(ctx, slot); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
