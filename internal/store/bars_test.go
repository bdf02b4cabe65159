package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"aurora/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingExporter struct {
	calls map[market.SlotID][]market.Bar
	err   error
}

func (r *recordingExporter) Export(_ context.Context, slot market.SlotID, bars []market.Bar) error {
	if r.err != nil {
		return r.err
	}
	if r.calls == nil {
		r.calls = map[market.SlotID][]market.Bar{}
	}
	r.calls[slot] = bars
	return nil
}

func bar(stamp string, close float64) market.Bar {
	return market.Bar{Stamp: stamp, Open: close, High: close, Low: close, Close: close, Volume: 1}
}

func TestBarStore_UpsertSameDateRefinesLastBar(t *testing.T) {
	s := NewBarStore(nil)
	slot := market.Slot(0, market.OneMinute)

	s.Upsert(slot, bar("20240105 09:30:00 US/Eastern", 10))
	for i := 0; i < 5; i++ {
		s.Upsert(slot, bar("20240105 09:30:00 US/Eastern", 10+float64(i)))
	}

	got := s.Get(slot)
	require.Len(t, got, 1)
	assert.Equal(t, 14.0, got[0].Close)
}

func TestBarStore_UpsertDistinctDatesAppendsInOrder(t *testing.T) {
	s := NewBarStore(nil)
	slot := market.Slot(1, market.FiveMinutes)

	for i := 0; i < 10; i++ {
		before := s.Len(slot)
		s.Upsert(slot, bar(fmt.Sprintf("20240105 09:%02d:00", 30+i), float64(i)))
		assert.Equal(t, before+1, s.Len(slot))
	}
	got := s.Get(slot)
	for i, b := range got {
		assert.Equal(t, float64(i), b.Close)
	}
}

func TestBarStore_OnlyLastBarIsReplaced(t *testing.T) {
	s := NewBarStore(nil)
	slot := market.Slot(0, market.ThirtyMinutes)
	s.Upsert(slot, bar("20240105 09:30:00", 1))
	s.Upsert(slot, bar("20240105 10:00:00", 2))
	s.Upsert(slot, bar("20240105 09:30:00", 3))

	got := s.Get(slot)
	require.Len(t, got, 3)
	assert.Equal(t, []float64{1, 2, 3}, market.Closes(got))
}

func TestBarStore_GetReturnsCopy(t *testing.T) {
	s := NewBarStore(nil)
	slot := market.Slot(0, market.OneMinute)
	s.Upsert(slot, bar("20240105", 1))

	got := s.Get(slot)
	got[0].Close = 99
	assert.Equal(t, 1.0, s.Get(slot)[0].Close)
}

func TestBarStore_FlushAll(t *testing.T) {
	exp := &recordingExporter{}
	s := NewBarStore(exp)
	s.Upsert(1, bar("20240105", 1))
	s.Upsert(12, bar("20240105", 2))
	s.Upsert(12, bar("20240106", 3))

	require.NoError(t, s.FlushAll(context.Background()))
	assert.Len(t, exp.calls, 2)
	assert.Len(t, exp.calls[12], 2)
	assert.Equal(t, []market.SlotID{1, 12}, s.Slots())
}

func TestBarStore_FlushWrapsExporterError(t *testing.T) {
	boom := errors.New("disk full")
	s := NewBarStore(&recordingExporter{err: boom})
	s.Upsert(3, bar("20240105", 1))

	err := s.Flush(context.Background(), 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, s.Flush(context.Background(), 4), "empty slot is not exported")
}
