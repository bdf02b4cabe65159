package gormstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aurora/internal/decision"
)

func newStore(t *testing.T) *GormStore {
	t.Helper()
	s, err := NewGormStore(filepath.Join(t.TempDir(), "journal", "aurora.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGormStore_RecordAndList(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 5, 15, 0, 0, 0, time.UTC)

	require.NoError(t, s.Record(ctx, decision.Outcome{
		TraceID:   "t-1",
		Symbol:    "aapl",
		Skipped:   true,
		StartedAt: base,
	}))
	require.NoError(t, s.Record(ctx, decision.Outcome{
		TraceID: "t-2",
		Symbol:  "AAPL",
		Advise: &decision.Advise{
			Action:     decision.ActionLimitBuy,
			Price:      decimal.RequireFromString("187.5"),
			Confidence: 85,
			Reason:     "bounce off lower band",
		},
		Dispatched: true,
		OrderID:    11,
		StartedAt:  base.Add(time.Minute),
		Duration:   1500 * time.Millisecond,
	}))
	require.NoError(t, s.Record(ctx, decision.Outcome{
		TraceID:   "t-3",
		Symbol:    "MSFT",
		Err:       errors.New("advisor down"),
		StartedAt: base.Add(2 * time.Minute),
	}))

	all, err := s.ListDecisions(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "t-3", all[0].TraceID)
	assert.Equal(t, "advisor down", all[0].Error)

	aapl, err := s.ListDecisions(ctx, "aapl", 10)
	require.NoError(t, err)
	require.Len(t, aapl, 2)
	got := aapl[0]
	assert.Equal(t, "t-2", got.TraceID)
	assert.Equal(t, "LIMIT_BUY", got.Action)
	assert.Equal(t, "187.5", got.Price)
	assert.Equal(t, 85, got.Confidence)
	assert.True(t, got.Dispatched)
	assert.Equal(t, int64(11), got.OrderID)
	assert.Equal(t, 1500*time.Millisecond, got.Duration)
	assert.Contains(t, string(got.Advise), `"reason":"bounce off lower band"`)
	assert.True(t, aapl[1].Skipped)

	limited, err := s.ListDecisions(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestGormStore_EventLog(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 5, 15, 0, 0, 0, time.UTC)

	for i, typ := range []string{"next_valid_id", "managed_accounts", "position_end"} {
		require.NoError(t, s.AppendEvent(ctx, EventRecord{
			ID:        typ,
			Type:      typ,
			Payload:   []byte(`{}`),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	first, err := s.LoadEvents(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "next_valid_id", first[0].Type)

	rest, err := s.LoadEvents(ctx, first[1].Seq, 10)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "position_end", rest[0].ID)
	assert.JSONEq(t, `{}`, string(rest[0].Payload))
	assert.Greater(t, rest[0].Seq, first[1].Seq)
}

func TestGormStore_EventLogPagesSameMillisecond(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	stamp := time.Date(2024, 1, 5, 15, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.AppendEvent(ctx, EventRecord{
			ID:        fmt.Sprintf("evt-%d", i),
			Type:      "position",
			Payload:   []byte(`{}`),
			CreatedAt: stamp,
		}))
	}

	var seen []string
	var cursor int64
	for {
		page, err := s.LoadEvents(ctx, cursor, 2)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		for _, r := range page {
			seen = append(seen, r.ID)
		}
		cursor = page[len(page)-1].Seq
	}
	assert.Equal(t, []string{"evt-0", "evt-1", "evt-2", "evt-3", "evt-4"}, seen)
}

func TestNewGormStore_RequiresPath(t *testing.T) {
	_, err := NewGormStore(" ")
	assert.Error(t, err)
}
