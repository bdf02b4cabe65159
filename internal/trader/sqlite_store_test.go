package trader

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aurora/internal/gateway"
	"aurora/internal/store/gormstore"
)

type pagedLog struct {
	records []gormstore.EventRecord
	calls   int
}

func (p *pagedLog) AppendEvent(_ context.Context, evt gormstore.EventRecord) error {
	evt.Seq = int64(len(p.records) + 1)
	p.records = append(p.records, evt)
	return nil
}

func (p *pagedLog) LoadEvents(_ context.Context, afterSeq int64, limit int) ([]gormstore.EventRecord, error) {
	p.calls++
	var out []gormstore.EventRecord
	for _, r := range p.records {
		if r.Seq <= afterSeq {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func TestSQLiteEventStore_AppendAndLoad(t *testing.T) {
	log := &pagedLog{}
	s := NewSQLiteEventStore(log)
	base := time.Date(2024, 1, 5, 15, 0, 0, 0, time.UTC)

	require.NoError(t, s.Append(EventEnvelope{ID: "a", Type: gateway.EvtNextValidID, Payload: []byte(`{"order_id":1}`), CreatedAt: base}))
	require.NoError(t, s.Append(EventEnvelope{Type: gateway.EvtPositionEnd, CreatedAt: base.Add(time.Second)}))

	all, err := s.LoadAll()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, gateway.EvtPositionEnd, all[1].Type)
	assert.NotEmpty(t, all[1].ID)
	assert.Equal(t, 1, log.calls)
	assert.NoError(t, s.Close())
}

func TestSQLiteEventStore_LoadsPastPageBoundaryOnSameTimestamp(t *testing.T) {
	db, err := gormstore.NewGormStore(filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s := NewSQLiteEventStore(db)
	stamp := time.Date(2024, 1, 5, 15, 0, 0, 0, time.UTC)
	const total = 1005
	for i := 0; i < total; i++ {
		require.NoError(t, s.Append(EventEnvelope{Type: gateway.EvtPosition, Payload: []byte(`{}`), CreatedAt: stamp}))
	}

	all, err := s.LoadAll()
	require.NoError(t, err)
	assert.Len(t, all, total)
}

func TestSQLiteEventStore_NilDatabase(t *testing.T) {
	s := NewSQLiteEventStore(nil)
	assert.Error(t, s.Append(EventEnvelope{}))
	_, err := s.LoadAll()
	assert.Error(t, err)
}
