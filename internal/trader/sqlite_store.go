package trader

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"aurora/internal/gateway"
	"aurora/internal/store/gormstore"
)

// EventLog is the persistence surface the SQLite event store needs.
type EventLog interface {
	AppendEvent(ctx context.Context, evt gormstore.EventRecord) error
	LoadEvents(ctx context.Context, afterSeq int64, limit int) ([]gormstore.EventRecord, error)
}

// SQLiteEventStore implements EventStore on the shared journal database.
type SQLiteEventStore struct {
	db EventLog
}

func NewSQLiteEventStore(db EventLog) *SQLiteEventStore {
	return &SQLiteEventStore{db: db}
}

func (s *SQLiteEventStore) Append(evt EventEnvelope) error {
	if s.db == nil {
		return fmt.Errorf("sqlite store: database is nil")
	}
	if evt.ID == "" {
		evt.ID = newEventID(string(evt.Type))
	}
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = time.Now()
	}
	return s.db.AppendEvent(context.Background(), gormstore.EventRecord{
		ID:        evt.ID,
		Type:      string(evt.Type),
		Payload:   []byte(evt.Payload),
		CreatedAt: evt.CreatedAt,
	})
}

// LoadAll pages through the whole event log by row id.
func (s *SQLiteEventStore) LoadAll() ([]EventEnvelope, error) {
	if s.db == nil {
		return nil, fmt.Errorf("sqlite store: database is nil")
	}

	ctx := context.Background()
	limit := 1000
	var cursor int64
	var out []EventEnvelope
	for {
		recs, err := s.db.LoadEvents(ctx, cursor, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to load events from sqlite: %w", err)
		}
		if len(recs) == 0 {
			break
		}
		for _, r := range recs {
			out = append(out, EventEnvelope{
				ID:        r.ID,
				Type:      gateway.EventType(r.Type),
				Payload:   json.RawMessage(r.Payload),
				CreatedAt: r.CreatedAt,
			})
		}
		cursor = recs[len(recs)-1].Seq
		if len(recs) < limit {
			break
		}
	}
	return out, nil
}

// Close is a no-op; the database belongs to the app.
func (s *SQLiteEventStore) Close() error {
	return nil
}
