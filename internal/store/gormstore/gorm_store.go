// Package gormstore persists decision outcomes and gateway events in SQLite.
package gormstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"aurora/internal/decision"
	storemodel "aurora/internal/store/model"
)

type decisionModel = storemodel.DecisionModel
type eventLogModel = storemodel.EventLogModel

const defaultListLimit = 50

// DecisionRecord is the read model of a journaled cycle.
type DecisionRecord struct {
	TraceID    string          `json:"trace_id"`
	Symbol     string          `json:"symbol"`
	Action     string          `json:"action,omitempty"`
	OrderID    int64           `json:"order_id,omitempty"`
	Price      string          `json:"price,omitempty"`
	Confidence int             `json:"confidence"`
	Reason     string          `json:"reason,omitempty"`
	Dispatched bool            `json:"dispatched"`
	Skipped    bool            `json:"skipped"`
	Error      string          `json:"error,omitempty"`
	Advise     json.RawMessage `json:"advise,omitempty"`
	Duration   time.Duration   `json:"duration"`
	CreatedAt  time.Time       `json:"created_at"`
}

// EventRecord is a persisted gateway event. Seq is the row id assigned on
// insert and is the paging cursor for LoadEvents.
type EventRecord struct {
	Seq       int64
	ID        string
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// GormStore implements decision.Journal and the actor's event log.
type GormStore struct {
	db *gorm.DB
}

var _ decision.Journal = (*GormStore)(nil)

// NewGormStore opens (and migrates) the database at path.
func NewGormStore(path string) (*GormStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: journal path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&decisionModel{}, &eventLogModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// WAL lets HTTP readers run beside the single writer.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &GormStore{db: db}, nil
}

func (s *GormStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Record journals one decision outcome.
func (s *GormStore) Record(ctx context.Context, o decision.Outcome) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("gorm store not initialized")
	}
	m := decisionModel{
		TraceID:       o.TraceID,
		Symbol:        strings.ToUpper(strings.TrimSpace(o.Symbol)),
		OrderID:       o.OrderID,
		Dispatched:    o.Dispatched,
		Skipped:       o.Skipped,
		DurationMS:    o.Duration.Milliseconds(),
		CreatedAtUnix: o.StartedAt.UnixMilli(),
	}
	if o.StartedAt.IsZero() {
		m.CreatedAtUnix = time.Now().UnixMilli()
	}
	if o.Err != nil {
		m.Error = o.Err.Error()
	}
	if adv := o.Advise; adv != nil {
		m.Action = adv.Action.String()
		m.Price = adv.Price.String()
		m.Confidence = adv.Confidence
		m.Reason = adv.Reason
		raw, err := json.Marshal(adv)
		if err != nil {
			return fmt.Errorf("encode advise: %w", err)
		}
		m.Advise = datatypes.JSON(raw)
	}
	return s.db.WithContext(ctx).Create(&m).Error
}

// ListDecisions returns the newest outcomes first. An empty symbol lists all.
func (s *GormStore) ListDecisions(ctx context.Context, symbol string, limit int) ([]DecisionRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store not initialized")
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	query := s.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Limit(limit)
	if sym := strings.ToUpper(strings.TrimSpace(symbol)); sym != "" {
		query = query.Where("symbol = ?", sym)
	}
	var models []decisionModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]DecisionRecord, 0, len(models))
	for _, m := range models {
		out = append(out, DecisionRecord{
			TraceID:    m.TraceID,
			Symbol:     m.Symbol,
			Action:     m.Action,
			OrderID:    m.OrderID,
			Price:      m.Price,
			Confidence: m.Confidence,
			Reason:     m.Reason,
			Dispatched: m.Dispatched,
			Skipped:    m.Skipped,
			Error:      m.Error,
			Advise:     json.RawMessage(m.Advise),
			Duration:   time.Duration(m.DurationMS) * time.Millisecond,
			CreatedAt:  time.UnixMilli(m.CreatedAtUnix),
		})
	}
	return out, nil
}

func (s *GormStore) AppendEvent(ctx context.Context, evt EventRecord) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("gorm store not initialized")
	}
	m := eventLogModel{
		EventID:       evt.ID,
		Type:          evt.Type,
		Payload:       datatypes.JSON(evt.Payload),
		CreatedAtUnix: evt.CreatedAt.UnixMilli(),
	}
	return s.db.WithContext(ctx).Create(&m).Error
}

// LoadEvents returns up to limit events with a row id above afterSeq, in
// insertion order.
func (s *GormStore) LoadEvents(ctx context.Context, afterSeq int64, limit int) ([]EventRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store not initialized")
	}
	if limit <= 0 {
		limit = 1000
	}
	var models []eventLogModel
	err := s.db.WithContext(ctx).
		Where("id > ?", afterSeq).
		Order("id ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]EventRecord, 0, len(models))
	for _, m := range models {
		out = append(out, EventRecord{
			Seq:       m.ID,
			ID:        m.EventID,
			Type:      m.Type,
			Payload:   []byte(m.Payload),
			CreatedAt: time.UnixMilli(m.CreatedAtUnix),
		})
	}
	return out, nil
}
