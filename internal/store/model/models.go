package model

import (
	"gorm.io/datatypes"
)

// DecisionModel is one decision cycle.
type DecisionModel struct {
	ID            int64          `gorm:"column:id;primaryKey"`
	TraceID       string         `gorm:"column:trace_id;uniqueIndex"`
	Symbol        string         `gorm:"column:symbol;index"`
	Action        string         `gorm:"column:action"`
	OrderID       int64          `gorm:"column:order_id"`
	Price         string         `gorm:"column:price"`
	Confidence    int            `gorm:"column:confidence"`
	Reason        string         `gorm:"column:reason"`
	Dispatched    bool           `gorm:"column:dispatched"`
	Skipped       bool           `gorm:"column:skipped"`
	Error         string         `gorm:"column:error"`
	Advise        datatypes.JSON `gorm:"column:advise;type:TEXT"`
	DurationMS    int64          `gorm:"column:duration_ms"`
	CreatedAtUnix int64          `gorm:"column:created_at;index"`
}

func (DecisionModel) TableName() string { return "decisions" }

// EventLogModel is one persisted gateway event.
type EventLogModel struct {
	ID            int64          `gorm:"column:id;primaryKey"`
	EventID       string         `gorm:"column:event_uuid;index"`
	Type          string         `gorm:"column:type;index"`
	Payload       datatypes.JSON `gorm:"column:payload"`
	CreatedAtUnix int64          `gorm:"column:created_at;index"`
}

func (EventLogModel) TableName() string { return "event_log" }
