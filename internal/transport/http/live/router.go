package livehttp

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"aurora/internal/analysis/indicator"
	"aurora/internal/analysis/pattern"
	"aurora/internal/gateway"
	"aurora/internal/ledger"
	"aurora/internal/logger"
	"aurora/internal/market"
	"aurora/internal/store/gormstore"
	"aurora/internal/trader"
)

const (
	defaultDecisionLimit = 50
	maxDecisionLimit     = 500
	defaultEventLimit    = 100
	maxEventLimit        = 1000
)

type LedgerReader interface {
	Orders() []ledger.Order
	Positions() []ledger.Position
}

type BarReader interface {
	Get(slot market.SlotID) []market.Bar
	Slots() []market.SlotID
}

type Analyzer interface {
	Analyze(bars []market.Bar) indicator.Report
}

type DecisionLister interface {
	ListDecisions(ctx context.Context, symbol string, limit int) ([]gormstore.DecisionRecord, error)
}

// EventHistory reads the journaled gateway events, oldest first.
type EventHistory interface {
	LoadAll() ([]trader.EventEnvelope, error)
}

// EventPoster hands a gateway envelope to the event loop.
type EventPoster interface {
	Post(env gateway.Envelope) error
}

type StatsSource interface {
	Stats() trader.Stats
}

// Router serves the /api routes.
type Router struct {
	cfg ServerConfig
}

func NewRouter(cfg ServerConfig) *Router {
	return &Router{cfg: cfg}
}

func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/ledger/orders", r.handleOrders)
	group.GET("/ledger/positions", r.handlePositions)
	group.GET("/bars", r.handleSlots)
	group.GET("/bars/:slot", r.handleBars)
	group.GET("/reports/:slot", r.handleReport)
	group.GET("/decisions", r.handleDecisions)
	group.GET("/events", r.handleEvents)
	group.POST("/gateway/events", r.handleGatewayEvent)
}

func (r *Router) handleHealth(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if r.cfg.Stats != nil {
		body["trader"] = r.cfg.Stats.Stats()
	}
	c.JSON(http.StatusOK, body)
}

func unavailable(c *gin.Context, what string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": what + " not enabled"})
}

func (r *Router) handleOrders(c *gin.Context) {
	if r.cfg.Ledger == nil {
		unavailable(c, "ledger")
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": r.cfg.Ledger.Orders()})
}

func (r *Router) handlePositions(c *gin.Context) {
	if r.cfg.Ledger == nil {
		unavailable(c, "ledger")
		return
	}
	c.JSON(http.StatusOK, gin.H{"positions": r.cfg.Ledger.Positions()})
}

func (r *Router) handleSlots(c *gin.Context) {
	if r.cfg.Bars == nil {
		unavailable(c, "bar store")
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": r.cfg.Bars.Slots()})
}

func parseSlot(c *gin.Context) (market.SlotID, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(c.Param("slot")))
	slot := market.SlotID(n)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "slot must be an integer"})
		return 0, false
	}
	if _, _, ok := slot.Split(); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown slot " + slot.String()})
		return 0, false
	}
	return slot, true
}

func (r *Router) handleBars(c *gin.Context) {
	if r.cfg.Bars == nil {
		unavailable(c, "bar store")
		return
	}
	slot, ok := parseSlot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"slot": slot, "bars": r.cfg.Bars.Get(slot)})
}

// handleReport renders the indicator table as CSV, the same text the advisor
// receives.
func (r *Router) handleReport(c *gin.Context) {
	if r.cfg.Bars == nil || r.cfg.Analyzer == nil {
		unavailable(c, "indicator report")
		return
	}
	slot, ok := parseSlot(c)
	if !ok {
		return
	}
	bars := r.cfg.Bars.Get(slot)
	report := r.cfg.Analyzer.Analyze(bars)
	if strings.EqualFold(c.Query("format"), "json") {
		c.JSON(http.StatusOK, gin.H{
			"slot":    slot,
			"columns": report.Columns(),
			"summary": report.Summary(),
			"pattern": pattern.Analyze(bars),
		})
		return
	}
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(report.CSV()))
}

func (r *Router) handleDecisions(c *gin.Context) {
	if r.cfg.Decisions == nil {
		unavailable(c, "decision journal")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultDecisionLimit)))
	if limit <= 0 {
		limit = defaultDecisionLimit
	}
	if limit > maxDecisionLimit {
		limit = maxDecisionLimit
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	items, err := r.cfg.Decisions.ListDecisions(ctx, c.Query("symbol"), limit)
	if err != nil {
		logger.Errorf("[api] decisions list failed ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"decisions": items, "limit": limit})
}

// handleEvents returns the newest journaled events, oldest first.
func (r *Router) handleEvents(c *gin.Context) {
	if r.cfg.History == nil {
		unavailable(c, "event journal")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultEventLimit)))
	if limit <= 0 {
		limit = defaultEventLimit
	}
	if limit > maxEventLimit {
		limit = maxEventLimit
	}
	all, err := r.cfg.History.LoadAll()
	if err != nil {
		logger.Errorf("[api] event journal read failed ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	total := len(all)
	if total > limit {
		all = all[total-limit:]
	}
	if all == nil {
		all = []trader.EventEnvelope{}
	}
	c.JSON(http.StatusOK, gin.H{"events": all, "total": total, "limit": limit})
}

func (r *Router) handleGatewayEvent(c *gin.Context) {
	if r.cfg.Events == nil {
		unavailable(c, "gateway webhook")
		return
	}
	var env gateway.Envelope
	if err := c.ShouldBindJSON(&env); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid envelope: " + err.Error()})
		return
	}
	if !knownEventType(env.Type) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown event type " + string(env.Type)})
		return
	}
	if len(env.Payload) == 0 {
		env.Payload = json.RawMessage(`{}`)
	}
	if err := r.cfg.Events.Post(env); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"accepted": env.Type})
}

func knownEventType(t gateway.EventType) bool {
	for _, known := range gateway.EventTypes {
		if known == t {
			return true
		}
	}
	return false
}
