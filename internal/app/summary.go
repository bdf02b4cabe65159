package app

import (
	"fmt"
	"io"
	"strings"
	"time"

	"aurora/internal/config"
	"aurora/internal/market"
)

type StartupSummary struct {
	Symbols  []SymbolSlots
	Gateway  GatewaySummary
	Decision DecisionSummary
	Notify   string
	HTTPAddr string
	Refresh  time.Duration
}

// SymbolSlots lists the bar slots an instrument owns, in timeframe order.
type SymbolSlots struct {
	Symbol string
	Slots  []market.SlotID
}

type GatewaySummary struct {
	Mode    string
	Account string
	Target  string
}

type DecisionSummary struct {
	Model               string
	ConfidenceThreshold int
	OrderQuantity       int64
	HistoryWindow       int
}

func newStartupSummary(cfg *config.Config, symbols []string, refresh time.Duration) *StartupSummary {
	s := &StartupSummary{
		Gateway: GatewaySummary{
			Mode:    cfg.Gateway.Mode,
			Account: cfg.Gateway.Account,
			Target:  cfg.Gateway.BridgeURL,
		},
		Decision: DecisionSummary{
			Model:               cfg.Chat.Model,
			ConfidenceThreshold: cfg.Decision.ConfidenceThreshold,
			OrderQuantity:       cfg.Decision.OrderQuantity,
			HistoryWindow:       cfg.Advisory.HistoryWindow,
		},
		Notify:   cfg.Notification.Period,
		HTTPAddr: cfg.App.HTTPAddr,
		Refresh:  refresh,
	}
	if s.Gateway.Target == "" {
		s.Gateway.Target = cfg.Gateway.PaperDataDir
		if s.Gateway.Target == "" {
			s.Gateway.Target = cfg.Storage.BarDir
		}
	}
	for i, sym := range symbols {
		row := SymbolSlots{Symbol: sym}
		for _, tf := range market.Timeframes {
			row.Slots = append(row.Slots, market.Slot(i, tf))
		}
		s.Symbols = append(s.Symbols, row)
	}
	return s
}

func (s *StartupSummary) Print(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("=", 80))
	title := "STARTUP SUMMARY"
	fmt.Fprintf(w, "%*s\n", 40+len(title)/2, title)
	fmt.Fprintln(w, strings.Repeat("=", 80))

	fmt.Fprintln(w, "[GATEWAY]")
	fmt.Fprintf(w, "  mode:    %s\n", orDash(s.Gateway.Mode))
	fmt.Fprintf(w, "  account: %s\n", orDash(s.Gateway.Account))
	fmt.Fprintf(w, "  target:  %s\n", orDash(s.Gateway.Target))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[SYMBOLS]")
	if len(s.Symbols) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, row := range s.Symbols {
		slots := make([]string, 0, len(row.Slots))
		for i, slot := range row.Slots {
			slots = append(slots, fmt.Sprintf("%s=%s", market.Timeframes[i], slot))
		}
		fmt.Fprintf(w, "  > %-8s %s\n", row.Symbol, strings.Join(slots, " "))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[DECISION]")
	fmt.Fprintf(w, "  model:      %s\n", orDash(s.Decision.Model))
	fmt.Fprintf(w, "  confidence: >= %d\n", s.Decision.ConfidenceThreshold)
	fmt.Fprintf(w, "  quantity:   %d\n", s.Decision.OrderQuantity)
	if s.Decision.HistoryWindow > 0 {
		fmt.Fprintf(w, "  history:    last %d exchanges\n", s.Decision.HistoryWindow)
	} else {
		fmt.Fprintln(w, "  history:    unbounded")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[SCHEDULE]")
	if s.Refresh > 0 {
		fmt.Fprintf(w, "  refresh:  every %s\n", s.Refresh)
	} else {
		fmt.Fprintln(w, "  refresh:  once at session start")
	}
	fmt.Fprintf(w, "  notify:   %s (UTC)\n", orDash(s.Notify))
	fmt.Fprintf(w, "  http:     %s\n", orDash(s.HTTPAddr))
	fmt.Fprintln(w, strings.Repeat("=", 80))
}

func orDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}
