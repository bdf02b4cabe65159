package config

import (
	"strings"

	"aurora/internal/logger"
)

const (
	defaultConfidenceThreshold = 80
	defaultOrderQuantity       = 100
	defaultFallbackOrderID     = 2
	defaultAlertThreshold      = -100
	defaultSellThreshold       = -100
	defaultPromptPath          = "prompt.md"
	defaultAdvisoryTimeout     = 120
	defaultGatewayMode         = GatewayPaper
	defaultBarDir              = "."
	defaultBarFormat           = "csv"
	defaultDecisionLogPath     = "data/decisions.db"
	defaultLogLevel            = "info"
	defaultLogPath             = "log.txt"
	defaultNotifyInterval      = 5
)

const (
	GatewayPaper  = "paper"
	GatewayBridge = "bridge"
)

// requiredSections lists the sections whose options are all-or-nothing: a
// missing section or option blanks the whole section with one warning.
var requiredSections = []struct {
	name    string
	label   string
	options []string
}{
	{"notification", "Notification", []string{"prefix", "period", "token"}},
	{"chat", "Chat", []string{"key", "model", "url"}},
	{"trade", "Trade", []string{"symbols"}},
}

func (c *Config) blankIncompleteSections(keys keySet) {
	for _, sec := range requiredSections {
		complete := true
		for _, opt := range sec.options {
			if !keys.has(sec.name + "." + opt) {
				complete = false
				break
			}
		}
		if complete {
			continue
		}
		logger.Warnf("%s configuration not found", sec.label)
		switch sec.name {
		case "notification":
			c.Notification.Prefix, c.Notification.Period, c.Notification.Token = "", "", ""
		case "chat":
			c.Chat = ChatConfig{}
		case "trade":
			c.Trade.Symbols = ""
		}
	}
}

func (c *Config) applyDefaults(keys keySet) {
	c.Decision.applyDefaults(keys)
	c.Advisory.applyDefaults(keys)
	c.Gateway.applyDefaults(keys)
	c.Storage.applyDefaults(keys)
	c.App.applyDefaults(keys)
}

func (d *DecisionConfig) applyDefaults(keys keySet) {
	if d == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "decision.confidence_threshold",
			need:  func() bool { return d.ConfidenceThreshold <= 0 },
			apply: func() { d.ConfidenceThreshold = defaultConfidenceThreshold },
		},
		fieldDefault{
			key:   "decision.order_quantity",
			need:  func() bool { return d.OrderQuantity <= 0 },
			apply: func() { d.OrderQuantity = defaultOrderQuantity },
		},
		fieldDefault{
			key:   "decision.fallback_order_id",
			need:  func() bool { return d.FallbackOrderID <= 0 },
			apply: func() { d.FallbackOrderID = defaultFallbackOrderID },
		},
		fieldDefault{
			key:   "decision.alert_threshold",
			need:  func() bool { return !keys.has("decision.alert_threshold") },
			apply: func() { d.AlertThreshold = defaultAlertThreshold },
		},
		fieldDefault{
			key:   "decision.sell_threshold",
			need:  func() bool { return d.SellThreshold == 0 },
			apply: func() { d.SellThreshold = defaultSellThreshold },
		},
	)
}

func (a *AdvisoryConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("advisory.prompt_path", &a.PromptPath, defaultPromptPath),
		fieldDefault{
			key:   "advisory.timeout_seconds",
			need:  func() bool { return a.TimeoutSeconds <= 0 },
			apply: func() { a.TimeoutSeconds = defaultAdvisoryTimeout },
		},
	)
	if a.HistoryWindow < 0 {
		a.HistoryWindow = 0
	}
}

func (g *GatewayConfig) applyDefaults(keys keySet) {
	if g == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("gateway.mode", &g.Mode, defaultGatewayMode),
	)
	g.Mode = strings.ToLower(strings.TrimSpace(g.Mode))
}

func (s *StorageConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("storage.bar_dir", &s.BarDir, defaultBarDir),
		stringFieldDefault("storage.bar_format", &s.BarFormat, defaultBarFormat),
		stringFieldDefault("storage.decision_log_path", &s.DecisionLogPath, defaultDecisionLogPath),
	)
	s.BarFormat = strings.ToLower(strings.TrimSpace(s.BarFormat))
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.log_level", &a.LogLevel, defaultLogLevel),
		stringFieldDefault("app.log_path", &a.LogPath, defaultLogPath),
		fieldDefault{
			key:   "app.notify_interval_minutes",
			need:  func() bool { return a.NotifyIntervalMinutes <= 0 },
			apply: func() { a.NotifyIntervalMinutes = defaultNotifyInterval },
		},
	)
}

type keySet map[string]struct{}

func (k keySet) mark(key string) {
	if k == nil {
		return
	}
	k[strings.ToLower(key)] = struct{}{}
}

func (k keySet) has(key string) bool {
	if k == nil {
		return false
	}
	_, ok := k[strings.ToLower(key)]
	return ok
}

type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}

// applyFieldDefaults fills a field when its key was not set, or was set but
// still fails the need check (blank or out of range).
func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		if def.need == nil && keys.has(def.key) {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
