package config

import (
	"fmt"
	"strings"

	"aurora/internal/scheduler"
)

func validate(c *Config) error {
	if err := c.Trade.validate(); err != nil {
		return err
	}
	if err := c.Decision.validate(); err != nil {
		return err
	}
	if err := c.Gateway.validate(); err != nil {
		return err
	}
	return c.Storage.validate()
}

func (t *TradeConfig) validate() error {
	if s := strings.TrimSpace(t.RefreshInterval); s != "" {
		if _, ok := scheduler.ParseIntervalDuration(s); !ok {
			return fmt.Errorf("trade.refresh_interval %q is not a valid interval (e.g. 5m, 1h)", s)
		}
	}
	return nil
}

func (d *DecisionConfig) validate() error {
	if d.ConfidenceThreshold > 100 {
		return fmt.Errorf("decision.confidence_threshold must be within 0..100")
	}
	return nil
}

func (g *GatewayConfig) validate() error {
	switch g.Mode {
	case GatewayPaper:
		return nil
	case GatewayBridge:
		if strings.TrimSpace(g.BridgeURL) == "" {
			return fmt.Errorf("gateway.bridge_url is required when gateway.mode=bridge")
		}
		return nil
	default:
		return fmt.Errorf("gateway.mode must be %s or %s, got %q", GatewayPaper, GatewayBridge, g.Mode)
	}
}

func (s *StorageConfig) validate() error {
	switch s.BarFormat {
	case "csv", "parquet", "sqlite":
		return nil
	default:
		return fmt.Errorf("storage.bar_format must be csv, parquet or sqlite, got %q", s.BarFormat)
	}
}
