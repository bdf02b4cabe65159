package app

import (
	"strings"
	"time"

	"aurora/internal/advisor"
	"aurora/internal/config"
	"aurora/internal/decision"
	"aurora/internal/logger"
)

func newAdvisor(chat config.ChatConfig, adv config.AdvisoryConfig) decision.Advisor {
	if strings.TrimSpace(chat.Key) == "" {
		logger.Warnf("chat.key is empty; advisory calls will be rejected by the endpoint")
	}
	timeout := time.Duration(adv.TimeoutSeconds) * time.Second
	logger.Infof("✓ advisor model=%s url=%s timeout=%s", chat.Model, chat.URL, timeout)
	return advisor.New(advisor.Config{
		BaseURL: chat.URL,
		APIKey:  chat.Key,
		Model:   chat.Model,
		Timeout: timeout,
	})
}
