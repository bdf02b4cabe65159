// Package advisor talks to an OpenAI-compatible chat completion endpoint
// (OpenAI, DeepSeek, Qwen and the like).
package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"aurora/internal/decision"
	"aurora/internal/logger"
	"aurora/internal/pkg/text"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 120 * time.Second
)

// ErrEmptyChoices is returned when the endpoint answers without any choice.
var ErrEmptyChoices = errors.New("advisor: empty choices")

// Config holds the chat endpoint settings.
type Config struct {
	BaseURL      string
	APIKey       string
	Model        string
	Timeout      time.Duration
	ExtraHeaders map[string]string
}

// Client sends the whole conversation on every call. It never retries.
type Client struct {
	http  *resty.Client
	model string
	key   string
	extra map[string]string
}

type chatRequest struct {
	Model    string             `json:"model"`
	Messages []decision.Message `json:"messages"`
	Store    bool               `json:"store"`
	Stream   bool               `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type chatError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := resty.New()
	c.SetBaseURL(normalizeBaseURL(cfg.BaseURL))
	c.SetTimeout(timeout)
	c.SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		c.SetAuthToken(cfg.APIKey)
	}
	for k, v := range cfg.ExtraHeaders {
		c.SetHeader(k, v)
	}
	return &Client{http: c, model: cfg.Model, key: cfg.APIKey, extra: cfg.ExtraHeaders}
}

// normalizeBaseURL tolerates a configured URL that already ends in
// /chat/completions.
func normalizeBaseURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		u = defaultBaseURL
	}
	u = strings.TrimRight(u, "/")
	return strings.TrimSuffix(u, "/chat/completions")
}

// Complete posts the messages and returns the first choice's content.
func (c *Client) Complete(ctx context.Context, messages []decision.Message) (string, error) {
	logger.Debugf("[AI] POST /chat/completions model=%s messages=%d headers=%v", c.model, len(messages), c.maskedHeaders())

	var out chatResponse
	var apiErr chatError
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(chatRequest{Model: c.model, Messages: messages, Store: true}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if resp.IsError() {
		msg := strings.TrimSpace(apiErr.Error.Message)
		if msg == "" {
			msg = text.Truncate(strings.TrimSpace(resp.String()), 512)
		}
		if msg == "" {
			msg = resp.Status()
		}
		return "", fmt.Errorf("chat completion status=%d: %s", resp.StatusCode(), msg)
	}
	if len(out.Choices) == 0 {
		return "", ErrEmptyChoices
	}
	return out.Choices[0].Message.Content, nil
}

func (c *Client) maskedHeaders() map[string]string {
	h := map[string]string{}
	if c.key != "" {
		h["Authorization"] = "Bearer " + mask(c.key)
	}
	for k, v := range c.extra {
		lk := strings.ToLower(k)
		if strings.Contains(lk, "key") || strings.Contains(lk, "token") || strings.Contains(lk, "auth") {
			v = mask(v)
		}
		h[k] = v
	}
	return h
}

func mask(v string) string {
	if len(v) > 4 {
		return "****" + v[len(v)-4:]
	}
	return "****"
}
