// Package bridge forwards gateway commands over HTTP to a sidecar process
// that holds the brokerage session. Events come back through the HTTP
// webhook.
package bridge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"aurora/internal/gateway"
	"aurora/internal/pkg/text"
)

const (
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 512
)

// Client implements gateway.CommandSink against the sidecar's REST surface.
type Client struct {
	http *resty.Client
}

var _ gateway.CommandSink = (*Client)(nil)

type accountUpdatesBody struct {
	Subscribe bool   `json:"subscribe"`
	Account   string `json:"account"`
}

type placeOrderBody struct {
	OrderID  int64               `json:"order_id"`
	Contract gateway.Contract    `json:"contract"`
	Order    gateway.OrderTicket `json:"order"`
}

type cancelOrderBody struct {
	OrderID int64 `json:"order_id"`
}

func New(baseURL string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("bridge: gateway.bridge_url is empty")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := resty.New()
	c.SetBaseURL(baseURL)
	c.SetTimeout(timeout)
	c.SetHeader("Content-Type", "application/json")
	return &Client{http: c}, nil
}

func (c *Client) RequestHistoricalData(ctx context.Context, req gateway.HistoricalRequest) error {
	return c.post(ctx, "historical_data", req)
}

func (c *Client) RequestAccountUpdates(ctx context.Context, subscribe bool, account string) error {
	return c.post(ctx, "account_updates", accountUpdatesBody{Subscribe: subscribe, Account: account})
}

func (c *Client) RequestAllOpenOrders(ctx context.Context) error {
	return c.post(ctx, "open_orders", struct{}{})
}

func (c *Client) RequestPositions(ctx context.Context) error {
	return c.post(ctx, "positions", struct{}{})
}

func (c *Client) PlaceOrder(ctx context.Context, orderID int64, contract gateway.Contract, ticket gateway.OrderTicket) error {
	return c.post(ctx, "place_order", placeOrderBody{OrderID: orderID, Contract: contract, Order: ticket})
}

func (c *Client) CancelOrder(ctx context.Context, orderID int64) error {
	return c.post(ctx, "cancel_order", cancelOrderBody{OrderID: orderID})
}

func (c *Client) post(ctx context.Context, command string, body any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post("/commands/" + command)
	if err != nil {
		return fmt.Errorf("bridge %s: %w", command, err)
	}
	if resp.IsError() {
		return fmt.Errorf("bridge %s: status=%d body=%s", command, resp.StatusCode(), text.Truncate(strings.TrimSpace(resp.String()), maxErrorBody))
	}
	return nil
}
