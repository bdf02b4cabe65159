package app

import (
	"context"
	"fmt"
	"strings"

	"aurora/internal/config"
	"aurora/internal/gateway"
	"aurora/internal/gateway/bridge"
	"aurora/internal/gateway/paper"
	"aurora/internal/logger"
)

// gatewayLink is the brokerage connection as the app sees it: commands go out
// through Commands and events come back either on the sink given to Attach
// or, for Webhook gateways, on POST /api/gateway/events.
type gatewayLink struct {
	Mode     string
	Commands gateway.CommandSink
	Attach   func(gateway.EventSink)
	Connect  func()
	Run      func(ctx context.Context) error
	Webhook  bool
}

func buildGateway(cfg *config.Config, loader paper.BarLoader) (*gatewayLink, error) {
	switch cfg.Gateway.Mode {
	case config.GatewayBridge:
		return buildBridgeGateway(cfg.Gateway)
	case config.GatewayPaper, "":
		return buildPaperGateway(cfg, loader), nil
	default:
		return nil, fmt.Errorf("unsupported gateway mode %q", cfg.Gateway.Mode)
	}
}

func buildPaperGateway(cfg *config.Config, loader paper.BarLoader) *gatewayLink {
	if loader == nil {
		dir := strings.TrimSpace(cfg.Gateway.PaperDataDir)
		if dir == "" {
			dir = cfg.Storage.BarDir
		}
		logger.Infof("✓ paper gateway replaying bars from %s", dir)
		loader = paper.FromDir(dir)
	}
	broker := paper.New(paper.Options{
		Account: cfg.Gateway.Account,
		Bars:    loader,
	})
	return &gatewayLink{
		Mode:     config.GatewayPaper,
		Commands: broker,
		Attach:   broker.Attach,
		Connect:  broker.Connect,
		Run:      broker.Run,
	}
}

func buildBridgeGateway(cfg config.GatewayConfig) (*gatewayLink, error) {
	client, err := bridge.New(cfg.BridgeURL, 0)
	if err != nil {
		return nil, err
	}
	logger.Infof("✓ bridge gateway at %s", cfg.BridgeURL)
	return &gatewayLink{
		Mode:     config.GatewayBridge,
		Commands: client,
		Webhook:  true,
	}, nil
}
