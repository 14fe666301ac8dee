package trader

import (
	"fmt"
	"strings"
	"time"

	"bitkub-trade-bot-go/internal/bitkub"
	"bitkub-trade-bot-go/internal/config"
	"bitkub-trade-bot-go/internal/state"
	"bitkub-trade-bot-go/internal/telegram"
	"go.uber.org/zap"
)

// StrategyContext provides the strategy with access to the core components.
type StrategyContext struct {
	Logger   *zap.Logger
	Cfg      *config.Config
	Client   bitkub.RestClientInterface
	Notifier telegram.NotifierInterface
	Store    *state.Store
}

// Strategy defines the interface for a trading strategy.
type Strategy interface {
	// Name returns the unique name of the strategy.
	Name() string

	// Initialize gives the strategy a chance to perform setup tasks.
	Initialize(ctx StrategyContext) error

	// Scout runs one full decision cycle: fetch data, decide, act, persist.
	Scout(ctx StrategyContext) error
}

// NewStrategy builds the strategy variant selected in the config.
func NewStrategy(name string) (Strategy, error) {
	switch name {
	case "grid":
		return &GridStrategy{}, nil
	case "rsi":
		return &RSIStrategy{}, nil
	case "rsi-stateless":
		return &StatelessRSIStrategy{}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}

// ActionType enumerates what a decision cycle can conclude.
type ActionType int

const (
	ActionNone ActionType = iota
	ActionBuy
	ActionSell
)

// Action is the outcome of the pure decision core: at most one order with
// its limit price and base-asset quantity. Reason feeds logs and
// notifications; Warn carries an advisory (e.g. a breached stop threshold)
// that must be notified even when no order is placed.
type Action struct {
	Type     ActionType
	Price    float64
	Quantity float64
	Reason   string
	Warn     string
}

// candleSymbol derives the chart-history symbol ("BTC_THB") from the
// order-submission symbol ("btc_thb").
func candleSymbol(cfg *config.Config) string {
	return strings.ToUpper(cfg.Trading.TradeSymbol)
}

// submitOrder places a limit order through the account gateway. In dry-run
// mode no order reaches the exchange; a synthetic result is returned so the
// rest of the cycle behaves normally. Note that for the grid strategy a
// synthetic order id never shows up in the open-order list, so dry-run
// simulates an instant fill on the next cycle.
func submitOrder(ctx StrategyContext, side string, quantity, price float64) (*bitkub.OrderResult, error) {
	if ctx.Cfg.Trading.DryRun {
		ctx.Logger.Warn("[Dry Run] Simulating order placement",
			zap.String("side", side),
			zap.Float64("quantity", quantity),
			zap.Float64("price", price),
		)
		return &bitkub.OrderResult{
			ID:     fmt.Sprintf("dry-%d", time.Now().UnixNano()),
			Type:   "limit",
			Amount: quantity,
			Rate:   price,
			Ts:     time.Now().Unix(),
		}, nil
	}
	return ctx.Client.PlaceOrder(ctx.Cfg.Trading.TradeSymbol, side, quantity, price)
}
