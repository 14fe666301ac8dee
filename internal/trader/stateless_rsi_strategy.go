package trader

import (
	"fmt"

	"bitkub-trade-bot-go/internal/bitkub"
	"bitkub-trade-bot-go/internal/indicator"
	"bitkub-trade-bot-go/internal/models"
	"go.uber.org/zap"
)

// StatelessRSIStrategy is the mean-reversion machine without a persisted
// position: holding is derived from the live wallet balance and the entry
// price is recovered from order history. Trades persistence for API calls;
// a history lookup failure while holding skips the cycle rather than sell
// at an unknown cost basis.
type StatelessRSIStrategy struct{}

func (s *StatelessRSIStrategy) Name() string {
	return "rsi-stateless"
}

func (s *StatelessRSIStrategy) Initialize(ctx StrategyContext) error {
	ctx.Logger.Info("Stateless RSI strategy initialized",
		zap.Float64("dust_threshold", ctx.Cfg.Trading.DustThreshold))
	return nil
}

// Scout runs one decision cycle against live account state only.
func (s *StatelessRSIStrategy) Scout(ctx StrategyContext) error {
	l := ctx.Logger.With(zap.String("strategy", s.Name()))

	snap, ok, err := fetchSnapshot(ctx, l)
	if err != nil || !ok {
		return err
	}

	balances, err := ctx.Client.GetBalances()
	if err != nil {
		return fmt.Errorf("could not get balances: %w", err)
	}
	quoteAvailable := balances[ctx.Cfg.Trading.QuoteAsset]
	baseAvailable := balances[ctx.Cfg.Trading.BaseAsset]

	pos, ok, err := s.derivePosition(ctx, l, baseAvailable)
	if err != nil || !ok {
		return err
	}

	action := decideRSI(pos, snap, quoteAvailable, &ctx.Cfg.Trading)

	l.Info("Decision made",
		zap.Float64("rsi", snap.RSI),
		zap.Float64("price", snap.Price),
		zap.Bool("holding", pos.Holding),
		zap.String("reason", action.Reason),
	)

	if action.Warn != "" {
		l.Warn(action.Warn)
		ctx.Notifier.Notify("⚠️ " + action.Warn)
	}

	if action.Type == ActionNone {
		l.Info("No action this cycle")
		return nil
	}

	side := bitkub.OrderSideBuy
	if action.Type == ActionSell {
		side = bitkub.OrderSideSell
	}

	result, err := submitOrder(ctx, side, action.Quantity, action.Price)
	if err != nil {
		l.Error("Order rejected", zap.Error(err), zap.String("side", side))
		ctx.Notifier.Notify(fmt.Sprintf("❌ %s failed for %s: %v", side, ctx.Cfg.Trading.TradeSymbol, err))
		return nil
	}

	// No position row to update: the wallet balance is the state.
	profit := 0.0
	if action.Type == ActionSell {
		profit = (action.Price - pos.EntryPrice) * action.Quantity
	}
	recordTrade(ctx, l, side, action.Price, action.Quantity, profit)

	ctx.Notifier.Notify(fmt.Sprintf("%s %s\nprice %.2f\nqty %.8f\norder %s",
		sideEmoji(side), ctx.Cfg.Trading.TradeSymbol, action.Price, action.Quantity, result.ID))
	return nil
}

// derivePosition reconstructs the position from the wallet and, when the
// balance says we hold, from the most recent buy fill in order history.
// ok is false when the cycle must be skipped (history unavailable).
func (s *StatelessRSIStrategy) derivePosition(ctx StrategyContext, l *zap.Logger, baseAvailable float64) (models.Position, bool, error) {
	if baseAvailable <= ctx.Cfg.Trading.DustThreshold {
		return models.Position{}, true, nil
	}

	history, err := ctx.Client.GetOrderHistory(ctx.Cfg.Trading.TradeSymbol, ctx.Cfg.Trading.HistoryLookups)
	if err != nil {
		// Fail closed: without a cost basis we must not sell.
		l.Warn("Order history unavailable while holding, skipping cycle", zap.Error(err))
		return models.Position{}, false, nil
	}

	entry, found := lastBuyPrice(history)
	if !found {
		l.Warn("No buy fill found in order history, skipping cycle",
			zap.Int("rows_scanned", len(history)))
		return models.Position{}, false, nil
	}

	return models.Position{
		Holding:    true,
		EntryPrice: entry,
		Quantity:   indicator.RoundQuantity(baseAvailable),
	}, true, nil
}

// lastBuyPrice scans history rows (newest first) for the most recent buy.
func lastBuyPrice(history []bitkub.HistoryOrder) (float64, bool) {
	for _, h := range history {
		if h.Side == bitkub.OrderSideBuy && h.Rate > 0 {
			return h.Rate, true
		}
	}
	return 0, false
}

func sideEmoji(side string) string {
	if side == bitkub.OrderSideBuy {
		return "🟢 BUY"
	}
	return "🔵 SELL"
}
