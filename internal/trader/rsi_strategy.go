package trader

import (
	"errors"
	"fmt"
	"time"

	"bitkub-trade-bot-go/internal/bitkub"
	"bitkub-trade-bot-go/internal/config"
	"bitkub-trade-bot-go/internal/indicator"
	"bitkub-trade-bot-go/internal/models"
	"go.uber.org/zap"
)

// RSIStrategy is a mean-reversion strategy over a persisted two-state
// position: buy when the RSI reads oversold, sell once the price clears the
// take-profit target above the recorded entry.
type RSIStrategy struct{}

// Name returns the unique name of the strategy.
func (s *RSIStrategy) Name() string {
	return "rsi"
}

// Initialize verifies the persisted position satisfies its invariant before
// the first cycle runs against it.
func (s *RSIStrategy) Initialize(ctx StrategyContext) error {
	pos, err := ctx.Store.LoadPosition()
	if err != nil {
		return err
	}
	if !pos.Holding && (pos.EntryPrice != 0 || pos.Quantity != 0) {
		return fmt.Errorf("position state corrupt: not holding but entry=%.2f qty=%.8f", pos.EntryPrice, pos.Quantity)
	}
	if pos.Holding && pos.Quantity <= 0 {
		return fmt.Errorf("position state corrupt: holding with quantity %.8f", pos.Quantity)
	}
	ctx.Logger.Info("RSI strategy initialized", zap.Bool("holding", pos.Holding))
	return nil
}

// Scout runs one decision cycle.
func (s *RSIStrategy) Scout(ctx StrategyContext) error {
	l := ctx.Logger.With(zap.String("strategy", s.Name()))

	pos, err := ctx.Store.LoadPosition()
	if err != nil {
		return err
	}

	snap, ok, err := fetchSnapshot(ctx, l)
	if err != nil || !ok {
		return err
	}

	balances, err := ctx.Client.GetBalances()
	if err != nil {
		return fmt.Errorf("could not get balances: %w", err)
	}
	quoteAvailable := balances[ctx.Cfg.Trading.QuoteAsset]

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

	switch action.Type {
	case ActionBuy:
		return s.executeBuy(ctx, l, &pos, action)
	case ActionSell:
		return s.executeSell(ctx, l, &pos, action)
	default:
		l.Info("No action this cycle")
		return nil
	}
}

func (s *RSIStrategy) executeBuy(ctx StrategyContext, l *zap.Logger, pos *models.Position, action Action) error {
	sym := ctx.Cfg.Trading.TradeSymbol

	result, err := submitOrder(ctx, bitkub.OrderSideBuy, action.Quantity, action.Price)
	if err != nil {
		// Exchange rejections leave the position untouched; the next
		// scheduled cycle re-evaluates from fresh state.
		l.Error("Buy order rejected", zap.Error(err))
		ctx.Notifier.Notify(fmt.Sprintf("❌ BUY failed for %s: %v", sym, err))
		return nil
	}

	netQty := indicator.RoundQuantity(action.Quantity * (1 - ctx.Cfg.Trading.FeeRate))

	pos.Holding = true
	pos.EntryPrice = action.Price
	pos.Quantity = netQty
	if err := ctx.Store.SavePosition(pos); err != nil {
		return err
	}

	recordTrade(ctx, l, bitkub.OrderSideBuy, action.Price, netQty, 0)

	msg := fmt.Sprintf("🟢 BUY %s\nprice %.2f\nqty %.8f\norder %s", sym, action.Price, netQty, result.ID)
	ctx.Notifier.Notify(msg)
	l.Info("Position opened", zap.Float64("entry_price", pos.EntryPrice), zap.Float64("quantity", pos.Quantity))
	return nil
}

func (s *RSIStrategy) executeSell(ctx StrategyContext, l *zap.Logger, pos *models.Position, action Action) error {
	sym := ctx.Cfg.Trading.TradeSymbol

	result, err := submitOrder(ctx, bitkub.OrderSideSell, action.Quantity, action.Price)
	if err != nil {
		l.Error("Sell order rejected", zap.Error(err))
		ctx.Notifier.Notify(fmt.Sprintf("❌ SELL failed for %s: %v", sym, err))
		return nil
	}

	profit := (action.Price - pos.EntryPrice) * action.Quantity

	pos.Holding = false
	pos.EntryPrice = 0
	pos.Quantity = 0
	if err := ctx.Store.SavePosition(pos); err != nil {
		return err
	}

	recordTrade(ctx, l, bitkub.OrderSideSell, action.Price, action.Quantity, profit)

	msg := fmt.Sprintf("🔵 SELL %s\nprice %.2f\nqty %.8f\nprofit %.2f\norder %s",
		sym, action.Price, action.Quantity, profit, result.ID)
	ctx.Notifier.Notify(msg)
	l.Info("Position closed", zap.Float64("profit", profit))
	return nil
}

// decideRSI is the pure decision core of the mean-reversion machine. It
// never touches the network or the store.
func decideRSI(pos models.Position, snap indicator.Snapshot, quoteAvailable float64, t *config.Trading) Action {
	if !pos.Holding {
		if snap.RSI > t.RsiBuyLevel {
			return Action{Type: ActionNone, Reason: fmt.Sprintf("RSI %.2f above buy level %.2f", snap.RSI, t.RsiBuyLevel)}
		}
		if quoteAvailable < t.TradeAmount {
			return Action{Type: ActionNone, Reason: fmt.Sprintf("balance %.2f below trade amount %.2f", quoteAvailable, t.TradeAmount)}
		}
		limit := indicator.RoundPrice(snap.Price * (1 + t.SlippagePct))
		qty := indicator.RoundQuantity(t.TradeAmount / limit)
		return Action{
			Type:     ActionBuy,
			Price:    limit,
			Quantity: qty,
			Reason:   fmt.Sprintf("RSI %.2f at or below buy level %.2f", snap.RSI, t.RsiBuyLevel),
		}
	}

	target := pos.EntryPrice * (1 + t.TakeProfitPct)
	if snap.Price >= target {
		return Action{
			Type:     ActionSell,
			Price:    indicator.RoundPrice(snap.Price),
			Quantity: pos.Quantity,
			Reason:   fmt.Sprintf("price %.2f reached target %.2f", snap.Price, target),
		}
	}

	action := Action{Type: ActionNone, Reason: fmt.Sprintf("price %.2f below target %.2f", snap.Price, target)}
	if t.StopLossPct > 0 && snap.Price <= pos.EntryPrice*(1-t.StopLossPct) {
		// Warn only. Cutting the position stays a human decision.
		action.Warn = fmt.Sprintf("unrealized loss beyond %.1f%%: entry %.2f, price %.2f",
			t.StopLossPct*100, pos.EntryPrice, snap.Price)
	}
	return action
}

// fetchSnapshot pulls the close series and derives the indicator snapshot.
// ok is false when the cycle should be skipped without error (provider
// returned too little data to compute the RSI).
func fetchSnapshot(ctx StrategyContext, l *zap.Logger) (indicator.Snapshot, bool, error) {
	closes, err := ctx.Client.GetRecentCloses(
		candleSymbol(ctx.Cfg),
		ctx.Cfg.Trading.RsiResolution,
		ctx.Cfg.Trading.RsiLookback,
	)
	if err != nil {
		if errors.Is(err, bitkub.ErrNoData) {
			l.Warn("No candle data this cycle, skipping")
			return indicator.Snapshot{}, false, nil
		}
		return indicator.Snapshot{}, false, fmt.Errorf("could not get closes: %w", err)
	}

	snap, err := indicator.NewSnapshot(closes)
	if err != nil {
		if errors.Is(err, indicator.ErrInsufficientData) {
			l.Warn("Not enough closes for RSI, skipping cycle", zap.Int("closes", len(closes)))
			return indicator.Snapshot{}, false, nil
		}
		return indicator.Snapshot{}, false, err
	}
	return snap, true, nil
}

// recordTrade appends a history row. History failures are logged and
// tolerated: the position row is the state of record.
func recordTrade(ctx StrategyContext, l *zap.Logger, side string, price, qty, profit float64) {
	trade := &models.Trade{
		Symbol:        ctx.Cfg.Trading.TradeSymbol,
		Side:          side,
		Price:         price,
		Quantity:      qty,
		QuoteQuantity: price * qty,
		Timestamp:     time.Now().UnixMilli(),
		IsSimulation:  ctx.Cfg.Trading.DryRun,
		Profit:        profit,
	}
	if err := ctx.Store.RecordTrade(trade); err != nil {
		l.Error("Failed to save trade record", zap.Error(err))
	}
}
