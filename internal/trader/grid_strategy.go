package trader

import (
	"fmt"
	"time"

	"bitkub-trade-bot-go/internal/bitkub"
	"bitkub-trade-bot-go/internal/indicator"
	"bitkub-trade-bot-go/internal/models"
	"go.uber.org/zap"
)

// GridStrategy lays a ladder of buy orders below the current price and
// rotates completed orders into the opposite side at a fixed profit step.
// Its state is the persisted set of order records, not a scalar flag: the
// records are the complete and only memory of "orders we believe open".
type GridStrategy struct{}

func (s *GridStrategy) Name() string {
	return "grid"
}

// Initialize rejects grid parameters the ladder cannot be built from.
func (s *GridStrategy) Initialize(ctx StrategyContext) error {
	if ctx.Cfg.Trading.GridLevels < 2 {
		return fmt.Errorf("%w: grid needs at least 2 levels, got %d",
			indicator.ErrInvalidConfiguration, ctx.Cfg.Trading.GridLevels)
	}
	ctx.Logger.Info("Grid strategy initialized",
		zap.Int("levels", ctx.Cfg.Trading.GridLevels),
		zap.Float64("range", ctx.Cfg.Trading.GridRange),
		zap.Float64("budget", ctx.Cfg.Trading.Budget),
	)
	return nil
}

// Scout runs one cycle: with no records it lays out the initial ladder,
// otherwise it reconciles the records against the exchange's open orders.
func (s *GridStrategy) Scout(ctx StrategyContext) error {
	l := ctx.Logger.With(zap.String("strategy", s.Name()))

	records, err := ctx.Store.ListGridOrders()
	if err != nil {
		return err
	}

	if len(records) == 0 {
		return s.setup(ctx, l)
	}
	return s.reconcile(ctx, l, records)
}

// setup builds the initial grid: one buy per level below the current price,
// each sized at budget/levels in quote currency.
func (s *GridStrategy) setup(ctx StrategyContext, l *zap.Logger) error {
	t := &ctx.Cfg.Trading

	price, err := ctx.Client.GetLastPrice(t.TickerSymbol)
	if err != nil {
		return fmt.Errorf("could not get current price: %w", err)
	}

	balances, err := ctx.Client.GetBalances()
	if err != nil {
		return fmt.Errorf("could not get balances: %w", err)
	}
	quoteAvailable := balances[t.QuoteAsset]

	perOrder := t.Budget / float64(t.GridLevels)
	if perOrder < t.MinOrderAmount {
		return fmt.Errorf("%w: per-order amount %.2f below exchange minimum %.2f",
			indicator.ErrInvalidConfiguration, perOrder, t.MinOrderAmount)
	}
	if quoteAvailable < t.MinOrderAmount {
		l.Warn("Quote balance below minimum order size, skipping grid setup",
			zap.Float64("available", quoteAvailable),
			zap.Float64("minimum", t.MinOrderAmount),
		)
		ctx.Notifier.Notify(fmt.Sprintf("⚠️ grid setup skipped: balance %.2f below minimum %.2f",
			quoteAvailable, t.MinOrderAmount))
		return nil
	}

	levels, err := indicator.GridLevels(price, t.GridRange, t.GridLevels)
	if err != nil {
		return err
	}

	l.Info("Laying out grid",
		zap.Float64("reference_price", price),
		zap.Int("levels", len(levels)),
		zap.Float64("per_order", perOrder),
	)

	placed := 0
	for _, level := range levels {
		if level >= price {
			continue
		}
		quantity := indicator.RoundQuantity(perOrder / level)
		if err := s.placeGridOrder(ctx, l, bitkub.OrderSideBuy, level, quantity, perOrder); err == nil {
			placed++
		}
	}

	ctx.Notifier.Notify(fmt.Sprintf("🧱 grid setup: %d buy orders below %.2f", placed, price))
	return nil
}

// reconcile partitions the local records against the exchange's open-order
// list and rotates every completed order into its replacement.
func (s *GridStrategy) reconcile(ctx StrategyContext, l *zap.Logger, records []models.GridOrder) error {
	t := &ctx.Cfg.Trading

	open, err := ctx.Client.GetOpenOrders(t.TradeSymbol)
	if err != nil {
		return fmt.Errorf("could not get open orders: %w", err)
	}
	openSet := make(map[string]struct{}, len(open))
	for _, o := range open {
		openSet[o.ID] = struct{}{}
	}

	records = s.cancelStale(ctx, l, records, openSet)

	for _, rec := range records {
		if _, stillOpen := openSet[rec.OrderID]; stillOpen {
			continue
		}

		// The order left the open list. Fill and cancellation are
		// indistinguishable here; we assume fill, which is the
		// documented, accepted risk of this model.
		l.Info("Grid order completed",
			zap.String("order_id", rec.OrderID),
			zap.String("side", rec.Side),
			zap.Float64("price", rec.Price),
		)
		if err := ctx.Store.RemoveGridOrder(rec.OrderID); err != nil {
			return err
		}

		switch rec.Side {
		case bitkub.OrderSideBuy:
			// Rotate the filled buy into a profit-taking sell. The sell
			// offers the base quantity the buy delivered at its fill
			// price, less the taker fee; sizing it from the sell price
			// would strand the fee-sized remainder every rotation.
			sellPrice := indicator.RoundPrice(rec.Price * (1 + t.StepProfitPct))
			sellQty := indicator.RoundQuantity(rec.Amount / rec.Price * (1 - t.FeeRate))
			ctx.Notifier.Notify(fmt.Sprintf("✅ buy filled @ %.2f → queueing sell @ %.2f", rec.Price, sellPrice))
			_ = s.placeGridOrder(ctx, l, bitkub.OrderSideSell, sellPrice, sellQty, rec.Amount)
		case bitkub.OrderSideSell:
			// Rotate the filled sell back into a buy one step down,
			// re-committing the same quote notional.
			buyPrice := indicator.RoundPrice(rec.Price / (1 + t.StepProfitPct))
			buyQty := indicator.RoundQuantity(rec.Amount / buyPrice)
			ctx.Notifier.Notify(fmt.Sprintf("✅ sell filled @ %.2f → queueing buy @ %.2f", rec.Price, buyPrice))
			_ = s.placeGridOrder(ctx, l, bitkub.OrderSideBuy, buyPrice, buyQty, rec.Amount)
		}
	}

	return nil
}

// cancelStale cancels open buy orders that have sat unfilled beyond the
// configured age and drops their records, so reconciliation never mistakes
// our own cancellation for a fill. Returns the surviving records.
func (s *GridStrategy) cancelStale(ctx StrategyContext, l *zap.Logger, records []models.GridOrder, openSet map[string]struct{}) []models.GridOrder {
	t := &ctx.Cfg.Trading
	if t.MaxOrderAgeMins <= 0 {
		return records
	}

	maxAge := time.Duration(t.MaxOrderAgeMins) * time.Minute
	now := time.Now()

	kept := records[:0]
	for _, rec := range records {
		_, stillOpen := openSet[rec.OrderID]
		age := now.Sub(time.Unix(rec.PlacedAt, 0))
		if !stillOpen || rec.Side != bitkub.OrderSideBuy || age <= maxAge {
			kept = append(kept, rec)
			continue
		}

		if err := ctx.Client.CancelOrder(t.TradeSymbol, rec.OrderID); err != nil {
			l.Error("Failed to cancel stale order", zap.String("order_id", rec.OrderID), zap.Error(err))
			kept = append(kept, rec)
			continue
		}
		if err := ctx.Store.RemoveGridOrder(rec.OrderID); err != nil {
			l.Error("Failed to drop cancelled order record", zap.String("order_id", rec.OrderID), zap.Error(err))
			continue
		}
		delete(openSet, rec.OrderID)
		l.Info("Cancelled stale buy order",
			zap.String("order_id", rec.OrderID),
			zap.Duration("age", age),
		)
		ctx.Notifier.Notify(fmt.Sprintf("❌ cancelled stale buy %s (%.1f min old)", rec.OrderID, age.Minutes()))
	}
	return kept
}

// placeGridOrder submits one grid order and persists its record immediately
// on success. The record keeps the quote notional committed to the rung so
// later rotations can re-derive their sizes from it. A failed placement is
// notified and simply not recorded; there is no same-cycle retry.
func (s *GridStrategy) placeGridOrder(ctx StrategyContext, l *zap.Logger, side string, price, quantity, notional float64) error {
	result, err := submitOrder(ctx, side, quantity, price)
	if err != nil {
		l.Error("Grid order placement failed",
			zap.String("side", side),
			zap.Float64("price", price),
			zap.Error(err),
		)
		ctx.Notifier.Notify(fmt.Sprintf("❌ grid %s @ %.2f failed: %v", side, price, err))
		return err
	}

	record := &models.GridOrder{
		OrderID:  result.ID,
		Side:     side,
		Price:    price,
		Amount:   notional,
		PlacedAt: time.Now().Unix(),
	}
	if err := ctx.Store.AddGridOrder(record); err != nil {
		// The order is live but unrecorded; the next cycle's
		// reconciliation will not know about it. Surface loudly.
		l.Error("Placed order but failed to persist its record",
			zap.String("order_id", result.ID), zap.Error(err))
		ctx.Notifier.Notify(fmt.Sprintf("⚠️ order %s placed but not recorded", result.ID))
		return err
	}

	recordTrade(ctx, l, side, price, quantity, 0)
	l.Info("Grid order placed",
		zap.String("order_id", result.ID),
		zap.String("side", side),
		zap.Float64("price", price),
		zap.Float64("quantity", quantity),
	)
	return nil
}
