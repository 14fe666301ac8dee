package trader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitkub-trade-bot-go/internal/indicator"
	"go.uber.org/zap"
)

// Engine drives the selected strategy: one decision cycle per invocation
// when scheduled externally, or an internal ticker loop when configured
// with a tick interval.
type Engine struct {
	logger   *zap.Logger
	ctx      StrategyContext
	strategy Strategy
}

// NewEngine creates a trading engine for the configured strategy variant.
func NewEngine(sc StrategyContext) (*Engine, error) {
	strategy, err := NewStrategy(sc.Cfg.Trading.Strategy)
	if err != nil {
		return nil, err
	}
	return &Engine{
		logger:   sc.Logger,
		ctx:      sc,
		strategy: strategy,
	}, nil
}

// StrategyName reports which variant the engine runs.
func (e *Engine) StrategyName() string {
	return e.strategy.Name()
}

// Initialize runs the strategy's setup checks. Configuration errors are
// fatal and must stop the process before any cycle runs.
func (e *Engine) Initialize() error {
	return e.strategy.Initialize(e.ctx)
}

// RunOnce executes a single decision cycle. Data-fetch and order failures
// are contained here: they are logged and notified, and the cycle ends with
// no state change. Only configuration errors propagate.
func (e *Engine) RunOnce() error {
	e.logger.Info("Starting decision cycle", zap.String("strategy", e.strategy.Name()))

	err := e.strategy.Scout(e.ctx)
	if err == nil {
		e.logger.Info("Decision cycle complete")
		return nil
	}

	if errors.Is(err, indicator.ErrInvalidConfiguration) {
		return err
	}

	e.logger.Error("Decision cycle failed", zap.Error(err))
	e.ctx.Notifier.Notify(fmt.Sprintf("⚠️ cycle failed: %v", err))
	return nil
}

// Run executes cycles until the context is cancelled. With no tick interval
// configured it runs exactly one cycle, matching an external scheduler
// invoking the process per cycle.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.Initialize(); err != nil {
		return err
	}

	interval := time.Duration(e.ctx.Cfg.Trading.TickInterval) * time.Second
	if interval <= 0 {
		return e.RunOnce()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.logger.Info("Starting scout loop", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Stopping trading engine...")
			return nil
		case <-ticker.C:
			if err := e.RunOnce(); err != nil {
				return err
			}
		}
	}
}
