package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"bitkub-trade-bot-go/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log *zap.Logger
	db  *gorm.DB
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, db *gorm.DB) *APIHandler {
	return &APIHandler{log: log, db: db}
}

// StatusResponse describes the bot's current position.
type StatusResponse struct {
	Holding       bool    `json:"holding"`
	EntryPrice    float64 `json:"entry_price"`
	Quantity      float64 `json:"quantity"`
	OpenGridCount int64   `json:"open_grid_count"`
}

// StatusHandler returns the persisted position and the open grid order count.
func (h *APIHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	var pos models.Position
	if err := h.db.First(&pos).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		h.log.Error("Failed to get position from database", zap.Error(err))
		http.Error(w, "Failed to get position", http.StatusInternalServerError)
		return
	}

	var gridCount int64
	if err := h.db.Model(&models.GridOrder{}).Count(&gridCount).Error; err != nil {
		h.log.Error("Failed to count grid orders", zap.Error(err))
		http.Error(w, "Failed to count grid orders", http.StatusInternalServerError)
		return
	}

	resp := StatusResponse{
		Holding:       pos.Holding,
		EntryPrice:    pos.EntryPrice,
		Quantity:      pos.Quantity,
		OpenGridCount: gridCount,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// TradesHandler returns all historical trades, most recent first.
func (h *APIHandler) TradesHandler(w http.ResponseWriter, r *http.Request) {
	var trades []models.Trade
	if err := h.db.Order("timestamp desc").Find(&trades).Error; err != nil {
		h.log.Error("Failed to get trades from database", zap.Error(err))
		http.Error(w, "Failed to get trades", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(trades)
}

// GridHandler returns the orders the grid strategy believes are open.
func (h *APIHandler) GridHandler(w http.ResponseWriter, r *http.Request) {
	var orders []models.GridOrder
	if err := h.db.Order("price asc").Find(&orders).Error; err != nil {
		h.log.Error("Failed to get grid orders from database", zap.Error(err))
		http.Error(w, "Failed to get grid orders", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(orders)
}

// StatsDetail holds calculated statistics for a given period.
type StatsDetail struct {
	TotalTrades      int64   `json:"total_trades"`
	ProfitableTrades int64   `json:"profitable_trades"`
	WinRate          float64 `json:"win_rate"`
	TotalProfit      float64 `json:"total_profit"`
}

// StatisticsResponse is the structure for the /api/statistics endpoint.
type StatisticsResponse struct {
	Since24h StatsDetail `json:"since_24h"`
	AllTime  StatsDetail `json:"all_time"`
}

// StatisticsHandler calculates and returns realized-profit statistics from
// closed sells.
func (h *APIHandler) StatisticsHandler(w http.ResponseWriter, r *http.Request) {
	var sells []models.Trade
	if err := h.db.Where("side = ?", "sell").Find(&sells).Error; err != nil {
		h.log.Error("Failed to get trades for statistics", zap.Error(err))
		http.Error(w, "Failed to calculate statistics", http.StatusInternalServerError)
		return
	}

	now := time.Now()
	since24h := now.Add(-24 * time.Hour)

	stats24h := StatsDetail{}
	statsAllTime := StatsDetail{}

	for _, trade := range sells {
		statsAllTime.TotalTrades++
		if trade.Profit > 0 {
			statsAllTime.ProfitableTrades++
		}
		statsAllTime.TotalProfit += trade.Profit

		tradeTime := time.Unix(trade.Timestamp/1000, 0)
		if tradeTime.After(since24h) {
			stats24h.TotalTrades++
			if trade.Profit > 0 {
				stats24h.ProfitableTrades++
			}
			stats24h.TotalProfit += trade.Profit
		}
	}

	if statsAllTime.TotalTrades > 0 {
		statsAllTime.WinRate = float64(statsAllTime.ProfitableTrades) / float64(statsAllTime.TotalTrades)
	}
	if stats24h.TotalTrades > 0 {
		stats24h.WinRate = float64(stats24h.ProfitableTrades) / float64(stats24h.TotalTrades)
	}

	response := StatisticsResponse{
		Since24h: stats24h,
		AllTime:  statsAllTime,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
