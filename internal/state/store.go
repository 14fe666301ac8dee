package state

import (
	"errors"
	"fmt"

	"bitkub-trade-bot-go/internal/models"
	"gorm.io/gorm"
)

// Store is the single-writer persistence layer for the bot's memory: the
// RSI position row, the grid order records and the executed-trade history.
// It is read once at the start of a cycle and written incrementally after
// each confirmed mutation, so a crash mid-cycle never loses confirmed state.
type Store struct {
	db *gorm.DB
}

// NewStore wraps an open gorm connection.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// LoadPosition returns the persisted position, or a zero-value (not holding)
// position on first run.
func (s *Store) LoadPosition() (models.Position, error) {
	var pos models.Position
	err := s.db.First(&pos).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Position{}, nil
	}
	if err != nil {
		return models.Position{}, fmt.Errorf("could not load position: %w", err)
	}
	return pos, nil
}

// SavePosition writes the position row, creating it on first use.
func (s *Store) SavePosition(pos *models.Position) error {
	if err := s.db.Save(pos).Error; err != nil {
		return fmt.Errorf("could not save position: %w", err)
	}
	return nil
}

// ListGridOrders returns every order record the grid strategy believes is
// still open, oldest first.
func (s *Store) ListGridOrders() ([]models.GridOrder, error) {
	var orders []models.GridOrder
	if err := s.db.Order("placed_at asc").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("could not list grid orders: %w", err)
	}
	return orders, nil
}

// AddGridOrder appends a record for a successfully placed order.
func (s *Store) AddGridOrder(order *models.GridOrder) error {
	if err := s.db.Create(order).Error; err != nil {
		return fmt.Errorf("could not record grid order %s: %w", order.OrderID, err)
	}
	return nil
}

// RemoveGridOrder deletes the record for an order that no longer exists on
// the exchange's open-order list.
func (s *Store) RemoveGridOrder(orderID string) error {
	if err := s.db.Where("order_id = ?", orderID).Delete(&models.GridOrder{}).Error; err != nil {
		return fmt.Errorf("could not remove grid order %s: %w", orderID, err)
	}
	return nil
}

// RecordTrade appends an executed-order row to the history read by the
// dashboard. Failures are reported but callers treat them as non-fatal:
// the position row, not the history, is the state of record.
func (s *Store) RecordTrade(trade *models.Trade) error {
	if err := s.db.Create(trade).Error; err != nil {
		return fmt.Errorf("could not record trade: %w", err)
	}
	return nil
}
