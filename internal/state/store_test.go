package state

import (
	"testing"

	"bitkub-trade-bot-go/internal/database"
	"bitkub-trade-bot-go/internal/models"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupStore(t *testing.T) *Store {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, database.AutoMigrate(db))
	return NewStore(db)
}

func TestLoadPosition_FirstRunDefaults(t *testing.T) {
	store := setupStore(t)

	pos, err := store.LoadPosition()

	assert.NoError(t, err)
	assert.False(t, pos.Holding)
	assert.Equal(t, 0.0, pos.EntryPrice)
	assert.Equal(t, 0.0, pos.Quantity)
}

func TestSavePosition_RoundTrip(t *testing.T) {
	store := setupStore(t)

	pos, err := store.LoadPosition()
	assert.NoError(t, err)

	pos.Holding = true
	pos.EntryPrice = 2010000
	pos.Quantity = 0.0000995
	assert.NoError(t, store.SavePosition(&pos))

	loaded, err := store.LoadPosition()
	assert.NoError(t, err)
	assert.True(t, loaded.Holding)
	assert.Equal(t, 2010000.0, loaded.EntryPrice)
	assert.Equal(t, 0.0000995, loaded.Quantity)

	// Resetting after a sell keeps a single row, not a second one.
	loaded.Holding = false
	loaded.EntryPrice = 0
	loaded.Quantity = 0
	assert.NoError(t, store.SavePosition(&loaded))

	final, err := store.LoadPosition()
	assert.NoError(t, err)
	assert.False(t, final.Holding)
	assert.Equal(t, pos.ID, final.ID)
}

func TestGridOrders_AppendAndRemove(t *testing.T) {
	store := setupStore(t)

	assert.NoError(t, store.AddGridOrder(&models.GridOrder{
		OrderID: "1", Side: "buy", Price: 980000, Amount: 200, PlacedAt: 100,
	}))
	assert.NoError(t, store.AddGridOrder(&models.GridOrder{
		OrderID: "2", Side: "buy", Price: 990000, Amount: 200, PlacedAt: 200,
	}))

	orders, err := store.ListGridOrders()
	assert.NoError(t, err)
	assert.Len(t, orders, 2)
	assert.Equal(t, "1", orders[0].OrderID)

	assert.NoError(t, store.RemoveGridOrder("1"))

	orders, err = store.ListGridOrders()
	assert.NoError(t, err)
	assert.Len(t, orders, 1)
	assert.Equal(t, "2", orders[0].OrderID)
}

func TestRecordTrade(t *testing.T) {
	store := setupStore(t)

	assert.NoError(t, store.RecordTrade(&models.Trade{
		Symbol: "btc_thb", Side: "buy", Price: 2000000, Quantity: 0.0001,
		QuoteQuantity: 200, Timestamp: 1700000000,
	}))

	var count int64
	assert.NoError(t, store.db.Model(&models.Trade{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
