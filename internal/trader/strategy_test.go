package trader

import (
	"strings"
	"testing"

	"bitkub-trade-bot-go/internal/bitkub"
	"bitkub-trade-bot-go/internal/config"
	"bitkub-trade-bot-go/internal/database"
	"bitkub-trade-bot-go/internal/indicator"
	"bitkub-trade-bot-go/internal/models"
	"bitkub-trade-bot-go/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// MockRestClient is a mock implementation of the bitkub.RestClientInterface.
type MockRestClient struct {
	mock.Mock
}

func (m *MockRestClient) GetServerTime() (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRestClient) GetLastPrice(symbol string) (float64, error) {
	args := m.Called(symbol)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockRestClient) GetRecentCloses(symbol string, resolutionMin, count int) ([]float64, error) {
	args := m.Called(symbol, resolutionMin, count)
	return args.Get(0).([]float64), args.Error(1)
}

func (m *MockRestClient) GetBalances() (map[string]float64, error) {
	args := m.Called()
	return args.Get(0).(map[string]float64), args.Error(1)
}

func (m *MockRestClient) GetOpenOrders(symbol string) ([]bitkub.OpenOrder, error) {
	args := m.Called(symbol)
	return args.Get(0).([]bitkub.OpenOrder), args.Error(1)
}

func (m *MockRestClient) GetOrderHistory(symbol string, limit int) ([]bitkub.HistoryOrder, error) {
	args := m.Called(symbol, limit)
	return args.Get(0).([]bitkub.HistoryOrder), args.Error(1)
}

func (m *MockRestClient) PlaceOrder(symbol, side string, quantity, price float64) (*bitkub.OrderResult, error) {
	args := m.Called(symbol, side, quantity, price)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bitkub.OrderResult), args.Error(1)
}

func (m *MockRestClient) CancelOrder(symbol, orderID string) error {
	args := m.Called(symbol, orderID)
	return args.Error(0)
}

// recordingNotifier captures notifications for assertions.
type recordingNotifier struct {
	messages []string
}

func (r *recordingNotifier) Notify(message string) {
	r.messages = append(r.messages, message)
}

func (r *recordingNotifier) contains(substr string) bool {
	for _, m := range r.messages {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

// setupTest creates a full test environment with a mock client and in-memory DB.
func setupTest(t *testing.T) (StrategyContext, *MockRestClient, *recordingNotifier, *state.Store) {
	// Use a new, non-shared in-memory database for each test to ensure isolation.
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, database.AutoMigrate(db))

	mockClient := new(MockRestClient)
	notifier := &recordingNotifier{}
	store := state.NewStore(db)

	ctx := StrategyContext{
		Logger:   zap.NewNop(),
		Cfg:      testConfig(),
		Client:   mockClient,
		Notifier: notifier,
		Store:    store,
	}
	return ctx, mockClient, notifier, store
}

func testConfig() *config.Config {
	return &config.Config{
		Trading: config.Trading{
			TickerSymbol:   "THB_BTC",
			TradeSymbol:    "btc_thb",
			BaseAsset:      "BTC",
			QuoteAsset:     "THB",
			Strategy:       "rsi",
			FeeRate:        0.0025,
			TradeAmount:    200,
			RsiResolution:  15,
			RsiLookback:    30,
			RsiBuyLevel:    30,
			TakeProfitPct:  0.03,
			StopLossPct:    0.05,
			SlippagePct:    0.005,
			DustThreshold:  0.0001,
			HistoryLookups: 20,
			Budget:         1000,
			GridLevels:     5,
			GridRange:      0.02,
			StepProfitPct:  0.012,
			MinOrderAmount: 10,
		},
	}
}

// oversoldCloses builds 15 closes ending at last whose RSI is exactly 25:
// seven +1 gains and seven -3 losses give avg gain 0.5, avg loss 1.5.
func oversoldCloses(last float64) []float64 {
	closes := []float64{last + 14}
	for i := 0; i < 7; i++ {
		closes = append(closes, closes[len(closes)-1]+1)
		closes = append(closes, closes[len(closes)-1]-3)
	}
	return closes
}

// risingCloses builds 15 monotonically rising closes ending at last (RSI 100).
func risingCloses(last float64) []float64 {
	closes := make([]float64, 15)
	for i := range closes {
		closes[i] = last - float64(14-i)
	}
	return closes
}

func TestNewStrategy(t *testing.T) {
	testCases := []struct {
		name     string
		expected string
	}{
		{name: "grid", expected: "grid"},
		{name: "rsi", expected: "rsi"},
		{name: "rsi-stateless", expected: "rsi-stateless"},
	}
	for _, tc := range testCases {
		s, err := NewStrategy(tc.name)
		assert.NoError(t, err)
		assert.Equal(t, tc.expected, s.Name())
	}

	_, err := NewStrategy("martingale")
	assert.Error(t, err)
}

func TestDecideRSI(t *testing.T) {
	cfg := testConfig()

	t.Run("BuyWhenOversoldAndFunded", func(t *testing.T) {
		action := decideRSI(models.Position{}, indicator.Snapshot{RSI: 25, Price: 2000000}, 1000, &cfg.Trading)

		assert.Equal(t, ActionBuy, action.Type)
		assert.InDelta(t, 2010000, action.Price, 0.01) // 0.5% slippage headroom
		assert.InDelta(t, 200.0/2010000, action.Quantity, 1e-8)
	})

	t.Run("NoBuyAboveLevel", func(t *testing.T) {
		action := decideRSI(models.Position{}, indicator.Snapshot{RSI: 55, Price: 2000000}, 1000, &cfg.Trading)

		assert.Equal(t, ActionNone, action.Type)
	})

	t.Run("NoBuyWithoutFunds", func(t *testing.T) {
		action := decideRSI(models.Position{}, indicator.Snapshot{RSI: 25, Price: 2000000}, 100, &cfg.Trading)

		assert.Equal(t, ActionNone, action.Type)
	})

	t.Run("SellAtTarget", func(t *testing.T) {
		pos := models.Position{Holding: true, EntryPrice: 2000000, Quantity: 0.0001}
		action := decideRSI(pos, indicator.Snapshot{RSI: 70, Price: 2060000}, 0, &cfg.Trading)

		assert.Equal(t, ActionSell, action.Type)
		assert.Equal(t, 2060000.0, action.Price)
		assert.Equal(t, 0.0001, action.Quantity)
	})

	t.Run("HoldBelowTarget", func(t *testing.T) {
		pos := models.Position{Holding: true, EntryPrice: 2000000, Quantity: 0.0001}
		action := decideRSI(pos, indicator.Snapshot{RSI: 70, Price: 2059999}, 0, &cfg.Trading)

		assert.Equal(t, ActionNone, action.Type)
		assert.Empty(t, action.Warn)
	})

	t.Run("StopLossWarnsWithoutSelling", func(t *testing.T) {
		pos := models.Position{Holding: true, EntryPrice: 2000000, Quantity: 0.0001}
		action := decideRSI(pos, indicator.Snapshot{RSI: 20, Price: 1890000}, 0, &cfg.Trading)

		assert.Equal(t, ActionNone, action.Type)
		assert.NotEmpty(t, action.Warn)
	})
}
