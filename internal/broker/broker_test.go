package broker

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	apperrors "backchain/internal/errors"
	"backchain/internal/models"
)

var testDate = time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

func TestBuyThenSell(t *testing.T) {
	b := New(1000, zerolog.Nop())

	if err := b.Buy("X", 10, 50, testDate, time.Time{}); err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if b.Cash() != 500 {
		t.Errorf("cash after buy = %v, want 500", b.Cash())
	}
	pos, ok := b.Position("X")
	if !ok || pos.Quantity != 10 || pos.EntryPrice != 50 {
		t.Errorf("position = %+v, want qty 10 at 50", pos)
	}

	if err := b.Sell("X", 5, 60, testDate); err != nil {
		t.Fatalf("Sell: %v", err)
	}
	if b.Cash() != 800 {
		t.Errorf("cash after sell = %v, want 800", b.Cash())
	}
	pos, _ = b.Position("X")
	if pos.Quantity != 5 {
		t.Errorf("quantity after sell = %d, want 5", pos.Quantity)
	}
}

func TestBuyAveragesEntryPrice(t *testing.T) {
	b := New(10000, zerolog.Nop())
	b.Buy("X", 10, 100, testDate, time.Time{})
	b.Buy("X", 10, 200, testDate, time.Time{})

	pos, _ := b.Position("X")
	if pos.Quantity != 20 || pos.EntryPrice != 150 {
		t.Errorf("position = %+v, want qty 20 at avg 150", pos)
	}
}

func TestBuyInsufficientFundsIsNoOp(t *testing.T) {
	b := New(100, zerolog.Nop())

	err := b.Buy("X", 10, 50, testDate, time.Time{})
	if !apperrors.Is(err, apperrors.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if b.Cash() != 100 {
		t.Errorf("cash mutated on failed buy: %v", b.Cash())
	}
	if _, ok := b.Position("X"); ok {
		t.Error("position created on failed buy")
	}
	if len(b.TransactionLog()) != 0 {
		t.Error("failed buy must not be journaled")
	}
}

func TestSellMoreThanHeldIsNoOp(t *testing.T) {
	b := New(1000, zerolog.Nop())
	b.Buy("X", 5, 50, testDate, time.Time{})

	err := b.Sell("X", 10, 50, testDate)
	if !apperrors.Is(err, apperrors.ErrInsufficientHoldings) {
		t.Fatalf("expected ErrInsufficientHoldings, got %v", err)
	}
	pos, _ := b.Position("X")
	if pos.Quantity != 5 {
		t.Errorf("quantity mutated on failed sell: %d", pos.Quantity)
	}
}

func TestSellToZeroRemovesPosition(t *testing.T) {
	b := New(1000, zerolog.Nop())
	b.Buy("X", 5, 50, testDate, time.Time{})
	b.Sell("X", 5, 50, testDate)

	if _, ok := b.Position("X"); ok {
		t.Error("position must be removed at zero quantity")
	}
}

func TestValueExcludesUnpricedPositions(t *testing.T) {
	// Positions with no quote are excluded from Value rather than valued at
	// zero or at last entry price. This mirrors the reference behavior and
	// silently understates value for untracked instruments; this test pins
	// the behavior so any change to it is deliberate.
	b := New(1000, zerolog.Nop())
	b.Buy("PRICED", 2, 100, testDate, time.Time{})
	b.Buy("DARK", 2, 100, testDate, time.Time{})

	got := b.Value(map[string]float64{"PRICED": 110})
	want := 600.0 + 220.0 // cash after both buys + priced position only
	if got != want {
		t.Errorf("Value = %v, want %v", got, want)
	}
}

func TestTransactionLogOrder(t *testing.T) {
	b := New(1000, zerolog.Nop())
	b.Buy("X", 2, 100, testDate, time.Time{})
	b.Sell("X", 1, 110, testDate.AddDate(0, 0, 1))

	log := b.TransactionLog()
	if len(log) != 2 {
		t.Fatalf("log length = %d, want 2", len(log))
	}
	if log[0].Action != models.ActionBuy || log[1].Action != models.ActionSell {
		t.Errorf("log actions = %v, %v", log[0].Action, log[1].Action)
	}
	if log[0].Cash != 800 || log[1].Cash != 910 {
		t.Errorf("journaled cash = %v, %v, want 800, 910", log[0].Cash, log[1].Cash)
	}
}

func TestRebalanceMovesTowardTargets(t *testing.T) {
	b := New(1000, zerolog.Nop())
	prices := map[string]float64{"A": 10, "B": 20}

	b.Rebalance(models.Weights{"A": 0.5, "B": 0.5}, prices, nil, testDate)

	posA, _ := b.Position("A")
	posB, _ := b.Position("B")
	valueA := float64(posA.Quantity) * 10
	valueB := float64(posB.Quantity) * 20

	if math.Abs(valueA-500) > 20 || math.Abs(valueB-500) > 20 {
		t.Errorf("post-rebalance values = %v, %v, want ~500 each", valueA, valueB)
	}
}

func TestRebalanceSellsBeforeBuys(t *testing.T) {
	b := New(0, zerolog.Nop())
	prices := map[string]float64{"A": 10, "B": 10}

	// Seed an all-A portfolio with no cash; moving to all-B is only
	// possible if the A sale settles before the B purchase.
	b.cash = 1000
	b.Buy("A", 100, 10, testDate, time.Time{})

	b.Rebalance(models.Weights{"A": 0, "B": 1}, prices, nil, testDate)

	if _, ok := b.Position("A"); ok {
		t.Error("A should be fully sold")
	}
	posB, _ := b.Position("B")
	if posB.Quantity != 100 {
		t.Errorf("B quantity = %d, want 100", posB.Quantity)
	}
}

func TestRebalancePartialFillOnCashShortfall(t *testing.T) {
	b := New(1100, zerolog.Nop())
	prices := map[string]float64{"A": 10, "B": 100}

	// B is held but not part of the target, so its value inflates the
	// total the A target is computed from: the full A buy needs 1100 but
	// only 100 cash is free. The buy degrades to the largest affordable
	// whole-unit quantity.
	b.Buy("B", 10, 100, testDate, time.Time{})
	b.Rebalance(models.Weights{"A": 1}, prices, nil, testDate)

	pos, _ := b.Position("A")
	if pos.Quantity != 10 {
		t.Errorf("quantity = %d, want 10 (largest affordable)", pos.Quantity)
	}
	if b.Cash() != 0 {
		t.Errorf("cash = %v, want 0", b.Cash())
	}
}

func TestRebalanceRecordsContractExpiry(t *testing.T) {
	b := New(1000, zerolog.Nop())
	expiry := time.Date(2024, time.April, 12, 0, 0, 0, 0, time.UTC)

	b.Rebalance(models.Weights{"CL=F": 1},
		map[string]float64{"CL=F": 80},
		map[string]time.Time{"CL=F": expiry},
		testDate)

	pos, ok := b.Position("CL=F")
	if !ok {
		t.Fatal("expected a futures position")
	}
	if !pos.Expiry.Equal(expiry) {
		t.Errorf("position expiry = %v, want %v", pos.Expiry, expiry)
	}
}

func TestRebalanceSkipsUnpricedInstrument(t *testing.T) {
	b := New(1000, zerolog.Nop())
	b.Rebalance(models.Weights{"GHOST": 1}, map[string]float64{}, nil, testDate)

	if len(b.TransactionLog()) != 0 {
		t.Error("no trades expected for unpriced instrument")
	}
	if b.Cash() != 1000 {
		t.Errorf("cash = %v, want untouched 1000", b.Cash())
	}
}

func TestSellExpiredContracts(t *testing.T) {
	b := New(10000, zerolog.Nop())
	expiry := testDate.AddDate(0, 0, 10)
	b.Buy("CL=F", 10, 80, testDate, expiry)
	b.Buy("AAPL", 10, 100, testDate, time.Time{})

	prices := map[string]float64{"CL=F": 85, "AAPL": 100}
	b.SellExpiredContracts(expiry, prices)

	if _, ok := b.Position("CL=F"); ok {
		t.Error("expired futures position must be liquidated")
	}
	if _, ok := b.Position("AAPL"); !ok {
		t.Error("equity position must survive the expiry sweep")
	}

	log := b.TransactionLog()
	last := log[len(log)-1]
	if last.Action != models.ActionSell || last.Ticker != "CL=F" || last.Price != 85 {
		t.Errorf("forced sale record = %+v", last)
	}
}

func TestSellExpiredContractsKeepsUnpriced(t *testing.T) {
	b := New(10000, zerolog.Nop())
	expiry := testDate.AddDate(0, 0, 10)
	b.Buy("NG=F", 5, 3, testDate, expiry)

	b.SellExpiredContracts(expiry, map[string]float64{})
	if _, ok := b.Position("NG=F"); !ok {
		t.Error("position without a quote must be kept for a later retry")
	}
}

func TestBuyAndSellOption(t *testing.T) {
	b := New(1000, zerolog.Nop())
	contract := models.OptionContract{
		Type:           models.Call,
		Underlying:     100,
		Strike:         100,
		Rate:           0.05,
		DividendYield:  0,
		DaysToMaturity: 90,
		Volatility:     0.2,
	}

	if err := b.BuyOption("CALL_X_100", contract, 3, testDate); err != nil {
		t.Fatalf("BuyOption: %v", err)
	}
	pos, ok := b.OptionPosition("CALL_X_100")
	if !ok || pos.Quantity != 3 {
		t.Fatalf("option position = %+v", pos)
	}
	if pos.EntryPremium <= 0 {
		t.Errorf("entry premium = %v, want > 0", pos.EntryPremium)
	}

	if err := b.SellOption("CALL_X_100", 4, testDate); !apperrors.Is(err, apperrors.ErrInsufficientHoldings) {
		t.Fatalf("overselling options: expected ErrInsufficientHoldings, got %v", err)
	}

	if err := b.SellOption("CALL_X_100", 3, testDate); err != nil {
		t.Fatalf("SellOption: %v", err)
	}
	if _, ok := b.OptionPosition("CALL_X_100"); ok {
		t.Error("option position must be removed at zero quantity")
	}
	// Same pricing inputs on both legs: cash returns to its initial value.
	if math.Abs(b.Cash()-1000) > 1e-9 {
		t.Errorf("cash after round trip = %v, want 1000", b.Cash())
	}
}

func TestBuyOptionInvalidContract(t *testing.T) {
	b := New(1000, zerolog.Nop())
	bad := models.OptionContract{Type: "Swaption", Underlying: 100, Strike: 100, DaysToMaturity: 30, Volatility: 0.2}

	var verr *apperrors.ValidationError
	if err := b.BuyOption("BAD", bad, 1, testDate); !apperrors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestSweepExpiredOptions(t *testing.T) {
	b := New(10000, zerolog.Nop())
	contract := models.OptionContract{
		Type: models.Put, Underlying: 100, Strike: 90,
		Rate: 0.05, DaysToMaturity: 30, Volatility: 0.3,
	}
	b.BuyOption("PUT_X_90", contract, 1, testDate)

	b.SweepExpiredOptions(testDate.AddDate(0, 0, 29))
	if _, ok := b.OptionPosition("PUT_X_90"); !ok {
		t.Fatal("option swept before maturity")
	}

	b.SweepExpiredOptions(testDate.AddDate(0, 0, 30))
	if _, ok := b.OptionPosition("PUT_X_90"); ok {
		t.Fatal("expired option must be removed")
	}
}
