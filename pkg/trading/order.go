package trading

import (
	"github.com/shopspring/decimal"
)

// OrderRecord is one order as returned by an order query.
// Volume is negative for an order that closes a position.
type OrderRecord struct {
	ID           OrderID         `json:"id"`
	Code         string          `json:"code"`
	Direction    Direction       `json:"direction"`
	Price        decimal.Decimal `json:"price"`
	Volume       int             `json:"volume"`
	VolumeTraded int             `json:"volume_traded"`
	IsActive     bool            `json:"is_active"`
}

// orderRecordOf normalizes a queried order. Orders the exchange never
// accepted have no sys id and are skipped.
func orderRecordOf(order *OrderField) (OrderRecord, bool) {
	if order.OrderSysID == "" {
		return OrderRecord{}, false
	}
	side, volume := order.Direction, order.VolumeTotalOriginal
	if order.CombOffsetFlag.isClose() {
		side = side.flip()
		volume = -volume
	}
	return OrderRecord{
		ID:           orderIDOf(order),
		Code:         order.InstrumentID,
		Direction:    side.direction(),
		Price:        decimal.NewFromFloat(order.LimitPrice),
		Volume:       volume,
		VolumeTraded: order.VolumeTraded,
		IsActive:     !order.OrderStatus.isFinished(),
	}, true
}

type AccountSnapshot struct {
	Balance   decimal.Decimal `json:"balance"`
	Margin    decimal.Decimal `json:"margin"`
	Available decimal.Decimal `json:"available"`
	Withdraw  decimal.Decimal `json:"withdraw"`
}

func accountSnapshotOf(account *TradingAccountField) AccountSnapshot {
	return AccountSnapshot{
		Balance:   decimal.NewFromFloat(account.Balance),
		Margin:    decimal.NewFromFloat(account.CurrMargin),
		Available: decimal.NewFromFloat(account.Available),
		Withdraw:  decimal.NewFromFloat(account.WithdrawQuota),
	}
}

type PositionRecord struct {
	Code      string          `json:"code"`
	Direction Direction       `json:"direction"`
	Volume    int             `json:"volume"`
	Margin    decimal.Decimal `json:"margin"`
	Cost      decimal.Decimal `json:"cost"`
}

// positionRecordOf skips net and empty positions.
func positionRecordOf(position *InvestorPositionField) (PositionRecord, bool) {
	var direction Direction
	switch position.PosiDirection {
	case PositionLong:
		direction = DirectionLong
	case PositionShort:
		direction = DirectionShort
	default:
		return PositionRecord{}, false
	}
	if position.Position == 0 {
		return PositionRecord{}, false
	}
	return PositionRecord{
		Code:      position.InstrumentID,
		Direction: direction,
		Volume:    position.Position,
		Margin:    decimal.NewFromFloat(position.UseMargin),
		Cost:      decimal.NewFromFloat(position.OpenCost),
	}, true
}
