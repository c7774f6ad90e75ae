package trading

import (
	"testing"

	"gotest.tools/assert"
)

func TestOrderRecordOf(t *testing.T) {
	_, ok := orderRecordOf(&OrderField{InstrumentID: "rb2510"})
	assert.Check(t, !ok, "order without sys id")

	rec, ok := orderRecordOf(&OrderField{
		InstrumentID:        "rb2510",
		OrderSysID:          "100003",
		Direction:           SideSell,
		CombOffsetFlag:      OffsetCloseToday,
		LimitPrice:          3150,
		VolumeTotalOriginal: 4,
		VolumeTraded:        1,
		OrderStatus:         OrderStatusPartTradedQueueing,
	})
	assert.Check(t, ok)
	assert.Equal(t, rec.Direction, DirectionLong)
	assert.Equal(t, rec.Volume, -4)
	assert.Equal(t, rec.VolumeTraded, 1)
	assert.Check(t, rec.IsActive)
	assert.Equal(t, rec.Price.String(), "3150")

	rec, _ = orderRecordOf(&OrderField{InstrumentID: "rb2510", OrderSysID: "100004", Direction: SideBuy, VolumeTotalOriginal: 1, OrderStatus: OrderStatusCanceled})
	assert.Equal(t, rec.Direction, DirectionLong)
	assert.Equal(t, rec.Volume, 1)
	assert.Check(t, !rec.IsActive)
}

func TestPositionRecordOf(t *testing.T) {
	_, ok := positionRecordOf(&InvestorPositionField{InstrumentID: "rb2510", PosiDirection: PositionNet, Position: 3})
	assert.Check(t, !ok, "net position")
	_, ok = positionRecordOf(&InvestorPositionField{InstrumentID: "rb2510", PosiDirection: PositionLong})
	assert.Check(t, !ok, "empty position")

	rec, ok := positionRecordOf(&InvestorPositionField{InstrumentID: "rb2510", PosiDirection: PositionShort, Position: 3, UseMargin: 2835, OpenCost: 94500})
	assert.Check(t, ok)
	assert.Equal(t, rec.Direction, DirectionShort)
	assert.Equal(t, rec.Volume, 3)
	assert.Equal(t, rec.Margin.String(), "2835")
}

func TestOrderRef(t *testing.T) {
	assert.Equal(t, formatOrderRef(7), "           7")
	ref, err := parseOrderRef("          12")
	assert.NilError(t, err)
	assert.Equal(t, ref, 12)
	ref, err = parseOrderRef("")
	assert.NilError(t, err)
	assert.Equal(t, ref, -1)
	_, err = parseOrderRef("x1")
	assert.ErrorContains(t, err, "invalid order ref")
}
