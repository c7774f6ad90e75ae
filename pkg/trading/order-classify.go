package trading

import (
	"github.com/shopspring/decimal"
)

// venueFiveLevelMarket takes market orders as five-level-price orders.
const venueFiveLevelMarket = "CFFEX"

// OrderRequest is a new order in caller terms. A negative Volume closes an
// existing position, zero Price asks for a market order and a non-zero
// MinVolume makes a limit order fill-and-kill.
type OrderRequest struct {
	Code      string
	Direction Direction
	Volume    int
	Price     decimal.Decimal
	MinVolume int
}

type orderKind uint8

const (
	orderKindMarket orderKind = iota
	orderKindLimit
	orderKindFAK
)

var orderKindNames = []string{"market", "limit", "fak"}

func (k orderKind) String() string {
	return orderKindNames[k]
}

// orderInsert is a classified order, in protocol terms.
type orderInsert struct {
	kind            orderKind
	code            string
	exchange        string
	side            Side
	offset          OffsetFlag
	priceType       PriceType
	timeCondition   TimeCondition
	volumeCondition VolumeCondition
	price           decimal.Decimal
	volume          int
	minVolume       int
}

// classifyOrder derives the protocol fields of req. The sign of the volume is
// folded into the offset flag and the side here, once.
func classifyOrder(req OrderRequest, exchange string) (orderInsert, error) {
	if req.Direction != DirectionLong && req.Direction != DirectionShort {
		return orderInsert{}, &ValidationError{Field: "direction", Value: "?", Reason: "expected long or short"}
	}
	if req.Volume == 0 {
		return orderInsert{}, ErrZeroVolume
	}
	if req.Price.IsNegative() {
		return orderInsert{}, ErrInvalidPrice
	}

	ins := orderInsert{
		code:     req.Code,
		exchange: exchange,
		side:     req.Direction.side(),
		offset:   OffsetOpen,
		price:    req.Price,
		volume:   req.Volume,
	}
	if ins.volume < 0 {
		ins.offset = OffsetClose
		ins.volume = -ins.volume
		ins.side = ins.side.flip()
	}

	switch {
	case req.Price.IsZero():
		ins.kind = orderKindMarket
		ins.priceType = PriceTypeAny
		if exchange == venueFiveLevelMarket {
			ins.priceType = PriceTypeFiveLevel
		}
		ins.timeCondition = TimeConditionIOC
		ins.volumeCondition = VolumeConditionAny
	case req.MinVolume == 0:
		ins.kind = orderKindLimit
		ins.priceType = PriceTypeLimit
		ins.timeCondition = TimeConditionGFD
		ins.volumeCondition = VolumeConditionAny
	default:
		minVolume := req.MinVolume
		if minVolume < 0 {
			minVolume = -minVolume
		}
		if minVolume > ins.volume {
			return orderInsert{}, ErrMinVolumeExceedsVolume
		}
		ins.kind = orderKindFAK
		ins.priceType = PriceTypeLimit
		ins.timeCondition = TimeConditionIOC
		ins.volumeCondition = VolumeConditionMin
		ins.minVolume = minVolume
	}
	return ins, nil
}
