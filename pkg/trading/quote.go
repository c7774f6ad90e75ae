package trading

import "github.com/shopspring/decimal"

// invalidDouble is the native marker for a price that has no value.
const invalidDouble = 1.797e+308

// Level is one depth level of the order book.
type Level struct {
	Price  decimal.NullDecimal `json:"price"`
	Volume int                 `json:"volume"`
}

// Quote is a depth market data tick. Prices without a value are null.
type Quote struct {
	Code            string              `json:"code"`
	TradingDay      string              `json:"trading_day"`
	UpdateTime      string              `json:"update_time"`
	UpdateMillisec  int                 `json:"update_millisec"`
	Price           decimal.NullDecimal `json:"price"`
	Open            decimal.NullDecimal `json:"open"`
	Close           decimal.NullDecimal `json:"close"`
	Highest         decimal.NullDecimal `json:"highest"`
	Lowest          decimal.NullDecimal `json:"lowest"`
	UpperLimit      decimal.NullDecimal `json:"upper_limit"`
	LowerLimit      decimal.NullDecimal `json:"lower_limit"`
	Settlement      decimal.NullDecimal `json:"settlement"`
	Volume          int                 `json:"volume"`
	Turnover        decimal.Decimal     `json:"turnover"`
	OpenInterest    int64               `json:"open_interest"`
	PreClose        decimal.NullDecimal `json:"pre_close"`
	PreSettlement   decimal.NullDecimal `json:"pre_settlement"`
	PreOpenInterest int64               `json:"pre_open_interest"`
	Asks            [5]Level            `json:"asks"`
	Bids            [5]Level            `json:"bids"`
}

// QuoteReceiver consumes ticks on the market data callback goroutine.
type QuoteReceiver func(Quote)

func nullPrice(v float64) decimal.NullDecimal {
	if v > invalidDouble {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromFloat(v))
}

func level(price float64, volume int) Level {
	return Level{Price: nullPrice(price), Volume: volume}
}

func quoteOf(data *DepthMarketDataField) Quote {
	return Quote{
		Code:            data.InstrumentID,
		TradingDay:      data.TradingDay,
		UpdateTime:      data.UpdateTime,
		UpdateMillisec:  data.UpdateMillisec,
		Price:           nullPrice(data.LastPrice),
		Open:            nullPrice(data.OpenPrice),
		Close:           nullPrice(data.ClosePrice),
		Highest:         nullPrice(data.HighestPrice),
		Lowest:          nullPrice(data.LowestPrice),
		UpperLimit:      nullPrice(data.UpperLimitPrice),
		LowerLimit:      nullPrice(data.LowerLimitPrice),
		Settlement:      nullPrice(data.SettlementPrice),
		Volume:          data.Volume,
		Turnover:        decimal.NewFromFloat(data.Turnover),
		OpenInterest:    int64(data.OpenInterest),
		PreClose:        nullPrice(data.PreClosePrice),
		PreSettlement:   nullPrice(data.PreSettlementPrice),
		PreOpenInterest: int64(data.PreOpenInterest),
		Asks: [5]Level{
			level(data.AskPrice1, data.AskVolume1),
			level(data.AskPrice2, data.AskVolume2),
			level(data.AskPrice3, data.AskVolume3),
			level(data.AskPrice4, data.AskVolume4),
			level(data.AskPrice5, data.AskVolume5),
		},
		Bids: [5]Level{
			level(data.BidPrice1, data.BidVolume1),
			level(data.BidPrice2, data.BidVolume2),
			level(data.BidPrice3, data.BidVolume3),
			level(data.BidPrice4, data.BidVolume4),
			level(data.BidPrice5, data.BidVolume5),
		},
	}
}
