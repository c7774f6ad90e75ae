package trading

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// simMarketData is the market data side of a SimVenue.
type simMarketData struct {
	v *SimVenue
}

func (m *simMarketData) Connect(spi MarketDataSpi) error {
	v := m.v
	v.mx.Lock()
	if v.md != nil {
		v.mx.Unlock()
		return errors.New("sim: market data already connected")
	}
	q := newSimQueue()
	v.md, v.mdSpi = q, spi
	v.mx.Unlock()
	v.logger.Info("sim: market data connected")
	q.push(spi.OnFrontConnected)
	return nil
}

func (m *simMarketData) ReqUserLogin(req *ReqUserLoginField, requestID int) int {
	v := m.v
	v.mx.Lock()
	defer v.mx.Unlock()
	if v.md == nil {
		return int(ReturnNotConnected)
	}
	f := v.enter(SimMdLogin)
	if f.ret != 0 || f.stall {
		return int(f.ret)
	}
	spi, info := v.mdSpi, f.info
	rsp := RspUserLoginField{TradingDay: v.now().Format("20060102"), BrokerID: req.BrokerID, UserID: req.UserID}
	v.md.push(func() { spi.OnRspUserLogin(&rsp, info, requestID, true) })
	return 0
}

func (m *simMarketData) SubscribeMarketData(codes []string) int {
	return m.v.subscription(SimSubscribe, codes, true)
}

func (m *simMarketData) UnSubscribeMarketData(codes []string) int {
	return m.v.subscription(SimUnsubscribe, codes, false)
}

// subscription answers one response per code, the last one flagged last.
// Unknown codes are answered with an error.
func (v *SimVenue) subscription(key string, codes []string, subscribe bool) int {
	v.mx.Lock()
	defer v.mx.Unlock()
	if v.md == nil {
		return int(ReturnNotConnected)
	}
	f := v.enter(key)
	if f.ret != 0 || f.stall {
		return int(f.ret)
	}
	spi := v.mdSpi
	for i, code := range codes {
		field, isLast := SpecificInstrumentField{InstrumentID: code}, i == len(codes)-1
		info := f.info
		if _, ok := v.instruments[code]; !ok && info == nil {
			info = &RspInfoField{ErrorID: simErrInstrumentNotFound, ErrorMsg: "instrument not found"}
		}
		if info == nil {
			if subscribe {
				v.subscribed[code] = true
			} else {
				delete(v.subscribed, code)
			}
		}
		if subscribe {
			v.md.push(func() { spi.OnRspSubMarketData(&field, info, 0, isLast) })
		} else {
			v.md.push(func() { spi.OnRspUnSubMarketData(&field, info, 0, isLast) })
		}
	}
	v.logger.Info("sim: subscription", zap.Bool("subscribe", subscribe), zap.Strings("codes", codes))
	return 0
}

func (m *simMarketData) Close() error {
	v := m.v
	v.mx.Lock()
	q := v.md
	v.md, v.mdSpi = nil, nil
	v.subscribed = make(map[string]bool)
	v.mx.Unlock()
	if q != nil {
		q.close()
		v.logger.Info("sim: market data closed")
	}
	return nil
}
