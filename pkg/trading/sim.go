package trading

import (
	"context"
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Fault keys name a request of one side of the venue, e.g. "td.ReqOrderInsert".
const (
	SimMdLogin            = "md.ReqUserLogin"
	SimSubscribe          = "md.SubscribeMarketData"
	SimUnsubscribe        = "md.UnSubscribeMarketData"
	SimAuthenticate       = "td.ReqAuthenticate"
	SimTdLogin            = "td.ReqUserLogin"
	SimSettlementConfirm  = "td.ReqSettlementInfoConfirm"
	SimQryInstrument      = "td.ReqQryInstrument"
	SimQryTradingAccount  = "td.ReqQryTradingAccount"
	SimQryOrder           = "td.ReqQryOrder"
	SimQryPosition        = "td.ReqQryInvestorPosition"
	SimQryContractBank    = "td.ReqQryContractBank"
	SimQryAccountregister = "td.ReqQryAccountregister"
	SimOrderInsert        = "td.ReqOrderInsert"
	SimOrderAction        = "td.ReqOrderAction"
	SimFromBankToFuture   = "td.ReqFromBankToFutureByFuture"
	SimFromFutureToBank   = "td.ReqFromFutureToBankByFuture"
)

// Native error ids the venue answers with.
const (
	simErrInstrumentNotFound = 16
	simErrOrderNotFound      = 25
	simErrOrderFinished      = 26
	simErrCloseExceeds       = 30
	simErrNoRegister         = 101
	simErrInsufficientFunds  = 102
)

const simDisconnectReason = 0x1001

// simNoValue is what the native API sends for a price that has no value.
const simNoValue = math.MaxFloat64

// simQueue delivers callbacks of one session one at a time, in push order.
// It never blocks the pusher.
type simQueue struct {
	mx     sync.Mutex
	events []func()
	wake   chan struct{}
	done   chan struct{}
	closed bool
}

func newSimQueue() *simQueue {
	q := &simQueue{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *simQueue) push(events ...func()) {
	q.mx.Lock()
	if q.closed {
		q.mx.Unlock()
		return
	}
	q.events = append(q.events, events...)
	q.mx.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *simQueue) run() {
	for {
		select {
		case <-q.wake:
		case <-q.done:
			return
		}
		for {
			q.mx.Lock()
			if q.closed || len(q.events) == 0 {
				q.mx.Unlock()
				break
			}
			event := q.events[0]
			q.events = q.events[1:]
			q.mx.Unlock()
			event()
		}
	}
}

func (q *simQueue) close() {
	q.mx.Lock()
	defer q.mx.Unlock()
	if !q.closed {
		q.closed = true
		close(q.done)
	}
}

type simFault struct {
	ret   ReturnCode
	info  *RspInfoField
	stall bool
	// pages answered before a query goes silent, 0 answers all
	pages int
}

type simInstrument struct {
	field InstrumentField
	price float64
}

type simPositionKey struct {
	code      string
	direction PositionDirection
}

// SimVenue is an in-process venue serving both native APIs. It answers
// requests with deterministic callbacks and can inject faults, so whole
// client flows run without a broker.
type SimVenue struct {
	logger *zap.Logger
	now    func() time.Time

	mx          sync.Mutex
	md          *simQueue
	td          *simQueue
	mdSpi       MarketDataSpi
	tdSpi       TraderSpi
	frontID     int
	sessionID   int
	maxOrderRef int
	nextSysID   int
	instruments map[string]*simInstrument
	account     TradingAccountField
	orders      []*OrderField
	positions   map[simPositionKey]*InvestorPositionField
	banks       []ContractBankField
	registers   []AccountregisterField
	subscribed  map[string]bool
	depth       int
	pageDelay   time.Duration
	faults      map[string][]simFault
	requests    map[string]int
}

func NewSimVenue(logger *zap.Logger) *SimVenue {
	v := &SimVenue{
		logger:      logger,
		now:         time.Now,
		frontID:     1,
		instruments: make(map[string]*simInstrument),
		positions:   make(map[simPositionKey]*InvestorPositionField),
		subscribed:  make(map[string]bool),
		depth:       100,
		faults:      make(map[string][]simFault),
		requests:    make(map[string]int),
	}
	logger.Info("sim: created")
	return v
}

// MarketData returns the market data side of the venue.
func (v *SimVenue) MarketData() MarketDataAPI {
	return &simMarketData{v}
}

// Trader returns the trading side of the venue.
func (v *SimVenue) Trader() TraderAPI {
	return &simTrader{v}
}

// AddInstrument lists an instrument traded at price.
func (v *SimVenue) AddInstrument(field InstrumentField, price float64) {
	v.mx.Lock()
	defer v.mx.Unlock()
	v.instruments[field.InstrumentID] = &simInstrument{field: field, price: price}
}

func (v *SimVenue) SetAccount(account TradingAccountField) {
	v.mx.Lock()
	defer v.mx.Unlock()
	v.account = account
}

func (v *SimVenue) SetPosition(position InvestorPositionField) {
	v.mx.Lock()
	defer v.mx.Unlock()
	p := position
	v.positions[simPositionKey{position.InstrumentID, position.PosiDirection}] = &p
}

func (v *SimVenue) AddBank(bank ContractBankField) {
	v.mx.Lock()
	defer v.mx.Unlock()
	v.banks = append(v.banks, bank)
}

func (v *SimVenue) AddRegister(register AccountregisterField) {
	v.mx.Lock()
	defer v.mx.Unlock()
	v.registers = append(v.registers, register)
}

// SetBookDepth limits the volume an immediate order can trade.
func (v *SimVenue) SetBookDepth(depth int) {
	v.mx.Lock()
	defer v.mx.Unlock()
	v.depth = depth
}

// SetPageDelay spaces the pages of every query response.
func (v *SimVenue) SetPageDelay(delay time.Duration) {
	v.mx.Lock()
	defer v.mx.Unlock()
	v.pageDelay = delay
}

// SetClock dates trading days and expiries.
func (v *SimVenue) SetClock(now func() time.Time) {
	v.mx.Lock()
	defer v.mx.Unlock()
	v.now = now
}

// InjectReturnCode makes the next call of key return code immediately.
func (v *SimVenue) InjectReturnCode(key string, code ReturnCode) {
	v.addFault(key, simFault{ret: code})
}

// InjectRspError makes the next call of key answer with an error info.
func (v *SimVenue) InjectRspError(key string, id int, msg string) {
	v.addFault(key, simFault{info: &RspInfoField{ErrorID: id, ErrorMsg: msg}})
}

// Stall makes the next call of key go unanswered.
func (v *SimVenue) Stall(key string) {
	v.addFault(key, simFault{stall: true})
}

// StallAfter makes the next query of key answer its first n pages and then
// go silent.
func (v *SimVenue) StallAfter(key string, n int) {
	v.addFault(key, simFault{pages: n})
}

func (v *SimVenue) addFault(key string, f simFault) {
	v.mx.Lock()
	defer v.mx.Unlock()
	v.faults[key] = append(v.faults[key], f)
}

// Requests counts the calls of key that reached the venue.
func (v *SimVenue) Requests(key string) int {
	v.mx.Lock()
	defer v.mx.Unlock()
	return v.requests[key]
}

// enter counts a call of key and pops its next fault. It must be called with mx held.
func (v *SimVenue) enter(key string) simFault {
	v.requests[key]++
	list := v.faults[key]
	if len(list) == 0 {
		return simFault{}
	}
	if len(list) == 1 {
		delete(v.faults, key)
	} else {
		v.faults[key] = list[1:]
	}
	v.logger.Info("sim: inject fault", zap.String("request", key), zap.Int("ret", int(list[0].ret)), zap.Bool("stall", list[0].stall), zap.Int("pages", list[0].pages))
	return list[0]
}

// ReconnectMarketData drops and restores the market data front.
func (v *SimVenue) ReconnectMarketData() {
	v.mx.Lock()
	q, spi := v.md, v.mdSpi
	v.mx.Unlock()
	if q == nil {
		return
	}
	q.push(func() { spi.OnFrontDisconnected(simDisconnectReason) }, spi.OnFrontConnected)
}

// ReconnectTrader drops and restores the trading front. The next login gets a new session id.
func (v *SimVenue) ReconnectTrader() {
	v.mx.Lock()
	q, spi := v.td, v.tdSpi
	v.mx.Unlock()
	if q == nil {
		return
	}
	q.push(func() { spi.OnFrontDisconnected(simDisconnectReason) }, spi.OnFrontConnected)
}

// PushOrder delivers an order push as is.
func (v *SimVenue) PushOrder(order OrderField) {
	v.mx.Lock()
	q, spi := v.td, v.tdSpi
	v.mx.Unlock()
	if q != nil {
		q.push(func() { spi.OnRtnOrder(&order) })
	}
}

// PushQuote delivers a depth market data push as is.
func (v *SimVenue) PushQuote(data DepthMarketDataField) {
	v.mx.Lock()
	q, spi := v.md, v.mdSpi
	v.mx.Unlock()
	if q != nil {
		q.push(func() { spi.OnRtnDepthMarketData(&data) })
	}
}

// RunTicker pushes a quote of every subscribed code each interval until ctx is done.
// Prices walk one tick up and down.
func (v *SimVenue) RunTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	step := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		step++
		v.mx.Lock()
		q, spi := v.md, v.mdSpi
		quotes := make([]DepthMarketDataField, 0, len(v.subscribed))
		for _, code := range v.sortedSubscriptions() {
			inst := v.instruments[code]
			if step%2 == 0 {
				inst.price -= inst.field.PriceTick
			} else {
				inst.price += inst.field.PriceTick
			}
			quotes = append(quotes, v.depthOf(inst, step))
		}
		v.mx.Unlock()
		if q == nil {
			continue
		}
		for i := range quotes {
			data := quotes[i]
			q.push(func() { spi.OnRtnDepthMarketData(&data) })
		}
	}
}

func (v *SimVenue) sortedSubscriptions() []string {
	codes := make([]string, 0, len(v.subscribed))
	for code := range v.subscribed {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// depthOf must be called with mx held.
func (v *SimVenue) depthOf(inst *simInstrument, step int) DepthMarketDataField {
	tick, price := inst.field.PriceTick, inst.price
	now := v.now()
	return DepthMarketDataField{
		TradingDay:         now.Format("20060102"),
		InstrumentID:       inst.field.InstrumentID,
		ExchangeID:         inst.field.ExchangeID,
		LastPrice:          price,
		PreSettlementPrice: inst.field.StrikePrice,
		PreClosePrice:      price,
		OpenPrice:          price,
		HighestPrice:       price + tick,
		LowestPrice:        price - tick,
		Volume:             step,
		Turnover:           price * float64(step) * float64(inst.field.VolumeMultiple),
		OpenInterest:       1000,
		ClosePrice:         simNoValue,
		SettlementPrice:    simNoValue,
		UpperLimitPrice:    price * 1.1,
		LowerLimitPrice:    price * 0.9,
		UpdateTime:         now.Format("15:04:05"),
		BidPrice1:          price - tick,
		BidVolume1:         v.depth,
		AskPrice1:          price + tick,
		AskVolume1:         v.depth,
		BidPrice2:          simNoValue,
		AskPrice2:          simNoValue,
		BidPrice3:          simNoValue,
		AskPrice3:          simNoValue,
		BidPrice4:          simNoValue,
		AskPrice4:          simNoValue,
		BidPrice5:          simNoValue,
		AskPrice5:          simNoValue,
	}
}

// pages spreads rows over callbacks spaced by the page delay. Without rows a
// single empty last response is sent. A positive keep sends only the first
// keep rows.
func pages[T any](delay time.Duration, keep int, rows []T, send func(row *T, isLast bool)) []func() {
	if len(rows) == 0 {
		return []func(){func() { send(nil, true) }}
	}
	events := make([]func(), 0, len(rows))
	for i := range rows {
		if keep > 0 && i == keep {
			break
		}
		row, isLast, first := rows[i], i == len(rows)-1, i == 0
		events = append(events, func() {
			if !first && delay > 0 {
				time.Sleep(delay)
			}
			send(&row, isLast)
		})
	}
	return events
}

// SetupFixtures lists a few instruments, an account with a position, one
// bank register and a resting order.
func (v *SimVenue) SetupFixtures() {
	for _, inst := range []struct {
		field InstrumentField
		price float64
	}{
		{InstrumentField{InstrumentID: "rb2510", InstrumentName: "rebar 2510", ExchangeID: "SHFE", VolumeMultiple: 10, PriceTick: 1, ExpireDate: "20251015", IsTrading: 1, LongMarginRatio: 0.07, ShortMarginRatio: 0.07, StrikePrice: 0}, 3150},
		{InstrumentField{InstrumentID: "au2512", InstrumentName: "gold 2512", ExchangeID: "SHFE", VolumeMultiple: 1000, PriceTick: 0.02, ExpireDate: "20251215", IsTrading: 1, LongMarginRatio: 0.08, ShortMarginRatio: 0.08}, 780.5},
		{InstrumentField{InstrumentID: "IF2512", InstrumentName: "csi 300 2512", ExchangeID: "CFFEX", VolumeMultiple: 300, PriceTick: 0.2, ExpireDate: "20251219", IsTrading: 1, LongMarginRatio: 0.12, ShortMarginRatio: 0.12}, 3900},
		{InstrumentField{InstrumentID: "IO2512-C-4000", InstrumentName: "csi 300 call 4000", ExchangeID: "CFFEX", VolumeMultiple: 100, PriceTick: 0.2, ExpireDate: "20251219", IsTrading: 1, OptionsType: OptionCall, StrikePrice: 4000, LongMarginRatio: simNoValue, ShortMarginRatio: simNoValue}, 52.4},
	} {
		v.AddInstrument(inst.field, inst.price)
	}
	v.SetAccount(TradingAccountField{AccountID: "sim", Balance: 1000000, CurrMargin: 22050, Available: 977950, WithdrawQuota: 977950})
	v.SetPosition(InvestorPositionField{InstrumentID: "rb2510", PosiDirection: PositionLong, Position: 10, UseMargin: 22050, OpenCost: 315000})
	v.AddBank(ContractBankField{BankID: "1", BankName: "ICBC"})
	v.AddRegister(AccountregisterField{AccountID: "sim", BankID: "1", BankBranchID: "0000", BankAccount: "6222000000000001", CurrencyID: currencyCNY, OpenOrDestroy: RegisterStateOpen})

	v.mx.Lock()
	defer v.mx.Unlock()
	v.nextSysID++
	v.orders = append(v.orders, &OrderField{
		InstrumentID:        "au2512",
		ExchangeID:          "SHFE",
		OrderRef:            formatOrderRef(0),
		FrontID:             v.frontID,
		OrderSysID:          simSysID(v.nextSysID),
		Direction:           SideBuy,
		CombOffsetFlag:      OffsetOpen,
		OrderPriceType:      PriceTypeLimit,
		TimeCondition:       TimeConditionGFD,
		VolumeCondition:     VolumeConditionAny,
		LimitPrice:          770,
		VolumeTotalOriginal: 2,
		MinVolume:           1,
		OrderStatus:         OrderStatusNoTradeQueueing,
		OrderSubmitStatus:   SubmitStatusAccepted,
	})
	v.logger.Info("sim: setup fixtures", zap.Int("instruments", len(v.instruments)))
}

func simSysID(n int) string {
	return strconv.Itoa(100000 + n)
}
