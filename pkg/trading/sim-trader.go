package trading

import (
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// simTrader is the trading side of a SimVenue.
type simTrader struct {
	v *SimVenue
}

func (t *simTrader) Connect(spi TraderSpi) error {
	v := t.v
	v.mx.Lock()
	if v.td != nil {
		v.mx.Unlock()
		return errors.New("sim: trader already connected")
	}
	q := newSimQueue()
	v.td, v.tdSpi = q, spi
	v.mx.Unlock()
	v.logger.Info("sim: trader connected")
	q.push(spi.OnFrontConnected)
	return nil
}

func (t *simTrader) Close() error {
	v := t.v
	v.mx.Lock()
	q := v.td
	v.td, v.tdSpi = nil, nil
	v.mx.Unlock()
	if q != nil {
		q.close()
		v.logger.Info("sim: trader closed")
	}
	return nil
}

// begin enters request key on the trading side. It returns false with the
// immediate return code when no callback must follow. It must be called
// with mx held.
func (v *SimVenue) begin(key string) (simFault, int, bool) {
	if v.td == nil {
		return simFault{}, int(ReturnNotConnected), false
	}
	f := v.enter(key)
	if f.ret != 0 || f.stall {
		return f, int(f.ret), false
	}
	return f, 0, true
}

func (t *simTrader) ReqAuthenticate(req *ReqAuthenticateField, requestID int) int {
	v := t.v
	v.mx.Lock()
	defer v.mx.Unlock()
	f, ret, ok := v.begin(SimAuthenticate)
	if !ok {
		return ret
	}
	spi := v.tdSpi
	v.td.push(func() { spi.OnRspAuthenticate(f.info, requestID, true) })
	return 0
}

// ReqUserLogin opens a new session id on every login.
func (t *simTrader) ReqUserLogin(req *ReqUserLoginField, requestID int) int {
	v := t.v
	v.mx.Lock()
	defer v.mx.Unlock()
	f, ret, ok := v.begin(SimTdLogin)
	if !ok {
		return ret
	}
	var rsp *RspUserLoginField
	if f.info == nil {
		v.sessionID++
		rsp = &RspUserLoginField{
			TradingDay:  v.now().Format("20060102"),
			BrokerID:    req.BrokerID,
			UserID:      req.UserID,
			FrontID:     v.frontID,
			SessionID:   v.sessionID,
			MaxOrderRef: formatOrderRef(v.maxOrderRef),
		}
	}
	spi := v.tdSpi
	v.td.push(func() { spi.OnRspUserLogin(rsp, f.info, requestID, true) })
	return 0
}

func (t *simTrader) ReqSettlementInfoConfirm(req *SettlementInfoConfirmField, requestID int) int {
	v := t.v
	v.mx.Lock()
	defer v.mx.Unlock()
	f, ret, ok := v.begin(SimSettlementConfirm)
	if !ok {
		return ret
	}
	spi := v.tdSpi
	v.td.push(func() { spi.OnRspSettlementInfoConfirm(f.info, requestID, true) })
	return 0
}

func (t *simTrader) ReqQryInstrument(req *QryInstrumentField, requestID int) int {
	v := t.v
	v.mx.Lock()
	defer v.mx.Unlock()
	f, ret, ok := v.begin(SimQryInstrument)
	if !ok {
		return ret
	}
	spi := v.tdSpi
	if f.info != nil {
		v.td.push(func() { spi.OnRspQryInstrument(nil, f.info, requestID, true) })
		return 0
	}
	codes := make([]string, 0, len(v.instruments))
	for code := range v.instruments {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	rows := make([]InstrumentField, 0, len(codes))
	for _, code := range codes {
		rows = append(rows, v.instruments[code].field)
	}
	v.td.push(pages(v.pageDelay, f.pages, rows, func(row *InstrumentField, isLast bool) {
		spi.OnRspQryInstrument(row, nil, requestID, isLast)
	})...)
	return 0
}

func (t *simTrader) ReqQryTradingAccount(req *QryTradingAccountField, requestID int) int {
	v := t.v
	v.mx.Lock()
	defer v.mx.Unlock()
	f, ret, ok := v.begin(SimQryTradingAccount)
	if !ok {
		return ret
	}
	spi, account := v.tdSpi, v.account
	if f.info != nil {
		v.td.push(func() { spi.OnRspQryTradingAccount(nil, f.info, requestID, true) })
		return 0
	}
	v.td.push(func() { spi.OnRspQryTradingAccount(&account, nil, requestID, true) })
	return 0
}

func (t *simTrader) ReqQryOrder(req *QryOrderField, requestID int) int {
	v := t.v
	v.mx.Lock()
	defer v.mx.Unlock()
	f, ret, ok := v.begin(SimQryOrder)
	if !ok {
		return ret
	}
	spi := v.tdSpi
	if f.info != nil {
		v.td.push(func() { spi.OnRspQryOrder(nil, f.info, requestID, true) })
		return 0
	}
	rows := make([]OrderField, 0, len(v.orders))
	for _, order := range v.orders {
		rows = append(rows, *order)
	}
	v.td.push(pages(v.pageDelay, f.pages, rows, func(row *OrderField, isLast bool) {
		spi.OnRspQryOrder(row, nil, requestID, isLast)
	})...)
	return 0
}

func (t *simTrader) ReqQryInvestorPosition(req *QryInvestorPositionField, requestID int) int {
	v := t.v
	v.mx.Lock()
	defer v.mx.Unlock()
	f, ret, ok := v.begin(SimQryPosition)
	if !ok {
		return ret
	}
	spi := v.tdSpi
	if f.info != nil {
		v.td.push(func() { spi.OnRspQryInvestorPosition(nil, f.info, requestID, true) })
		return 0
	}
	rows := make([]InvestorPositionField, 0, len(v.positions))
	for _, position := range v.positions {
		rows = append(rows, *position)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].InstrumentID != rows[j].InstrumentID {
			return rows[i].InstrumentID < rows[j].InstrumentID
		}
		return rows[i].PosiDirection < rows[j].PosiDirection
	})
	v.td.push(pages(v.pageDelay, f.pages, rows, func(row *InvestorPositionField, isLast bool) {
		spi.OnRspQryInvestorPosition(row, nil, requestID, isLast)
	})...)
	return 0
}

func (t *simTrader) ReqQryContractBank(req *QryContractBankField, requestID int) int {
	v := t.v
	v.mx.Lock()
	defer v.mx.Unlock()
	f, ret, ok := v.begin(SimQryContractBank)
	if !ok {
		return ret
	}
	spi := v.tdSpi
	if f.info != nil {
		v.td.push(func() { spi.OnRspQryContractBank(nil, f.info, requestID, true) })
		return 0
	}
	rows := append([]ContractBankField(nil), v.banks...)
	v.td.push(pages(v.pageDelay, f.pages, rows, func(row *ContractBankField, isLast bool) {
		spi.OnRspQryContractBank(row, nil, requestID, isLast)
	})...)
	return 0
}

func (t *simTrader) ReqQryAccountregister(req *QryAccountregisterField, requestID int) int {
	v := t.v
	v.mx.Lock()
	defer v.mx.Unlock()
	f, ret, ok := v.begin(SimQryAccountregister)
	if !ok {
		return ret
	}
	spi := v.tdSpi
	if f.info != nil {
		v.td.push(func() { spi.OnRspQryAccountregister(nil, f.info, requestID, true) })
		return 0
	}
	rows := append([]AccountregisterField(nil), v.registers...)
	v.td.push(pages(v.pageDelay, f.pages, rows, func(row *AccountregisterField, isLast bool) {
		spi.OnRspQryAccountregister(row, nil, requestID, isLast)
	})...)
	return 0
}

func orderPush(spi TraderSpi, order OrderField) func() {
	return func() { spi.OnRtnOrder(&order) }
}

func positionSide(side Side) PositionDirection {
	if side == SideSell {
		return PositionShort
	}
	return PositionLong
}

// ReqOrderInsert books the order and answers with the push sequence of the
// native API: submitted, accepted, then for immediate orders the fill.
func (t *simTrader) ReqOrderInsert(req *InputOrderField, requestID int) int {
	v := t.v
	v.mx.Lock()
	defer v.mx.Unlock()
	f, ret, ok := v.begin(SimOrderInsert)
	if !ok {
		return ret
	}
	spi := v.tdSpi
	reject := func(info *RspInfoField) int {
		v.logger.Info("sim: reject order", zap.String("code", req.InstrumentID), zap.String("reason", info.ErrorMsg))
		v.td.push(func() { spi.OnRspOrderInsert(info, requestID, true) }, func() { spi.OnErrRtnOrderInsert(info) })
		return 0
	}
	if f.info != nil {
		return reject(f.info)
	}
	inst, ok := v.instruments[req.InstrumentID]
	if !ok {
		return reject(&RspInfoField{ErrorID: simErrInstrumentNotFound, ErrorMsg: "instrument not found"})
	}
	if req.CombOffsetFlag.isClose() {
		held := v.positions[simPositionKey{req.InstrumentID, positionSide(req.Direction.flip())}]
		if held == nil || held.Position < req.VolumeTotalOriginal {
			return reject(&RspInfoField{ErrorID: simErrCloseExceeds, ErrorMsg: "close volume exceeds position"})
		}
	}
	if ref, err := parseOrderRef(req.OrderRef); err == nil && ref > v.maxOrderRef {
		v.maxOrderRef = ref
	}

	order := &OrderField{
		BrokerID:            req.BrokerID,
		InvestorID:          req.InvestorID,
		InstrumentID:        req.InstrumentID,
		ExchangeID:          inst.field.ExchangeID,
		OrderRef:            req.OrderRef,
		FrontID:             v.frontID,
		SessionID:           v.sessionID,
		Direction:           req.Direction,
		CombOffsetFlag:      req.CombOffsetFlag,
		OrderPriceType:      req.OrderPriceType,
		TimeCondition:       req.TimeCondition,
		VolumeCondition:     req.VolumeCondition,
		LimitPrice:          req.LimitPrice,
		VolumeTotalOriginal: req.VolumeTotalOriginal,
		MinVolume:           req.MinVolume,
		OrderStatus:         OrderStatusUnknown,
		OrderSubmitStatus:   SubmitStatusInsertSubmitted,
	}
	v.orders = append(v.orders, order)
	events := []func(){orderPush(spi, *order)}

	if req.OrderPriceType == PriceTypeLimit && (req.LimitPrice > inst.price*1.1 || req.LimitPrice < inst.price*0.9) {
		order.OrderStatus = OrderStatusCanceled
		order.OrderSubmitStatus = SubmitStatusInsertRejected
		order.StatusMsg = "price out of daily limits"
		v.td.push(append(events, orderPush(spi, *order))...)
		return 0
	}

	v.nextSysID++
	order.OrderSysID = simSysID(v.nextSysID)
	order.OrderStatus = OrderStatusNoTradeQueueing
	order.OrderSubmitStatus = SubmitStatusAccepted
	order.StatusMsg = "accepted"
	events = append(events, orderPush(spi, *order))

	if order.TimeCondition == TimeConditionIOC {
		fill := order.VolumeTotalOriginal
		if fill > v.depth {
			fill = v.depth
		}
		switch {
		case order.VolumeCondition == VolumeConditionMin && fill < order.MinVolume:
			fill = 0
		case order.VolumeCondition == VolumeConditionComplete && fill < order.VolumeTotalOriginal:
			fill = 0
		}
		if fill > 0 && fill < order.VolumeTotalOriginal {
			order.VolumeTraded = fill
			order.OrderStatus = OrderStatusPartTradedQueueing
			events = append(events, orderPush(spi, *order))
		}
		order.VolumeTraded = fill
		if fill == order.VolumeTotalOriginal {
			order.OrderStatus = OrderStatusAllTraded
			order.StatusMsg = "all traded"
		} else {
			order.OrderStatus = OrderStatusCanceled
			order.StatusMsg = "canceled"
		}
		events = append(events, orderPush(spi, *order))
		v.applyFill(order, inst, fill)
	}
	v.logger.Info("sim: order booked",
		zap.String("code", order.InstrumentID),
		zap.String("sysId", order.OrderSysID),
		zap.Stringer("status", order.OrderStatus),
		zap.Int("traded", order.VolumeTraded))
	v.td.push(events...)
	return 0
}

// applyFill moves positions by a fill. It must be called with mx held.
func (v *SimVenue) applyFill(order *OrderField, inst *simInstrument, volume int) {
	if volume == 0 {
		return
	}
	if order.CombOffsetFlag.isClose() {
		key := simPositionKey{order.InstrumentID, positionSide(order.Direction.flip())}
		if held := v.positions[key]; held != nil {
			held.Position -= volume
		}
		return
	}
	key := simPositionKey{order.InstrumentID, positionSide(order.Direction)}
	held := v.positions[key]
	if held == nil {
		held = &InvestorPositionField{InstrumentID: order.InstrumentID, PosiDirection: key.direction}
		v.positions[key] = held
	}
	cost := inst.price * float64(volume) * float64(inst.field.VolumeMultiple)
	held.Position += volume
	held.OpenCost += cost
	held.UseMargin += cost * inst.field.LongMarginRatio
}

func (t *simTrader) ReqOrderAction(req *InputOrderActionField, requestID int) int {
	v := t.v
	v.mx.Lock()
	defer v.mx.Unlock()
	f, ret, ok := v.begin(SimOrderAction)
	if !ok {
		return ret
	}
	spi := v.tdSpi
	reject := func(info *RspInfoField) int {
		v.td.push(func() { spi.OnRspOrderAction(info, requestID, true) }, func() { spi.OnErrRtnOrderAction(info) })
		return 0
	}
	if f.info != nil {
		return reject(f.info)
	}
	var target *OrderField
	for _, order := range v.orders {
		if order.OrderSysID == req.OrderSysID && order.InstrumentID == req.InstrumentID {
			target = order
			break
		}
	}
	if target == nil {
		return reject(&RspInfoField{ErrorID: simErrOrderNotFound, ErrorMsg: "order not found"})
	}
	if target.OrderStatus.isFinished() {
		return reject(&RspInfoField{ErrorID: simErrOrderFinished, ErrorMsg: "order already finished"})
	}
	target.OrderSubmitStatus = SubmitStatusCancelSubmitted
	events := []func(){orderPush(spi, *target)}
	target.OrderStatus = OrderStatusCanceled
	target.StatusMsg = "canceled"
	events = append(events, orderPush(spi, *target))
	v.logger.Info("sim: order canceled", zap.String("code", target.InstrumentID), zap.String("sysId", target.OrderSysID))
	v.td.push(events...)
	return 0
}

func (t *simTrader) ReqFromBankToFutureByFuture(req *ReqTransferField, requestID int) int {
	spi := func(info *RspInfoField, rsp *RspTransferField) {
		s := t.v.spiOf()
		if s == nil {
			return
		}
		if rsp == nil {
			s.OnRspFromBankToFutureByFuture(info, requestID, true)
			return
		}
		s.OnRtnFromBankToFutureByFuture(rsp)
	}
	return t.v.transfer(SimFromBankToFuture, req, false, spi)
}

func (t *simTrader) ReqFromFutureToBankByFuture(req *ReqTransferField, requestID int) int {
	spi := func(info *RspInfoField, rsp *RspTransferField) {
		s := t.v.spiOf()
		if s == nil {
			return
		}
		if rsp == nil {
			s.OnRspFromFutureToBankByFuture(info, requestID, true)
			return
		}
		s.OnRtnFromFutureToBankByFuture(rsp)
	}
	return t.v.transfer(SimFromFutureToBank, req, true, spi)
}

func (v *SimVenue) spiOf() TraderSpi {
	v.mx.Lock()
	defer v.mx.Unlock()
	return v.tdSpi
}

// transfer answers a successful response followed by the push carrying the
// bank outcome. deliver gets a nil rsp for the response.
func (v *SimVenue) transfer(key string, req *ReqTransferField, toBank bool, deliver func(info *RspInfoField, rsp *RspTransferField)) int {
	v.mx.Lock()
	defer v.mx.Unlock()
	f, ret, ok := v.begin(key)
	if !ok {
		return ret
	}
	if f.info != nil {
		v.td.push(func() { deliver(f.info, nil) })
		return 0
	}
	registered := false
	for _, reg := range v.registers {
		if reg.BankAccount == req.BankAccount && reg.BankID == req.BankID && reg.OpenOrDestroy == RegisterStateOpen {
			registered = true
			break
		}
	}
	if !registered {
		info := &RspInfoField{ErrorID: simErrNoRegister, ErrorMsg: "bank account not registered"}
		v.td.push(func() { deliver(info, nil) })
		return 0
	}
	rsp := RspTransferField{BankID: req.BankID, BankAccount: req.BankAccount, AccountID: req.AccountID, TradeAmount: req.TradeAmount}
	switch {
	case toBank && req.TradeAmount > v.account.WithdrawQuota:
		rsp.ErrorID = simErrInsufficientFunds
		rsp.ErrorMsg = "insufficient withdraw quota"
	case toBank:
		v.account.Balance -= req.TradeAmount
		v.account.Available -= req.TradeAmount
		v.account.WithdrawQuota -= req.TradeAmount
	default:
		v.account.Balance += req.TradeAmount
		v.account.Available += req.TradeAmount
		v.account.WithdrawQuota += req.TradeAmount
	}
	v.logger.Info("sim: transfer", zap.Bool("toBank", toBank), zap.Float64("amount", req.TradeAmount), zap.Int("errorId", rsp.ErrorID))
	v.td.push(func() { deliver(nil, nil) }, func() { deliver(nil, &rsp) })
	return 0
}
