package trading

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// tradeSession is the trading session: handshake, queries, orders and transfers.
type tradeSession struct {
	*session
	api         TraderAPI
	creds       credentials
	dataDir     string
	now         func() time.Time
	instruments *instrumentDirectory

	// login identity of the current connection, guarded by mx
	frontID   int
	sessionID int
	orderRef  int

	// accumulators of the running query; set by the caller before the
	// request goes out, filled by callbacks
	instrumentRows *records[Instrument]
	orderRows      *records[OrderRecord]
	positionRows   *records[PositionRecord]
	registerRows   *records[TransferRegister]
	bankRows       *records[ContractBankField]
	account        *AccountSnapshot

	registers []TransferRegister
}

func newTradeSession(ctx context.Context, logger *zap.Logger, cfg Config, api TraderAPI) (*tradeSession, error) {
	t := &tradeSession{
		session:     newSession(logger, "td", cfg),
		api:         api,
		creds:       cfg.credentials(),
		dataDir:     cfg.DataDir,
		now:         cfg.Now,
		instruments: newInstrumentDirectory(),
	}
	err := t.start(ctx, "login trading session", func() error {
		return api.Connect(t)
	})
	if err == nil {
		err = t.loadInstruments(ctx)
	}
	if err == nil {
		err = t.loadTransferRegisters(ctx)
	}
	if err != nil {
		if errClose := api.Close(); errClose != nil {
			logger.Error("td: fail close transport", zap.Error(errClose))
		}
		return nil, err
	}
	return t, nil
}

func (t *tradeSession) close() error {
	t.setState(SessionStateConnecting)
	t.abandon(ErrDisconnected)
	return t.api.Close()
}

// loadInstruments uses the cache when it is dated today and rebuilds it otherwise.
func (t *tradeSession) loadInstruments(ctx context.Context) error {
	path := filepath.Join(t.dataDir, instrumentCacheFile)
	today := t.now()
	items, err := loadInstrumentCache(path, today)
	if err == nil {
		t.instruments.replace(items)
		t.logger.Info("td: instruments loaded from cache", zap.Int("count", len(items)), zap.String("path", path))
		return nil
	}
	if err != errCacheStale && !os.IsNotExist(err) {
		t.logger.Warn("td: unreadable instrument cache, rebuilding", zap.String("path", path), zap.Error(err))
	}

	if err = t.acquire(); err != nil {
		return err
	}
	defer t.release()

	rows := &records[Instrument]{}
	t.instrumentRows = rows
	err = t.run(ctx, operation{name: "query instruments", kind: kindQryInstrument, query: true, progress: rows.len}, func(requestID int) int {
		return t.api.ReqQryInstrument(&QryInstrumentField{}, requestID)
	})
	if err != nil {
		return err
	}
	items = make(map[string]Instrument)
	for _, inst := range rows.take() {
		items[inst.Code] = inst
	}
	t.instruments.replace(items)
	t.logger.Info("td: instruments queried", zap.Int("count", len(items)))

	if err = saveInstrumentCache(path, today, items); err != nil {
		t.logger.Error("td: fail save instrument cache", zap.String("path", path), zap.Error(err))
	}
	return nil
}

func (t *tradeSession) getInstrument(code string) (Instrument, error) {
	return t.instruments.get(code)
}

func (t *tradeSession) getAccount(ctx context.Context) (AccountSnapshot, error) {
	if err := t.acquire(); err != nil {
		return AccountSnapshot{}, err
	}
	defer t.release()

	t.account = nil
	err := t.run(ctx, operation{name: "query trading account", kind: kindQryAccount, query: true}, func(requestID int) int {
		return t.api.ReqQryTradingAccount(t.creds.tradingAccountQuery(), requestID)
	})
	if err != nil {
		return AccountSnapshot{}, err
	}
	if t.account == nil {
		return AccountSnapshot{}, errors.New("query trading account: empty response")
	}
	return *t.account, nil
}

func (t *tradeSession) getOrders(ctx context.Context) (map[string]OrderRecord, error) {
	if err := t.acquire(); err != nil {
		return nil, err
	}
	defer t.release()

	rows := &records[OrderRecord]{}
	t.orderRows = rows
	err := t.run(ctx, operation{name: "query orders", kind: kindQryOrder, query: true, progress: rows.len}, func(requestID int) int {
		return t.api.ReqQryOrder(t.creds.orderQuery(), requestID)
	})
	if err != nil {
		return nil, err
	}
	orders := make(map[string]OrderRecord)
	for _, order := range rows.take() {
		id := order.ID.String()
		if _, ok := orders[id]; ok {
			violation("OnRspQryOrder", "order %s returned twice", id)
		}
		orders[id] = order
	}
	return orders, nil
}

func (t *tradeSession) getPositions(ctx context.Context) ([]PositionRecord, error) {
	if err := t.acquire(); err != nil {
		return nil, err
	}
	defer t.release()

	rows := &records[PositionRecord]{}
	t.positionRows = rows
	err := t.run(ctx, operation{name: "query positions", kind: kindQryPosition, query: true, progress: rows.len}, func(requestID int) int {
		return t.api.ReqQryInvestorPosition(t.creds.positionQuery(), requestID)
	})
	if err != nil {
		return nil, err
	}
	positions := rows.take()
	if positions == nil {
		positions = make([]PositionRecord, 0)
	}
	return positions, nil
}

// placeOrder submits req and waits until its action resolves.
func (t *tradeSession) placeOrder(ctx context.Context, req OrderRequest) (*orderAction, error) {
	exchange, err := t.instruments.exchangeOf(req.Code)
	if err != nil {
		return nil, err
	}
	ins, err := classifyOrder(req, exchange)
	if err != nil {
		return nil, err
	}
	if err = t.acquire(); err != nil {
		return nil, err
	}
	defer t.release()

	t.mx.Lock()
	t.orderRef++
	ref, frontID, sessionID := t.orderRef, t.frontID, t.sessionID
	t.mx.Unlock()

	action := newOrderInsertAction(frontID, sessionID, ref, ins.timeCondition)
	field := t.creds.inputOrderField(ins, ref)
	t.logger.Info("td: insert order",
		zap.String("code", ins.code),
		zap.Stringer("kind", ins.kind),
		zap.Stringer("side", ins.side),
		zap.Stringer("offset", ins.offset),
		zap.Int("volume", ins.volume),
		zap.String("price", ins.price.String()),
		zap.Int("orderRef", ref))
	err = t.run(ctx, operation{name: "insert order", kind: kindOrderInsert, action: action}, func(requestID int) int {
		return t.api.ReqOrderInsert(field, requestID)
	})
	if err != nil {
		return nil, err
	}
	return action, nil
}

func (t *tradeSession) deleteOrder(ctx context.Context, orderID string) error {
	id, err := OrderIDStrToType(orderID)
	if err != nil {
		return err
	}
	exchange, err := t.instruments.exchangeOf(id.Code)
	if err != nil {
		return &ValidationError{Field: "order id", Value: orderID, Reason: err.Error()}
	}
	if err = t.acquire(); err != nil {
		return err
	}
	defer t.release()

	field := t.creds.orderActionField(id, exchange)
	err = t.run(ctx, operation{name: "cancel order", kind: kindOrderAction, action: newOrderCancelAction(id)}, func(requestID int) int {
		return t.api.ReqOrderAction(field, requestID)
	})
	if err != nil {
		return err
	}
	t.logger.Info("td: order canceled", zap.Stringer("orderId", id))
	return nil
}

func (t *tradeSession) OnFrontConnected() {
	t.logger.Info("td: front connected")
	t.restart(SessionStateAuthenticating)
	t.sendHandshake(func(requestID int) int {
		return t.api.ReqAuthenticate(t.creds.authenticateField(), requestID)
	})
}

func (t *tradeSession) OnFrontDisconnected(reason int) {
	t.disconnected(reason)
}

func (t *tradeSession) OnRspAuthenticate(info *RspInfoField, requestID int, isLast bool) {
	if !t.handshakeStep("OnRspAuthenticate", SessionStateAuthenticating, requestID, isLast, info) {
		return
	}
	t.logger.Info("td: authenticated")
	t.setState(SessionStateLoggingIn)
	t.sendHandshake(func(requestID int) int {
		return t.api.ReqUserLogin(t.creds.userLoginField(), requestID)
	})
}

func (t *tradeSession) OnRspUserLogin(rsp *RspUserLoginField, info *RspInfoField, requestID int, isLast bool) {
	if !t.handshakeStep("OnRspUserLogin", SessionStateLoggingIn, requestID, isLast, info) {
		return
	}
	if rsp == nil {
		violation("OnRspUserLogin", "login response %d without payload", requestID)
	}
	maxRef, err := parseOrderRef(rsp.MaxOrderRef)
	if err != nil {
		t.logger.Warn("td: ignore max order ref", zap.Error(err))
	}
	t.mx.Lock()
	t.frontID = rsp.FrontID
	t.sessionID = rsp.SessionID
	if maxRef > t.orderRef {
		t.orderRef = maxRef
	}
	t.mx.Unlock()
	t.logger.Info("td: logged in",
		zap.String("tradingDay", rsp.TradingDay),
		zap.Int("frontId", rsp.FrontID),
		zap.Int("sessionId", rsp.SessionID))

	t.setState(SessionStateConfirmingSettlement)
	t.sendHandshake(func(requestID int) int {
		return t.api.ReqSettlementInfoConfirm(t.creds.settlementConfirmField(), requestID)
	})
}

func (t *tradeSession) OnRspSettlementInfoConfirm(info *RspInfoField, requestID int, isLast bool) {
	if !t.handshakeStep("OnRspSettlementInfoConfirm", SessionStateConfirmingSettlement, requestID, isLast, info) {
		return
	}
	t.logger.Info("td: settlement confirmed")
	t.ready()
}

func (t *tradeSession) OnRspQryInstrument(rsp *InstrumentField, info *RspInfoField, requestID int, isLast bool) {
	op := t.accept(kindQryInstrument, requestID, info)
	if op == nil {
		return
	}
	if rsp != nil {
		t.instrumentRows.add(instrumentOf(rsp))
	}
	if isLast {
		t.complete(op, nil)
	}
}

func (t *tradeSession) OnRspQryTradingAccount(rsp *TradingAccountField, info *RspInfoField, requestID int, isLast bool) {
	op := t.accept(kindQryAccount, requestID, info)
	if op == nil {
		return
	}
	if rsp != nil && t.account == nil {
		account := accountSnapshotOf(rsp)
		t.account = &account
	}
	if isLast {
		t.complete(op, nil)
	}
}

func (t *tradeSession) OnRspQryOrder(rsp *OrderField, info *RspInfoField, requestID int, isLast bool) {
	op := t.accept(kindQryOrder, requestID, info)
	if op == nil {
		return
	}
	if rsp != nil {
		if order, ok := orderRecordOf(rsp); ok {
			t.orderRows.add(order)
		}
	}
	if isLast {
		t.complete(op, nil)
	}
}

func (t *tradeSession) OnRspQryInvestorPosition(rsp *InvestorPositionField, info *RspInfoField, requestID int, isLast bool) {
	op := t.accept(kindQryPosition, requestID, info)
	if op == nil {
		return
	}
	if rsp != nil {
		if position, ok := positionRecordOf(rsp); ok {
			t.positionRows.add(position)
		}
	}
	if isLast {
		t.complete(op, nil)
	}
}

func (t *tradeSession) OnRspOrderInsert(info *RspInfoField, requestID int, isLast bool) {
	if op := t.accept(kindOrderInsert, requestID, info); op != nil {
		violation("OnRspOrderInsert", "order insert response %d without error", requestID)
	}
}

func (t *tradeSession) OnErrRtnOrderInsert(info *RspInfoField) {
	t.rejectPending(kindOrderInsert, "OnErrRtnOrderInsert", info)
}

func (t *tradeSession) OnRspOrderAction(info *RspInfoField, requestID int, isLast bool) {
	if op := t.accept(kindOrderAction, requestID, info); op != nil {
		violation("OnRspOrderAction", "order action response %d without error", requestID)
	}
}

func (t *tradeSession) OnErrRtnOrderAction(info *RspInfoField) {
	t.rejectPending(kindOrderAction, "OnErrRtnOrderAction", info)
}

// rejectPending settles the pending operation of kind with the error of a
// push that carries no request id.
func (t *tradeSession) rejectPending(kind callbackKind, callback string, info *RspInfoField) {
	err := remoteError(info)
	if err == nil {
		violation(callback, "error push without error")
	}
	t.mx.Lock()
	defer t.mx.Unlock()
	op := t.pendingOf(kind)
	if op == nil {
		staleCallbacks.WithLabelValues(t.name, callback).Inc()
		t.logger.Debug("td: drop stale error push", zap.String("callback", callback), zap.Error(err))
		return
	}
	t.settle(op, err)
}

// OnRtnOrder matches every order push against the pending order action.
// Pushes arriving while no action waits are ignored.
func (t *tradeSession) OnRtnOrder(order *OrderField) {
	if order == nil {
		return
	}
	t.mx.Lock()
	defer t.mx.Unlock()
	op := t.pending
	if op == nil || op.settled || op.action == nil {
		return
	}
	resolved, err := op.action.resolve(order)
	if !resolved {
		return
	}
	t.logger.Info("td: order action resolved",
		zap.String("operation", op.name),
		zap.String("code", order.InstrumentID),
		zap.String("sysId", order.OrderSysID),
		zap.Stringer("status", order.OrderStatus),
		zap.Int("traded", order.VolumeTraded),
		zap.Error(err))
	t.settle(op, err)
}
