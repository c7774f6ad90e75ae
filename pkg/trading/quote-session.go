package trading

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// quoteSession is the market data session: login, subscriptions and the tick stream.
type quoteSession struct {
	*session
	api        MarketDataAPI
	creds      credentials
	receiverMx sync.RWMutex
	receiver   QuoteReceiver
}

func newQuoteSession(ctx context.Context, logger *zap.Logger, cfg Config, api MarketDataAPI) (*quoteSession, error) {
	q := &quoteSession{
		session: newSession(logger, "md", cfg),
		api:     api,
		creds:   cfg.credentials(),
	}
	err := q.start(ctx, "login market data session", func() error {
		return api.Connect(q)
	})
	if err != nil {
		if errClose := api.Close(); errClose != nil {
			logger.Error("md: fail close transport", zap.Error(errClose))
		}
		return nil, err
	}
	return q, nil
}

// setReceiver installs r and returns the receiver it replaces.
func (q *quoteSession) setReceiver(r QuoteReceiver) QuoteReceiver {
	q.receiverMx.Lock()
	defer q.receiverMx.Unlock()
	old := q.receiver
	q.receiver = r
	return old
}

func (q *quoteSession) subscribe(ctx context.Context, codes []string) error {
	if len(codes) == 0 {
		return nil
	}
	if err := q.acquire(); err != nil {
		return err
	}
	defer q.release()
	return q.run(ctx, operation{name: "subscribe market data", kind: kindSubscribe, idless: true, codes: codes}, func(int) int {
		return q.api.SubscribeMarketData(codes)
	})
}

func (q *quoteSession) unsubscribe(ctx context.Context, codes []string) error {
	if len(codes) == 0 {
		return nil
	}
	if err := q.acquire(); err != nil {
		return err
	}
	defer q.release()
	return q.run(ctx, operation{name: "unsubscribe market data", kind: kindUnsubscribe, idless: true, codes: codes}, func(int) int {
		return q.api.UnSubscribeMarketData(codes)
	})
}

func (q *quoteSession) close() error {
	q.setState(SessionStateConnecting)
	q.abandon(ErrDisconnected)
	return q.api.Close()
}

func (q *quoteSession) OnFrontConnected() {
	q.logger.Info("md: front connected")
	q.restart(SessionStateLoggingIn)
	q.sendHandshake(func(requestID int) int {
		return q.api.ReqUserLogin(q.creds.userLoginField(), requestID)
	})
}

func (q *quoteSession) OnFrontDisconnected(reason int) {
	q.disconnected(reason)
}

func (q *quoteSession) OnRspUserLogin(rsp *RspUserLoginField, info *RspInfoField, requestID int, isLast bool) {
	if !q.handshakeStep("OnRspUserLogin", SessionStateLoggingIn, requestID, isLast, info) {
		return
	}
	var tradingDay string
	if rsp != nil {
		tradingDay = rsp.TradingDay
	}
	q.logger.Info("md: logged in", zap.String("tradingDay", tradingDay))
	q.ready()
}

// OnRspSubMarketData settles a subscription once every requested code is
// answered. The isLast flag is not used: a late response of an abandoned
// subscription may carry it too.
func (q *quoteSession) OnRspSubMarketData(rsp *SpecificInstrumentField, info *RspInfoField, requestID int, isLast bool) {
	q.subscribed(kindSubscribe, "md: subscribed", rsp, info, requestID)
}

func (q *quoteSession) OnRspUnSubMarketData(rsp *SpecificInstrumentField, info *RspInfoField, requestID int, isLast bool) {
	q.subscribed(kindUnsubscribe, "md: unsubscribed", rsp, info, requestID)
}

func (q *quoteSession) subscribed(kind callbackKind, msg string, rsp *SpecificInstrumentField, info *RspInfoField, requestID int) {
	var code string
	if rsp != nil {
		code = rsp.InstrumentID
	}
	op, done := q.acceptCode(kind, requestID, code, info)
	if op == nil {
		return
	}
	q.logger.Info(msg, zap.String("code", code))
	if done {
		q.complete(op, nil)
	}
}

func (q *quoteSession) OnRtnDepthMarketData(data *DepthMarketDataField) {
	if data == nil {
		return
	}
	quoteTicks.Inc()
	q.receiverMx.RLock()
	receiver := q.receiver
	q.receiverMx.RUnlock()
	if receiver == nil {
		return
	}
	receiver(quoteOf(data))
}
