package trading

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gotest.tools/assert"
)

var simToday = time.Date(2025, 10, 15, 9, 0, 0, 0, time.Local)

func simConfig(dataDir string) Config {
	return Config{
		BrokerID:      "9999",
		AppID:         "client_astra_1.0",
		AuthCode:      "0000000000000000",
		UserID:        "000001",
		Password:      "secret",
		Timeout:       500 * time.Millisecond,
		QueryInterval: -1,
		DataDir:       dataDir,
		Now:           func() time.Time { return simToday },
	}
}

func startSimClient(t *testing.T) (*SimVenue, *Client) {
	t.Helper()
	return startSimClientWith(t, simConfig(t.TempDir()))
}

func startSimClientWith(t *testing.T, cfg Config) (*SimVenue, *Client) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	venue := NewSimVenue(logger)
	venue.SetupFixtures()
	venue.SetClock(func() time.Time { return simToday })
	client, err := NewClient(context.Background(), logger, cfg, venue.MarketData(), venue.Trader())
	assert.NilError(t, err)
	t.Cleanup(func() {
		assert.NilError(t, client.Close())
	})
	return venue, client
}

func waitReady(t *testing.T, c *Client) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		md, td := c.State()
		if md == SessionStateReady && td == SessionStateReady {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("client not ready in time")
}

func TestClient_Startup(t *testing.T) {
	venue, client := startSimClient(t)

	md, td := client.State()
	assert.Equal(t, md, SessionStateReady)
	assert.Equal(t, td, SessionStateReady)
	assert.Equal(t, venue.Requests(SimAuthenticate), 1)
	assert.Equal(t, venue.Requests(SimSettlementConfirm), 1)
	assert.Equal(t, venue.Requests(SimQryInstrument), 1)

	inst, err := client.GetInstrument(context.Background(), "IO2512-C-4000")
	assert.NilError(t, err)
	assert.Equal(t, inst.Exchange, "CFFEX")
	assert.Equal(t, inst.OptionType, "call")
	assert.Equal(t, inst.StrikePrice.Decimal.String(), "4000")
	assert.Check(t, !inst.LongMarginRatio.Valid)

	_, err = client.GetInstrument(context.Background(), "zz9999")
	var unknown *UnknownInstrumentError
	assert.Check(t, errors.As(err, &unknown))
}

func TestClient_InstrumentCache(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	dataDir := t.TempDir()

	first := NewSimVenue(logger)
	first.SetupFixtures()
	client, err := NewClient(context.Background(), logger, simConfig(dataDir), first.MarketData(), first.Trader())
	assert.NilError(t, err)
	assert.NilError(t, client.Close())
	assert.Equal(t, first.Requests(SimQryInstrument), 1)

	second := NewSimVenue(logger)
	second.SetupFixtures()
	client, err = NewClient(context.Background(), logger, simConfig(dataDir), second.MarketData(), second.Trader())
	assert.NilError(t, err)
	assert.Equal(t, second.Requests(SimQryInstrument), 0)
	inst, err := client.GetInstrument(context.Background(), "rb2510")
	assert.NilError(t, err)
	assert.Equal(t, inst.Multiple, 10)
	assert.NilError(t, client.Close())

	tomorrow := simConfig(dataDir)
	tomorrow.Now = func() time.Time { return simToday.AddDate(0, 0, 1) }
	third := NewSimVenue(logger)
	third.SetupFixtures()
	client, err = NewClient(context.Background(), logger, tomorrow, third.MarketData(), third.Trader())
	assert.NilError(t, err)
	assert.Equal(t, third.Requests(SimQryInstrument), 1)
	assert.NilError(t, client.Close())
}

func TestClient_HandshakeFailure(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	venue := NewSimVenue(logger)
	venue.SetupFixtures()
	venue.InjectRspError(SimAuthenticate, 63, "invalid auth code")

	_, err := NewClient(context.Background(), logger, simConfig(t.TempDir()), venue.MarketData(), venue.Trader())
	assert.ErrorContains(t, err, "remote error 63: invalid auth code")

	venue = NewSimVenue(logger)
	venue.InjectReturnCode(SimMdLogin, ReturnNotConnected)
	_, err = NewClient(context.Background(), logger, simConfig(t.TempDir()), venue.MarketData(), venue.Trader())
	assert.ErrorContains(t, err, "fail start market data session")
}

func TestClient_Quotes(t *testing.T) {
	venue, client := startSimClient(t)

	quotes := make(chan Quote, 10)
	assert.Check(t, client.SetReceiver(func(q Quote) { quotes <- q }) == nil)

	assert.NilError(t, client.Subscribe(context.Background(), []string{"rb2510", "au2512"}))
	assert.Equal(t, venue.Requests(SimSubscribe), 1)

	err := client.Subscribe(context.Background(), []string{"rb2510", "xx"})
	assert.ErrorContains(t, err, "instrument <xx> does not exist")
	assert.Equal(t, venue.Requests(SimSubscribe), 1)

	venue.PushQuote(DepthMarketDataField{InstrumentID: "rb2510", LastPrice: 3151, ClosePrice: simNoValue})
	select {
	case q := <-quotes:
		assert.Equal(t, q.Code, "rb2510")
		assert.Equal(t, q.Price.Decimal.String(), "3151")
		assert.Check(t, !q.Close.Valid)
	case <-time.After(time.Second):
		t.Fatal("quote not received")
	}

	assert.NilError(t, client.Unsubscribe(context.Background(), []string{"au2512"}))
	assert.NilError(t, client.Subscribe(context.Background(), nil))

	venue.InjectRspError(SimSubscribe, 16, "instrument not found")
	err = client.Subscribe(context.Background(), []string{"au2512"})
	var remote *RemoteError
	assert.Check(t, errors.As(err, &remote))
	assert.Equal(t, remote.ID, 16)
}

func TestClient_Queries(t *testing.T) {
	venue, client := startSimClient(t)
	ctx := context.Background()

	account, err := client.GetAccount(ctx)
	assert.NilError(t, err)
	assert.Equal(t, account.Balance.String(), "1000000")
	assert.Equal(t, account.Available.String(), "977950")

	orders, err := client.GetOrders(ctx)
	assert.NilError(t, err)
	assert.Equal(t, len(orders), 1)
	resting := orders["100001@au2512"]
	assert.Equal(t, resting.Volume, 2)
	assert.Check(t, resting.IsActive)
	assert.Equal(t, resting.Price.String(), "770")

	positions, err := client.GetPositions(ctx)
	assert.NilError(t, err)
	assert.Equal(t, len(positions), 1)
	assert.Equal(t, positions[0].Code, "rb2510")
	assert.Equal(t, positions[0].Volume, 10)

	venue.InjectReturnCode(SimQryOrder, ReturnRateExceeded)
	_, err = client.GetOrders(ctx)
	var rejection *ImmediateRejectionError
	assert.Check(t, errors.As(err, &rejection))
	assert.Equal(t, rejection.Code, ReturnRateExceeded)

	venue.InjectRspError(SimQryTradingAccount, 90, "query busy")
	_, err = client.GetAccount(ctx)
	assert.ErrorContains(t, err, "query trading account: remote error 90: query busy")

	empty := NewSimVenue(zap.NewNop())
	empty.AddInstrument(InstrumentField{InstrumentID: "rb2510", ExchangeID: "SHFE"}, 3150)
	other, err := NewClient(ctx, zap.NewNop(), simConfig(t.TempDir()), empty.MarketData(), empty.Trader())
	assert.NilError(t, err)
	defer other.Close()
	positions, err = other.GetPositions(ctx)
	assert.NilError(t, err)
	assert.Check(t, positions != nil)
	assert.Equal(t, len(positions), 0)
}

func TestClient_PagedQuery(t *testing.T) {
	venue, client := startSimClient(t)
	venue.SetPosition(InvestorPositionField{InstrumentID: "au2512", PosiDirection: PositionShort, Position: 1})
	venue.SetPosition(InvestorPositionField{InstrumentID: "IF2512", PosiDirection: PositionLong, Position: 2})

	// every page is later than the timeout but the stream keeps moving
	venue.SetPageDelay(600 * time.Millisecond)
	positions, err := client.GetPositions(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, len(positions), 3)
}

func TestClient_PagedQueryStalls(t *testing.T) {
	venue, client := startSimClient(t)
	ctx := context.Background()
	venue.SetPosition(InvestorPositionField{InstrumentID: "au2512", PosiDirection: PositionShort, Position: 1})
	venue.SetPosition(InvestorPositionField{InstrumentID: "IF2512", PosiDirection: PositionLong, Position: 2})

	// the first page extends the wait once, then the silence is final
	venue.StallAfter(SimQryPosition, 1)
	start := time.Now()
	_, err := client.GetPositions(ctx)
	var timeout *TimeoutError
	assert.Check(t, errors.As(err, &timeout))
	assert.Check(t, time.Since(start) >= 1000*time.Millisecond)

	positions, err := client.GetPositions(ctx)
	assert.NilError(t, err)
	assert.Equal(t, len(positions), 3)
}

func TestClient_QueryInterval(t *testing.T) {
	cfg := simConfig(t.TempDir())
	cfg.QueryInterval = 200 * time.Millisecond
	_, client := startSimClientWith(t, cfg)
	ctx := context.Background()

	start := time.Now()
	_, err := client.GetAccount(ctx)
	assert.NilError(t, err)
	second := time.Now()
	_, err = client.GetAccount(ctx)
	assert.NilError(t, err)
	assert.Check(t, time.Since(start) >= 200*time.Millisecond)
	assert.Check(t, time.Since(second) >= 150*time.Millisecond)

	// orders are not spaced after a query
	start = time.Now()
	traded, err := client.OrderMarket(ctx, "rb2510", DirectionLong, 1)
	assert.NilError(t, err)
	assert.Equal(t, traded, 1)
	assert.Check(t, time.Since(start) < 150*time.Millisecond)
}

func TestClient_Timeout(t *testing.T) {
	venue, client := startSimClient(t)
	ctx := context.Background()

	venue.Stall(SimQryTradingAccount)
	start := time.Now()
	_, err := client.GetAccount(ctx)
	var timeout *TimeoutError
	assert.Check(t, errors.As(err, &timeout))
	assert.Check(t, time.Since(start) >= 500*time.Millisecond)

	// a response to the abandoned request is dropped
	client.td.OnRspQryTradingAccount(&TradingAccountField{Balance: 1}, nil, 0, true)

	account, err := client.GetAccount(ctx)
	assert.NilError(t, err)
	assert.Equal(t, account.Balance.String(), "1000000")

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = client.GetOrders(cancelled)
	assert.Check(t, errors.Is(err, context.Canceled))
}

func TestClient_SingleFlight(t *testing.T) {
	venue, client := startSimClient(t)
	ctx := context.Background()

	venue.Stall(SimQryOrder)
	done := make(chan error)
	go func() {
		_, err := client.GetOrders(ctx)
		done <- err
	}()
	time.Sleep(100 * time.Millisecond)

	_, err := client.GetPositions(ctx)
	assert.Equal(t, err, ErrOperationInProgress)
	_, err = client.OrderMarket(ctx, "rb2510", DirectionLong, 1)
	assert.Equal(t, err, ErrOperationInProgress)

	// the market data session is independent
	assert.NilError(t, client.Subscribe(ctx, []string{"rb2510"}))
	assert.ErrorContains(t, <-done, "timeout")

	_, err = client.GetPositions(ctx)
	assert.NilError(t, err)
}

func TestClient_Orders(t *testing.T) {
	venue, client := startSimClient(t)
	ctx := context.Background()
	price := decimal.RequireFromString("3150")

	t.Run("market", func(t *testing.T) {
		traded, err := client.OrderMarket(ctx, "rb2510", DirectionLong, 2)
		assert.NilError(t, err)
		assert.Equal(t, traded, 2)

		positions, err := client.GetPositions(ctx)
		assert.NilError(t, err)
		assert.Equal(t, positions[0].Volume, 12)
	})

	t.Run("market on five level venue", func(t *testing.T) {
		traded, err := client.OrderMarket(ctx, "IF2512", DirectionShort, 1)
		assert.NilError(t, err)
		assert.Equal(t, traded, 1)
	})

	t.Run("close exceeds position", func(t *testing.T) {
		_, err := client.OrderMarket(ctx, "rb2510", DirectionLong, -20)
		assert.ErrorContains(t, err, "remote error 30")
	})

	t.Run("close", func(t *testing.T) {
		traded, err := client.OrderMarket(ctx, "rb2510", DirectionLong, -12)
		assert.NilError(t, err)
		assert.Equal(t, traded, 12)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := client.OrderMarket(ctx, "rb2510", DirectionLong, 0)
		assert.Equal(t, err, ErrZeroVolume)
		_, err = client.OrderLimit(ctx, "rb2510", DirectionLong, 1, decimal.Zero)
		assert.Equal(t, err, ErrInvalidPrice)
		_, err = client.OrderFAK(ctx, "rb2510", DirectionLong, 1, decimal.NewFromInt(-3), 1)
		assert.Equal(t, err, ErrInvalidPrice)
		_, err = client.OrderFAK(ctx, "rb2510", DirectionLong, 2, price, 3)
		assert.Equal(t, err, ErrMinVolumeExceedsVolume)
		_, err = client.OrderMarket(ctx, "zz9999", DirectionLong, 1)
		assert.ErrorContains(t, err, "instrument <zz9999> does not exist")
	})

	t.Run("limit and cancel", func(t *testing.T) {
		orderID, err := client.OrderLimit(ctx, "rb2510", DirectionShort, 1, price)
		assert.NilError(t, err)
		assert.Equal(t, orderID, "100005@rb2510")

		orders, err := client.GetOrders(ctx)
		assert.NilError(t, err)
		assert.Check(t, orders[orderID].IsActive)
		assert.Equal(t, orders[orderID].Direction, DirectionShort)

		assert.NilError(t, client.DeleteOrder(ctx, orderID))
		err = client.DeleteOrder(ctx, orderID)
		assert.ErrorContains(t, err, "remote error 26")

		err = client.DeleteOrder(ctx, "100099@rb2510")
		assert.ErrorContains(t, err, "remote error 25")
		err = client.DeleteOrder(ctx, "100005")
		assert.ErrorContains(t, err, "invalid order id")
		err = client.DeleteOrder(ctx, "100004@zz9999")
		assert.ErrorContains(t, err, "invalid order id <100004@zz9999>")
	})

	t.Run("limit rejected", func(t *testing.T) {
		_, err := client.OrderLimit(ctx, "rb2510", DirectionLong, 1, decimal.NewFromInt(5000))
		assert.ErrorContains(t, err, "price out of daily limits")
	})

	t.Run("fak and fok on thin book", func(t *testing.T) {
		venue.SetBookDepth(1)
		traded, err := client.OrderFAK(ctx, "rb2510", DirectionLong, 3, price, 0)
		assert.NilError(t, err)
		assert.Equal(t, traded, 1)

		traded, err = client.OrderFAK(ctx, "rb2510", DirectionLong, 3, price, 2)
		assert.NilError(t, err)
		assert.Equal(t, traded, 0)

		traded, err = client.OrderFOK(ctx, "rb2510", DirectionLong, 2, price)
		assert.NilError(t, err)
		assert.Equal(t, traded, 0)

		traded, err = client.OrderMarket(ctx, "au2512", DirectionLong, 5)
		assert.NilError(t, err)
		assert.Equal(t, traded, 1)
	})

	t.Run("insert rejected by front", func(t *testing.T) {
		venue.InjectRspError(SimOrderInsert, 31, "insufficient margin")
		_, err := client.OrderMarket(ctx, "rb2510", DirectionLong, 1)
		assert.ErrorContains(t, err, "remote error 31: insufficient margin")
	})
}

func TestClient_Transfers(t *testing.T) {
	venue, client := startSimClient(t)
	ctx := context.Background()

	assert.NilError(t, client.TransferFromBank(ctx, decimal.NewFromInt(1000), "pwd", "ICBC", ""))
	assert.NilError(t, client.TransferToBank(ctx, decimal.NewFromInt(500), "pwd", "", "6222000000000001"))
	account, err := client.GetAccount(ctx)
	assert.NilError(t, err)
	assert.Equal(t, account.Balance.String(), "1000500")

	err = client.TransferToBank(ctx, decimal.NewFromInt(2000000), "pwd", "ICBC", "")
	assert.ErrorContains(t, err, "remote error 102")

	assert.NilError(t, client.TransferFromBank(ctx, decimal.Zero, "pwd", "", ""))
	assert.Equal(t, venue.Requests(SimFromBankToFuture), 1)

	err = client.TransferFromBank(ctx, decimal.NewFromInt(-1), "pwd", "ICBC", "")
	assert.ErrorContains(t, err, "must not be negative")
	err = client.TransferFromBank(ctx, decimal.NewFromInt(1), "pwd", "BOC", "")
	assert.ErrorContains(t, err, "invalid bank name <BOC>")
	err = client.TransferFromBank(ctx, decimal.NewFromInt(1), "pwd", "BOC", "6222000000000001")
	assert.ErrorContains(t, err, "belongs to ICBC")
	err = client.TransferFromBank(ctx, decimal.NewFromInt(1), "pwd", "", "")
	assert.ErrorContains(t, err, "bank name or bank account is required")

	venue.InjectRspError(SimFromFutureToBank, 7, "bank offline")
	err = client.TransferToBank(ctx, decimal.NewFromInt(1), "pwd", "ICBC", "")
	assert.ErrorContains(t, err, "remote error 7: bank offline")
}

func TestClient_Reconnect(t *testing.T) {
	venue, client := startSimClient(t)
	ctx := context.Background()

	venue.Stall(SimQryOrder)
	done := make(chan error)
	go func() {
		_, err := client.GetOrders(ctx)
		done <- err
	}()
	time.Sleep(50 * time.Millisecond)
	venue.ReconnectTrader()

	select {
	case err := <-done:
		assert.Check(t, errors.Is(err, ErrDisconnected), "unexpected error %v", err)
	case <-time.After(time.Second):
		t.Fatal("operation not abandoned")
	}

	waitReady(t, client)
	assert.Equal(t, venue.Requests(SimAuthenticate), 2)

	// the new session id keys new orders
	orderID, err := client.OrderLimit(ctx, "au2512", DirectionLong, 1, decimal.RequireFromString("780"))
	assert.NilError(t, err)
	assert.Equal(t, orderID, "100002@au2512")

	venue.ReconnectMarketData()
	time.Sleep(20 * time.Millisecond)
	waitReady(t, client)
	assert.NilError(t, client.Subscribe(ctx, []string{"au2512"}))
}

func TestClient_NotReady(t *testing.T) {
	venue, client := startSimClient(t)

	venue.InjectRspError(SimAuthenticate, 63, "invalid auth code")
	venue.ReconnectTrader()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, td := client.State(); td == SessionStateFailed {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	_, td := client.State()
	assert.Equal(t, td, SessionStateFailed)

	_, err := client.GetAccount(context.Background())
	assert.Equal(t, err, ErrSessionNotReady)
}

func TestClient_ProtocolViolation(t *testing.T) {
	_, client := startSimClient(t)

	expectViolation(t, func() {
		client.td.OnErrRtnOrderInsert(&RspInfoField{})
	})
}

func TestNewTrader_Mock(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	cfg := simConfig(t.TempDir())

	trader, err := NewTrader(context.Background(), logger, "mock://?fixtures=true&ticker=20ms", cfg)
	assert.NilError(t, err)

	quotes := make(chan Quote, 100)
	trader.SetReceiver(func(q Quote) { quotes <- q })
	assert.NilError(t, trader.Subscribe(context.Background(), []string{"au2512"}))
	select {
	case q := <-quotes:
		assert.Equal(t, q.Code, "au2512")
	case <-time.After(time.Second):
		t.Fatal("ticker quote not received")
	}
	assert.NilError(t, trader.Close())

	_, err = NewTrader(context.Background(), logger, "amqp://localhost", cfg)
	assert.Error(t, err, "config not supported")
}
