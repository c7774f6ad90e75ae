package trading

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Client implements Trader over a market data and a trading transport.
type Client struct {
	logger *zap.Logger
	md     *quoteSession
	td     *tradeSession
}

var _ Trader = (*Client)(nil)

// NewClient logs both sessions in and loads the instrument directory and the
// transfer registers. It returns once both sessions are ready.
func NewClient(ctx context.Context, logger *zap.Logger, cfg Config, md MarketDataAPI, td TraderAPI) (*Client, error) {
	cfg = cfg.withDefaults()
	quotes, err := newQuoteSession(ctx, logger, cfg, md)
	if err != nil {
		if errClose := td.Close(); errClose != nil {
			logger.Error("td: fail close transport", zap.Error(errClose))
		}
		return nil, errors.WithMessage(err, "fail start market data session")
	}
	trades, err := newTradeSession(ctx, logger, cfg, td)
	if err != nil {
		if errClose := quotes.close(); errClose != nil {
			logger.Error("md: fail close transport", zap.Error(errClose))
		}
		return nil, errors.WithMessage(err, "fail start trading session")
	}
	logger.Info("client: ready", zap.Int("instruments", trades.instruments.len()))
	return &Client{logger: logger, md: quotes, td: trades}, nil
}

func (c *Client) SetReceiver(r QuoteReceiver) QuoteReceiver {
	return c.md.setReceiver(r)
}

// Subscribe checks every code against the instrument directory first.
func (c *Client) Subscribe(ctx context.Context, codes []string) error {
	for _, code := range codes {
		if _, err := c.td.getInstrument(code); err != nil {
			return err
		}
	}
	return c.md.subscribe(ctx, codes)
}

func (c *Client) Unsubscribe(ctx context.Context, codes []string) error {
	return c.md.unsubscribe(ctx, codes)
}

func (c *Client) GetInstrument(_ context.Context, code string) (Instrument, error) {
	return c.td.getInstrument(code)
}

func (c *Client) GetAccount(ctx context.Context) (AccountSnapshot, error) {
	return c.td.getAccount(ctx)
}

func (c *Client) GetOrders(ctx context.Context) (map[string]OrderRecord, error) {
	return c.td.getOrders(ctx)
}

func (c *Client) GetPositions(ctx context.Context) ([]PositionRecord, error) {
	return c.td.getPositions(ctx)
}

func (c *Client) OrderMarket(ctx context.Context, code string, dir Direction, volume int) (int, error) {
	action, err := c.td.placeOrder(ctx, OrderRequest{Code: code, Direction: dir, Volume: volume})
	if err != nil {
		return 0, err
	}
	return action.tradedVolume, nil
}

func (c *Client) OrderLimit(ctx context.Context, code string, dir Direction, volume int, price decimal.Decimal) (string, error) {
	if !price.IsPositive() {
		return "", ErrInvalidPrice
	}
	action, err := c.td.placeOrder(ctx, OrderRequest{Code: code, Direction: dir, Volume: volume, Price: price})
	if err != nil {
		return "", err
	}
	return action.orderID.String(), nil
}

// OrderFAK fills what it can of at least minVolume lots and kills the rest.
// A zero minVolume means one lot.
func (c *Client) OrderFAK(ctx context.Context, code string, dir Direction, volume int, price decimal.Decimal, minVolume int) (int, error) {
	if !price.IsPositive() {
		return 0, ErrInvalidPrice
	}
	if minVolume == 0 {
		minVolume = 1
	}
	action, err := c.td.placeOrder(ctx, OrderRequest{Code: code, Direction: dir, Volume: volume, Price: price, MinVolume: minVolume})
	if err != nil {
		return 0, err
	}
	return action.tradedVolume, nil
}

// OrderFOK is OrderFAK with the whole volume as the minimum.
func (c *Client) OrderFOK(ctx context.Context, code string, dir Direction, volume int, price decimal.Decimal) (int, error) {
	return c.OrderFAK(ctx, code, dir, volume, price, volume)
}

func (c *Client) DeleteOrder(ctx context.Context, orderID string) error {
	return c.td.deleteOrder(ctx, orderID)
}

// TransferFromBank moves money into the futures account. Zero money is a no-op.
func (c *Client) TransferFromBank(ctx context.Context, money decimal.Decimal, password, bankName, bankAccount string) error {
	if money.IsNegative() {
		return &ValidationError{Field: "money", Value: money.String(), Reason: "must not be negative"}
	}
	return c.td.transfer(ctx, money, password, bankName, bankAccount)
}

func (c *Client) TransferToBank(ctx context.Context, money decimal.Decimal, password, bankName, bankAccount string) error {
	if money.IsNegative() {
		return &ValidationError{Field: "money", Value: money.String(), Reason: "must not be negative"}
	}
	return c.td.transfer(ctx, money.Neg(), password, bankName, bankAccount)
}

// State reports the market data and trading session states.
func (c *Client) State() (md SessionState, td SessionState) {
	return c.md.State(), c.td.State()
}

func (c *Client) Close() error {
	errMd := c.md.close()
	errTd := c.td.close()
	if errMd != nil {
		return errors.WithMessage(errMd, "fail close market data transport")
	}
	if errTd != nil {
		return errors.WithMessage(errTd, "fail close trading transport")
	}
	return nil
}
