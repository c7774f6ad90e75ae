package trading

import (
	"context"

	"github.com/shopspring/decimal"
)

// Trader is the synchronous call surface over one market data session and
// one trading session. Every blocking call fails fast with
// ErrOperationInProgress when its session already runs a call.
type Trader interface {
	// SetReceiver installs the quote receiver and returns the previous one.
	SetReceiver(r QuoteReceiver) QuoteReceiver
	Subscribe(ctx context.Context, codes []string) error
	Unsubscribe(ctx context.Context, codes []string) error

	GetInstrument(ctx context.Context, code string) (Instrument, error)
	GetAccount(ctx context.Context) (AccountSnapshot, error)
	// GetOrders returns the orders of the trading day keyed by "<sysId>@<code>".
	GetOrders(ctx context.Context) (map[string]OrderRecord, error)
	GetPositions(ctx context.Context) ([]PositionRecord, error)

	// OrderMarket returns the traded volume. A negative volume closes a position.
	OrderMarket(ctx context.Context, code string, dir Direction, volume int) (int, error)
	// OrderLimit returns the order id "<sysId>@<code>" once the order is booked.
	OrderLimit(ctx context.Context, code string, dir Direction, volume int, price decimal.Decimal) (string, error)
	OrderFAK(ctx context.Context, code string, dir Direction, volume int, price decimal.Decimal, minVolume int) (int, error)
	OrderFOK(ctx context.Context, code string, dir Direction, volume int, price decimal.Decimal) (int, error)
	DeleteOrder(ctx context.Context, orderID string) error

	TransferFromBank(ctx context.Context, money decimal.Decimal, password, bankName, bankAccount string) error
	TransferToBank(ctx context.Context, money decimal.Decimal, password, bankName, bankAccount string) error

	Close() error
}
