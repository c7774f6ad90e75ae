package main

import (
	"context"
	"io"
	"strconv"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/zhou-yuxin/ctp-client/pkg/trading"
)

const usage = `usage: ctp-cli [flags] <command> [args]

commands:
  instrument CODE
  account
  orders
  positions
  market CODE long|short VOLUME
  limit CODE long|short VOLUME PRICE
  fak CODE long|short VOLUME PRICE MINVOLUME
  fok CODE long|short VOLUME PRICE
  cancel ORDERID
  quotes CODE...
  transfer in|out MONEY PASSWORD BANK [ACCOUNT]
`

var errUsage = errors.New("invalid arguments")

type command struct {
	args int
	// variadic commands take at least args arguments
	variadic bool
	run      func(ctx context.Context, t trading.Trader, args []string) (interface{}, error)
}

var commands = map[string]command{
	"instrument": {args: 1, run: func(ctx context.Context, t trading.Trader, args []string) (interface{}, error) {
		return t.GetInstrument(ctx, args[0])
	}},
	"account": {run: func(ctx context.Context, t trading.Trader, _ []string) (interface{}, error) {
		return t.GetAccount(ctx)
	}},
	"orders": {run: func(ctx context.Context, t trading.Trader, _ []string) (interface{}, error) {
		return t.GetOrders(ctx)
	}},
	"positions": {run: func(ctx context.Context, t trading.Trader, _ []string) (interface{}, error) {
		return t.GetPositions(ctx)
	}},
	"market": {args: 3, run: func(ctx context.Context, t trading.Trader, args []string) (interface{}, error) {
		o, err := parseOrder(args)
		if err != nil {
			return nil, err
		}
		traded, err := t.OrderMarket(ctx, o.code, o.dir, o.volume)
		return tradedResult{Traded: traded}, err
	}},
	"limit": {args: 4, run: func(ctx context.Context, t trading.Trader, args []string) (interface{}, error) {
		o, err := parseOrder(args)
		if err != nil {
			return nil, err
		}
		id, err := t.OrderLimit(ctx, o.code, o.dir, o.volume, o.price)
		return orderResult{ID: id}, err
	}},
	"fak": {args: 5, run: func(ctx context.Context, t trading.Trader, args []string) (interface{}, error) {
		o, err := parseOrder(args)
		if err != nil {
			return nil, err
		}
		minVolume, err := strconv.Atoi(args[4])
		if err != nil {
			return nil, errors.WithMessage(errUsage, "min volume "+args[4])
		}
		traded, err := t.OrderFAK(ctx, o.code, o.dir, o.volume, o.price, minVolume)
		return tradedResult{Traded: traded}, err
	}},
	"fok": {args: 4, run: func(ctx context.Context, t trading.Trader, args []string) (interface{}, error) {
		o, err := parseOrder(args)
		if err != nil {
			return nil, err
		}
		traded, err := t.OrderFOK(ctx, o.code, o.dir, o.volume, o.price)
		return tradedResult{Traded: traded}, err
	}},
	"cancel": {args: 1, run: func(ctx context.Context, t trading.Trader, args []string) (interface{}, error) {
		if err := t.DeleteOrder(ctx, args[0]); err != nil {
			return nil, err
		}
		return orderResult{ID: args[0]}, nil
	}},
	"transfer": {args: 4, variadic: true, run: runTransfer},
}

type tradedResult struct {
	Traded int `json:"traded"`
}

type orderResult struct {
	ID string `json:"id"`
}

type orderArgs struct {
	code   string
	dir    trading.Direction
	volume int
	price  decimal.Decimal
}

// parseOrder reads CODE DIRECTION VOLUME [PRICE].
func parseOrder(args []string) (orderArgs, error) {
	o := orderArgs{code: args[0]}
	var err error
	if o.dir, err = trading.DirectionStrToType(args[1]); err != nil {
		return o, err
	}
	if o.volume, err = strconv.Atoi(args[2]); err != nil {
		return o, errors.WithMessage(errUsage, "volume "+args[2])
	}
	if len(args) > 3 {
		if o.price, err = decimal.NewFromString(args[3]); err != nil {
			return o, errors.WithMessage(errUsage, "price "+args[3])
		}
	}
	return o, nil
}

func runTransfer(ctx context.Context, t trading.Trader, args []string) (interface{}, error) {
	if len(args) > 5 {
		return nil, errUsage
	}
	money, err := decimal.NewFromString(args[1])
	if err != nil {
		return nil, errors.WithMessage(errUsage, "money "+args[1])
	}
	var account string
	if len(args) == 5 {
		account = args[4]
	}
	switch args[0] {
	case "in":
		err = t.TransferFromBank(ctx, money, args[2], args[3], account)
	case "out":
		err = t.TransferToBank(ctx, money, args[2], args[3], account)
	default:
		return nil, errors.WithMessage(errUsage, "transfer direction "+args[0])
	}
	if err != nil {
		return nil, err
	}
	return t.GetAccount(ctx)
}

// execute runs one command and writes its result as a JSON line.
func execute(ctx context.Context, t trading.Trader, name string, args []string, out io.Writer) error {
	cmd, ok := commands[name]
	if !ok {
		return errors.WithMessage(errUsage, "unknown command "+name)
	}
	if len(args) < cmd.args || (!cmd.variadic && len(args) > cmd.args) {
		return errors.WithMessage(errUsage, name)
	}
	res, err := cmd.run(ctx, t, args)
	if err != nil {
		return err
	}
	return writeJSON(out, res)
}

func writeJSON(out io.Writer, v interface{}) error {
	stream := jsoniter.ConfigCompatibleWithStandardLibrary.BorrowStream(out)
	defer jsoniter.ConfigCompatibleWithStandardLibrary.ReturnStream(stream)
	stream.WriteVal(v)
	stream.WriteRaw("\n")
	if stream.Error != nil {
		return stream.Error
	}
	return stream.Flush()
}

// streamQuotes writes every tick of codes until ctx is done.
func streamQuotes(ctx context.Context, t trading.Trader, codes []string, out io.Writer) error {
	if len(codes) == 0 {
		return errors.WithMessage(errUsage, "quotes")
	}
	ticks := make(chan trading.Quote, 1024)
	t.SetReceiver(func(q trading.Quote) {
		select {
		case ticks <- q:
		default:
		}
	})
	if err := t.Subscribe(ctx, codes); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case q := <-ticks:
			if err := writeJSON(out, q); err != nil {
				return err
			}
		}
	}
}
