package trading

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type configZmqBridge struct {
	Token     string
	ServerKey string
	TdReqAddr string
	TdSubAddr string
	MdReqAddr string
	MdSubAddr string
}

// parseDsnZmq reads "zmq://host:port?sub_port=N&md_port=M&md_sub_port=K token=... server_key=...".
// Ports default to consecutive numbers after port.
func parseDsnZmq(dsn string) (*configZmqBridge, error) {
	configs := strings.Split(strings.Trim(dsn, " "), " ")

	var token, serverKey, addr string
	for _, conf := range configs {
		if strings.HasPrefix(conf, "token=") {
			token = strings.TrimPrefix(conf, "token=")
		}
		if strings.HasPrefix(conf, "server_key=") {
			serverKey = strings.TrimPrefix(conf, "server_key=")
		}
		if strings.HasPrefix(conf, "zmq://") {
			if addr != "" {
				return nil, errors.New("multiple gates not supported")
			}
			addr = conf
		}
	}
	if addr == "" {
		return nil, errors.New("empty config")
	}

	u, err := url.Parse(addr)
	if err != nil {
		return nil, err
	}
	if u.Hostname() == "" {
		return nil, errors.New("host is empty")
	}
	if u.Port() == "" {
		return nil, errors.New("port is empty")
	}
	tdPort, err := strconv.Atoi(u.Port())
	if err != nil {
		return nil, errors.WithMessage(err, "invalid port value")
	}
	port := func(name string, def int) (int, error) {
		val := u.Query().Get(name)
		if val == "" {
			return def, nil
		}
		p, err := strconv.Atoi(val)
		if err != nil {
			return 0, errors.WithMessage(err, "invalid "+name+" value")
		}
		return p, nil
	}
	tdSubPort, err := port("sub_port", tdPort+1)
	if err != nil {
		return nil, err
	}
	mdPort, err := port("md_port", tdPort+2)
	if err != nil {
		return nil, err
	}
	mdSubPort, err := port("md_sub_port", mdPort+1)
	if err != nil {
		return nil, err
	}

	host := "tcp://" + u.Hostname() + ":"
	return &configZmqBridge{
		Token:     token,
		ServerKey: serverKey,
		TdReqAddr: host + strconv.Itoa(tdPort),
		TdSubAddr: host + strconv.Itoa(tdSubPort),
		MdReqAddr: host + strconv.Itoa(mdPort),
		MdSubAddr: host + strconv.Itoa(mdSubPort),
	}, nil
}

type configRedisBridge struct {
	Options *redis.Options
	Prefix  string
	Token   string
}

// parseDsnRedis reads "redis://[:password@]host:port/db?prefix=ctp&token=...".
func parseDsnRedis(dsn string) (*configRedisBridge, error) {
	u, err := url.Parse(strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	query := u.Query()
	cfg := &configRedisBridge{Prefix: query.Get("prefix"), Token: query.Get("token")}
	if cfg.Prefix == "" {
		cfg.Prefix = "ctp"
	}
	query.Del("prefix")
	query.Del("token")
	u.RawQuery = query.Encode()
	cfg.Options, err = redis.ParseURL(u.String())
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

type configMockTrader struct {
	Fixtures bool
	Depth    int
	Ticker   time.Duration
}

func parseDsnMock(dsn string) (*configMockTrader, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, err
	}
	cfg := &configMockTrader{}
	if u.Query().Get("fixtures") == "true" {
		cfg.Fixtures = true
	}
	if val := u.Query().Get("depth"); val != "" {
		if cfg.Depth, err = strconv.Atoi(val); err != nil {
			return nil, errors.WithMessage(err, "invalid depth value")
		}
	}
	if val := u.Query().Get("ticker"); val != "" {
		if cfg.Ticker, err = time.ParseDuration(val); err != nil {
			return nil, errors.WithMessage(err, "invalid ticker value")
		}
	}
	return cfg, nil
}

// simClient stops the venue ticker on close.
type simClient struct {
	*Client
	stop context.CancelFunc
}

func (c *simClient) Close() error {
	c.stop()
	return c.Client.Close()
}

func createMockTrader(ctx context.Context, logger *zap.Logger, cfg *configMockTrader, clientCfg Config) (Trader, error) {
	venue := NewSimVenue(logger)
	if cfg.Fixtures {
		venue.SetupFixtures()
	}
	if cfg.Depth > 0 {
		venue.SetBookDepth(cfg.Depth)
	}
	client, err := NewClient(ctx, logger, clientCfg, venue.MarketData(), venue.Trader())
	if err != nil {
		return nil, err
	}
	if cfg.Ticker <= 0 {
		return client, nil
	}
	tickerCtx, stop := context.WithCancel(context.Background())
	go venue.RunTicker(tickerCtx, cfg.Ticker)
	return &simClient{Client: client, stop: stop}, nil
}

func createZmqTrader(ctx context.Context, logger *zap.Logger, cfg *configZmqBridge, clientCfg Config) (Trader, error) {
	mdWire, err := newZmqWire(logger, cfg.MdReqAddr, cfg.MdSubAddr, cfg.ServerKey)
	if err != nil {
		return nil, errors.WithMessage(err, "fail create market data zmq connection")
	}
	tdWire, err := newZmqWire(logger, cfg.TdReqAddr, cfg.TdSubAddr, cfg.ServerKey)
	if err != nil {
		if errClose := mdWire.close(); errClose != nil {
			logger.Error("zmq: fail close market data connection", zap.Error(errClose))
		}
		return nil, errors.WithMessage(err, "fail create trading zmq connection")
	}
	return NewClient(ctx, logger, clientCfg, newBridgeMarketData(logger, mdWire, cfg.Token), newBridgeTrader(logger, tdWire, cfg.Token))
}

func createRedisTrader(ctx context.Context, logger *zap.Logger, cfg *configRedisBridge, clientCfg Config) (Trader, error) {
	mdWire, err := newRedisWire(ctx, logger, cfg.Options, cfg.Prefix+":md")
	if err != nil {
		return nil, errors.WithMessage(err, "fail create market data redis connection")
	}
	tdWire, err := newRedisWire(ctx, logger, cfg.Options, cfg.Prefix+":td")
	if err != nil {
		if errClose := mdWire.close(); errClose != nil {
			logger.Error("redis: fail close market data connection", zap.Error(errClose))
		}
		return nil, errors.WithMessage(err, "fail create trading redis connection")
	}
	return NewClient(ctx, logger, clientCfg, newBridgeMarketData(logger, mdWire, cfg.Token), newBridgeTrader(logger, tdWire, cfg.Token))
}

// NewTrader builds a logged in Trader from a dsn: zmq:// and redis:// reach a
// native API sidecar, mock:// runs against an in-process SimVenue.
func NewTrader(ctx context.Context, logger *zap.Logger, dsn string, cfg Config) (Trader, error) {
	if strings.HasPrefix(dsn, "mock://") {
		mockCfg, err := parseDsnMock(dsn)
		if err != nil {
			return nil, errors.WithMessage(err, "fail parse mock dsn")
		}
		return createMockTrader(ctx, logger, mockCfg, cfg)
	}

	if strings.Contains(dsn, "zmq://") {
		zmqCfg, err := parseDsnZmq(dsn)
		if err != nil {
			return nil, errors.WithMessage(err, "fail parse zmq dsn")
		}
		return createZmqTrader(ctx, logger, zmqCfg, cfg)
	}

	if strings.HasPrefix(dsn, "redis://") {
		redisCfg, err := parseDsnRedis(dsn)
		if err != nil {
			return nil, errors.WithMessage(err, "fail parse redis dsn")
		}
		return createRedisTrader(ctx, logger, redisCfg, cfg)
	}

	return nil, errors.New("config not supported")
}
