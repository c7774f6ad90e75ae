package trading

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisReplyTimeout = 5 * time.Second

// redisCommand wraps a request with the key the sidecar pushes its reply to.
type redisCommand struct {
	ReplyTo string              `json:"replyTo"`
	Request jsoniter.RawMessage `json:"request"`
}

// redisWire queues requests on <prefix>:cmd, waits for each reply on its own
// list and receives events from the <prefix>:events channel.
type redisWire struct {
	logger  *zap.Logger
	client  *redis.Client
	pubsub  *redis.PubSub
	prefix  string
	timeout time.Duration
	ch      chan []byte
	once    sync.Once
	done    chan struct{}
}

func newRedisWire(ctx context.Context, logger *zap.Logger, opts *redis.Options, prefix string) (*redisWire, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.WithMessage(err, "fail connect redis "+opts.Addr)
	}
	pubsub := client.Subscribe(ctx, prefix+":events")
	// the subscription must be live before the sidecar is asked to connect
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		_ = client.Close()
		return nil, errors.WithMessage(err, "fail subscribe "+prefix+":events")
	}
	w := &redisWire{
		logger:  logger,
		client:  client,
		pubsub:  pubsub,
		prefix:  prefix,
		timeout: redisReplyTimeout,
		ch:      make(chan []byte, 1000),
		done:    make(chan struct{}),
	}
	go w.readEvents()
	logger.Info("redis: wire ready", zap.String("addr", opts.Addr), zap.String("prefix", prefix))
	return w, nil
}

func (w *redisWire) request(data []byte) ([]byte, error) {
	select {
	case <-w.done:
		return nil, errors.New("redis: wire closed")
	default:
	}
	replyKey := w.prefix + ":reply:" + uuid.NewString()
	cmd, err := jsoniter.Marshal(redisCommand{ReplyTo: replyKey, Request: data})
	if err != nil {
		return nil, errors.WithMessage(err, "fail marshal redis command")
	}
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout+time.Second)
	defer cancel()
	if err = w.client.RPush(ctx, w.prefix+":cmd", cmd).Err(); err != nil {
		return nil, errors.WithMessage(err, "fail push command")
	}
	res, err := w.client.BLPop(ctx, w.timeout, replyKey).Result()
	if err == redis.Nil {
		return nil, errors.New("redis: no reply on " + replyKey)
	}
	if err != nil {
		return nil, errors.WithMessage(err, "fail wait reply")
	}
	// BLPOP answers the key and the value
	return []byte(res[1]), nil
}

func (w *redisWire) events() <-chan []byte {
	return w.ch
}

func (w *redisWire) readEvents() {
	defer close(w.ch)
	for msg := range w.pubsub.Channel() {
		select {
		case w.ch <- []byte(msg.Payload):
		case <-w.done:
			return
		}
	}
}

func (w *redisWire) close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		if errSub := w.pubsub.Close(); errSub != nil {
			w.logger.Error("redis: fail close subscription", zap.Error(errSub))
		}
		err = w.client.Close()
	})
	return err
}
