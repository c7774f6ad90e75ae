package relay

import (
	"context"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/zhou-yuxin/ctp-client/pkg/trading"
	"go.uber.org/zap"
)

const flushTimeout = 5 * time.Second

var relayedQuotes = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "ctp_relay_quotes_total",
	Help: "Quotes handed to kafka by result",
}, []string{"result"})

func init() {
	prometheus.MustRegister(relayedQuotes)
}

// producer is the part of *kgo.Client the relay drives.
type producer interface {
	TryProduce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
	Flush(ctx context.Context) error
	Close()
}

// Relay produces quotes to a kafka topic keyed by instrument code.
type Relay struct {
	logger   *zap.Logger
	client   producer
	topic    string
	encoding jsoniter.API
}

// NewKafka connects a producer to brokers.
func NewKafka(logger *zap.Logger, brokers []string, topic string) (*Relay, error) {
	if len(brokers) == 0 {
		return nil, errors.New("no kafka brokers")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.LeaderAck()),
		kgo.DisableIdempotentWrite(),
		kgo.ProducerLinger(5*time.Millisecond),
	)
	if err != nil {
		return nil, errors.WithMessage(err, "fail create kafka client")
	}
	logger.Info("relay: kafka producer ready", zap.Strings("brokers", brokers), zap.String("topic", topic))
	return New(logger, client, topic), nil
}

func New(logger *zap.Logger, client producer, topic string) *Relay {
	return &Relay{
		logger:   logger,
		client:   client,
		topic:    topic,
		encoding: jsoniter.ConfigCompatibleWithStandardLibrary,
	}
}

func (r *Relay) record(q trading.Quote) (*kgo.Record, error) {
	value, err := r.encoding.Marshal(q)
	if err != nil {
		return nil, errors.WithMessage(err, "fail marshal quote "+q.Code)
	}
	return &kgo.Record{
		Topic: r.topic,
		Key:   []byte(q.Code),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "message_id", Value: []byte(uuid.NewString())},
			{Key: "trading_day", Value: []byte(q.TradingDay)},
		},
	}, nil
}

// Publish hands q to the producer without blocking; a full buffer drops it.
func (r *Relay) Publish(q trading.Quote) {
	rec, err := r.record(q)
	if err != nil {
		relayedQuotes.WithLabelValues("encode_error").Inc()
		r.logger.Error("relay: drop quote", zap.Error(err))
		return
	}
	r.client.TryProduce(context.Background(), rec, func(rec *kgo.Record, err error) {
		if err != nil {
			relayedQuotes.WithLabelValues("produce_error").Inc()
			r.logger.Warn("relay: fail produce quote", zap.String("code", string(rec.Key)), zap.Error(err))
			return
		}
		relayedQuotes.WithLabelValues("ok").Inc()
	})
}

// Receiver adapts the relay to Trader.SetReceiver.
func (r *Relay) Receiver() trading.QuoteReceiver {
	return r.Publish
}

// Close flushes buffered quotes and closes the client.
func (r *Relay) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	err := r.client.Flush(ctx)
	r.client.Close()
	if err != nil {
		return errors.WithMessage(err, "fail flush quotes")
	}
	return nil
}
