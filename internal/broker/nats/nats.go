package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const pkg = "natsBroker/"

type Config struct {
	URL          string
	StreamName   string
	Subject      string
	ConsumerName string
}

// ProcessTask asks the worker to process one stored document.
type ProcessTask struct {
	DocumentID string `json:"documentId"`
}

type MessageHandler interface {
	HandleMessage(ctx context.Context, data []byte) error
}

type Broker struct {
	log  *slog.Logger
	conn *nats.Conn
	js   jetstream.JetStream
	cfg  Config
	wg   sync.WaitGroup
}

// New connects to NATS and makes sure the task stream exists.
func New(ctx context.Context, cfg Config, log *slog.Logger) (*Broker, error) {
	op := pkg + "New"

	opts := []nats.Option{
		nats.Name(cfg.ConsumerName),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("nats disconnected", slog.Any("error", err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", slog.String("url", nc.ConnectedUrl()))
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect to nats: %w", op, err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s: failed to connect to jetstream: %w", op, err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     cfg.StreamName,
		Subjects: []string{cfg.Subject},
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s: failed to create stream: %w", op, err)
	}

	return &Broker{
		log:  log,
		conn: conn,
		js:   js,
		cfg:  cfg,
	}, nil
}

func (b *Broker) PublishProcessTask(ctx context.Context, documentID string) error {
	op := pkg + "PublishProcessTask"

	data, err := json.Marshal(ProcessTask{DocumentID: documentID})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := b.js.Publish(ctx, b.cfg.Subject, data); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Consume delivers tasks to handler until ctx is canceled. A handler error
// naks the message so JetStream redelivers it.
func (b *Broker) Consume(ctx context.Context, handler MessageHandler) error {
	op := pkg + "Consume"

	log := b.log.With(slog.String("op", op))

	cons, err := b.js.CreateOrUpdateConsumer(ctx, b.cfg.StreamName, jetstream.ConsumerConfig{
		Durable:       b.cfg.ConsumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		FilterSubject: b.cfg.Subject,
		AckWait:       30 * time.Second,
		MaxDeliver:    5,
		BackOff:       []time.Duration{time.Second, 5 * time.Second},
	})
	if err != nil {
		return fmt.Errorf("%s: failed to create consumer: %w", op, err)
	}

	iter, err := cons.Messages()
	if err != nil {
		return fmt.Errorf("%s: failed to start iterator: %w", op, err)
	}

	b.wg.Add(1)
	defer b.wg.Done()

	stop := context.AfterFunc(ctx, iter.Stop)
	defer stop()

	log.Info("consumer started", slog.String("stream", b.cfg.StreamName), slog.String("subject", b.cfg.Subject))

	for {
		msg, err := iter.Next()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, jetstream.ErrMsgIteratorClosed) {
				log.Info("consumer stopped")
				return nil
			}
			return fmt.Errorf("%s: failed to receive message: %w", op, err)
		}

		if err := handler.HandleMessage(ctx, msg.Data()); err != nil {
			log.Warn("failed to handle message", slog.String("error", err.Error()))
			if err := msg.Nak(); err != nil {
				log.Error("failed to nak message", slog.String("error", err.Error()))
			}
			continue
		}

		if err := msg.Ack(); err != nil {
			log.Error("failed to ack message", slog.String("error", err.Error()))
		}
	}
}

func (b *Broker) Close() error {
	b.wg.Wait()

	if b.conn != nil {
		b.conn.Close()
	}

	return nil
}
