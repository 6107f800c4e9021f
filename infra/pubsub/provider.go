// Package pubsub builds watermill publishers and subscribers for the message bus.
// With AMQP disabled everything runs over one in-process gochannel, so the rest of
// the service does not care whether a broker is configured.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/webitel/push-bridge-service/config"
	"go.uber.org/fx"
)

var Module = fx.Module("pubsub",
	fx.Provide(NewProvider),
	fx.Invoke(func(lc fx.Lifecycle, p Provider) {
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error { return p.Close() },
		})
	}),
)

// Provider hands out transport-bound publishers and subscribers.
type Provider interface {
	// Publisher publishes to a durable topic exchange; the watermill topic is the routing key.
	Publisher(exchange string) (message.Publisher, error)
	// Subscriber consumes a durable queue bound to exchange; the watermill topic is the binding key.
	Subscriber(queue, exchange string) (message.Subscriber, error)
	Close() error
}

func NewProvider(cfg *config.Config, logger watermill.LoggerAdapter) Provider {
	if !cfg.AMQP.Enabled {
		return NewMemoryProvider(logger)
	}
	return &amqpProvider{url: cfg.AMQP.URL, logger: logger}
}

// [AMQP]

type amqpProvider struct {
	url    string
	logger watermill.LoggerAdapter

	mu      sync.Mutex
	closers []func() error
}

func (p *amqpProvider) config(exchange string) amqp.Config {
	return amqp.Config{
		Connection: amqp.ConnectionConfig{AmqpURI: p.url},
		Marshaler:  amqp.DefaultMarshaler{},
		Exchange: amqp.ExchangeConfig{
			GenerateName: func(string) string { return exchange },
			Type:         "topic",
			Durable:      true,
		},
		QueueBind: amqp.QueueBindConfig{
			GenerateRoutingKey: func(topic string) string { return topic },
		},
		Publish: amqp.PublishConfig{
			GenerateRoutingKey: func(topic string) string { return topic },
		},
		Consume: amqp.ConsumeConfig{
			Qos: amqp.QosConfig{PrefetchCount: 64},
		},
		TopologyBuilder: &amqp.DefaultTopologyBuilder{},
	}
}

func (p *amqpProvider) Publisher(exchange string) (message.Publisher, error) {
	pub, err := amqp.NewPublisher(p.config(exchange), p.logger)
	if err != nil {
		return nil, fmt.Errorf("amqp publisher %s: %w", exchange, err)
	}
	p.track(pub.Close)
	return pub, nil
}

func (p *amqpProvider) Subscriber(queue, exchange string) (message.Subscriber, error) {
	cfg := p.config(exchange)
	cfg.Queue = amqp.QueueConfig{
		GenerateName: amqp.GenerateQueueNameConstant(queue),
		Durable:      true,
	}

	sub, err := amqp.NewSubscriber(cfg, p.logger)
	if err != nil {
		return nil, fmt.Errorf("amqp subscriber %s: %w", queue, err)
	}
	p.track(sub.Close)
	return sub, nil
}

func (p *amqpProvider) track(fn func() error) {
	p.mu.Lock()
	p.closers = append(p.closers, fn)
	p.mu.Unlock()
}

func (p *amqpProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for _, fn := range p.closers {
		errs = append(errs, fn())
	}
	p.closers = nil
	return errors.Join(errs...)
}

// [MEMORY]

// MemoryProvider serves every exchange and queue from one gochannel. Topics must
// match exactly: there is no wildcard routing in memory.
type MemoryProvider struct {
	ch *gochannel.GoChannel
}

func NewMemoryProvider(logger watermill.LoggerAdapter) *MemoryProvider {
	return &MemoryProvider{
		ch: gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, logger),
	}
}

// Publisher and Subscriber share the channel, so the router must not close it.
func (p *MemoryProvider) Publisher(string) (message.Publisher, error) {
	return nopClosePublisher{p.ch}, nil
}

func (p *MemoryProvider) Subscriber(string, string) (message.Subscriber, error) {
	return nopCloseSubscriber{p.ch}, nil
}

func (p *MemoryProvider) Close() error { return p.ch.Close() }

type nopClosePublisher struct{ message.Publisher }

func (nopClosePublisher) Close() error { return nil }

type nopCloseSubscriber struct{ message.Subscriber }

func (nopCloseSubscriber) Close() error { return nil }
