package nativebridge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bivex/paywall-purchases/internal/domain/bridge"
)

const defaultPublishTimeout = 3 * time.Second

var ErrSourceClosed = errors.New("redis event source is closed")

// Channel returns the pub/sub channel carrying a native event name
func Channel(prefix, eventName string) string {
	if prefix == "" {
		return eventName
	}
	return prefix + ":" + eventName
}

// RedisEventSource delivers native events published on Redis pub/sub.
// Each attached sink gets its own subscription to every native event
// channel; payloads are decoded with bridge.DecodeEvent.
type RedisEventSource struct {
	client *redis.Client
	prefix string
	logger *zap.Logger

	mu      sync.Mutex
	closed  bool
	pubsubs []*redis.PubSub
	wg      sync.WaitGroup
}

var _ bridge.EventSource = (*RedisEventSource)(nil)

// NewRedisEventSource creates a source reading channels under prefix
func NewRedisEventSource(client *redis.Client, prefix string, logger *zap.Logger) *RedisEventSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisEventSource{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

// Attach subscribes sink and returns once Redis confirmed the subscription
func (s *RedisEventSource) Attach(sink bridge.EventSink) error {
	if sink == nil {
		return errors.New("sink is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSourceClosed
	}

	names := bridge.EventNames()
	channels := make([]string, 0, len(names))
	for _, name := range names {
		channels = append(channels, Channel(s.prefix, name))
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.client.Options().DialTimeout+time.Second)
	defer cancel()

	pubsub := s.client.Subscribe(ctx, channels...)
	for range channels {
		if _, err := pubsub.Receive(ctx); err != nil {
			_ = pubsub.Close()
			return fmt.Errorf("failed to subscribe to native events: %w", err)
		}
	}
	s.pubsubs = append(s.pubsubs, pubsub)

	s.wg.Add(1)
	go s.consume(pubsub, sink)

	s.logger.Info("Subscribed to native event channels", zap.Strings("channels", channels))
	return nil
}

func (s *RedisEventSource) consume(pubsub *redis.PubSub, sink bridge.EventSink) {
	defer s.wg.Done()

	for msg := range pubsub.Channel() {
		name := s.eventName(msg.Channel)
		ev, err := bridge.DecodeEvent(name, []byte(msg.Payload))
		if err != nil {
			s.logger.Warn("Discarding native event",
				zap.String("channel", msg.Channel),
				zap.Error(err),
			)
			continue
		}
		sink.Dispatch(ev)
	}
}

func (s *RedisEventSource) eventName(channel string) string {
	if s.prefix == "" {
		return channel
	}
	return strings.TrimPrefix(channel, s.prefix+":")
}

// Close ends every subscription and waits for the consumers to stop
func (s *RedisEventSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	pubsubs := s.pubsubs
	s.pubsubs = nil
	s.mu.Unlock()

	var errs []error
	for _, ps := range pubsubs {
		if err := ps.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.wg.Wait()
	return errors.Join(errs...)
}

// RedisPublisher publishes native events to Redis. It is a bridge.EventSink,
// so a native module can be attached to it directly.
type RedisPublisher struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
	logger  *zap.Logger
}

var _ bridge.EventSink = (*RedisPublisher)(nil)

// NewRedisPublisher creates a publisher writing channels under prefix
func NewRedisPublisher(client *redis.Client, prefix string, logger *zap.Logger) *RedisPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPublisher{
		client:  client,
		prefix:  prefix,
		timeout: defaultPublishTimeout,
		logger:  logger,
	}
}

// Publish encodes ev and publishes it on its channel
func (p *RedisPublisher) Publish(ctx context.Context, ev bridge.NativeEvent) error {
	name, payload, err := bridge.EncodeEvent(ev)
	if err != nil {
		return err
	}
	return p.PublishRaw(ctx, name, payload)
}

// PublishRaw publishes an already encoded payload
func (p *RedisPublisher) PublishRaw(ctx context.Context, name string, payload []byte) error {
	if err := p.client.Publish(ctx, Channel(p.prefix, name), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish %s: %w", name, err)
	}
	return nil
}

// Dispatch publishes ev, logging failures
func (p *RedisPublisher) Dispatch(ev bridge.NativeEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.Publish(ctx, ev); err != nil {
		p.logger.Error("Failed to publish native event",
			zap.String("event", ev.Name()),
			zap.Error(err),
		)
	}
}
