package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/truthguard-go-api/internal/dto"
	"github.com/noah-isme/truthguard-go-api/internal/observability"
)

const (
	feedBufferSize   = 32
	feedPingInterval = 30 * time.Second
	feedWriteTimeout = 10 * time.Second
)

// FeedConn is the subset of a websocket connection the feed writes to.
type FeedConn interface {
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	SetWriteDeadline(t time.Time) error
	Close() error
}

// FeedConnectionOptions describes one websocket subscriber.
type FeedConnectionOptions struct {
	CorrelationID string
	// Greeting events are written before any live event.
	Greeting []dto.FeedEvent
}

// FeedService fans live detection and sensor events out to websocket subscribers
// on this node and, when a relay is configured, on every other node.
type FeedService interface {
	Publish(ctx context.Context, eventType string, payload interface{}) error
	Subscribe() (<-chan dto.FeedEvent, func())
	ServeConnection(conn FeedConn, opts FeedConnectionOptions)
	Start(ctx context.Context)
}

type feedService struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
	broker       *feedBroker
	nodeID       string
	now          func() time.Time
}

type feedBroker struct {
	mu          sync.RWMutex
	subscribers map[chan dto.FeedEvent]struct{}
}

// NewFeedService constructs the live feed. A nil redis client and nil NATS
// connection keep the feed local to this process. When both are supplied NATS
// carries the relay and Redis is left unused so events are not delivered twice.
func NewFeedService(redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) FeedService {
	channelBase = strings.TrimSpace(channelBase)
	if channelBase == "" {
		channelBase = "truthguard"
	}

	svc := &feedService{
		logger: logger.With().Str("component", "feed_service").Logger(),
		broker: &feedBroker{subscribers: make(map[chan dto.FeedEvent]struct{})},
		nodeID: uuid.NewString(),
		now:    func() time.Time { return time.Now().UTC() },
	}

	switch {
	case natsConn != nil:
		svc.nats = natsConn
		svc.natsSubject = strings.ReplaceAll(channelBase, ":", ".") + ".feed"
	case redisClient != nil:
		svc.redis = redisClient
		svc.redisChannel = channelBase + ":feed"
	}

	return svc
}

func (s *feedService) Start(ctx context.Context) {
	if s.redis != nil {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil {
		s.consumeNATS(ctx)
	}
}

// Publish delivers an event locally and relays it to other nodes. Relay failures
// are returned after local delivery has happened.
func (s *feedService) Publish(ctx context.Context, eventType string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	event := dto.FeedEvent{
		Type:    eventType,
		Source:  s.nodeID,
		Payload: raw,
		SentAt:  s.now(),
	}

	s.broker.broadcast(event)
	observability.FeedEvents().WithLabelValues(eventType).Inc()

	return s.relay(ctx, event)
}

func (s *feedService) Subscribe() (<-chan dto.FeedEvent, func()) {
	channel := make(chan dto.FeedEvent, feedBufferSize)

	s.broker.subscribe(channel)
	observability.FeedClients().Inc()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			s.broker.unsubscribe(channel)
			observability.FeedClients().Dec()
		})
	}

	return channel, cleanup
}

// ServeConnection streams feed events to conn until the peer disconnects.
func (s *feedService) ServeConnection(conn FeedConn, opts FeedConnectionOptions) {
	events, cleanup := s.Subscribe()
	defer cleanup()

	logger := s.logger.With().Str("correlation_id", opts.CorrelationID).Logger()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				logger.Debug().Err(err).Msg("feed read loop ended")
				return
			}
		}
	}()

	defer func() { _ = conn.Close() }()

	for _, greeting := range opts.Greeting {
		if err := s.write(conn, greeting); err != nil {
			logger.Debug().Err(err).Msg("feed greeting failed")
			return
		}
	}

	ticker := time.NewTicker(feedPingInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := s.write(conn, event); err != nil {
				logger.Debug().Err(err).Msg("feed write loop terminated")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				logger.Debug().Err(err).Msg("feed ping failed")
				return
			}
		case <-closed:
			return
		}
	}
}

func (s *feedService) write(conn FeedConn, event dto.FeedEvent) error {
	_ = conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
	return conn.WriteJSON(event)
}

func (s *feedService) relay(ctx context.Context, event dto.FeedEvent) error {
	if s.redis == nil && s.nats == nil {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if s.nats != nil {
		return s.nats.Publish(s.natsSubject, payload)
	}
	return s.redis.Publish(ctx, s.redisChannel, payload).Err()
}

func (s *feedService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisChannel)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			s.logger.Error().Err(err).Msg("feed redis subscription closed")
			return
		}
		s.handleEvent([]byte(msg.Payload))
	}
}

// consumeNATS uses a plain subscription: every node must see every event.
func (s *feedService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.Subscribe(s.natsSubject, func(msg *nats.Msg) {
		s.handleEvent(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats feed subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain feed nats subscription")
		}
	}()
}

func (s *feedService) handleEvent(payload []byte) {
	var event dto.FeedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid feed event payload")
		return
	}

	if event.Source == s.nodeID || event.Type == "" {
		return
	}

	observability.FeedEvents().WithLabelValues(event.Type).Inc()
	s.broker.broadcast(event)
}

func (b *feedBroker) subscribe(ch chan dto.FeedEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[ch] = struct{}{}
}

func (b *feedBroker) unsubscribe(ch chan dto.FeedEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[ch]; ok {
		delete(b.subscribers, ch)
		close(ch)
	}
}

// broadcast never blocks; a subscriber with a full buffer misses the event.
func (b *feedBroker) broadcast(event dto.FeedEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}
