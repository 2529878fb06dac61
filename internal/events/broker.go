package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	redisclient "github.com/chezmonami/marketplace-server/internal/redis"
)

const (
	HeartbeatInterval = 30 * time.Second
)

// PublicScope carries storefront-wide events every client may follow.
const PublicScope = "public"

// Event types carried on device and public scopes.
const (
	TypeCartChanged      = "cart_changed"
	TypeAnnonceCreated   = "annonce_created"
	TypeAnnonceExpired   = "annonce_expired"
	TypePromotionChanged = "promotion_changed"
)

type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type Client struct {
	Scope  string
	Events chan Event
	Done   chan struct{}
}

// Broker fans out scope events to connected clients. Events travel
// through redis pub/sub so every server instance sees them.
type Broker struct {
	redis   *redisclient.Client
	clients map[string]map[*Client]bool // scope -> set of clients
	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewBroker(redisClient *redisclient.Client) *Broker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Broker{
		redis:   redisClient,
		clients: make(map[string]map[*Client]bool),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (b *Broker) Subscribe(scope string) *Client {
	client := &Client{
		Scope:  scope,
		Events: make(chan Event, 100),
		Done:   make(chan struct{}),
	}

	b.mu.Lock()
	if b.clients[scope] == nil {
		b.clients[scope] = make(map[*Client]bool)
		go b.subscribeToRedis(scope)
	}
	b.clients[scope][client] = true
	clientCount := len(b.clients[scope])
	b.mu.Unlock()

	log.Info().
		Str("scope", scope).
		Int("clientCount", clientCount).
		Msg("event client subscribed")

	return client
}

func (b *Broker) Unsubscribe(client *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if clients, ok := b.clients[client.Scope]; ok {
		delete(clients, client)
		close(client.Done)

		if len(clients) == 0 {
			delete(b.clients, client.Scope)
		}

		log.Info().
			Str("scope", client.Scope).
			Int("clientCount", len(clients)).
			Msg("event client unsubscribed")
	}
}

func (b *Broker) Publish(ctx context.Context, scope string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	channel := redisclient.EventChannel(scope)
	return b.redis.Publish(ctx, channel, data).Err()
}

// PublishJSON marshals payload as the event data and publishes it.
func (b *Broker) PublishJSON(ctx context.Context, scope, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return b.Publish(ctx, scope, Event{Type: eventType, Data: data})
}

func (b *Broker) subscribeToRedis(scope string) {
	channel := redisclient.EventChannel(scope)
	pubsub := b.redis.Subscribe(b.ctx, channel)
	defer pubsub.Close()

	log.Debug().
		Str("scope", scope).
		Str("channel", channel).
		Msg("redis pubsub subscribed")

	ch := pubsub.Channel()

	for {
		select {
		case <-b.ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Error().Err(err).Msg("failed to unmarshal event")
				continue
			}

			b.broadcast(scope, event)
		}
	}
}

func (b *Broker) broadcast(scope string, event Event) {
	b.mu.RLock()
	clients := b.clients[scope]
	b.mu.RUnlock()

	for client := range clients {
		select {
		case client.Events <- event:
		default:
			log.Warn().
				Str("scope", scope).
				Msg("client event buffer full, dropping event")
		}
	}
}

func (b *Broker) Close() {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, clients := range b.clients {
		for client := range clients {
			close(client.Done)
		}
	}
	b.clients = make(map[string]map[*Client]bool)
}

func (b *Broker) ClientCount(scope string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients[scope])
}

func (b *Broker) TotalClients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	total := 0
	for _, clients := range b.clients {
		total += len(clients)
	}
	return total
}
