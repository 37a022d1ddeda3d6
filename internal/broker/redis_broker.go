package broker

import (
	"context"
	"encoding/json"

	"github.com/Baaaki/flavorshare/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisEventBroker implements EventBroker using Redis pub/sub
type RedisEventBroker struct {
	client     *redis.Client
	ownsClient bool
}

func NewRedisEventBroker(redisURL string) (*RedisEventBroker, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &RedisEventBroker{client: client, ownsClient: true}, nil
}

// NewRedisEventBrokerWithClient shares an existing client; Close leaves it open.
func NewRedisEventBrokerWithClient(client *redis.Client) *RedisEventBroker {
	return &RedisEventBroker{client: client}
}

func (r *RedisEventBroker) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, EventsChannel, data).Err()
}

func (r *RedisEventBroker) Subscribe(ctx context.Context) (<-chan Event, error) {
	pubsub := r.client.Subscribe(ctx, EventsChannel)
	// Wait for the subscription to be confirmed so no event published after
	// Subscribe returns is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	events := make(chan Event, 100)

	go func() {
		defer close(events)
		defer pubsub.Close()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}

				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					logger.Log.Warn("Dropping malformed event", zap.Error(err))
					continue
				}

				select {
				case events <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return events, nil
}

func (r *RedisEventBroker) Close() error {
	if !r.ownsClient {
		return nil
	}
	return r.client.Close()
}
