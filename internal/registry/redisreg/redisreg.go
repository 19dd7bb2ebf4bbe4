// Package redisreg implements a Registry backed by Redis: one hash per
// service identity holding its live resources, with pub/sub used to push
// add/remove notifications to subscribers in other processes.
package redisreg

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"gateway/internal/registry"
	"gateway/internal/rpc"
)

var _ registry.Registry = (*Registry)(nil)

const keyPrefix = "gateway:registry:"
const channelPrefix = "gateway:registry:events:"

// Registry publishes and discovers resources through a shared Redis
// instance, the distributed analogue of the static/watchfile registries.
type Registry struct {
	client redis.UniversalClient
}

// New wraps an already-configured go-redis client.
func New(client redis.UniversalClient) *Registry {
	return &Registry{client: client}
}

// Check looks up any member of identity's hash and returns its port.
func (r *Registry) Check(ctx context.Context, identity rpc.ServiceIdentity) (int, bool, error) {
	entries, err := r.client.HGetAll(ctx, hashKey(identity)).Result()
	if err != nil {
		return 0, false, fmt.Errorf("hgetall: %w", err)
	}
	for _, raw := range entries {
		var res rpc.Resource
		if err := json.Unmarshal([]byte(raw), &res); err != nil {
			continue
		}
		return res.Port, true, nil
	}
	return 0, false, nil
}

// Register stores resource in identity's hash and publishes an add event.
func (r *Registry) Register(ctx context.Context, identity rpc.ServiceIdentity, resource rpc.Resource) error {
	return r.publish(ctx, identity, rpc.RegistryEvent{Kind: rpc.EventAdded, Resource: resource})
}

// Deregister removes resource from identity's hash and publishes a remove
// event.
func (r *Registry) Deregister(ctx context.Context, identity rpc.ServiceIdentity, resource rpc.Resource) error {
	return r.publish(ctx, identity, rpc.RegistryEvent{Kind: rpc.EventRemoved, Resource: resource})
}

func (r *Registry) publish(ctx context.Context, identity rpc.ServiceIdentity, event rpc.RegistryEvent) error {
	payload, err := json.Marshal(event.Resource)
	if err != nil {
		return fmt.Errorf("marshal resource: %w", err)
	}

	switch event.Kind {
	case rpc.EventAdded:
		if err := r.client.HSet(ctx, hashKey(identity), event.Resource.Key(), payload).Err(); err != nil {
			return fmt.Errorf("hset: %w", err)
		}
	case rpc.EventRemoved:
		if err := r.client.HDel(ctx, hashKey(identity), event.Resource.Key()).Err(); err != nil {
			return fmt.Errorf("hdel: %w", err)
		}
	}

	envelope, err := json.Marshal(wireEvent{Kind: int(event.Kind), Resource: event.Resource})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return r.client.Publish(ctx, channelKey(identity), envelope).Err()
}

// Subscribe delivers identity's current hash contents as EventAdded, then
// forwards every pub/sub event on identity's channel until ctx is
// canceled.
func (r *Registry) Subscribe(ctx context.Context, identity rpc.ServiceIdentity) (<-chan rpc.RegistryEvent, error) {
	entries, err := r.client.HGetAll(ctx, hashKey(identity)).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall: %w", err)
	}

	pubsub := r.client.Subscribe(ctx, channelKey(identity))
	out := make(chan rpc.RegistryEvent, 16)

	go func() {
		defer close(out)
		defer pubsub.Close()

		for _, raw := range entries {
			var res rpc.Resource
			if err := json.Unmarshal([]byte(raw), &res); err != nil {
				continue
			}
			select {
			case out <- rpc.RegistryEvent{Kind: rpc.EventAdded, Resource: res}:
			case <-ctx.Done():
				return
			}
		}

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var wire wireEvent
				if err := json.Unmarshal([]byte(msg.Payload), &wire); err != nil {
					continue
				}
				select {
				case out <- rpc.RegistryEvent{Kind: rpc.RegistryEventKind(wire.Kind), Resource: wire.Resource}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

type wireEvent struct {
	Kind     int          `json:"kind"`
	Resource rpc.Resource `json:"resource"`
}

func hashKey(identity rpc.ServiceIdentity) string {
	return keyPrefix + identity.Key()
}

func channelKey(identity rpc.ServiceIdentity) string {
	return channelPrefix + identity.Key()
}
