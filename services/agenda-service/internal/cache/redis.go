package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/plicometria/agenda/services/agenda-service/internal/model"
	"github.com/redis/go-redis/v9"
)

const DefaultKey = "agenda:appointments"

// RedisBacking stores the cache as a Redis hash: field = appointment id,
// value = the full JSON record, interchangeable with the store representation.
type RedisBacking struct {
	rdb *redis.Client
	key string
}

func NewRedisBacking(rdb *redis.Client, key string) *RedisBacking {
	if key == "" {
		key = DefaultKey
	}
	return &RedisBacking{rdb: rdb, key: key}
}

func (b *RedisBacking) LoadAll(ctx context.Context) (map[string]model.Appointment, error) {
	raw, err := b.rdb.HGetAll(ctx, b.key).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.Appointment, len(raw))
	for id, data := range raw {
		var appt model.Appointment
		if err := json.Unmarshal([]byte(data), &appt); err != nil {
			return nil, fmt.Errorf("decode cached appointment %s: %w", id, err)
		}
		out[id] = appt
	}
	return out, nil
}

func (b *RedisBacking) Store(ctx context.Context, appt model.Appointment) error {
	data, err := json.Marshal(appt)
	if err != nil {
		return err
	}
	return b.rdb.HSet(ctx, b.key, appt.ID, data).Err()
}

func (b *RedisBacking) StoreAll(ctx context.Context, appts []model.Appointment) error {
	if len(appts) == 0 {
		return nil
	}
	pipe := b.rdb.Pipeline()
	for _, appt := range appts {
		data, err := json.Marshal(appt)
		if err != nil {
			return err
		}
		pipe.HSet(ctx, b.key, appt.ID, data)
	}
	_, err := pipe.Exec(ctx)
	return err
}
