package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"boardchat/internal/core/domain"
	"boardchat/internal/core/ports"
	"boardchat/pkg/tracing"

	"github.com/redis/go-redis/v9"
)

type RedisMessageRepository struct {
	client *redis.Client
	keys   keyspace
}

func NewRedisMessageRepository(client *redis.Client, prefix string) ports.MessageRepository {
	return &RedisMessageRepository{client: client, keys: keyspace{prefix: prefix}}
}

// Create writes the message and its history entry in one MULTI/EXEC.
func (r *RedisMessageRepository) Create(ctx context.Context, message *domain.Message) error {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "create", "messages")
	defer span.End()

	stored := *message
	stored.CreatorName = ""
	data, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.keys.message(message.ID), data, 0)
		pipe.ZAdd(ctx, r.keys.channelHistory(message.ChannelID), redis.Z{
			Score:  score(message.CreatedAt),
			Member: string(message.ID),
		})
		return nil
	})
	if err != nil {
		tracing.RecordError(ctx, err)
		return fmt.Errorf("failed to store message in Redis: %w", err)
	}
	return nil
}

func (r *RedisMessageRepository) GetByID(ctx context.Context, id domain.MessageID) (*domain.Message, error) {
	data, err := r.client.Get(ctx, r.keys.message(id)).Result()
	if err == redis.Nil {
		return nil, domain.ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message from Redis: %w", err)
	}

	var m domain.Message
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	return &m, nil
}

// Delete drops the message and its history entry in one MULTI/EXEC.
func (r *RedisMessageRepository) Delete(ctx context.Context, channelID domain.ChannelID, id domain.MessageID) error {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "delete", "messages")
	defer span.End()

	m, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if m.ChannelID != channelID {
		return domain.ErrMessageNotFound
	}

	var del *redis.IntCmd
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, r.keys.message(id))
		pipe.ZRem(ctx, r.keys.channelHistory(channelID), string(id))
		return nil
	})
	if err != nil {
		tracing.RecordError(ctx, err)
		return fmt.Errorf("failed to delete message in Redis: %w", err)
	}
	if del.Val() == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}

// ListByChannel pages by (score, member). Redis orders equal scores by
// member, so entries tied with the cursor's timestamp are read separately
// and only those with a smaller id are kept.
func (r *RedisMessageRepository) ListByChannel(ctx context.Context, channelID domain.ChannelID, cursor domain.HistoryCursor, limit int) ([]*domain.Message, error) {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "list", "messages")
	defer span.End()
	start := time.Now()
	defer tracing.MeasureDuration(ctx, start, "redis.list_messages")

	key := r.keys.channelHistory(channelID)
	exact := strconv.FormatInt(cursor.Before.UnixMicro(), 10)
	older := &redis.ZRangeBy{Min: "-inf", Max: "(" + exact}
	if limit > 0 {
		older.Count = int64(limit)
	}

	pipe := r.client.Pipeline()
	tiesCmd := pipe.ZRevRangeByScore(ctx, key, &redis.ZRangeBy{Min: exact, Max: exact})
	olderCmd := pipe.ZRevRangeByScore(ctx, key, older)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to read channel history: %w", err)
	}

	// newest first
	var ids []string
	for _, id := range tiesCmd.Val() {
		if domain.MessageID(id) < cursor.BeforeID {
			ids = append(ids, id)
		}
	}
	ids = append(ids, olderCmd.Val()...)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	if len(ids) == 0 {
		return []*domain.Message{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		// flip to oldest first
		keys[len(ids)-1-i] = r.keys.message(domain.MessageID(id))
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	messages := make([]*domain.Message, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var m domain.Message
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		messages = append(messages, &m)
	}
	return messages, nil
}
