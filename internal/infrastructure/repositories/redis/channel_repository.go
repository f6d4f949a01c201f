package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"boardchat/internal/core/domain"
	"boardchat/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

type RedisChannelRepository struct {
	client *redis.Client
	keys   keyspace
}

func NewRedisChannelRepository(client *redis.Client, prefix string) ports.ChannelRepository {
	return &RedisChannelRepository{client: client, keys: keyspace{prefix: prefix}}
}

func (r *RedisChannelRepository) Create(ctx context.Context, channel *domain.Channel) error {
	data, err := json.Marshal(channel)
	if err != nil {
		return fmt.Errorf("failed to marshal channel: %w", err)
	}

	created, err := r.client.SetNX(ctx, r.keys.channel(channel.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to set channel in Redis: %w", err)
	}
	if !created {
		return domain.ErrChannelExists
	}

	err = r.client.ZAdd(ctx, r.keys.boardChannels(channel.BoardID), redis.Z{
		Score:  score(channel.CreatedAt),
		Member: string(channel.ID),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to index channel: %w", err)
	}
	return nil
}

func (r *RedisChannelRepository) GetByID(ctx context.Context, id domain.ChannelID) (*domain.Channel, error) {
	data, err := r.client.Get(ctx, r.keys.channel(id)).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrChannelNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get channel from Redis: %w", err)
	}

	var channel domain.Channel
	if err := json.Unmarshal(data, &channel); err != nil {
		return nil, fmt.Errorf("failed to unmarshal channel: %w", err)
	}
	return &channel, nil
}

// Delete removes the channel, its board index entry and its history.
func (r *RedisChannelRepository) Delete(ctx context.Context, id domain.ChannelID) error {
	channel, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	ids, err := r.client.ZRange(ctx, r.keys.channelHistory(id), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to read channel history: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.keys.channel(id), r.keys.channelHistory(id))
		pipe.ZRem(ctx, r.keys.boardChannels(channel.BoardID), string(id))
		for _, msgID := range ids {
			pipe.Del(ctx, r.keys.message(domain.MessageID(msgID)))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete channel from Redis: %w", err)
	}
	return nil
}

func (r *RedisChannelRepository) ListByBoard(ctx context.Context, boardID domain.BoardID) ([]*domain.Channel, error) {
	ids, err := r.client.ZRange(ctx, r.keys.boardChannels(boardID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list board channels: %w", err)
	}

	channels := make([]*domain.Channel, 0, len(ids))
	for _, id := range ids {
		channel, err := r.GetByID(ctx, domain.ChannelID(id))
		if err == domain.ErrChannelNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		channels = append(channels, channel)
	}
	return channels, nil
}
