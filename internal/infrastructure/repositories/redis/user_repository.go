package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"boardchat/internal/core/domain"
	"boardchat/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

type RedisUserRepository struct {
	client *redis.Client
	keys   keyspace
}

func NewRedisUserRepository(client *redis.Client, prefix string) ports.UserRepository {
	return &RedisUserRepository{client: client, keys: keyspace{prefix: prefix}}
}

func (r *RedisUserRepository) Create(ctx context.Context, user *domain.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	created, err := r.client.SetNX(ctx, r.keys.user(user.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to set user in Redis: %w", err)
	}
	if !created {
		return fmt.Errorf("user already exists: %s", user.ID)
	}
	return nil
}

func (r *RedisUserRepository) GetByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	data, err := r.client.Get(ctx, r.keys.user(id)).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user from Redis: %w", err)
	}

	var user domain.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return &user, nil
}
