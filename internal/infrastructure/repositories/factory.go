package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"boardchat/internal/core/domain"
	"boardchat/internal/core/ports"
	"boardchat/internal/infrastructure/repositories/memory"
	redisrepo "boardchat/internal/infrastructure/repositories/redis"
	"boardchat/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Repositories bundles the four repositories a process needs.
type Repositories struct {
	Users    ports.UserRepository
	Boards   ports.BoardRepository
	Channels ports.ChannelRepository
	Messages ports.MessageRepository
}

// RepositoryFactory creates repositories with fallback support
type RepositoryFactory struct {
	useRedis    bool
	prefix      string
	redisClient *redis.Client
	logger      *zap.SugaredLogger
}

// NewRepositoryFactory uses Redis when enabled and reachable, and memory
// repositories otherwise.
func NewRepositoryFactory(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) *RepositoryFactory {
	factory := &RepositoryFactory{
		useRedis: cfg.Redis.Enabled,
		prefix:   cfg.Redis.Prefix,
		logger:   logger,
	}

	if cfg.Redis.Enabled {
		client, err := redisrepo.NewRedisClient(ctx, redisrepo.ClientOptions{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
			Prefix:   cfg.Redis.Prefix,
		}, logger)
		if err != nil {
			logger.Warnw("Failed to connect to Redis, falling back to memory repositories",
				"error", err,
			)
			factory.useRedis = false
		} else {
			factory.redisClient = client
			logger.Info("Using Redis repositories")
		}
	}

	if !factory.useRedis {
		logger.Info("Using memory repositories")
	}

	return factory
}

func (f *RepositoryFactory) UsesRedis() bool {
	return f.useRedis && f.redisClient != nil
}

// RedisClient is nil when memory repositories are in use.
func (f *RepositoryFactory) RedisClient() *redis.Client {
	return f.redisClient
}

func (f *RepositoryFactory) Create() *Repositories {
	if f.UsesRedis() {
		return &Repositories{
			Users:    redisrepo.NewRedisUserRepository(f.redisClient, f.prefix),
			Boards:   redisrepo.NewRedisBoardRepository(f.redisClient, f.prefix),
			Channels: redisrepo.NewRedisChannelRepository(f.redisClient, f.prefix),
			Messages: redisrepo.NewRedisMessageRepository(f.redisClient, f.prefix),
		}
	}
	return &Repositories{
		Users:    memory.NewMemoryUserRepository(),
		Boards:   memory.NewMemoryBoardRepository(),
		Channels: memory.NewMemoryChannelRepository(),
		Messages: memory.NewMemoryMessageRepository(),
	}
}

// Close closes Redis connection if used
func (f *RepositoryFactory) Close() error {
	return redisrepo.CloseRedisClient(f.redisClient)
}

// HealthCheck checks Redis connection health
func (f *RepositoryFactory) HealthCheck(ctx context.Context) error {
	if f.UsesRedis() {
		return f.redisClient.Ping(ctx).Err()
	}
	return nil
}

// Seed loads users, boards, memberships and channels. Records that already
// exist are left untouched, so seeding a persistent store twice is safe.
func Seed(ctx context.Context, repos *Repositories, seed config.Seed, logger *zap.SugaredLogger) error {
	now := time.Now().UTC()

	for _, u := range seed.Users {
		id := domain.UserID(u.ID)
		if _, err := repos.Users.GetByID(ctx, id); err == nil {
			continue
		} else if !errors.Is(err, domain.ErrUserNotFound) {
			return fmt.Errorf("seed user %s: %w", u.ID, err)
		}
		err := repos.Users.Create(ctx, &domain.User{
			ID:        id,
			Username:  u.Username,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			CreatedAt: now,
		})
		if err != nil {
			return fmt.Errorf("seed user %s: %w", u.ID, err)
		}
	}

	for _, b := range seed.Boards {
		id := domain.BoardID(b.ID)
		if _, err := repos.Boards.GetByID(ctx, id); errors.Is(err, domain.ErrBoardNotFound) {
			err := repos.Boards.Create(ctx, &domain.Board{
				ID:        id,
				Name:      b.Name,
				AdminID:   domain.UserID(b.Admin),
				CreatedAt: now,
			})
			if err != nil {
				return fmt.Errorf("seed board %s: %w", b.ID, err)
			}
		} else if err != nil {
			return fmt.Errorf("seed board %s: %w", b.ID, err)
		}

		for _, member := range b.Members {
			if err := repos.Boards.AddMember(ctx, id, domain.UserID(member)); err != nil {
				return fmt.Errorf("seed board %s member %s: %w", b.ID, member, err)
			}
		}

		for i, c := range b.Channels {
			err := repos.Channels.Create(ctx, &domain.Channel{
				ID:        domain.ChannelID(c.ID),
				BoardID:   id,
				Name:      c.Name,
				CreatedBy: domain.UserID(b.Admin),
				CreatedAt: now.Add(time.Duration(i) * time.Millisecond),
			})
			if err != nil && !errors.Is(err, domain.ErrChannelExists) {
				return fmt.Errorf("seed channel %s: %w", c.ID, err)
			}
		}
	}

	logger.Infow("Seed data loaded",
		"users", len(seed.Users),
		"boards", len(seed.Boards),
	)
	return nil
}
