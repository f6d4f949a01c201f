package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Migration struct {
	Version     int
	Description string
	Up          func(ctx context.Context, client *redis.Client, keys keyspace) error
}

func migrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "record key layout",
			Up: func(ctx context.Context, client *redis.Client, keys keyspace) error {
				return client.HSet(ctx, keys.prefix+"schema:layout",
					"history", "zset:unix_micro",
					"membership", "set",
					"created_at", time.Now().UTC().Format(time.RFC3339),
				).Err()
			},
		},
	}
}

// CurrentSchemaVersion is the version Migrate brings a database to.
func CurrentSchemaVersion() int {
	all := migrations()
	return all[len(all)-1].Version
}

// Migrate runs every migration newer than the stored schema version.
func Migrate(ctx context.Context, client *redis.Client, prefix string, logger *zap.SugaredLogger) error {
	keys := keyspace{prefix: prefix}

	current, err := SchemaVersion(ctx, client, prefix)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, m := range migrations() {
		if m.Version <= current {
			continue
		}
		logger.Infow("Running migration", "version", m.Version, "description", m.Description)
		if err := m.Up(ctx, client, keys); err != nil {
			return fmt.Errorf("migration %d failed: %w", m.Version, err)
		}
		if err := client.Set(ctx, keys.schemaVersion(), m.Version, 0).Err(); err != nil {
			return fmt.Errorf("failed to update schema version: %w", err)
		}
		current = m.Version
	}

	logger.Debugw("Schema is up to date", "version", current)
	return nil
}

func SchemaVersion(ctx context.Context, client *redis.Client, prefix string) (int, error) {
	val, err := client.Get(ctx, keyspace{prefix: prefix}.schemaVersion()).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(val)
}
