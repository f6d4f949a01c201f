package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"boardchat/internal/core/domain"
	"boardchat/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

type RedisBoardRepository struct {
	client *redis.Client
	keys   keyspace
}

func NewRedisBoardRepository(client *redis.Client, prefix string) ports.BoardRepository {
	return &RedisBoardRepository{client: client, keys: keyspace{prefix: prefix}}
}

// Create stores the board and adds its admin to the member set.
func (r *RedisBoardRepository) Create(ctx context.Context, board *domain.Board) error {
	data, err := json.Marshal(board)
	if err != nil {
		return fmt.Errorf("failed to marshal board: %w", err)
	}

	created, err := r.client.SetNX(ctx, r.keys.board(board.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to set board in Redis: %w", err)
	}
	if !created {
		return fmt.Errorf("board already exists: %s", board.ID)
	}

	if board.AdminID != "" {
		if err := r.client.SAdd(ctx, r.keys.boardMembers(board.ID), string(board.AdminID)).Err(); err != nil {
			return fmt.Errorf("failed to add board admin to members: %w", err)
		}
	}
	return nil
}

func (r *RedisBoardRepository) GetByID(ctx context.Context, id domain.BoardID) (*domain.Board, error) {
	data, err := r.client.Get(ctx, r.keys.board(id)).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrBoardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get board from Redis: %w", err)
	}

	var board domain.Board
	if err := json.Unmarshal(data, &board); err != nil {
		return nil, fmt.Errorf("failed to unmarshal board: %w", err)
	}
	return &board, nil
}

func (r *RedisBoardRepository) AddMember(ctx context.Context, boardID domain.BoardID, userID domain.UserID) error {
	exists, err := r.client.Exists(ctx, r.keys.board(boardID)).Result()
	if err != nil {
		return fmt.Errorf("failed to check board in Redis: %w", err)
	}
	if exists == 0 {
		return domain.ErrBoardNotFound
	}

	if err := r.client.SAdd(ctx, r.keys.boardMembers(boardID), string(userID)).Err(); err != nil {
		return fmt.Errorf("failed to add board member: %w", err)
	}
	return nil
}

func (r *RedisBoardRepository) IsMember(ctx context.Context, boardID domain.BoardID, userID domain.UserID) (bool, error) {
	ok, err := r.client.SIsMember(ctx, r.keys.boardMembers(boardID), string(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check board membership: %w", err)
	}
	return ok, nil
}
