package memory

import (
	"context"
	"fmt"
	"sync"

	"boardchat/internal/core/domain"
	"boardchat/internal/core/ports"
)

type MemoryBoardRepository struct {
	boards  map[domain.BoardID]*domain.Board
	members map[domain.BoardID]map[domain.UserID]struct{}
	mu      sync.RWMutex
}

func NewMemoryBoardRepository() ports.BoardRepository {
	return &MemoryBoardRepository{
		boards:  make(map[domain.BoardID]*domain.Board),
		members: make(map[domain.BoardID]map[domain.UserID]struct{}),
	}
}

// Create stores the board and makes its admin a member.
func (r *MemoryBoardRepository) Create(ctx context.Context, board *domain.Board) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.boards[board.ID]; exists {
		return fmt.Errorf("board already exists: %s", board.ID)
	}

	b := *board
	r.boards[board.ID] = &b
	r.members[board.ID] = map[domain.UserID]struct{}{}
	if board.AdminID != "" {
		r.members[board.ID][board.AdminID] = struct{}{}
	}
	return nil
}

func (r *MemoryBoardRepository) GetByID(ctx context.Context, id domain.BoardID) (*domain.Board, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	board, exists := r.boards[id]
	if !exists {
		return nil, domain.ErrBoardNotFound
	}

	b := *board
	return &b, nil
}

func (r *MemoryBoardRepository) AddMember(ctx context.Context, boardID domain.BoardID, userID domain.UserID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	members, exists := r.members[boardID]
	if !exists {
		return domain.ErrBoardNotFound
	}
	members[userID] = struct{}{}
	return nil
}

// IsMember reports false for unknown boards.
func (r *MemoryBoardRepository) IsMember(ctx context.Context, boardID domain.BoardID, userID domain.UserID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.members[boardID][userID]
	return ok, nil
}
