package reliability

import (
	"context"
	"errors"

	"boardchat/internal/core/domain"
	"boardchat/internal/core/ports"
	"boardchat/pkg/circuitbreaker"
	"boardchat/pkg/retry"

	"go.uber.org/zap"
)

// StoreWrapper guards a MessageStore with a circuit breaker. Reads are also
// retried with backoff; writes are not, because a create that timed out may
// still have committed.
type StoreWrapper struct {
	store          ports.MessageStore
	logger         *zap.SugaredLogger
	retryConfig    retry.Config
	circuitBreaker *circuitbreaker.CircuitBreaker
}

func NewStoreWrapper(
	store ports.MessageStore,
	retryConfig retry.Config,
	cbConfig circuitbreaker.Config,
	logger *zap.SugaredLogger,
) *StoreWrapper {
	retryConfig.ShouldRetry = isStorageFailure
	cbConfig.IsFailure = isStorageFailure

	wrapper := &StoreWrapper{
		store:          store,
		logger:         logger,
		retryConfig:    retryConfig,
		circuitBreaker: circuitbreaker.New(cbConfig),
	}

	wrapper.circuitBreaker.OnStateChange(func(from, to circuitbreaker.State) {
		logger.Warnw("Store circuit breaker state changed",
			"from", from.String(),
			"to", to.String(),
		)
	})

	return wrapper
}

var _ ports.MessageStore = (*StoreWrapper)(nil)

func (w *StoreWrapper) CreateMessage(ctx context.Context, msg domain.NewMessage) (*domain.Message, error) {
	m, err := circuitbreaker.Call(ctx, w.circuitBreaker, func() (*domain.Message, error) {
		return w.store.CreateMessage(ctx, msg)
	})
	return m, w.mapError("create_message", err)
}

func (w *StoreWrapper) FindChannel(ctx context.Context, channelID domain.ChannelID) (*domain.Channel, error) {
	return read(ctx, w, "find_channel", func() (*domain.Channel, error) {
		return w.store.FindChannel(ctx, channelID)
	})
}

func (w *StoreWrapper) IsBoardMember(ctx context.Context, boardID domain.BoardID, userID domain.UserID) (bool, error) {
	return read(ctx, w, "is_board_member", func() (bool, error) {
		return w.store.IsBoardMember(ctx, boardID, userID)
	})
}

func (w *StoreWrapper) EnrichCreator(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	return read(ctx, w, "enrich_creator", func() (*domain.Message, error) {
		return w.store.EnrichCreator(ctx, msg)
	})
}

func (w *StoreWrapper) ListMessages(ctx context.Context, channelID domain.ChannelID, cursor domain.HistoryCursor, limit int) ([]*domain.Message, error) {
	return read(ctx, w, "list_messages", func() ([]*domain.Message, error) {
		return w.store.ListMessages(ctx, channelID, cursor, limit)
	})
}

// BreakerState exposes the breaker for health reporting.
func (w *StoreWrapper) BreakerState() circuitbreaker.State {
	return w.circuitBreaker.GetState()
}

func read[T any](ctx context.Context, w *StoreWrapper, op string, fn func() (T, error)) (T, error) {
	v, err := retry.Do(ctx, w.retryConfig, func() (T, error) {
		return circuitbreaker.Call(ctx, w.circuitBreaker, fn)
	})
	return v, w.mapError(op, err)
}

// mapError keeps the store's error contract: anything that is not already a
// domain error becomes a StorageError.
func (w *StoreWrapper) mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return &domain.StorageError{Kind: domain.StorageWriteFailed, Op: op, Cause: err}
	}
	if isStorageFailure(err) || errors.Is(err, domain.ErrNotAMember) || errors.Is(err, domain.ErrValidation) {
		return err
	}
	kind := domain.StorageWriteFailed
	if errors.Is(err, context.DeadlineExceeded) {
		kind = domain.StorageTimeout
	}
	return &domain.StorageError{Kind: kind, Op: op, Cause: err}
}

func isStorageFailure(err error) bool {
	return errors.Is(err, domain.ErrStorage)
}
