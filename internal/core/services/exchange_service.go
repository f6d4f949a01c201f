package services

import (
	"context"
	"errors"
	"time"

	"boardchat/internal/core/domain"
	"boardchat/internal/core/ports"
	"boardchat/pkg/logger"
	"boardchat/pkg/tracing"
	"boardchat/pkg/utils"
	"boardchat/pkg/validation"

	"go.uber.org/zap"
)

// Stage names a step of a message submission.
type Stage string

const (
	StageReceived     Stage = "received"
	StageValidating   Stage = "validate"
	StageAuthorizing  Stage = "authorize"
	StagePersisting   Stage = "persist"
	StageEnriching    Stage = "enrich"
	StageBroadcasting Stage = "broadcast"
)

// Outcome labels for the messages counter.
const (
	ResultBroadcast    = "broadcast"
	ResultInvalid      = "invalid"
	ResultUnauthorized = "unauthorized"
	ResultStorageError = "storage_error"
)

type submitPayload struct {
	ChannelID string `json:"channelId" validate:"required,max=100,entityid"`
	Content   string `json:"content" validate:"required,notblank,runemax=4000"`
}

type exchangeService struct {
	store       ports.MessageStore
	broadcaster ports.Broadcaster
	sequencer   *channelSequencer
	metrics     ports.Metrics
	log         *logger.ContextLogger
}

func NewMessageExchange(
	store ports.MessageStore,
	broadcaster ports.Broadcaster,
	metrics ports.Metrics,
	log *zap.SugaredLogger,
) ports.MessageExchange {
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	return &exchangeService{
		store:       store,
		broadcaster: broadcaster,
		sequencer:   newChannelSequencer(),
		metrics:     metrics,
		log:         logger.NewContextLogger(log),
	}
}

// Submit takes a message from receipt to broadcast. Any failure exits the
// state machine with nothing broadcast. Once persistence begins the attempt
// no longer observes ctx cancellation, so a disconnecting sender cannot
// leave a stored message unbroadcast.
func (s *exchangeService) Submit(ctx context.Context, identity domain.Identity, sub ports.Submission) (*domain.Message, error) {
	ctx = logger.WithUserID(ctx, string(identity.UserID))
	s.log.Debugw(ctx, "Message received", "channel_id", sub.ChannelID, "stage", StageReceived)

	content, err := s.validate(ctx, identity, sub)
	if err != nil {
		result := ResultInvalid
		if errors.Is(err, domain.ErrNotAMember) {
			result = ResultUnauthorized
		}
		s.fail(ctx, StageValidating, sub.ChannelID, result, err)
		return nil, err
	}

	if err := s.authorize(ctx, identity, sub.ChannelID); err != nil {
		result := ResultUnauthorized
		if errors.Is(err, domain.ErrStorage) {
			result = ResultStorageError
		}
		s.fail(ctx, StageAuthorizing, sub.ChannelID, result, err)
		return nil, err
	}

	detached := context.WithoutCancel(ctx)
	ticket := s.sequencer.Acquire(sub.ChannelID)

	msg, err := s.persist(detached, identity, sub.ChannelID, content)
	if err != nil {
		ticket.Release()
		s.fail(ctx, StagePersisting, sub.ChannelID, ResultStorageError, err)
		return nil, err
	}

	canonical := s.enrich(detached, msg)

	delivered, err := s.broadcast(detached, ticket, canonical)
	if err != nil {
		// The message is stored; only the fan-out failed.
		s.log.Errorw(ctx, err, "Broadcast encoding failed", "message_id", msg.ID)
	}

	s.metrics.RecordMessage(ResultBroadcast)
	s.log.Debugw(ctx, "Message broadcast",
		"stage", StageBroadcasting,
		"message_id", canonical.ID,
		"channel_id", canonical.ChannelID,
		"preview", utils.TruncateString(canonical.Content, 40),
		"recipients", delivered,
	)
	return canonical, nil
}

func (s *exchangeService) validate(ctx context.Context, identity domain.Identity, sub ports.Submission) (string, error) {
	_, span := tracing.TraceExchangeStage(ctx, string(StageValidating), string(sub.ChannelID))
	defer span.End()

	if err := validation.Struct(submitPayload{ChannelID: string(sub.ChannelID), Content: sub.Content}); err != nil {
		return "", err
	}
	content, err := validation.NormalizeContent(sub.Content)
	if err != nil {
		return "", err
	}
	if sub.CreatorID != "" && sub.CreatorID != identity.UserID {
		return "", &domain.AuthorizationError{UserID: identity.UserID, ChannelID: sub.ChannelID}
	}
	return content, nil
}

func (s *exchangeService) authorize(ctx context.Context, identity domain.Identity, channelID domain.ChannelID) error {
	ctx, span := tracing.TraceExchangeStage(ctx, string(StageAuthorizing), string(channelID))
	defer span.End()

	channel, err := s.store.FindChannel(ctx, channelID)
	if err != nil {
		tracing.RecordError(ctx, err)
		return err
	}
	if channel == nil {
		return &domain.AuthorizationError{UserID: identity.UserID, ChannelID: channelID}
	}

	member, err := s.store.IsBoardMember(ctx, channel.BoardID, identity.UserID)
	if err != nil {
		tracing.RecordError(ctx, err)
		return err
	}
	if !member {
		return &domain.AuthorizationError{UserID: identity.UserID, ChannelID: channelID, BoardID: channel.BoardID}
	}
	return nil
}

func (s *exchangeService) persist(ctx context.Context, identity domain.Identity, channelID domain.ChannelID, content string) (*domain.Message, error) {
	ctx, span := tracing.TraceExchangeStage(ctx, string(StagePersisting), string(channelID))
	defer span.End()

	start := time.Now()
	msg, err := s.store.CreateMessage(ctx, domain.NewMessage{
		ChannelID: channelID,
		CreatorID: identity.UserID,
		Content:   content,
	})
	s.metrics.ObservePersist(time.Since(start))
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, err
	}
	return msg, nil
}

// enrich never fails the attempt: without a creator name the stored message
// is still the canonical one.
func (s *exchangeService) enrich(ctx context.Context, msg *domain.Message) *domain.Message {
	ctx, span := tracing.TraceExchangeStage(ctx, string(StageEnriching), string(msg.ChannelID))
	defer span.End()

	enriched, err := s.store.EnrichCreator(ctx, msg)
	if err != nil {
		tracing.RecordError(ctx, err)
		s.log.Warnw(ctx, "Creator enrichment failed, broadcasting without name",
			"message_id", msg.ID,
			"creator_id", msg.CreatorID,
			"error", err,
		)
		return msg
	}
	return enriched
}

func (s *exchangeService) broadcast(ctx context.Context, ticket *sequenceTicket, msg *domain.Message) (int, error) {
	_, span := tracing.TraceExchangeStage(ctx, string(StageBroadcasting), string(msg.ChannelID))
	defer span.End()

	ticket.Wait()
	defer ticket.Release()

	event, err := domain.NewOutboundEvent(domain.EventNewMessage, msg)
	if err != nil {
		return 0, err
	}
	return s.broadcaster.Broadcast(domain.ChannelRoom(msg.ChannelID), event), nil
}

func (s *exchangeService) fail(ctx context.Context, stage Stage, channelID domain.ChannelID, result string, err error) {
	s.metrics.RecordMessage(result)
	s.log.Debugw(ctx, "Message rejected",
		"stage", stage,
		"channel_id", channelID,
		"result", result,
		"error", err,
	)
}
