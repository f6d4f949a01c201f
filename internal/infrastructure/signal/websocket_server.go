package signal

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"sync"
	"time"

	"boardchat/internal/core/domain"
	"boardchat/internal/core/ports"
	"boardchat/pkg/config"
	"boardchat/pkg/errors"
	"boardchat/pkg/logger"
	"boardchat/pkg/utils"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// CloseAuthFailed is sent when a connection fails to authenticate after the
// upgrade.
const CloseAuthFailed = 4401

// Connection outcomes reported to Metrics.
const (
	OutcomeAccepted   = "accepted"
	OutcomeRejected   = "rejected"
	OutcomeAuthFailed = "auth_failed"
)

// SessionRegistry is the part of the room registry a connection drives.
type SessionRegistry interface {
	Register(session *domain.Session, sink ports.EventSink) error
	Join(room domain.RoomID, sessionID domain.SessionID) error
	Leave(room domain.RoomID, sessionID domain.SessionID)
	Terminate(sessionID domain.SessionID) []domain.RoomID
}

// ChannelAuthorizer answers whether a user may subscribe to a room.
type ChannelAuthorizer interface {
	AuthorizeChannel(ctx context.Context, userID domain.UserID, channelID domain.ChannelID) (*domain.Channel, error)
	AuthorizeBoard(ctx context.Context, userID domain.UserID, boardID domain.BoardID) error
}

type Metrics interface {
	RecordEvent(event string)
	RecordConnection(outcome string)
}

type noopMetrics struct{}

func (noopMetrics) RecordEvent(string)      {}
func (noopMetrics) RecordConnection(string) {}

type Options struct {
	AuthTimeout       time.Duration
	PingInterval      time.Duration
	PongTimeout       time.Duration
	WriteTimeout      time.Duration
	SendQueueSize     int
	AllowedOrigins    []string
	MessagesPerSecond float64
	Burst             int
	MaxMessageSize    int64
}

// OptionsFromConfig reads the signal and websocket rate limit sections.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := Options{
		AuthTimeout:    cfg.Signal.AuthTimeout,
		PingInterval:   cfg.Signal.PingInterval,
		PongTimeout:    cfg.Signal.PongTimeout,
		WriteTimeout:   cfg.Signal.WriteTimeout,
		SendQueueSize:  cfg.Signal.SendQueueSize,
		AllowedOrigins: cfg.Signal.AllowedOrigins,
		MaxMessageSize: cfg.RateLimiting.WebSocket.MaxMessageSizeBytes,
	}
	if cfg.RateLimiting.Enabled {
		opts.MessagesPerSecond = cfg.RateLimiting.WebSocket.MessagesPerSecond
		opts.Burst = cfg.RateLimiting.WebSocket.Burst
	}
	return opts
}

// WebSocketServer terminates client connections. Each authenticated
// connection becomes one session in the registry; inbound events are
// handled in arrival order on the connection's read goroutine.
type WebSocketServer struct {
	verifier ports.IdentityVerifier
	registry SessionRegistry
	exchange ports.MessageExchange
	channels ChannelAuthorizer
	notifier ports.TopologyNotifier
	metrics  Metrics

	opts     Options
	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[domain.SessionID]*connSink
	closing  bool
	wg       sync.WaitGroup

	logger *zap.SugaredLogger
	log    *logger.ContextLogger
}

func NewWebSocketServer(
	verifier ports.IdentityVerifier,
	registry SessionRegistry,
	exchange ports.MessageExchange,
	channels ChannelAuthorizer,
	notifier ports.TopologyNotifier,
	metrics Metrics,
	opts Options,
	log *zap.SugaredLogger,
) *WebSocketServer {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if opts.SendQueueSize <= 0 {
		opts.SendQueueSize = 64
	}
	s := &WebSocketServer{
		verifier: verifier,
		registry: registry,
		exchange: exchange,
		channels: channels,
		notifier: notifier,
		metrics:  metrics,
		opts:     opts,
		sessions: make(map[domain.SessionID]*connSink),
		logger:   log,
		log:      logger.NewContextLogger(log),
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin:     s.checkOrigin,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	return s
}

func (s *WebSocketServer) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.opts.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range s.opts.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// HandleWebSocket authenticates, upgrades and serves one connection. A
// credential in the Authorization header or the token query parameter is
// checked before the upgrade; otherwise the first frame must be an
// authenticate event sent within the auth timeout.
func (s *WebSocketServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	credential := utils.BearerToken(r.Header.Get("Authorization"))
	if credential == "" {
		credential = r.URL.Query().Get("token")
	}

	var (
		identity      domain.Identity
		authenticated bool
	)
	if credential != "" {
		var err error
		identity, err = s.verify(ctx, credential)
		if err != nil {
			s.metrics.RecordConnection(OutcomeAuthFailed)
			s.logger.Infow("Websocket authentication failed",
				"remote_addr", r.RemoteAddr,
				"credential", utils.MaskSensitive(credential, 8),
				"error", err,
			)
			appErr := errors.FromDomain(err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":   string(appErr.Code),
				"message": appErr.Message,
			})
			return
		}
		authenticated = true
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.metrics.RecordConnection(OutcomeRejected)
		s.logger.Warnw("Websocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()

	if s.opts.MaxMessageSize > 0 {
		conn.SetReadLimit(s.opts.MaxMessageSize)
	}

	if !authenticated {
		identity, err = s.authenticateFirstFrame(ctx, conn)
		if err != nil {
			s.metrics.RecordConnection(OutcomeAuthFailed)
			s.logger.Infow("Websocket authentication failed", "remote_addr", r.RemoteAddr, "error", err)
			s.rejectAfterUpgrade(conn, err)
			return
		}
	}

	s.serve(ctx, conn, identity)
}

// authenticateFirstFrame waits for {"event":"authenticate","data":{"token":...}}.
func (s *WebSocketServer) authenticateFirstFrame(ctx context.Context, conn *websocket.Conn) (domain.Identity, error) {
	deadline := time.Now().Add(s.opts.AuthTimeout)
	_ = conn.SetReadDeadline(deadline)
	defer conn.SetReadDeadline(time.Time{})

	var frame inboundFrame
	if err := conn.ReadJSON(&frame); err != nil {
		var netErr interface{ Timeout() bool }
		if stderrors.As(err, &netErr) && netErr.Timeout() {
			return domain.Identity{}, domain.NewAuthError(domain.AuthTimeout, err)
		}
		return domain.Identity{}, domain.NewAuthError(domain.AuthInvalid, err)
	}
	if frame.Event != domain.EventAuthenticate {
		return domain.Identity{}, domain.NewAuthError(domain.AuthInvalid, stderrors.New("first frame must authenticate"))
	}

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(frame.Data, &payload); err != nil || payload.Token == "" {
		return domain.Identity{}, domain.NewAuthError(domain.AuthInvalid, stderrors.New("missing token"))
	}

	verifyCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()
	return s.verify(verifyCtx, payload.Token)
}

func (s *WebSocketServer) verify(ctx context.Context, credential string) (domain.Identity, error) {
	if s.opts.AuthTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.AuthTimeout)
		defer cancel()
	}
	return s.verifier.Verify(ctx, credential)
}

func (s *WebSocketServer) rejectAfterUpgrade(conn *websocket.Conn, err error) {
	deadline := time.Now().Add(s.opts.WriteTimeout)
	_ = conn.SetWriteDeadline(deadline)
	if frame, encErr := newErrorFrame(domain.EventAuthenticate, err); encErr == nil {
		_ = conn.WriteJSON(frame)
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(CloseAuthFailed, "authentication failed"), deadline)
}

// serve registers the session, runs its write pump and reads until the
// connection drops. The session is terminated before serve returns.
func (s *WebSocketServer) serve(ctx context.Context, conn *websocket.Conn, identity domain.Identity) {
	session := &domain.Session{
		ID:          domain.SessionID(utils.NewSessionID()),
		Identity:    identity,
		ConnectedAt: utils.Now().UTC(),
	}
	ctx = logger.WithSessionID(ctx, string(session.ID))
	ctx = logger.WithUserID(ctx, string(identity.UserID))

	sink := newConnSink(s.opts.SendQueueSize)
	if !s.track(session.ID, sink) {
		s.metrics.RecordConnection(OutcomeRejected)
		return
	}
	defer s.untrack(session.ID)

	if err := s.registry.Register(session, sink); err != nil {
		s.metrics.RecordConnection(OutcomeRejected)
		s.log.Errorw(ctx, err, "Session registration failed")
		return
	}
	s.metrics.RecordConnection(OutcomeAccepted)
	s.log.Infow(ctx, "Session connected", "username", identity.Username)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writePump(conn, sink)
	}()

	s.readPump(ctx, conn, session, sink)

	rooms := s.registry.Terminate(session.ID)
	<-writerDone
	s.log.Infow(ctx, "Session disconnected",
		"rooms", len(rooms),
		"duration", time.Since(session.ConnectedAt).String(),
	)
}

func (s *WebSocketServer) readPump(ctx context.Context, conn *websocket.Conn, session *domain.Session, sink *connSink) {
	_ = conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
	})

	var limiter *rate.Limiter
	if s.opts.MessagesPerSecond > 0 {
		burst := s.opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(s.opts.MessagesPerSecond), burst)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Infow(ctx, "Websocket read failed", "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))

		select {
		case <-sink.Done():
			// Evicted as a slow consumer.
			return
		default:
		}

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil || frame.Event == "" {
			s.replyError(ctx, sink, "", &domain.ValidationError{Fields: []string{"event"}, Reason: "malformed frame"})
			continue
		}

		if limiter != nil && !limiter.Allow() {
			s.replyError(ctx, sink, frame.Event, errors.NewRateLimitError())
			continue
		}

		s.dispatch(ctx, session, sink, frame)
	}
}

func (s *WebSocketServer) writePump(conn *websocket.Conn, sink *connSink) {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case event := <-sink.send:
			_ = conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if err := conn.WriteJSON(event); err != nil {
				s.logger.Debugw("Websocket write failed", "error", err)
				conn.Close()
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}

		case <-sink.Done():
			deadline := time.Now().Add(s.opts.WriteTimeout)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			conn.Close()
			return
		}
	}
}

func (s *WebSocketServer) track(id domain.SessionID, sink *connSink) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.sessions[id] = sink
	s.wg.Add(1)
	return true
}

func (s *WebSocketServer) untrack(id domain.SessionID) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	s.wg.Done()
}

// ConnectedSessions returns the number of live sessions.
func (s *WebSocketServer) ConnectedSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Shutdown stops accepting sessions, closes every live one and waits for
// their teardown or for ctx to expire.
func (s *WebSocketServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	for _, sink := range s.sessions {
		sink.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
