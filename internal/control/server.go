package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	internallog "github.com/direclaw/direclaw/internal/log"
	"github.com/direclaw/direclaw/internal/queue"
)

// StatusProvider is the supervisor's runtime status, as reported by
// internal/supervisor.Status. Kept as a local interface (rather than
// importing internal/supervisor) so this package has no dependency on
// the daemon it is embedded in; cmd/direclawd wires the concrete type.
type StatusProvider interface {
	Status() (any, error)
}

// Sender is the subset of internal/channel.LocalAdapter the control
// plane's send handler needs: write one request for the queue worker to
// pick up.
type Sender interface {
	WriteRequest(req *SendRequest) error
}

// ReplyReader is the subset of internal/channel.LocalAdapter the attach
// handler needs: poll for a delivered reply by message id.
type ReplyReader interface {
	ReadReply(messageID string) (*queue.OutgoingMessage, bool, error)
}

// SendRequest mirrors channel.LocalRequest's JSON shape; kept as a
// distinct type so this package doesn't import internal/channel just for
// a struct tag layout, and cmd/direclawd adapts between the two with a
// one-line conversion.
type SendRequest struct {
	Sender         string   `json:"sender"`
	SenderID       string   `json:"senderId"`
	Message        string   `json:"message"`
	ConversationID string   `json:"conversationId,omitempty"`
	Files          []string `json:"files,omitempty"`
	MessageID      string   `json:"messageId"`
	Timestamp      int64    `json:"timestamp"`
}

// AttachPollInterval and AttachDefaultTimeout bound the attach handler's
// long-poll loop: how often it checks for a reply, and how long it waits
// before returning 204 so the CLI can retry instead of hanging forever
// behind a reverse proxy or terminal timeout.
const (
	AttachPollInterval   = 200 * time.Millisecond
	AttachDefaultTimeout = 25 * time.Second
)

// Config wires a Server to the daemon components it fronts and the
// secret its tokens are signed with.
type Config struct {
	SocketPath  string
	Secret      []byte
	Status      StatusProvider
	Sender      Sender
	Replies     ReplyReader
	RateLimiter *RateLimiter // nil disables rate limiting
	Logger      *slog.Logger
}

// Server is DireClaw's local control plane: an HTTP API reachable only
// over a unix domain socket at 0600 permissions, authenticated by a
// short-lived JWT the CLI mints from the same session secret the
// supervisor wrote to disk. Grounded on the teacher's internal/daemon
// API server shape (router + per-route handlers, JSON via httputil-style
// helpers) collapsed onto exactly the three verbs DireClaw's control
// plane needs: status, send, attach.
type Server struct {
	cfg    Config
	logger *slog.Logger
	srv    *http.Server
	ln     net.Listener
}

// NewServer builds a Server from cfg. Call Serve to start accepting
// connections.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{cfg: cfg, logger: internallog.WithComponent(logger, "control")}
	s.srv = &http.Server{Handler: s.routes()}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/status", s.handleStatus)
	mux.HandleFunc("POST /v1/send", s.handleSend)
	mux.HandleFunc("GET /v1/attach", s.handleAttach)

	var h http.Handler = mux
	if s.cfg.RateLimiter != nil {
		h = s.cfg.RateLimiter.Middleware(clientKey, h)
	}
	h = s.authMiddleware(h)
	return h
}

// clientKey derives the rate-limit bucket key from the request's
// validated claims, falling back to "_anonymous_" when the claims carry
// no ClientID.
func clientKey(r *http.Request) string {
	if claims, ok := claimsFromContext(r.Context()); ok && claims.ClientID != "" {
		return claims.ClientID
	}
	return "_anonymous_"
}

type claimsContextKey struct{}

func claimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*Claims)
	return claims, ok
}

// authMiddleware validates the bearer token on every request before it
// reaches a handler; there is no unauthenticated route, including
// status, since even liveness information is scoped to the attached CLI.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := extractBearerToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		claims, err := ValidateToken(s.cfg.Secret, token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Serve binds the unix socket and blocks until ctx is cancelled or the
// server errors. It always closes its listener before returning.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := Listen(s.cfg.SocketPath)
	if err != nil {
		return err
	}
	s.ln = ln

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("control server shutdown", internallog.Error(err))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Status == nil {
		writeError(w, http.StatusServiceUnavailable, "status provider not configured")
		return
	}
	status, err := s.cfg.Status.Status()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Sender == nil {
		writeError(w, http.StatusServiceUnavailable, "send is not configured")
		return
	}
	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.MessageID == "" {
		writeError(w, http.StatusBadRequest, "messageId is required")
		return
	}
	if err := s.cfg.Sender.WriteRequest(&req); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"messageId": req.MessageID})
}

func (s *Server) handleAttach(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Replies == nil {
		writeError(w, http.StatusServiceUnavailable, "attach is not configured")
		return
	}
	messageID := r.URL.Query().Get("messageId")
	if messageID == "" {
		writeError(w, http.StatusBadRequest, "messageId query parameter is required")
		return
	}

	timeout := AttachDefaultTimeout
	if raw := r.URL.Query().Get("timeoutSeconds"); raw != "" {
		var secs int
		if _, err := fmt.Sscanf(raw, "%d", &secs); err == nil && secs > 0 {
			timeout = time.Duration(secs) * time.Second
		}
	}

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(AttachPollInterval)
	defer ticker.Stop()

	for {
		out, ok, err := s.cfg.Replies.ReadReply(messageID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if ok {
			writeJSON(w, http.StatusOK, out)
			return
		}
		if time.Now().After(deadline) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
