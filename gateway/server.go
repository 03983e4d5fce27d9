// Package gateway is the stateless entry router. It validates the
// path-derived identity, resolves the session actor, and forwards stream
// and message requests to it; every other path falls through to the page
// handler.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/memgate/memgate/config"
	"github.com/memgate/memgate/errors"
	"github.com/memgate/memgate/identity"
	"github.com/memgate/memgate/internal/logger"
	"github.com/memgate/memgate/session"
	"github.com/memgate/memgate/transport"
	"go.uber.org/zap"
)

const maxMessageBytes = 1 << 20 // 1 MiB per posted message

// Server is the HTTP entry router.
type Server struct {
	cfg      config.GatewayConfig
	sessions *session.Manager
	page     http.Handler
	errs     *errors.ErrorHandler
	upgrader websocket.Upgrader
	log      *logger.FieldLogger

	httpSrv *http.Server
}

// NewServer creates the entry router. When page is nil the built-in
// landing page is served on fallthrough paths.
func NewServer(cfg config.GatewayConfig, sessions *session.Manager, page http.Handler) *Server {
	if page == nil {
		page = DefaultPage()
	}
	return &Server{
		cfg:      cfg,
		sessions: sessions,
		page:     page,
		errs:     errors.NewErrorHandler(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: logger.Module("gateway"),
	}
}

// Handler returns the router wrapped in the ordered interceptor chain.
func (s *Server) Handler() http.Handler {
	chain := Chain(
		Recovery(s.errs),
		RequestLogging(),
		CORS(s.cfg.AllowOrigin),
	)
	return chain(http.HandlerFunc(s.route))
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.Handler(),
		ReadTimeout:  time.Duration(s.cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeout) * time.Second,
	}

	s.log.Info("Gateway listening", zap.String("addr", s.cfg.Addr()))
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// route dispatches /{identity}/sse, /{identity}/messages and
// /{identity}/ws; anything else goes to the page handler unchanged.
func (s *Server) route(w http.ResponseWriter, r *http.Request) {
	id, action, ok := splitSessionPath(r.URL.Path)
	if !ok {
		s.page.ServeHTTP(w, r)
		return
	}

	// Reject malformed identities before any actor is addressed.
	if !identity.IsValid(id) {
		s.writeError(w, errors.MalformedIdentity(id))
		return
	}

	switch action {
	case "sse":
		s.handleSSE(w, r, id)
	case "messages":
		s.handleMessages(w, r, id)
	case "ws":
		s.handleWS(w, r, id)
	}
}

// splitSessionPath parses "/{identity}/{action}" for the known actions.
func splitSessionPath(path string) (id, action string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 {
		return "", "", false
	}
	switch parts[1] {
	case "sse", "messages", "ws":
		return parts[0], parts[1], true
	default:
		return "", "", false
	}
}

func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	actor, err := s.sessions.GetOrCreate(id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	stream, err := transport.NewSSEStream(w)
	if err != nil {
		s.writeError(w, errors.Internal(err))
		return
	}

	if err := actor.HandleStreamOpen(id, stream); err != nil {
		s.writeError(w, err)
		return
	}

	// Tell the peer where to post messages for this stream.
	endpoint := fmt.Sprintf("/%s/messages", id)
	if err := stream.Send(transport.Event{Name: "endpoint", Data: json.RawMessage(endpoint)}); err != nil {
		actor.DetachStream(stream)
		return
	}

	// Hold the connection open; release the stream on disconnect.
	select {
	case <-r.Context().Done():
	case <-stream.Done():
	}
	actor.DetachStream(stream)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxMessageBytes))
	if err != nil {
		s.writeError(w, errors.Validation("failed to read request body"))
		return
	}
	if !json.Valid(body) {
		s.writeError(w, errors.Validation("message body must be valid JSON"))
		return
	}

	actor, err := s.sessions.GetOrCreate(id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := actor.HandleMessagePost(id, body); err != nil {
		s.writeError(w, err)
		return
	}

	// Lightweight ack; the protocol-level result arrives over the stream.
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request, id string) {
	actor, err := s.sessions.GetOrCreate(id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	stream := transport.NewWSStream(conn)
	if err := actor.HandleStreamOpen(id, stream); err != nil {
		s.errs.Handle(err)
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, string(errors.GetCode(err))))
		_ = conn.Close()
		return
	}

	// The socket is its own inbound channel: frames post straight into
	// the actor, same path as /{identity}/messages.
	stream.ReadLoop(func(data []byte) error {
		return actor.HandleMessagePost(id, data)
	})
	actor.DetachStream(stream)
}

// writeError maps an error to its HTTP status and a minimal JSON body.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.errs.Handle(err)

	status := errors.HTTPStatus(err)
	code := errors.GetCode(err)
	message := errors.GetMessage(err)
	if status == http.StatusInternalServerError {
		// Unexpected failures become a generic response, never internals.
		message = "internal error"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
