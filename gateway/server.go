// Package gateway serves the chat API over HTTP and websocket.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/havenai/haven/agent"
	"github.com/havenai/haven/errors"
	"github.com/havenai/haven/observability"
	"github.com/havenai/haven/session"
	"github.com/rs/zerolog"
)

// Apology is returned in place of any failed answer.
const Apology = "Sorry, I encountered an error. Please try again."

const maxBodyBytes = 1 << 20

// Runner answers one message given the prior turns. *agent.Agent satisfies it.
type Runner interface {
	Run(ctx context.Context, message string, history session.Conversation) (agent.Reply, error)
}

type ChatRequest struct {
	Message     string     `json:"message"`
	ChatHistory [][]string `json:"chat_history"`
}

type ChatResponse struct {
	Response string `json:"response"`
}

type ServerOptions struct {
	Addr string
	// RequestTimeout bounds one answer, including every model and tool call.
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	options  ServerOptions
	runner   Runner
	logger   zerolog.Logger
	server   *http.Server
	upgrader websocket.Upgrader

	shutdownMu     sync.RWMutex
	isShuttingDown bool
	inFlightReqs   sync.WaitGroup
}

func NewServer(options ServerOptions, runner Runner, logger zerolog.Logger) (*Server, error) {
	if runner == nil {
		return nil, errors.New("gateway requires a runner")
	}
	if options.Addr == "" {
		options.Addr = ":8000"
	}
	if options.RequestTimeout == 0 {
		options.RequestTimeout = 2 * time.Minute
	}
	if options.ShutdownTimeout == 0 {
		options.ShutdownTimeout = 30 * time.Second
	}

	s := &Server{
		options: options,
		runner:  runner,
		logger:  logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.server = &http.Server{
		Addr:              options.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the routed handler wrapped in CORS and request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	mux.HandleFunc("POST /api/v1/chat", s.handleChat)
	mux.HandleFunc("GET /api/v1/ws", s.handleWS)
	mux.Handle("GET /metrics", observability.MetricsHandler())
	return s.logRequests(cors(mux))
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.options.Addr).Msg("Starting gateway")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrapf(err, "failed to start gateway")
	}
	return nil
}

// Stop refuses new chats, waits for in-flight ones, then shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.shutdownMu.Lock()
	s.isShuttingDown = true
	s.shutdownMu.Unlock()

	s.logger.Info().Msg("Shutting down gateway")

	done := make(chan struct{})
	go func() {
		s.inFlightReqs.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(s.options.ShutdownTimeout):
		s.logger.Warn().Msg("Shutdown timeout reached, forcing close")
	case <-ctx.Done():
	}

	if err := s.server.Shutdown(ctx); err != nil {
		return errors.Wrapf(err, "failed to shutdown gateway")
	}
	s.logger.Info().Msg("Gateway stopped")
	return nil
}

// admit registers an in-flight request unless the server is stopping.
func (s *Server) admit() bool {
	s.shutdownMu.RLock()
	defer s.shutdownMu.RUnlock()
	if s.isShuttingDown {
		return false
	}
	s.inFlightReqs.Add(1)
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleChat always answers 200 with a response body; failures of any kind
// become the apology.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if !s.admit() {
		http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
		return
	}
	defer s.inFlightReqs.Done()

	var req ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.logger.Warn().Err(err).Msg("Malformed chat request")
		observability.RecordHTTPRequest("chat", "apology")
		writeJSON(w, http.StatusOK, ChatResponse{Response: Apology})
		return
	}

	writeJSON(w, http.StatusOK, s.answer(r.Context(), "chat", req))
}

// handleWS treats each text frame as a ChatRequest and replies with a
// ChatResponse frame. History is still supplied by the client per frame.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug().Err(err).Msg("Websocket read ended")
			}
			return
		}
		if !s.admit() {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
			return
		}

		resp := func() ChatResponse {
			defer s.inFlightReqs.Done()
			var req ChatRequest
			if err := json.Unmarshal(msg, &req); err != nil {
				s.logger.Warn().Err(err).Msg("Malformed websocket chat request")
				observability.RecordHTTPRequest("ws", "apology")
				return ChatResponse{Response: Apology}
			}
			return s.answer(r.Context(), "ws", req)
		}()

		if err := conn.WriteJSON(resp); err != nil {
			s.logger.Debug().Err(err).Msg("Websocket write failed")
			return
		}
	}
}

// answer runs one request through the agent. This is the only place a run's
// error is logged. A panic anywhere in the run becomes the apology.
func (s *Server) answer(ctx context.Context, route string, req ChatRequest) (resp ChatResponse) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error().
				Str("route", route).
				Str("kind", "panic").
				Str("panic", fmt.Sprint(p)).
				Bytes("stack", debug.Stack()).
				Msg("Chat request failed")
			observability.RecordHTTPRequest(route, "apology")
			resp = ChatResponse{Response: Apology}
		}
	}()

	history, err := session.FromPairs(req.ChatHistory)
	if err != nil {
		s.logger.Warn().Err(err).Str("route", route).Msg("Malformed chat history")
		observability.RecordHTTPRequest(route, "apology")
		return ChatResponse{Response: Apology}
	}

	ctx, cancel := context.WithTimeout(ctx, s.options.RequestTimeout)
	defer cancel()

	reply, err := s.runner.Run(ctx, req.Message, history)
	if err != nil {
		s.logger.Error().Err(err).Str("route", route).Str("kind", errorKind(err)).Msg("Chat request failed")
		observability.RecordHTTPRequest(route, "apology")
		return ChatResponse{Response: Apology}
	}
	observability.RecordHTTPRequest(route, "ok")
	return ChatResponse{Response: reply.Text}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
