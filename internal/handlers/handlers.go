package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"darkroom/internal/backend"
	"darkroom/internal/engine"
	"darkroom/internal/identity"
	"darkroom/internal/imgcdn"
	"darkroom/internal/session"
	"darkroom/internal/utils"
	"darkroom/internal/websocket"

	"github.com/asynkron/protoactor-go/actor"
)

// Server holds all server dependencies, including the actor system and engine
type Server struct {
	System         *actor.ActorSystem
	Context        *actor.RootContext
	Engine         *engine.Engine
	DB             backend.Adapter
	Hub            *websocket.Hub
	Provider       identity.Provider
	Hydrator       *session.Hydrator
	CDN            *imgcdn.Resolver
	Metrics        *utils.MetricsCollector
	Logger         *slog.Logger
	RequestTimeout time.Duration
}

// NewServer creates a new Server instance with the given components
func NewServer(
	system *actor.ActorSystem,
	eng *engine.Engine,
	db backend.Adapter,
	hub *websocket.Hub,
	provider identity.Provider,
	hydrator *session.Hydrator,
	cdn *imgcdn.Resolver,
	metrics *utils.MetricsCollector,
	logger *slog.Logger,
) *Server {
	return &Server{
		System:         system,
		Context:        system.Root,
		Engine:         eng,
		DB:             db,
		Hub:            hub,
		Provider:       provider,
		Hydrator:       hydrator,
		CDN:            cdn,
		Metrics:        metrics,
		Logger:         logger,
		RequestTimeout: 5 * time.Second, // Default timeout for actor requests
	}
}

// observe records the latency of one named operation. Use with defer and an
// immediate time.Now() argument.
func (s *Server) observe(op string, start time.Time) {
	s.Metrics.AddOperationLatency(op, time.Since(start))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("failed to encode response", "error", err)
	}
}

// writeError maps application error codes to HTTP statuses. Anything that is
// not an AppError is reported as an internal error without leaking detail.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	appErr, ok := err.(*utils.AppError)
	if !ok {
		s.Logger.Error("internal error", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	status := http.StatusInternalServerError
	switch appErr.Code {
	case utils.ErrNotFound, utils.ErrAccountNotFound:
		status = http.StatusNotFound
	case utils.ErrDuplicate, utils.ErrAccountAlreadyExists:
		status = http.StatusConflict
	case utils.ErrInvalidInput:
		status = http.StatusBadRequest
	case utils.ErrUnauthorized, utils.ErrInvalidToken, utils.ErrInvalidCredentials, utils.ErrAuth:
		status = http.StatusUnauthorized
	case utils.ErrForbidden:
		status = http.StatusForbidden
	case utils.ErrActorTimeout:
		status = http.StatusGatewayTimeout
	}
	s.writeJSON(w, status, map[string]string{
		"code":    appErr.Code,
		"message": appErr.Message,
	})
}

// respondActorResult encodes an actor reply, routing AppError replies through
// the error mapper.
func (s *Server) respondActorResult(w http.ResponseWriter, result interface{}) {
	if appErr, ok := result.(*utils.AppError); ok {
		s.writeError(w, appErr)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}
