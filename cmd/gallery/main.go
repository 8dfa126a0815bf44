package main

import (
	"bufio"
	stdctx "context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"

	"darkroom/internal/backend"
	"darkroom/internal/chat"
	"darkroom/internal/config"
	"darkroom/internal/engine"
	"darkroom/internal/engine/actors"
	"darkroom/internal/handlers"
	"darkroom/internal/identity"
	"darkroom/internal/imgcdn"
	"darkroom/internal/middleware"
	"darkroom/internal/session"
	"darkroom/internal/utils"
	"darkroom/internal/websocket"

	"github.com/asynkron/protoactor-go/actor"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Debug)
	metrics := utils.NewMetricsCollector()

	db, err := openBackend(cfg, logger)
	if err != nil {
		logger.Error("failed to open backing store", "type", cfg.Database.Type, "error", err)
		os.Exit(1)
	}
	defer db.Close(stdctx.Background())

	system := actor.NewActorSystem()
	galleryEngine := engine.NewEngine(system, db, logger)

	hub := websocket.NewHub(logger)
	go hub.Run()

	provider := identity.NewLocalProvider(db, logger)
	hydrator := session.NewHydrator(db, logger)

	// Session changes from the provider drive profile hydration.
	provider.OnChange(func(s *identity.Session) {
		if s == nil {
			hydrator.SetIdentity(nil)
			return
		}
		hydrator.SetIdentity(&session.Identity{
			UserID:  s.UserID,
			Email:   s.Email,
			Name:    s.Metadata.Name,
			Picture: s.Metadata.Picture,
		})
	})

	go runRealtimeBridge(db, hub, system, galleryEngine, logger)

	cdn := imgcdn.NewResolver(cfg.ImageCDNBase)
	server := handlers.NewServer(system, galleryEngine, db, hub, provider, hydrator, cdn, metrics, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", server.HandleHealth())
	mux.HandleFunc("/auth/register", server.HandleRegister())
	mux.HandleFunc("/auth/login", server.HandleLogin())
	mux.HandleFunc("/auth/logout", server.HandleLogout())
	mux.HandleFunc("/session", server.HandleSession())
	mux.HandleFunc("/profile", server.HandleProfile())
	mux.HandleFunc("/gallery", server.HandleGallery())
	mux.HandleFunc("/photo", server.HandlePhoto())
	mux.HandleFunc("/comments", server.HandleComments())
	mux.HandleFunc("/comments/reply-target", server.HandleReplyTarget())
	mux.HandleFunc("/messages/conversation", server.HandleConversation())
	mux.HandleFunc("/messages/send", server.HandleSendMessage())
	mux.HandleFunc("/ws", server.HandleWebSocket())

	var root http.Handler = mux
	if cfg.Server.MetricsEnabled {
		root = countRequests(metrics, mux)
	}

	corsConfig := middleware.DefaultCORSConfig(cfg.AllowedOrigins)
	handler := middleware.CORSMiddleware(corsConfig)(middleware.AuthMiddleware(root))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("starting server", "addr", addr, "backend", cfg.Database.Type)
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func openBackend(cfg *config.Config, logger *slog.Logger) (backend.Adapter, error) {
	switch cfg.Database.Type {
	case "postgres":
		pg, err := backend.NewPostgresDB(cfg.Database.URI, logger)
		if err != nil {
			return nil, err
		}
		if err := pg.InitializeTables(stdctx.Background()); err != nil {
			return nil, err
		}
		return pg, nil

	case "mongo":
		return backend.NewMongoDB(cfg.Database.URI, logger)

	default:
		return backend.NewMemoryDB(), nil
	}
}

// countRequests feeds the health endpoint's counters.
func countRequests(metrics *utils.MetricsCollector, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.IncrementRequests()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if rec.status >= http.StatusInternalServerError {
			metrics.IncrementErrors()
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack keeps websocket upgrades working through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hj.Hijack()
}

// wireFrame is the JSON shape pushed to websocket clients.
type wireFrame struct {
	Channel string          `json:"channel"`
	Op      string          `json:"op"`
	Data    json.RawMessage `json:"data"`
}

// runRealtimeBridge forwards backing-store change events to websocket
// clients and keeps resident comment threads in sync with remote writers.
func runRealtimeBridge(db backend.Adapter, hub *websocket.Hub, system *actor.ActorSystem, eng *engine.Engine, logger *slog.Logger) {
	events, cancel := db.Subscribe(backend.ChannelAll)
	defer cancel()

	for ev := range events {
		frame, err := json.Marshal(&wireFrame{
			Channel: ev.Channel,
			Op:      ev.Op,
			Data:    json.RawMessage(ev.Payload),
		})
		if err != nil {
			logger.Warn("failed to encode realtime frame", "channel", ev.Channel, "error", err)
			continue
		}

		switch {
		case strings.HasPrefix(ev.Channel, "dm:"):
			a, b, ok := chat.Participants(ev.Channel)
			if !ok {
				continue
			}
			hub.Push(a, frame)
			if b != a {
				hub.Push(b, frame)
			}

		case strings.HasPrefix(ev.Channel, "comments:"):
			system.Root.Send(eng.GetThreadActor(), &actors.ApplyCommentEventMsg{Event: ev})
			hub.PushAll(frame)
		}
	}
}
