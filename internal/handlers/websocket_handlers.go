package handlers

import (
	"net/http"

	"darkroom/internal/middleware"
	"darkroom/internal/websocket"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
)

var upgrader = ws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin filtering happens in the CORS middleware before upgrade.
		return true
	},
}

// HandleWebSocket authenticates via a token query parameter and upgrades the
// connection into the realtime hub.
func (s *Server) HandleWebSocket() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString := r.URL.Query().Get("token")
		if tokenString == "" {
			http.Error(w, "Missing authentication token", http.StatusUnauthorized)
			return
		}

		claims, err := middleware.ValidateToken(tokenString)
		if err != nil {
			s.Logger.Warn("websocket auth failed", "error", err)
			http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}
		if claims.UserID == uuid.Nil {
			http.Error(w, "Invalid user ID in token", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Cannot write an HTTP error after a failed upgrade attempt.
			s.Logger.Warn("websocket upgrade failed", "user", claims.UserID, "error", err)
			return
		}

		client := &websocket.Client{
			Hub:    s.Hub,
			UserID: claims.UserID,
			Conn:   conn,
			Send:   make(chan []byte, 256),
			Logger: s.Logger,
		}
		client.Hub.Register <- client
		s.Logger.Debug("websocket client registered", "user", claims.UserID)

		go client.WritePump()
		go client.ReadPump()
	}
}
