package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"darkroom/internal/engine/actors"
	"darkroom/internal/middleware"

	"github.com/google/uuid"
)

// OpenConversationRequest selects the peer for the caller's active
// conversation.
type OpenConversationRequest struct {
	PeerID string `json:"peerId"`
}

// SendMessageRequest sends a message into the caller's open conversation.
type SendMessageRequest struct {
	Body string `json:"body"`
}

// HandleConversation manages the caller's single active conversation:
// open (POST), read (GET) and close (DELETE).
func (s *Server) HandleConversation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewerID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		chatPID := s.Engine.GetChatSupervisor()

		switch r.Method {
		case http.MethodPost:
			defer s.observe("open_conversation", time.Now())

			var req OpenConversationRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "Invalid request", http.StatusBadRequest)
				return
			}
			peerID, err := uuid.Parse(req.PeerID)
			if err != nil {
				http.Error(w, "Invalid peer ID", http.StatusBadRequest)
				return
			}
			if peerID == viewerID {
				http.Error(w, "Cannot open a conversation with yourself", http.StatusBadRequest)
				return
			}

			future := s.Context.RequestFuture(chatPID, &actors.ViewerOpenConversationMsg{
				ViewerID: viewerID,
				PeerID:   peerID,
			}, s.RequestTimeout)
			result, err := future.Result()
			if err != nil {
				s.Logger.Error("open conversation failed", "viewer", viewerID, "error", err)
				http.Error(w, "Failed to open conversation", http.StatusInternalServerError)
				return
			}
			s.respondActorResult(w, result)

		case http.MethodGet:
			future := s.Context.RequestFuture(chatPID,
				&actors.ViewerGetConversationMsg{ViewerID: viewerID}, s.RequestTimeout)
			result, err := future.Result()
			if err != nil {
				http.Error(w, "Failed to read conversation", http.StatusInternalServerError)
				return
			}
			s.respondActorResult(w, result)

		case http.MethodDelete:
			future := s.Context.RequestFuture(chatPID,
				&actors.ViewerCloseConversationMsg{ViewerID: viewerID}, s.RequestTimeout)
			result, err := future.Result()
			if err != nil {
				http.Error(w, "Failed to close conversation", http.StatusInternalServerError)
				return
			}
			s.respondActorResult(w, result)

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// HandleSendMessage appends a message to the caller's open conversation.
// The response is the optimistic record; delivery confirmation arrives
// asynchronously.
func (s *Server) HandleSendMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		viewerID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		defer s.observe("send_message", time.Now())

		var req SendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		if req.Body == "" {
			http.Error(w, "Empty message body", http.StatusBadRequest)
			return
		}

		future := s.Context.RequestFuture(s.Engine.GetChatSupervisor(), &actors.ViewerSendMessageMsg{
			ViewerID: viewerID,
			Body:     req.Body,
		}, s.RequestTimeout)
		result, err := future.Result()
		if err != nil {
			s.Logger.Error("send message failed", "viewer", viewerID, "error", err)
			http.Error(w, "Failed to send message", http.StatusInternalServerError)
			return
		}
		s.respondActorResult(w, result)
	}
}
