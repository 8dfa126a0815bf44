package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"darkroom/internal/engine/actors"
	"darkroom/internal/middleware"

	"github.com/google/uuid"
)

// CreateCommentRequest represents a request to create a new comment
type CreateCommentRequest struct {
	PhotoID  string `json:"photoId"`
	ParentID string `json:"parentId,omitempty"` // Optional, for replies
	Body     string `json:"body"`
}

// DeleteCommentRequest represents a request to delete a comment and its
// replies
type DeleteCommentRequest struct {
	PhotoID   string `json:"photoId"`
	CommentID string `json:"commentId"`
}

// ReplyTargetRequest selects the comment the caller is composing a reply to.
type ReplyTargetRequest struct {
	CommentID string `json:"commentId"`
}

// HandleComments handles comment creation and deletion.
func (s *Server) HandleComments() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewerID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		switch r.Method {
		case http.MethodPost:
			defer s.observe("create_comment", time.Now())

			var req CreateCommentRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "Invalid request", http.StatusBadRequest)
				return
			}
			if req.Body == "" {
				http.Error(w, "Empty comment body", http.StatusBadRequest)
				return
			}

			photoID, err := uuid.Parse(req.PhotoID)
			if err != nil {
				http.Error(w, "Invalid photo ID", http.StatusBadRequest)
				return
			}

			var parentID *uuid.UUID
			if req.ParentID != "" {
				parsed, err := uuid.Parse(req.ParentID)
				if err != nil {
					http.Error(w, "Invalid parent comment ID", http.StatusBadRequest)
					return
				}
				parentID = &parsed
			}

			future := s.Context.RequestFuture(s.Engine.GetThreadActor(), &actors.AddCommentMsg{
				PhotoID:  photoID,
				ParentID: parentID,
				AuthorID: viewerID,
				Body:     req.Body,
			}, s.RequestTimeout)

			result, err := future.Result()
			if err != nil {
				s.Logger.Error("comment creation failed", "photo", photoID, "error", err)
				http.Error(w, "Failed to create comment", http.StatusInternalServerError)
				return
			}
			s.respondActorResult(w, result)

		case http.MethodDelete:
			defer s.observe("delete_comment", time.Now())

			var req DeleteCommentRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "Invalid request", http.StatusBadRequest)
				return
			}

			photoID, err := uuid.Parse(req.PhotoID)
			if err != nil {
				http.Error(w, "Invalid photo ID", http.StatusBadRequest)
				return
			}
			commentID, err := uuid.Parse(req.CommentID)
			if err != nil {
				http.Error(w, "Invalid comment ID", http.StatusBadRequest)
				return
			}

			future := s.Context.RequestFuture(s.Engine.GetThreadActor(), &actors.DeleteCommentMsg{
				PhotoID:   photoID,
				CommentID: commentID,
				AuthorID:  viewerID,
			}, s.RequestTimeout)

			result, err := future.Result()
			if err != nil {
				s.Logger.Error("comment deletion failed", "comment", commentID, "error", err)
				http.Error(w, "Failed to delete comment", http.StatusInternalServerError)
				return
			}
			s.respondActorResult(w, result)

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// HandleReplyTarget reads and sets the caller's active reply target.
func (s *Server) HandleReplyTarget() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewerID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		switch r.Method {
		case http.MethodGet:
			future := s.Context.RequestFuture(s.Engine.GetThreadActor(),
				&actors.GetReplyTargetMsg{ViewerID: viewerID}, s.RequestTimeout)
			result, err := future.Result()
			if err != nil {
				http.Error(w, "Failed to read reply target", http.StatusInternalServerError)
				return
			}
			s.respondActorResult(w, result)

		case http.MethodPut:
			var req ReplyTargetRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "Invalid request", http.StatusBadRequest)
				return
			}
			commentID, err := uuid.Parse(req.CommentID)
			if err != nil {
				http.Error(w, "Invalid comment ID", http.StatusBadRequest)
				return
			}

			future := s.Context.RequestFuture(s.Engine.GetThreadActor(), &actors.SetReplyTargetMsg{
				ViewerID:  viewerID,
				CommentID: commentID,
			}, s.RequestTimeout)
			result, err := future.Result()
			if err != nil {
				http.Error(w, "Failed to set reply target", http.StatusInternalServerError)
				return
			}
			s.respondActorResult(w, result)

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}
