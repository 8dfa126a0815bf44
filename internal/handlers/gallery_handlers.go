package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"darkroom/internal/engine/actors"
	"darkroom/internal/middleware"
	"darkroom/internal/models"
	"darkroom/internal/utils"

	"github.com/google/uuid"
)

// Rendition widths requested from the image CDN.
const (
	thumbWidth = 640
	fullWidth  = 1600
)

// PhotoView is a gallery entry with its CDN rendition URLs resolved.
type PhotoView struct {
	*models.Photo
	ThumbURL string `json:"thumbUrl"`
	FullURL  string `json:"fullUrl"`
}

// UploadPhotoRequest registers an already-uploaded image under the caller's
// account. ContentID is the CDN asset identifier.
type UploadPhotoRequest struct {
	ContentID string `json:"contentId"`
	Caption   string `json:"caption,omitempty"`
}

func (s *Server) photoView(p *models.Photo) *PhotoView {
	return &PhotoView{
		Photo:    p,
		ThumbURL: s.CDN.URL(p.ContentID, thumbWidth),
		FullURL:  s.CDN.URL(p.ContentID, fullWidth),
	}
}

// HandleGallery lists the grid (newest first) and accepts new photos.
func (s *Server) HandleGallery() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			photos, err := s.DB.Photos(r.Context())
			if err != nil {
				s.writeError(w, err)
				return
			}

			views := make([]*PhotoView, 0, len(photos))
			for _, p := range photos {
				views = append(views, s.photoView(p))
			}
			s.writeJSON(w, http.StatusOK, views)

		case http.MethodPost:
			ownerID, ok := middleware.GetUserIDFromContext(r.Context())
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			var req UploadPhotoRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "Invalid request", http.StatusBadRequest)
				return
			}
			if req.ContentID == "" {
				http.Error(w, "Missing content ID", http.StatusBadRequest)
				return
			}

			photo := &models.Photo{
				ID:        uuid.New(),
				OwnerID:   ownerID,
				ContentID: req.ContentID,
				Caption:   req.Caption,
				CreatedAt: time.Now(),
			}
			if err := s.DB.InsertPhoto(r.Context(), photo); err != nil {
				s.writeError(w, err)
				return
			}
			s.writeJSON(w, http.StatusCreated, s.photoView(photo))

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// HandlePhoto returns one photo together with its derived comment tree.
func (s *Server) HandlePhoto() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		photoID, err := uuid.Parse(r.URL.Query().Get("id"))
		if err != nil {
			http.Error(w, "Invalid photo ID", http.StatusBadRequest)
			return
		}

		photo, err := s.DB.Photo(r.Context(), photoID)
		if err != nil {
			s.writeError(w, err)
			return
		}

		future := s.Context.RequestFuture(
			s.Engine.GetThreadActor(),
			&actors.GetThreadMsg{PhotoID: photoID},
			s.RequestTimeout,
		)
		result, err := future.Result()
		if err != nil {
			s.Logger.Error("thread actor request failed", "photo", photoID, "error", err)
			http.Error(w, "Failed to load comments", http.StatusInternalServerError)
			return
		}
		if appErr, ok := result.(*utils.AppError); ok {
			s.writeError(w, appErr)
			return
		}

		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"photo":    s.photoView(photo),
			"comments": result,
		})
	}
}
