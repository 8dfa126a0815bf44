package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"darkroom/internal/middleware"

	"github.com/google/uuid"
)

// UpdateProfileRequest patches the caller's profile. Empty fields are left
// unchanged.
type UpdateProfileRequest struct {
	DisplayName string `json:"displayName,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// HandleProfile reads a member's profile (GET, ?id= defaults to the caller)
// and patches the caller's own (PUT).
func (s *Server) HandleProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewerID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		switch r.Method {
		case http.MethodGet:
			targetID := viewerID
			if raw := r.URL.Query().Get("id"); raw != "" {
				parsed, err := uuid.Parse(raw)
				if err != nil {
					http.Error(w, "Invalid profile ID", http.StatusBadRequest)
					return
				}
				targetID = parsed
			}

			prof, err := s.DB.Profile(r.Context(), targetID)
			if err != nil {
				s.writeError(w, err)
				return
			}
			s.writeJSON(w, http.StatusOK, prof)

		case http.MethodPut:
			defer s.observe("update_profile", time.Now())

			var req UpdateProfileRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "Invalid request", http.StatusBadRequest)
				return
			}

			prof, err := s.DB.Profile(r.Context(), viewerID)
			if err != nil {
				s.writeError(w, err)
				return
			}

			changed := false
			if req.DisplayName != "" && req.DisplayName != prof.DisplayName {
				prof.DisplayName = req.DisplayName
				changed = true
			}
			if req.AvatarURL != "" && req.AvatarURL != prof.AvatarURL {
				prof.AvatarURL = req.AvatarURL
				changed = true
			}
			if changed {
				prof.UpdatedAt = time.Now()
				if err := s.DB.UpdateProfile(r.Context(), prof); err != nil {
					s.writeError(w, err)
					return
				}
			}
			s.writeJSON(w, http.StatusOK, prof)

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}
