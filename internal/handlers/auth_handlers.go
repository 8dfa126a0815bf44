package handlers

import (
	"encoding/json"
	"net/http"

	"darkroom/internal/middleware"
	"darkroom/internal/models"
	"darkroom/internal/session"
)

// RegisterRequest creates a new account.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// LoginRequest signs an existing account in.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionView is the auth/profile state reported to the client.
type SessionView struct {
	State   string          `json:"state"`
	UserID  string          `json:"userId,omitempty"`
	Email   string          `json:"email,omitempty"`
	Profile *models.Profile `json:"profile,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// HandleRegister creates an account and starts profile hydration for it.
func (s *Server) HandleRegister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		s.Hydrator.BeginAuth()
		sess, err := s.Provider.Register(r.Context(), req.Email, req.Password, req.Name)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, sess)
	}
}

// HandleLogin signs in and starts profile hydration.
func (s *Server) HandleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		s.Hydrator.BeginAuth()
		sess, err := s.Provider.SignIn(r.Context(), req.Email, req.Password)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, sess)
	}
}

// HandleLogout revokes the caller's session.
func (s *Server) HandleLogout() http.HandlerFunc {
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

		if err := s.Provider.SignOut(r.Context(), viewerID); err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, &models.StatusResponse{Success: true})
	}
}

// HandleSession reports the caller's auth/profile state. The hydrator
// tracks the most recent sign-in in this process; a caller it does not
// belong to gets a view derived from their stored records instead, so one
// member's hydration state never leaks to another.
func (s *Server) HandleSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		viewerID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		snap := s.Hydrator.Snapshot()
		if snap.Identity != nil && snap.Identity.UserID == viewerID {
			s.writeJSON(w, http.StatusOK, &SessionView{
				State:   snap.State.String(),
				UserID:  snap.Identity.UserID.String(),
				Email:   snap.Identity.Email,
				Profile: snap.Profile,
				Error:   snap.Err,
			})
			return
		}

		view := &SessionView{
			State:  session.StateNoProfile.String(),
			UserID: viewerID.String(),
		}
		if acct, err := s.DB.Account(r.Context(), viewerID); err == nil {
			view.Email = acct.Email
		}
		if prof, err := s.DB.Profile(r.Context(), viewerID); err == nil {
			view.Profile = prof
			view.State = session.StateHydrated.String()
		}
		s.writeJSON(w, http.StatusOK, view)
	}
}
