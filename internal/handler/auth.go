package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/formsmith/internal/auth"
	"github.com/sakif/formsmith/internal/model"
	"github.com/sakif/formsmith/internal/service"
)

// SessionHandler tells a client who it is signed in as and signs browser
// sessions out. Signing in happens at the identity provider.
type SessionHandler struct {
	directory  service.Directory
	privileges auth.Privileges
	logger     *slog.Logger
}

func NewSessionHandler(directory service.Directory, privileges auth.Privileges, logger *slog.Logger) *SessionHandler {
	if directory == nil {
		directory = service.GeneratedDirectory{}
	}
	return &SessionHandler{directory: directory, privileges: privileges, logger: logger}
}

type meResponse struct {
	ID         string                   `json:"id"`
	Privileged bool                     `json:"privileged"`
	Profile    *model.RespondentProfile `json:"profile"`
}

// HandleMe returns the caller's id, whether it may use the operator
// routes, and its display profile.
//
// HTTP: GET /api/me
func (h *SessionHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r, h.privileges)
	if caller.Anonymous() {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}

	profile, err := h.directory.Profile(r.Context(), caller.UserID)
	if err != nil {
		// The profile is cosmetic; identity still answers.
		h.logger.Warn("profile lookup failed",
			slog.String("user_id", caller.UserID),
			slog.String("error", err.Error()),
		)
		profile = nil
	}

	writeJSON(w, http.StatusOK, meResponse{ID: caller.UserID, Privileged: caller.Privileged, Profile: profile})
}

// HandleLogout deletes the session cookie. The token itself stays valid
// until it expires.
//
// HTTP: POST /auth/logout
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}
