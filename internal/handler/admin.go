package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/formsmith/internal/auth"
	"github.com/sakif/formsmith/internal/model"
	"github.com/sakif/formsmith/internal/service"
)

// AdminHandler serves operator-only routes. The service enforces the
// privilege check, so a signed-in non-operator gets 403 from every route.
type AdminHandler struct {
	forms      *service.FormService
	privileges auth.Privileges
	logger     *slog.Logger
}

func NewAdminHandler(forms *service.FormService, privileges auth.Privileges, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{forms: forms, privileges: privileges, logger: logger}
}

// HandleUpdate edits any form in place, elements included.
//
// HTTP: PUT /api/admin/forms/{id}
func (h *AdminHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in model.FormInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	caller := callerFrom(r, h.privileges)
	res, err := h.forms.AdminUpdate(r.Context(), caller, r.PathValue("id"), in)
	if err == nil {
		h.logger.Info("form edited by operator",
			slog.String("id", res.FormID),
			slog.String("operator", caller.UserID),
		)
	}
	writeSaveResult(w, http.StatusOK, res, err)
}

// HandleActivity lists the forms and responses of one user.
//
// HTTP: GET /api/admin/users/{id}/activity
func (h *AdminHandler) HandleActivity(w http.ResponseWriter, r *http.Request) {
	activity, err := h.forms.UserActivity(r.Context(), callerFrom(r, h.privileges), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, activity)
}
