package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/formsmith/internal/apperror"
	"github.com/sakif/formsmith/internal/auth"
	"github.com/sakif/formsmith/internal/model"
	"github.com/sakif/formsmith/internal/service"
)

// FormHandler serves the owner-facing form API. Every route behind it
// requires a signed-in user.
type FormHandler struct {
	forms      *service.FormService
	responses  *service.ResponseService
	privileges auth.Privileges
	logger     *slog.Logger
}

func NewFormHandler(forms *service.FormService, responses *service.ResponseService, privileges auth.Privileges, logger *slog.Logger) *FormHandler {
	return &FormHandler{forms: forms, responses: responses, privileges: privileges, logger: logger}
}

// callerFrom builds the service identity for a request. The privileged flag
// comes from the configured allow-list, never from the client.
func callerFrom(r *http.Request, privileges auth.Privileges) service.Caller {
	userID, _ := auth.UserIDFromContext(r.Context())
	return service.Caller{UserID: userID, Privileged: privileges.Has(userID)}
}

// saveResponse is a SaveResult with an optional warning for saves whose
// form row committed but whose elements may be stale.
type saveResponse struct {
	*model.SaveResult
	Warning *CascadeWarning `json:"warning,omitempty"`
}

// writeSaveResult renders the outcome of a save. A partial cascade whose
// form row committed is still a save: the caller gets the form identity and
// a warning instead of a failure.
func writeSaveResult(w http.ResponseWriter, status int, res *model.SaveResult, err error) {
	if err == nil {
		writeJSON(w, status, saveResponse{SaveResult: res})
		return
	}

	var partial *apperror.PartialCascadeError
	if res != nil && errors.As(err, &partial) && partial.HasCommitted(apperror.StepUpsertForm) {
		writeJSON(w, http.StatusOK, saveResponse{
			SaveResult: res,
			Warning: &CascadeWarning{
				Message:        "form saved but its elements may be out of date: " + partial.Err.Error(),
				FailedStep:     string(partial.Failed),
				CommittedSteps: stepNames(partial.Committed),
			},
		})
		return
	}
	writeError(w, err)
}

// HandleCreate saves a new form owned by the caller.
//
// HTTP: POST /api/forms
func (h *FormHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in model.FormInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	in.ID = ""

	res, err := h.forms.Save(r.Context(), callerFrom(r, h.privileges), in)
	writeSaveResult(w, http.StatusCreated, res, err)
}

// HandleUpdate replaces an existing form. Send expectedUpdatedAt to reject
// the save if someone else saved first.
//
// HTTP: PUT /api/forms/{id}
func (h *FormHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in model.FormInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	in.ID = r.PathValue("id")
	if in.ID == "" {
		writeError(w, apperror.ValidationFailed("id", "form ID is required"))
		return
	}

	res, err := h.forms.Save(r.Context(), callerFrom(r, h.privileges), in)
	writeSaveResult(w, http.StatusOK, res, err)
}

// HandleList returns the caller's forms with response counts.
//
// HTTP: GET /api/forms
func (h *FormHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r, h.privileges)
	forms, err := h.forms.ListForOwner(r.Context(), caller.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, forms)
}

// HandleGet returns one form with its elements.
//
// HTTP: GET /api/forms/{id}
func (h *FormHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	form, err := h.forms.GetByID(r.Context(), callerFrom(r, h.privileges), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

// HandleDelete removes a form, its elements and its responses.
//
// HTTP: DELETE /api/forms/{id}
func (h *FormHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.forms.Delete(r.Context(), callerFrom(r, h.privileges), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListResponses returns a form's responses, newest first.
//
// HTTP: GET /api/forms/{id}/responses
func (h *FormHandler) HandleListResponses(w http.ResponseWriter, r *http.Request) {
	responses, err := h.responses.List(r.Context(), callerFrom(r, h.privileges), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, responses)
}

// HandleRecent returns the newest responses across the caller's forms.
//
// HTTP: GET /api/responses/recent?limit=10
func (h *FormHandler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, apperror.ValidationFailed("limit", "limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	listings, err := h.responses.Recent(r.Context(), callerFrom(r, h.privileges), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listings)
}
