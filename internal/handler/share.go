package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/formsmith/internal/auth"
	"github.com/sakif/formsmith/internal/condition"
	"github.com/sakif/formsmith/internal/service"
)

// ShareHandler serves the public side of a form: anyone holding the share
// token can load it, preview which fields are visible and submit.
type ShareHandler struct {
	forms      *service.FormService
	responses  *service.ResponseService
	privileges auth.Privileges
	logger     *slog.Logger
}

func NewShareHandler(forms *service.FormService, responses *service.ResponseService, privileges auth.Privileges, logger *slog.Logger) *ShareHandler {
	return &ShareHandler{forms: forms, responses: responses, privileges: privileges, logger: logger}
}

type submitRequest struct {
	Data map[string]any `json:"data"`
}

type submitResponse struct {
	ID string `json:"id"`
}

type visibilityRequest struct {
	Values map[string]any `json:"values"`
}

type visibilityResponse struct {
	Elements map[string]condition.State `json:"elements"`
}

// HandleGet returns the form behind a share token.
//
// HTTP: GET /api/share/{shareId}
func (h *ShareHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	form, err := h.forms.GetByShareID(r.Context(), r.PathValue("shareId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

// HandleSubmit records a response. Signed-in respondents are attributed;
// forms that require sign in reject anonymous submissions.
//
// HTTP: POST /api/share/{shareId}/responses
// REQUEST BODY: {"data": {"<elementId>": <value>, ...}}
func (h *ShareHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	id, err := h.responses.SubmitByShareID(r.Context(), callerFrom(r, h.privileges), r.PathValue("shareId"), req.Data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, submitResponse{ID: id})
}

// HandleVisibility evaluates every element's conditions against the values
// entered so far, so a client without its own evaluator can hide and show
// fields as the respondent types.
//
// HTTP: POST /api/share/{shareId}/visibility
// REQUEST BODY: {"values": {"<elementId>": <value>, ...}}
func (h *ShareHandler) HandleVisibility(w http.ResponseWriter, r *http.Request) {
	var req visibilityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	form, err := h.forms.GetByShareID(r.Context(), r.PathValue("shareId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, visibilityResponse{Elements: condition.Evaluate(form.Elements, req.Values)})
}
