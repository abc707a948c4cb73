package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/formsmith/internal/apperror"
	"github.com/sakif/formsmith/internal/repository"
	"github.com/sakif/formsmith/internal/rowstore"
)

// RowStoreHandler exposes a Store over the generic row store protocol:
//
//	POST /rows {"operation":"select","table":"forms","filters":{...}}
//	→ 200 {"success":true,"data":[...]}
//	→ 400 {"success":false,"error":"..."}  malformed request
//	→ 500 {"success":false,"error":"..."}  the store failed
//
// It is what rowstore.Client talks to.
type RowStoreHandler struct {
	store  repository.Store
	logger *slog.Logger
}

func NewRowStoreHandler(store repository.Store, logger *slog.Logger) *RowStoreHandler {
	return &RowStoreHandler{store: store, logger: logger}
}

func (h *RowStoreHandler) HandleRows(w http.ResponseWriter, r *http.Request) {
	var req rowstore.Request
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, rowstore.Reply{Error: err.Error()})
		return
	}

	reply, err := h.store.Do(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, apperror.ErrValidation) ||
			errors.Is(err, apperror.ErrMissingFilter) ||
			errors.Is(err, apperror.ErrUnsupportedOperation) {
			status = http.StatusBadRequest
		} else {
			h.logger.Error("row store request failed",
				slog.String("operation", string(req.Operation)),
				slog.String("table", req.Table),
				slog.String("error", err.Error()),
			)
		}
		writeJSON(w, status, rowstore.Reply{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, reply)
}
