package handler_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/formsmith/internal/auth"
	"github.com/sakif/formsmith/internal/handler"
	"github.com/sakif/formsmith/internal/model"
)

type failingDirectory struct{}

func (failingDirectory) Profile(context.Context, string) (*model.RespondentProfile, error) {
	return nil, errors.New("directory offline")
}

func TestSessionHandler_HandleMe(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	privileges := auth.NewPrivileges("ops")

	me := func(h *handler.SessionHandler, userID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		if userID != "" {
			req = req.WithContext(auth.WithUserID(req.Context(), userID))
		}
		rr := httptest.NewRecorder()
		h.HandleMe(rr, req)
		return rr
	}

	t.Run("operator with generated profile", func(t *testing.T) {
		rr := me(handler.NewSessionHandler(nil, privileges, logger), "ops")
		require.Equal(t, http.StatusOK, rr.Code)

		body := decode[struct {
			ID         string                   `json:"id"`
			Privileged bool                     `json:"privileged"`
			Profile    *model.RespondentProfile `json:"profile"`
		}](t, rr)
		assert.Equal(t, "ops", body.ID)
		assert.True(t, body.Privileged)
		require.NotNil(t, body.Profile)
		assert.Contains(t, body.Profile.AvatarURL, "seed=ops")
	})

	t.Run("directory failure keeps identity", func(t *testing.T) {
		rr := me(handler.NewSessionHandler(failingDirectory{}, privileges, logger), "u1")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"privileged":false`)
		assert.Contains(t, rr.Body.String(), `"profile":null`)
	})

	t.Run("anonymous", func(t *testing.T) {
		rr := me(handler.NewSessionHandler(nil, privileges, logger), "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestSessionHandler_HandleLogout(t *testing.T) {
	h := handler.NewSessionHandler(nil, auth.NewPrivileges(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	rr := httptest.NewRecorder()
	h.HandleLogout(rr, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, auth.TokenCookie, cookies[0].Name)
	assert.Equal(t, -1, cookies[0].MaxAge)
}
