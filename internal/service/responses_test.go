package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/formsmith/internal/apperror"
	"github.com/sakif/formsmith/internal/model"
	"github.com/sakif/formsmith/internal/repository"
	"github.com/sakif/formsmith/internal/rowstore"
)

func TestSubmit_StoresVisibleAnswers(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	saved := fx.createForm(t, owner, "Cats", threeElements())

	id, err := fx.responses.SubmitByShareID(ctx, stranger, saved.ShareID, map[string]any{
		"q1":      "yes",
		"q2":      float64(4),
		"q3":      "purr",
		"unknown": "dropped",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	list, err := fx.responses.List(ctx, owner, saved.FormID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	got := list[0]
	assert.Equal(t, id, got.ID)
	assert.Equal(t, saved.FormID, got.FormID)
	assert.Equal(t, "u2", got.RespondentID)
	assert.Equal(t, model.ResponseComplete, got.Status)
	assert.Equal(t, map[string]any{"q1": "yes", "q2": float64(4), "q3": "purr"}, got.Data)
}

func TestSubmit_Rules(t *testing.T) {
	tests := []struct {
		name    string
		caller  Caller
		data    map[string]any
		wantErr error
		field   string
		stored  map[string]any
	}{
		{
			name:    "required visible element missing",
			data:    map[string]any{"q3": "hi"},
			wantErr: apperror.ErrValidation,
			field:   "q1",
		},
		{
			name:    "required element blank",
			data:    map[string]any{"q1": "   "},
			wantErr: apperror.ErrValidation,
			field:   "q1",
		},
		{
			name:    "required element revealed by condition",
			data:    map[string]any{"q1": "yes"},
			wantErr: apperror.ErrValidation,
			field:   "q2",
		},
		{
			name:   "hidden required element is not enforced and its value is dropped",
			data:   map[string]any{"q1": "no", "q2": float64(5)},
			stored: map[string]any{"q1": "no"},
		},
		{
			name:   "anonymous respondent",
			caller: Caller{},
			data:   map[string]any{"q1": "no"},
			stored: map[string]any{"q1": "no"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t)
			ctx := context.Background()
			saved := fx.createForm(t, owner, "Cats", threeElements())

			_, err := fx.responses.Submit(ctx, tt.caller, saved.FormID, tt.data)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
				var appErr *apperror.AppError
				require.True(t, errors.As(err, &appErr))
				assert.Equal(t, tt.field, appErr.Field)
				assert.Equal(t, 0, fx.count(t, repository.Responses, repository.ColFormID, saved.FormID))
				return
			}

			require.NoError(t, err)
			list, err := fx.responses.List(ctx, owner, saved.FormID)
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, tt.stored, list[0].Data)
			assert.Equal(t, tt.caller.UserID, list[0].RespondentID)
		})
	}
}

func TestSubmit_SectionsNeverRequireInput(t *testing.T) {
	fx := newFixture(t)
	saved := fx.createForm(t, owner, "Sections", []model.FormElement{
		{ElementID: "intro", Type: model.TypeSection, Label: "About you", Required: true},
	})

	_, err := fx.responses.Submit(context.Background(), Caller{}, saved.FormID, nil)
	assert.NoError(t, err)
}

func TestSubmit_FormGates(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	res, err := fx.forms.Save(ctx, owner, model.FormInput{Title: "Members only", RequireLogin: true, Status: model.StatusActive})
	require.NoError(t, err)

	_, err = fx.responses.SubmitByShareID(ctx, Caller{}, res.ShareID, map[string]any{})
	assert.True(t, errors.Is(err, apperror.ErrForbidden))

	_, err = fx.responses.SubmitByShareID(ctx, stranger, res.ShareID, map[string]any{})
	assert.NoError(t, err)

	_, err = fx.forms.Save(ctx, owner, model.FormInput{ID: res.FormID, Title: "Closed", Status: model.StatusArchived})
	require.NoError(t, err)
	_, err = fx.responses.SubmitByShareID(ctx, stranger, res.ShareID, map[string]any{})
	assert.True(t, errors.Is(err, apperror.ErrForbidden))

	_, err = fx.responses.SubmitByShareID(ctx, stranger, "missing1", map[string]any{})
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestList_NewestFirstAndOwnerOnly(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	saved := fx.createForm(t, owner, "Cats", nil)

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := fx.responses.Submit(ctx, Caller{}, saved.FormID, map[string]any{})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	list, err := fx.responses.List(ctx, owner, saved.FormID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{list[0].ID, list[1].ID, list[2].ID})

	_, err = fx.responses.List(ctx, stranger, saved.FormID)
	assert.True(t, errors.Is(err, apperror.ErrForbidden))

	_, err = fx.responses.List(ctx, operator, saved.FormID)
	assert.NoError(t, err)
}

type stubDirectory map[string]*model.RespondentProfile

func (d stubDirectory) Profile(_ context.Context, userID string) (*model.RespondentProfile, error) {
	if userID == "broken" {
		return nil, errors.New("directory offline")
	}
	return d[userID], nil
}

func TestRecent_AnnotatesListings(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.responses.directory = stubDirectory{"u2": {Username: "Robin", AvatarURL: "https://example.test/r.png"}}

	cats := fx.createForm(t, owner, "Cats", nil)
	_, err := fx.repo.Insert(ctx, repository.Forms, rowstore.Row{"title": "", "created_by": "u1", "share_id": "untitled"})
	require.NoError(t, err)
	untitled, err := fx.forms.GetByShareID(ctx, "untitled")
	require.NoError(t, err)
	other := fx.createForm(t, stranger, "Elsewhere", nil)

	_, err = fx.responses.Submit(ctx, stranger, cats.FormID, nil)
	require.NoError(t, err)
	_, err = fx.responses.Submit(ctx, Caller{UserID: "broken"}, untitled.ID, nil)
	require.NoError(t, err)
	_, err = fx.responses.Submit(ctx, Caller{}, cats.FormID, nil)
	require.NoError(t, err)
	_, err = fx.responses.Submit(ctx, stranger, other.FormID, nil)
	require.NoError(t, err)

	recent, err := fx.responses.Recent(ctx, owner, 0)
	require.NoError(t, err)
	require.Len(t, recent, 3, "responses to other people's forms are excluded")

	assert.Equal(t, "Cats", recent[0].FormTitle)
	assert.Nil(t, recent[0].UserProfile, "anonymous")

	assert.Equal(t, "Untitled Form", recent[1].FormTitle)
	assert.Nil(t, recent[1].UserProfile, "directory failure degrades to no profile")

	assert.Equal(t, "Cats", recent[2].FormTitle)
	require.NotNil(t, recent[2].UserProfile)
	assert.Equal(t, "Robin", recent[2].UserProfile.Username)

	limited, err := fx.responses.Recent(ctx, owner, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRecent_NoFormsSkipsResponseQuery(t *testing.T) {
	fx := newFixture(t)

	recent, err := fx.responses.Recent(context.Background(), owner, 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
	for _, call := range fx.store.calls {
		assert.NotEqual(t, repository.Responses, call.Table)
	}

	_, err = fx.responses.Recent(context.Background(), Caller{}, 10)
	assert.True(t, errors.Is(err, apperror.ErrForbidden))
}

func TestGeneratedDirectory(t *testing.T) {
	dir := GeneratedDirectory{}

	a, err := dir.Profile(context.Background(), "abcdef")
	require.NoError(t, err)
	b, err := dir.Profile(context.Background(), "abcdef")
	require.NoError(t, err)
	assert.Equal(t, a, b, "profiles are deterministic")
	assert.Contains(t, a.Username, "abcd")
	assert.Equal(t, "https://api.dicebear.com/7.x/avataaars/svg?seed=abcdef", a.AvatarURL)

	none, err := dir.Profile(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, none)
}
