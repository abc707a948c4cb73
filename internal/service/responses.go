package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/formsmith/internal/apperror"
	"github.com/sakif/formsmith/internal/condition"
	"github.com/sakif/formsmith/internal/model"
	"github.com/sakif/formsmith/internal/repository"
	"github.com/sakif/formsmith/internal/rowstore"
)

const (
	DefaultRecentLimit = 10
	MaxRecentLimit     = 100

	untitledForm = "Untitled Form"
)

// Directory looks up how a respondent is displayed. A nil profile with a nil
// error means the user is unknown.
type Directory interface {
	Profile(ctx context.Context, userID string) (*model.RespondentProfile, error)
}

// ResponseService accepts submissions and lists them for form owners.
type ResponseService struct {
	forms     *FormService
	repo      *repository.Translator
	directory Directory
	logger    *slog.Logger
	now       func() time.Time
}

func NewResponseService(forms *FormService, repo *repository.Translator, directory Directory, logger *slog.Logger) *ResponseService {
	if directory == nil {
		directory = GeneratedDirectory{}
	}
	return &ResponseService{
		forms:     forms,
		repo:      repo,
		directory: directory,
		logger:    logger,
		now:       time.Now,
	}
}

// Submit records a complete response to the form with the given id.
func (s *ResponseService) Submit(ctx context.Context, caller Caller, formID string, data map[string]any) (string, error) {
	formID = strings.TrimSpace(formID)
	if formID == "" {
		return "", apperror.ValidationFailed("formId", "form ID is required")
	}
	form, err := s.forms.assemble(ctx, rowstore.Match{Field: repository.ColID, Value: formID})
	if err != nil {
		return "", err
	}
	return s.submit(ctx, caller, form, data)
}

// SubmitByShareID records a complete response to the form behind a public
// share token.
func (s *ResponseService) SubmitByShareID(ctx context.Context, caller Caller, shareID string, data map[string]any) (string, error) {
	form, err := s.forms.GetByShareID(ctx, shareID)
	if err != nil {
		return "", err
	}
	return s.submit(ctx, caller, form, data)
}

// submit checks data against the form's elements and stores what passes.
//
// Only values of visible, input-taking elements are kept. Every visible
// required element must have a non-empty value. Visibility is evaluated
// against the data as submitted.
func (s *ResponseService) submit(ctx context.Context, caller Caller, form *model.Form, data map[string]any) (string, error) {
	if form.Status == model.StatusArchived {
		return "", apperror.Forbidden("this form is no longer accepting responses")
	}
	if form.RequireLogin && caller.Anonymous() {
		return "", apperror.Forbidden("this form requires sign in")
	}

	kept := make(map[string]any, len(data))
	for _, el := range form.Elements {
		if !el.Type.AcceptsInput() || !condition.Visible(el, data) {
			continue
		}
		value, ok := data[el.ElementID]
		if el.Required && (!ok || blank(value)) {
			name := el.Label
			if name == "" {
				name = el.ElementID
			}
			return "", apperror.ValidationFailed(el.ElementID, fmt.Sprintf("%q is required", name))
		}
		if ok {
			kept[el.ElementID] = value
		}
	}

	row := rowstore.Row{
		repository.ColFormID:    form.ID,
		"data":                  kept,
		"status":                string(model.ResponseComplete),
		repository.ColCreatedAt: repository.Timestamp(s.now()),
	}
	if !caller.Anonymous() {
		row[repository.ColRespondentID] = caller.UserID
	}

	res, err := s.repo.Insert(ctx, repository.Responses, row)
	if err != nil {
		s.logger.Error("failed to store response",
			slog.String("form_id", form.ID),
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("storing response to form %s: %w", form.ID, err)
	}
	inserted, ok := res.First()
	if !ok {
		return "", apperror.Store("insert of response returned no row", nil)
	}
	id, _ := inserted[repository.ColID].(string)

	s.logger.Info("response submitted",
		slog.String("form_id", form.ID),
		slog.String("response_id", id),
		slog.Bool("anonymous", caller.Anonymous()),
	)
	return id, nil
}

// List returns a form's responses, newest first. Only the form's owner or an
// operator may read them.
func (s *ResponseService) List(ctx context.Context, caller Caller, formID string) ([]model.FormResponse, error) {
	formID = strings.TrimSpace(formID)
	if formID == "" {
		return nil, apperror.ValidationFailed("formId", "form ID is required")
	}
	form, err := s.forms.loadFormRow(ctx, formID)
	if err != nil {
		return nil, err
	}
	if !caller.canManage(form.CreatedBy) {
		return nil, apperror.Forbidden("you can only view responses to your own forms")
	}

	res, err := s.repo.Select(ctx, repository.Responses, &rowstore.Filters{
		Eq:    rowstore.Eq{{Field: repository.ColFormID, Value: formID}},
		Order: rowstore.Order{{Field: repository.ColCreatedAt, Direction: rowstore.Desc}},
	})
	if err != nil {
		return nil, fmt.Errorf("listing responses of form %s: %w", formID, err)
	}
	return decodeResponses(res.Rows)
}

// Recent returns the newest responses across all of the caller's forms,
// annotated with the form title and the respondent's display profile.
func (s *ResponseService) Recent(ctx context.Context, caller Caller, limit int) ([]model.ResponseListing, error) {
	if err := requireSignedIn(caller); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}

	formsRes, err := s.repo.Select(ctx, repository.Forms, &rowstore.Filters{
		Eq: rowstore.Eq{{Field: repository.ColCreatedBy, Value: caller.UserID}},
	})
	if err != nil {
		return nil, fmt.Errorf("listing forms of %s: %w", caller.UserID, err)
	}

	titles := make(map[string]string, len(formsRes.Rows))
	ids := make([]any, 0, len(formsRes.Rows))
	for _, row := range formsRes.Rows {
		id, _ := row[repository.ColID].(string)
		title, _ := row["title"].(string)
		titles[id] = title
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return []model.ResponseListing{}, nil
	}

	res, err := s.repo.Select(ctx, repository.Responses, &rowstore.Filters{
		In:    map[string][]any{repository.ColFormID: ids},
		Order: rowstore.Order{{Field: repository.ColCreatedAt, Direction: rowstore.Desc}},
		Limit: limit,
	})
	if err != nil {
		return nil, fmt.Errorf("listing recent responses: %w", err)
	}
	responses, err := decodeResponses(res.Rows)
	if err != nil {
		return nil, err
	}

	profiles := make(map[string]*model.RespondentProfile)
	out := make([]model.ResponseListing, len(responses))
	for i, resp := range responses {
		title := titles[resp.FormID]
		if title == "" {
			title = untitledForm
		}
		out[i] = model.ResponseListing{FormResponse: resp, FormTitle: title}

		if resp.RespondentID == "" {
			continue
		}
		profile, seen := profiles[resp.RespondentID]
		if !seen {
			profile, err = s.directory.Profile(ctx, resp.RespondentID)
			if err != nil {
				s.logger.Warn("respondent profile unavailable",
					slog.String("user_id", resp.RespondentID),
					slog.String("error", err.Error()),
				)
				profile = nil
			}
			profiles[resp.RespondentID] = profile
		}
		out[i].UserProfile = profile
	}
	return out, nil
}

// blank reports whether a submitted value counts as no answer.
func blank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case []any:
		return len(x) == 0
	case []string:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	}
	return false
}
