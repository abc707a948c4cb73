// Package service holds the form logic that sits between the HTTP handlers
// and the repository.
//
//	Handler (HTTP)  → parses requests, writes responses
//	Service         → validates, checks ownership, sequences writes
//	Repository      → talks to the row store
//
// The row store offers no transactions across requests. Compound writes are
// therefore run as ordered cascades (see cascade.go): the form row first,
// then its elements. A failure part way through is reported with
// apperror.PartialCascadeError and left in place for the caller to handle.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/formsmith/internal/apperror"
	"github.com/sakif/formsmith/internal/model"
	"github.com/sakif/formsmith/internal/repository"
	"github.com/sakif/formsmith/internal/rowstore"
)

// FormService saves, assembles and deletes forms.
type FormService struct {
	repo       *repository.Translator
	logger     *slog.Logger
	now        func() time.Time
	newShareID func() (string, error)
}

func NewFormService(repo *repository.Translator, logger *slog.Logger) *FormService {
	return &FormService{
		repo:       repo,
		logger:     logger,
		now:        time.Now,
		newShareID: NewShareID,
	}
}

// stamp returns the current time at the precision every store we target can
// round-trip, so an updatedAt read back compares equal to the one written.
func (s *FormService) stamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// Save creates a form (empty in.ID) or replaces an existing one.
//
// Create: insert the form row with a fresh shareId, then insert its elements.
// Update: update the form row, delete every element of the form, insert the
// new element list. The form row always goes first because elements need its
// id.
//
// If the form row committed but a later step failed, Save returns the
// SaveResult together with a *apperror.PartialCascadeError. Callers should
// treat the form as saved and its elements as possibly stale.
func (s *FormService) Save(ctx context.Context, caller Caller, in model.FormInput) (*model.SaveResult, error) {
	if err := requireSignedIn(caller); err != nil {
		return nil, err
	}
	in, err := normalizeInput(in)
	if err != nil {
		return nil, err
	}

	if in.ID == "" {
		return s.create(ctx, caller, in)
	}

	existing, err := s.loadFormRow(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if !caller.canManage(existing.CreatedBy) {
		return nil, apperror.Forbidden("you can only edit your own forms")
	}
	return s.replace(ctx, "save", in)
}

// AdminUpdate replaces a form's metadata and elements on behalf of an
// operator, regardless of who owns it. The cascade is the same as Save's.
func (s *FormService) AdminUpdate(ctx context.Context, caller Caller, id string, in model.FormInput) (*model.SaveResult, error) {
	if err := requirePrivileged(caller); err != nil {
		return nil, err
	}
	in.ID = id
	in, err := normalizeInput(in)
	if err != nil {
		return nil, err
	}
	if in.ID == "" {
		return nil, apperror.ValidationFailed("id", "form ID is required")
	}
	if _, err := s.loadFormRow(ctx, in.ID); err != nil {
		return nil, err
	}
	return s.replace(ctx, "update", in)
}

func (s *FormService) create(ctx context.Context, caller Caller, in model.FormInput) (*model.SaveResult, error) {
	shareID, err := s.allocateShareID(ctx)
	if err != nil {
		return nil, err
	}

	now := s.stamp()
	row := repository.FormRow(in, now)
	row[repository.ColShareID] = shareID
	row[repository.ColCreatedBy] = caller.UserID
	row["created_by_username"] = in.CreatorUsername
	row[repository.ColCreatedAt] = repository.Timestamp(now)

	c := newCascade("save", "")
	var result *model.SaveResult

	err = c.run(apperror.StepUpsertForm, func() error {
		res, err := s.repo.Insert(ctx, repository.Forms, row)
		if err != nil {
			return err
		}
		inserted, ok := res.First()
		if !ok {
			return apperror.Store("insert of form returned no row", nil)
		}
		form, err := repository.DecodeForm(inserted)
		if err != nil {
			return fmt.Errorf("decoding inserted form: %w", err)
		}
		result = &model.SaveResult{FormID: form.ID, ShareID: form.ShareID, UpdatedAt: form.UpdatedAt}
		return nil
	})
	if err != nil {
		s.logger.Error("failed to create form",
			slog.String("owner", caller.UserID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	c.formID = result.FormID

	if len(in.Elements) > 0 {
		err = c.run(apperror.StepInsertElements, func() error {
			_, err := s.repo.Insert(ctx, repository.Elements, repository.ElementRows(result.FormID, in.Elements))
			return err
		})
		if err != nil {
			s.logPartial(err)
			return result, err
		}
	}

	s.logger.Info("form created",
		slog.String("id", result.FormID),
		slog.String("share_id", result.ShareID),
		slog.Int("elements", len(in.Elements)),
	)
	return result, nil
}

// replace runs the update cascade for an existing form. When
// in.ExpectedUpdatedAt is set the form row is only written if it still
// carries that stamp; otherwise the save fails with a Conflict and no element
// is touched.
func (s *FormService) replace(ctx context.Context, operation string, in model.FormInput) (*model.SaveResult, error) {
	now := s.stamp()
	row := repository.FormRow(in, now)

	eq := rowstore.Eq{{Field: repository.ColID, Value: in.ID}}
	if in.ExpectedUpdatedAt != nil {
		eq = append(eq, rowstore.Match{Field: repository.ColUpdatedAt, Value: repository.Timestamp(*in.ExpectedUpdatedAt)})
	}

	c := newCascade(operation, in.ID)
	var result *model.SaveResult

	err := c.run(apperror.StepUpsertForm, func() error {
		res, err := s.repo.Update(ctx, repository.Forms, row, eq)
		if err != nil {
			return err
		}
		updated, ok := res.First()
		if !ok {
			return apperror.NotFound("form", in.ID)
		}
		form, err := repository.DecodeForm(updated)
		if err != nil {
			return fmt.Errorf("decoding updated form: %w", err)
		}
		// A store that does not echo updates makes the translator re-read by
		// id, which returns the row whether or not the stamp matched.
		if in.ExpectedUpdatedAt != nil && !form.UpdatedAt.Equal(now) {
			return apperror.Conflict("form", in.ID)
		}
		result = &model.SaveResult{FormID: form.ID, ShareID: form.ShareID, UpdatedAt: form.UpdatedAt}
		return nil
	})
	if err != nil {
		if !errors.Is(err, apperror.ErrConflict) {
			s.logger.Error("failed to update form",
				slog.String("id", in.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, err
	}

	elementFilter := rowstore.Eq{{Field: repository.ColFormID, Value: in.ID}}
	err = c.run(apperror.StepDeleteElements, func() error {
		return s.repo.Delete(ctx, repository.Elements, elementFilter)
	})
	if err != nil {
		s.logPartial(err)
		return result, err
	}

	if len(in.Elements) > 0 {
		err = c.run(apperror.StepInsertElements, func() error {
			_, err := s.repo.Insert(ctx, repository.Elements, repository.ElementRows(in.ID, in.Elements))
			return err
		})
		if err != nil {
			s.logPartial(err)
			return result, err
		}
	}

	s.logger.Info("form saved",
		slog.String("id", in.ID),
		slog.String("operation", operation),
		slog.Int("elements", len(in.Elements)),
	)
	return result, nil
}

// Delete removes a form with its elements and responses, in that order:
// elements, responses, then the form row. Each step aborts the rest on
// failure. Nothing already deleted is restored, so a failed Delete can be
// re-run to finish the job.
func (s *FormService) Delete(ctx context.Context, caller Caller, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "form ID is required")
	}
	if err := requireSignedIn(caller); err != nil {
		return err
	}

	existing, err := s.loadFormRow(ctx, id)
	if err != nil {
		return err
	}
	if !caller.canManage(existing.CreatedBy) {
		return apperror.Forbidden("you can only delete your own forms")
	}

	c := newCascade("delete", id)
	byForm := rowstore.Eq{{Field: repository.ColFormID, Value: id}}

	steps := []struct {
		step apperror.Step
		fn   func() error
	}{
		{apperror.StepDeleteElements, func() error { return s.repo.Delete(ctx, repository.Elements, byForm) }},
		{apperror.StepDeleteResponses, func() error { return s.repo.Delete(ctx, repository.Responses, byForm) }},
		{apperror.StepDeleteForm, func() error {
			return s.repo.Delete(ctx, repository.Forms, rowstore.Eq{{Field: repository.ColID, Value: id}})
		}},
	}
	for _, st := range steps {
		if err := c.run(st.step, st.fn); err != nil {
			s.logPartial(err)
			s.logger.Error("failed to delete form",
				slog.String("id", id),
				slog.String("step", string(st.step)),
				slog.String("error", err.Error()),
			)
			return err
		}
	}

	s.logger.Info("form deleted", slog.String("id", id), slog.String("by", caller.UserID))
	return nil
}

// GetByID assembles a form for its owner or an operator.
func (s *FormService) GetByID(ctx context.Context, caller Caller, id string) (*model.Form, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "form ID is required")
	}
	form, err := s.assemble(ctx, rowstore.Match{Field: repository.ColID, Value: id})
	if err != nil {
		return nil, err
	}
	if !caller.canManage(form.CreatedBy) {
		return nil, apperror.Forbidden("you can only view your own forms")
	}
	return form, nil
}

// GetByShareID assembles a form by its public token. Anyone may call it.
func (s *FormService) GetByShareID(ctx context.Context, shareID string) (*model.Form, error) {
	shareID = strings.TrimSpace(shareID)
	if shareID == "" {
		return nil, apperror.ValidationFailed("shareId", "share ID is required")
	}
	return s.assemble(ctx, rowstore.Match{Field: repository.ColShareID, Value: shareID})
}

// ListForOwner returns the owner's forms, most recently updated first, each
// with its response count. If the counts cannot be fetched the forms are
// still returned with zero counts.
func (s *FormService) ListForOwner(ctx context.Context, ownerID string) ([]model.FormSummary, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, apperror.ValidationFailed("ownerId", "owner ID is required")
	}

	res, err := s.repo.Select(ctx, repository.Forms, &rowstore.Filters{
		Eq:    rowstore.Eq{{Field: repository.ColCreatedBy, Value: ownerID}},
		Order: rowstore.Order{{Field: repository.ColUpdatedAt, Direction: rowstore.Desc}},
	})
	if err != nil {
		return nil, fmt.Errorf("listing forms of %s: %w", ownerID, err)
	}

	summaries := make([]model.FormSummary, 0, len(res.Rows))
	ids := make([]any, 0, len(res.Rows))
	for _, row := range res.Rows {
		summary, err := repository.DecodeSummary(row)
		if err != nil {
			return nil, fmt.Errorf("decoding form row: %w", err)
		}
		summaries = append(summaries, summary)
		ids = append(ids, summary.ID)
	}

	counts := s.responseCounts(ctx, ids)
	for i := range summaries {
		summaries[i].ResponseCount = counts[summaries[i].ID]
	}
	return summaries, nil
}

// responseCounts is best effort: a failure is logged and reads as no
// responses, so the dashboard still renders.
func (s *FormService) responseCounts(ctx context.Context, formIDs []any) map[string]int {
	res, err := s.repo.Select(ctx, repository.Responses, &rowstore.Filters{
		In:      map[string][]any{repository.ColFormID: formIDs},
		GroupBy: repository.ColFormID,
	})
	if err != nil {
		s.logger.Warn("response counts unavailable", slog.String("error", err.Error()))
		return map[string]int{}
	}
	counts, err := res.Counts(repository.ColFormID)
	if err != nil {
		s.logger.Warn("response counts unreadable", slog.String("error", err.Error()))
		return map[string]int{}
	}
	return counts
}

// UserActivity lists everything a user created or submitted. Operators only.
func (s *FormService) UserActivity(ctx context.Context, caller Caller, userID string) (*model.UserActivity, error) {
	if err := requirePrivileged(caller); err != nil {
		return nil, err
	}
	forms, err := s.ListForOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	res, err := s.repo.Select(ctx, repository.Responses, &rowstore.Filters{
		Eq:    rowstore.Eq{{Field: repository.ColRespondentID, Value: userID}},
		Order: rowstore.Order{{Field: repository.ColCreatedAt, Direction: rowstore.Desc}},
	})
	if err != nil {
		return nil, fmt.Errorf("listing responses of %s: %w", userID, err)
	}
	responses, err := decodeResponses(res.Rows)
	if err != nil {
		return nil, err
	}

	return &model.UserActivity{UserID: userID, Forms: forms, Responses: responses}, nil
}

// assemble loads one form row by key, then its elements sorted by order.
func (s *FormService) assemble(ctx context.Context, key rowstore.Match) (*model.Form, error) {
	form, err := s.loadForm(ctx, key)
	if err != nil {
		return nil, err
	}

	res, err := s.repo.Select(ctx, repository.Elements, &rowstore.Filters{
		Eq:    rowstore.Eq{{Field: repository.ColFormID, Value: form.ID}},
		Order: rowstore.Order{{Field: repository.ColOrder, Direction: rowstore.Asc}},
	})
	if err != nil {
		return nil, fmt.Errorf("loading elements of form %s: %w", form.ID, err)
	}

	form.Elements = make([]model.FormElement, 0, len(res.Rows))
	for _, row := range res.Rows {
		el, err := repository.DecodeElement(row)
		if err != nil {
			return nil, fmt.Errorf("decoding element of form %s: %w", form.ID, err)
		}
		form.Elements = append(form.Elements, el)
	}
	return form, nil
}

func (s *FormService) loadFormRow(ctx context.Context, id string) (*model.Form, error) {
	return s.loadForm(ctx, rowstore.Match{Field: repository.ColID, Value: id})
}

// loadForm reads the form row matching key, without elements.
func (s *FormService) loadForm(ctx context.Context, key rowstore.Match) (*model.Form, error) {
	res, err := s.repo.Select(ctx, repository.Forms, &rowstore.Filters{
		Eq:    rowstore.Eq{key},
		Limit: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("loading form by %s: %w", key.Field, err)
	}
	row, ok := res.First()
	if !ok {
		return nil, apperror.NotFound("form", fmt.Sprint(key.Value))
	}
	form, err := repository.DecodeForm(row)
	if err != nil {
		return nil, fmt.Errorf("decoding form row: %w", err)
	}
	return &form, nil
}

// allocateShareID draws tokens until one is unused. The store's unique
// constraint still guards the window between this check and the insert.
func (s *FormService) allocateShareID(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= maxShareIDRetries; attempt++ {
		token, err := s.newShareID()
		if err != nil {
			return "", fmt.Errorf("generating share id: %w", err)
		}
		res, err := s.repo.Select(ctx, repository.Forms, &rowstore.Filters{
			Eq:    rowstore.Eq{{Field: repository.ColShareID, Value: token}},
			Limit: 1,
		})
		if err != nil {
			return "", fmt.Errorf("checking share id: %w", err)
		}
		if len(res.Rows) == 0 {
			return token, nil
		}
		s.logger.Warn("share id collision", slog.Int("attempt", attempt))
	}
	return "", fmt.Errorf("no unused share id after %d attempts", maxShareIDRetries)
}

func (s *FormService) logPartial(err error) {
	var partial *apperror.PartialCascadeError
	if !errors.As(err, &partial) {
		return
	}
	committed := make([]string, len(partial.Committed))
	for i, step := range partial.Committed {
		committed[i] = string(step)
	}
	s.logger.Error("cascade stopped part way",
		slog.String("operation", partial.Operation),
		slog.String("form_id", partial.FormID),
		slog.String("failed", string(partial.Failed)),
		slog.String("committed", strings.Join(committed, ",")),
		slog.String("error", partial.Err.Error()),
	)
}

func decodeResponses(rows []rowstore.Row) ([]model.FormResponse, error) {
	out := make([]model.FormResponse, 0, len(rows))
	for _, row := range rows {
		resp, err := repository.DecodeResponse(row)
		if err != nil {
			return nil, fmt.Errorf("decoding response row: %w", err)
		}
		out = append(out, resp)
	}
	return out, nil
}
