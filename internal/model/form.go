// Package model defines the data structures used throughout the application.
package model

import "time"

// FormStatus is the publication state of a Form.
type FormStatus string

const (
	StatusDraft    FormStatus = "draft"
	StatusActive   FormStatus = "active"
	StatusArchived FormStatus = "archived"
)

// Valid reports whether s is one of the known statuses.
func (s FormStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusArchived:
		return true
	}
	return false
}

// Form is the aggregate a user builds and shares: metadata plus the ordered
// element list.
//
// ShareID is the public, unauthenticated lookup key. It is assigned once on
// creation and never changes.
type Form struct {
	ID                string        `json:"id"`
	Title             string        `json:"title"`
	Description       string        `json:"description"`
	Status            FormStatus    `json:"status"`
	RequireLogin      bool          `json:"requireLogin"`
	ShareID           string        `json:"shareId"`
	CreatedBy         string        `json:"createdBy"`
	CreatedByUsername string        `json:"createdByUsername"`
	CreatedAt         time.Time     `json:"createdAt"`
	UpdatedAt         time.Time     `json:"updatedAt"`
	Elements          []FormElement `json:"elements"`
}

// FormSummary is a Form row as shown on the owner's dashboard. Elements are
// not loaded.
type FormSummary struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Status        FormStatus `json:"status"`
	RequireLogin  bool       `json:"requireLogin"`
	ShareID       string     `json:"shareId"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	ResponseCount int        `json:"responseCount"`
}

// FormInput is what a caller submits to save a Form. An empty ID means create.
//
// ExpectedUpdatedAt is optional. When set on an edit, the save only goes
// through if the stored row still carries that timestamp.
type FormInput struct {
	ID                string        `json:"id,omitempty"`
	Title             string        `json:"title"`
	Description       string        `json:"description"`
	Status            FormStatus    `json:"status"`
	RequireLogin      bool          `json:"requireLogin"`
	CreatorUsername   string        `json:"creatorUsername,omitempty"`
	Elements          []FormElement `json:"elements"`
	ExpectedUpdatedAt *time.Time    `json:"expectedUpdatedAt,omitempty"`
}

// SaveResult identifies the Form a save wrote.
type SaveResult struct {
	FormID    string    `json:"formId"`
	ShareID   string    `json:"shareId"`
	UpdatedAt time.Time `json:"updatedAt"`
}
