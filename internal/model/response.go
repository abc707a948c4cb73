package model

import "time"

// ResponseStatus marks whether a submission is finished.
type ResponseStatus string

const (
	ResponsePartial  ResponseStatus = "partial"
	ResponseComplete ResponseStatus = "complete"
)

// FormResponse is one submission to a Form. Data maps elementId to the
// submitted value: a scalar, a list for multi-select, or a nested object.
//
// RespondentID is empty for anonymous submissions.
type FormResponse struct {
	ID           string         `json:"id"`
	FormID       string         `json:"formId"`
	RespondentID string         `json:"respondentId,omitempty"`
	Data         map[string]any `json:"data"`
	Status       ResponseStatus `json:"status"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// RespondentProfile is the display information shown next to a response.
type RespondentProfile struct {
	Username  string `json:"username"`
	AvatarURL string `json:"avatar"`
}

// ResponseListing is a FormResponse annotated for the owner's dashboard.
type ResponseListing struct {
	FormResponse
	FormTitle   string             `json:"formTitle"`
	UserProfile *RespondentProfile `json:"userProfile"`
}

// UserActivity collects everything a single user created or submitted.
type UserActivity struct {
	UserID    string         `json:"id"`
	Forms     []FormSummary  `json:"forms"`
	Responses []FormResponse `json:"responses"`
}
