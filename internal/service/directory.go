package service

import (
	"context"
	"net/url"

	"github.com/sakif/formsmith/internal/model"
)

var displayNames = []string{"Alex", "Jamie", "Taylor", "Jordan", "Casey", "Riley", "Morgan"}

const avatarBaseURL = "https://api.dicebear.com/7.x/avataaars/svg"

// GeneratedDirectory derives a stable display name and avatar from the user
// id alone. It is the fallback when no real profile source is configured.
type GeneratedDirectory struct{}

var _ Directory = GeneratedDirectory{}

func (GeneratedDirectory) Profile(_ context.Context, userID string) (*model.RespondentProfile, error) {
	if userID == "" {
		return nil, nil
	}
	sum := 0
	for _, r := range userID {
		sum += int(r)
	}
	prefix := userID
	if len(prefix) > 4 {
		prefix = prefix[:4]
	}
	return &model.RespondentProfile{
		Username:  displayNames[sum%len(displayNames)] + prefix,
		AvatarURL: avatarBaseURL + "?seed=" + url.QueryEscape(userID),
	}, nil
}
