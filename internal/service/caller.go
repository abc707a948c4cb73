package service

import "github.com/sakif/formsmith/internal/apperror"

// Caller is the identity a request runs as. The service never verifies it;
// the auth middleware (or the operator CLI) is responsible for that.
//
// An empty UserID means an anonymous caller.
type Caller struct {
	UserID     string
	Privileged bool
}

// Anonymous reports whether the caller is signed out.
func (c Caller) Anonymous() bool {
	return c.UserID == ""
}

// canManage reports whether the caller may edit, delete or read the
// responses of a form owned by ownerID.
func (c Caller) canManage(ownerID string) bool {
	if c.Privileged {
		return true
	}
	return !c.Anonymous() && c.UserID == ownerID
}

func requireSignedIn(c Caller) error {
	if c.Anonymous() {
		return apperror.Forbidden("sign in required")
	}
	return nil
}

func requirePrivileged(c Caller) error {
	if !c.Privileged {
		return apperror.Forbidden("operator privileges required")
	}
	return nil
}
