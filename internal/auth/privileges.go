package auth

import "strings"

// Privileges is the set of user ids allowed to act as operators: delete any
// form, edit forms in place and inspect user activity. It is built once from
// configuration and never changes afterwards.
type Privileges struct {
	ids map[string]struct{}
}

// NewPrivileges builds the allow-list. Blank ids are ignored.
func NewPrivileges(ids ...string) Privileges {
	p := Privileges{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			p.ids[id] = struct{}{}
		}
	}
	return p
}

// ParsePrivileges reads a comma separated list such as PRIVILEGED_IDS.
func ParsePrivileges(csv string) Privileges {
	return NewPrivileges(strings.Split(csv, ",")...)
}

// Has reports whether userID is an operator. The anonymous user never is.
func (p Privileges) Has(userID string) bool {
	if userID == "" {
		return false
	}
	_, ok := p.ids[userID]
	return ok
}

// Len is the number of operators.
func (p Privileges) Len() int {
	return len(p.ids)
}
