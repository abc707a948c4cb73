package auth

import "testing"

func TestParsePrivileges(t *testing.T) {
	p := ParsePrivileges(" ops , admin,,  ")

	if got := p.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2", got)
	}
	for _, id := range []string{"ops", "admin"} {
		if !p.Has(id) {
			t.Errorf("Has(%q) = false, want true", id)
		}
	}
	if p.Has("guest") {
		t.Error("Has(guest) = true, want false")
	}
	if p.Has("") {
		t.Error("anonymous user must never be privileged")
	}
}

func TestPrivileges_ZeroValue(t *testing.T) {
	var p Privileges
	if p.Has("ops") || p.Len() != 0 {
		t.Error("zero Privileges must grant nothing")
	}
}
