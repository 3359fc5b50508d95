package domain

import (
	"errors"
	"testing"
)

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"USER":       RoleUser,
		"user":       RoleUser,
		" ANONYMOUS": RoleAnonymous,
		"admin":      RoleAdmin,
	}
	for in, want := range cases {
		got, err := ParseRole(in)
		if err != nil {
			t.Fatalf("ParseRole(%q) returned error: %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseRole(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestParseRole_Unknown(t *testing.T) {
	if _, err := ParseRole("superuser"); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
	if _, err := ParseRole(""); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole for empty role, got %v", err)
	}
}

func TestUser_IsAnonymous(t *testing.T) {
	var nilUser *User
	if nilUser.IsAnonymous() {
		t.Fatalf("nil user must not be anonymous")
	}
	if (&User{Role: RoleUser}).IsAnonymous() {
		t.Fatalf("USER must not be anonymous")
	}
	if !(&User{Role: RoleAnonymous}).IsAnonymous() {
		t.Fatalf("ANONYMOUS must be anonymous")
	}
}
