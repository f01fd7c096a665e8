package service

import (
	"errors"
	"testing"

	"github.com/yatraavaghasia/Natours/internal/domain"
)

func TestAuthorize(t *testing.T) {
	admin := domain.User{ID: "u1", Role: domain.RoleAdmin}
	guide := domain.User{ID: "u2", Role: domain.RoleGuide}

	if err := Authorize(admin, domain.RoleAdmin, domain.RoleLeadGuide); err != nil {
		t.Fatalf("expected admin to be authorized, got %v", err)
	}
	if err := Authorize(guide, domain.RoleAdmin, domain.RoleLeadGuide); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := Authorize(guide); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for empty role set, got %v", err)
	}
}
