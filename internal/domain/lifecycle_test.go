package domain

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseAccessTypeRejectsUnknownValues(t *testing.T) {
	for _, raw := range []string{"Read", "Write", "Admin"} {
		if _, err := ParseAccessType(raw); err != nil {
			t.Fatalf("expected %q to parse: %v", raw, err)
		}
	}
	for _, raw := range []string{"", "read", "Execute", " Read"} {
		_, err := ParseAccessType(raw)
		if !errors.Is(err, ErrInvalidAccessType) {
			t.Fatalf("expected ErrInvalidAccessType for %q, got %v", raw, err)
		}
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("expected validation kind for %q", raw)
		}
	}
}

func TestParseRequestStatus(t *testing.T) {
	for _, raw := range []string{"Pending", "Approved", "Rejected"} {
		if _, err := ParseRequestStatus(raw); err != nil {
			t.Fatalf("expected %q to parse: %v", raw, err)
		}
	}
	if _, err := ParseRequestStatus("Done"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestParseRoleDefaultsToEmployee(t *testing.T) {
	role, err := ParseRole("")
	if err != nil || role != RoleEmployee {
		t.Fatalf("expected Employee default, got %q %v", role, err)
	}
	if _, err := ParseRole("Root"); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestCanTransitionOnlyOutOfPending(t *testing.T) {
	cases := []struct {
		from, to RequestStatus
		want     bool
	}{
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusRejected, true},
		{StatusPending, StatusPending, false},
		{StatusApproved, StatusRejected, false},
		{StatusApproved, StatusApproved, false},
		{StatusRejected, StatusPending, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Fatalf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
	if IsTerminal(StatusPending) || !IsTerminal(StatusApproved) || !IsTerminal(StatusRejected) {
		t.Fatalf("unexpected terminal classification")
	}
}

func TestNormalizeAccessLevels(t *testing.T) {
	got := NormalizeAccessLevels([]string{" admin ", "manager,employee", "", " , "})
	want := []string{"admin", "manager", "employee"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestMissingFieldsMessage(t *testing.T) {
	err := MissingFields("softwareId", "accessType", "reason")
	if err.Error() != "softwareId, accessType, and reason are required" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("missing fields should be a validation error")
	}
	var mf *MissingFieldError
	if !errors.As(err, &mf) || len(mf.Fields) != 3 {
		t.Fatalf("expected MissingFieldError with three fields")
	}
}
