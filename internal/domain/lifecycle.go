package domain

import "strings"

func ParseRole(raw string) (Role, error) {
	switch Role(strings.TrimSpace(raw)) {
	case "":
		return RoleEmployee, nil
	case RoleEmployee:
		return RoleEmployee, nil
	case RoleManager:
		return RoleManager, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", ErrInvalidRole
	}
}

func ParseAccessType(raw string) (AccessType, error) {
	switch v := AccessType(raw); v {
	case AccessRead, AccessWrite, AccessAdmin:
		return v, nil
	default:
		return "", ErrInvalidAccessType
	}
}

func ParseRequestStatus(raw string) (RequestStatus, error) {
	switch v := RequestStatus(raw); v {
	case StatusPending, StatusApproved, StatusRejected:
		return v, nil
	default:
		return "", ErrInvalidStatus
	}
}

// CanTransition reports whether a request may move from one status to another.
// Pending is the only non-terminal state.
func CanTransition(from, to RequestStatus) bool {
	if from != StatusPending {
		return false
	}
	return to == StatusApproved || to == StatusRejected
}

func IsTerminal(status RequestStatus) bool {
	return status == StatusApproved || status == StatusRejected
}

// NormalizeAccessLevels trims entries, splits comma separated values and drops
// blanks while keeping order.
func NormalizeAccessLevels(levels []string) []string {
	out := make([]string, 0, len(levels))
	for _, level := range levels {
		for _, part := range strings.Split(level, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}
