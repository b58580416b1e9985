package domain

import (
	"fmt"
	"strings"
)

type Capability string

const (
	CapRequestCreate  Capability = "request.create"
	CapRequestReadOwn Capability = "request.read.own"
	CapRequestReadAll Capability = "request.read.all"
	CapRequestReview  Capability = "request.review"
	CapRequestDelete  Capability = "request.delete"
	CapCatalogManage  Capability = "catalog.manage"
	CapAuditRead      Capability = "audit.read"
	CapUserList       Capability = "user.list"
)

type PolicyMode string

const (
	// PolicyPermissive lets any authenticated caller act on any request and
	// leaves catalog administration open.
	PolicyPermissive PolicyMode = "permissive"
	// PolicyStrict applies the role grants below.
	PolicyStrict PolicyMode = "strict"
)

var roleGrants = map[Role][]Capability{
	RoleEmployee: {CapRequestCreate, CapRequestReadOwn},
	RoleManager:  {CapRequestCreate, CapRequestReadOwn, CapRequestReadAll, CapRequestReview},
	RoleAdmin: {
		CapRequestCreate, CapRequestReadOwn, CapRequestReadAll, CapRequestReview,
		CapRequestDelete, CapCatalogManage, CapAuditRead, CapUserList,
	},
}

// Policy is the single authorization gate consulted by the application layer
// before every read-all and mutation.
type Policy struct {
	Mode               PolicyMode
	EnforceTransitions bool
}

func ParsePolicyMode(raw string) (PolicyMode, error) {
	switch PolicyMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", PolicyPermissive:
		return PolicyPermissive, nil
	case PolicyStrict:
		return PolicyStrict, nil
	default:
		return "", fmt.Errorf("unknown policy mode %q", raw)
	}
}

func (p Policy) strict() bool {
	return p.Mode == PolicyStrict
}

// Allow checks one capability for caller. A nil caller is anonymous.
func (p Policy) Allow(caller *User, capability Capability) error {
	if !p.strict() {
		if capability == CapCatalogManage {
			return nil
		}
		if caller == nil {
			return ErrMissingToken
		}
		return nil
	}
	if caller == nil {
		return ErrMissingToken
	}
	if p.has(caller.Role, capability) {
		return nil
	}
	return Errorf(ErrForbidden, "Role %s may not perform %s", caller.Role, capability)
}

// AllowRead decides whether caller may see a single request.
func (p Policy) AllowRead(caller *User, req AccessRequest) error {
	if caller != nil && caller.ID == req.UserID {
		return p.Allow(caller, CapRequestReadOwn)
	}
	return p.Allow(caller, CapRequestReadAll)
}

// AllowTransition validates a status change against the state machine when
// the policy enforces transitions. Otherwise any target is accepted.
func (p Policy) AllowTransition(from, to RequestStatus) error {
	if !p.EnforceTransitions {
		return nil
	}
	if !CanTransition(from, to) {
		return ErrInvalidTransition
	}
	return nil
}

func (p Policy) Capabilities(role Role) []Capability {
	if !p.strict() {
		return []Capability{
			CapRequestCreate, CapRequestReadOwn, CapRequestReadAll, CapRequestReview,
			CapRequestDelete, CapCatalogManage, CapAuditRead, CapUserList,
		}
	}
	out := make([]Capability, len(roleGrants[role]))
	copy(out, roleGrants[role])
	return out
}

func (p Policy) has(role Role, capability Capability) bool {
	for _, c := range roleGrants[role] {
		if c == capability {
			return true
		}
	}
	return false
}
