package domain

import "time"

type Role string

const (
	RoleEmployee Role = "Employee"
	RoleManager  Role = "Manager"
	RoleAdmin    Role = "Admin"
)

type AccessType string

const (
	AccessRead  AccessType = "Read"
	AccessWrite AccessType = "Write"
	AccessAdmin AccessType = "Admin"
)

type RequestStatus string

const (
	StatusPending  RequestStatus = "Pending"
	StatusApproved RequestStatus = "Approved"
	StatusRejected RequestStatus = "Rejected"
)

type User struct {
	ID           uint      `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Software struct {
	ID           uint      `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	AccessLevels []string  `json:"accessLevels"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// SoftwarePatch carries a partial catalog update. Nil fields are left as stored.
type SoftwarePatch struct {
	Name         *string
	Description  *string
	AccessLevels *[]string
}

type AccessRequest struct {
	ID         uint
	UserID     uint
	SoftwareID uint
	AccessType AccessType
	Reason     string
	Status     RequestStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time

	// Set only when the ledger read expanded relations.
	User     *User
	Software *Software
}

func (r AccessRequest) SoftwareName() string {
	if r.Software == nil {
		return ""
	}
	return r.Software.Name
}

func (r AccessRequest) Username() string {
	if r.User == nil {
		return ""
	}
	return r.User.Username
}

type RequestQuery struct {
	UserID *uint
	Expand bool
}

type AuditLog struct {
	ID          uint
	ActorUserID *uint
	Action      string
	TargetType  string
	TargetID    *uint
	Metadata    string
	CreatedAt   time.Time
}

type AuditRecord struct {
	ID            uint      `json:"id"`
	ActorUserID   *uint     `json:"actor_user_id"`
	ActorUsername string    `json:"actor_username"`
	Action        string    `json:"action"`
	TargetType    string    `json:"target_type"`
	TargetID      *uint     `json:"target_id"`
	Metadata      string    `json:"metadata"`
	CreatedAt     time.Time `json:"created_at"`
}

const (
	EventRequestCreated       = "request.created"
	EventRequestStatusChanged = "request.status_changed"
	EventRequestDeleted       = "request.deleted"
)

type RequestEvent struct {
	Type       string        `json:"type"`
	RequestID  uint          `json:"requestId"`
	UserID     uint          `json:"userId"`
	SoftwareID uint          `json:"softwareId"`
	Status     RequestStatus `json:"status,omitempty"`
	At         time.Time     `json:"at"`
}
