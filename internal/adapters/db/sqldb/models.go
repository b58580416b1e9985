package sqldb

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

type UserModel struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"not null;uniqueIndex"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"not null;default:'Employee'"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (UserModel) TableName() string { return "users" }

type SoftwareModel struct {
	ID           uint   `gorm:"primaryKey"`
	Name         string `gorm:"not null"`
	Description  string
	AccessLevels delimitedList `gorm:"type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (SoftwareModel) TableName() string { return "softwares" }

type RequestModel struct {
	ID         uint   `gorm:"primaryKey"`
	UserID     uint   `gorm:"not null;index"`
	SoftwareID uint   `gorm:"not null;index"`
	AccessType string `gorm:"not null"`
	Reason     string `gorm:"not null"`
	Status     string `gorm:"not null;default:'Pending'"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (RequestModel) TableName() string { return "requests" }

type AuditLogModel struct {
	ID          uint `gorm:"primaryKey"`
	ActorUserID *uint
	Action      string `gorm:"not null;index"`
	TargetType  string `gorm:"not null;index"`
	TargetID    *uint
	Metadata    string
	CreatedAt   time.Time
}

func (AuditLogModel) TableName() string { return "audit_logs" }

// delimitedList stores an ordered string list as a comma separated column.
type delimitedList []string

func (l delimitedList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return nil, nil
	}
	return strings.Join(l, ","), nil
}

func (l *delimitedList) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("delimitedList: unsupported type %T", src)
	}
	if strings.TrimSpace(raw) == "" {
		*l = nil
		return nil
	}
	*l = strings.Split(raw, ",")
	return nil
}
