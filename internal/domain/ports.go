package domain

import (
	"context"
	"time"
)

type Repository interface {
	CreateUser(ctx context.Context, value User) (User, error)
	CountUsers(ctx context.Context) (int64, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	GetUserByID(ctx context.Context, id uint) (User, error)
	ListUsers(ctx context.Context, limit int) ([]User, error)

	CreateSoftware(ctx context.Context, value Software) (Software, error)
	ListSoftware(ctx context.Context) ([]Software, error)
	GetSoftwareByID(ctx context.Context, id uint) (Software, error)
	UpdateSoftware(ctx context.Context, id uint, patch SoftwarePatch) (Software, error)
	DeleteSoftware(ctx context.Context, id uint) error

	CreateRequest(ctx context.Context, value AccessRequest) (AccessRequest, error)
	GetRequest(ctx context.Context, id uint, expand bool) (AccessRequest, error)
	ListRequests(ctx context.Context, query RequestQuery) ([]AccessRequest, error)
	UpdateRequestStatus(ctx context.Context, id uint, status RequestStatus) error
	DeleteRequest(ctx context.Context, id uint) error
	CountRequests(ctx context.Context) (int64, error)

	CreateAuditLog(ctx context.Context, value AuditLog) error
	ListAuditLogs(ctx context.Context, limit int) ([]AuditRecord, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event RequestEvent) error
}

type LimitDecision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

type Limiter interface {
	Allow(ctx context.Context, key string, limit int) LimitDecision
}
