package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/atvirokodosprendimai/accessdesk/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

const DefaultTokenTTL = 24 * time.Hour

// Service is the application core: authentication, the request lifecycle,
// catalog administration and audit. Every operation goes through the policy
// before touching the store.
type Service struct {
	repo     domain.Repository
	secret   []byte
	policy   domain.Policy
	events   domain.EventPublisher
	tokenTTL time.Duration
	now      func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

func WithPolicy(policy domain.Policy) Option {
	return func(s *Service) {
		s.policy = policy
	}
}

func WithPublisher(events domain.EventPublisher) Option {
	return func(s *Service) {
		s.events = events
	}
}

func NewService(repo domain.Repository, secret []byte, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		secret:   secret,
		policy:   domain.Policy{Mode: domain.PolicyPermissive},
		tokenTTL: DefaultTokenTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Policy() domain.Policy {
	return s.policy
}

// BootstrapAdmin creates the first Admin account when the credential store is
// empty. It is a no-op otherwise.
func (s *Service) BootstrapAdmin(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return errors.New("bootstrap admin username and password are required")
	}

	count, err := s.repo.CountUsers(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	u, err := s.repo.CreateUser(ctx, domain.User{Username: username, PasswordHash: hash, Role: domain.RoleAdmin})
	if err != nil {
		return err
	}

	return s.repo.CreateAuditLog(ctx, domain.AuditLog{ActorUserID: &u.ID, Action: "auth.bootstrap_admin", TargetType: "user", TargetID: &u.ID, Metadata: "initial admin created"})
}

func (s *Service) WriteAudit(ctx context.Context, actorUserID *uint, action, targetType string, targetID *uint, metadata string) {
	err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ActorUserID: actorUserID,
		Action:      action,
		TargetType:  targetType,
		TargetID:    targetID,
		Metadata:    metadata,
	})
	if err != nil {
		log.Printf("audit %s: %v", action, err)
	}
}

func (s *Service) ListAuditLogs(ctx context.Context, caller *domain.User, limit int) ([]domain.AuditRecord, error) {
	if err := s.policy.Allow(caller, domain.CapAuditRead); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 200
	}
	if limit > 2000 {
		limit = 2000
	}
	return s.repo.ListAuditLogs(ctx, limit)
}

func (s *Service) ListUsers(ctx context.Context, caller *domain.User, limit int) ([]domain.User, error) {
	if err := s.policy.Allow(caller, domain.CapUserList); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 200
	}
	if limit > 2000 {
		limit = 2000
	}
	return s.repo.ListUsers(ctx, limit)
}

// publish hands an event to the configured publisher. Delivery is best
// effort: failures are logged and never fail the calling operation.
func (s *Service) publish(ctx context.Context, eventType string, req domain.AccessRequest) {
	if s.events == nil {
		return
	}
	event := domain.RequestEvent{
		Type:       eventType,
		RequestID:  req.ID,
		UserID:     req.UserID,
		SoftwareID: req.SoftwareID,
		Status:     req.Status,
		At:         s.now().UTC(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		log.Printf("publish %s for request %d: %v", eventType, req.ID, err)
	}
}

func actorID(caller *domain.User) *uint {
	if caller == nil {
		return nil
	}
	id := caller.ID
	return &id
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
