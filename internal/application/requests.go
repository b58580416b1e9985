package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atvirokodosprendimai/accessdesk/internal/domain"
)

func (s *Service) CreateRequest(ctx context.Context, caller *domain.User, softwareID uint, accessType, reason string) (domain.AccessRequest, error) {
	if err := s.policy.Allow(caller, domain.CapRequestCreate); err != nil {
		return domain.AccessRequest{}, err
	}
	if softwareID == 0 || accessType == "" || strings.TrimSpace(reason) == "" {
		return domain.AccessRequest{}, domain.MissingFields("softwareId", "accessType", "reason")
	}
	parsedType, err := domain.ParseAccessType(accessType)
	if err != nil {
		return domain.AccessRequest{}, err
	}

	sw, err := s.repo.GetSoftwareByID(ctx, softwareID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.AccessRequest{}, domain.ErrSoftwareNotFound
		}
		return domain.AccessRequest{}, err
	}

	req, err := s.repo.CreateRequest(ctx, domain.AccessRequest{
		UserID:     caller.ID,
		SoftwareID: sw.ID,
		AccessType: parsedType,
		Reason:     strings.TrimSpace(reason),
		Status:     domain.StatusPending,
	})
	if err != nil {
		return domain.AccessRequest{}, err
	}
	req.Software = &sw
	req.User = caller

	s.WriteAudit(ctx, actorID(caller), "request.create", "request", &req.ID, fmt.Sprintf("software=%d access=%s", sw.ID, parsedType))
	s.publish(ctx, domain.EventRequestCreated, req)
	return req, nil
}

func (s *Service) ListMine(ctx context.Context, caller *domain.User) ([]domain.AccessRequest, error) {
	if err := s.policy.Allow(caller, domain.CapRequestReadOwn); err != nil {
		return nil, err
	}
	id := caller.ID
	return s.repo.ListRequests(ctx, domain.RequestQuery{UserID: &id, Expand: true})
}

func (s *Service) ListAll(ctx context.Context, caller *domain.User) ([]domain.AccessRequest, error) {
	if err := s.policy.Allow(caller, domain.CapRequestReadAll); err != nil {
		return nil, err
	}
	return s.repo.ListRequests(ctx, domain.RequestQuery{Expand: true})
}

func (s *Service) GetRequest(ctx context.Context, caller *domain.User, id uint) (domain.AccessRequest, error) {
	if caller == nil {
		return domain.AccessRequest{}, domain.ErrMissingToken
	}
	req, err := s.repo.GetRequest(ctx, id, true)
	if err != nil {
		return domain.AccessRequest{}, err
	}
	if err := s.policy.AllowRead(caller, req); err != nil {
		return domain.AccessRequest{}, err
	}
	return req, nil
}

// UpdateStatus overwrites the status column of one request. There is no
// locking across the read and the write; concurrent updates resolve as last
// write wins.
func (s *Service) UpdateStatus(ctx context.Context, caller *domain.User, id uint, status string) (domain.AccessRequest, error) {
	if err := s.policy.Allow(caller, domain.CapRequestReview); err != nil {
		return domain.AccessRequest{}, err
	}
	target, err := domain.ParseRequestStatus(status)
	if err != nil {
		return domain.AccessRequest{}, err
	}

	req, err := s.repo.GetRequest(ctx, id, true)
	if err != nil {
		return domain.AccessRequest{}, err
	}
	if err := s.policy.AllowTransition(req.Status, target); err != nil {
		return domain.AccessRequest{}, err
	}

	if err := s.repo.UpdateRequestStatus(ctx, id, target); err != nil {
		return domain.AccessRequest{}, err
	}
	previous := req.Status
	req.Status = target

	s.WriteAudit(ctx, actorID(caller), "request.status", "request", &req.ID, fmt.Sprintf("%s -> %s", previous, target))
	s.publish(ctx, domain.EventRequestStatusChanged, req)
	return req, nil
}

func (s *Service) DeleteRequest(ctx context.Context, caller *domain.User, id uint) error {
	if err := s.policy.Allow(caller, domain.CapRequestDelete); err != nil {
		return err
	}
	req, err := s.repo.GetRequest(ctx, id, false)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteRequest(ctx, id); err != nil {
		return err
	}

	s.WriteAudit(ctx, actorID(caller), "request.delete", "request", &req.ID, "")
	s.publish(ctx, domain.EventRequestDeleted, req)
	return nil
}
