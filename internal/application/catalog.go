package application

import (
	"context"
	"strings"

	"github.com/atvirokodosprendimai/accessdesk/internal/domain"
)

func (s *Service) CreateSoftware(ctx context.Context, caller *domain.User, name, description string, accessLevels []string) (domain.Software, error) {
	if err := s.policy.Allow(caller, domain.CapCatalogManage); err != nil {
		return domain.Software{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Software{}, domain.MissingFields("name")
	}

	sw, err := s.repo.CreateSoftware(ctx, domain.Software{
		Name:         name,
		Description:  description,
		AccessLevels: domain.NormalizeAccessLevels(accessLevels),
	})
	if err != nil {
		return domain.Software{}, err
	}

	s.WriteAudit(ctx, actorID(caller), "software.create", "software", &sw.ID, sw.Name)
	return sw, nil
}

func (s *Service) ListSoftware(ctx context.Context) ([]domain.Software, error) {
	return s.repo.ListSoftware(ctx)
}

func (s *Service) GetSoftware(ctx context.Context, id uint) (domain.Software, error) {
	return s.repo.GetSoftwareByID(ctx, id)
}

func (s *Service) UpdateSoftware(ctx context.Context, caller *domain.User, id uint, patch domain.SoftwarePatch) (domain.Software, error) {
	if err := s.policy.Allow(caller, domain.CapCatalogManage); err != nil {
		return domain.Software{}, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return domain.Software{}, domain.MissingFields("name")
		}
		patch.Name = &name
	}
	if patch.AccessLevels != nil {
		levels := domain.NormalizeAccessLevels(*patch.AccessLevels)
		patch.AccessLevels = &levels
	}

	sw, err := s.repo.UpdateSoftware(ctx, id, patch)
	if err != nil {
		return domain.Software{}, err
	}

	s.WriteAudit(ctx, actorID(caller), "software.update", "software", &sw.ID, sw.Name)
	return sw, nil
}

// DeleteSoftware removes a catalog entry together with every request that
// references it.
func (s *Service) DeleteSoftware(ctx context.Context, caller *domain.User, id uint) error {
	if err := s.policy.Allow(caller, domain.CapCatalogManage); err != nil {
		return err
	}
	if err := s.repo.DeleteSoftware(ctx, id); err != nil {
		return err
	}

	s.WriteAudit(ctx, actorID(caller), "software.delete", "software", &id, "")
	return nil
}
