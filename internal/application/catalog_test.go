package application

import (
	"context"
	"testing"

	"github.com/atvirokodosprendimai/accessdesk/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestCatalogLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.CreateSoftware(ctx, nil, "  ", "desc", nil)
	require.ErrorIs(t, err, domain.ErrValidation)

	vpn, err := svc.CreateSoftware(ctx, nil, " VPN ", "corp", []string{"Read, Write", " ", "Admin"})
	require.NoError(t, err)
	require.Equal(t, "VPN", vpn.Name)
	require.Equal(t, []string{"Read", "Write", "Admin"}, vpn.AccessLevels)

	wiki, err := svc.CreateSoftware(ctx, nil, "Wiki", "", nil)
	require.NoError(t, err)

	list, err := svc.ListSoftware(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, vpn.ID, list[0].ID)
	require.Equal(t, wiki.ID, list[1].ID)

	name := "Wiki 2"
	updated, err := svc.UpdateSoftware(ctx, nil, wiki.ID, domain.SoftwarePatch{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "Wiki 2", updated.Name)
	require.Empty(t, updated.AccessLevels)

	blank := " "
	_, err = svc.UpdateSoftware(ctx, nil, wiki.ID, domain.SoftwarePatch{Name: &blank})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.UpdateSoftware(ctx, nil, 9999, domain.SoftwarePatch{Name: &name})
	require.ErrorIs(t, err, domain.ErrCatalogNotFound)
	require.ErrorIs(t, svc.DeleteSoftware(ctx, nil, 9999), domain.ErrNotFound)

	require.NoError(t, svc.DeleteSoftware(ctx, nil, wiki.ID))
	_, err = svc.GetSoftware(ctx, wiki.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteSoftwareRemovesItsRequests(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)
	alice := mustRegister(t, svc, "alice", domain.RoleEmployee)
	vpn, _ := svc.CreateSoftware(ctx, nil, "VPN", "", nil)
	req, err := svc.CreateRequest(ctx, &alice, vpn.ID, "Read", "r")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteSoftware(ctx, nil, vpn.ID))
	_, err = svc.GetRequest(ctx, &alice, req.ID)
	require.ErrorIs(t, err, domain.ErrRequestNotFound)

	count, err := repo.CountRequests(ctx)
	require.NoError(t, err)
	require.Zero(t, count)
}
