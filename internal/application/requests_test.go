package application

import (
	"context"
	"sync"
	"testing"

	"github.com/atvirokodosprendimai/accessdesk/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestCreateRequestValidation(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)
	alice := mustRegister(t, svc, "alice", domain.RoleEmployee)
	vpn, err := svc.CreateSoftware(ctx, nil, "VPN", "", []string{"employee"})
	require.NoError(t, err)

	cases := []struct {
		name       string
		softwareID uint
		accessType string
		reason     string
		want       error
	}{
		{"missing software", 0, "Read", "x", domain.ErrValidation},
		{"missing access type", vpn.ID, "", "x", domain.ErrValidation},
		{"blank reason", vpn.ID, "Read", "   ", domain.ErrValidation},
		{"unknown access type", vpn.ID, "Execute", "x", domain.ErrInvalidAccessType},
		{"lowercase access type", vpn.ID, "read", "x", domain.ErrInvalidAccessType},
		{"unknown software", 9999, "Read", "x", domain.ErrSoftwareNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateRequest(ctx, &alice, tc.softwareID, tc.accessType, tc.reason)
			require.ErrorIs(t, err, tc.want)
		})
	}

	_, err = svc.CreateRequest(ctx, &alice, 0, "", "")
	require.EqualError(t, err, "softwareId, accessType, and reason are required")

	count, err := repo.CountRequests(ctx)
	require.NoError(t, err)
	require.Zero(t, count, "failed creates leave the ledger untouched")

	_, err = svc.CreateRequest(ctx, nil, vpn.ID, "Read", "x")
	require.ErrorIs(t, err, domain.ErrMissingToken)
}

func TestCreatedRequestsStartPending(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	alice := mustRegister(t, svc, "alice", domain.RoleEmployee)
	vpn, err := svc.CreateSoftware(ctx, nil, "VPN", "", nil)
	require.NoError(t, err)

	for _, accessType := range []string{"Read", "Write", "Admin"} {
		req, err := svc.CreateRequest(ctx, &alice, vpn.ID, accessType, "because")
		require.NoError(t, err)
		require.Equal(t, domain.StatusPending, req.Status)
		require.Equal(t, "VPN", req.SoftwareName())
		require.Equal(t, alice.ID, req.UserID)
	}
}

func TestListMineOnlyReturnsCallerRequests(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	alice := mustRegister(t, svc, "alice", domain.RoleEmployee)
	bob := mustRegister(t, svc, "bob", domain.RoleEmployee)
	manager := mustRegister(t, svc, "mia", domain.RoleManager)
	vpn, _ := svc.CreateSoftware(ctx, nil, "VPN", "", nil)
	wiki, _ := svc.CreateSoftware(ctx, nil, "Wiki", "", nil)

	owners := []domain.User{alice, bob, alice, bob, bob, alice}
	for i, owner := range owners {
		sw := vpn
		if i%2 == 0 {
			sw = wiki
		}
		owner := owner
		_, err := svc.CreateRequest(ctx, &owner, sw.ID, "Read", "r")
		require.NoError(t, err)
	}

	mine, err := svc.ListMine(ctx, &alice)
	require.NoError(t, err)
	require.Len(t, mine, 3)
	for i, req := range mine {
		require.Equal(t, alice.ID, req.UserID)
		require.NotEmpty(t, req.SoftwareName())
		if i > 0 {
			require.Greater(t, mine[i-1].ID, req.ID, "newest id first")
		}
	}

	all, err := svc.ListAll(ctx, &manager)
	require.NoError(t, err)
	require.Len(t, all, len(owners))
	require.Equal(t, "alice", all[0].Username())
	require.Equal(t, "Wiki", all[1].SoftwareName())
}

func TestUpdateStatusChangesOnlyStatus(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	alice := mustRegister(t, svc, "alice", domain.RoleEmployee)
	manager := mustRegister(t, svc, "mia", domain.RoleManager)
	vpn, _ := svc.CreateSoftware(ctx, nil, "VPN", "", nil)

	req, err := svc.CreateRequest(ctx, &alice, vpn.ID, "Write", "deploys")
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(ctx, &manager, req.ID, "Approved")
	require.NoError(t, err)
	require.Equal(t, domain.StatusApproved, updated.Status)
	require.Equal(t, "alice", updated.Username())

	got, err := svc.GetRequest(ctx, &alice, req.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusApproved, got.Status)
	require.Equal(t, req.UserID, got.UserID)
	require.Equal(t, req.SoftwareID, got.SoftwareID)
	require.Equal(t, req.AccessType, got.AccessType)
	require.Equal(t, req.Reason, got.Reason)

	_, err = svc.UpdateStatus(ctx, &manager, req.ID, "Done")
	require.ErrorIs(t, err, domain.ErrInvalidStatus)
	got, _ = svc.GetRequest(ctx, &alice, req.ID)
	require.Equal(t, domain.StatusApproved, got.Status)

	_, err = svc.UpdateStatus(ctx, &manager, 9999, "Approved")
	require.ErrorIs(t, err, domain.ErrRequestNotFound)
}

func TestUpdateStatusPermissiveAllowsRedecision(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	alice := mustRegister(t, svc, "alice", domain.RoleEmployee)
	vpn, _ := svc.CreateSoftware(ctx, nil, "VPN", "", nil)
	req, _ := svc.CreateRequest(ctx, &alice, vpn.ID, "Read", "r")

	for _, status := range []string{"Approved", "Approved", "Rejected", "Pending"} {
		updated, err := svc.UpdateStatus(ctx, &alice, req.ID, status)
		require.NoError(t, err)
		require.EqualValues(t, status, updated.Status)
	}
}

func TestStrictPolicyGatesLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, WithPolicy(domain.Policy{Mode: domain.PolicyStrict, EnforceTransitions: true}))
	alice := mustRegister(t, svc, "alice", domain.RoleEmployee)
	bob := mustRegister(t, svc, "bob", domain.RoleEmployee)
	manager := mustRegister(t, svc, "mia", domain.RoleManager)
	admin := mustRegister(t, svc, "root", domain.RoleAdmin)

	_, err := svc.CreateSoftware(ctx, &manager, "VPN", "", nil)
	require.ErrorIs(t, err, domain.ErrForbidden)
	vpn, err := svc.CreateSoftware(ctx, &admin, "VPN", "", nil)
	require.NoError(t, err)

	req, err := svc.CreateRequest(ctx, &alice, vpn.ID, "Read", "r")
	require.NoError(t, err)

	_, err = svc.ListAll(ctx, &alice)
	require.ErrorIs(t, err, domain.ErrForbidden)
	_, err = svc.GetRequest(ctx, &bob, req.ID)
	require.ErrorIs(t, err, domain.ErrForbidden)
	_, err = svc.UpdateStatus(ctx, &alice, req.ID, "Approved")
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.UpdateStatus(ctx, &manager, req.ID, "Rejected")
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, &manager, req.ID, "Approved")
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	require.ErrorIs(t, svc.DeleteRequest(ctx, &manager, req.ID), domain.ErrForbidden)
	require.NoError(t, svc.DeleteRequest(ctx, &admin, req.ID))
}

func TestDeleteRequestThenGetFails(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	alice := mustRegister(t, svc, "alice", domain.RoleEmployee)
	vpn, _ := svc.CreateSoftware(ctx, nil, "VPN", "", nil)
	req, _ := svc.CreateRequest(ctx, &alice, vpn.ID, "Read", "r")

	require.ErrorIs(t, svc.DeleteRequest(ctx, &alice, 9999), domain.ErrRequestNotFound)
	require.NoError(t, svc.DeleteRequest(ctx, &alice, req.ID))
	_, err := svc.GetRequest(ctx, &alice, req.ID)
	require.ErrorIs(t, err, domain.ErrRequestNotFound)
}

func TestEndToEndApproval(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.Register(ctx, "alice", "pw123456", "Employee")
	require.NoError(t, err)
	token, role, err := svc.Authenticate(ctx, "alice", "pw123456")
	require.NoError(t, err)
	require.Equal(t, domain.RoleEmployee, role)
	alice, err := svc.ResolveCaller(ctx, token)
	require.NoError(t, err)

	vpn, err := svc.CreateSoftware(ctx, nil, "VPN Client", "", []string{"employee"})
	require.NoError(t, err)

	req, err := svc.CreateRequest(ctx, &alice, vpn.ID, "Read", "need VPN")
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, req.Status)

	_, err = svc.UpdateStatus(ctx, &alice, req.ID, "Approved")
	require.NoError(t, err)

	got, err := svc.GetRequest(ctx, &alice, req.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusApproved, got.Status)
	require.Equal(t, domain.AccessRead, got.AccessType)
	require.Equal(t, "need VPN", got.Reason)
}

func TestConcurrentUpdateStatusLastWriteWins(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	alice := mustRegister(t, svc, "alice", domain.RoleEmployee)
	manager := mustRegister(t, svc, "mia", domain.RoleManager)
	vpn, _ := svc.CreateSoftware(ctx, nil, "VPN", "", nil)
	req, _ := svc.CreateRequest(ctx, &alice, vpn.ID, "Read", "r")

	targets := []string{"Approved", "Rejected"}
	errs := make([]error, len(targets))
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target string) {
			defer wg.Done()
			<-start
			_, errs[i] = svc.UpdateStatus(ctx, &manager, req.ID, target)
		}(i, target)
	}
	close(start)
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	got, err := svc.GetRequest(ctx, &alice, req.ID)
	require.NoError(t, err)
	require.Contains(t, []domain.RequestStatus{domain.StatusApproved, domain.StatusRejected}, got.Status)

	logs, err := svc.ListAuditLogs(ctx, &manager, 1)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, "request.status", logs[0].Action)
}
