package sqldb

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/atvirokodosprendimai/accessdesk/internal/domain"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "accessdesk_test.db")

	db, err := Open(DriverSQLite, dbPath)
	require.NoError(t, err, "open db")
	require.NoError(t, RunMigrations(ctx, db, DriverSQLite), "run migrations")
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewRepository(db)
}

func TestUsersAreUniqueByUsername(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	alice, err := repo.CreateUser(ctx, domain.User{Username: "alice", PasswordHash: "x", Role: domain.RoleEmployee})
	require.NoError(t, err)
	require.NotZero(t, alice.ID)

	_, err = repo.CreateUser(ctx, domain.User{Username: "alice", PasswordHash: "y", Role: domain.RoleAdmin})
	require.ErrorIs(t, err, domain.ErrDuplicateUser)

	got, err := repo.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, domain.RoleEmployee, got.Role)
	require.Equal(t, "x", got.PasswordHash)

	_, err = repo.GetUserByID(ctx, 999)
	require.ErrorIs(t, err, domain.ErrUserNotFound)

	count, err := repo.CountUsers(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestSoftwareAccessLevelsRoundTripAndPatch(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	vpn, err := repo.CreateSoftware(ctx, domain.Software{Name: "VPN", Description: "corp vpn", AccessLevels: []string{"Read", "Write"}})
	require.NoError(t, err)
	bare, err := repo.CreateSoftware(ctx, domain.Software{Name: "Wiki"})
	require.NoError(t, err)

	list, err := repo.ListSoftware(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, vpn.ID, list[0].ID, "catalog is listed in insertion order")
	require.Equal(t, []string{"Read", "Write"}, list[0].AccessLevels)
	require.Equal(t, []string{}, list[1].AccessLevels)

	desc := "updated"
	updated, err := repo.UpdateSoftware(ctx, vpn.ID, domain.SoftwarePatch{Description: &desc})
	require.NoError(t, err)
	require.Equal(t, "VPN", updated.Name)
	require.Equal(t, "updated", updated.Description)
	require.Equal(t, []string{"Read", "Write"}, updated.AccessLevels)

	levels := []string{"Admin"}
	updated, err = repo.UpdateSoftware(ctx, bare.ID, domain.SoftwarePatch{AccessLevels: &levels})
	require.NoError(t, err)
	require.Equal(t, []string{"Admin"}, updated.AccessLevels)

	_, err = repo.UpdateSoftware(ctx, 404, domain.SoftwarePatch{Name: &desc})
	require.ErrorIs(t, err, domain.ErrCatalogNotFound)
	require.ErrorIs(t, repo.DeleteSoftware(ctx, 404), domain.ErrCatalogNotFound)
}

func TestRequestsExpandOnlyWhenAsked(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	alice, err := repo.CreateUser(ctx, domain.User{Username: "alice", PasswordHash: "x", Role: domain.RoleEmployee})
	require.NoError(t, err)
	bob, err := repo.CreateUser(ctx, domain.User{Username: "bob", PasswordHash: "x", Role: domain.RoleEmployee})
	require.NoError(t, err)
	vpn, err := repo.CreateSoftware(ctx, domain.Software{Name: "VPN", AccessLevels: []string{"Read"}})
	require.NoError(t, err)

	first, err := repo.CreateRequest(ctx, domain.AccessRequest{UserID: alice.ID, SoftwareID: vpn.ID, AccessType: domain.AccessRead, Reason: "remote"})
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, first.Status)
	second, err := repo.CreateRequest(ctx, domain.AccessRequest{UserID: alice.ID, SoftwareID: vpn.ID, AccessType: domain.AccessWrite, Reason: "deploy"})
	require.NoError(t, err)
	_, err = repo.CreateRequest(ctx, domain.AccessRequest{UserID: bob.ID, SoftwareID: vpn.ID, AccessType: domain.AccessRead, Reason: "travel"})
	require.NoError(t, err)

	plain, err := repo.ListRequests(ctx, domain.RequestQuery{UserID: &alice.ID})
	require.NoError(t, err)
	require.Len(t, plain, 2)
	require.Equal(t, second.ID, plain[0].ID, "newest first")
	require.Nil(t, plain[0].Software)
	require.Nil(t, plain[0].User)

	expanded, err := repo.ListRequests(ctx, domain.RequestQuery{Expand: true})
	require.NoError(t, err)
	require.Len(t, expanded, 3)
	require.Equal(t, "bob", expanded[0].Username())
	require.Equal(t, "VPN", expanded[0].SoftwareName())
	require.Equal(t, []string{"Read"}, expanded[0].Software.AccessLevels)

	got, err := repo.GetRequest(ctx, first.ID, true)
	require.NoError(t, err)
	require.Equal(t, "alice", got.Username())
	require.Equal(t, "remote", got.Reason)

	_, err = repo.GetRequest(ctx, 999, true)
	require.ErrorIs(t, err, domain.ErrRequestNotFound)
	_, err = repo.GetRequest(ctx, 999, false)
	require.ErrorIs(t, err, domain.ErrRequestNotFound)
}

func TestUpdateAndDeleteRequest(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	alice, _ := repo.CreateUser(ctx, domain.User{Username: "alice", PasswordHash: "x", Role: domain.RoleEmployee})
	vpn, _ := repo.CreateSoftware(ctx, domain.Software{Name: "VPN"})
	req, err := repo.CreateRequest(ctx, domain.AccessRequest{UserID: alice.ID, SoftwareID: vpn.ID, AccessType: domain.AccessRead, Reason: "r"})
	require.NoError(t, err)

	require.NoError(t, repo.UpdateRequestStatus(ctx, req.ID, domain.StatusApproved))
	got, err := repo.GetRequest(ctx, req.ID, false)
	require.NoError(t, err)
	require.Equal(t, domain.StatusApproved, got.Status)
	require.Equal(t, "r", got.Reason, "status update leaves other columns untouched")

	require.ErrorIs(t, repo.UpdateRequestStatus(ctx, 999, domain.StatusApproved), domain.ErrRequestNotFound)

	require.NoError(t, repo.DeleteRequest(ctx, req.ID))
	require.ErrorIs(t, repo.DeleteRequest(ctx, req.ID), domain.ErrRequestNotFound)
}

func TestDeletingSoftwareCascadesToRequests(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	alice, _ := repo.CreateUser(ctx, domain.User{Username: "alice", PasswordHash: "x", Role: domain.RoleEmployee})
	vpn, _ := repo.CreateSoftware(ctx, domain.Software{Name: "VPN"})
	wiki, _ := repo.CreateSoftware(ctx, domain.Software{Name: "Wiki"})
	_, err := repo.CreateRequest(ctx, domain.AccessRequest{UserID: alice.ID, SoftwareID: vpn.ID, AccessType: domain.AccessRead, Reason: "r"})
	require.NoError(t, err)
	_, err = repo.CreateRequest(ctx, domain.AccessRequest{UserID: alice.ID, SoftwareID: wiki.ID, AccessType: domain.AccessRead, Reason: "r"})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteSoftware(ctx, vpn.ID))

	count, err := repo.CountRequests(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestConcurrentStatusUpdatesLastWriteWins(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	alice, _ := repo.CreateUser(ctx, domain.User{Username: "alice", PasswordHash: "x", Role: domain.RoleEmployee})
	vpn, _ := repo.CreateSoftware(ctx, domain.Software{Name: "VPN"})
	req, err := repo.CreateRequest(ctx, domain.AccessRequest{UserID: alice.ID, SoftwareID: vpn.ID, AccessType: domain.AccessRead, Reason: "r"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, status := range []domain.RequestStatus{domain.StatusApproved, domain.StatusRejected} {
		wg.Add(1)
		go func(s domain.RequestStatus) {
			defer wg.Done()
			errs <- repo.UpdateRequestStatus(ctx, req.ID, s)
		}(status)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := repo.GetRequest(ctx, req.ID, false)
	require.NoError(t, err)
	require.Contains(t, []domain.RequestStatus{domain.StatusApproved, domain.StatusRejected}, got.Status)
}

func TestAuditLogsJoinActor(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	admin, _ := repo.CreateUser(ctx, domain.User{Username: "root", PasswordHash: "x", Role: domain.RoleAdmin})
	require.NoError(t, repo.CreateAuditLog(ctx, domain.AuditLog{ActorUserID: &admin.ID, Action: "software.create", TargetType: "software"}))
	require.NoError(t, repo.CreateAuditLog(ctx, domain.AuditLog{Action: "auth.signup", TargetType: "user"}))

	logs, err := repo.ListAuditLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.Equal(t, "auth.signup", logs[0].Action)
	require.Equal(t, "", logs[0].ActorUsername)
	require.Equal(t, "root", logs[1].ActorUsername)
}
