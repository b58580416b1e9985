//go:build integration

package sqldb

import (
	"context"
	"testing"
	"time"

	"github.com/atvirokodosprendimai/accessdesk/internal/domain"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestPostgresRepository(t *testing.T) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("accessdesk"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("terminate postgres: %v", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := Open(DriverPostgres, dsn)
	require.NoError(t, err)
	require.NoError(t, RunMigrations(ctx, db, DriverPostgres))
	repo := NewRepository(db)

	alice, err := repo.CreateUser(ctx, domain.User{Username: "alice", PasswordHash: "x", Role: domain.RoleEmployee})
	require.NoError(t, err)
	_, err = repo.CreateUser(ctx, domain.User{Username: "alice", PasswordHash: "x", Role: domain.RoleEmployee})
	require.ErrorIs(t, err, domain.ErrDuplicateUser)

	vpn, err := repo.CreateSoftware(ctx, domain.Software{Name: "VPN", AccessLevels: []string{"Read", "Admin"}})
	require.NoError(t, err)
	req, err := repo.CreateRequest(ctx, domain.AccessRequest{UserID: alice.ID, SoftwareID: vpn.ID, AccessType: domain.AccessAdmin, Reason: "ops"})
	require.NoError(t, err)

	expanded, err := repo.ListRequests(ctx, domain.RequestQuery{UserID: &alice.ID, Expand: true})
	require.NoError(t, err)
	require.Len(t, expanded, 1)
	require.Equal(t, "VPN", expanded[0].SoftwareName())
	require.Equal(t, []string{"Read", "Admin"}, expanded[0].Software.AccessLevels)

	require.NoError(t, repo.UpdateRequestStatus(ctx, req.ID, domain.StatusRejected))
	require.NoError(t, repo.DeleteSoftware(ctx, vpn.ID))
	count, err := repo.CountRequests(ctx)
	require.NoError(t, err)
	require.Zero(t, count)
}
