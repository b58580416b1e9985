package application

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/atvirokodosprendimai/accessdesk/internal/adapters/db/sqldb"
	"github.com/atvirokodosprendimai/accessdesk/internal/domain"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.RequestEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event domain.RequestEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func newTestService(t *testing.T, opts ...Option) (*Service, *sqldb.Repository) {
	t.Helper()
	ctx := context.Background()
	db, err := sqldb.Open(sqldb.DriverSQLite, filepath.Join(t.TempDir(), "accessdesk_test.db"))
	require.NoError(t, err)
	require.NoError(t, sqldb.RunMigrations(ctx, db, sqldb.DriverSQLite))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	repo := sqldb.NewRepository(db)
	return NewService(repo, testSecret, opts...), repo
}

func mustRegister(t *testing.T, svc *Service, username string, role domain.Role) domain.User {
	t.Helper()
	u, err := svc.Register(context.Background(), username, "pw123456", string(role))
	require.NoError(t, err)
	return u
}

func TestBootstrapAdminOnlyOnEmptyStore(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)

	require.Error(t, svc.BootstrapAdmin(ctx, "", "secret"))
	require.NoError(t, svc.BootstrapAdmin(ctx, "root", "secret"))
	require.NoError(t, svc.BootstrapAdmin(ctx, "other", "secret"))

	count, err := repo.CountUsers(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	_, role, err := svc.Authenticate(ctx, "root", "secret")
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, role)
}

func TestListAuditLogsClampsAndRecords(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, WithPolicy(domain.Policy{Mode: domain.PolicyStrict}))

	admin := mustRegister(t, svc, "root", domain.RoleAdmin)
	employee := mustRegister(t, svc, "alice", domain.RoleEmployee)

	logs, err := svc.ListAuditLogs(ctx, &admin, 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.Equal(t, "auth.signup", logs[0].Action)
	require.Equal(t, "alice", logs[0].ActorUsername)

	_, err = svc.ListAuditLogs(ctx, &employee, 10)
	require.ErrorIs(t, err, domain.ErrForbidden)

	users, err := svc.ListUsers(ctx, &admin, 5000)
	require.NoError(t, err)
	require.Len(t, users, 2)
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc, _ := newTestService(t, WithPublisher(pub))

	alice := mustRegister(t, svc, "alice", domain.RoleEmployee)
	vpn, err := svc.CreateSoftware(ctx, nil, "VPN", "", nil)
	require.NoError(t, err)

	req, err := svc.CreateRequest(ctx, &alice, vpn.ID, "Read", "remote work")
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, &alice, req.ID, "Approved")
	require.NoError(t, err)
	require.NoError(t, svc.DeleteRequest(ctx, &alice, req.ID))

	require.Equal(t, []string{
		domain.EventRequestCreated,
		domain.EventRequestStatusChanged,
		domain.EventRequestDeleted,
	}, pub.types())
}

func TestClockDrivesTokenExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, WithClock(func() time.Time { return now }), WithTokenTTL(time.Hour))

	mustRegister(t, svc, "alice", domain.RoleEmployee)
	token, _, err := svc.Authenticate(ctx, "alice", "pw123456")
	require.NoError(t, err)

	claims, err := svc.VerifyToken(token)
	require.NoError(t, err)
	require.Equal(t, now.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())

	now = now.Add(2 * time.Hour)
	_, err = svc.VerifyToken(token)
	require.ErrorIs(t, err, domain.ErrInvalidToken)
}
