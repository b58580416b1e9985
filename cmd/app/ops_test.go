package main

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/atvirokodosprendimai/accessdesk/internal/adapters/db/sqldb"
	httpadapter "github.com/atvirokodosprendimai/accessdesk/internal/adapters/http"
	rpcadapter "github.com/atvirokodosprendimai/accessdesk/internal/adapters/rpcjson"
	"github.com/atvirokodosprendimai/accessdesk/internal/application"
	"github.com/stretchr/testify/require"
)

func startBackends(t *testing.T) (httpCfg, udsCfg cliConfig) {
	t.Helper()
	ctx := context.Background()
	db, err := sqldb.Open(sqldb.DriverSQLite, filepath.Join(t.TempDir(), "cli_test.db"))
	require.NoError(t, err)
	require.NoError(t, sqldb.RunMigrations(ctx, db, sqldb.DriverSQLite))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	svc := application.NewService(sqldb.NewRepository(db), []byte("cli-secret"))

	srv := httptest.NewServer(httpadapter.NewRouter(svc, httpadapter.Options{}))
	t.Cleanup(srv.Close)

	dir, err := os.MkdirTemp("", "adcli")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	socket := filepath.Join(dir, "rpc.sock")
	rpcSrv, err := rpcadapter.Start(socket, svc)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rpcSrv.Close() })

	return cliConfig{Transport: "http", Server: srv.URL}, cliConfig{Transport: "uds", Socket: socket}
}

func TestOpsBehaveTheSameOverBothTransports(t *testing.T) {
	ctx := context.Background()
	httpCfg, udsCfg := startBackends(t)

	_, err := doSignup(ctx, httpCfg, "alice", "pw123456", "Employee")
	require.NoError(t, err)
	manager, err := doSignup(ctx, udsCfg, "bob", "pw123456", "Manager")
	require.NoError(t, err)
	require.Equal(t, "Manager", manager.Role)

	login, err := doLogin(ctx, httpCfg, "alice", "pw123456")
	require.NoError(t, err)
	httpCfg.Token = login.Token
	login, err = doLogin(ctx, udsCfg, "bob", "pw123456")
	require.NoError(t, err)
	udsCfg.Token = login.Token

	me, err := doWhoAmI(ctx, httpCfg)
	require.NoError(t, err)
	require.Equal(t, "alice", me.Username)

	sw, err := doSoftwareSave(ctx, udsCfg, 0, map[string]any{"name": "Okta", "accessLevels": []string{"Read", "Admin"}})
	require.NoError(t, err)
	require.Equal(t, []string{"Read", "Admin"}, sw.AccessLevels)
	sw, err = doSoftwareSave(ctx, httpCfg, sw.ID, map[string]any{"description": "SSO"})
	require.NoError(t, err)
	require.Equal(t, "Okta", sw.Name)
	require.Equal(t, "SSO", sw.Description)

	created, err := doRequestCreate(ctx, httpCfg, sw.ID, "Admin", "break glass")
	require.NoError(t, err)
	require.Equal(t, "Okta", created.SoftwareName)
	require.Equal(t, "Pending", created.Status)

	decided, err := doRequestStatus(ctx, udsCfg, created.ID, "Approved")
	require.NoError(t, err)
	require.Equal(t, "alice", decided.UserName)

	for _, cfg := range []cliConfig{httpCfg, udsCfg} {
		all, err := doRequestList(ctx, cfg, true)
		require.NoError(t, err)
		require.Len(t, all, 1)
		require.Equal(t, "Approved", all[0].Status)
		require.Equal(t, "alice", all[0].UserName)

		got, err := doRequestGet(ctx, cfg, created.ID)
		require.NoError(t, err)
		require.Equal(t, "Okta", got.SoftwareName)
	}

	logs, err := doAuditList(ctx, udsCfg, 10)
	require.NoError(t, err)
	require.NotEmpty(t, logs)

	require.NoError(t, doSoftwareDelete(ctx, httpCfg, sw.ID))
	mine, err := doRequestList(ctx, httpCfg, false)
	require.NoError(t, err)
	require.Empty(t, mine)

	err = doRequestDelete(ctx, udsCfg, created.ID)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not found")
}
