//go:build integration

package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contactbook/internal/platform/config"
	"contactbook/pkg/testutil/containers"
)

func TestBuild_NetworkDrivers(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	mgr := containers.GetManager()

	pg := mgr.GetPostgres(t)
	require.NoError(t, pg.TruncateTables(ctx, "contacts"))
	rd := mgr.GetRedis(t)
	require.NoError(t, rd.FlushAll(ctx))

	cfgs := map[string]*config.Config{
		"postgres": {StoreDriver: config.DriverPostgres, DatabaseURL: pg.DSN},
		"redis":    {StoreDriver: config.DriverRedis, RedisURL: rd.URL, RedisKeyPrefix: "bootstrap-test"},
	}
	for name, cfg := range cfgs {
		t.Run(name, func(t *testing.T) {
			app, err := Build(ctx, cfg, nil, discardLogger())
			require.NoError(t, err)
			defer app.Close()

			require.Contains(t, app.Health, name)
			assert.NoError(t, app.Health[name](ctx))

			first, err := app.Gateway.Create(ctx, "Jean", "Dupont", "0123456789", "Paris")
			require.NoError(t, err)
			second, err := app.Gateway.Create(ctx, "Jean", "Dupont", "", "Lyon")
			require.NoError(t, err)
			assert.Equal(t, *first.RecordID, *second.RecordID)

			all, err := app.Gateway.ListAll(ctx)
			require.NoError(t, err)
			require.Len(t, all, 1)
			assert.Equal(t, "Lyon", all[0].Address)
		})
	}
}
