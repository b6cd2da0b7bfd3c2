package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contactbook/internal/contact/events"
	"contactbook/internal/platform/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuild_FileDriverPersistsAcrossBuilds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.json")
	cfg := &config.Config{StoreDriver: config.DriverFile, StoreFilePath: path}
	ctx := context.Background()

	app, err := Build(ctx, cfg, prometheus.NewRegistry(), discardLogger())
	require.NoError(t, err)
	assert.IsType(t, events.Nop{}, app.Publisher)

	_, err = app.Gateway.Create(ctx, "Jean", "Dupont", "0123456789", "Paris")
	require.NoError(t, err)
	require.NoError(t, app.Close())

	_, err = os.Stat(path)
	require.NoError(t, err)

	reopened, err := Build(ctx, cfg, nil, discardLogger())
	require.NoError(t, err)
	defer reopened.Close()

	all, err := reopened.Gateway.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Jean Dupont", all[0].FullName())
}

func TestBuild_MemoryDriverWithSerializedWrites(t *testing.T) {
	cfg := &config.Config{StoreDriver: config.DriverMemory, SerializeWrites: true}
	app, err := Build(context.Background(), cfg, nil, discardLogger())
	require.NoError(t, err)
	defer app.Close()
	assert.Empty(t, app.Health)
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	_, _, err := OpenStore(context.Background(), &config.Config{StoreDriver: "sqlite"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlite")
}

func TestOpenStore_PostgresRequiresDSN(t *testing.T) {
	_, _, err := OpenStore(context.Background(), &config.Config{StoreDriver: config.DriverPostgres})
	require.Error(t, err)
}
