package main

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contactbook/internal/bootstrap"
	"contactbook/internal/contact/models"
	"contactbook/internal/platform/config"
)

// fileBook opens a fresh file-backed book per invocation so state survives
// between commands the way it does for a real user.
func fileBook(t *testing.T) appFactory {
	t.Helper()
	cfg := &config.Config{StoreDriver: config.DriverFile, StoreFilePath: filepath.Join(t.TempDir(), "contacts.json")}
	return func(ctx context.Context, log *slog.Logger) (*bootstrap.App, error) {
		return bootstrap.Build(ctx, cfg, nil, log)
	}
}

func run(t *testing.T, open appFactory, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(open)
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommands(t *testing.T) {
	open := fileBook(t)

	out, err := run(t, open, "add", "Jean", "Dupont", "--phone", "01 23 45 67 89", "--address", "Paris")
	require.NoError(t, err)
	assert.Equal(t, "saved Jean Dupont as 1\n", out)

	_, err = run(t, open, "add", "J3an", "Dupont")
	var vErr *models.ValidationError
	require.ErrorAs(t, err, &vErr)

	out, err = run(t, open, "modify", "1", "--phone", "+33 6 12 34 56 78", "--address", "Lyon")
	require.NoError(t, err)
	assert.Equal(t, "modified Jean Dupont\n", out)

	out, err = run(t, open, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Jean Dupont")
	assert.Contains(t, out, "+33 6 12 34 56 78")
	assert.Contains(t, out, "Lyon")

	out, err = run(t, open, "delete", "1")
	require.NoError(t, err)
	assert.Equal(t, "deleted Jean Dupont\n", out)

	_, err = run(t, open, "delete", "1")
	require.Error(t, err)

	_, err = run(t, open, "delete", "abc")
	require.Error(t, err)
}

func TestSeed(t *testing.T) {
	open := fileBook(t)

	out, err := run(t, open, "seed", "--count", "5", "--seed", "42")
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 5 contacts")

	out, err = run(t, open, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "ID")

	_, err = run(t, open, "seed", "--count", "0")
	require.Error(t, err)
}

func TestFakeContact_PhonesAreValid(t *testing.T) {
	f := gofakeit.New(7)
	for _, format := range phoneFormats {
		phone := f.Numerify(format)
		_, err := models.ValidatePhone(phone)
		assert.NoError(t, err, "format %q produced %q", format, phone)
	}
}
