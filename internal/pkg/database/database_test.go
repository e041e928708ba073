//go:build integration

package database

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/anicoll/blink-integration/internal/pkg/database/migration"
	"github.com/anicoll/blink-integration/internal/pkg/model"
)

func migrationsFolder(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "migrations")
}

func setupDatabase(t *testing.T) *Database {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("blink"),
		postgres.WithUsername("blink"),
		postgres.WithPassword("blink"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, migration.Migrate(dsn, migrationsFolder(t)))
	// a second run has nothing to apply.
	require.NoError(t, migration.Migrate(dsn, migrationsFolder(t)))

	pool, err := Connect(ctx, dsn)
	require.NoError(t, err)
	db := NewDatabase(pool)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDatabase_ObjectsAndStates(t *testing.T) {
	db := setupDatabase(t)
	ctx := context.Background()

	decl := model.Declaration{
		ID:     "home.armed",
		Type:   model.ObjectTypeState,
		Common: model.Common{Name: "armed", Type: model.KindBoolean, Role: model.RoleIndicator, Read: true},
		Native: model.Native{ID: "home.armed"},
	}
	require.NoError(t, db.CreateObject(ctx, decl))
	require.NoError(t, db.CreateObject(ctx, decl))

	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, db.WriteState(ctx, "home.armed", model.State{Val: model.Bool(false), Ack: true, TS: ts, From: model.FromSystem}))
	require.NoError(t, db.WriteState(ctx, "home.armed", model.State{Val: model.Bool(true), Ack: false, TS: ts.Add(time.Minute), From: "user"}))

	decls, err := db.GetObjects(ctx)
	require.NoError(t, err)
	require.Len(t, decls, 1)
	assert.Equal(t, decl, decls[0])

	states, err := db.GetStates(ctx)
	require.NoError(t, err)
	require.Contains(t, states, "home.armed")
	assert.Equal(t, model.Bool(true), states["home.armed"].Val)
	assert.False(t, states["home.armed"].Ack)
	assert.Equal(t, "user", states["home.armed"].From)

	from, to := ts.Add(-time.Hour), ts.Add(time.Hour)
	history, err := db.GetHistory(ctx, "home.armed", &from, &to)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, model.Bool(true), history[0].Value)
	assert.Equal(t, model.Bool(false), history[1].Value)

	require.NoError(t, db.DeleteObject(ctx, "home.armed"))
	states, err = db.GetStates(ctx)
	require.NoError(t, err)
	assert.Empty(t, states)
}

func TestDatabase_Cleanup(t *testing.T) {
	db := setupDatabase(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	db.now = func() time.Time { return now }

	require.NoError(t, db.CreateObject(ctx, model.Declaration{ID: "home.name", Type: model.ObjectTypeState, Common: model.Common{Type: model.KindString}}))
	require.NoError(t, db.WriteState(ctx, "home.name", model.State{Val: model.String("old"), TS: now.AddDate(0, 0, -9)}))
	require.NoError(t, db.WriteState(ctx, "home.name", model.State{Val: model.String("new"), TS: now.AddDate(0, 0, -1)}))

	require.NoError(t, db.Cleanup(ctx))

	from, to := now.AddDate(0, 0, -30), now
	history, err := db.GetHistory(ctx, "home.name", &from, &to)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.String("new"), history[0].Value)
}

func TestDatabase_ConfigValue(t *testing.T) {
	db := setupDatabase(t)
	ctx := context.Background()

	_, ok, err := db.GetConfigValue(ctx, "secret")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.SetConfigValue(ctx, "secret", "k3y"))
	value, ok, err := db.GetConfigValue(ctx, "secret")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "k3y", value)
}
