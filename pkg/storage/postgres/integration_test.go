//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/animerged/pkg/api"
	"github.com/platinummonkey/animerged/pkg/auth"
	"github.com/platinummonkey/animerged/pkg/storage"
)

// setupPostgresContainer starts a migrated database and returns it with a cleanup func
func setupPostgresContainer(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	ctx := context.Background()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		t.Skip("Docker/Podman not available, skipping integration tests")
	}
	defer provider.Close()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("animerged_test"),
		tcpostgres.WithUsername("animerged"),
		tcpostgres.WithPassword("animerged_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("Failed to start PostgreSQL container: %v", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	config := storage.DefaultConfig()
	config.PostgresURL = connStr
	db, err := Open(config)
	require.NoError(t, err)

	require.NoError(t, RunMigrations(ctx, db, &recordingLogger{}))

	return db, func() {
		db.Close()
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = container.Terminate(cleanupCtx)
	}
}

func TestIntegration_MigrationsAreIdempotent(t *testing.T) {
	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	require.NoError(t, RunMigrations(context.Background(), db, &recordingLogger{}))

	var n int
	require.NoError(t, db.QueryRow("SELECT count(*) FROM permissions").Scan(&n))
	assert.Equal(t, 2, n)
}

func TestIntegration_ConcurrentUpdatesOneWinner(t *testing.T) {
	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	ctx := context.Background()
	store := NewAnimationStore(db)

	anime, err := store.Insert(ctx, api.Animation{
		Title:  "Mushishi",
		Year:   2005,
		Season: api.SeasonAutumn,
		Genres: []string{"drama"},
	})
	require.NoError(t, err)

	const writers = 8
	results := make([]error, writers)

	var g errgroup.Group
	for i := range writers {
		g.Go(func() error {
			edit := *anime
			edit.Year = 2005 + i%2
			_, results[i] = store.Update(ctx, edit)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	var won, conflicts int
	for _, err := range results {
		switch {
		case err == nil:
			won++
		case assert.ErrorIs(t, err, storage.ErrEditConflict):
			conflicts++
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, writers-1, conflicts)

	stored, err := store.Get(ctx, anime.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Version)
}

func TestIntegration_TokenLifecycle(t *testing.T) {
	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	ctx := context.Background()
	users := NewUserStore(db)
	tokens := NewTokenStore(db, auth.NewTokenGenerator())
	perms := NewPermissionStore(db)

	hash, err := auth.HashPassword("pa55word-long")
	require.NoError(t, err)

	user, err := users.Insert(ctx, &auth.User{Name: "Rin", Email: "rin@example.com", PasswordHash: hash})
	require.NoError(t, err)

	_, err = users.Insert(ctx, &auth.User{Name: "Rin", Email: "rin@example.com", PasswordHash: hash})
	assert.ErrorIs(t, err, storage.ErrDuplicateEmail)

	require.NoError(t, perms.AddForUser(ctx, user.ID, auth.PermissionAnimationsRead))
	granted, err := perms.GetAllForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, granted.Include(auth.PermissionAnimationsRead))
	assert.False(t, granted.Include(auth.PermissionAnimationsWrite))

	token, err := tokens.New(ctx, user.ID, time.Hour, auth.ScopeAuthentication)
	require.NoError(t, err)

	found, err := users.GetForToken(ctx, auth.ScopeAuthentication, token.Hash)
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	ok, err := auth.PasswordMatches(found.PasswordHash, "pa55word-long")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = users.GetForToken(ctx, auth.ScopeActivation, token.Hash)
	assert.ErrorIs(t, err, storage.ErrRecordNotFound)

	require.NoError(t, tokens.DeleteAllForUser(ctx, auth.ScopeAuthentication, user.ID))
	_, err = users.GetForToken(ctx, auth.ScopeAuthentication, token.Hash)
	assert.ErrorIs(t, err, storage.ErrRecordNotFound)
}
