package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/animerged/pkg/auth"
	"github.com/platinummonkey/animerged/pkg/storage"
)

func TestTokenStore_New(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewTokenStore(db, auth.NewTokenGenerator())

	mock.ExpectExec("INSERT INTO tokens").
		WithArgs(sqlmock.AnyArg(), int64(4), sqlmock.AnyArg(), "activation").
		WillReturnResult(sqlmock.NewResult(0, 1))

	token, err := store.New(context.Background(), 4, 72*time.Hour, auth.ScopeActivation)
	require.NoError(t, err)
	assert.Len(t, token.Plaintext, auth.TokenLength)
	assert.Equal(t, auth.HashToken(token.Plaintext), token.Hash)
	assert.Equal(t, auth.ScopeActivation, token.Scope)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenStore_InsertStoresHashOnly(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewTokenStore(db, auth.NewTokenGenerator())
	token := &auth.Token{
		UserID:    4,
		Plaintext: "ABCDEFGHIJKLMNOPQRSTUVWXYZ",
		Hash:      auth.HashToken("ABCDEFGHIJKLMNOPQRSTUVWXYZ"),
		Expiry:    time.Now().Add(time.Hour).Truncate(time.Second),
		Scope:     auth.ScopeAuthentication,
	}

	mock.ExpectExec("INSERT INTO tokens").
		WithArgs(token.Hash, int64(4), token.Expiry, "authentication").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Insert(context.Background(), token))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenStore_InsertError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewTokenStore(db, auth.NewTokenGenerator())
	mock.ExpectExec("INSERT INTO tokens").WillReturnError(errors.New("connection reset"))

	_, err = store.New(context.Background(), 4, time.Hour, auth.ScopeAuthentication)
	var dbErr *storage.DatabaseError
	require.ErrorAs(t, err, &dbErr)
	assert.Equal(t, "insert token", dbErr.Op)
}

func TestTokenStore_DeleteAllForUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM tokens").
		WithArgs("activation", int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	store := NewTokenStore(db, auth.NewTokenGenerator())
	require.NoError(t, store.DeleteAllForUser(context.Background(), auth.ScopeActivation, 4))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenStore_DeleteExpired(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM tokens WHERE expiry < NOW\\(\\)").
		WillReturnResult(sqlmock.NewResult(0, 5))

	store := NewTokenStore(db, auth.NewTokenGenerator())
	n, err := store.DeleteExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}
