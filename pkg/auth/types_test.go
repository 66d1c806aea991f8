package auth

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissions_Include(t *testing.T) {
	tests := []struct {
		name        string
		permissions Permissions
		code        string
		want        bool
	}{
		{
			name:        "granted read",
			permissions: Permissions{PermissionAnimationsRead},
			code:        PermissionAnimationsRead,
			want:        true,
		},
		{
			name:        "write not granted",
			permissions: Permissions{PermissionAnimationsRead},
			code:        PermissionAnimationsWrite,
			want:        false,
		},
		{
			name:        "case sensitive",
			permissions: Permissions{PermissionAnimationsRead},
			code:        "Animations/Read",
			want:        false,
		},
		{
			name:        "no prefix matching",
			permissions: Permissions{"animations"},
			code:        PermissionAnimationsRead,
			want:        false,
		},
		{
			name:        "empty set",
			permissions: nil,
			code:        PermissionAnimationsRead,
			want:        false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.permissions.Include(tt.code))
		})
	}
}

func TestUser_IsAnonymous(t *testing.T) {
	assert.True(t, AnonymousUser.IsAnonymous())
	assert.False(t, (&User{}).IsAnonymous())
	assert.False(t, (&User{ID: 1}).IsAnonymous())
}

func TestUser_WithActivated(t *testing.T) {
	original := &User{ID: 1, Name: "Kany", Activated: false, Version: 3}

	activated := original.WithActivated(true)

	assert.True(t, activated.Activated)
	assert.False(t, original.Activated, "receiver must not be mutated")
	assert.Equal(t, original.Version, activated.Version)
	assert.NotSame(t, original, activated)
}

func TestUser_WithVersion(t *testing.T) {
	original := &User{ID: 1, Version: 3}

	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	next := original.WithVersion(4, at)

	assert.Equal(t, 4, next.Version)
	assert.Equal(t, at, next.UpdatedAt)
	assert.Equal(t, 3, original.Version)
	assert.True(t, original.UpdatedAt.IsZero())
}

func TestUser_JSONHidesSecrets(t *testing.T) {
	user := &User{ID: 9, Name: "Kany", Email: "kany@example.com", PasswordHash: []byte("hash"), Activated: true, Version: 2}

	data, err := json.Marshal(user)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.NotContains(t, decoded, "password_hash")
	assert.NotContains(t, decoded, "PasswordHash")
	assert.NotContains(t, decoded, "version")
	assert.Equal(t, "kany@example.com", decoded["email"])
	assert.Equal(t, true, decoded["activated"])
}
