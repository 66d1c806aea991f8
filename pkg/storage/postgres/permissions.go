package postgres

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/platinummonkey/animerged/pkg/auth"
	"github.com/platinummonkey/animerged/pkg/storage"
)

// PermissionStore reads and grants permission codes
type PermissionStore struct {
	db *sql.DB
}

// NewPermissionStore creates a permission store
func NewPermissionStore(db *sql.DB) *PermissionStore {
	return &PermissionStore{db: db}
}

// GetAllForUser lists the codes granted to userID
func (s *PermissionStore) GetAllForUser(ctx context.Context, userID int64) (auth.Permissions, error) {
	query := `
		SELECT permissions.code
		FROM permissions
		INNER JOIN permissions_users ON permissions_users.permission_id = permissions.id
		INNER JOIN users ON permissions_users.user_id = users.id
		WHERE users.id = $1`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, storage.WrapDatabaseError("get permissions", err)
	}
	defer rows.Close()

	var permissions auth.Permissions
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, storage.WrapDatabaseError("get permissions", err)
		}
		permissions = append(permissions, code)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.WrapDatabaseError("get permissions", err)
	}

	return permissions, nil
}

// AddForUser grants codes to userID. Unknown codes are ignored.
func (s *PermissionStore) AddForUser(ctx context.Context, userID int64, codes ...string) error {
	query := `
		INSERT INTO permissions_users
		SELECT permissions.id, $1 FROM permissions WHERE permissions.code = ANY($2)`

	_, err := s.db.ExecContext(ctx, query, userID, pq.Array(codes))
	return storage.WrapDatabaseError("add permissions", err)
}
