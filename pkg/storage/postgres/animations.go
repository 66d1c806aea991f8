package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/platinummonkey/animerged/pkg/api"
	"github.com/platinummonkey/animerged/pkg/storage"
)

// AnimationStore persists the animation catalogue
type AnimationStore struct {
	db *sql.DB
}

// NewAnimationStore creates an animation store
func NewAnimationStore(db *sql.DB) *AnimationStore {
	return &AnimationStore{db: db}
}

// Insert stores a new animation and returns it with its generated columns
func (s *AnimationStore) Insert(ctx context.Context, anime api.Animation) (*api.Animation, error) {
	query := `
		INSERT INTO animations (title, year, season, genres)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at, version`

	err := s.db.QueryRowContext(ctx, query,
		anime.Title,
		anime.Year,
		string(anime.Season),
		pq.Array(anime.Genres),
	).Scan(&anime.ID, &anime.CreatedAt, &anime.UpdatedAt, &anime.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrReturningFailure
		}
		return nil, storage.WrapDatabaseError("insert animation", err)
	}

	return &anime, nil
}

// Get returns storage.ErrRecordNotFound for an unknown id
func (s *AnimationStore) Get(ctx context.Context, id int64) (*api.Animation, error) {
	if id < 1 {
		return nil, storage.ErrRecordNotFound
	}

	query := `
		SELECT id, created_at, updated_at, title, year, season, genres, version
		FROM animations
		WHERE id = $1`

	var anime api.Animation
	err := s.db.QueryRowContext(ctx, query, id).Scan(scanTargets(&anime)...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrRecordNotFound
		}
		return nil, storage.WrapDatabaseError("get animation", err)
	}

	return &anime, nil
}

// GetAll lists animations matching a full-text title query and containing
// all of genres. Empty title or genres match everything.
func (s *AnimationStore) GetAll(ctx context.Context, title string, genres []string, filters api.Filters) ([]*api.Animation, error) {
	column, err := filters.SortColumn()
	if err != nil {
		return nil, err
	}
	if genres == nil {
		genres = []string{}
	}

	query := fmt.Sprintf(`
		SELECT id, created_at, updated_at, title, year, season, genres, version
		FROM animations
		WHERE (to_tsvector('simple', title) @@ plainto_tsquery('simple', $1) OR $1 = '')
		AND (genres @> $2 OR $2 = '{}')
		ORDER BY %s %s, id ASC
		LIMIT $3 OFFSET $4`, pq.QuoteIdentifier(column), filters.SortDirection())

	rows, err := s.db.QueryContext(ctx, query, title, pq.Array(genres), filters.Limit(), filters.Offset())
	if err != nil {
		return nil, storage.WrapDatabaseError("list animations", err)
	}
	defer rows.Close()

	animations := []*api.Animation{}
	for rows.Next() {
		var anime api.Animation
		if err := rows.Scan(scanTargets(&anime)...); err != nil {
			return nil, storage.WrapDatabaseError("list animations", err)
		}
		animations = append(animations, &anime)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.WrapDatabaseError("list animations", err)
	}

	return animations, nil
}

// Update writes anime if its version is still current and returns it with
// the new version. A stale version yields storage.ErrEditConflict.
func (s *AnimationStore) Update(ctx context.Context, anime api.Animation) (*api.Animation, error) {
	result, err := storage.UpdateVersioned(ctx, s.db, storage.VersionedUpdate{
		Table:   "animations",
		ID:      anime.ID,
		Version: anime.Version,
		Fields: []storage.Field{
			{Column: "title", Value: anime.Title},
			{Column: "year", Value: anime.Year},
			{Column: "season", Value: string(anime.Season)},
			{Column: "genres", Value: pq.Array(anime.Genres)},
		},
	})
	if err != nil {
		return nil, err
	}

	anime.Version = result.Version
	anime.UpdatedAt = result.UpdatedAt
	return &anime, nil
}

// Delete returns storage.ErrRecordNotFound when nothing was deleted
func (s *AnimationStore) Delete(ctx context.Context, id int64) error {
	if id < 1 {
		return storage.ErrRecordNotFound
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM animations WHERE id = $1`, id)
	if err != nil {
		return storage.WrapDatabaseError("delete animation", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return storage.WrapDatabaseError("delete animation", err)
	}
	if n == 0 {
		return storage.ErrRecordNotFound
	}
	return nil
}

func scanTargets(anime *api.Animation) []any {
	return []any{
		&anime.ID,
		&anime.CreatedAt,
		&anime.UpdatedAt,
		&anime.Title,
		&anime.Year,
		(*string)(&anime.Season),
		pq.Array(&anime.Genres),
		&anime.Version,
	}
}
