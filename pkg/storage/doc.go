// Package storage holds the persistence primitives shared by every backend:
// connection configuration, storage errors and the optimistic concurrency
// update used by all mutable records.
//
// # Optimistic concurrency
//
// Mutable rows carry a version column. UpdateVersioned writes only when the
// caller's version still matches the stored one and bumps it by one in the
// same statement, returning the new version and updated_at:
//
//	result, err := storage.UpdateVersioned(ctx, db, storage.VersionedUpdate{
//		Table:   "animations",
//		ID:      anime.ID,
//		Version: anime.Version,
//		Fields: []storage.Field{
//			{Column: "title", Value: anime.Title},
//		},
//	})
//	if errors.Is(err, storage.ErrEditConflict) {
//		// another writer won; re-read and retry
//	}
//
// Zero matched rows means the record changed or vanished since it was read.
// The store never retries on its own.
//
// Backends live in subpackages:
//
//   - postgres: users, tokens, permissions, animations and schema migrations
//   - redis: the shared request counter behind the rate limiter
package storage
