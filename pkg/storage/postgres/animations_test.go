package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/animerged/pkg/api"
	"github.com/platinummonkey/animerged/pkg/storage"
)

var animationColumns = []string{"id", "created_at", "updated_at", "title", "year", "season", "genres", "version"}

func setupAnimationStoreTest(t *testing.T) (*AnimationStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewAnimationStore(db), mock
}

func TestAnimationStore_Insert(t *testing.T) {
	store, mock := setupAnimationStoreTest(t)
	now := time.Now()

	mock.ExpectQuery("INSERT INTO animations").
		WithArgs("Mushishi", 2005, "Autumn", `{"drama","mystery"}`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at", "version"}).
			AddRow(int64(1), now, now, 0))

	anime, err := store.Insert(context.Background(), api.Animation{
		Title:  "Mushishi",
		Year:   2005,
		Season: api.SeasonAutumn,
		Genres: []string{"drama", "mystery"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), anime.ID)
	assert.Equal(t, 0, anime.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnimationStore_Get(t *testing.T) {
	store, mock := setupAnimationStoreTest(t)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM animations WHERE id = \\$1").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(animationColumns).
			AddRow(int64(1), now, now, "Mushishi", 2005, "Autumn", `{drama,mystery}`, 3))

	anime, err := store.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Mushishi", anime.Title)
	assert.Equal(t, api.SeasonAutumn, anime.Season)
	assert.Equal(t, []string{"drama", "mystery"}, anime.Genres)
	assert.Equal(t, 3, anime.Version)
}

func TestAnimationStore_GetNotFound(t *testing.T) {
	store, mock := setupAnimationStoreTest(t)

	mock.ExpectQuery("SELECT (.+) FROM animations").WillReturnError(sql.ErrNoRows)

	_, err := store.Get(context.Background(), 42)
	assert.ErrorIs(t, err, storage.ErrRecordNotFound)

	_, err = store.Get(context.Background(), 0)
	assert.ErrorIs(t, err, storage.ErrRecordNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnimationStore_GetAll(t *testing.T) {
	store, mock := setupAnimationStoreTest(t)
	now := time.Now()

	filters := api.Filters{Page: 2, PageSize: 5, Sort: "-year", SortSafelist: api.AnimationSortSafelist}

	mock.ExpectQuery(`ORDER BY "year" DESC, id ASC`).
		WithArgs("mushi", `{"drama"}`, 5, 5).
		WillReturnRows(sqlmock.NewRows(animationColumns).
			AddRow(int64(1), now, now, "Mushishi", 2005, "Autumn", `{drama,mystery}`, 0))

	list, err := store.GetAll(context.Background(), "mushi", []string{"drama"}, filters)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Mushishi", list[0].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnimationStore_GetAllEmpty(t *testing.T) {
	store, mock := setupAnimationStoreTest(t)

	filters := api.Filters{Page: 1, PageSize: 10, Sort: "id", SortSafelist: api.AnimationSortSafelist}

	mock.ExpectQuery(`ORDER BY "id" ASC`).
		WithArgs("", `{}`, 10, 0).
		WillReturnRows(sqlmock.NewRows(animationColumns))

	list, err := store.GetAll(context.Background(), "", nil, filters)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestAnimationStore_GetAllRejectsUnsafeSort(t *testing.T) {
	store, _ := setupAnimationStoreTest(t)

	filters := api.Filters{Page: 1, PageSize: 10, Sort: "id; DROP TABLE animations", SortSafelist: api.AnimationSortSafelist}

	_, err := store.GetAll(context.Background(), "", nil, filters)
	assert.Error(t, err)
}

func TestAnimationStore_Update(t *testing.T) {
	store, mock := setupAnimationStoreTest(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE "animations" SET "title" = \$1, "year" = \$2, "season" = \$3, "genres" = \$4`).
		WithArgs("Mushishi Zoku Shou", 2014, "Spring", `{"drama"}`, int64(1), 0).
		WillReturnRows(sqlmock.NewRows([]string{"version", "updated_at"}).AddRow(1, modifiedAt))
	mock.ExpectCommit()

	updated, err := store.Update(context.Background(), api.Animation{
		ID:      1,
		Title:   "Mushishi Zoku Shou",
		Year:    2014,
		Season:  api.SeasonSpring,
		Genres:  []string{"drama"},
		Version: 0,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Version)
	assert.Equal(t, modifiedAt, updated.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnimationStore_UpdateStale(t *testing.T) {
	store, mock := setupAnimationStoreTest(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE "animations"`).
		WillReturnRows(sqlmock.NewRows([]string{"version", "updated_at"}))
	mock.ExpectRollback()

	_, err := store.Update(context.Background(), api.Animation{ID: 1, Title: "x", Genres: []string{"a"}, Version: 4})
	assert.ErrorIs(t, err, storage.ErrEditConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnimationStore_Delete(t *testing.T) {
	store, mock := setupAnimationStoreTest(t)

	mock.ExpectExec("DELETE FROM animations").
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM animations").
		WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, store.Delete(context.Background(), 1))
	assert.ErrorIs(t, store.Delete(context.Background(), 2), storage.ErrRecordNotFound)
	assert.ErrorIs(t, store.Delete(context.Background(), -1), storage.ErrRecordNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
