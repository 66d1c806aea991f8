package api_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/animerged/pkg/auth"
)

var animationColumns = []string{"id", "created_at", "updated_at", "title", "year", "season", "genres", "version"}

const updateAnimationQuery = `UPDATE "animations" SET (.+) WHERE id = \$5 AND version = \$6 RETURNING version, updated_at`

func (e *testEnv) expectAnimation(id int64, version int) {
	now := time.Now()
	e.mock.ExpectQuery("SELECT (.+) FROM animations WHERE id = \\$1").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(animationColumns).
			AddRow(id, now, now, "Mushishi", 2005, "Autumn", `{drama,mystery}`, version))
}

func TestCreateAnimation(t *testing.T) {
	env := newTestEnv(t, nil)
	env.expectPrincipal(true, auth.PermissionAnimationsRead, auth.PermissionAnimationsWrite)

	now := time.Now()
	env.mock.ExpectQuery("INSERT INTO animations").
		WithArgs("Mushishi", 2005, "Autumn", `{"drama","mystery"}`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at", "version"}).
			AddRow(int64(12), now, now, 1))

	rr := env.do("POST", "/v1/animations",
		`{"title":"Mushishi","year":2005,"season":"autumn","genres":["drama","mystery"]}`, bearer())

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "/v1/animations/12", rr.Header().Get("Location"))

	anime := decode(t, rr)["anime"].(map[string]any)
	assert.Equal(t, 12.0, anime["id"])
	assert.Equal(t, "Autumn", anime["season"])
	assert.Equal(t, 1.0, anime["version"])
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestCreateAnimation_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantError string
	}{
		{
			name:      "bad json",
			body:      `{"title":`,
			wantError: "failed to parse request body as json",
		},
		{
			name:      "blank title",
			body:      `{"title":"","year":2005,"season":"Autumn","genres":["drama"]}`,
			wantError: "title: This field cannot be blank",
		},
		{
			name:      "unknown season",
			body:      `{"title":"Mushishi","year":2005,"season":"Monsoon","genres":["drama"]}`,
			wantError: "season: Possible values: Winter|Summer|Autumn|Spring",
		},
		{
			name:      "duplicate genres",
			body:      `{"title":"Mushishi","year":2005,"season":"Autumn","genres":["drama","drama"]}`,
			wantError: "genres: This field must not contain duplicate values",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			env.expectPrincipal(true, auth.PermissionAnimationsWrite)

			rr := env.do("POST", "/v1/animations", tt.body, bearer())

			assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
			assert.Equal(t, tt.wantError, decode(t, rr)["error"])
			assert.NoError(t, env.mock.ExpectationsWereMet())
		})
	}
}

func TestShowAnimation(t *testing.T) {
	env := newTestEnv(t, nil)
	env.expectPrincipal(true, auth.PermissionAnimationsRead)
	env.expectAnimation(5, 3)

	rr := env.do("GET", "/v1/animations/5", "", bearer())

	require.Equal(t, http.StatusOK, rr.Code)
	anime := decode(t, rr)["anime"].(map[string]any)
	assert.Equal(t, "Mushishi", anime["title"])
	assert.Equal(t, []any{"drama", "mystery"}, anime["genres"])
	assert.NotContains(t, anime, "created_at")
}

func TestShowAnimation_NotFound(t *testing.T) {
	t.Run("unknown id", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.expectPrincipal(true, auth.PermissionAnimationsRead)
		env.mock.ExpectQuery("SELECT (.+) FROM animations WHERE id = \\$1").
			WithArgs(int64(404)).
			WillReturnRows(sqlmock.NewRows(animationColumns))

		rr := env.do("GET", "/v1/animations/404", "", bearer())
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("non numeric id", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.expectPrincipal(true, auth.PermissionAnimationsRead)

		rr := env.do("GET", "/v1/animations/abc", "", bearer())
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.NoError(t, env.mock.ExpectationsWereMet())
	})
}

func TestListAnimations(t *testing.T) {
	env := newTestEnv(t, nil)
	env.expectPrincipal(true, auth.PermissionAnimationsRead)

	now := time.Now()
	env.mock.ExpectQuery("SELECT (.+) FROM animations WHERE (.+) ORDER BY \"year\" DESC, id ASC LIMIT \\$3 OFFSET \\$4").
		WithArgs("mushi", `{"drama"}`, 5, 5).
		WillReturnRows(sqlmock.NewRows(animationColumns).
			AddRow(int64(1), now, now, "Mushishi", 2005, "Autumn", `{drama,mystery}`, 1))

	rr := env.do("GET", "/v1/animations?title=mushi&genres=drama&page=2&page_size=5&sort=-year", "", bearer())

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	animations := decode(t, rr)["animations"].([]any)
	assert.Len(t, animations, 1)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestListAnimations_Defaults(t *testing.T) {
	env := newTestEnv(t, nil)
	env.expectPrincipal(true, auth.PermissionAnimationsRead)
	env.mock.ExpectQuery("SELECT (.+) FROM animations").
		WithArgs("", "{}", 10, 0).
		WillReturnRows(sqlmock.NewRows(animationColumns))

	rr := env.do("GET", "/v1/animations", "", bearer())

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `{"animations":[]}`+"\n", rr.Body.String())
}

func TestListAnimations_InvalidFilters(t *testing.T) {
	tests := map[string]string{
		"/v1/animations?page=0":          "page: must be greater than zero",
		"/v1/animations?page=two":        "page: must be an integer value",
		"/v1/animations?page_size=101":   "page_size: must be a maximum of 100",
		"/v1/animations?sort=password":   "sort: invalid sort value",
		"/v1/animations?sort=created_at": "sort: invalid sort value",
	}

	for path, wantError := range tests {
		t.Run(path, func(t *testing.T) {
			env := newTestEnv(t, nil)
			env.expectPrincipal(true, auth.PermissionAnimationsRead)

			rr := env.do("GET", path, "", bearer())

			assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
			assert.Equal(t, wantError, decode(t, rr)["error"])
		})
	}
}

func TestUpdateAnimation(t *testing.T) {
	env := newTestEnv(t, nil)
	env.expectPrincipal(true, auth.PermissionAnimationsWrite)
	env.expectAnimation(5, 3)

	env.mock.ExpectBegin()
	env.mock.ExpectQuery(updateAnimationQuery).
		WithArgs("Mushi-Shi", 2005, "Autumn", `{"drama","mystery"}`, int64(5), 3).
		WillReturnRows(sqlmock.NewRows([]string{"version", "updated_at"}).AddRow(4, modifiedAt))
	env.mock.ExpectCommit()

	h := bearer()
	h.Set("X-Expected-Version", "3")
	rr := env.do("PATCH", "/v1/animations/5", `{"title":"Mushi-Shi"}`, h)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	anime := decode(t, rr)["anime"].(map[string]any)
	assert.Equal(t, "Mushi-Shi", anime["title"])
	assert.Equal(t, 4.0, anime["version"])
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestUpdateAnimation_StaleVersion(t *testing.T) {
	env := newTestEnv(t, nil)
	env.expectPrincipal(true, auth.PermissionAnimationsWrite)
	env.expectAnimation(5, 3)

	// Another writer bumped the row between our read and write
	env.mock.ExpectBegin()
	env.mock.ExpectQuery(updateAnimationQuery).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), int64(5), 3).
		WillReturnRows(sqlmock.NewRows([]string{"version", "updated_at"}))
	env.mock.ExpectRollback()

	rr := env.do("PATCH", "/v1/animations/5", `{"year":2006}`, bearer())

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, map[string]any{"error": "concurrency conflict"}, decode(t, rr))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.EditConflicts))
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestUpdateAnimation_ExpectedVersionMismatch(t *testing.T) {
	env := newTestEnv(t, nil)
	env.expectPrincipal(true, auth.PermissionAnimationsWrite)
	env.expectAnimation(5, 3)

	h := bearer()
	h.Set("X-Expected-Version", "2")
	rr := env.do("PATCH", "/v1/animations/5", `{"year":2006}`, h)

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "concurrency conflict", decode(t, rr)["error"])
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestUpdateAnimation_PartialValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	env.expectPrincipal(true, auth.PermissionAnimationsWrite)
	env.expectAnimation(5, 3)

	rr := env.do("PATCH", "/v1/animations/5", `{"year":1850}`, bearer())

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "year: This field must be at least 1900", decode(t, rr)["error"])
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestDeleteAnimation(t *testing.T) {
	env := newTestEnv(t, nil)
	env.expectPrincipal(true, auth.PermissionAnimationsWrite)
	env.mock.ExpectExec("DELETE FROM animations WHERE id = \\$1").
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rr := env.do("DELETE", "/v1/animations/5", "", bearer())

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "anime successfully deleted", decode(t, rr)["message"])

	env.expectPrincipal(true, auth.PermissionAnimationsWrite)
	env.mock.ExpectExec("DELETE FROM animations WHERE id = \\$1").
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	rr = env.do("DELETE", "/v1/animations/5", "", bearer())
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}
