package person_test

// End-to-end tests for the /people REST surface: a real router wired to
// a real SQLite store on a temp file, exercised through httptest.

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/people-api/internal/config"
	"github.com/aanand-mishra/people-api/internal/http/handlers/person"
	"github.com/aanand-mishra/people-api/internal/storage/sqlite"
	"github.com/aanand-mishra/people-api/internal/types"
)

// newTestRouter builds the same /people route table main registers,
// over a throwaway database.
func newTestRouter(t *testing.T) *http.ServeMux {
	t.Helper()

	cfg := &config.Config{StoragePath: filepath.Join(t.TempDir(), "people_test.db")}
	store, err := sqlite.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { store.Db.Close() })

	router := http.NewServeMux()
	router.HandleFunc("POST /people/{$}", person.New(store))
	router.HandleFunc("GET /people/{$}", person.GetList(store))
	router.HandleFunc("GET /people/{id}", person.GetByID(store))
	router.HandleFunc("PUT /people/{id}", person.Update(store))
	router.HandleFunc("DELETE /people/{id}", person.Delete(store))
	return router
}

func do(t *testing.T, router *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodePerson(t *testing.T, rec *httptest.ResponseRecorder) types.Person {
	t.Helper()
	var p types.Person
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p
}

func TestPersonLifecycle(t *testing.T) {
	router := newTestRouter(t)

	// Create.
	rec := do(t, router, http.MethodPost, "/people/",
		`{"first_name": "John", "last_name": "Doe", "age": 30, "email": "john.doe@example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodePerson(t, rec)
	require.NotZero(t, created.ID)
	assert.Equal(t, "John", created.FirstName)
	require.NotNil(t, created.Age)
	assert.Equal(t, 30, *created.Age)

	// Read back: identical record.
	rec = do(t, router, http.MethodGet, "/people/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created, decodePerson(t, rec))

	// Partial update: only age changes.
	rec = do(t, router, http.MethodPut, "/people/1", `{"age": 31}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodePerson(t, rec)
	assert.Equal(t, "John", updated.FirstName)
	assert.Equal(t, "Doe", updated.LastName)
	require.NotNil(t, updated.Age)
	assert.Equal(t, 31, *updated.Age)
	require.NotNil(t, updated.Email)
	assert.Equal(t, "john.doe@example.com", *updated.Email)

	// Delete: no body, just 204.
	rec = do(t, router, http.MethodDelete, "/people/1", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, rec.Body.Len())

	// Gone.
	rec = do(t, router, http.MethodGet, "/people/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateValidation(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/people/", `{"first_name": "NoLast"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "LastName")

	rec = do(t, router, http.MethodPost, "/people/",
		`{"first_name": "A", "last_name": "B", "email": "not-an-email"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "valid email address")

	rec = do(t, router, http.MethodPost, "/people/",
		`{"first_name": "A", "last_name": "B", "age": 200}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Age")
}

func TestCreateEmptyBody(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/people/", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "request body is empty")
}

func TestCreateDuplicateEmail(t *testing.T) {
	router := newTestRouter(t)

	body := `{"first_name": "A", "last_name": "B", "email": "taken@example.com"}`
	rec := do(t, router, http.MethodPost, "/people/", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, http.MethodPost, "/people/", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetBadID(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/people/abc", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid id")
}

func TestListPagination(t *testing.T) {
	router := newTestRouter(t)

	// Empty table still yields a JSON array, not null.
	rec := do(t, router, http.MethodGet, "/people/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))

	for _, name := range []string{"A", "B", "C"} {
		rec := do(t, router, http.MethodPost, "/people/",
			`{"first_name": "`+name+`", "last_name": "X"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec = do(t, router, http.MethodGet, "/people/?skip=1&limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var people []types.Person
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &people))
	require.Len(t, people, 1)
	assert.Equal(t, "B", people[0].FirstName)

	rec = do(t, router, http.MethodGet, "/people/?limit=oops", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateAbsentPerson(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPut, "/people/42", `{"age": 31}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateNullDoesNotClear(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/people/",
		`{"first_name": "A", "last_name": "B", "email": "keep@example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	// An explicit null is treated like an omitted key: nothing changes.
	rec = do(t, router, http.MethodPut, "/people/1", `{"email": null}`)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodePerson(t, rec)
	require.NotNil(t, updated.Email)
	assert.Equal(t, "keep@example.com", *updated.Email)
}

func TestUpdateEmailConflict(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/people/",
		`{"first_name": "A", "last_name": "B", "email": "a@example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, router, http.MethodPost, "/people/",
		`{"first_name": "C", "last_name": "D", "email": "c@example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, http.MethodPut, "/people/2", `{"email": "a@example.com"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDeleteAbsentPerson(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodDelete, "/people/42", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
