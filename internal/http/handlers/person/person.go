// Package person contains all HTTP handlers for the /people collection.
//
// HANDLER PATTERN USED HERE — THE CLOSURE / FACTORY PATTERN:
// ────────────────────────────────────────────────────────────
// Go's router expects handler functions with the signature:
//
//	func(http.ResponseWriter, *http.Request)
//
// That signature has no room for extra parameters like a database.
// To inject dependencies we use a factory function that:
//  1. Accepts dependencies (storage)
//  2. Returns a function with the exact signature the router needs
//
// Because the inner function "closes over" the outer parameters, it can
// access `storage` even after the factory call has returned. Example:
//
//	router.HandleFunc("POST /people/", person.New(storage))
//	//                                 ^^^^^^^^^^^^^^^^^^^
//	//                  New(storage) is called ONCE at startup.
//	//                  It returns a handler func which is called
//	//                  on EVERY incoming request.
package person

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/people-api/internal/mapping"
	"github.com/aanand-mishra/people-api/internal/storage"
	"github.com/aanand-mishra/people-api/internal/types"
	"github.com/aanand-mishra/people-api/internal/utils/response"
)

var errPersonNotFound = errors.New("person not found")

// pathID extracts and parses the {id} path segment.
// This works because Go 1.22+ supports named path parameters in the
// ServeMux pattern: "GET /people/{id}"
func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// ─────────────────────────────────────────────────────────────────────────────
// New handles POST /people/
// Creates a new person from the JSON request body.
//
// Request body (JSON):
//
//	{ "first_name": "A", "last_name": "B", "age": 30, "email": "a@b.com" }
//
// Success response (201 Created): the stored person, including its id.
//
// Error responses:
//
//	400 Bad Request           — empty body or malformed JSON
//	422 Unprocessable Entity  — a field is out of its declared bounds
//	409 Conflict              — email already in use
//	500 Internal              — database error
//
// ─────────────────────────────────────────────────────────────────────────────
func New(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("creating a person")

		var req types.CreatePersonRequest

		err := json.NewDecoder(r.Body).Decode(&req)
		if errors.Is(err, io.EOF) {
			// io.EOF means the body was completely empty — nothing to decode.
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("request body is empty")))
			return
		}
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		// validator.New().Struct(v) checks all validate:"..." tags on v.
		if err := validator.New().Struct(req); err != nil {
			validateErrs := err.(validator.ValidationErrors)
			response.WriteJSON(w, http.StatusUnprocessableEntity,
				response.ValidationError(validateErrs))
			return
		}

		created, err := store.CreatePerson(req)
		if err != nil {
			if errors.Is(err, storage.ErrEmailTaken) {
				response.WriteJSON(w, http.StatusConflict, response.GeneralError(err))
				return
			}
			slog.Error("error creating person", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError,
				response.GeneralError(err))
			return
		}

		slog.Info("person created", slog.Int64("id", created.ID))
		response.WriteJSON(w, http.StatusCreated, created)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetByID handles GET /people/{id}
//
// Success response (200 OK): the person record.
//
// Error responses:
//
//	400 Bad Request — id is not a valid integer
//	404 Not Found   — no person with that id
//	500 Internal    — database error
//
// ─────────────────────────────────────────────────────────────────────────────
func GetByID(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("invalid id: must be an integer")))
			return
		}
		slog.Info("getting a person", slog.Int64("id", id))

		person, found, err := store.GetPersonByID(id)
		if err != nil {
			slog.Error("error getting person",
				slog.Int64("id", id),
				slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError,
				response.GeneralError(err))
			return
		}
		if !found {
			response.WriteJSON(w, http.StatusNotFound,
				response.GeneralError(errPersonNotFound))
			return
		}

		response.WriteJSON(w, http.StatusOK, person)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetList handles GET /people/
// Returns a JSON array of people, paginated with ?skip= and ?limit=.
//
// skip defaults to 0 and limit to 100 when absent; the storage layer
// caps limit so one request cannot drag the whole table into memory.
// Returns an empty array [] (not null) when there is no data.
// ─────────────────────────────────────────────────────────────────────────────
func GetList(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		skip, err := queryInt(r, "skip", 0)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("invalid skip: must be an integer")))
			return
		}
		limit, err := queryInt(r, "limit", storage.DefaultListLimit)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("invalid limit: must be an integer")))
			return
		}

		slog.Info("getting people", slog.Int64("skip", skip), slog.Int64("limit", limit))

		people, err := store.GetPeople(skip, limit)
		if err != nil {
			slog.Error("error getting people", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError,
				response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, people)
	}
}

// queryInt reads an integer query parameter, falling back when absent.
func queryInt(r *http.Request, name string, fallback int64) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

// ─────────────────────────────────────────────────────────────────────────────
// Update handles PUT /people/{id}
// Applies a partial update: only fields supplied with a value change.
//
// Request body (JSON) — any subset of the person fields:
//
//	{ "age": 31 }
//
// An empty object {} is a valid no-op and returns the current record.
// A field set to null is treated the same as an omitted field: the
// stored value is left untouched.
//
// Success response (200 OK): the post-update person.
//
// Error responses:
//
//	400 Bad Request           — invalid id, empty body, or malformed JSON
//	404 Not Found             — no person with that id
//	409 Conflict              — email already in use
//	422 Unprocessable Entity  — a supplied field is out of bounds
//	500 Internal              — database error
//
// ─────────────────────────────────────────────────────────────────────────────
func Update(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("invalid id: must be an integer")))
			return
		}
		slog.Info("updating a person", slog.Int64("id", id))

		var req types.UpdatePersonRequest
		err = json.NewDecoder(r.Body).Decode(&req)
		if errors.Is(err, io.EOF) {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("request body is empty")))
			return
		}
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		// Validation only applies to supplied values: nil pointers have
		// nothing to check, which is what the omitempty tags express.
		if err := validator.New().Struct(req); err != nil {
			validateErrs := err.(validator.ValidationErrors)
			response.WriteJSON(w, http.StatusUnprocessableEntity,
				response.ValidationError(validateErrs))
			return
		}

		updated, found, err := store.UpdatePersonByID(id, mapping.PatchFromUpdate(req))
		if err != nil {
			if errors.Is(err, storage.ErrEmailTaken) {
				response.WriteJSON(w, http.StatusConflict, response.GeneralError(err))
				return
			}
			slog.Error("error updating person",
				slog.Int64("id", id),
				slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError,
				response.GeneralError(err))
			return
		}
		if !found {
			response.WriteJSON(w, http.StatusNotFound,
				response.GeneralError(errPersonNotFound))
			return
		}

		slog.Info("person updated", slog.Int64("id", id))
		response.WriteJSON(w, http.StatusOK, updated)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete handles DELETE /people/{id}
//
// Success response: 204 No Content with an empty body.
//
// Error responses:
//
//	400 Bad Request — invalid id
//	404 Not Found   — no person with that id
//	500 Internal    — database error
//
// ─────────────────────────────────────────────────────────────────────────────
func Delete(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("invalid id: must be an integer")))
			return
		}
		slog.Info("deleting a person", slog.Int64("id", id))

		deleted, err := store.DeletePersonByID(id)
		if err != nil {
			slog.Error("error deleting person",
				slog.Int64("id", id),
				slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError,
				response.GeneralError(err))
			return
		}
		if !deleted {
			response.WriteJSON(w, http.StatusNotFound,
				response.GeneralError(errPersonNotFound))
			return
		}

		slog.Info("person deleted", slog.Int64("id", id))
		w.WriteHeader(http.StatusNoContent)
	}
}
