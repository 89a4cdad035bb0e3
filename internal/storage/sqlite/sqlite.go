// Package sqlite provides a SQLite-backed implementation of the
// storage.Storage interface using Go's standard database/sql package.
//
// WHY SQLite?
// ───────────
// SQLite stores everything in a single file on disk. There is no
// network, no separate server process, and no installation beyond the
// driver. It is fast enough for most projects and trivial to set up.
//
// Importing the driver package registers the sqlite3 driver with
// database/sql via its init() function; this package also inspects the
// driver's error codes to translate unique-constraint violations.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/aanand-mishra/people-api/internal/config"
	"github.com/aanand-mishra/people-api/internal/mapping"
	"github.com/aanand-mishra/people-api/internal/storage"
	"github.com/aanand-mishra/people-api/internal/types"

	// Importing the driver registers "sqlite3" with database/sql as a
	// side effect; we also reference its error types directly to detect
	// unique-constraint violations.
	"github.com/mattn/go-sqlite3"
)

// SQLite is the concrete implementation of storage.Storage.
// It holds a *sql.DB which is a connection pool managed by database/sql.
// A single *sql.DB is safe for concurrent use by multiple goroutines,
// so one instance serves every request in the process.
type SQLite struct {
	Db *sql.DB
}

// compile-time check that *SQLite satisfies the contract.
var _ storage.Storage = (*SQLite)(nil)

// New opens the SQLite database at the path specified in cfg.StoragePath,
// creates the people table if it does not already exist, and returns
// a ready-to-use *SQLite.
//
// Naming convention: New() acts as a constructor. Go has no constructors,
// so the community convention is a package-level New() function that
// returns an initialised instance (and an error as the second value).
func New(cfg *config.Config) (*SQLite, error) {
	// sql.Open does NOT open a real connection yet — it just validates
	// the driver name and data source name (DSN).
	// The first actual connection happens on the first query.
	db, err := sql.Open("sqlite3", cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}

	// CREATE TABLE IF NOT EXISTS is idempotent — safe to run on every
	// startup. If the table already exists nothing happens.
	//
	// Schema:
	//   id         — integer primary key, assigned by SQLite at insert
	//   first_name — required, bounds enforced at the API boundary
	//   last_name  — required
	//   age        — optional (NULL when not set)
	//   email      — optional, UNIQUE across all rows when present.
	//                SQLite treats NULLs as distinct, so any number of
	//                rows may have no email.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS people (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			first_name TEXT    NOT NULL,
			last_name  TEXT    NOT NULL,
			age        INTEGER,
			email      TEXT    UNIQUE
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: create table: %w", err)
	}

	return &SQLite{Db: db}, nil
}

// isUniqueViolation reports whether err is the driver's unique-constraint
// error. The email column is the only unique column in the schema, so a
// unique violation always means an email collision.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) &&
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// scanPerson reads one row into a types.Person, converting the nullable
// age and email columns into pointers.
func scanPerson(scan func(dest ...any) error) (types.Person, error) {
	var (
		person types.Person
		age    sql.NullInt64
		email  sql.NullString
	)
	if err := scan(&person.ID, &person.FirstName, &person.LastName, &age, &email); err != nil {
		return types.Person{}, err
	}
	if age.Valid {
		a := int(age.Int64)
		person.Age = &a
	}
	if email.Valid {
		e := email.String
		person.Email = &e
	}
	return person, nil
}

// nullableInt / nullableString convert optional pointer fields into the
// driver-level NULL representation for INSERT and UPDATE arguments.
func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

// ─────────────────────────────────────────────────────────────────────────────
// CreatePerson inserts a new row and returns the stored record.
//
// Prepared statements with ? placeholders keep user input out of the SQL
// text, so a value like "'; DROP TABLE people; --" is stored as data,
// never executed as a statement.
//
// After the insert we re-read the row by its generated id so the caller
// gets back exactly what the database holds, not what we think we wrote.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) CreatePerson(person types.CreatePersonRequest) (types.Person, error) {
	stmt, err := s.Db.Prepare(
		"INSERT INTO people (first_name, last_name, age, email) VALUES (?, ?, ?, ?)",
	)
	if err != nil {
		return types.Person{}, fmt.Errorf("CreatePerson: prepare: %w", err)
	}
	// defer ensures the statement is closed when this function returns,
	// even if we return early due to an error. Prevents resource leaks.
	defer stmt.Close()

	result, err := stmt.Exec(
		person.FirstName,
		person.LastName,
		nullableInt(person.Age),
		nullableString(person.Email),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.Person{}, storage.ErrEmailTaken
		}
		return types.Person{}, fmt.Errorf("CreatePerson: exec: %w", err)
	}

	// LastInsertId returns the auto-generated primary key of the new row.
	lastID, err := result.LastInsertId()
	if err != nil {
		return types.Person{}, fmt.Errorf("CreatePerson: last insert id: %w", err)
	}

	created, found, err := s.GetPersonByID(lastID)
	if err != nil {
		return types.Person{}, err
	}
	if !found {
		return types.Person{}, fmt.Errorf("CreatePerson: row %d vanished after insert", lastID)
	}
	return created, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// GetPersonByID fetches exactly one row matched by primary key.
//
// sql.ErrNoRows from Scan is not a failure here — it is the "absent"
// case of the contract, reported through the bool.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) GetPersonByID(id int64) (types.Person, bool, error) {
	stmt, err := s.Db.Prepare(
		"SELECT id, first_name, last_name, age, email FROM people WHERE id = ? LIMIT 1",
	)
	if err != nil {
		return types.Person{}, false, fmt.Errorf("GetPersonByID: prepare: %w", err)
	}
	defer stmt.Close()

	person, err := scanPerson(stmt.QueryRow(id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Person{}, false, nil
		}
		return types.Person{}, false, fmt.Errorf("GetPersonByID: scan: %w", err)
	}

	return person, true, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// GetPeople returns a page of rows in insertion order.
//
// ORDER BY id makes the "natural order" explicit: SQLite assigns ids
// monotonically, so id order is insertion order. Relying on unordered
// SELECT results would work today and break on the next vacuum.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) GetPeople(skip, limit int64) ([]types.Person, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = storage.DefaultListLimit
	}
	if limit > storage.MaxListLimit {
		limit = storage.MaxListLimit
	}

	stmt, err := s.Db.Prepare(
		// Explicitly list columns — never use SELECT * in production code.
		// If a column is added later, SELECT * would break Scan's ordering.
		"SELECT id, first_name, last_name, age, email FROM people ORDER BY id LIMIT ? OFFSET ?",
	)
	if err != nil {
		return nil, fmt.Errorf("GetPeople: prepare: %w", err)
	}
	defer stmt.Close()

	rows, err := stmt.Query(limit, skip)
	if err != nil {
		return nil, fmt.Errorf("GetPeople: query: %w", err)
	}
	defer rows.Close() // must close rows to free the DB connection

	// Pre-allocate an empty (non-nil) slice.
	// Returning [] instead of null in JSON is better API behaviour.
	people := make([]types.Person, 0)

	for rows.Next() {
		person, err := scanPerson(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("GetPeople: scan row: %w", err)
		}
		people = append(people, person)
	}

	// rows.Err() captures any error that occurred during iteration.
	// This is separate from Scan errors.
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetPeople: rows iteration: %w", err)
	}

	return people, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// UpdatePersonByID applies a partial patch to an existing row.
//
// The SET clause is built only from the fields present in the patch, so
// columns the client did not supply are never mentioned in the UPDATE at
// all. An empty patch skips the UPDATE entirely and returns the current
// row — a documented no-op, not an error.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) UpdatePersonByID(id int64, patch mapping.PersonPatch) (types.Person, bool, error) {
	// Existence check first: updating a missing id is the "absent" case,
	// reported through the bool just like GetPersonByID.
	_, found, err := s.GetPersonByID(id)
	if err != nil {
		return types.Person{}, false, err
	}
	if !found {
		return types.Person{}, false, nil
	}

	if patch.IsEmpty() {
		return s.GetPersonByID(id)
	}

	var (
		assignments []string
		args        []any
	)
	if patch.FirstName != nil {
		assignments = append(assignments, "first_name = ?")
		args = append(args, *patch.FirstName)
	}
	if patch.LastName != nil {
		assignments = append(assignments, "last_name = ?")
		args = append(args, *patch.LastName)
	}
	if patch.Age != nil {
		assignments = append(assignments, "age = ?")
		args = append(args, *patch.Age)
	}
	if patch.Email != nil {
		assignments = append(assignments, "email = ?")
		args = append(args, *patch.Email)
	}
	args = append(args, id)

	query := "UPDATE people SET " + strings.Join(assignments, ", ") + " WHERE id = ?"
	if _, err := s.Db.Exec(query, args...); err != nil {
		if isUniqueViolation(err) {
			return types.Person{}, true, storage.ErrEmailTaken
		}
		return types.Person{}, false, fmt.Errorf("UpdatePersonByID: exec: %w", err)
	}

	// Re-fetch the record so we return exactly what is stored in the DB.
	return s.GetPersonByID(id)
}

// ─────────────────────────────────────────────────────────────────────────────
// DeletePersonByID removes a row by primary key.
//
// RowsAffected distinguishes "deleted" from "was not there": the second
// delete of the same id reports false, never an error, which makes the
// operation idempotent for clients that retry.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) DeletePersonByID(id int64) (bool, error) {
	stmt, err := s.Db.Prepare("DELETE FROM people WHERE id = ?")
	if err != nil {
		return false, fmt.Errorf("DeletePersonByID: prepare: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.Exec(id)
	if err != nil {
		return false, fmt.Errorf("DeletePersonByID: exec: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("DeletePersonByID: rows affected: %w", err)
	}

	return affected > 0, nil
}
