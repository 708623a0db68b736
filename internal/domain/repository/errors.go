package repository

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// invalidTextRepresentation is raised when an id parameter is not a valid UUID.
const invalidTextRepresentation = "22P02"

// isMissingRow reports whether a lookup by id cannot match any row: either the
// query came back empty or the id could never be stored in a uuid column.
func isMissingRow(err error) bool {
	if errors.Is(err, sql.ErrNoRows) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == invalidTextRepresentation
}
