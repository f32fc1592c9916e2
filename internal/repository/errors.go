// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure scenarios
// without depending on driver details.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert or update violates a unique key.
// For reservations this means the seat is already held for the showtime;
// for showtimes that the room already has a screening at that instant.
var ErrDuplicate = errors.New("duplicate key")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete or update cannot be performed
// because of dependent records (e.g. a movie that still has showtimes).
var ErrConflict = errors.New("conflict")

// ErrEmailExists is returned by UserRepo.Create for an already registered email.
var ErrEmailExists = errors.New("email already exists")

const (
	mysqlDuplicateEntry  = 1062 // ER_DUP_ENTRY
	mysqlRowIsReferenced = 1451 // ER_ROW_IS_REFERENCED_2
)

// isDuplicate reports whether err is a MySQL unique-key violation.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// isReferenced reports whether err is a foreign-key RESTRICT violation.
func isReferenced(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlRowIsReferenced
}
