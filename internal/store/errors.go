package store

import (
	"errors"
	"strings"
)

var (
	// ErrStorageUnavailable indicates the host refused storage: the data
	// directory cannot be created or written, the database cannot be opened,
	// or free space is below the configured floor.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrDuplicateKey indicates an insert collided with an existing primary key
	// or a unique index.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrPersistence indicates the host storage rejected a write.
	ErrPersistence = errors.New("persistence failure")
	// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
	ErrSchemaMismatch = errors.New("schema version mismatch")
	// ErrNotInitialized is returned by every operation issued before Initialize.
	ErrNotInitialized = errors.New("store not initialized")
	// ErrUnknownCollection names a collection outside the fixed schema.
	ErrUnknownCollection = errors.New("unknown collection")
	// ErrUnknownIndex names an index the collection does not declare.
	ErrUnknownIndex = errors.New("unknown index")
	// ErrInvalidRecord indicates a record without an identifier or with unencodable content.
	ErrInvalidRecord = errors.New("invalid record")
	// ErrNotFound is returned by derived write operations whose target record is
	// missing. Plain reads report absence with a nil result instead.
	ErrNotFound = errors.New("not found")
	// ErrLinkPending indicates a product was created but linking it back to its
	// source frame failed; the link is repaired on the next GetProduct or
	// ReconcileProductLinks.
	ErrLinkPending = errors.New("product link pending")
)

const (
	sqliteBusyCode       = 5
	sqliteConstraintCode = 19
	sqliteFullCode       = 13
	sqliteCantOpenCode   = 14
	sqlitePermCode       = 3
	sqliteReadOnlyCode   = 8
)

func sqliteCode(err error) (int, bool) {
	var coder interface{ Code() int }
	if errors.As(err, &coder) {
		// Extended result codes carry the primary code in the low byte.
		return coder.Code() & 0xff, true
	}
	return 0, false
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := sqliteCode(err); ok && code == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := sqliteCode(err); ok && code == sqliteConstraintCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY")
}

func isHostUnavailable(err error) bool {
	code, ok := sqliteCode(err)
	if !ok {
		return false
	}
	switch code {
	case sqliteFullCode, sqliteCantOpenCode, sqlitePermCode, sqliteReadOnlyCode:
		return true
	}
	return false
}
