// Package store persists livecatalog's collections in a local SQLite
// database.
//
// Every collection (products, capturedFrames, catalogs, users, orders,
// sessions, settings) is a table of JSON documents keyed by id, with
// secondary indices declared as json_extract expression indices. The generic
// operations (Add, Update, Get, Delete, GetAll, Query, Clear, Export, Import)
// work on any collection; the derived helpers cover frames, sessions,
// products, catalogs, and settings.
//
// Missing records are reported as nil results, never as errors. Writes retry
// on SQLITE_BUSY and surface host failures as ErrPersistence. Creating a
// product from a frame is two writes; a failed link is repaired on the next
// GetProduct or by ReconcileProductLinks.
package store
