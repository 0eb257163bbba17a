// Package sqlite is the core binding between dynamic guest values and an
// embedded SQLite connection. It converts guest parameters to the engine's
// typed parameter model, decodes result columns by storage class, and manages
// the lifetime of the two native resource kinds exposed to guests: a database
// connection and a prepared-statement cursor. SQL semantics are entirely the
// engine's; this package is a value and lifetime adapter only.
package sqlite
