// Package database provides the PostgreSQL connection pool for the
// price history table.
//
// The address comes from database.url (usually DATABASE_URL) or from the
// individual host/port/name/user/password fields.
package database
