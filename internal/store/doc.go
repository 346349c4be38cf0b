// Package store persists activities, segments, and segment efforts in a
// local SQLite database. It is the single owner of the schema and of all
// SQL executed against it; callers work with the typed records defined in
// models.go and never see database/sql directly.
package store
