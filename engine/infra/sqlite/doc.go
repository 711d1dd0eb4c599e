// Package sqlite provides the modernc.org/sqlite backed storage of the
// dashboard.
//
// Two kinds of databases live here: the catalog, one row per study, and one
// database per study holding its imported outline and zones. Both are
// migrated with goose from embedded SQL files.
package sqlite
