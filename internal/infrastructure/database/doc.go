// Package database is the SQLite frame store behind recorder
// auxiliaries. It opens the store in WAL mode so assertions can read
// recorded frames while a recorder is still draining, and it applies
// the embedded schema (the frames table plus a version table) on
// startup via Migrate.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: "/data/frames.db", WALMode: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Schema files live in the migrations package as
// <version>_<name>.up.sql / .down.sql pairs and are embedded into the
// binary; the down step exists for test teardown, not production
// rollback.
package database
