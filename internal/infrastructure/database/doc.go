// Package database opens the SQLite file that holds the session history
// and applies the embedded schema migrations.
//
// WAL mode lets the history API read while trigger sequences write.
// Migrations are additive: new columns are NULLABLE or carry a DEFAULT, and
// every .up.sql file has a matching .down.sql.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
