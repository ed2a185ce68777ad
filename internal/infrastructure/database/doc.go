// Package database owns the SQLite device store: the devices table
// that registration writes and the snapshot and health columns the
// polling engine keeps current between restarts.
//
// The store opens in WAL mode with a single writer connection, which
// matches how it is used: each poll session persists one snapshot row
// at a time while the bridge reads cached state. The file is created
// with 0600 permissions because snapshots include device network
// addresses.
//
// Schema changes ship as SQL files embedded into the binary by the
// migrations package and applied by Migrate at startup:
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
//
// Migrations are additive: new columns are nullable or carry defaults,
// and every up file has a matching down file so MigrateDown can revert
// the newest version during development.
package database
