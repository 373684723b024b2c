// Package database opens the GORM connection used by the run journal.
//
// Two drivers are supported: sqlite (the default, a local file) and mysql for
// a shared journal. Connect pings the database before returning so a bad
// configuration fails early.
//
// # Schema Inspection
//
// GetTableColumns and MissingColumns read the live schema of a table. The
// journal uses them to report schema drift on the health endpoint.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Warn("Journal disabled", zap.Error(err))
//	}
package database
