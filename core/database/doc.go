// Package database handles the connection to the wiki replica database.
//
// It provides a wrapper around GORM to configure the MariaDB replica
// connection from the application's configuration. The replica carries the
// page_restrictions and protect-log tables the reconciler reads its
// pre-run protection snapshot from; the reconciler never writes to it.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("replica connection failed", err)
//	}
package database
