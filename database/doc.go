// Package database provides the GORM/SQLite component backing users and
// issued tokens: connection retry, pool settings, a zerolog-backed GORM
// logger, transactions and schema setup.
//
// The schema is created on Start either by GORM auto-migration of the
// registered models or by the embedded SQL migrations:
//
//	db := database.NewComponent(cfg, log).
//	    WithAutoMigrate(&users.User{}, &tokenstore.AccessToken{}, &tokenstore.RefreshToken{}).
//	    WithMigrations(migrations.FS, ".")
//	app.RegisterComponent(db)
package database
