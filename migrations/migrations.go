// Package migrations embeds the SQL schema for users and issued tokens.
// The database component applies it when database.migrate is "files".
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
