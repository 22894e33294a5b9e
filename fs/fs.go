package appfs

import "embed"

// FS holds the files embedded in the binaries: the SQL migrations.
//
//go:embed migrations
var FS embed.FS
