// Package migrations embeds the versioned SQL schema applied by
// "ayurcare-server migrate".
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
