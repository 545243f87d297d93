package trailog

import "embed"

// WebFS holds the built browser client.
//
//go:embed web/dist
var WebFS embed.FS
