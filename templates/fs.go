package templates

import "embed"

//go:embed layouts/*.gohtml pages/*.gohtml
var FS embed.FS
