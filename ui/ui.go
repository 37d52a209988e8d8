// Package ui embeds the templates and static assets so the binary deploys as
// a single file.
package ui

import "embed"

//go:embed templates static
var Files embed.FS
