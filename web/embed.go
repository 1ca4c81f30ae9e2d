// Package web embeds the static frontend shell served at the root path.
package web

import "embed"

//go:embed static
var StaticFS embed.FS
