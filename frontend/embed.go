// Package frontend holds the built web UI shared by the desktop app and the
// WebSocket server.
package frontend

import (
	"embed"
	"io/fs"
)

//go:embed all:dist
var Assets embed.FS

// Dist returns the assets rooted at dist/, suitable for http.FS.
func Dist() fs.FS {
	sub, err := fs.Sub(Assets, "dist")
	if err != nil {
		panic(err)
	}
	return sub
}
