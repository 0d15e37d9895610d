//go:build dev

package main

// IsDebug is set by `wails dev`, which builds with the dev tag.
const IsDebug = true
