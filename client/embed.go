// Package client embeds the browser side of the live runtime.
package client

import (
	"embed"
	"io/fs"
	"net/http"
)

// Script is the file name of the live client.
const Script = "live.js"

//go:embed src/*.js
var assets embed.FS

// Assets returns the embedded files rooted at src.
func Assets() fs.FS {
	fsys, err := fs.Sub(assets, "src")
	if err != nil {
		panic(err)
	}
	return fsys
}

// Handler serves the embedded files. Mount it under a stripped prefix.
func Handler() http.Handler {
	fileServer := http.FileServer(http.FS(Assets()))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		fileServer.ServeHTTP(w, r)
	})
}

// File returns the contents of an embedded file.
func File(name string) ([]byte, error) {
	return assets.ReadFile("src/" + name)
}
