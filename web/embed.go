// Package web embeds the widget's static assets and provides the HTTP
// handler that serves them. The assets are the storefront host page plus the
// thin browser shim that relays rendered HTML and click events over the
// widget WebSocket.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"
)

//go:embed all:static
var staticFS embed.FS

// Handler returns an http.Handler serving the embedded assets. The host page
// is served at /, everything else from /assets/.
func Handler() http.Handler {
	subFS, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic("web: failed to create sub filesystem: " + err.Error())
	}

	fileServer := http.FileServer(http.FS(subFS))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/")
		if path == "" {
			path = "index.html"
		}
		path = strings.TrimPrefix(path, "assets/")

		if f, err := subFS.Open(path); err == nil {
			_ = f.Close()
			r.URL.Path = "/" + path
			fileServer.ServeHTTP(w, r)
			return
		}

		http.NotFound(w, r)
	})
}
