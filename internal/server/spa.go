package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// handleSPA serves static files from dir. Unknown paths fall back to the
// page that owns them: display.html under /display, index.html (the
// admin page) everywhere else.
func handleSPA(dir string) http.HandlerFunc {
	fileServer := http.FileServer(http.Dir(dir))

	return func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(dir, filepath.Clean(r.URL.Path))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			fileServer.ServeHTTP(w, r)
			return
		}

		page := "index.html"
		if r.URL.Path == "/display" || strings.HasPrefix(r.URL.Path, "/display/") {
			page = "display.html"
		}
		http.ServeFile(w, r, filepath.Join(dir, page))
	}
}
