package http

import (
	"context"
	"embed"
	"io/fs"
	stdhttp "net/http"
	"strings"

	"github.com/rotisserie/eris"
)

//go:embed static/*
var staticFiles embed.FS

const (
	staticCacheControl = "public, max-age=86400"
	// Upload names are random and never reused.
	uploadCacheControl = "public, max-age=31536000, immutable"
)

func (s *Server) registerStaticRoute() {
	assets, err := fs.Sub(staticFiles, "static")
	if err != nil {
		s.recordError(context.Background(), eris.Wrap(err, "preparing static assets filesystem"), "registering static assets failed", nil)
		return
	}

	fileServer := stdhttp.FileServer(stdhttp.FS(assets))
	s.mux.Handle("GET /static/", stdhttp.StripPrefix("/static/", assetHandler(fileServer, staticCacheControl)))
	s.mux.HandleFunc("GET /favicon.ico", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		w.Header().Set("Cache-Control", staticCacheControl)
		stdhttp.ServeFileFS(w, r, assets, "favicon.svg")
	})
}

func (s *Server) registerUploadsRoute() {
	if s.uploadDir == "" {
		return
	}

	fileServer := stdhttp.FileServer(stdhttp.Dir(s.uploadDir))
	s.mux.Handle("GET /uploads/", stdhttp.StripPrefix("/uploads/", assetHandler(fileServer, uploadCacheControl)))
}

// assetHandler answers 404 for directory paths instead of rendering an index
// and marks file responses as cacheable.
func assetHandler(next stdhttp.Handler, cacheControl string) stdhttp.Handler {
	return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			stdhttp.NotFound(w, r)
			return
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Cache-Control", cacheControl)
		next.ServeHTTP(w, r)
	})
}
