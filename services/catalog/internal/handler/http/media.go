package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/marketplace/pkg/httputil"
)

// ObjectReader reads stored media objects. memory.Storage satisfies it.
type ObjectReader interface {
	Object(key string) ([]byte, string, bool)
}

// MediaFiles serves GET /media/* from objects. It is mounted only when media
// is kept in process memory; other backends serve their own URLs.
func MediaFiles(objects ObjectReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "*")
		data, contentType, ok := objects.Object(key)
		if !ok {
			httputil.WriteJSON(w, http.StatusNotFound, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "MEDIA_NOT_FOUND", Message: "media file not found"},
			})
			return
		}

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Header().Set("Cache-Control", "public, max-age=86400")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
