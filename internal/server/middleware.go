package server

import (
	"net/http"
	"runtime/debug"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/zenazn/goji/web"
	"github.com/zenazn/goji/web/middleware"
	"github.com/zenazn/goji/web/mutil"

	"github.com/ironsheep/dicom-viewer/internal/config"
)

// requestLogger logs one line per request with its status, response size
// and duration.
func requestLogger(c *web.C, h http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lw := mutil.WrapWriter(w)
		h.ServeHTTP(lw, r)

		status := lw.Status()
		if status == 0 {
			status = http.StatusOK
		}
		config.Infof("[%s] %s %s -> %d (%s) in %s\n", middleware.GetReqID(*c),
			r.Method, r.URL.RequestURI(), status, humanize.Bytes(uint64(lw.BytesWritten())), time.Since(start))
	}
	return http.HandlerFunc(fn)
}

// recoverer turns a panicking handler into a 500 JSON response.
func recoverer(c *web.C, h http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				config.Errorf("[%s] panic serving %s %s: %v\n%s", middleware.GetReqID(*c),
					r.Method, r.URL.Path, rec, debug.Stack())
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		h.ServeHTTP(w, r)
	}
	return http.HandlerFunc(fn)
}
