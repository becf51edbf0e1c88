package middlewares

import (
	"compress/gzip"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type gzipResponseWriter struct {
	gin.ResponseWriter
	gzw     *gzip.Writer
	decided bool
}

// start picks compression on the first write, once the content type is known.
func (w *gzipResponseWriter) start() {
	if w.decided {
		return
	}
	w.decided = true

	ct := w.Header().Get("Content-Type")
	if !strings.HasPrefix(ct, "application/json") && !strings.HasPrefix(ct, "text/html") {
		return
	}
	if s := w.Status(); s == http.StatusNoContent || s < http.StatusOK {
		return
	}
	w.Header().Del("Content-Length")
	w.Header().Set("Content-Encoding", "gzip")
	w.Header().Add("Vary", "Accept-Encoding")
	w.gzw = gzip.NewWriter(w.ResponseWriter)
}

func (w *gzipResponseWriter) Write(p []byte) (int, error) {
	w.start()
	if w.gzw != nil {
		return w.gzw.Write(p)
	}
	return w.ResponseWriter.Write(p)
}

func (w *gzipResponseWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// Gzip compresses JSON and HTML responses for clients that accept gzip.
// The exposition handler negotiates its own encoding and is left alone.
func Gzip() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.Contains(strings.ToLower(c.GetHeader("Accept-Encoding")), "gzip") {
			c.Next()
			return
		}
		w := &gzipResponseWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()
		if w.gzw != nil {
			if err := w.gzw.Close(); err != nil {
				_ = c.Error(err)
			}
		}
	}
}
