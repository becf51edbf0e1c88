package middlewares

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vshulcz/Viewpulse/internal/misc"
)

// SignatureHeader carries the hex HMAC-SHA256 of a response body.
const SignatureHeader = "HashSHA256"

type bufferedWriter struct {
	gin.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *bufferedWriter) WriteHeader(code int) { w.status = code }

func (w *bufferedWriter) Write(p []byte) (int, error) { return w.body.Write(p) }

func (w *bufferedWriter) WriteString(s string) (int, error) { return w.body.WriteString(s) }

func (w *bufferedWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func (w *bufferedWriter) Size() int { return w.body.Len() }

func (w *bufferedWriter) Written() bool { return w.status != 0 || w.body.Len() > 0 }

func (w *bufferedWriter) WriteHeaderNow() {}

// SignResponse buffers each response and signs its body with key, so report
// consumers can check status payloads the same way webhook bodies are checked.
// An empty key disables signing.
func SignResponse(key string) gin.HandlerFunc {
	key = strings.TrimSpace(key)
	if key == "" {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		orig := c.Writer
		bw := &bufferedWriter{ResponseWriter: orig}
		c.Writer = bw
		c.Next()
		c.Writer = orig

		body := bw.body.Bytes()
		if len(body) > 0 {
			orig.Header().Set(SignatureHeader, misc.SignSHA256(body, key))
		}
		orig.WriteHeader(bw.Status())
		if _, err := orig.Write(body); err != nil {
			_ = c.Error(err)
		}
	}
}
