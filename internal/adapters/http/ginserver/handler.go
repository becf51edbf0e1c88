package ginserver

import (
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vshulcz/Viewpulse/internal/domain"
	"github.com/vshulcz/Viewpulse/internal/ports"
	"github.com/vshulcz/Viewpulse/internal/services/report"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

// Reports is the read side of the in-memory report store.
type Reports interface {
	Latest() (report.Event, error)
	History(limit int) []report.Event
}

// Handler serves the exporter's status endpoints. archive may be nil.
type Handler struct {
	reports Reports
	archive ports.Archive
}

// NewHandler serves reports and, when archive is non-nil, per-video history.
func NewHandler(reports Reports, archive ports.Archive) *Handler {
	return &Handler{reports: reports, archive: archive}
}

// Ping handles `GET /ping`; it checks the archive connection when one is configured.
func (h *Handler) Ping(c *gin.Context) {
	if h.archive != nil {
		if err := h.archive.Ping(c.Request.Context()); err != nil {
			c.String(http.StatusInternalServerError, "db ping error: %v", err)
			return
		}
	}
	c.String(http.StatusOK, "ok")
}

// Status handles `GET /status` with the latest cycle report.
func (h *Handler) Status(c *gin.Context) {
	evt, err := h.reports.Latest()
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, evt)
}

// History handles `GET /history?limit=N`, newest first.
func (h *Handler) History(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.reports.History(limit))
}

// VideoHistory handles `GET /videos/:bvid/history?limit=N` from the archive.
func (h *Handler) VideoHistory(c *gin.Context) {
	if h.archive == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "archive disabled"})
		return
	}
	bvid := strings.TrimSpace(c.Param("bvid"))
	if bvid == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	rows, err := h.archive.Recent(c.Request.Context(), bvid, limit)
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

var indexTmpl = template.Must(template.New("index").Parse(`<!doctype html><html><head><meta charset='utf-8'><title>viewpulse</title>
<style>body{font-family:system-ui,Arial,sans-serif}table{border-collapse:collapse}td,th{border:1px solid #ddd;padding:6px 10px}</style>
</head><body><h1>Cycle {{.Cycle}}</h1>
<p>started {{.StartedAt.Format "2006-01-02 15:04:05"}} UTC, took {{.Duration}}, pushed: {{.Pushed}}{{if .PushError}} ({{.PushError}}){{end}}</p>
<table><tr><th>BVID</th><th>Title</th><th>Views</th><th>Online</th></tr>
{{range .Videos}}<tr><td>{{.BVID}}</td><td>{{.Title}}</td><td>{{.Views}}</td><td>{{if .Online}}{{.Online}}{{else}}-{{end}}</td></tr>
{{end}}</table>
{{if .Failed}}<p>failed: {{range .Failed}}{{.}} {{end}}</p>{{end}}
</body></html>`))

// Index renders the latest report as a small HTML page.
func (h *Handler) Index(c *gin.Context) {
	evt, err := h.reports.Latest()
	if err != nil {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte("<!doctype html><p>no cycle has finished yet</p>"))
		return
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := indexTmpl.Execute(c.Writer, evt); err != nil {
		_ = c.Error(err)
	}
}

func parseLimit(c *gin.Context) (int, bool) {
	raw := strings.TrimSpace(c.Query("limit"))
	if raw == "" {
		return defaultHistoryLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return 0, false
	}
	return min(n, maxHistoryLimit), true
}

func httpError(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
