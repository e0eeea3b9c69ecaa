package handler

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-portfolio-api/internal/realtime"
	appErrors "github.com/noah-isme/student-portfolio-api/pkg/errors"
	"github.com/noah-isme/student-portfolio-api/pkg/response"
)

type streamGauge interface {
	StreamClientConnected(delta int)
}

// ChangesHandler streams table change notifications as server-sent events.
type ChangesHandler struct {
	subscriber realtime.Subscriber
	gauge      streamGauge
	keepAlive  time.Duration
}

// NewChangesHandler constructs the handler. keepAlive defaults to 25s.
func NewChangesHandler(subscriber realtime.Subscriber, gauge streamGauge, keepAlive time.Duration) *ChangesHandler {
	if keepAlive <= 0 {
		keepAlive = 25 * time.Second
	}
	return &ChangesHandler{subscriber: subscriber, gauge: gauge, keepAlive: keepAlive}
}

// Stream godoc
// @Summary Follow portfolio changes
// @Description Server-sent events; each "change" event names the table that changed
// @Tags Changes
// @Produce text/event-stream
// @Param tables query string false "Comma separated tables (student_submissions, approved_works)"
// @Success 200 {string} string "event stream"
// @Failure 400 {object} response.Envelope
// @Router /changes [get]
func (h *ChangesHandler) Stream(c *gin.Context) {
	tables, err := parseTables(c.Query("tables"))
	if err != nil {
		response.Error(c, err)
		return
	}

	sub := h.subscriber.Subscribe(tables...)
	defer sub.Unsubscribe()
	if h.gauge != nil {
		h.gauge.StreamClientConnected(1)
		defer h.gauge.StreamClientConnected(-1)
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.SSEvent("ready", gin.H{"tables": tables})
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()
	ctx := c.Request.Context()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-sub.C():
			if !ok {
				return false
			}
			c.SSEvent("change", ev)
			return true
		case <-ticker.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true
		}
	})
}

func parseTables(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return append([]string{}, realtime.AllTables...), nil
	}
	var tables []string
	seen := map[string]bool{}
	for _, part := range strings.Split(raw, ",") {
		table := strings.TrimSpace(part)
		if table == "" || seen[table] {
			continue
		}
		if table != realtime.TableSubmissions && table != realtime.TableApprovedWorks {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown table "+table)
		}
		seen[table] = true
		tables = append(tables, table)
	}
	if len(tables) == 0 {
		return append([]string{}, realtime.AllTables...), nil
	}
	return tables, nil
}
