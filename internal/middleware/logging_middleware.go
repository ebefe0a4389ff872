package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/ShaharFullStack/tdscorchedearth/internal/logging"
)

// TraceIDKey ключ trace-ID в gin.Context
const TraceIDKey = "trace_id"

// RequestLogger снабжает каждый HTTP-запрос trace-ID и пишет краткие логи.
type RequestLogger struct {
	log   *logging.Logger
	quiet map[string]bool
}

// NewRequestLogger создаёт middleware. Пути из quiet логируются на уровне TRACE.
func NewRequestLogger(log *logging.Logger, quiet ...string) *RequestLogger {
	if log == nil {
		log = logging.Default()
	}
	rl := &RequestLogger{log: log, quiet: make(map[string]bool, len(quiet))}
	for _, p := range quiet {
		rl.quiet[p] = true
	}
	return rl
}

func (rl *RequestLogger) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		// trace-id из OpenTelemetry, если спан уже создан
		span := trace.SpanFromContext(c.Request.Context())
		var traceID string
		if span.SpanContext().IsValid() {
			traceID = span.SpanContext().TraceID().String()
		} else {
			traceID = uuid.NewString()
		}
		c.Set(TraceIDKey, traceID)
		c.Header("X-Trace-ID", traceID)

		start := time.Now()
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		logf := rl.log.Debug
		if rl.quiet[path] {
			logf = rl.log.Trace
		}
		logf("[HTTP] ▶ %s %s ip=%s trace=%s", method, path, c.ClientIP(), traceID)

		c.Next()

		status := c.Writer.Status()
		latency := time.Since(start)
		switch {
		case status >= 500:
			rl.log.Error("[HTTP] ◀ %s %s %d %s trace=%s", method, path, status, latency, traceID)
		case rl.quiet[path]:
			rl.log.Trace("[HTTP] ◀ %s %s %d %s trace=%s", method, path, status, latency, traceID)
		default:
			rl.log.Info("[HTTP] ◀ %s %s %d %s trace=%s", method, path, status, latency, traceID)
		}
	}
}
