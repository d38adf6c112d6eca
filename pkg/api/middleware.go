package api

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/telekom/form-relay/pkg/system"
)

const (
	// CorrelationIDHeader lets a caller supply its own correlation ID.
	CorrelationIDHeader = "X-Correlation-ID"
	// RequestIDHeader echoes the correlation ID back on every response.
	RequestIDHeader = "X-Request-ID"
)

// CorrelationIDMiddleware assigns every request a correlation ID and a request-scoped
// logger carrying it. A caller-supplied ID is only honoured when it is a UUID, since
// it ends up in the Message-ID of the relayed mail.
func CorrelationIDMiddleware(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := c.GetHeader(CorrelationIDHeader)
		if parsed, err := uuid.Parse(cid); err == nil {
			cid = parsed.String()
		} else {
			cid = uuid.New().String()
		}

		c.Set(system.CorrelationIDKey, cid)
		c.Set(system.ReqLoggerKey, log.With("cid", cid, "path", c.FullPath()))
		c.Writer.Header().Set(RequestIDHeader, cid)
		c.Next()
	}
}
