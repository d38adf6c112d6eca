// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package system

import (
	stdlog "log"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ReqLoggerKey is the context key used to store request-scoped logger in gin context.
const ReqLoggerKey = "reqLogger"

// CorrelationIDKey is the gin context key holding the per-request correlation ID.
const CorrelationIDKey = "cid"

// NewLogger builds the process logger. Debug selects the development encoder.
func NewLogger(debug bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	// Disable automatic stacktraces for non-fatal levels to avoid noisy traces in WARN/INFO logs
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.UTC().Format(time.RFC3339))
	}
	cfg.EncoderConfig.TimeKey = "ts"
	logger, err := cfg.Build()
	if err != nil {
		stdlog.Fatalf("failed to set up logger: %v", err)
	}
	return logger
}

// GetReqLogger returns the request-scoped sugared logger from gin.Context if present,
// otherwise returns the fallback.
func GetReqLogger(c *gin.Context, fallback *zap.SugaredLogger) *zap.SugaredLogger {
	if c == nil {
		return fallback
	}
	if v, ok := c.Get(ReqLoggerKey); ok {
		if l, ok2 := v.(*zap.SugaredLogger); ok2 {
			return l
		}
	}
	return fallback
}

// GetCorrelationID returns the correlation ID stored by the request middleware, or "".
func GetCorrelationID(c *gin.Context) string {
	if c == nil {
		return ""
	}
	if v, ok := c.Get(CorrelationIDKey); ok {
		if cid, ok2 := v.(string); ok2 {
			return cid
		}
	}
	return ""
}

// EnrichReqLoggerWithSubmission annotates the request-scoped logger with the shape
// of a parsed submission. Field values never reach the log; names only at debug level.
func EnrichReqLoggerWithSubmission(reqLogger *zap.SugaredLogger, fieldNames []string, fileName string) *zap.SugaredLogger {
	if reqLogger == nil {
		return nil
	}
	reqLogger = reqLogger.With("fieldCount", len(fieldNames), "hasFile", fileName != "")
	reqLogger.Debugw("Submission fields", "fields", fieldNames, "fileName", fileName)
	return reqLogger
}
