package xhttp

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/xpensemate/pkg/logger"
	"github.com/valyala/fasthttp"
)

const (
	HeaderRequestID = "X-Request-Id"

	requestIDKey  = "request_id"
	slowThreshold = 500 * time.Millisecond
)

// probes and scrapes are not request-logged
var quietPrefixes = []string{"/health", "/metrics"}

type MiddlewareFunc func(next RequestHandler) RequestHandler
type RequestCtx = fasthttp.RequestCtx
type RequestHandler = fasthttp.RequestHandler

func TimeoutMiddleware(timeout time.Duration) MiddlewareFunc {
	return func(next RequestHandler) RequestHandler {
		return fasthttp.TimeoutWithCodeHandler(next, timeout, StatusText(StatusRequestTimeout), StatusRequestTimeout)
	}
}

func RecoverMiddleware(next RequestHandler) RequestHandler {
	return func(ctx *RequestCtx) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("[xhttp] panic recovered", "error", r, "path", string(ctx.Path()), requestIDKey, RequestID(ctx))
				ctx.ResetBody()
				ctx.Error(StatusText(StatusInternalServerError), StatusInternalServerError)
			}
		}()
		next(ctx)
	}
}

// RequestIDMiddleware keeps the caller's X-Request-Id or assigns a new one,
// and echoes it on the response.
func RequestIDMiddleware(next RequestHandler) RequestHandler {
	return func(ctx *RequestCtx) {
		id := string(ctx.Request.Header.Peek(HeaderRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		ctx.SetUserValue(requestIDKey, id)
		ctx.Response.Header.Set(HeaderRequestID, id)
		next(ctx)
	}
}

// RequestID returns the id assigned by RequestIDMiddleware, if any.
func RequestID(ctx *RequestCtx) string {
	if id, ok := ctx.UserValue(requestIDKey).(string); ok {
		return id
	}
	return string(ctx.Request.Header.Peek(HeaderRequestID))
}

func RequestLoggerMiddleware(next RequestHandler) RequestHandler {
	return func(ctx *RequestCtx) {
		path := string(ctx.Path())
		if quiet(path) {
			next(ctx)
			return
		}

		start := time.Now()
		next(ctx)
		elapsed := time.Since(start)

		status := ctx.Response.StatusCode()
		log := logger.With(requestIDKey, RequestID(ctx))
		fields := []any{
			"status", status,
			"method", string(ctx.Method()),
			"path", path,
			"latency", elapsed.String(),
			"bytes_in", len(ctx.PostBody()),
			"bytes_out", len(ctx.Response.Body()),
			"ip", ctx.RemoteIP().String(),
		}

		switch {
		case status >= 500:
			log.Error("http_request", fields...)
		case status >= 400, elapsed > slowThreshold:
			log.Warn("http_request", fields...)
		default:
			log.Debug("http_request", fields...)
		}
	}
}

func quiet(path string) bool {
	for _, p := range quietPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
