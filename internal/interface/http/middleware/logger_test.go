package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xiebiao/library/internal/interface/http/middleware"
	"github.com/xiebiao/library/pkg/tracing"
)

func TestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracing.Install(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	core, logs := observer.New(zapcore.InfoLevel)
	r := gin.New()
	r.Use(middleware.Tracing("library-test"), middleware.Logger(zap.New(core)))
	r.GET("/books", func(c *gin.Context) { c.Status(http.StatusOK) })

	t.Run("日志带上请求ID与Trace上下文", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/books", nil)
		req.Header.Set(middleware.RequestIDHeader, "req-1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, "req-1", w.Header().Get(middleware.RequestIDHeader))

		entries := logs.FilterMessage("request").All()
		require.Len(t, entries, 1)
		fields := entries[0].ContextMap()
		assert.Equal(t, "req-1", fields["request_id"])

		spans := recorder.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, spans[0].SpanContext().TraceID().String(), fields["trace_id"])
		assert.Equal(t, spans[0].SpanContext().SpanID().String(), fields["span_id"])
	})
}
