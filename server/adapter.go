package server

import (
	"bytes"
	"io"
	"net/http"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// FiberResponseWriter adapts Fiber's context to the http.ResponseWriter interface
type FiberResponseWriter struct {
	ctx         *fiber.Ctx
	status      int
	header      http.Header
	wroteHeader bool
}

// NewFiberResponseWriter creates a new FiberResponseWriter adapter
func NewFiberResponseWriter(ctx *fiber.Ctx) *FiberResponseWriter {
	return &FiberResponseWriter{
		ctx:    ctx,
		status: http.StatusOK,
		header: make(http.Header),
	}
}

// Header returns the header map that will be sent by WriteHeader
func (w *FiberResponseWriter) Header() http.Header {
	return w.header
}

// Write writes the data to the connection as part of an HTTP reply
func (w *FiberResponseWriter) Write(data []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(w.status)
	}
	return w.ctx.Write(data)
}

// WriteHeader copies headers to the Fiber response and sets the status code.
// Only the first call has an effect.
func (w *FiberResponseWriter) WriteHeader(statusCode int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.status = statusCode
	for key, values := range w.header {
		for _, value := range values {
			w.ctx.Set(key, value)
		}
	}
	w.ctx.Status(statusCode)
}

// HTTPHandler serves a net/http handler from a Fiber route
func HTTPHandler(handler http.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req := &http.Request{
			Method:     c.Method(),
			URL:        &url.URL{Path: c.Path(), RawQuery: string(c.Request().URI().QueryString())},
			Proto:      "HTTP/1.1",
			ProtoMajor: 1,
			ProtoMinor: 1,
			Header:     make(http.Header),
			Body:       io.NopCloser(bytes.NewReader(c.Body())),
			Host:       string(c.Request().Host()),
			RequestURI: c.OriginalURL(),
			RemoteAddr: c.Context().RemoteAddr().String(),
		}
		req = req.WithContext(c.UserContext())

		c.Request().Header.VisitAll(func(key, value []byte) {
			req.Header.Add(string(key), string(value))
		})

		handler.ServeHTTP(NewFiberResponseWriter(c), req)
		return nil
	}
}

// PrometheusHandler exposes the default registry. Compression is left to the
// compress middleware.
func PrometheusHandler() fiber.Handler {
	return HTTPHandler(promhttp.InstrumentMetricHandler(
		prometheus.DefaultRegisterer,
		promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{DisableCompression: true}),
	))
}
