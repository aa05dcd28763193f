package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"cors-relay-go/internal/headers"
	"cors-relay-go/internal/metrics"
	"cors-relay-go/internal/model"
	"cors-relay-go/internal/service"
)

// Short messages sent to clients. The underlying error only goes to the log.
const (
	msgMalformed       = "invalid request URL"
	msgBodyDecode      = "invalid request body"
	msgUpstreamTimeout = "upstream request timed out"
	msgUpstreamFailed  = "upstream request failed"
	msgInternal        = "Internal proxy error"
)

// ProxyHandler relays every non-reserved request to the target encoded in
// its path and streams the response back with CORS headers attached.
type ProxyHandler struct {
	service *service.ProxyService
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewProxyHandler creates a ProxyHandler. m may be nil.
func NewProxyHandler(svc *service.ProxyService, logger *slog.Logger, m *metrics.Metrics) *ProxyHandler {
	return &ProxyHandler{
		service: svc,
		logger:  logger.With("component", "proxy_handler"),
		metrics: m,
	}
}

// Handle answers preflights directly and relays everything else.
func (h *ProxyHandler) Handle(c echo.Context) error {
	req := c.Request()

	if req.Method == http.MethodOptions {
		headers.Preflight().Apply(c.Response().Header())
		h.metrics.Outcome(metrics.OutcomePreflight)
		return c.NoContent(http.StatusOK)
	}

	cors := headers.CORS(req.Header.Get("Access-Control-Allow-Headers"))
	cors.Apply(c.Response().Header())

	resp, err := h.service.Forward(req.Context(), &model.InboundRequest{
		Method: req.Method,
		RawURL: inboundURL(c),
		Header: req.Header,
		Body:   req.Body,
	})
	if err != nil {
		return h.mapError(c, err)
	}
	defer func() { _ = resp.Body.Close() }()

	out := c.Response().Header()
	if resp.ContentType != "" {
		out.Set(echo.HeaderContentType, resp.ContentType)
	} else {
		// A nil entry stops net/http from sniffing one from the first chunk.
		out[echo.HeaderContentType] = nil
	}
	resp.Passthrough.Apply(out)

	h.metrics.Outcome(metrics.OutcomeForwarded)
	c.Response().WriteHeader(resp.StatusCode)

	// The status is already sent, so a failed copy leaves the client with a
	// truncated body. Log it and move on.
	if _, err := io.Copy(newFlushWriter(c.Response()), resp.Body); err != nil {
		h.logger.Error("streaming response body", "err", err)
	}
	return nil
}

func (h *ProxyHandler) mapError(c echo.Context, err error) error {
	var redirect *service.WellKnownRedirect
	if errors.As(err, &redirect) {
		h.metrics.Outcome(metrics.OutcomeRedirect)
		return c.Redirect(http.StatusTemporaryRedirect, redirect.Location)
	}

	var rejected *service.DomainRejectedError
	if errors.As(err, &rejected) {
		h.metrics.Outcome(metrics.OutcomeRejected)
		return c.JSON(http.StatusForbidden, model.ErrorBody{
			Code: http.StatusForbidden,
			Msg:  rejected.Error(),
		})
	}

	h.metrics.Outcome(metrics.OutcomeError)
	h.logger.Error("proxy error", "err", err, "method", c.Request().Method)

	return c.JSON(http.StatusInternalServerError, model.ErrorBody{
		Code: -1,
		Msg:  shortMessage(err),
	})
}

// shortMessage maps an internal error to the message a client may see.
func shortMessage(err error) string {
	var malformed *service.MalformedInputError
	if errors.As(err, &malformed) {
		return msgMalformed
	}

	var decodeErr *service.BodyDecodeError
	if errors.As(err, &decodeErr) {
		return msgBodyDecode
	}

	var fetchErr *service.UpstreamFetchError
	if errors.As(err, &fetchErr) {
		if errors.Is(err, context.DeadlineExceeded) {
			return msgUpstreamTimeout
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return msgUpstreamTimeout
		}
		return msgUpstreamFailed
	}

	return msgInternal
}

// inboundURL rebuilds the full inbound URL. An origin-form request URI is
// taken raw so the composite path keeps its percent-encoding; an absolute-form
// one is reduced to its escaped path and query.
func inboundURL(c echo.Context) string {
	req := c.Request()
	uri := req.RequestURI
	if !strings.HasPrefix(uri, "/") {
		uri = req.URL.RequestURI()
	}
	return c.Scheme() + "://" + req.Host + uri
}

// flushWriter flushes after every write so chunks reach the client as they
// arrive from upstream.
type flushWriter struct {
	w io.Writer
	f http.Flusher
}

func newFlushWriter(res *echo.Response) io.Writer {
	f, ok := res.Writer.(http.Flusher)
	if !ok {
		return res
	}
	return &flushWriter{w: res, f: f}
}

func (fw *flushWriter) Write(p []byte) (int, error) {
	n, err := fw.w.Write(p)
	if n > 0 {
		fw.f.Flush()
	}
	return n, err
}
