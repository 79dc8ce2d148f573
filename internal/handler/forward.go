package handler

import (
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/labstack/echo/v4"

	"service-a/internal/service"
)

// ForwardHandler serves /call-b.
type ForwardHandler struct {
	forwarder *service.Forwarder
	logger    *slog.Logger
}

// NewForwardHandler creates a ForwardHandler.
func NewForwardHandler(f *service.Forwarder, logger *slog.Logger) *ForwardHandler {
	return &ForwardHandler{
		forwarder: f,
		logger:    logger.With("component", "forward_handler"),
	}
}

// CallB relays service-b's /ping response as {"from-b": <body>}.
func (h *ForwardHandler) CallB(c echo.Context) error {
	resp, err := h.forwarder.Forward(c.Request().Context())
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// mapError turns a forward failure into a status code and a JSON error body.
// None of the bodies carry downstream content.
func (h *ForwardHandler) mapError(c echo.Context, err error) error {
	var fe *service.ForwardError
	if !errors.As(err, &fe) {
		h.logger.Error("forward failed", "err", err)
		return c.JSON(http.StatusInternalServerError, errorBody("internal error"))
	}

	h.logger.Error("forward failed",
		"kind", fe.Kind.String(),
		"err", fe.Err,
		"downstream_url", h.forwarder.URL(),
	)

	switch fe.Kind {
	case service.KindConfig:
		return c.JSON(http.StatusInternalServerError, errorBody("downstream url is not configured correctly"))
	case service.KindTimeout:
		return c.JSON(http.StatusGatewayTimeout, errorBody("downstream request timed out"))
	case service.KindCanceled:
		return c.JSON(http.StatusBadGateway, errorBody("client disconnected"))
	case service.KindProtocol:
		return c.JSON(http.StatusBadGateway, errorBody("downstream returned an invalid response"))
	case service.KindTransport:
		var dnsErr *net.DNSError
		if errors.As(fe.Err, &dnsErr) {
			return c.JSON(http.StatusBadGateway, errorBody("downstream host unreachable"))
		}
		return c.JSON(http.StatusBadGateway, errorBody("downstream connection failed"))
	default:
		return c.JSON(http.StatusInternalServerError, errorBody("internal error"))
	}
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}
