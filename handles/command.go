package handles

import (
	"context"
	"errors"
	"io"
	"net/http"

	"camelot/command"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// maxEnvelope bounds a single websocket frame. HTTP bodies are bounded by
// the router's body limit.
const maxEnvelope = 64 << 10

// Dispatcher runs command envelopes. *command.Dispatcher implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, session *command.Session, envelope []byte) command.Response
}

// Handler serves the command transports.
type Handler struct {
	dispatcher Dispatcher
	sessions   *Sessions
	log        *logrus.Logger
}

func NewHandler(dispatcher Dispatcher, sessions *Sessions, log *logrus.Logger) *Handler {
	return &Handler{dispatcher: dispatcher, sessions: sessions, log: log}
}

var statusByKind = map[command.Kind]int{
	command.KindSchema:         http.StatusBadRequest,
	command.KindLength:         http.StatusBadRequest,
	command.KindEmptyInput:     http.StatusBadRequest,
	command.KindUnknownCommand: http.StatusBadRequest,
	command.KindSession:        http.StatusUnauthorized,
	command.KindAuthN:          http.StatusUnauthorized,
	command.KindAuthz:          http.StatusForbidden,
	command.KindNotFound:       http.StatusNotFound,
	command.KindConflict:       http.StatusConflict,
	command.KindStoreFailure:   http.StatusInternalServerError,
}

// StatusOf maps a command error to the HTTP status sent with it.
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if status, ok := statusByKind[command.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// HandleCommand runs the envelope in the request body for the identity
// carried by the request.
func (h *Handler) HandleCommand(ctx echo.Context) error {
	envelope, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			return httpErr
		}
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
	}

	b := h.sessions.bind(ctx)
	resp := h.dispatcher.Dispatch(ctx.Request().Context(), b.session, envelope)
	if err := h.sessions.commit(ctx, b, resp); err != nil {
		h.log.WithError(err).WithField("command", resp.Command).Error("persist session")
		return echo.NewHTTPError(http.StatusInternalServerError)
	}
	return ctx.Blob(StatusOf(resp.Err), echo.MIMEApplicationJSON, resp.Body)
}

// HandleUp reports liveness.
func HandleUp(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "OK")
}
