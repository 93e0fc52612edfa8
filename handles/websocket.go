package handles

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWebSocket serves one connection. The connection owns its session
// for its whole life, starting from whatever identity the handshake
// carried, and frames are handled one at a time in arrival order. The
// handshake token is revoked as soon as the session stops being its user.
func (h *Handler) HandleWebSocket(ctx echo.Context) error {
	b := h.sessions.bind(ctx)

	ws, err := upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade")
		return nil
	}
	defer ws.Close()
	ws.SetReadLimit(maxEnvelope)

	entry := h.log.WithField("remote", ws.RemoteAddr().String())
	entry.Debug("websocket connected")
	reqCtx := ctx.Request().Context()

	for {
		_, envelope, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				entry.WithError(err).Info("websocket read")
			}
			break
		}

		resp := h.dispatcher.Dispatch(reqCtx, b.session, envelope)
		if b.claims != nil && b.session.User() != b.claims.UserID {
			if err := h.sessions.revoke(reqCtx, b.claims); err != nil {
				entry.WithError(err).Warn("revoke token")
			}
			b.claims = nil
		}
		if err := ws.WriteMessage(websocket.TextMessage, resp.Body); err != nil {
			entry.WithError(err).Info("websocket write")
			break
		}
	}
	entry.WithField("user", b.session.User()).Debug("websocket closed")
	return nil
}
