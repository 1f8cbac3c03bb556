package handler

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"relaychat/internal/app/chat"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/limiter"
	"relaychat/internal/pkg/logx"
	"relaychat/internal/pkg/req"
	"relaychat/internal/pkg/resp"
)

// HandleWebSocket authenticates the caller, upgrades the connection and runs its
// pumps. Authentication happens before the upgrade, so a bad credential gets a plain
// HTTP 401 and never touches presence.
func HandleWebSocket(deps *AppDeps, upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := limiter.ClientIP(r)

		if !rateLimiter.Allow(ip) {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", logx.AnonymizeIP(ip))
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		credential := strings.TrimSpace(r.URL.Query().Get("token"))
		if credential == "" {
			credential = req.BearerToken(r)
		}

		session := deps.Hub.NewSession()

		u, err := session.Authenticate(r.Context(), credential)
		if err != nil {
			logx.Info("WebSocket connection rejected: authentication failed.", "error", err.Error())
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket", "user_id", u.ID)
			session.Close()
			return
		}

		client := chat.NewClient(conn, session, deps.Config.SendQueueSize)

		if err := session.Activate(client); err != nil {
			logx.Error(err, "Failed to activate session", "user_id", u.ID)
			_ = conn.Close()
			return
		}

		go client.WritePump()

		logx.Info("WebSocket connection established", "user_id", u.ID, "conn_id", client.ID())

		client.ReadPump()
	}
}
