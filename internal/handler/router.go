/*
Package handler provides the HTTP handlers and routing setup for the chat server.

This file defines the main Router, applying logging, CORS, metrics and IP-based rate
limiting before delegating to the API and WebSocket handlers.
*/
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"relaychat/internal/pkg/auth/jwt"
	"relaychat/internal/pkg/limiter"
	"relaychat/internal/pkg/logx"
	"relaychat/internal/pkg/metrics"
	"relaychat/internal/pkg/resp"
)

const (
	AuthRate  = 0.2
	AuthBurst = 5
	WsRate    = 1
	WsBurst   = 10
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
func Router(deps *AppDeps) http.Handler {
	authLimiter := limiter.NewIPRateLimiter(rate.Limit(AuthRate), AuthBurst)
	wsLimiter := limiter.NewIPRateLimiter(rate.Limit(WsRate), WsBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	var wsUpgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(metrics.Middleware)
	r.Use(middleware.Recoverer)

	r.Get("/health", HandleHealth(deps))
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Use(jwt.IdentityExtractorMiddleware(deps.Config.JWTSecret))

		api.Route("/auth", func(auth chi.Router) {
			auth.With(authLimiter.Middleware).Post("/register", HandleRegister(deps))
			auth.With(authLimiter.Middleware).Post("/login", HandleLogin(deps))
			auth.With(jwt.RequireIdentity).Post("/logout-all", HandleLogoutAll(deps))
		})

		api.Route("/friends", func(friends chi.Router) {
			friends.Use(jwt.RequireIdentity)

			friends.Get("/", HandleListFriends(deps))
			friends.Get("/search", HandleSearchUsers(deps))
			friends.Post("/", HandleAddFriend(deps))
			friends.Delete("/{friendId}", HandleRemoveFriend(deps))
			friends.Put("/{friendId}/group", HandleMoveFriend(deps))
		})

		api.Route("/message", func(msg chi.Router) {
			msg.Use(jwt.RequireIdentity)

			msg.Get("/download", HandleDownloadHistory(deps))
		})

		api.Route("/file", func(file chi.Router) {
			file.Use(jwt.RequireIdentity)

			file.Post("/presign-upload", HandlePresignUploadURL(deps))
			file.Get("/presign-download", HandlePresignDownloadURL(deps))
		})
	})

	r.Get("/ws", HandleWebSocket(deps, wsUpgrader, wsLimiter))

	return r
}

// HandleHealth reports liveness and the current connection counts.
func HandleHealth(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		registry := deps.Hub.Registry()

		data := map[string]any{
			"status":      "ok",
			"service":     "relaychat",
			"onlineUsers": registry.OnlineCount(),
			"connections": registry.ConnectionCount(),
		}

		if deps.Presence != nil {
			ctx, cancel := context.WithTimeout(r.Context(), time.Second)
			defer cancel()

			if n, err := deps.Presence.OnlineCount(ctx); err != nil {
				logx.Warn("Health check could not read the presence mirror", "error", err.Error())
				data["presenceMirror"] = "unavailable"
			} else {
				data["presenceMirror"] = n
			}
		}

		resp.RespondSuccess(w, r, data)
	}
}
