package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/driftchat/driftchat-server/internal/auth"
	"github.com/driftchat/driftchat-server/internal/config"
	"github.com/driftchat/driftchat-server/internal/core"
	"github.com/driftchat/driftchat-server/internal/service/friends"
	"github.com/driftchat/driftchat-server/internal/store"
)

// NewServer builds the HTTP server: REST API, health check and the
// WebSocket endpoint.
func NewServer(hub *core.Hub, authService *auth.Service, st store.Store, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})

	api := NewAPIHandlers(authService, logger)
	router.POST("/api/register", api.Register)
	router.POST("/api/login", api.Login)

	friendsSvc := friends.New(st)
	friendsHandlers := NewFriendsHandlers(friendsSvc, st, logger)
	userHandlers := NewUserHandlers(st, logger)
	messageHandlers := NewMessageHandlers(st, logger)

	authed := router.Group("/api", AuthMiddleware(authService, logger))
	authed.GET("/users", userHandlers.Search)
	authed.GET("/friends", friendsHandlers.ListFriends)
	authed.POST("/friends/requests", friendsHandlers.SendRequest)
	authed.GET("/friends/requests", friendsHandlers.ListPendingRequests)
	authed.POST("/friends/requests/accept", friendsHandlers.AcceptRequest)
	authed.POST("/friends/requests/reject", friendsHandlers.RejectRequest)
	authed.GET("/messages", messageHandlers.Conversation)

	wsHandler := NewWSHandler(hub, authService, cfg.WSMessageLimit, logger)
	router.GET("/ws", gin.WrapH(wsHandler))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
