package router

import (
	"github.com/labstack/echo/v4"

	"vaultdrive/internal/adapter/api/handler"
	"vaultdrive/internal/adapter/api/middleware"
)

func SetupQuotaRouter(e *echo.Echo, quotaHandler *handler.QuotaHandler, authMiddleware *middleware.AuthMiddleware) {
	quota := e.Group("/v1/quota")
	quota.Use(authMiddleware.Authenticate)

	quota.GET("", quotaHandler.Get)
	quota.GET("/watch", quotaHandler.Watch)
}
