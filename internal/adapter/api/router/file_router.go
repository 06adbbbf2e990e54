package router

import (
	"github.com/labstack/echo/v4"

	"vaultdrive/internal/adapter/api/handler"
	"vaultdrive/internal/adapter/api/middleware"
)

func SetupFileRouter(e *echo.Echo, fileHandler *handler.FileHandler, shareHandler *handler.ShareHandler, authMiddleware *middleware.AuthMiddleware) {
	// Protected routes - require authentication
	files := e.Group("/v1/files")
	files.Use(authMiddleware.Authenticate)

	files.POST("", fileHandler.Upload)
	files.GET("", fileHandler.List)
	files.GET("/:id", fileHandler.Get)
	files.PATCH("/:id", fileHandler.Update)
	files.DELETE("/:id", fileHandler.Delete)
	files.GET("/:id/url", fileHandler.DownloadURL)

	files.PUT("/:id/shares/:email", shareHandler.Share)
	files.DELETE("/:id/shares/:email", shareHandler.Revoke)
	files.GET("/:id/shares", shareHandler.List)

	shared := e.Group("/v1/shared-with-me")
	shared.Use(authMiddleware.Authenticate)
	shared.GET("", shareHandler.SharedWithMe)
}
