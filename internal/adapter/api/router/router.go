package router

import (
	"github.com/labstack/echo/v4"

	"vaultdrive/internal/adapter/api/handler"
	"vaultdrive/internal/adapter/api/middleware"
)

func Setup(
	e *echo.Echo,
	authMiddleware *middleware.AuthMiddleware,
	fileHandler *handler.FileHandler,
	shareHandler *handler.ShareHandler,
	quotaHandler *handler.QuotaHandler,
) {
	SetupFileRouter(e, fileHandler, shareHandler, authMiddleware)
	SetupQuotaRouter(e, quotaHandler, authMiddleware)
	SetupHealthRouter(e)
}
