package handler

import (
	"net/http"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"vaultdrive/internal/usecase"
	"vaultdrive/pkg/errors"
	"vaultdrive/pkg/logger"
	"vaultdrive/pkg/response"
)

type QuotaHandler struct {
	quotaUseCase *usecase.QuotaUseCase
}

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // You should restrict this in production
	},
}

func NewQuotaHandler(quotaUseCase *usecase.QuotaUseCase) *QuotaHandler {
	return &QuotaHandler{
		quotaUseCase: quotaUseCase,
	}
}

type quotaSnapshot struct {
	LimitBytes     int64 `json:"limitBytes"`
	UsedBytes      int64 `json:"usedBytes"`
	RemainingBytes int64 `json:"remainingBytes"`
}

func (h *QuotaHandler) snapshot(used int64) quotaSnapshot {
	limit := h.quotaUseCase.LimitBytes()
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return quotaSnapshot{
		LimitBytes:     limit,
		UsedBytes:      used,
		RemainingBytes: remaining,
	}
}

func (h *QuotaHandler) Get(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if userID == "" {
		return response.Error(c, errors.NotAuthenticated(nil))
	}

	used, err := h.quotaUseCase.CurrentUsage(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, h.snapshot(used))
}

// Watch upgrades to a WebSocket and pushes a quota snapshot whenever the
// owner's usage changes, starting with the current value.
func (h *QuotaHandler) Watch(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if userID == "" {
		return response.Error(c, errors.NotAuthenticated(nil))
	}

	sub, err := h.quotaUseCase.SubscribeUsage(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		sub.Unsubscribe()
		return errors.Internal("Failed to upgrade connection", err)
	}

	// Reader goroutine: we never expect client messages, but reading is how
	// a close frame is noticed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				sub.Unsubscribe()
				return
			}
		}
	}()

	defer func() {
		sub.Unsubscribe()
		conn.Close()
	}()

	for used := range sub.Updates() {
		if err := conn.WriteJSON(h.snapshot(used)); err != nil {
			logger.Debug("Quota watch write failed for %s: %v", userID, err)
			return nil
		}
	}
	return nil
}
