package handler

import (
	"github.com/labstack/echo/v4"

	"vaultdrive/internal/domain/entity"
	"vaultdrive/internal/usecase"
	"vaultdrive/pkg/errors"
	"vaultdrive/pkg/response"
)

type ShareHandler struct {
	shareUseCase *usecase.ShareUseCase
}

func NewShareHandler(shareUseCase *usecase.ShareUseCase) *ShareHandler {
	return &ShareHandler{
		shareUseCase: shareUseCase,
	}
}

type shareFileRequest struct {
	Permission string `json:"permission" validate:"required,oneof=read write"`
}

func (h *ShareHandler) Share(c echo.Context) error {
	var req shareFileRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	grant, err := h.shareUseCase.ShareFile(
		c.Request().Context(),
		getUserIDFromContext(c),
		getUserEmailFromContext(c),
		c.Param("id"),
		usecase.ShareFileInput{
			Email:      c.Param("email"),
			Permission: entity.SharePermission(req.Permission),
		},
	)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, grant)
}

func (h *ShareHandler) Revoke(c echo.Context) error {
	err := h.shareUseCase.RevokeShare(c.Request().Context(), getUserIDFromContext(c), c.Param("id"), c.Param("email"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{
		"message": "Share revoked",
	})
}

func (h *ShareHandler) List(c echo.Context) error {
	grants, err := h.shareUseCase.ListShares(c.Request().Context(), getUserIDFromContext(c), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, grants)
}

func (h *ShareHandler) SharedWithMe(c echo.Context) error {
	rows, err := h.shareUseCase.SharedWithMe(c.Request().Context(), getUserEmailFromContext(c))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, rows)
}
