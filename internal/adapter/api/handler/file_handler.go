package handler

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"

	"vaultdrive/internal/usecase"
	"vaultdrive/pkg/errors"
	"vaultdrive/pkg/logger"
	"vaultdrive/pkg/response"
)

type FileHandler struct {
	fileUseCase   *usecase.FileUseCase
	uploadUseCase *usecase.UploadUseCase
	maxFileSize   int64
}

func NewFileHandler(fileUseCase *usecase.FileUseCase, uploadUseCase *usecase.UploadUseCase) *FileHandler {
	return &FileHandler{
		fileUseCase:   fileUseCase,
		uploadUseCase: uploadUseCase,
		maxFileSize:   1024 * 1024 * 1024,
	}
}

func (h *FileHandler) Upload(c echo.Context) error {
	logger.Debug("Starting file upload handler")

	file, err := c.FormFile("file")
	if err != nil {
		logger.Error("Error getting file from form: %v", err)
		return response.Error(c, errors.BadRequest("Missing or invalid file", err))
	}

	logger.Debug("Received file: %s, size: %d bytes, type: %s", file.Filename, file.Size, file.Header.Get("Content-Type"))

	if file.Size > h.maxFileSize {
		logger.Warn("File too large: %d bytes (max: %d)", file.Size, h.maxFileSize)
		return response.Error(c, errors.BadRequest(fmt.Sprintf("File size exceeds maximum allowed (%dMB)", h.maxFileSize/(1024*1024)), nil))
	}

	src, err := file.Open()
	if err != nil {
		logger.Error("Error opening file: %v", err)
		return response.Error(c, errors.Internal("Unable to read file", err))
	}
	defer src.Close()

	record, err := h.uploadUseCase.Upload(c.Request().Context(), usecase.UploadInput{
		OwnerID:     getUserIDFromContext(c),
		Name:        file.Filename,
		Size:        file.Size,
		ContentType: file.Header.Get("Content-Type"),
		Body:        src,
	})
	if err != nil {
		logger.Error("Upload failed for %s: %v", file.Filename, err)
		return response.Error(c, err)
	}

	logger.Debug("File uploaded successfully with ID: %s", record.ID)
	return response.Created(c, record)
}

func (h *FileHandler) List(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if userID == "" {
		return response.Error(c, errors.NotAuthenticated(nil))
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.QueryParam("pageSize"))

	input := usecase.ListFilesInput{
		SortBy:   c.QueryParam("sortBy"),
		SortDir:  c.QueryParam("sortDir"),
		PageSize: pageSize,
		Cursor:   c.QueryParam("cursor"),
	}
	if raw := c.QueryParam("starred"); raw != "" {
		starred, err := strconv.ParseBool(raw)
		if err != nil {
			return response.Error(c, errors.BadRequest("starred must be a boolean", err))
		}
		input.Starred = &starred
	}
	if raw := c.QueryParam("trashed"); raw != "" {
		trashed, err := strconv.ParseBool(raw)
		if err != nil {
			return response.Error(c, errors.BadRequest("trashed must be a boolean", err))
		}
		input.Trashed = &trashed
	}

	result, err := h.fileUseCase.ListFiles(c.Request().Context(), userID, input)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, result.Rows, page, result.PageSize, result.HasMore, result.NextCursor)
}

func (h *FileHandler) Get(c echo.Context) error {
	record, err := h.fileUseCase.GetFile(c.Request().Context(), getUserIDFromContext(c), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, record)
}

type updateFileRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=255"`
	Starred  *bool   `json:"starred"`
	Trashed  *bool   `json:"trashed"`
	Password *string `json:"password"`
}

func (h *FileHandler) Update(c echo.Context) error {
	var req updateFileRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	record, err := h.fileUseCase.UpdateFile(
		c.Request().Context(),
		getUserIDFromContext(c),
		getUserEmailFromContext(c),
		c.Param("id"),
		usecase.UpdateFileInput{
			Name:     req.Name,
			Starred:  req.Starred,
			Trashed:  req.Trashed,
			Password: req.Password,
		},
	)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, record)
}

func (h *FileHandler) Delete(c echo.Context) error {
	err := h.fileUseCase.DeletePermanently(c.Request().Context(), getUserIDFromContext(c), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{
		"message": "File deleted successfully",
	})
}

func (h *FileHandler) DownloadURL(c echo.Context) error {
	url, err := h.fileUseCase.SignedURL(
		c.Request().Context(),
		getUserIDFromContext(c),
		getUserEmailFromContext(c),
		c.Param("id"),
		c.QueryParam("password"),
	)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{
		"url": url,
	})
}
