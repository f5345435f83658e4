package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Aashish23092/isic-card-ocr/dto"
	"github.com/Aashish23092/isic-card-ocr/logger"
	"github.com/Aashish23092/isic-card-ocr/service"
	"github.com/gin-gonic/gin"
)

type ISICHandler struct {
	extractionService *service.ExtractionService
	sessions          *service.SessionStore
	maxFileSize       int64
}

func NewISICHandler(extractionService *service.ExtractionService, sessions *service.SessionStore, maxFileSize int64) *ISICHandler {
	if maxFileSize <= 0 {
		maxFileSize = service.DefaultMaxFileSize
	}
	return &ISICHandler{
		extractionService: extractionService,
		sessions:          sessions,
		maxFileSize:       maxFileSize,
	}
}

// RegisterRoutes mounts the ISIC endpoints on rg
func (h *ISICHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/extract", h.Extract)

	sessions := rg.Group("/sessions")
	{
		sessions.POST("", h.CreateSession)
		sessions.GET("/:id", h.GetSession)
		sessions.DELETE("/:id", h.CloseSession)
		sessions.POST("/:id/image", h.UploadImage)
		sessions.DELETE("/:id/image", h.ClearImage)
		sessions.POST("/:id/process", h.Process)
		sessions.POST("/:id/validate", h.Validate)
		sessions.PUT("/:id/consent", h.SetConsent)
		sessions.POST("/:id/submit", h.Submit)
		sessions.POST("/:id/back", h.Back)
	}
}

// Extract handles POST /isic/extract
func (h *ISICHandler) Extract(c *gin.Context) {
	logger.Info("Received ISIC extraction request")

	data, ok := h.readImage(c)
	if !ok {
		return
	}

	response, err := h.extractionService.Extract(c.Request.Context(), data.Data, nil)
	if err != nil {
		h.sendServiceError(c, "Failed to extract card data", err)
		return
	}

	logger.Info("ISIC extraction completed successfully")
	c.JSON(http.StatusOK, response)
}

// CreateSession handles POST /isic/sessions
func (h *ISICHandler) CreateSession(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendError(c, http.StatusBadRequest, "BAD_REQUEST", "virtualCardId is required", err)
		return
	}

	session := h.sessions.Create(req.VirtualCardID, bearerToken(c))
	c.JSON(http.StatusCreated, session.State())
}

// GetSession handles GET /isic/sessions/:id
func (h *ISICHandler) GetSession(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, session.State())
}

// CloseSession handles DELETE /isic/sessions/:id
func (h *ISICHandler) CloseSession(c *gin.Context) {
	if err := h.sessions.Close(c.Param("id")); err != nil {
		h.sendServiceError(c, "Failed to close session", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UploadImage handles POST /isic/sessions/:id/image. The image is processed
// right away unless the "process" form field is false.
func (h *ISICHandler) UploadImage(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	process, err := strconv.ParseBool(c.DefaultPostForm("process", "true"))
	if err != nil {
		h.sendError(c, http.StatusBadRequest, "BAD_REQUEST", "process must be a boolean", err)
		return
	}

	file, ok := h.readImage(c)
	if !ok {
		return
	}

	if process {
		err = session.Drop(c.Request.Context(), file)
	} else {
		err = session.SelectFile(file)
	}
	if err != nil {
		h.sendServiceError(c, "Failed to accept card image", err)
		return
	}

	c.JSON(http.StatusOK, session.State())
}

// ClearImage handles DELETE /isic/sessions/:id/image
func (h *ISICHandler) ClearImage(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	if err := session.ClearFile(); err != nil {
		h.sendServiceError(c, "Failed to clear card image", err)
		return
	}
	c.JSON(http.StatusOK, session.State())
}

// Process handles POST /isic/sessions/:id/process
func (h *ISICHandler) Process(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	if err := session.Process(c.Request.Context()); err != nil {
		h.sendServiceError(c, "Failed to process card image", err)
		return
	}
	c.JSON(http.StatusOK, session.State())
}

// Validate handles POST /isic/sessions/:id/validate
func (h *ISICHandler) Validate(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var fields dto.ISICCardData
	if err := c.ShouldBindJSON(&fields); err != nil {
		h.sendError(c, http.StatusBadRequest, "BAD_REQUEST", "Invalid card fields", err)
		return
	}

	result, err := session.Validate(fields)
	if err != nil {
		h.sendServiceError(c, "Failed to validate card fields", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// SetConsent handles PUT /isic/sessions/:id/consent
func (h *ISICHandler) SetConsent(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req dto.ConsentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendError(c, http.StatusBadRequest, "BAD_REQUEST", "saveToServer is required", err)
		return
	}

	if err := session.SetSaveToServer(*req.SaveToServer); err != nil {
		h.sendServiceError(c, "Failed to update consent", err)
		return
	}
	c.JSON(http.StatusOK, session.State())
}

// Submit handles POST /isic/sessions/:id/submit
func (h *ISICHandler) Submit(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var fields dto.ISICCardData
	if err := c.ShouldBindJSON(&fields); err != nil {
		h.sendError(c, http.StatusBadRequest, "BAD_REQUEST", "Invalid card fields", err)
		return
	}

	if err := session.Submit(c.Request.Context(), fields); err != nil {
		h.sendServiceError(c, "Failed to submit card data", err)
		return
	}
	c.JSON(http.StatusOK, session.State())
}

// Back handles POST /isic/sessions/:id/back
func (h *ISICHandler) Back(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	if err := session.Back(); err != nil {
		h.sendServiceError(c, "Failed to return to upload", err)
		return
	}
	c.JSON(http.StatusOK, session.State())
}

func (h *ISICHandler) session(c *gin.Context) (*service.UploadSession, bool) {
	session, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		h.sendServiceError(c, "Session not found", err)
		return nil, false
	}
	return session, true
}

// readImage reads the multipart "file" field, refusing oversized uploads
// before buffering them
func (h *ISICHandler) readImage(c *gin.Context) (dto.UploadedFile, bool) {
	header, err := c.FormFile("file")
	if err != nil {
		h.sendError(c, http.StatusBadRequest, "BAD_REQUEST", "file missing", err)
		return dto.UploadedFile{}, false
	}
	if header.Size > h.maxFileSize {
		h.sendError(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", dto.ErrFileTooLarge.Error(), nil)
		return dto.UploadedFile{}, false
	}

	file, err := header.Open()
	if err != nil {
		h.sendError(c, http.StatusBadRequest, "BAD_REQUEST", "Failed to open uploaded file", err)
		return dto.UploadedFile{}, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxFileSize+1))
	if err != nil {
		h.sendError(c, http.StatusBadRequest, "BAD_REQUEST", "Failed to read uploaded file", err)
		return dto.UploadedFile{}, false
	}

	return dto.UploadedFile{
		Name:     header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Data:     data,
	}, true
}

func bearerToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// errorCode maps service errors to an HTTP status and error code
func errorCode(err error) (int, string) {
	var verrs dto.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return http.StatusUnprocessableEntity, "VALIDATION_FAILED"
	case errors.Is(err, dto.ErrSessionNotFound):
		return http.StatusNotFound, "SESSION_NOT_FOUND"
	case errors.Is(err, dto.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE"
	case errors.Is(err, dto.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType, "UNSUPPORTED_FILE_TYPE"
	case errors.Is(err, dto.ErrInvalidTransition):
		return http.StatusConflict, "INVALID_TRANSITION"
	case errors.Is(err, dto.ErrImageDecode):
		return http.StatusUnprocessableEntity, "IMAGE_DECODE_FAILED"
	case errors.Is(err, dto.ErrRecognitionTimeout):
		return http.StatusUnprocessableEntity, "RECOGNITION_TIMEOUT"
	case errors.Is(err, dto.ErrRecognition):
		return http.StatusUnprocessableEntity, "RECOGNITION_FAILED"
	case errors.Is(err, dto.ErrUpload):
		return http.StatusBadGateway, "UPLOAD_FAILED"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

func (h *ISICHandler) sendServiceError(c *gin.Context, message string, err error) {
	status, code := errorCode(err)
	h.sendError(c, status, code, message, err)
}

// sendError sends a structured error response
func (h *ISICHandler) sendError(c *gin.Context, statusCode int, code, message string, err error) {
	response := dto.ErrorResponse{
		Error:   code,
		Message: message,
		Code:    statusCode,
	}

	if err != nil {
		logger.Errorf("Error: %s - %v", message, err)

		var verrs dto.ValidationErrors
		if errors.As(err, &verrs) {
			response.Errors = verrs
		} else {
			response.Message = fmt.Sprintf("%s: %v", message, err)
		}
	}

	c.JSON(statusCode, response)
}
