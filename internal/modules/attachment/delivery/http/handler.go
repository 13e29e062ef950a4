package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"anoa.com/attachments/internal/middleware"
	"anoa.com/attachments/internal/modules/attachment/dto"
	attachment "anoa.com/attachments/internal/modules/attachment/service"
	"anoa.com/attachments/pkg/apperror"
	"anoa.com/attachments/pkg/response"
	"anoa.com/attachments/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"
)

type AttachmentHandler struct {
	service attachment.AttachmentService
	logger  *zap.Logger
}

func NewAttachmentHandler(service attachment.AttachmentService, logger *zap.Logger) *AttachmentHandler {
	return &AttachmentHandler{service: service, logger: logger}
}

func (h *AttachmentHandler) CreateAttachment(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		response.ResponseError(c, h.logger, err)
		return
	}

	// An absent body reaches the service as a nil request.
	var req *dto.CreateAttachmentRequest
	if len(body) > 0 {
		req = &dto.CreateAttachmentRequest{}
		if err := binding.JSON.BindBody(body, req); err != nil {
			response.ResponseError(c, h.logger, validator.FormatValidationError("body", err))
			return
		}
	}

	created, err := h.service.CreateAttachment(c.Request.Context(), middleware.Token(c), req)
	if err != nil {
		response.ResponseError(c, h.logger, err)
		return
	}

	response.Data(c, http.StatusCreated, created)
}

func (h *AttachmentHandler) UpdateAttachment(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		response.ResponseError(c, h.logger, err)
		return
	}

	patch := map[string]any{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &patch); err != nil {
			response.ResponseError(c, h.logger, apperror.InvalidInput("body", "JSON body must be an object."))
			return
		}
	}

	updated, err := h.service.UpdateAttachment(c.Request.Context(), middleware.Token(c), c.Param("id"), patch)
	if err != nil {
		response.ResponseError(c, h.logger, err)
		return
	}

	response.Data(c, http.StatusOK, updated)
}

func (h *AttachmentHandler) DeleteAttachment(c *gin.Context) {
	if err := h.service.DeleteAttachment(c.Request.Context(), middleware.Token(c), c.Param("id")); err != nil {
		response.ResponseError(c, h.logger, err)
		return
	}

	response.Data(c, http.StatusOK, nil)
}

// readBody returns the trimmed request body. A literal null counts as absent.
func readBody(c *gin.Context) ([]byte, error) {
	if c.Request.Body == nil {
		return nil, nil
	}
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, apperror.InvalidInput("body", "JSON body could not be read.")
	}

	body := bytes.TrimSpace(raw)
	if bytes.Equal(body, []byte("null")) {
		return nil, nil
	}
	return body, nil
}
