package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/dormfix-api/internal/models"
	"github.com/noah-isme/dormfix-api/internal/service"
	appErrors "github.com/noah-isme/dormfix-api/pkg/errors"
	"github.com/noah-isme/dormfix-api/pkg/response"
)

type exportService interface {
	Create(ctx context.Context, session models.Session, req models.ExportRequest, client models.ClientInfo) (*models.ExportResult, error)
	Open(ctx context.Context, token string) (*service.Download, error)
}

// ExportHandler renders dashboard exports and serves signed downloads.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(svc exportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Create godoc
// @Summary Export the dashboard view
// @Description Renders the filtered dashboard rows as CSV or PDF and returns a signed link
// @Tags Exports
// @Accept json
// @Produce json
// @Param payload body models.ExportRequest true "Export payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /exports [post]
func (h *ExportHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req models.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export payload"))
		return
	}
	result, err := h.service.Create(c.Request.Context(), claims.Session(), req, clientInfo(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Download godoc
// @Summary Download an export
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /exports/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	file, err := h.service.Open(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Body.Close()
	response.Attachment(c, file.Filename, file.ContentType, file.Size, file.Body)
}
