package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/dormfix-api/internal/models"
	appErrors "github.com/noah-isme/dormfix-api/pkg/errors"
	"github.com/noah-isme/dormfix-api/pkg/response"
)

type intakeService interface {
	Submit(ctx context.Context, input models.CreateRequestInput, actor string, client models.ClientInfo) (*models.IntakeResult, error)
}

type requestService interface {
	List(ctx context.Context, session models.Session) ([]models.MaintenanceRequest, error)
	Get(ctx context.Context, session models.Session, id string) (*models.MaintenanceRequest, error)
	UpdateStatus(ctx context.Context, session models.Session, id string, update models.StatusUpdate, client models.ClientInfo) (*models.MaintenanceRequest, error)
}

// RequestHandler exposes maintenance request intake and triage.
type RequestHandler struct {
	intake   intakeService
	requests requestService
}

// NewRequestHandler constructs the handler.
func NewRequestHandler(intake intakeService, requests requestService) *RequestHandler {
	return &RequestHandler{intake: intake, requests: requests}
}

// Create godoc
// @Summary Submit a maintenance request
// @Description Accepts JSON or multipart form fields, plus an optional photo file
// @Tags Requests
// @Accept json
// @Accept mpfd
// @Produce json
// @Param payload body models.CreateRequestInput true "Request payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /requests [post]
func (h *RequestHandler) Create(c *gin.Context) {
	var input models.CreateRequestInput
	if err := c.ShouldBind(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid request payload"))
		return
	}
	if strings.HasPrefix(c.ContentType(), gin.MIMEMultipartPOSTForm) {
		if _, err := c.FormFile("photo"); err == nil {
			input.HasPhoto = true
		}
	}

	actor := anonymousActor
	if claims := claimsFromContext(c); claims != nil {
		actor = claims.Subject
	}

	result, err := h.intake.Submit(c.Request.Context(), input, actor, clientInfo(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// List godoc
// @Summary List maintenance requests
// @Description Returns the requests visible to the caller, newest first
// @Tags Requests
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /requests [get]
func (h *RequestHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	items, err := h.requests.List(c.Request.Context(), claims.Session())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil, map[string]interface{}{"total": len(items)})
}

// Get godoc
// @Summary Get a maintenance request
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /requests/{id} [get]
func (h *RequestHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	item, err := h.requests.Get(c.Request.Context(), claims.Session(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// UpdateStatus godoc
// @Summary Move a request along its lifecycle
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body models.StatusUpdate true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /requests/{id}/status [patch]
func (h *RequestHandler) UpdateStatus(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var update models.StatusUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}
	item, err := h.requests.UpdateStatus(c.Request.Context(), claims.Session(), c.Param("id"), update, clientInfo(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}
