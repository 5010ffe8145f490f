package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/dormfix-api/internal/dto"
	"github.com/noah-isme/dormfix-api/internal/middleware"
	"github.com/noah-isme/dormfix-api/internal/models"
	appErrors "github.com/noah-isme/dormfix-api/pkg/errors"
	"github.com/noah-isme/dormfix-api/pkg/response"
)

type dashboardService interface {
	Build(ctx context.Context, session models.Session, filter models.DashboardFilter) (*dto.DashboardResponse, bool, error)
}

// DashboardHandler wires dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Get godoc
// @Summary Role dashboard
// @Description Scoped requests with duplicate flags, stats and view filters
// @Tags Dashboard
// @Produce json
// @Param roomNumber query string false "Room number substring"
// @Param hostelName query string false "Hostel name"
// @Param floor query string false "Floor substring"
// @Param category query string false "Category"
// @Param priority query string false "Priority"
// @Param status query string false "Status"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Get(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var filter models.DashboardFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid dashboard filter"))
		return
	}

	result, degraded, err := h.service.Build(c.Request.Context(), claims.Session(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	if degraded {
		middleware.SetMeta(c, "duplicates_degraded", true)
	}
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}
