package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/dormfix-api/internal/dto"
	"github.com/noah-isme/dormfix-api/pkg/response"
)

type catalogService interface {
	Catalog() dto.CatalogResponse
	CategoryOptions(hostelName, floor string) dto.CategoryOptions
}

// CatalogHandler serves the closed vocabularies used by submission forms.
type CatalogHandler struct {
	service catalogService
}

func NewCatalogHandler(svc catalogService) *CatalogHandler {
	return &CatalogHandler{service: svc}
}

// List godoc
// @Summary Form vocabularies
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /catalog [get]
func (h *CatalogHandler) List(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Catalog(), nil)
}

// Categories godoc
// @Summary Categories selectable for a hostel floor
// @Tags Catalog
// @Produce json
// @Param hostelName query string false "Hostel name"
// @Param floor query string false "Floor"
// @Success 200 {object} response.Envelope
// @Router /catalog/categories [get]
func (h *CatalogHandler) Categories(c *gin.Context) {
	hostel := strings.TrimSpace(c.Query("hostelName"))
	floor := strings.TrimSpace(c.Query("floor"))
	response.JSON(c, http.StatusOK, h.service.CategoryOptions(hostel, floor), nil)
}
