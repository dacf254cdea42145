package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/apnealab/dive-scheduler-api/internal/service"
	"github.com/apnealab/dive-scheduler-api/pkg/response"
)

// OrganizationHandler serves the tenant directory.
type OrganizationHandler struct {
	service *service.OrganizationService
}

// NewOrganizationHandler creates a new handler.
func NewOrganizationHandler(svc *service.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{service: svc}
}

// List godoc
// @Summary List organizations
// @Description Returns all organizations for login-time selection
// @Tags Organizations
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /organizations [get]
func (h *OrganizationHandler) List(c *gin.Context) {
	orgs, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, orgs, nil)
}
