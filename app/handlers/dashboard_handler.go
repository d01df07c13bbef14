package handlers

import (
	"log"

	businessflow "github.com/nemaec/obra-erp/business_flow"
	"github.com/gofiber/fiber/v3"
)

// DashboardHandlerInterface defines the contract for dashboard handlers
type DashboardHandlerInterface interface {
	Resumen(c fiber.Ctx) error
	RiesgoComisaria(c fiber.Ctx) error
}

// DashboardHandler handles executive dashboard HTTP requests
type DashboardHandler struct {
	flow businessflow.DashboardFlow
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(flow businessflow.DashboardFlow) *DashboardHandler {
	return &DashboardHandler{flow: flow}
}

// Resumen returns the portfolio-wide risk summary
// @Summary Executive Dashboard
// @Description Portfolio-wide progress and risk summary across all stations
// @Tags Dashboard
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.DashboardResponse} "Dashboard generated"
// @Router /api/v1/dashboard [get]
func (h *DashboardHandler) Resumen(c fiber.Ctx) error {
	result, err := h.flow.Resumen(createRequestContext(c, "/api/v1/dashboard"))
	if err != nil {
		log.Println("Dashboard generation failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Dashboard generation failed", "DASHBOARD_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Dashboard generated", result)
}

// RiesgoComisaria returns the risk assessment for one station
// @Summary Station Risk
// @Description Risk score, level and recommended actions for one station
// @Tags Dashboard
// @Produce json
// @Param id path int true "Station ID"
// @Success 200 {object} dto.APIResponse{data=dto.ComisariaRiesgoResponse} "Risk assessed"
// @Failure 404 {object} dto.APIResponse "Station not found"
// @Router /api/v1/dashboard/comisarias/{id} [get]
func (h *DashboardHandler) RiesgoComisaria(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid station id", "INVALID_ID", err.Error())
	}

	result, err := h.flow.RiesgoComisaria(createRequestContext(c, "/api/v1/dashboard/comisarias/:id"), id)
	if err != nil {
		if businessflow.IsComisariaNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "Comisaria not found", "COMISARIA_NOT_FOUND", nil)
		}

		log.Println("Risk assessment failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Risk assessment failed", "RIESGO_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Risk assessed", result)
}
