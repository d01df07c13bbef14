package handlers

import (
	"io"
	"log"

	"github.com/nemaec/obra-erp/app/dto"
	"github.com/nemaec/obra-erp/app/middleware"
	businessflow "github.com/nemaec/obra-erp/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// maxUploadSize bounds uploaded workbook size at 10 MiB
const maxUploadSize = 10 << 20

// PartidaHandlerInterface defines the contract for work item handlers
type PartidaHandlerInterface interface {
	Importar(c fiber.Ctx) error
	List(c fiber.Ctx) error
	Get(c fiber.Ctx) error
	RegistrarAvance(c fiber.Ctx) error
	ListAvances(c fiber.Ctx) error
}

// PartidaHandler handles work item HTTP requests
type PartidaHandler struct {
	flow      businessflow.PartidaFlow
	validator *validator.Validate
}

// NewPartidaHandler creates a new work item handler
func NewPartidaHandler(flow businessflow.PartidaFlow) *PartidaHandler {
	return &PartidaHandler{
		flow:      flow,
		validator: validator.New(),
	}
}

// Importar loads a station's initial schedule from an Excel workbook
// @Summary Import Partidas
// @Description Replace a station's work items with an uploaded Excel schedule
// @Tags Partidas
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Station ID"
// @Param archivo formData file true "Excel workbook"
// @Success 200 {object} dto.APIResponse{data=dto.ImportarPartidasResponse} "Partidas imported"
// @Failure 400 {object} dto.APIResponse "Invalid workbook"
// @Failure 404 {object} dto.APIResponse "Station not found"
// @Router /api/v1/comisarias/{id}/partidas/importar [post]
func (h *PartidaHandler) Importar(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid station id", "INVALID_ID", err.Error())
	}

	archivo, err := readUpload(c, "archivo")
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Workbook upload is required", "ARCHIVO_REQUERIDO", err.Error())
	}

	result, err := h.flow.ImportarPartidas(createRequestContext(c, "/api/v1/comisarias/:id/partidas/importar"), id, archivo, clientMetadata(c))
	if err != nil {
		if businessflow.IsComisariaNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "Comisaria not found", "COMISARIA_NOT_FOUND", nil)
		}
		var businessErr *businessflow.BusinessError
		if businessflow.AsBusinessError(err, &businessErr) && businessErr.Code == "ARCHIVO_INVALIDO" {
			return errorResponse(c, fiber.StatusBadRequest, businessErr.Message, businessErr.Code, nil)
		}

		log.Println("Partida import failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Partida import failed", "IMPORT_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Partidas imported", result)
}

// List returns a station's work items
// @Summary List Partidas
// @Description List a station's work items with derived progress state
// @Tags Partidas
// @Produce json
// @Param id path int true "Station ID"
// @Param criticidad query string false "Criticality filter"
// @Param estado query string false "State filter"
// @Param nivel query int false "Hierarchy level filter"
// @Success 200 {object} dto.APIResponse "Partidas listed"
// @Failure 404 {object} dto.APIResponse "Station not found"
// @Router /api/v1/comisarias/{id}/partidas [get]
func (h *PartidaHandler) List(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid station id", "INVALID_ID", err.Error())
	}

	var req dto.ListPartidasRequest
	if err := c.Bind().Query(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}

	if errs := validationErrors(h.validator, &req); errs != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", errs)
	}

	result, err := h.flow.ListarPartidas(createRequestContext(c, "/api/v1/comisarias/:id/partidas"), id, &req)
	if err != nil {
		if businessflow.IsComisariaNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "Comisaria not found", "COMISARIA_NOT_FOUND", nil)
		}

		log.Println("Partida listing failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Partida listing failed", "PARTIDA_LIST_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Partidas listed", fiber.Map{
		"items": result,
		"total": len(result),
	})
}

// Get returns one work item with its progress history
// @Summary Get Partida
// @Description Retrieve one work item with its full progress history
// @Tags Partidas
// @Produce json
// @Param id path int true "Partida ID"
// @Success 200 {object} dto.APIResponse{data=dto.PartidaResponse} "Partida found"
// @Failure 404 {object} dto.APIResponse "Partida not found"
// @Router /api/v1/partidas/{id} [get]
func (h *PartidaHandler) Get(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid partida id", "INVALID_ID", err.Error())
	}

	result, err := h.flow.ObtenerPartida(createRequestContext(c, "/api/v1/partidas/:id"), id)
	if err != nil {
		if businessflow.IsPartidaNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "Partida not found", "PARTIDA_NOT_FOUND", nil)
		}

		log.Println("Partida lookup failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Partida lookup failed", "PARTIDA_LOOKUP_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Partida found", result)
}

// RegistrarAvance stores a progress report for a work item
// @Summary Register Progress
// @Description Record a periodic progress report on one work item
// @Tags Partidas
// @Accept json
// @Produce json
// @Param id path int true "Partida ID"
// @Param request body dto.RegistrarAvanceRequest true "Progress data"
// @Success 201 {object} dto.APIResponse{data=dto.AvanceResponse} "Progress registered"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 404 {object} dto.APIResponse "Partida not found"
// @Failure 422 {object} dto.APIResponse "Progress rejected"
// @Router /api/v1/partidas/{id}/avances [post]
func (h *PartidaHandler) RegistrarAvance(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid partida id", "INVALID_ID", err.Error())
	}

	var req dto.RegistrarAvanceRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if errs := validationErrors(h.validator, &req); errs != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", errs)
	}

	reportadoPor, _ := middleware.GetUsuarioNombreFromContext(c)

	result, err := h.flow.RegistrarAvance(createRequestContext(c, "/api/v1/partidas/:id/avances"), id, &req, reportadoPor, clientMetadata(c))
	if err != nil {
		if businessflow.IsPartidaNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "Partida not found", "PARTIDA_NOT_FOUND", nil)
		}
		var businessErr *businessflow.BusinessError
		if businessflow.AsBusinessError(err, &businessErr) {
			switch businessErr.Code {
			case "AVANCE_FUERA_DE_RANGO", "AVANCE_SOBRE_TITULO":
				return errorResponse(c, fiber.StatusUnprocessableEntity, businessErr.Message, businessErr.Code, nil)
			}
		}

		log.Println("Progress registration failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Progress registration failed", "AVANCE_FAILED", nil)
	}

	return successResponse(c, fiber.StatusCreated, "Progress registered", result)
}

// ListAvances returns the progress history of one work item
// @Summary List Progress Reports
// @Description List the progress history of one work item
// @Tags Partidas
// @Produce json
// @Param id path int true "Partida ID"
// @Success 200 {object} dto.APIResponse "Progress reports listed"
// @Failure 404 {object} dto.APIResponse "Partida not found"
// @Router /api/v1/partidas/{id}/avances [get]
func (h *PartidaHandler) ListAvances(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid partida id", "INVALID_ID", err.Error())
	}

	result, err := h.flow.ListarAvances(createRequestContext(c, "/api/v1/partidas/:id/avances"), id)
	if err != nil {
		if businessflow.IsPartidaNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "Partida not found", "PARTIDA_NOT_FOUND", nil)
		}

		log.Println("Progress listing failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Progress listing failed", "AVANCE_LIST_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Progress reports listed", fiber.Map{
		"items": result,
		"total": len(result),
	})
}

// readUpload pulls one multipart file into memory
func readUpload(c fiber.Ctx, field string) ([]byte, error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		return nil, err
	}
	if fileHeader.Size > maxUploadSize {
		return nil, fiber.ErrRequestEntityTooLarge
	}

	f, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(io.LimitReader(f, maxUploadSize))
}
