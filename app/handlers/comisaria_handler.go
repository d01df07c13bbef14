package handlers

import (
	"context"
	"log"

	"github.com/nemaec/obra-erp/app/dto"
	businessflow "github.com/nemaec/obra-erp/business_flow"
	"github.com/nemaec/obra-erp/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// ComisariaHandlerInterface defines the contract for station registry handlers
type ComisariaHandlerInterface interface {
	Create(c fiber.Ctx) error
	Update(c fiber.Ctx) error
	Get(c fiber.Ctx) error
	GetByCodigo(c fiber.Ctx) error
	List(c fiber.Ctx) error
	IniciarObra(c fiber.Ctx) error
	CompletarObra(c fiber.Ctx) error
	SuspenderObra(c fiber.Ctx) error
	Geocode(c fiber.Ctx) error
}

// ComisariaHandler handles station registry HTTP requests
type ComisariaHandler struct {
	flow      businessflow.ComisariaFlow
	validator *validator.Validate
}

// NewComisariaHandler creates a new station registry handler
func NewComisariaHandler(flow businessflow.ComisariaFlow) *ComisariaHandler {
	return &ComisariaHandler{
		flow:      flow,
		validator: validator.New(),
	}
}

// Create registers a police station
// @Summary Create Comisaria
// @Description Register a police station in the intervention portfolio
// @Tags Comisarias
// @Accept json
// @Produce json
// @Param request body dto.CreateComisariaRequest true "Station data"
// @Success 201 {object} dto.APIResponse{data=dto.ComisariaResponse} "Station registered"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 409 {object} dto.APIResponse "Station code already in use"
// @Router /api/v1/comisarias [post]
func (h *ComisariaHandler) Create(c fiber.Ctx) error {
	var req dto.CreateComisariaRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if errs := validationErrors(h.validator, &req); errs != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", errs)
	}

	result, err := h.flow.Crear(createRequestContext(c, "/api/v1/comisarias"), &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsCodigoComisariaEnUso(err) {
			return errorResponse(c, fiber.StatusConflict, "Station code already in use", "CODIGO_EN_USO", nil)
		}
		var businessErr *businessflow.BusinessError
		if businessflow.AsBusinessError(err, &businessErr) && businessErr.Code == "CODIGO_INVALIDO" {
			return errorResponse(c, fiber.StatusBadRequest, businessErr.Message, businessErr.Code, nil)
		}

		log.Println("Comisaria creation failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Comisaria creation failed", "COMISARIA_CREATE_FAILED", nil)
	}

	return successResponse(c, fiber.StatusCreated, "Comisaria registered", result)
}

// Update applies a partial update to a station
// @Summary Update Comisaria
// @Description Update station data such as address, photo, dates or budgets
// @Tags Comisarias
// @Accept json
// @Produce json
// @Param id path int true "Station ID"
// @Param request body dto.UpdateComisariaRequest true "Fields to update"
// @Success 200 {object} dto.APIResponse{data=dto.ComisariaResponse} "Station updated"
// @Failure 404 {object} dto.APIResponse "Station not found"
// @Router /api/v1/comisarias/{id} [patch]
func (h *ComisariaHandler) Update(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid station id", "INVALID_ID", err.Error())
	}

	var req dto.UpdateComisariaRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if errs := validationErrors(h.validator, &req); errs != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", errs)
	}

	result, err := h.flow.Actualizar(createRequestContext(c, "/api/v1/comisarias/:id"), id, &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsComisariaNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "Comisaria not found", "COMISARIA_NOT_FOUND", nil)
		}

		log.Println("Comisaria update failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Comisaria update failed", "COMISARIA_UPDATE_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Comisaria updated", result)
}

// Get returns one station
// @Summary Get Comisaria
// @Description Retrieve one station by id
// @Tags Comisarias
// @Produce json
// @Param id path int true "Station ID"
// @Success 200 {object} dto.APIResponse{data=dto.ComisariaResponse} "Station found"
// @Failure 404 {object} dto.APIResponse "Station not found"
// @Router /api/v1/comisarias/{id} [get]
func (h *ComisariaHandler) Get(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid station id", "INVALID_ID", err.Error())
	}

	result, err := h.flow.Obtener(createRequestContext(c, "/api/v1/comisarias/:id"), id)
	if err != nil {
		if businessflow.IsComisariaNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "Comisaria not found", "COMISARIA_NOT_FOUND", nil)
		}

		log.Println("Comisaria lookup failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Comisaria lookup failed", "COMISARIA_LOOKUP_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Comisaria found", result)
}

// GetByCodigo returns one station by institutional code
// @Summary Get Comisaria by Code
// @Description Retrieve one station by its COM-XXX institutional code
// @Tags Comisarias
// @Produce json
// @Param codigo path string true "Institutional code"
// @Success 200 {object} dto.APIResponse{data=dto.ComisariaResponse} "Station found"
// @Failure 404 {object} dto.APIResponse "Station not found"
// @Router /api/v1/comisarias/codigo/{codigo} [get]
func (h *ComisariaHandler) GetByCodigo(c fiber.Ctx) error {
	codigo := c.Params("codigo")
	if !utils.IsValidCodigoComisaria(codigo) {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid station code", "CODIGO_INVALIDO", nil)
	}

	result, err := h.flow.ObtenerPorCodigo(createRequestContext(c, "/api/v1/comisarias/codigo/:codigo"), codigo)
	if err != nil {
		if businessflow.IsComisariaNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "Comisaria not found", "COMISARIA_NOT_FOUND", nil)
		}

		log.Println("Comisaria lookup failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Comisaria lookup failed", "COMISARIA_LOOKUP_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Comisaria found", result)
}

// List returns a filtered page of stations
// @Summary List Comisarias
// @Description List stations filtered by state, type, department or name
// @Tags Comisarias
// @Produce json
// @Param estado query string false "State filter"
// @Param tipo query string false "Type filter"
// @Param departamento query string false "Department filter"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.APIResponse "Stations listed"
// @Router /api/v1/comisarias [get]
func (h *ComisariaHandler) List(c fiber.Ctx) error {
	var req dto.ListComisariasRequest
	if err := c.Bind().Query(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}

	if errs := validationErrors(h.validator, &req); errs != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", errs)
	}

	result, total, err := h.flow.Listar(createRequestContext(c, "/api/v1/comisarias"), &req)
	if err != nil {
		log.Println("Comisaria listing failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Comisaria listing failed", "COMISARIA_LIST_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Comisarias listed", fiber.Map{
		"items": result,
		"total": total,
	})
}

// IniciarObra moves the station into execution
// @Summary Start Works
// @Description Move a pending station into execution
// @Tags Comisarias
// @Produce json
// @Param id path int true "Station ID"
// @Success 200 {object} dto.APIResponse{data=dto.ComisariaResponse} "Works started"
// @Failure 409 {object} dto.APIResponse "Invalid state transition"
// @Router /api/v1/comisarias/{id}/iniciar [post]
func (h *ComisariaHandler) IniciarObra(c fiber.Ctx) error {
	return h.transicion(c, "iniciar", h.flow.IniciarObra)
}

// CompletarObra marks the station's works as finished
// @Summary Complete Works
// @Description Mark a running station's works as finished
// @Tags Comisarias
// @Produce json
// @Param id path int true "Station ID"
// @Success 200 {object} dto.APIResponse{data=dto.ComisariaResponse} "Works completed"
// @Failure 409 {object} dto.APIResponse "Invalid state transition"
// @Router /api/v1/comisarias/{id}/completar [post]
func (h *ComisariaHandler) CompletarObra(c fiber.Ctx) error {
	return h.transicion(c, "completar", h.flow.CompletarObra)
}

// SuspenderObra suspends the station's works
// @Summary Suspend Works
// @Description Suspend a pending or running station
// @Tags Comisarias
// @Produce json
// @Param id path int true "Station ID"
// @Success 200 {object} dto.APIResponse{data=dto.ComisariaResponse} "Works suspended"
// @Failure 409 {object} dto.APIResponse "Invalid state transition"
// @Router /api/v1/comisarias/{id}/suspender [post]
func (h *ComisariaHandler) SuspenderObra(c fiber.Ctx) error {
	return h.transicion(c, "suspender", h.flow.SuspenderObra)
}

// Geocode resolves an address through the maps proxy
// @Summary Geocode Address
// @Description Resolve an arbitrary address to coordinates through the maps proxy
// @Tags Comisarias
// @Accept json
// @Produce json
// @Param request body dto.GeocodeRequest true "Address"
// @Success 200 {object} dto.APIResponse "Address resolved"
// @Failure 404 {object} dto.APIResponse "No results"
// @Router /api/v1/geocode [post]
func (h *ComisariaHandler) Geocode(c fiber.Ctx) error {
	var req dto.GeocodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if errs := validationErrors(h.validator, &req); errs != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", errs)
	}

	result, err := h.flow.Geocodificar(createRequestContext(c, "/api/v1/geocode"), &req)
	if err != nil {
		var businessErr *businessflow.BusinessError
		if businessflow.AsBusinessError(err, &businessErr) {
			switch businessErr.Code {
			case "GEOCODE_SIN_RESULTADOS":
				return errorResponse(c, fiber.StatusNotFound, businessErr.Message, businessErr.Code, nil)
			case "GEOCODE_NO_CONFIGURADO":
				return errorResponse(c, fiber.StatusServiceUnavailable, businessErr.Message, businessErr.Code, nil)
			}
		}

		log.Println("Geocoding failed", err)
		return errorResponse(c, fiber.StatusBadGateway, "Geocoding failed", "GEOCODE_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Address resolved", result)
}

func (h *ComisariaHandler) transicion(c fiber.Ctx, accion string, fn func(ctx context.Context, comisariaID uint, metadata *businessflow.ClientMetadata) (*dto.ComisariaResponse, error)) error {
	id, err := pathID(c, "id")
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid station id", "INVALID_ID", err.Error())
	}

	result, err := fn(createRequestContext(c, "/api/v1/comisarias/:id/"+accion), id, clientMetadata(c))
	if err != nil {
		if businessflow.IsComisariaNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "Comisaria not found", "COMISARIA_NOT_FOUND", nil)
		}
		var businessErr *businessflow.BusinessError
		if businessflow.AsBusinessError(err, &businessErr) && businessErr.Code == "TRANSICION_INVALIDA" {
			return errorResponse(c, fiber.StatusConflict, businessErr.Unwrap().Error(), businessErr.Code, nil)
		}

		log.Println("Comisaria state transition failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "State transition failed", "TRANSICION_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Comisaria updated", result)
}
