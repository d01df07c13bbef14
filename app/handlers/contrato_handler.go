package handlers

import (
	"context"
	"log"

	"github.com/nemaec/obra-erp/app/dto"
	businessflow "github.com/nemaec/obra-erp/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// ContratoHandlerInterface defines the contract for contract handlers
type ContratoHandlerInterface interface {
	Create(c fiber.Ctx) error
	Get(c fiber.Ctx) error
	List(c fiber.Ctx) error
	ListVencidos(c fiber.Ctx) error
	Firmar(c fiber.Ctx) error
	Iniciar(c fiber.Ctx) error
	Finalizar(c fiber.Ctx) error
	Suspender(c fiber.Ctx) error
	Reanudar(c fiber.Ctx) error
	Rescindir(c fiber.Ctx) error
	AmpliarPlazo(c fiber.Ctx) error
}

// ContratoHandler handles contract HTTP requests
type ContratoHandler struct {
	flow      businessflow.ContratoFlow
	validator *validator.Validate
}

// NewContratoHandler creates a new contract handler
func NewContratoHandler(flow businessflow.ContratoFlow) *ContratoHandler {
	return &ContratoHandler{
		flow:      flow,
		validator: validator.New(),
	}
}

// Create registers a new works contract
// @Summary Create Contract
// @Description Register a works contract and its per-station amounts
// @Tags Contratos
// @Accept json
// @Produce json
// @Param request body dto.CreateContratoRequest true "Contract data"
// @Success 201 {object} dto.APIResponse{data=dto.ContratoResponse} "Contract created"
// @Failure 409 {object} dto.APIResponse "Contract number already in use"
// @Failure 422 {object} dto.APIResponse "Amounts do not add up"
// @Router /api/v1/contratos [post]
func (h *ContratoHandler) Create(c fiber.Ctx) error {
	var req dto.CreateContratoRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if errs := validationErrors(h.validator, &req); errs != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", errs)
	}

	result, err := h.flow.Crear(createRequestContext(c, "/api/v1/contratos"), &req, clientMetadata(c))
	if err != nil {
		var businessErr *businessflow.BusinessError
		if businessflow.AsBusinessError(err, &businessErr) {
			switch businessErr.Code {
			case "NUMERO_EN_USO":
				return errorResponse(c, fiber.StatusConflict, businessErr.Message, businessErr.Code, nil)
			case "MONTOS_NO_CUADRAN":
				return errorResponse(c, fiber.StatusUnprocessableEntity, businessErr.Message, businessErr.Code, nil)
			case "COMISARIA_NOT_FOUND":
				return errorResponse(c, fiber.StatusUnprocessableEntity, businessErr.Message, businessErr.Code, nil)
			}
		}

		log.Println("Contract creation failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Contract creation failed", "CONTRATO_CREATE_FAILED", nil)
	}

	return successResponse(c, fiber.StatusCreated, "Contract created", result)
}

// Get returns one contract with its station amounts
// @Summary Get Contract
// @Description Retrieve one contract with its per-station amounts
// @Tags Contratos
// @Produce json
// @Param id path int true "Contract ID"
// @Success 200 {object} dto.APIResponse{data=dto.ContratoResponse} "Contract found"
// @Failure 404 {object} dto.APIResponse "Contract not found"
// @Router /api/v1/contratos/{id} [get]
func (h *ContratoHandler) Get(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid contract id", "INVALID_ID", err.Error())
	}

	result, err := h.flow.Obtener(createRequestContext(c, "/api/v1/contratos/:id"), id)
	if err != nil {
		if businessflow.IsContratoNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "Contract not found", "CONTRATO_NOT_FOUND", nil)
		}

		log.Println("Contract lookup failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Contract lookup failed", "CONTRATO_LOOKUP_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Contract found", result)
}

// List returns contracts matching the given filters
// @Summary List Contracts
// @Description List contracts filtered by state, type or station
// @Tags Contratos
// @Produce json
// @Param estado query string false "Contract state"
// @Param tipo query string false "Contract type"
// @Param comisaria_id query int false "Station ID"
// @Success 200 {object} dto.APIResponse "Contracts listed"
// @Router /api/v1/contratos [get]
func (h *ContratoHandler) List(c fiber.Ctx) error {
	var req dto.ListContratosRequest
	if err := c.Bind().Query(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_QUERY", err.Error())
	}

	if errs := validationErrors(h.validator, &req); errs != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", errs)
	}

	result, err := h.flow.Listar(createRequestContext(c, "/api/v1/contratos"), &req)
	if err != nil {
		log.Println("Contract listing failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Contract listing failed", "CONTRATO_LIST_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Contracts listed", fiber.Map{
		"items": result,
		"total": len(result),
	})
}

// ListVencidos returns contracts past their adjusted deadline
// @Summary List Overdue Contracts
// @Description List running contracts whose adjusted deadline has passed
// @Tags Contratos
// @Produce json
// @Success 200 {object} dto.APIResponse "Overdue contracts listed"
// @Router /api/v1/contratos/vencidos [get]
func (h *ContratoHandler) ListVencidos(c fiber.Ctx) error {
	result, err := h.flow.ListarVencidos(createRequestContext(c, "/api/v1/contratos/vencidos"))
	if err != nil {
		log.Println("Overdue contract listing failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Overdue contract listing failed", "CONTRATO_VENCIDOS_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Overdue contracts listed", fiber.Map{
		"items": result,
		"total": len(result),
	})
}

// Firmar marks a draft contract as signed
// @Summary Sign Contract
// @Tags Contratos
// @Produce json
// @Param id path int true "Contract ID"
// @Success 200 {object} dto.APIResponse{data=dto.ContratoResponse} "Contract signed"
// @Failure 409 {object} dto.APIResponse "Invalid transition"
// @Router /api/v1/contratos/{id}/firmar [post]
func (h *ContratoHandler) Firmar(c fiber.Ctx) error {
	return h.transicion(c, "/api/v1/contratos/:id/firmar", "Contract signed", h.flow.Firmar)
}

// Iniciar marks a signed contract as running
// @Summary Start Contract
// @Tags Contratos
// @Produce json
// @Param id path int true "Contract ID"
// @Success 200 {object} dto.APIResponse{data=dto.ContratoResponse} "Contract started"
// @Failure 409 {object} dto.APIResponse "Invalid transition"
// @Router /api/v1/contratos/{id}/iniciar [post]
func (h *ContratoHandler) Iniciar(c fiber.Ctx) error {
	return h.transicion(c, "/api/v1/contratos/:id/iniciar", "Contract started", h.flow.Iniciar)
}

// Finalizar marks a running contract as finished
// @Summary Finish Contract
// @Tags Contratos
// @Produce json
// @Param id path int true "Contract ID"
// @Success 200 {object} dto.APIResponse{data=dto.ContratoResponse} "Contract finished"
// @Failure 409 {object} dto.APIResponse "Invalid transition"
// @Router /api/v1/contratos/{id}/finalizar [post]
func (h *ContratoHandler) Finalizar(c fiber.Ctx) error {
	return h.transicion(c, "/api/v1/contratos/:id/finalizar", "Contract finished", h.flow.Finalizar)
}

// Suspender pauses a running contract
// @Summary Suspend Contract
// @Tags Contratos
// @Produce json
// @Param id path int true "Contract ID"
// @Success 200 {object} dto.APIResponse{data=dto.ContratoResponse} "Contract suspended"
// @Failure 409 {object} dto.APIResponse "Invalid transition"
// @Router /api/v1/contratos/{id}/suspender [post]
func (h *ContratoHandler) Suspender(c fiber.Ctx) error {
	return h.transicion(c, "/api/v1/contratos/:id/suspender", "Contract suspended", h.flow.Suspender)
}

// Reanudar resumes a suspended contract
// @Summary Resume Contract
// @Tags Contratos
// @Produce json
// @Param id path int true "Contract ID"
// @Success 200 {object} dto.APIResponse{data=dto.ContratoResponse} "Contract resumed"
// @Failure 409 {object} dto.APIResponse "Invalid transition"
// @Router /api/v1/contratos/{id}/reanudar [post]
func (h *ContratoHandler) Reanudar(c fiber.Ctx) error {
	return h.transicion(c, "/api/v1/contratos/:id/reanudar", "Contract resumed", h.flow.Reanudar)
}

// Rescindir terminates a contract early
// @Summary Rescind Contract
// @Tags Contratos
// @Produce json
// @Param id path int true "Contract ID"
// @Success 200 {object} dto.APIResponse{data=dto.ContratoResponse} "Contract rescinded"
// @Failure 409 {object} dto.APIResponse "Invalid transition"
// @Router /api/v1/contratos/{id}/rescindir [post]
func (h *ContratoHandler) Rescindir(c fiber.Ctx) error {
	return h.transicion(c, "/api/v1/contratos/:id/rescindir", "Contract rescinded", h.flow.Rescindir)
}

// AmpliarPlazo extends a contract's execution deadline
// @Summary Extend Contract Deadline
// @Description Add additional days to a contract's execution deadline
// @Tags Contratos
// @Accept json
// @Produce json
// @Param id path int true "Contract ID"
// @Param request body dto.AmpliarPlazoRequest true "Extension"
// @Success 200 {object} dto.APIResponse{data=dto.ContratoResponse} "Deadline extended"
// @Failure 409 {object} dto.APIResponse "Invalid transition"
// @Router /api/v1/contratos/{id}/ampliar-plazo [post]
func (h *ContratoHandler) AmpliarPlazo(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid contract id", "INVALID_ID", err.Error())
	}

	var req dto.AmpliarPlazoRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if errs := validationErrors(h.validator, &req); errs != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", errs)
	}

	result, err := h.flow.AmpliarPlazo(createRequestContext(c, "/api/v1/contratos/:id/ampliar-plazo"), id, &req, clientMetadata(c))
	if err != nil {
		return h.transicionError(c, err, "Deadline extension failed", "AMPLIACION_FAILED")
	}

	return successResponse(c, fiber.StatusOK, "Deadline extended", result)
}

func (h *ContratoHandler) transicion(c fiber.Ctx, endpoint, message string, fn func(ctx context.Context, contratoID uint, metadata *businessflow.ClientMetadata) (*dto.ContratoResponse, error)) error {
	id, err := pathID(c, "id")
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid contract id", "INVALID_ID", err.Error())
	}

	result, err := fn(createRequestContext(c, endpoint), id, clientMetadata(c))
	if err != nil {
		return h.transicionError(c, err, "Contract transition failed", "TRANSICION_FAILED")
	}

	return successResponse(c, fiber.StatusOK, message, result)
}

func (h *ContratoHandler) transicionError(c fiber.Ctx, err error, message, code string) error {
	if businessflow.IsContratoNotFound(err) {
		return errorResponse(c, fiber.StatusNotFound, "Contract not found", "CONTRATO_NOT_FOUND", nil)
	}
	var businessErr *businessflow.BusinessError
	if businessflow.AsBusinessError(err, &businessErr) && businessErr.Code == "TRANSICION_INVALIDA" {
		return errorResponse(c, fiber.StatusConflict, businessErr.Unwrap().Error(), businessErr.Code, nil)
	}

	log.Println(message, err)
	return errorResponse(c, fiber.StatusInternalServerError, message, code, nil)
}
