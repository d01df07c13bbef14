package handlers

import (
	"log"
	"strconv"

	"github.com/nemaec/obra-erp/app/dto"
	"github.com/nemaec/obra-erp/app/middleware"
	businessflow "github.com/nemaec/obra-erp/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// CronogramaHandlerInterface defines the contract for schedule handlers
type CronogramaHandlerInterface interface {
	DetectarCambios(c fiber.Ctx) error
	Sugerencias(c fiber.Ctx) error
	ConfirmarVersion(c fiber.Ctx) error
	DescartarSesion(c fiber.Ctx) error
	JustificarModificacion(c fiber.Ctx) error
	ListVersiones(c fiber.Ctx) error
	GetVersion(c fiber.Ctx) error
	AprobarVersion(c fiber.Ctx) error
	RechazarVersion(c fiber.Ctx) error
	ExportarVersion(c fiber.Ctx) error
}

// CronogramaHandler handles schedule comparison and approval HTTP requests
type CronogramaHandler struct {
	flow      businessflow.CronogramaFlow
	validator *validator.Validate
}

// NewCronogramaHandler creates a new schedule handler
func NewCronogramaHandler(flow businessflow.CronogramaFlow) *CronogramaHandler {
	return &CronogramaHandler{
		flow:      flow,
		validator: validator.New(),
	}
}

// DetectarCambios compares an uploaded schedule against the current one
// @Summary Detect Schedule Changes
// @Description Compare an uploaded Excel schedule against the station's current partidas
// @Tags Cronograma
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Station ID"
// @Param archivo formData file true "Excel workbook"
// @Param nombre_version formData string true "Version name"
// @Param descripcion_cambios formData string false "Change description"
// @Success 200 {object} dto.APIResponse{data=dto.DetectarCambiosResponse} "Comparison stored"
// @Failure 400 {object} dto.APIResponse "Invalid workbook"
// @Failure 404 {object} dto.APIResponse "Station not found"
// @Failure 422 {object} dto.APIResponse "Station has no partidas"
// @Router /api/v1/comisarias/{id}/cronograma/detectar [post]
func (h *CronogramaHandler) DetectarCambios(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid station id", "INVALID_ID", err.Error())
	}

	archivo, err := readUpload(c, "archivo")
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Workbook upload is required", "ARCHIVO_REQUERIDO", err.Error())
	}

	req := dto.DetectarCambiosRequest{
		NombreVersion: c.FormValue("nombre_version"),
	}
	if desc := c.FormValue("descripcion_cambios"); desc != "" {
		req.DescripcionCambios = &desc
	}
	if errs := validationErrors(h.validator, &req); errs != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", errs)
	}

	monitor, _ := middleware.GetUsuarioNombreFromContext(c)

	result, err := h.flow.DetectarCambios(createRequestContext(c, "/api/v1/comisarias/:id/cronograma/detectar"), id, archivo, &req, monitor, clientMetadata(c))
	if err != nil {
		if businessflow.IsComisariaNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "Comisaria not found", "COMISARIA_NOT_FOUND", nil)
		}
		var businessErr *businessflow.BusinessError
		if businessflow.AsBusinessError(err, &businessErr) {
			switch businessErr.Code {
			case "ARCHIVO_INVALIDO":
				return errorResponse(c, fiber.StatusBadRequest, businessErr.Message, businessErr.Code, nil)
			case "SIN_PARTIDAS":
				return errorResponse(c, fiber.StatusUnprocessableEntity, businessErr.Message, businessErr.Code, nil)
			}
		}

		log.Println("Schedule comparison failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Schedule comparison failed", "COMPARACION_FAILED", nil)
	}

	middleware.RecordComparacion()
	return successResponse(c, fiber.StatusOK, "Comparison stored", result)
}

// Sugerencias returns rebalancing advice for a pending comparison
// @Summary Rebalance Suggestions
// @Description Get budget rebalancing suggestions for a pending comparison session
// @Tags Cronograma
// @Produce json
// @Param token path string true "Session token"
// @Success 200 {object} dto.APIResponse{data=dto.SugerenciasResponse} "Suggestions generated"
// @Failure 410 {object} dto.APIResponse "Session expired"
// @Router /api/v1/cronograma/sesiones/{token}/sugerencias [get]
func (h *CronogramaHandler) Sugerencias(c fiber.Ctx) error {
	token := c.Params("token")

	result, err := h.flow.ObtenerSugerencias(createRequestContext(c, "/api/v1/cronograma/sesiones/:token/sugerencias"), token)
	if err != nil {
		if businessflow.IsSesionExpirada(err) {
			return errorResponse(c, fiber.StatusGone, "Comparison session expired", "SESION_EXPIRADA", nil)
		}

		log.Println("Suggestion generation failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Suggestion generation failed", "SUGERENCIAS_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Suggestions generated", result)
}

// ConfirmarVersion persists a pending comparison as a new schedule version
// @Summary Confirm Version
// @Description Persist a pending comparison session as the station's new schedule version
// @Tags Cronograma
// @Accept json
// @Produce json
// @Param request body dto.ConfirmarVersionRequest true "Session token"
// @Success 201 {object} dto.APIResponse{data=dto.VersionDetalleResponse} "Version confirmed"
// @Failure 410 {object} dto.APIResponse "Session expired"
// @Router /api/v1/cronograma/versiones [post]
func (h *CronogramaHandler) ConfirmarVersion(c fiber.Ctx) error {
	var req dto.ConfirmarVersionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if errs := validationErrors(h.validator, &req); errs != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", errs)
	}

	result, err := h.flow.ConfirmarVersion(createRequestContext(c, "/api/v1/cronograma/versiones"), &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsSesionExpirada(err) {
			return errorResponse(c, fiber.StatusGone, "Comparison session expired", "SESION_EXPIRADA", nil)
		}

		log.Println("Version confirmation failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Version confirmation failed", "CONFIRMACION_FAILED", nil)
	}

	return successResponse(c, fiber.StatusCreated, "Version confirmed", result)
}

// DescartarSesion drops a pending comparison
// @Summary Discard Session
// @Description Drop a pending comparison session without persisting anything
// @Tags Cronograma
// @Produce json
// @Param token path string true "Session token"
// @Success 200 {object} dto.APIResponse "Session discarded"
// @Router /api/v1/cronograma/sesiones/{token} [delete]
func (h *CronogramaHandler) DescartarSesion(c fiber.Ctx) error {
	token := c.Params("token")

	if err := h.flow.DescartarSesion(createRequestContext(c, "/api/v1/cronograma/sesiones/:token"), token); err != nil {
		log.Println("Session discard failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Session discard failed", "DESCARTE_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Session discarded", nil)
}

// JustificarModificacion records the monitor's justification for one modification
// @Summary Justify Modification
// @Description Record the monitor's justification for one detected modification
// @Tags Cronograma
// @Accept json
// @Produce json
// @Param id path int true "Modification ID"
// @Param request body dto.ConfirmarModificacionRequest true "Justification"
// @Success 200 {object} dto.APIResponse{data=dto.ModificacionResponse} "Modification justified"
// @Failure 404 {object} dto.APIResponse "Modification not found"
// @Failure 422 {object} dto.APIResponse "Justification rejected"
// @Router /api/v1/cronograma/modificaciones/{id}/justificar [post]
func (h *CronogramaHandler) JustificarModificacion(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid modification id", "INVALID_ID", err.Error())
	}

	var req dto.ConfirmarModificacionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if errs := validationErrors(h.validator, &req); errs != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", errs)
	}

	monitor, _ := middleware.GetUsuarioNombreFromContext(c)

	result, err := h.flow.JustificarModificacion(createRequestContext(c, "/api/v1/cronograma/modificaciones/:id/justificar"), id, &req, monitor, clientMetadata(c))
	if err != nil {
		if businessflow.IsModificacionNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "Modificacion not found", "MODIFICACION_NOT_FOUND", nil)
		}
		var businessErr *businessflow.BusinessError
		if businessflow.AsBusinessError(err, &businessErr) && businessErr.Code == "JUSTIFICACION_INVALIDA" {
			return errorResponse(c, fiber.StatusUnprocessableEntity, businessErr.Unwrap().Error(), businessErr.Code, nil)
		}

		log.Println("Justification failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Justification failed", "JUSTIFICACION_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Modification justified", result)
}

// ListVersiones returns the station's schedule versions
// @Summary List Versions
// @Description List a station's schedule versions, newest first
// @Tags Cronograma
// @Produce json
// @Param id path int true "Station ID"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} dto.APIResponse "Versions listed"
// @Router /api/v1/comisarias/{id}/cronograma/versiones [get]
func (h *CronogramaHandler) ListVersiones(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid station id", "INVALID_ID", err.Error())
	}

	limit, err := strconv.Atoi(c.Query("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}
	offset, err := strconv.Atoi(c.Query("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	result, err := h.flow.ListarVersiones(createRequestContext(c, "/api/v1/comisarias/:id/cronograma/versiones"), id, limit, offset)
	if err != nil {
		log.Println("Version listing failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Version listing failed", "VERSION_LIST_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Versions listed", fiber.Map{
		"items": result,
		"total": len(result),
	})
}

// GetVersion returns one version with its modifications
// @Summary Get Version
// @Description Retrieve one schedule version with its modifications expanded
// @Tags Cronograma
// @Produce json
// @Param uuid path string true "Version UUID"
// @Success 200 {object} dto.APIResponse{data=dto.VersionDetalleResponse} "Version found"
// @Failure 404 {object} dto.APIResponse "Version not found"
// @Router /api/v1/cronograma/versiones/{uuid} [get]
func (h *CronogramaHandler) GetVersion(c fiber.Ctx) error {
	versionUUID := c.Params("uuid")

	result, err := h.flow.ObtenerVersion(createRequestContext(c, "/api/v1/cronograma/versiones/:uuid"), versionUUID)
	if err != nil {
		if businessflow.IsVersionNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "Version not found", "VERSION_NOT_FOUND", nil)
		}

		log.Println("Version lookup failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Version lookup failed", "VERSION_LOOKUP_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Version found", result)
}

// AprobarVersion lets an authority approve a version
// @Summary Approve Version
// @Description Approve a balanced, fully justified schedule version
// @Tags Cronograma
// @Produce json
// @Param uuid path string true "Version UUID"
// @Success 200 {object} dto.APIResponse{data=dto.VersionDetalleResponse} "Version approved"
// @Failure 404 {object} dto.APIResponse "Version not found"
// @Failure 409 {object} dto.APIResponse "Version already resolved"
// @Failure 422 {object} dto.APIResponse "Budget unbalanced or justifications missing"
// @Router /api/v1/cronograma/versiones/{uuid}/aprobar [post]
func (h *CronogramaHandler) AprobarVersion(c fiber.Ctx) error {
	versionUUID := c.Params("uuid")
	autoridad, _ := middleware.GetUsuarioNombreFromContext(c)

	result, err := h.flow.AprobarVersion(createRequestContext(c, "/api/v1/cronograma/versiones/:uuid/aprobar"), versionUUID, autoridad, clientMetadata(c))
	if err != nil {
		if businessflow.IsVersionNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "Version not found", "VERSION_NOT_FOUND", nil)
		}
		if businessflow.IsVersionYaResuelta(err) {
			return errorResponse(c, fiber.StatusConflict, "Version already resolved", "VERSION_YA_RESUELTA", nil)
		}
		var balanceErr *businessflow.BalanceError
		if businessflow.AsBalanceError(err, &balanceErr) {
			return errorResponse(c, fiber.StatusUnprocessableEntity, "Budget balance is not settled", "BALANCE_NO_EQUILIBRADO", balanceErr.Validacion)
		}
		if businessflow.IsModificacionesPendientes(err) {
			return errorResponse(c, fiber.StatusUnprocessableEntity, "Version has unjustified modifications", "MODIFICACIONES_PENDIENTES", nil)
		}
		var businessErr *businessflow.BusinessError
		if businessflow.AsBusinessError(err, &businessErr) && businessErr.Code == "VERSION_NO_APROBABLE" {
			return errorResponse(c, fiber.StatusUnprocessableEntity, businessErr.Unwrap().Error(), businessErr.Code, nil)
		}

		log.Println("Version approval failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Version approval failed", "APROBACION_FAILED", nil)
	}

	middleware.RecordVersionResuelta("aprobada")
	return successResponse(c, fiber.StatusOK, "Version approved", result)
}

// RechazarVersion lets an authority reject a version
// @Summary Reject Version
// @Description Reject a schedule version with an observation
// @Tags Cronograma
// @Accept json
// @Produce json
// @Param uuid path string true "Version UUID"
// @Param request body dto.RechazarVersionRequest true "Observation"
// @Success 200 {object} dto.APIResponse{data=dto.VersionDetalleResponse} "Version rejected"
// @Failure 404 {object} dto.APIResponse "Version not found"
// @Failure 409 {object} dto.APIResponse "Version already resolved"
// @Router /api/v1/cronograma/versiones/{uuid}/rechazar [post]
func (h *CronogramaHandler) RechazarVersion(c fiber.Ctx) error {
	versionUUID := c.Params("uuid")

	var req dto.RechazarVersionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if errs := validationErrors(h.validator, &req); errs != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", errs)
	}

	autoridad, _ := middleware.GetUsuarioNombreFromContext(c)

	result, err := h.flow.RechazarVersion(createRequestContext(c, "/api/v1/cronograma/versiones/:uuid/rechazar"), versionUUID, &req, autoridad, clientMetadata(c))
	if err != nil {
		if businessflow.IsVersionNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "Version not found", "VERSION_NOT_FOUND", nil)
		}
		if businessflow.IsVersionYaResuelta(err) {
			return errorResponse(c, fiber.StatusConflict, "Version already resolved", "VERSION_YA_RESUELTA", nil)
		}

		log.Println("Version rejection failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Version rejection failed", "RECHAZO_FAILED", nil)
	}

	middleware.RecordVersionResuelta("rechazada")
	return successResponse(c, fiber.StatusOK, "Version rejected", result)
}

// ExportarVersion renders a version as xlsx or pdf
// @Summary Export Version
// @Description Export a schedule version report as XLSX or PDF
// @Tags Cronograma
// @Produce application/octet-stream
// @Param uuid path string true "Version UUID"
// @Param formato query string false "xlsx or pdf" default(xlsx)
// @Success 200 {file} binary "Version report"
// @Failure 404 {object} dto.APIResponse "Version not found"
// @Router /api/v1/cronograma/versiones/{uuid}/exportar [get]
func (h *CronogramaHandler) ExportarVersion(c fiber.Ctx) error {
	versionUUID := c.Params("uuid")
	formato := c.Query("formato", "xlsx")

	contenido, filename, err := h.flow.ExportarVersion(createRequestContext(c, "/api/v1/cronograma/versiones/:uuid/exportar"), versionUUID, formato)
	if err != nil {
		if businessflow.IsVersionNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "Version not found", "VERSION_NOT_FOUND", nil)
		}
		var businessErr *businessflow.BusinessError
		if businessflow.AsBusinessError(err, &businessErr) && businessErr.Code == "FORMATO_INVALIDO" {
			return errorResponse(c, fiber.StatusBadRequest, businessErr.Message, businessErr.Code, nil)
		}

		log.Println("Version export failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Version export failed", "EXPORT_FAILED", nil)
	}

	contentType := "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	if formato == "pdf" {
		contentType = "application/pdf"
	}
	middleware.RecordExportacion(formato)
	c.Set("Content-Type", contentType)
	c.Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	return c.Send(contenido)
}
