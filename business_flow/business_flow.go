// Package businessflow contains the business logic for the application.
package businessflow

import (
	"context"
	"time"

	"github.com/nemaec/obra-erp/app/dto"
	"github.com/nemaec/obra-erp/models"
	"github.com/nemaec/obra-erp/repository"
	"github.com/nemaec/obra-erp/utils"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds all client-related information for audit logging
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// logAudit persists one audit entry for a business action. Failures are
// reported to the caller but never block the action itself.
func logAudit(ctx context.Context, auditRepo repository.AuditLogRepository, action, description string, success bool, errMsg *string, metadata *ClientMetadata) error {
	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		Action:       action,
		Description:  &description,
		Success:      utils.ToPtr(success),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		ErrorMessage: errMsg,
	}

	requestID := ctx.Value(RequestIDKey)
	if requestID != nil {
		if requestIDStr, ok := requestID.(string); ok {
			audit.RequestID = &requestIDStr
		}
	}

	return auditRepo.Save(ctx, audit)
}

// ToUsuarioInfo converts a user model for authentication responses
func ToUsuarioInfo(usuario models.Usuario) dto.UsuarioInfo {
	return dto.UsuarioInfo{
		ID:             usuario.ID,
		UUID:           usuario.UUID.String(),
		Email:          usuario.Email,
		NombreCompleto: usuario.NombreCompleto,
		Rol:            usuario.Rol.String(),
		IsActive:       usuario.IsActive,
		CreatedAt:      usuario.CreatedAt.Format(time.RFC3339),
	}
}

// ToComisariaResponse converts a station model for API responses
func ToComisariaResponse(c models.Comisaria) dto.ComisariaResponse {
	return dto.ComisariaResponse{
		ID:                       c.ID,
		Codigo:                   c.Codigo,
		Nombre:                   c.Nombre,
		Tipo:                     c.Tipo.String(),
		Estado:                   c.Estado.String(),
		Departamento:             c.Departamento,
		Provincia:                c.Provincia,
		Distrito:                 c.Distrito,
		Direccion:                c.Direccion,
		DireccionCompleta:        c.DireccionCompleta(),
		Latitud:                  c.Latitud,
		Longitud:                 c.Longitud,
		GooglePlaceID:            c.GooglePlaceID,
		FotoURL:                  c.FotoURL,
		FechaInicioProgramada:    c.FechaInicioProgramada,
		FechaFinProgramada:       c.FechaFinProgramada,
		FechaInicioReal:          c.FechaInicioReal,
		FechaFinReal:             c.FechaFinReal,
		PersonalPNPAsignado:      c.PersonalPNPAsignado,
		AreaConstruccionM2:       c.AreaConstruccionM2,
		PresupuestoEquipamiento:  c.PresupuestoEquipamiento,
		PresupuestoMantenimiento: c.PresupuestoMantenimiento,
		PresupuestoTotal:         c.PresupuestoTotal(),
		CreatedAt:                c.CreatedAt,
		UpdatedAt:                c.UpdatedAt,
	}
}

// ToAvanceResponse converts a progress report for API responses
func ToAvanceResponse(a models.AvancePartida) dto.AvanceResponse {
	return dto.AvanceResponse{
		ID:               a.ID,
		PartidaID:        a.PartidaID,
		Fecha:            a.Fecha,
		AvanceFisico:     a.AvanceFisico,
		AvanceProgramado: a.AvanceProgramado,
		Desviacion:       a.Desviacion(),
		Observaciones:    a.Observaciones,
		ReportadoPor:     a.ReportadoPor,
	}
}

// ToPartidaResponse converts a partida with its derived progress state
func ToPartidaResponse(p models.Partida, conAvances bool) dto.PartidaResponse {
	resp := dto.PartidaResponse{
		ID:              p.ID,
		ComisariaID:     p.ComisariaID,
		Codigo:          p.Codigo,
		CodigoInterno:   p.CodigoInterno,
		Descripcion:     p.Descripcion,
		Unidad:          p.Unidad,
		Metrado:         p.Metrado,
		PrecioUnitario:  p.PrecioUnitario,
		PrecioTotal:     p.PrecioTotal,
		Estado:          p.Estado.String(),
		NivelJerarquico: p.NivelJerarquico(),
		EsTitulo:        p.EsTitulo(),
		Desviacion:      p.DesviacionActual(),
		Criticidad:      p.CriticidadActual().String(),
		Tendencia:       p.TendenciaActual().String(),
		MontoEjecutado:  p.MontoEjecutado(),
	}
	if ultimo := p.UltimoAvance(); ultimo != nil {
		av := ToAvanceResponse(*ultimo)
		resp.UltimoAvance = &av
	}
	if conAvances {
		resp.Avances = make([]dto.AvanceResponse, 0, len(p.Avances))
		for _, a := range p.Avances {
			resp.Avances = append(resp.Avances, ToAvanceResponse(a))
		}
	}
	return resp
}

// ToModificacionResponse converts a budget modification for API responses
func ToModificacionResponse(m models.Modificacion) dto.ModificacionResponse {
	return dto.ModificacionResponse{
		ID:                   m.ID,
		Tipo:                 m.Tipo.String(),
		Estado:               m.Estado.String(),
		CodigoPartida:        m.CodigoPartida,
		DescripcionAnterior:  m.DescripcionAnterior,
		DescripcionNueva:     m.DescripcionNueva,
		MontoAnterior:        m.MontoAnterior,
		MontoNuevo:           m.MontoNuevo,
		ImpactoPresupuestal:  m.ImpactoPresupuestal,
		CamposModificados:    m.CamposModificados,
		PartidaEliminada:     m.PartidaEliminada,
		Justificacion:        m.Justificacion,
		DocumentosSustento:   m.DocumentosSustento,
		ObservacionAutoridad: m.ObservacionAutoridad,
		DetectadaEn:          m.DetectadaEn,
		ResueltaEn:           m.ResueltaEn,
	}
}

// ToVersionResponse converts a schedule version for API responses
func ToVersionResponse(v models.CronogramaVersion) dto.VersionResponse {
	return dto.VersionResponse{
		ID:                  v.ID,
		UUID:                v.UUID.String(),
		ComisariaID:         v.ComisariaID,
		NumeroVersion:       v.NumeroVersion,
		NombreVersion:       v.NombreVersion,
		DescripcionCambios:  v.DescripcionCambios,
		Estado:              v.Estado.String(),
		EsVersionActual:     v.EsVersionActual,
		TotalPartidas:       v.TotalPartidas,
		TotalPresupuesto:    v.TotalPresupuesto,
		TotalReducciones:    v.TotalReducciones,
		TotalAdicionales:    v.TotalAdicionales,
		BalancePresupuestal: v.BalancePresupuestal,
		MonitorResponsable:  v.MonitorResponsable,
		AprobadaPor:         v.AprobadaPor,
		ObservacionRechazo:  v.ObservacionRechazo,
		FechaResolucion:     v.FechaResolucion,
		CreatedAt:           v.CreatedAt,
	}
}

// ToVersionDetalleResponse converts a version with its modifications expanded
func ToVersionDetalleResponse(v models.CronogramaVersion) dto.VersionDetalleResponse {
	resp := dto.VersionDetalleResponse{
		VersionResponse: ToVersionResponse(v),
		Modificaciones:  make([]dto.ModificacionResponse, 0, len(v.Modificaciones)),
	}
	for _, m := range v.Modificaciones {
		resp.Modificaciones = append(resp.Modificaciones, ToModificacionResponse(m))
	}
	return resp
}

// ToContratoResponse converts a contract for API responses
func ToContratoResponse(c models.Contrato) dto.ContratoResponse {
	resp := dto.ContratoResponse{
		ID:                 c.ID,
		Numero:             c.Numero,
		Fecha:              c.Fecha,
		Tipo:               c.Tipo.String(),
		Estado:             c.Estado.String(),
		Contratante:        c.Contratante,
		Contratado:         c.Contratado,
		RUCContratado:      c.RUCContratado,
		ItemContratado:     c.ItemContratado,
		MontoTotal:         c.MontoTotal,
		Moneda:             c.Moneda,
		PlazoDias:          c.PlazoDias,
		DiasAdicionales:    c.DiasAdicionales,
		PlazoTotalDias:     c.PlazoTotalDias(),
		FechaInicioReal:    c.FechaInicioReal,
		FechaFinReal:       c.FechaFinReal,
		FechaFinProgramada: c.FechaFinProgramada(),
		PorcentajeTiempo:   c.PorcentajeTiempoTranscurrido(),
		EstaVencido:        c.EstaVencido(),
		CreatedAt:          c.CreatedAt,
	}
	for _, cc := range c.Comisarias {
		item := dto.ContratoComisariaResponse{
			ComisariaID: cc.ComisariaID,
			Monto:       cc.Monto,
		}
		if cc.Comisaria != nil {
			item.Codigo = cc.Comisaria.Codigo
			item.Nombre = cc.Comisaria.Nombre
		}
		resp.Comisarias = append(resp.Comisarias, item)
	}
	return resp
}
