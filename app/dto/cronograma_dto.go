package dto

import "time"

// DetectarCambiosRequest carries the multipart form fields that accompany
// the uploaded schedule workbook
type DetectarCambiosRequest struct {
	NombreVersion      string  `form:"nombre_version" validate:"required,min=3,max=255"`
	DescripcionCambios *string `form:"descripcion_cambios" validate:"omitempty,max=2000"`
}

// ModificacionResponse represents a detected budget modification
type ModificacionResponse struct {
	ID                   uint       `json:"id,omitempty"`
	Tipo                 string     `json:"tipo"`
	Estado               string     `json:"estado"`
	CodigoPartida        string     `json:"codigo_partida"`
	DescripcionAnterior  *string    `json:"descripcion_anterior,omitempty"`
	DescripcionNueva     *string    `json:"descripcion_nueva,omitempty"`
	MontoAnterior        float64    `json:"monto_anterior"`
	MontoNuevo           float64    `json:"monto_nuevo"`
	ImpactoPresupuestal  float64    `json:"impacto_presupuestal"`
	CamposModificados    []string   `json:"campos_modificados,omitempty"`
	PartidaEliminada     *string    `json:"partida_eliminada,omitempty"`
	Justificacion        *string    `json:"justificacion,omitempty"`
	DocumentosSustento   []string   `json:"documentos_sustento,omitempty"`
	ObservacionAutoridad *string    `json:"observacion_autoridad,omitempty"`
	DetectadaEn          time.Time  `json:"detectada_en"`
	ResueltaEn           *time.Time `json:"resuelta_en,omitempty"`
}

// ComparacionResumen summarizes a schedule comparison
type ComparacionResumen struct {
	PartidasEliminadas  int     `json:"partidas_eliminadas"`
	PartidasNuevas      int     `json:"partidas_nuevas"`
	PartidasModificadas int     `json:"partidas_modificadas"`
	ImpactoReducciones  float64 `json:"impacto_reducciones"`
	ImpactoAdicionales  float64 `json:"impacto_adicionales"`
	BalancePreliminar   float64 `json:"balance_preliminar"`
}

// ValidacionEquilibrioResponse reports the budget balance check
type ValidacionEquilibrioResponse struct {
	EstaEquilibrado  bool     `json:"esta_equilibrado"`
	TotalReducciones float64  `json:"total_reducciones"`
	TotalAdicionales float64  `json:"total_adicionales"`
	Balance          float64  `json:"balance"`
	Alertas          []string `json:"alertas"`
}

// DetectarCambiosResponse is the payload returned after change detection
type DetectarCambiosResponse struct {
	Token          string                       `json:"token"`
	ExpiraEn       int                          `json:"expira_en"`
	Resumen        ComparacionResumen           `json:"resumen"`
	Modificaciones []ModificacionResponse       `json:"modificaciones"`
	Validacion     ValidacionEquilibrioResponse `json:"validacion"`
	Advertencias   []string                     `json:"advertencias,omitempty"`
}

// SugerenciasResponse carries rebalancing suggestions for a pending comparison
type SugerenciasResponse struct {
	Token       string   `json:"token"`
	Sugerencias []string `json:"sugerencias"`
}

// ConfirmarModificacionRequest justifies a single detected modification
type ConfirmarModificacionRequest struct {
	Justificacion      string   `json:"justificacion" validate:"required,min=10,max=2000"`
	DocumentosSustento []string `json:"documentos_sustento,omitempty" validate:"omitempty,dive,url"`
}

// ConfirmarVersionRequest persists a pending comparison as a new version
type ConfirmarVersionRequest struct {
	Token string `json:"token" validate:"required,uuid4"`
}

// RechazarVersionRequest rejects a version with a mandatory observation
type RechazarVersionRequest struct {
	Observacion string `json:"observacion" validate:"required,min=10,max=2000"`
}

// VersionResponse represents a schedule version in API responses
type VersionResponse struct {
	ID                  uint       `json:"id"`
	UUID                string     `json:"uuid"`
	ComisariaID         uint       `json:"comisaria_id"`
	NumeroVersion       int        `json:"numero_version"`
	NombreVersion       string     `json:"nombre_version"`
	DescripcionCambios  *string    `json:"descripcion_cambios,omitempty"`
	Estado              string     `json:"estado"`
	EsVersionActual     bool       `json:"es_version_actual"`
	TotalPartidas       int        `json:"total_partidas"`
	TotalPresupuesto    float64    `json:"total_presupuesto"`
	TotalReducciones    float64    `json:"total_reducciones"`
	TotalAdicionales    float64    `json:"total_adicionales"`
	BalancePresupuestal float64    `json:"balance_presupuestal"`
	MonitorResponsable  *string    `json:"monitor_responsable,omitempty"`
	AprobadaPor         *string    `json:"aprobada_por,omitempty"`
	ObservacionRechazo  *string    `json:"observacion_rechazo,omitempty"`
	FechaResolucion     *time.Time `json:"fecha_resolucion,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

// VersionDetalleResponse is a version with its modifications expanded
type VersionDetalleResponse struct {
	VersionResponse
	Modificaciones []ModificacionResponse `json:"modificaciones"`
}
