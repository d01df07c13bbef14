package dto

import "time"

// ImportarPartidasResponse reports the outcome of an Excel import
type ImportarPartidasResponse struct {
	ComisariaID        uint     `json:"comisaria_id"`
	PartidasImportadas int      `json:"partidas_importadas"`
	PresupuestoTotal   float64  `json:"presupuesto_total"`
	Advertencias       []string `json:"advertencias,omitempty"`
}

// RegistrarAvanceRequest records a progress report for a partida
type RegistrarAvanceRequest struct {
	Fecha            time.Time `json:"fecha" validate:"required"`
	AvanceFisico     float64   `json:"avance_fisico" validate:"gte=0,lte=100"`
	AvanceProgramado float64   `json:"avance_programado" validate:"gte=0,lte=100"`
	Observaciones    *string   `json:"observaciones,omitempty" validate:"omitempty,max=2000"`
}

// AvanceResponse represents a progress report in API responses
type AvanceResponse struct {
	ID               uint      `json:"id"`
	PartidaID        uint      `json:"partida_id"`
	Fecha            time.Time `json:"fecha"`
	AvanceFisico     float64   `json:"avance_fisico"`
	AvanceProgramado float64   `json:"avance_programado"`
	Desviacion       float64   `json:"desviacion"`
	Observaciones    *string   `json:"observaciones,omitempty"`
	ReportadoPor     *string   `json:"reportado_por,omitempty"`
}

// PartidaResponse represents a partida with its derived progress state
type PartidaResponse struct {
	ID              uint             `json:"id"`
	ComisariaID     uint             `json:"comisaria_id"`
	Codigo          string           `json:"codigo"`
	CodigoInterno   *string          `json:"codigo_interno,omitempty"`
	Descripcion     string           `json:"descripcion"`
	Unidad          string           `json:"unidad"`
	Metrado         float64          `json:"metrado"`
	PrecioUnitario  float64          `json:"precio_unitario"`
	PrecioTotal     float64          `json:"precio_total"`
	Estado          string           `json:"estado"`
	NivelJerarquico int              `json:"nivel_jerarquico"`
	EsTitulo        bool             `json:"es_titulo"`
	Desviacion      float64          `json:"desviacion"`
	Criticidad      string           `json:"criticidad"`
	Tendencia       string           `json:"tendencia"`
	MontoEjecutado  float64          `json:"monto_ejecutado"`
	UltimoAvance    *AvanceResponse  `json:"ultimo_avance,omitempty"`
	Avances         []AvanceResponse `json:"avances,omitempty"`
}

// ListPartidasRequest represents query filters for listing partidas
type ListPartidasRequest struct {
	Criticidad *string `query:"criticidad" validate:"omitempty,oneof=normal atencion critica"`
	Estado     *string `query:"estado" validate:"omitempty,oneof=no_iniciada en_proceso completada suspendida"`
	Nivel      *int    `query:"nivel" validate:"omitempty,gte=1,lte=6"`
}
