package dto

import "time"

// DashboardResumen aggregates portfolio-level indicators
type DashboardResumen struct {
	TotalComisarias      int64            `json:"total_comisarias"`
	PorEstado            map[string]int64 `json:"por_estado"`
	PresupuestoTotal     float64          `json:"presupuesto_total"`
	MontoEjecutado       float64          `json:"monto_ejecutado"`
	AvanceFisicoPromedio float64          `json:"avance_fisico_promedio"`
	ComisariasEnRiesgo   int              `json:"comisarias_en_riesgo"`
	GeneradoEn           time.Time        `json:"generado_en"`
}

// ComisariaRiesgoResponse scores a single station for the executive dashboard
type ComisariaRiesgoResponse struct {
	ComisariaID              uint       `json:"comisaria_id"`
	Codigo                   string     `json:"codigo"`
	Nombre                   string     `json:"nombre"`
	Departamento             string     `json:"departamento"`
	Estado                   string     `json:"estado"`
	AvanceFisico             float64    `json:"avance_fisico"`
	AvanceProgramado         float64    `json:"avance_programado"`
	DesviacionAvance         float64    `json:"desviacion_avance"`
	PartidasCriticas         int64      `json:"partidas_criticas"`
	TotalPartidas            int64      `json:"total_partidas"`
	ModificacionesPendientes int64      `json:"modificaciones_pendientes"`
	DiasSinReporte           *int       `json:"dias_sin_reporte,omitempty"`
	ScoreRiesgo              float64    `json:"score_riesgo"`
	NivelRiesgo              string     `json:"nivel_riesgo"`
	AccionesRecomendadas     []string   `json:"acciones_recomendadas"`
	UltimoReporte            *time.Time `json:"ultimo_reporte,omitempty"`
}

// DashboardResponse is the executive dashboard payload
type DashboardResponse struct {
	Resumen  DashboardResumen          `json:"resumen"`
	EnRiesgo []ComisariaRiesgoResponse `json:"en_riesgo"`
}
