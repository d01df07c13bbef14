package dto

import "time"

// CreateComisariaRequest represents the payload to register a station
type CreateComisariaRequest struct {
	Codigo                   string     `json:"codigo" validate:"required,len=7"`
	Nombre                   string     `json:"nombre" validate:"required,min=3,max=255"`
	Tipo                     string     `json:"tipo" validate:"required,oneof=basica sectorial comisaria especial"`
	Departamento             string     `json:"departamento" validate:"required,max=100"`
	Provincia                string     `json:"provincia" validate:"required,max=100"`
	Distrito                 string     `json:"distrito" validate:"required,max=100"`
	Direccion                string     `json:"direccion" validate:"required,max=500"`
	Latitud                  *float64   `json:"latitud,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitud                 *float64   `json:"longitud,omitempty" validate:"omitempty,gte=-180,lte=180"`
	FotoURL                  *string    `json:"foto_url,omitempty" validate:"omitempty,url,max=1000"`
	FechaInicioProgramada    *time.Time `json:"fecha_inicio_programada,omitempty"`
	FechaFinProgramada       *time.Time `json:"fecha_fin_programada,omitempty"`
	PersonalPNPAsignado      int        `json:"personal_pnp_asignado" validate:"gte=0"`
	AreaConstruccionM2       float64    `json:"area_construccion_m2" validate:"gte=0"`
	PresupuestoEquipamiento  float64    `json:"presupuesto_equipamiento" validate:"gte=0"`
	PresupuestoMantenimiento float64    `json:"presupuesto_mantenimiento" validate:"gte=0"`
}

// UpdateComisariaRequest represents the payload to update a station.
// Only non-nil fields are applied.
type UpdateComisariaRequest struct {
	Nombre                   *string    `json:"nombre,omitempty" validate:"omitempty,min=3,max=255"`
	Direccion                *string    `json:"direccion,omitempty" validate:"omitempty,max=500"`
	Latitud                  *float64   `json:"latitud,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitud                 *float64   `json:"longitud,omitempty" validate:"omitempty,gte=-180,lte=180"`
	FotoURL                  *string    `json:"foto_url,omitempty" validate:"omitempty,url,max=1000"`
	FechaInicioProgramada    *time.Time `json:"fecha_inicio_programada,omitempty"`
	FechaFinProgramada       *time.Time `json:"fecha_fin_programada,omitempty"`
	PersonalPNPAsignado      *int       `json:"personal_pnp_asignado,omitempty" validate:"omitempty,gte=0"`
	AreaConstruccionM2       *float64   `json:"area_construccion_m2,omitempty" validate:"omitempty,gt=0"`
	PresupuestoEquipamiento  *float64   `json:"presupuesto_equipamiento,omitempty" validate:"omitempty,gte=0"`
	PresupuestoMantenimiento *float64   `json:"presupuesto_mantenimiento,omitempty" validate:"omitempty,gte=0"`
}

// ComisariaResponse represents a station in API responses
type ComisariaResponse struct {
	ID                       uint       `json:"id"`
	Codigo                   string     `json:"codigo"`
	Nombre                   string     `json:"nombre"`
	Tipo                     string     `json:"tipo"`
	Estado                   string     `json:"estado"`
	Departamento             string     `json:"departamento"`
	Provincia                string     `json:"provincia"`
	Distrito                 string     `json:"distrito"`
	Direccion                string     `json:"direccion"`
	DireccionCompleta        string     `json:"direccion_completa"`
	Latitud                  float64    `json:"latitud"`
	Longitud                 float64    `json:"longitud"`
	GooglePlaceID            *string    `json:"google_place_id,omitempty"`
	FotoURL                  *string    `json:"foto_url,omitempty"`
	FechaInicioProgramada    *time.Time `json:"fecha_inicio_programada,omitempty"`
	FechaFinProgramada       *time.Time `json:"fecha_fin_programada,omitempty"`
	FechaInicioReal          *time.Time `json:"fecha_inicio_real,omitempty"`
	FechaFinReal             *time.Time `json:"fecha_fin_real,omitempty"`
	PersonalPNPAsignado      int        `json:"personal_pnp_asignado"`
	AreaConstruccionM2       float64    `json:"area_construccion_m2"`
	PresupuestoEquipamiento  float64    `json:"presupuesto_equipamiento"`
	PresupuestoMantenimiento float64    `json:"presupuesto_mantenimiento"`
	PresupuestoTotal         float64    `json:"presupuesto_total"`
	CreatedAt                time.Time  `json:"created_at"`
	UpdatedAt                *time.Time `json:"updated_at,omitempty"`
}

// ListComisariasRequest represents query filters for listing stations
type ListComisariasRequest struct {
	Estado       *string `query:"estado" validate:"omitempty,oneof=pendiente en_proceso completada suspendida"`
	Tipo         *string `query:"tipo" validate:"omitempty,oneof=basica sectorial comisaria especial"`
	Departamento *string `query:"departamento" validate:"omitempty,max=100"`
	Nombre       *string `query:"nombre" validate:"omitempty,max=255"`
	Page         int     `query:"page" validate:"omitempty,gte=1"`
	PageSize     int     `query:"page_size" validate:"omitempty,gte=1,lte=200"`
}

// GeocodeRequest represents an address resolution request
type GeocodeRequest struct {
	Direccion string `json:"direccion" validate:"required,min=5,max=500"`
}
