package dto

import "time"

// CreateContratoRequest represents the payload to register a contract
type CreateContratoRequest struct {
	Numero         string              `json:"numero" validate:"required,min=3,max=50"`
	Fecha          time.Time           `json:"fecha" validate:"required"`
	Tipo           string              `json:"tipo" validate:"required,oneof=equipamiento mantenimiento mixto"`
	Contratado     string              `json:"contratado" validate:"required,min=3,max=255"`
	RUCContratado  string              `json:"ruc_contratado" validate:"required,len=11,numeric"`
	ItemContratado string              `json:"item_contratado" validate:"required,min=3"`
	MontoTotal     float64             `json:"monto_total" validate:"required,gt=0"`
	PlazoDias      int                 `json:"plazo_dias" validate:"required,gt=0"`
	Comisarias     []ContratoComisaria `json:"comisarias" validate:"required,min=1,dive"`
}

// ContratoComisaria assigns a portion of the contract amount to a station
type ContratoComisaria struct {
	ComisariaID uint    `json:"comisaria_id" validate:"required"`
	Monto       float64 `json:"monto" validate:"required,gt=0"`
}

// ContratoResponse represents a contract in API responses
type ContratoResponse struct {
	ID                 uint                        `json:"id"`
	Numero             string                      `json:"numero"`
	Fecha              time.Time                   `json:"fecha"`
	Tipo               string                      `json:"tipo"`
	Estado             string                      `json:"estado"`
	Contratante        string                      `json:"contratante"`
	Contratado         string                      `json:"contratado"`
	RUCContratado      string                      `json:"ruc_contratado"`
	ItemContratado     string                      `json:"item_contratado"`
	MontoTotal         float64                     `json:"monto_total"`
	Moneda             string                      `json:"moneda"`
	PlazoDias          int                         `json:"plazo_dias"`
	DiasAdicionales    int                         `json:"dias_adicionales"`
	PlazoTotalDias     int                         `json:"plazo_total_dias"`
	FechaInicioReal    *time.Time                  `json:"fecha_inicio_real,omitempty"`
	FechaFinReal       *time.Time                  `json:"fecha_fin_real,omitempty"`
	FechaFinProgramada *time.Time                  `json:"fecha_fin_programada,omitempty"`
	PorcentajeTiempo   *float64                    `json:"porcentaje_tiempo_transcurrido,omitempty"`
	EstaVencido        bool                        `json:"esta_vencido"`
	Comisarias         []ContratoComisariaResponse `json:"comisarias,omitempty"`
	CreatedAt          time.Time                   `json:"created_at"`
}

// ContratoComisariaResponse represents a contract-station assignment
type ContratoComisariaResponse struct {
	ComisariaID uint    `json:"comisaria_id"`
	Codigo      string  `json:"codigo,omitempty"`
	Nombre      string  `json:"nombre,omitempty"`
	Monto       float64 `json:"monto"`
}

// ListContratosRequest represents query filters for listing contracts
type ListContratosRequest struct {
	Estado      *string `query:"estado" validate:"omitempty,oneof=borrador firmado en_ejecucion suspendido finalizado rescindido"`
	Tipo        *string `query:"tipo" validate:"omitempty,oneof=equipamiento mantenimiento mixto"`
	ComisariaID *uint   `query:"comisaria_id"`
}

// AmpliarPlazoRequest extends a contract deadline
type AmpliarPlazoRequest struct {
	DiasAdicionales int    `json:"dias_adicionales" validate:"required,gt=0"`
	Motivo          string `json:"motivo" validate:"required,min=10,max=2000"`
}
