package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/nemaec/obra-erp/utils"
	"gorm.io/gorm"
)

// TipoContrato classifies what a contract covers
type TipoContrato string

const (
	ContratoEquipamiento  TipoContrato = "equipamiento"
	ContratoMantenimiento TipoContrato = "mantenimiento"
	ContratoMixto         TipoContrato = "mixto"
)

// String returns the string representation of the type
func (t TipoContrato) String() string {
	return string(t)
}

// Valid checks if the type is valid
func (t TipoContrato) Valid() bool {
	switch t {
	case ContratoEquipamiento, ContratoMantenimiento, ContratoMixto:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for TipoContrato
func (t *TipoContrato) Scan(value any) error {
	if value == nil {
		*t = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*t = TipoContrato(v)
	case []byte:
		*t = TipoContrato(string(v))
	default:
		return fmt.Errorf("cannot scan %T into TipoContrato", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for TipoContrato
func (t TipoContrato) Value() (driver.Value, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid TipoContrato: %s", t)
	}
	return string(t), nil
}

// EstadoContrato represents the lifecycle state of a contract
type EstadoContrato string

const (
	ContratoBorrador    EstadoContrato = "borrador"
	ContratoFirmado     EstadoContrato = "firmado"
	ContratoEnEjecucion EstadoContrato = "en_ejecucion"
	ContratoSuspendido  EstadoContrato = "suspendido"
	ContratoFinalizado  EstadoContrato = "finalizado"
	ContratoRescindido  EstadoContrato = "rescindido"
)

// String returns the string representation of the state
func (e EstadoContrato) String() string {
	return string(e)
}

// Valid checks if the state is valid
func (e EstadoContrato) Valid() bool {
	switch e {
	case ContratoBorrador, ContratoFirmado, ContratoEnEjecucion,
		ContratoSuspendido, ContratoFinalizado, ContratoRescindido:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for EstadoContrato
func (e *EstadoContrato) Scan(value any) error {
	if value == nil {
		*e = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*e = EstadoContrato(v)
	case []byte:
		*e = EstadoContrato(string(v))
	default:
		return fmt.Errorf("cannot scan %T into EstadoContrato", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for EstadoContrato
func (e EstadoContrato) Value() (driver.Value, error) {
	if !e.Valid() {
		return nil, fmt.Errorf("invalid EstadoContrato: %s", e)
	}
	return string(e), nil
}

// Contrato is an equipment or maintenance contract covering one or more
// stations
type Contrato struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Numero          string         `gorm:"size:50;not null;uniqueIndex:uk_contratos_numero" json:"numero"`
	Fecha           time.Time      `gorm:"not null" json:"fecha"`
	Tipo            TipoContrato   `gorm:"type:tipo_contrato;not null" json:"tipo"`
	Estado          EstadoContrato `gorm:"type:estado_contrato;not null;default:'borrador';index:idx_contratos_estado" json:"estado"`
	Contratante     string         `gorm:"size:255;not null;default:'NEMAEC'" json:"contratante"`
	Contratado      string         `gorm:"size:255;not null" json:"contratado"`
	RUCContratado   string         `gorm:"size:11;not null" json:"ruc_contratado"`
	ItemContratado  string         `gorm:"type:text;not null" json:"item_contratado"`
	PlazoDias       int            `gorm:"not null" json:"plazo_dias"`
	DiasAdicionales int            `gorm:"not null;default:0" json:"dias_adicionales"`
	MontoTotal      float64        `gorm:"type:numeric(14,2);not null;default:0" json:"monto_total"`
	Moneda          string         `gorm:"size:3;not null;default:'PEN'" json:"moneda"`
	FechaInicioReal *time.Time     `json:"fecha_inicio_real,omitempty"`
	FechaFinReal    *time.Time     `json:"fecha_fin_real,omitempty"`
	CreatedAt       time.Time      `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt       *time.Time     `json:"updated_at,omitempty"`

	// Relations
	Comisarias []ContratoComisaria `gorm:"foreignKey:ContratoID" json:"comisarias,omitempty"`
}

// TableName returns the table name for the model
func (Contrato) TableName() string {
	return "contratos"
}

// BeforeCreate is called before creating a new record
func (c *Contrato) BeforeCreate(tx *gorm.DB) error {
	if len(c.RUCContratado) != 11 {
		return fmt.Errorf("el RUC debe tener 11 digitos")
	}
	if c.PlazoDias <= 0 {
		return fmt.Errorf("el plazo debe ser mayor a cero")
	}
	if c.Estado == "" {
		c.Estado = ContratoBorrador
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (c *Contrato) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	c.UpdatedAt = &now
	return nil
}

// PlazoTotalDias returns the contract length including extensions.
func (c *Contrato) PlazoTotalDias() int {
	return c.PlazoDias + c.DiasAdicionales
}

// FechaFinProgramada returns the scheduled end date derived from the real
// start date and the total term, or nil when execution has not started.
func (c *Contrato) FechaFinProgramada() *time.Time {
	if c.FechaInicioReal == nil {
		return nil
	}
	fin := c.FechaInicioReal.AddDate(0, 0, c.PlazoTotalDias())
	return &fin
}

// EstaVencido reports whether a running contract passed its scheduled end.
func (c *Contrato) EstaVencido() bool {
	fin := c.FechaFinProgramada()
	if fin == nil {
		return false
	}
	return utils.UTCNow().After(*fin) && c.Estado == ContratoEnEjecucion
}

// PorcentajeTiempoTranscurrido returns how much of the term elapsed, capped
// at 100, or nil when execution has not started.
func (c *Contrato) PorcentajeTiempoTranscurrido() *float64 {
	if c.FechaInicioReal == nil {
		return nil
	}
	total := c.PlazoTotalDias()
	if total == 0 {
		return utils.ToPtr(100.0)
	}
	dias := utils.UTCNow().Sub(*c.FechaInicioReal).Hours() / 24
	if dias < 0 {
		dias = 0
	}
	pct := dias / float64(total) * 100
	if pct > 100 {
		pct = 100
	}
	return &pct
}

// Firmar marks a draft contract as signed.
func (c *Contrato) Firmar() error {
	if c.Estado != ContratoBorrador {
		return fmt.Errorf("solo un contrato en borrador puede firmarse (estado %s)", c.Estado)
	}
	c.Estado = ContratoFirmado
	return nil
}

// Iniciar moves a signed contract into execution.
func (c *Contrato) Iniciar(fechaInicio time.Time) error {
	if c.Estado != ContratoFirmado {
		return fmt.Errorf("solo un contrato firmado puede iniciar (estado %s)", c.Estado)
	}
	if len(c.Comisarias) == 0 {
		return fmt.Errorf("el contrato %s no tiene comisarias asignadas", c.Numero)
	}
	c.Estado = ContratoEnEjecucion
	c.FechaInicioReal = &fechaInicio
	return nil
}

// Finalizar closes a running contract.
func (c *Contrato) Finalizar(fechaFin time.Time) error {
	if c.Estado != ContratoEnEjecucion {
		return fmt.Errorf("solo se pueden finalizar contratos en ejecucion (estado %s)", c.Estado)
	}
	c.Estado = ContratoFinalizado
	c.FechaFinReal = &fechaFin
	return nil
}

// Suspender pauses a running contract.
func (c *Contrato) Suspender() error {
	if c.Estado != ContratoEnEjecucion {
		return fmt.Errorf("solo se pueden suspender contratos en ejecucion (estado %s)", c.Estado)
	}
	c.Estado = ContratoSuspendido
	return nil
}

// Reanudar resumes a suspended contract.
func (c *Contrato) Reanudar() error {
	if c.Estado != ContratoSuspendido {
		return fmt.Errorf("solo se pueden reanudar contratos suspendidos (estado %s)", c.Estado)
	}
	c.Estado = ContratoEnEjecucion
	return nil
}

// AmpliarPlazo extends the term of a contract that has not closed yet.
func (c *Contrato) AmpliarPlazo(dias int) error {
	if dias <= 0 {
		return fmt.Errorf("los dias adicionales deben ser mayores a cero")
	}
	if c.Estado == ContratoFinalizado || c.Estado == ContratoRescindido {
		return fmt.Errorf("no se puede ampliar el plazo de un contrato en estado %s", c.Estado)
	}
	c.DiasAdicionales += dias
	return nil
}

// Rescindir terminates a running or suspended contract for breach.
func (c *Contrato) Rescindir() error {
	if c.Estado != ContratoEnEjecucion && c.Estado != ContratoSuspendido {
		return fmt.Errorf("no se puede rescindir contrato en estado %s", c.Estado)
	}
	c.Estado = ContratoRescindido
	return nil
}

// ContratoComisaria assigns part of a contract's amount to one station
type ContratoComisaria struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	ContratoID  uint    `gorm:"not null;index:idx_contrato_comisarias_contrato_id;uniqueIndex:uk_contrato_comisaria" json:"contrato_id"`
	ComisariaID uint    `gorm:"not null;uniqueIndex:uk_contrato_comisaria" json:"comisaria_id"`
	Monto       float64 `gorm:"type:numeric(14,2);not null" json:"monto"`
	Activa      bool    `gorm:"not null;default:true" json:"activa"`

	// Relations
	Comisaria *Comisaria `gorm:"foreignKey:ComisariaID;references:ID" json:"comisaria,omitempty"`
}

// TableName returns the table name for the model
func (ContratoComisaria) TableName() string {
	return "contrato_comisarias"
}

// BeforeCreate is called before creating a new record
func (cc *ContratoComisaria) BeforeCreate(tx *gorm.DB) error {
	if cc.Monto <= 0 {
		return fmt.Errorf("el monto asignado debe ser mayor a cero")
	}
	return nil
}

// ContratoFilter represents filter criteria for contracts
type ContratoFilter struct {
	ID          *uint           `json:"id,omitempty"`
	Numero      *string         `json:"numero,omitempty"`
	Tipo        *TipoContrato   `json:"tipo,omitempty"`
	Estado      *EstadoContrato `json:"estado,omitempty"`
	ComisariaID *uint           `json:"comisaria_id,omitempty"`
	FechaAfter  *time.Time      `json:"fecha_after,omitempty"`
	FechaBefore *time.Time      `json:"fecha_before,omitempty"`
}
