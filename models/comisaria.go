package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/nemaec/obra-erp/utils"
	"gorm.io/gorm"
)

// EstadoComisaria represents the intervention state of a station
type EstadoComisaria string

const (
	ComisariaPendiente  EstadoComisaria = "pendiente"
	ComisariaEnProceso  EstadoComisaria = "en_proceso"
	ComisariaCompletada EstadoComisaria = "completada"
	ComisariaSuspendida EstadoComisaria = "suspendida"
)

// String returns the string representation of the state
func (e EstadoComisaria) String() string {
	return string(e)
}

// Valid checks if the state is valid
func (e EstadoComisaria) Valid() bool {
	switch e {
	case ComisariaPendiente, ComisariaEnProceso, ComisariaCompletada, ComisariaSuspendida:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for EstadoComisaria
func (e *EstadoComisaria) Scan(value any) error {
	if value == nil {
		*e = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*e = EstadoComisaria(v)
	case []byte:
		*e = EstadoComisaria(string(v))
	default:
		return fmt.Errorf("cannot scan %T into EstadoComisaria", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for EstadoComisaria
func (e EstadoComisaria) Value() (driver.Value, error) {
	if !e.Valid() {
		return nil, fmt.Errorf("invalid EstadoComisaria: %s", e)
	}
	return string(e), nil
}

// TipoComisaria classifies a station per PNP nomenclature
type TipoComisaria string

const (
	ComisariaBasica    TipoComisaria = "basica"
	ComisariaSectorial TipoComisaria = "sectorial"
	ComisariaComisaria TipoComisaria = "comisaria"
	ComisariaEspecial  TipoComisaria = "especial"
)

// String returns the string representation of the type
func (t TipoComisaria) String() string {
	return string(t)
}

// Valid checks if the type is valid
func (t TipoComisaria) Valid() bool {
	switch t {
	case ComisariaBasica, ComisariaSectorial, ComisariaComisaria, ComisariaEspecial:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for TipoComisaria
func (t *TipoComisaria) Scan(value any) error {
	if value == nil {
		*t = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*t = TipoComisaria(v)
	case []byte:
		*t = TipoComisaria(string(v))
	default:
		return fmt.Errorf("cannot scan %T into TipoComisaria", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for TipoComisaria
func (t TipoComisaria) Value() (driver.Value, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid TipoComisaria: %s", t)
	}
	return string(t), nil
}

// Comisaria is one police station under intervention
type Comisaria struct {
	ID     uint            `gorm:"primaryKey" json:"id"`
	Codigo string          `gorm:"size:20;not null;uniqueIndex:uk_comisarias_codigo" json:"codigo"`
	Nombre string          `gorm:"size:255;not null" json:"nombre"`
	Tipo   TipoComisaria   `gorm:"type:tipo_comisaria;not null" json:"tipo"`
	Estado EstadoComisaria `gorm:"type:estado_comisaria;not null;default:'pendiente';index:idx_comisarias_estado" json:"estado"`

	// Location
	Departamento  string   `gorm:"size:100;not null" json:"departamento"`
	Provincia     string   `gorm:"size:100;not null" json:"provincia"`
	Distrito      string   `gorm:"size:100;not null" json:"distrito"`
	Direccion     string   `gorm:"size:255;not null" json:"direccion"`
	Latitud       float64 `gorm:"type:numeric(10,6)" json:"latitud"`
	Longitud      float64 `gorm:"type:numeric(10,6)" json:"longitud"`
	GooglePlaceID *string `gorm:"size:255" json:"google_place_id,omitempty"`
	FotoURL       *string `gorm:"size:512" json:"foto_url,omitempty"`

	// Project dates
	FechaInicioProgramada *time.Time `json:"fecha_inicio_programada,omitempty"`
	FechaInicioReal       *time.Time `json:"fecha_inicio_real,omitempty"`
	FechaFinProgramada    *time.Time `json:"fecha_fin_programada,omitempty"`
	FechaFinReal          *time.Time `json:"fecha_fin_real,omitempty"`

	// Operational data
	PersonalPNPAsignado      int     `gorm:"not null;default:0" json:"personal_pnp_asignado"`
	AreaConstruccionM2       float64 `gorm:"type:numeric(10,2);not null;default:0" json:"area_construccion_m2"`
	PresupuestoEquipamiento  float64 `gorm:"type:numeric(14,2);not null;default:0" json:"presupuesto_equipamiento"`
	PresupuestoMantenimiento float64 `gorm:"type:numeric(14,2);not null;default:0" json:"presupuesto_mantenimiento"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`

	// Relations
	Partidas  []Partida           `gorm:"foreignKey:ComisariaID" json:"partidas,omitempty"`
	Versiones []CronogramaVersion `gorm:"foreignKey:ComisariaID" json:"versiones,omitempty"`
}

// TableName returns the table name for the model
func (Comisaria) TableName() string {
	return "comisarias"
}

// BeforeCreate is called before creating a new record
func (c *Comisaria) BeforeCreate(tx *gorm.DB) error {
	if !utils.IsValidCodigoComisaria(c.Codigo) {
		return fmt.Errorf("codigo de comisaria invalido: %s (se espera COM-XXX)", c.Codigo)
	}
	if c.Estado == "" {
		c.Estado = ComisariaPendiente
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (c *Comisaria) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	c.UpdatedAt = &now
	return nil
}

// DireccionCompleta returns the full formatted address.
func (c *Comisaria) DireccionCompleta() string {
	return fmt.Sprintf("%s, %s, %s, %s", c.Direccion, c.Distrito, c.Provincia, c.Departamento)
}

// PresupuestoTotal returns equipment plus maintenance budget.
func (c *Comisaria) PresupuestoTotal() float64 {
	return c.PresupuestoEquipamiento + c.PresupuestoMantenimiento
}

// EstaEnEjecucion reports whether the works are currently running.
func (c *Comisaria) EstaEnEjecucion() bool {
	return c.Estado == ComisariaEnProceso
}

// PuedeIniciarObra reports whether the station satisfies the preconditions
// to start works.
func (c *Comisaria) PuedeIniciarObra() bool {
	return c.Estado == ComisariaPendiente &&
		c.PresupuestoTotal() > 0 &&
		c.FechaInicioProgramada != nil
}

// DiasProgramados returns the scheduled project length in days, or nil when
// the schedule dates are incomplete.
func (c *Comisaria) DiasProgramados() *int {
	if c.FechaInicioProgramada == nil || c.FechaFinProgramada == nil {
		return nil
	}
	dias := int(c.FechaFinProgramada.Sub(*c.FechaInicioProgramada).Hours() / 24)
	return &dias
}

// EstaRetrasada reports whether the scheduled end date passed without
// completion.
func (c *Comisaria) EstaRetrasada() bool {
	if c.FechaFinProgramada == nil {
		return false
	}
	return utils.UTCNow().After(*c.FechaFinProgramada) && c.Estado != ComisariaCompletada
}

// IniciarObra moves the station into execution.
func (c *Comisaria) IniciarObra(fechaInicio time.Time) error {
	if !c.PuedeIniciarObra() {
		return fmt.Errorf("la comisaria %s no puede iniciar obra (estado %s)", c.Codigo, c.Estado)
	}
	c.Estado = ComisariaEnProceso
	c.FechaInicioReal = &fechaInicio
	return nil
}

// CompletarObra marks the works as finished.
func (c *Comisaria) CompletarObra(fechaFin time.Time) error {
	if c.Estado != ComisariaEnProceso {
		return fmt.Errorf("solo se pueden completar obras en proceso (estado %s)", c.Estado)
	}
	c.Estado = ComisariaCompletada
	c.FechaFinReal = &fechaFin
	return nil
}

// SuspenderObra suspends pending or running works.
func (c *Comisaria) SuspenderObra() error {
	if c.Estado != ComisariaPendiente && c.Estado != ComisariaEnProceso {
		return fmt.Errorf("no se puede suspender obra en estado %s", c.Estado)
	}
	c.Estado = ComisariaSuspendida
	return nil
}

// ComisariaFilter represents filter criteria for stations
type ComisariaFilter struct {
	ID           *uint            `json:"id,omitempty"`
	Codigo       *string          `json:"codigo,omitempty"`
	Nombre       *string          `json:"nombre,omitempty"`
	Tipo         *TipoComisaria   `json:"tipo,omitempty"`
	Estado       *EstadoComisaria `json:"estado,omitempty"`
	Departamento *string          `json:"departamento,omitempty"`
	Provincia    *string          `json:"provincia,omitempty"`
	Distrito     *string          `json:"distrito,omitempty"`
}
