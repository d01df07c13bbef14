package models

import (
	"database/sql/driver"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/nemaec/obra-erp/utils"
	"gorm.io/gorm"
)

// codigoPartidaPattern matches hierarchical work item codes such as "01",
// "01.02" or "01.02.03"
var codigoPartidaPattern = regexp.MustCompile(`^\d{2}(\.\d{2})*$`)

// ValidarCodigoPartida checks that a work item code follows the hierarchical
// two-digit dotted format.
func ValidarCodigoPartida(codigo string) bool {
	return codigoPartidaPattern.MatchString(codigo)
}

// Criticidad grades how far a work item's physical progress lags its
// scheduled progress
type Criticidad string

const (
	CriticidadNormal   Criticidad = "normal"
	CriticidadAtencion Criticidad = "atencion"
	CriticidadCritica  Criticidad = "critica"
)

// String returns the string representation of the grade
func (c Criticidad) String() string {
	return string(c)
}

// CriticidadPorDesviacion grades a deviation in percentage points between
// scheduled and physical progress.
func CriticidadPorDesviacion(desviacion float64) Criticidad {
	if desviacion < 0 {
		desviacion = -desviacion
	}
	switch {
	case desviacion >= utils.UmbralCritica:
		return CriticidadCritica
	case desviacion >= utils.UmbralAtencion:
		return CriticidadAtencion
	default:
		return CriticidadNormal
	}
}

// Tendencia describes how a work item's deviation moved between the last
// two progress reports
type Tendencia string

const (
	TendenciaMejorando  Tendencia = "mejorando"
	TendenciaEstable    Tendencia = "estable"
	TendenciaEmpeorando Tendencia = "empeorando"
)

// String returns the string representation of the trend
func (t Tendencia) String() string {
	return string(t)
}

// EstadoPartida represents the execution state of a work item
type EstadoPartida string

const (
	PartidaNoIniciada EstadoPartida = "no_iniciada"
	PartidaEnProceso  EstadoPartida = "en_proceso"
	PartidaCompletada EstadoPartida = "completada"
	PartidaSuspendida EstadoPartida = "suspendida"
)

// String returns the string representation of the state
func (e EstadoPartida) String() string {
	return string(e)
}

// Valid checks if the state is valid
func (e EstadoPartida) Valid() bool {
	switch e {
	case PartidaNoIniciada, PartidaEnProceso, PartidaCompletada, PartidaSuspendida:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for EstadoPartida
func (e *EstadoPartida) Scan(value any) error {
	if value == nil {
		*e = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*e = EstadoPartida(v)
	case []byte:
		*e = EstadoPartida(string(v))
	default:
		return fmt.Errorf("cannot scan %T into EstadoPartida", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for EstadoPartida
func (e EstadoPartida) Value() (driver.Value, error) {
	if !e.Valid() {
		return nil, fmt.Errorf("invalid EstadoPartida: %s", e)
	}
	return string(e), nil
}

// Partida is one budgeted work item of a station's current schedule
type Partida struct {
	ID             uint          `gorm:"primaryKey" json:"id"`
	ComisariaID    uint          `gorm:"not null;index:idx_partidas_comisaria_id;uniqueIndex:uk_partidas_comisaria_codigo" json:"comisaria_id"`
	Codigo         string        `gorm:"size:50;not null;uniqueIndex:uk_partidas_comisaria_codigo" json:"codigo"`
	CodigoInterno  *string       `gorm:"size:50" json:"codigo_interno,omitempty"`
	Descripcion    string        `gorm:"type:text;not null" json:"descripcion"`
	Unidad         string        `gorm:"size:20;not null;default:'UND'" json:"unidad"`
	Metrado        float64       `gorm:"type:numeric(14,4);not null;default:0" json:"metrado"`
	PrecioUnitario float64       `gorm:"type:numeric(14,2);not null;default:0" json:"precio_unitario"`
	PrecioTotal    float64       `gorm:"type:numeric(14,2);not null;default:0" json:"precio_total"`
	Estado         EstadoPartida `gorm:"type:estado_partida;not null;default:'no_iniciada'" json:"estado"`
	CreatedAt      time.Time     `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt      *time.Time    `json:"updated_at,omitempty"`

	// Relations
	Comisaria *Comisaria      `gorm:"foreignKey:ComisariaID;references:ID" json:"comisaria,omitempty"`
	Avances   []AvancePartida `gorm:"foreignKey:PartidaID" json:"avances,omitempty"`
}

// TableName returns the table name for the model
func (Partida) TableName() string {
	return "partidas"
}

// BeforeCreate is called before creating a new record
func (p *Partida) BeforeCreate(tx *gorm.DB) error {
	if !ValidarCodigoPartida(p.Codigo) {
		return fmt.Errorf("codigo de partida invalido: %s", p.Codigo)
	}
	if p.Estado == "" {
		p.Estado = PartidaNoIniciada
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (p *Partida) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	p.UpdatedAt = &now
	return nil
}

// NivelJerarquico returns the depth of the code in the hierarchy, starting
// at 1 for top level items.
func (p *Partida) NivelJerarquico() int {
	return strings.Count(p.Codigo, ".") + 1
}

// CodigoPadre returns the parent code, or empty for top level items.
func (p *Partida) CodigoPadre() string {
	idx := strings.LastIndex(p.Codigo, ".")
	if idx < 0 {
		return ""
	}
	return p.Codigo[:idx]
}

// EsTitulo reports whether the item is a grouping header rather than an
// executable work item. Headers carry no unit price.
func (p *Partida) EsTitulo() bool {
	return p.PrecioUnitario == 0 && p.Metrado == 0
}

// UltimoAvance returns the most recent progress report, or nil when none
// exists. Reports are expected ordered ascending by date.
func (p *Partida) UltimoAvance() *AvancePartida {
	if len(p.Avances) == 0 {
		return nil
	}
	return &p.Avances[len(p.Avances)-1]
}

// DesviacionActual returns scheduled minus physical progress of the latest
// report, in percentage points. Positive values mean the work is behind.
func (p *Partida) DesviacionActual() float64 {
	ultimo := p.UltimoAvance()
	if ultimo == nil {
		return 0
	}
	return ultimo.AvanceProgramado - ultimo.AvanceFisico
}

// CriticidadActual grades the latest deviation.
func (p *Partida) CriticidadActual() Criticidad {
	return CriticidadPorDesviacion(p.DesviacionActual())
}

// TendenciaActual compares the last two reports. With fewer than two
// reports the trend is stable.
func (p *Partida) TendenciaActual() Tendencia {
	if len(p.Avances) < 2 {
		return TendenciaEstable
	}
	previo := p.Avances[len(p.Avances)-2]
	actual := p.Avances[len(p.Avances)-1]

	desvPrevia := previo.AvanceProgramado - previo.AvanceFisico
	desvActual := actual.AvanceProgramado - actual.AvanceFisico
	switch {
	case desvActual < desvPrevia:
		return TendenciaMejorando
	case desvActual > desvPrevia:
		return TendenciaEmpeorando
	default:
		return TendenciaEstable
	}
}

// MontoEjecutado returns the executed amount implied by the latest physical
// progress.
func (p *Partida) MontoEjecutado() float64 {
	ultimo := p.UltimoAvance()
	if ultimo == nil {
		return 0
	}
	return p.PrecioTotal * ultimo.AvanceFisico / 100
}

// AvancePartida is one periodic progress report on a work item, with both
// the scheduled and the physically verified percentage
type AvancePartida struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	PartidaID        uint      `gorm:"not null;index:idx_avances_partida_id" json:"partida_id"`
	Fecha            time.Time `gorm:"not null;index:idx_avances_fecha" json:"fecha"`
	AvanceProgramado float64   `gorm:"type:numeric(5,2);not null" json:"avance_programado"`
	AvanceFisico     float64   `gorm:"type:numeric(5,2);not null" json:"avance_fisico"`
	Observaciones    *string   `gorm:"type:text" json:"observaciones,omitempty"`
	ReportadoPor     *string   `gorm:"size:255" json:"reportado_por,omitempty"`
	CreatedAt        time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
}

// TableName returns the table name for the model
func (AvancePartida) TableName() string {
	return "avances_partida"
}

// BeforeCreate is called before creating a new record
func (a *AvancePartida) BeforeCreate(tx *gorm.DB) error {
	if a.AvanceProgramado < 0 || a.AvanceProgramado > 100 ||
		a.AvanceFisico < 0 || a.AvanceFisico > 100 {
		return fmt.Errorf("los porcentajes de avance deben estar entre 0 y 100")
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = utils.UTCNow()
	}
	return nil
}

// Desviacion returns scheduled minus physical progress for the report.
func (a *AvancePartida) Desviacion() float64 {
	return a.AvanceProgramado - a.AvanceFisico
}

// PartidaFilter represents filter criteria for work items
type PartidaFilter struct {
	ID          *uint          `json:"id,omitempty"`
	ComisariaID *uint          `json:"comisaria_id,omitempty"`
	Codigo      *string        `json:"codigo,omitempty"`
	Estado      *EstadoPartida `json:"estado,omitempty"`
	Nivel       *int           `json:"nivel,omitempty"`
}
