package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/nemaec/obra-erp/utils"
	"gorm.io/gorm"
)

// TipoModificacion classifies a detected schedule change by its budget role
type TipoModificacion string

const (
	// TipoReduccionPrestaciones is a work item removed from or reduced in the
	// new schedule version
	TipoReduccionPrestaciones TipoModificacion = "REDUCCION_PRESTACIONES"

	// TipoAdicionalIndependiente is a new work item with no removed
	// counterpart
	TipoAdicionalIndependiente TipoModificacion = "ADICIONAL_INDEPENDIENTE"

	// TipoDeductivoVinculante is a work item replaced by another, or one whose
	// amount changed in place
	TipoDeductivoVinculante TipoModificacion = "DEDUCTIVO_VINCULANTE"
)

// String returns the string representation of the kind
func (t TipoModificacion) String() string {
	return string(t)
}

// Valid checks if the kind is valid
func (t TipoModificacion) Valid() bool {
	switch t {
	case TipoReduccionPrestaciones, TipoAdicionalIndependiente, TipoDeductivoVinculante:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for TipoModificacion
func (t *TipoModificacion) Scan(value any) error {
	if value == nil {
		*t = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*t = TipoModificacion(v)
	case []byte:
		*t = TipoModificacion(string(v))
	default:
		return fmt.Errorf("cannot scan %T into TipoModificacion", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for TipoModificacion
func (t TipoModificacion) Value() (driver.Value, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid TipoModificacion: %s", t)
	}
	return string(t), nil
}

// EstadoModificacion represents the lifecycle state of a modification
type EstadoModificacion string

const (
	ModificacionDetectada              EstadoModificacion = "detectada"
	ModificacionPendienteConfirmacion  EstadoModificacion = "pendiente_confirmacion"
	ModificacionPendienteJustificacion EstadoModificacion = "pendiente_justificacion"
	ModificacionJustificada            EstadoModificacion = "justificada"
	ModificacionPendienteAprobacion    EstadoModificacion = "pendiente_aprobacion"
	ModificacionAprobada               EstadoModificacion = "aprobada"
	ModificacionRechazada              EstadoModificacion = "rechazada"
	ModificacionEjecutada              EstadoModificacion = "ejecutada"
)

// String returns the string representation of the state
func (e EstadoModificacion) String() string {
	return string(e)
}

// Valid checks if the state is valid
func (e EstadoModificacion) Valid() bool {
	switch e {
	case ModificacionDetectada, ModificacionPendienteConfirmacion,
		ModificacionPendienteJustificacion, ModificacionJustificada,
		ModificacionPendienteAprobacion, ModificacionAprobada,
		ModificacionRechazada, ModificacionEjecutada:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for EstadoModificacion
func (e *EstadoModificacion) Scan(value any) error {
	if value == nil {
		*e = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*e = EstadoModificacion(v)
	case []byte:
		*e = EstadoModificacion(string(v))
	default:
		return fmt.Errorf("cannot scan %T into EstadoModificacion", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for EstadoModificacion
func (e EstadoModificacion) Value() (driver.Value, error) {
	if !e.Valid() {
		return nil, fmt.Errorf("invalid EstadoModificacion: %s", e)
	}
	return string(e), nil
}

// CanTransitionTo checks whether the state machine allows moving to the
// given state. Rejected modifications stay rejected until a new version
// supersedes them.
func (e EstadoModificacion) CanTransitionTo(next EstadoModificacion) bool {
	switch e {
	case ModificacionDetectada:
		return next == ModificacionPendienteConfirmacion ||
			next == ModificacionPendienteJustificacion
	case ModificacionPendienteConfirmacion:
		return next == ModificacionPendienteJustificacion
	case ModificacionPendienteJustificacion:
		return next == ModificacionJustificada
	case ModificacionJustificada:
		return next == ModificacionPendienteAprobacion ||
			next == ModificacionAprobada ||
			next == ModificacionRechazada
	case ModificacionPendienteAprobacion:
		return next == ModificacionAprobada || next == ModificacionRechazada
	case ModificacionAprobada:
		return next == ModificacionEjecutada
	default:
		return false
	}
}

// IsFinal reports whether the state admits no further transitions except
// execution of an approved modification.
func (e EstadoModificacion) IsFinal() bool {
	return e == ModificacionRechazada || e == ModificacionEjecutada
}

// StringList is a JSON-encoded list column, used for modified field names
// and supporting document references
type StringList []string

// Value implements the driver.Valuer interface for StringList
func (l StringList) Value() (driver.Value, error) {
	return json.Marshal(l)
}

// Scan implements the sql.Scanner interface for StringList
func (l *StringList) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into StringList", value)
	}

	return json.Unmarshal(bytes, l)
}

// Modificacion represents one classified budget change between two schedule
// versions of a station
type Modificacion struct {
	ID                   uint               `gorm:"primaryKey" json:"id"`
	CronogramaVersionID  uint               `gorm:"not null;index:idx_modificaciones_version_id" json:"cronograma_version_id"`
	Tipo                 TipoModificacion   `gorm:"type:tipo_modificacion;not null;index:idx_modificaciones_tipo" json:"tipo"`
	Estado               EstadoModificacion `gorm:"type:estado_modificacion;not null;default:'detectada';index:idx_modificaciones_estado" json:"estado"`
	CodigoPartida        string             `gorm:"size:50;not null" json:"codigo_partida"`
	DescripcionAnterior  *string            `gorm:"type:text" json:"descripcion_anterior,omitempty"`
	DescripcionNueva     *string            `gorm:"type:text" json:"descripcion_nueva,omitempty"`
	MontoAnterior        float64            `gorm:"type:numeric(14,2);not null;default:0" json:"monto_anterior"`
	MontoNuevo           float64            `gorm:"type:numeric(14,2);not null;default:0" json:"monto_nuevo"`
	ImpactoPresupuestal  float64            `gorm:"type:numeric(14,2);not null;default:0" json:"impacto_presupuestal"`
	CamposModificados    StringList         `gorm:"type:jsonb" json:"campos_modificados,omitempty"`
	PartidaEliminada     *string            `gorm:"size:50" json:"partida_eliminada,omitempty"`
	MontoEliminado       float64            `gorm:"type:numeric(14,2);not null;default:0" json:"monto_eliminado"`
	Justificacion        *string            `gorm:"type:text" json:"justificacion,omitempty"`
	DocumentosSustento   StringList         `gorm:"type:jsonb" json:"documentos_sustento,omitempty"`
	MonitorResponsable   *string            `gorm:"size:255" json:"monitor_responsable,omitempty"`
	ObservacionAutoridad *string            `gorm:"type:text" json:"observacion_autoridad,omitempty"`
	AprobadaPor          *string            `gorm:"size:255" json:"aprobada_por,omitempty"`
	DetectadaEn          time.Time          `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"detectada_en"`
	ConfirmadaEn         *time.Time         `json:"confirmada_en,omitempty"`
	JustificadaEn        *time.Time         `json:"justificada_en,omitempty"`
	ResueltaEn           *time.Time         `json:"resuelta_en,omitempty"`

	// Relations
	CronogramaVersion *CronogramaVersion `gorm:"foreignKey:CronogramaVersionID;references:ID" json:"cronograma_version,omitempty"`
}

// TableName returns the table name for the model
func (Modificacion) TableName() string {
	return "modificaciones_presupuestales"
}

// BeforeCreate is called before creating a new record
func (m *Modificacion) BeforeCreate(tx *gorm.DB) error {
	if m.Estado == "" {
		m.Estado = ModificacionDetectada
	}
	if m.DetectadaEn.IsZero() {
		m.DetectadaEn = utils.UTCNow()
	}
	return nil
}

// CalcularImpacto returns the signed budget impact of the modification.
// Reductions count against the previous amount, independent additions add
// the new amount, and linking deductives net the new amount against the
// removed item when one is linked, or against the previous amount otherwise.
func (m *Modificacion) CalcularImpacto() float64 {
	switch m.Tipo {
	case TipoReduccionPrestaciones:
		return -m.MontoAnterior
	case TipoAdicionalIndependiente:
		return m.MontoNuevo
	case TipoDeductivoVinculante:
		if m.PartidaEliminada != nil {
			return m.MontoNuevo - m.MontoEliminado
		}
		return m.MontoNuevo - m.MontoAnterior
	default:
		return 0
	}
}

// EstaEquilibrada reports whether the modification is budget neutral on its
// own, within the balance tolerance.
func (m *Modificacion) EstaEquilibrada() bool {
	return math.Abs(m.CalcularImpacto()) < utils.BalanceTolerance
}

// RequiereJustificacion reports whether the monitor still owes a written
// justification for this modification.
func (m *Modificacion) RequiereJustificacion() bool {
	switch m.Estado {
	case ModificacionDetectada, ModificacionPendienteConfirmacion, ModificacionPendienteJustificacion:
		return true
	default:
		return false
	}
}

// EstaResuelta reports whether the authority already decided on this
// modification.
func (m *Modificacion) EstaResuelta() bool {
	return m.Estado == ModificacionAprobada ||
		m.Estado == ModificacionRechazada ||
		m.Estado == ModificacionEjecutada
}

// Justificar records the monitor's justification and moves the modification
// to the justified state.
func (m *Modificacion) Justificar(justificacion, monitor string, documentos []string) error {
	if justificacion == "" {
		return fmt.Errorf("la justificacion no puede estar vacia")
	}
	if m.EstaResuelta() {
		return fmt.Errorf("la modificacion %s ya fue resuelta (%s)", m.CodigoPartida, m.Estado)
	}

	m.Justificacion = &justificacion
	m.MonitorResponsable = &monitor
	if len(documentos) > 0 {
		m.DocumentosSustento = documentos
	}
	m.Estado = ModificacionJustificada
	m.JustificadaEn = utils.UTCNowPtr()
	return nil
}

// Aprobar moves a justified or pending modification to the approved state.
func (m *Modificacion) Aprobar(autoridad string) error {
	if !m.Estado.CanTransitionTo(ModificacionAprobada) {
		return fmt.Errorf("la modificacion %s no puede aprobarse desde el estado %s", m.CodigoPartida, m.Estado)
	}
	m.Estado = ModificacionAprobada
	m.AprobadaPor = &autoridad
	m.ResueltaEn = utils.UTCNowPtr()
	return nil
}

// Rechazar moves a justified or pending modification to the rejected state,
// recording the authority's observation.
func (m *Modificacion) Rechazar(autoridad, observacion string) error {
	if !m.Estado.CanTransitionTo(ModificacionRechazada) {
		return fmt.Errorf("la modificacion %s no puede rechazarse desde el estado %s", m.CodigoPartida, m.Estado)
	}
	m.Estado = ModificacionRechazada
	m.AprobadaPor = &autoridad
	if observacion != "" {
		m.ObservacionAutoridad = &observacion
	}
	m.ResueltaEn = utils.UTCNowPtr()
	return nil
}

// ModificacionFilter represents filter criteria for modifications
type ModificacionFilter struct {
	ID                  *uint               `json:"id,omitempty"`
	CronogramaVersionID *uint               `json:"cronograma_version_id,omitempty"`
	Tipo                *TipoModificacion   `json:"tipo,omitempty"`
	Estado              *EstadoModificacion `json:"estado,omitempty"`
	CodigoPartida       *string             `json:"codigo_partida,omitempty"`
	DetectadaAfter      *time.Time          `json:"detectada_after,omitempty"`
	DetectadaBefore     *time.Time          `json:"detectada_before,omitempty"`
}
