package models

import (
	"database/sql/driver"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/nemaec/obra-erp/utils"
	"gorm.io/gorm"
)

// EstadoVersion represents the approval state of a schedule version
type EstadoVersion string

const (
	VersionDetectada EstadoVersion = "detectada"
	VersionAprobable EstadoVersion = "aprobable"
	VersionAprobada  EstadoVersion = "aprobada"
	VersionRechazada EstadoVersion = "rechazada"
)

// String returns the string representation of the state
func (e EstadoVersion) String() string {
	return string(e)
}

// Valid checks if the state is valid
func (e EstadoVersion) Valid() bool {
	switch e {
	case VersionDetectada, VersionAprobable, VersionAprobada, VersionRechazada:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for EstadoVersion
func (e *EstadoVersion) Scan(value any) error {
	if value == nil {
		*e = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*e = EstadoVersion(v)
	case []byte:
		*e = EstadoVersion(string(v))
	default:
		return fmt.Errorf("cannot scan %T into EstadoVersion", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for EstadoVersion
func (e EstadoVersion) Value() (driver.Value, error) {
	if !e.Valid() {
		return nil, fmt.Errorf("invalid EstadoVersion: %s", e)
	}
	return string(e), nil
}

// CronogramaVersion is one confirmed schedule version of a station, together
// with the budget modifications that distinguish it from its predecessor
type CronogramaVersion struct {
	ID                  uint          `gorm:"primaryKey" json:"id"`
	UUID                uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:uk_cronograma_versiones_uuid" json:"uuid"`
	ComisariaID         uint          `gorm:"not null;index:idx_cronograma_versiones_comisaria_id" json:"comisaria_id"`
	NumeroVersion       int           `gorm:"not null" json:"numero_version"`
	NombreVersion       string        `gorm:"size:255;not null" json:"nombre_version"`
	DescripcionCambios  *string       `gorm:"type:text" json:"descripcion_cambios,omitempty"`
	EsVersionActual     bool          `gorm:"not null;default:false;index:idx_cronograma_versiones_actual" json:"es_version_actual"`
	Estado              EstadoVersion `gorm:"type:estado_version;not null;default:'detectada';index:idx_cronograma_versiones_estado" json:"estado"`
	TotalPartidas       int           `gorm:"not null;default:0" json:"total_partidas"`
	TotalPresupuesto    float64       `gorm:"type:numeric(14,2);not null;default:0" json:"total_presupuesto"`
	TotalReducciones    float64       `gorm:"type:numeric(14,2);not null;default:0" json:"total_reducciones"`
	TotalAdicionales    float64       `gorm:"type:numeric(14,2);not null;default:0" json:"total_adicionales"`
	BalancePresupuestal float64       `gorm:"type:numeric(14,2);not null;default:0" json:"balance_presupuestal"`
	MonitorResponsable  *string       `gorm:"size:255" json:"monitor_responsable,omitempty"`
	AprobadaPor         *string       `gorm:"size:255" json:"aprobada_por,omitempty"`
	ObservacionRechazo  *string       `gorm:"type:text" json:"observacion_rechazo,omitempty"`
	FechaResolucion     *time.Time    `json:"fecha_resolucion,omitempty"`
	CreatedAt           time.Time     `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_cronograma_versiones_created_at" json:"created_at"`
	UpdatedAt           *time.Time    `json:"updated_at,omitempty"`

	// Relations
	Comisaria      *Comisaria     `gorm:"foreignKey:ComisariaID;references:ID" json:"comisaria,omitempty"`
	Modificaciones []Modificacion `gorm:"foreignKey:CronogramaVersionID" json:"modificaciones,omitempty"`
}

// TableName returns the table name for the model
func (CronogramaVersion) TableName() string {
	return "cronograma_versiones"
}

// BeforeCreate is called before creating a new record
func (v *CronogramaVersion) BeforeCreate(tx *gorm.DB) error {
	if v.UUID == uuid.Nil {
		v.UUID = uuid.New()
	}
	if v.Estado == "" {
		v.Estado = VersionDetectada
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (v *CronogramaVersion) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	v.UpdatedAt = &now
	return nil
}

// RecalcularTotales recomputes the reduction, addition and balance totals
// from the loaded modifications. Every modification counts, whatever its
// state; a rejected one keeps weighing on the balance until it is removed
// from the version.
func (v *CronogramaVersion) RecalcularTotales() {
	var reducciones, adicionales float64
	for i := range v.Modificaciones {
		m := &v.Modificaciones[i]
		impacto := m.CalcularImpacto()
		if impacto < 0 {
			reducciones += -impacto
		} else {
			adicionales += impacto
		}
	}
	v.TotalReducciones = reducciones
	v.TotalAdicionales = adicionales
	v.BalancePresupuestal = adicionales - reducciones
}

// EstaEquilibrada reports whether additions offset reductions within the
// balance tolerance.
func (v *CronogramaVersion) EstaEquilibrada() bool {
	return math.Abs(v.BalancePresupuestal) < utils.BalanceTolerance
}

// PuedeSerAprobada reports whether the version qualifies for authority
// approval: the budget must balance and every modification must be
// justified or already approved. A rejected modification blocks approval
// until it is removed from the version.
func (v *CronogramaVersion) PuedeSerAprobada() bool {
	if v.Estado == VersionAprobada || v.Estado == VersionRechazada {
		return false
	}
	if !v.EstaEquilibrada() {
		return false
	}
	for i := range v.Modificaciones {
		switch v.Modificaciones[i].Estado {
		case ModificacionJustificada, ModificacionPendienteAprobacion,
			ModificacionAprobada, ModificacionEjecutada:
		default:
			return false
		}
	}
	return true
}

// ModificacionesPendientes returns the work item codes still awaiting a
// monitor justification.
func (v *CronogramaVersion) ModificacionesPendientes() []string {
	var pendientes []string
	for i := range v.Modificaciones {
		if v.Modificaciones[i].RequiereJustificacion() {
			pendientes = append(pendientes, v.Modificaciones[i].CodigoPartida)
		}
	}
	return pendientes
}

// ContarPorTipo returns the number of modifications of each kind.
func (v *CronogramaVersion) ContarPorTipo() map[TipoModificacion]int {
	conteo := make(map[TipoModificacion]int, 3)
	for i := range v.Modificaciones {
		conteo[v.Modificaciones[i].Tipo]++
	}
	return conteo
}

// Aprobar transitions the version and all of its undecided modifications to
// the approved state. The version state only changes after every
// modification accepted the transition, so a failure leaves no partial
// approval behind.
func (v *CronogramaVersion) Aprobar(autoridad string) error {
	if !v.PuedeSerAprobada() {
		if !v.EstaEquilibrada() {
			return fmt.Errorf("la version %d no esta equilibrada (balance %s)",
				v.NumeroVersion, utils.FormatSoles(v.BalancePresupuestal))
		}
		for i := range v.Modificaciones {
			if v.Modificaciones[i].Estado == ModificacionRechazada {
				return fmt.Errorf("la version %d contiene modificaciones rechazadas", v.NumeroVersion)
			}
		}
		return fmt.Errorf("la version %d tiene modificaciones sin justificar: %v",
			v.NumeroVersion, v.ModificacionesPendientes())
	}

	for i := range v.Modificaciones {
		m := &v.Modificaciones[i]
		if m.EstaResuelta() {
			continue
		}
		if err := m.Aprobar(autoridad); err != nil {
			return err
		}
	}

	v.Estado = VersionAprobada
	v.AprobadaPor = &autoridad
	v.FechaResolucion = utils.UTCNowPtr()
	return nil
}

// Rechazar marks the version as rejected with the authority's observation.
// Individual modification states are left untouched so the monitor can see
// which ones the authority already decided.
func (v *CronogramaVersion) Rechazar(autoridad, observacion string) error {
	if v.Estado == VersionAprobada || v.Estado == VersionRechazada {
		return fmt.Errorf("la version %d ya fue resuelta (%s)", v.NumeroVersion, v.Estado)
	}
	v.Estado = VersionRechazada
	v.AprobadaPor = &autoridad
	if observacion != "" {
		v.ObservacionRechazo = &observacion
	}
	v.FechaResolucion = utils.UTCNowPtr()
	return nil
}

// CronogramaVersionFilter represents filter criteria for schedule versions
type CronogramaVersionFilter struct {
	ID              *uint          `json:"id,omitempty"`
	UUID            *uuid.UUID     `json:"uuid,omitempty"`
	ComisariaID     *uint          `json:"comisaria_id,omitempty"`
	Estado          *EstadoVersion `json:"estado,omitempty"`
	EsVersionActual *bool          `json:"es_version_actual,omitempty"`
	CreatedAfter    *time.Time     `json:"created_after,omitempty"`
	CreatedBefore   *time.Time     `json:"created_before,omitempty"`
}
