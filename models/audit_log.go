// Package models contains domain entities and business models for the works
// tracking platform
package models

import (
	"encoding/json"
	"time"
)

type AuditLog struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	UsuarioID    *uint           `gorm:"index:idx_audit_usuario_id" json:"usuario_id,omitempty"`
	Usuario      *Usuario        `gorm:"foreignKey:UsuarioID;references:ID" json:"usuario,omitempty"`
	Action       string          `gorm:"type:audit_action_enum;not null;index:idx_audit_action" json:"action"`
	Description  *string         `gorm:"type:text" json:"description,omitempty"`
	IPAddress    *string         `gorm:"type:inet;index:idx_audit_ip_address" json:"ip_address,omitempty"`
	UserAgent    *string         `gorm:"type:text" json:"user_agent,omitempty"`
	RequestID    *string         `gorm:"size:255;index:idx_audit_request_id" json:"request_id,omitempty"`
	Metadata     json.RawMessage `gorm:"type:jsonb;index:idx_audit_metadata,type:gin" json:"metadata,omitempty"`
	Success      *bool           `gorm:"default:true;index:idx_audit_success" json:"success"`
	ErrorMessage *string         `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time       `gorm:"default:CURRENT_TIMESTAMP;index:idx_audit_created_at" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}

// Audit action constants
const (
	AuditActionLoginSuccessful        = "login_successful"
	AuditActionLoginFailed            = "login_failed"
	AuditActionComparacionIniciada    = "comparacion_iniciada"
	AuditActionModificacionConfirmada = "modificacion_confirmada"
	AuditActionVersionConfirmada      = "version_confirmada"
	AuditActionVersionAprobada        = "version_aprobada"
	AuditActionVersionRechazada       = "version_rechazada"
	AuditActionPartidasImportadas     = "partidas_importadas"
	AuditActionAvanceRegistrado       = "avance_registrado"
	AuditActionComisariaCreada        = "comisaria_creada"
	AuditActionComisariaActualizada   = "comisaria_actualizada"
	AuditActionContratoCreado         = "contrato_creado"
	AuditActionContratoActualizado    = "contrato_actualizado"
	AuditActionContratoVencido        = "contrato_vencido"
)

// AuditLogFilter represents filter criteria for audit log queries
type AuditLogFilter struct {
	ID            *uint
	UsuarioID     *uint
	Action        *string
	Success       *bool
	IPAddress     *string
	RequestID     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (a *AuditLog) IsFailed() bool {
	return a.Success != nil && !*a.Success
}

func (a *AuditLog) IsApprovalEvent() bool {
	return a.Action == AuditActionVersionAprobada || a.Action == AuditActionVersionRechazada
}
