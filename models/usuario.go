package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nemaec/obra-erp/utils"
	"gorm.io/gorm"
)

// RolUsuario distinguishes field monitors from approving authorities
type RolUsuario string

const (
	RolMonitor   RolUsuario = "monitor"
	RolAutoridad RolUsuario = "autoridad"
)

// String returns the string representation of the role
func (r RolUsuario) String() string {
	return string(r)
}

// Valid checks if the role is valid
func (r RolUsuario) Valid() bool {
	switch r {
	case RolMonitor, RolAutoridad:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for RolUsuario
func (r *RolUsuario) Scan(value any) error {
	if value == nil {
		*r = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*r = RolUsuario(v)
	case []byte:
		*r = RolUsuario(string(v))
	default:
		return fmt.Errorf("cannot scan %T into RolUsuario", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for RolUsuario
func (r RolUsuario) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid RolUsuario: %s", r)
	}
	return string(r), nil
}

// Usuario is an account able to operate the platform, either a NEMAEC
// monitor or an approving authority
type Usuario struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UUID           uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uk_usuarios_uuid" json:"uuid"`
	Email          string     `gorm:"size:255;not null;uniqueIndex:uk_usuarios_email" json:"email"`
	NombreCompleto string     `gorm:"size:255;not null" json:"nombre_completo"`
	Rol            RolUsuario `gorm:"type:rol_usuario;not null;index:idx_usuarios_rol" json:"rol"`
	PasswordHash   string     `gorm:"size:255;not null" json:"-"`
	IsActive       bool       `gorm:"not null;default:true" json:"is_active"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
	CreatedAt      time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

// TableName returns the table name for the model
func (Usuario) TableName() string {
	return "usuarios"
}

// BeforeCreate is called before creating a new record
func (u *Usuario) BeforeCreate(tx *gorm.DB) error {
	if u.UUID == uuid.Nil {
		u.UUID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (u *Usuario) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	u.UpdatedAt = &now
	return nil
}

// EsAutoridad reports whether the account may approve versions.
func (u *Usuario) EsAutoridad() bool {
	return u.Rol == RolAutoridad
}

// UsuarioFilter represents filter criteria for accounts
type UsuarioFilter struct {
	ID       *uint       `json:"id,omitempty"`
	UUID     *uuid.UUID  `json:"uuid,omitempty"`
	Email    *string     `json:"email,omitempty"`
	Rol      *RolUsuario `json:"rol,omitempty"`
	IsActive *bool       `json:"is_active,omitempty"`
}
