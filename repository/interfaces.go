// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/nemaec/obra-erp/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// ComisariaRepository defines operations for police stations
type ComisariaRepository interface {
	Repository[models.Comisaria, models.ComisariaFilter]
	ByCodigo(ctx context.Context, codigo string) (*models.Comisaria, error)
	ByIDWithPartidas(ctx context.Context, id uint) (*models.Comisaria, error)
	Update(ctx context.Context, comisaria models.Comisaria) error
	CountPorEstado(ctx context.Context) (map[models.EstadoComisaria]int64, error)
}

// PartidaRepository defines operations for work items and their progress
// reports
type PartidaRepository interface {
	Repository[models.Partida, models.PartidaFilter]
	ByComisariaYCodigo(ctx context.Context, comisariaID uint, codigo string) (*models.Partida, error)
	ListByComisaria(ctx context.Context, comisariaID uint) ([]*models.Partida, error)
	ReplaceForComisaria(ctx context.Context, comisariaID uint, partidas []*models.Partida) error
	SaveAvance(ctx context.Context, avance *models.AvancePartida) error
	ListAvances(ctx context.Context, partidaID uint) ([]*models.AvancePartida, error)
	EstadisticasAvance(ctx context.Context, comisariaID uint) (*EstadisticasAvance, error)
	UltimaFechaReporte(ctx context.Context, comisariaID uint) (*time.Time, error)
}

// EstadisticasAvance aggregates progress figures for one station
type EstadisticasAvance struct {
	TotalPartidas    int64
	PartidasCriticas int64
	AvanceFisico     float64
	AvanceProgramado float64
	PresupuestoTotal float64
	MontoEjecutado   float64
}

// ContratoRepository defines operations for contracts
type ContratoRepository interface {
	Repository[models.Contrato, models.ContratoFilter]
	ByNumero(ctx context.Context, numero string) (*models.Contrato, error)
	ListByComisaria(ctx context.Context, comisariaID uint) ([]*models.Contrato, error)
	ListVencidos(ctx context.Context) ([]*models.Contrato, error)
	Update(ctx context.Context, contrato models.Contrato) error
	MontoTotalPorEstado(ctx context.Context) (map[models.EstadoContrato]float64, error)
}

// CronogramaVersionRepository defines operations for schedule versions and
// their modifications
type CronogramaVersionRepository interface {
	Repository[models.CronogramaVersion, models.CronogramaVersionFilter]
	ByUUID(ctx context.Context, uuid string) (*models.CronogramaVersion, error)
	ListByComisaria(ctx context.Context, comisariaID uint, limit, offset int) ([]*models.CronogramaVersion, error)
	VersionActual(ctx context.Context, comisariaID uint) (*models.CronogramaVersion, error)
	NextNumeroVersion(ctx context.Context, comisariaID uint) (int, error)
	SaveComoActual(ctx context.Context, version *models.CronogramaVersion) error
	Update(ctx context.Context, version models.CronogramaVersion) error
	UpdateModificacion(ctx context.Context, modificacion models.Modificacion) error
	ModificacionByID(ctx context.Context, id uint) (*models.Modificacion, error)
	CountModificacionesPendientes(ctx context.Context, comisariaID uint) (int64, error)
}

// UsuarioRepository defines operations for platform accounts
type UsuarioRepository interface {
	Repository[models.Usuario, models.UsuarioFilter]
	ByEmail(ctx context.Context, email string) (*models.Usuario, error)
	Update(ctx context.Context, usuario models.Usuario) error
	UpdateLastLogin(ctx context.Context, usuarioID uint, at time.Time) error
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByUsuario(ctx context.Context, usuarioID uint, limit, offset int) ([]*models.AuditLog, error)
	ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error)
	ListFailedActions(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
}
