package repository

import (
	"context"

	"github.com/nemaec/obra-erp/models"
	"github.com/nemaec/obra-erp/utils"
	"gorm.io/gorm"
)

// ContratoRepositoryImpl implements the ContratoRepository interface
type ContratoRepositoryImpl struct {
	*BaseRepository[models.Contrato, models.ContratoFilter]
}

// NewContratoRepository creates a new contract repository
func NewContratoRepository(db *gorm.DB) ContratoRepository {
	return &ContratoRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Contrato, models.ContratoFilter](db),
	}
}

// ByNumero retrieves a contract by number
func (r *ContratoRepositoryImpl) ByNumero(ctx context.Context, numero string) (*models.Contrato, error) {
	filter := models.ContratoFilter{Numero: &numero}
	contratos, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(contratos) == 0 {
		return nil, nil
	}

	return contratos[0], nil
}

// ListByComisaria retrieves the contracts covering a station
func (r *ContratoRepositoryImpl) ListByComisaria(ctx context.Context, comisariaID uint) ([]*models.Contrato, error) {
	filter := models.ContratoFilter{ComisariaID: &comisariaID}
	return r.ByFilter(ctx, filter, "fecha DESC", 0, 0)
}

// ListVencidos retrieves running contracts whose scheduled end already
// passed
func (r *ContratoRepositoryImpl) ListVencidos(ctx context.Context) ([]*models.Contrato, error) {
	db := r.getDB(ctx)

	var contratos []*models.Contrato
	err := db.Preload("Comisarias").
		Where("estado = ?", models.ContratoEnEjecucion).
		Where("fecha_inicio_real IS NOT NULL").
		Where("fecha_inicio_real + make_interval(days => plazo_dias + dias_adicionales) < ?", utils.UTCNow()).
		Order("fecha ASC").
		Find(&contratos).Error
	if err != nil {
		return nil, err
	}

	return contratos, nil
}

// Update updates a contract
func (r *ContratoRepositoryImpl) Update(ctx context.Context, contrato models.Contrato) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	now := utils.UTCNow()
	contrato.UpdatedAt = &now

	err = db.Omit("Comisarias").Save(&contrato).Error
	if err != nil {
		return err
	}

	return nil
}

// MontoTotalPorEstado sums contract amounts per lifecycle state
func (r *ContratoRepositoryImpl) MontoTotalPorEstado(ctx context.Context) (map[models.EstadoContrato]float64, error) {
	type row struct {
		Estado models.EstadoContrato
		Monto  float64
	}
	var rows []row
	db := r.getDB(ctx)
	if err := db.Model(&models.Contrato{}).
		Select("estado, COALESCE(SUM(monto_total), 0) AS monto").
		Group("estado").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make(map[models.EstadoContrato]float64, len(rows))
	for _, r := range rows {
		out[r.Estado] = r.Monto
	}
	return out, nil
}

// ByFilter retrieves contracts based on filter criteria
func (r *ContratoRepositoryImpl) ByFilter(ctx context.Context, filter models.ContratoFilter, orderBy string, limit, offset int) ([]*models.Contrato, error) {
	db := r.getDB(ctx)

	var contratos []*models.Contrato
	query := r.applyFilter(db, filter)

	if orderBy != "" {
		query = query.Order(orderBy)
	}

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	query = query.Preload("Comisarias")

	err := query.Find(&contratos).Error
	if err != nil {
		return nil, err
	}

	return contratos, nil
}

// Count returns the number of contracts matching the filter
func (r *ContratoRepositoryImpl) Count(ctx context.Context, filter models.ContratoFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	var contrato models.Contrato
	query := r.applyFilter(db.Model(&contrato), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any contract matching the filter exists
func (r *ContratoRepositoryImpl) Exists(ctx context.Context, filter models.ContratoFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *ContratoRepositoryImpl) applyFilter(db *gorm.DB, filter models.ContratoFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.Numero != nil {
		db = db.Where("numero = ?", *filter.Numero)
	}
	if filter.Tipo != nil {
		db = db.Where("tipo = ?", *filter.Tipo)
	}
	if filter.Estado != nil {
		db = db.Where("estado = ?", *filter.Estado)
	}
	if filter.ComisariaID != nil {
		db = db.Joins("JOIN contrato_comisarias ON contrato_comisarias.contrato_id = contratos.id").
			Where("contrato_comisarias.comisaria_id = ?", *filter.ComisariaID)
	}
	if filter.FechaAfter != nil {
		db = db.Where("fecha >= ?", *filter.FechaAfter)
	}
	if filter.FechaBefore != nil {
		db = db.Where("fecha < ?", *filter.FechaBefore)
	}

	return db
}
