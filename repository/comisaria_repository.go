package repository

import (
	"context"
	"errors"

	"github.com/nemaec/obra-erp/models"
	"github.com/nemaec/obra-erp/utils"
	"gorm.io/gorm"
)

// ComisariaRepositoryImpl implements the ComisariaRepository interface
type ComisariaRepositoryImpl struct {
	*BaseRepository[models.Comisaria, models.ComisariaFilter]
}

// NewComisariaRepository creates a new station repository
func NewComisariaRepository(db *gorm.DB) ComisariaRepository {
	return &ComisariaRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Comisaria, models.ComisariaFilter](db),
	}
}

// ByCodigo retrieves a station by its COM-XXX code
func (r *ComisariaRepositoryImpl) ByCodigo(ctx context.Context, codigo string) (*models.Comisaria, error) {
	filter := models.ComisariaFilter{Codigo: &codigo}
	comisarias, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(comisarias) == 0 {
		return nil, nil
	}

	return comisarias[0], nil
}

// ByIDWithPartidas retrieves a station with its work items and progress
// reports preloaded
func (r *ComisariaRepositoryImpl) ByIDWithPartidas(ctx context.Context, id uint) (*models.Comisaria, error) {
	db := r.getDB(ctx)

	var comisaria models.Comisaria
	err := db.Preload("Partidas", func(db *gorm.DB) *gorm.DB {
		return db.Order("codigo ASC")
	}).
		Preload("Partidas.Avances", func(db *gorm.DB) *gorm.DB {
			return db.Order("fecha ASC")
		}).
		Last(&comisaria, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &comisaria, nil
}

// Update updates a station
func (r *ComisariaRepositoryImpl) Update(ctx context.Context, comisaria models.Comisaria) error {
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
	comisaria.UpdatedAt = &now

	err = db.Save(&comisaria).Error
	if err != nil {
		return err
	}

	return nil
}

// CountPorEstado returns the number of stations per intervention state
func (r *ComisariaRepositoryImpl) CountPorEstado(ctx context.Context) (map[models.EstadoComisaria]int64, error) {
	type row struct {
		Estado models.EstadoComisaria
		Total  int64
	}
	var rows []row
	db := r.getDB(ctx)
	if err := db.Model(&models.Comisaria{}).
		Select("estado, COUNT(*) AS total").
		Group("estado").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make(map[models.EstadoComisaria]int64, len(rows))
	for _, r := range rows {
		out[r.Estado] = r.Total
	}
	return out, nil
}

// ByFilter retrieves stations based on filter criteria
func (r *ComisariaRepositoryImpl) ByFilter(ctx context.Context, filter models.ComisariaFilter, orderBy string, limit, offset int) ([]*models.Comisaria, error) {
	db := r.getDB(ctx)

	var comisarias []*models.Comisaria
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

	err := query.Find(&comisarias).Error
	if err != nil {
		return nil, err
	}

	return comisarias, nil
}

// Count returns the number of stations matching the filter
func (r *ComisariaRepositoryImpl) Count(ctx context.Context, filter models.ComisariaFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	var comisaria models.Comisaria
	query := r.applyFilter(db.Model(&comisaria), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any station matching the filter exists
func (r *ComisariaRepositoryImpl) Exists(ctx context.Context, filter models.ComisariaFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *ComisariaRepositoryImpl) applyFilter(db *gorm.DB, filter models.ComisariaFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.Codigo != nil {
		db = db.Where("codigo = ?", *filter.Codigo)
	}
	if filter.Nombre != nil {
		db = db.Where("nombre ILIKE ?", "%"+*filter.Nombre+"%")
	}
	if filter.Tipo != nil {
		db = db.Where("tipo = ?", *filter.Tipo)
	}
	if filter.Estado != nil {
		db = db.Where("estado = ?", *filter.Estado)
	}
	if filter.Departamento != nil {
		db = db.Where("departamento = ?", *filter.Departamento)
	}
	if filter.Provincia != nil {
		db = db.Where("provincia = ?", *filter.Provincia)
	}
	if filter.Distrito != nil {
		db = db.Where("distrito = ?", *filter.Distrito)
	}

	return db
}
