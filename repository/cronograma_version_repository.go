package repository

import (
	"context"
	"errors"

	"github.com/nemaec/obra-erp/models"
	"github.com/nemaec/obra-erp/utils"
	"gorm.io/gorm"
)

// CronogramaVersionRepositoryImpl implements the CronogramaVersionRepository interface
type CronogramaVersionRepositoryImpl struct {
	*BaseRepository[models.CronogramaVersion, models.CronogramaVersionFilter]
}

// NewCronogramaVersionRepository creates a new schedule version repository
func NewCronogramaVersionRepository(db *gorm.DB) CronogramaVersionRepository {
	return &CronogramaVersionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.CronogramaVersion, models.CronogramaVersionFilter](db),
	}
}

// ByID retrieves a version with its modifications preloaded
func (r *CronogramaVersionRepositoryImpl) ByID(ctx context.Context, id uint) (*models.CronogramaVersion, error) {
	db := r.getDB(ctx)

	var version models.CronogramaVersion
	err := db.Preload("Modificaciones", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}).
		Preload("Comisaria").
		Last(&version, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &version, nil
}

// ByUUID retrieves a version by UUID
func (r *CronogramaVersionRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.CronogramaVersion, error) {
	parsedUUID, err := utils.ParseUUID(uuid)
	if err != nil {
		return nil, err
	}

	filter := models.CronogramaVersionFilter{UUID: &parsedUUID}
	versiones, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(versiones) == 0 {
		return nil, nil
	}

	return versiones[0], nil
}

// ListByComisaria retrieves the versions of a station, newest first
func (r *CronogramaVersionRepositoryImpl) ListByComisaria(ctx context.Context, comisariaID uint, limit, offset int) ([]*models.CronogramaVersion, error) {
	filter := models.CronogramaVersionFilter{ComisariaID: &comisariaID}
	return r.ByFilter(ctx, filter, "numero_version DESC", limit, offset)
}

// VersionActual retrieves the station's current version, or nil when the
// station has no confirmed version yet
func (r *CronogramaVersionRepositoryImpl) VersionActual(ctx context.Context, comisariaID uint) (*models.CronogramaVersion, error) {
	db := r.getDB(ctx)

	var version models.CronogramaVersion
	err := db.Preload("Modificaciones", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}).
		Where("comisaria_id = ? AND es_version_actual = ?", comisariaID, true).
		Last(&version).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &version, nil
}

// NextNumeroVersion returns the next version number for a station
func (r *CronogramaVersionRepositoryImpl) NextNumeroVersion(ctx context.Context, comisariaID uint) (int, error) {
	db := r.getDB(ctx)

	var max int
	err := db.Model(&models.CronogramaVersion{}).
		Select("COALESCE(MAX(numero_version), 0)").
		Where("comisaria_id = ?", comisariaID).
		Scan(&max).Error
	if err != nil {
		return 0, err
	}

	return max + 1, nil
}

// SaveComoActual inserts the version and makes it the station's current
// one, demoting the previous current version in the same transaction
func (r *CronogramaVersionRepositoryImpl) SaveComoActual(ctx context.Context, version *models.CronogramaVersion) error {
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

	err = db.Model(&models.CronogramaVersion{}).
		Where("comisaria_id = ? AND es_version_actual = ?", version.ComisariaID, true).
		Updates(map[string]any{
			"es_version_actual": false,
			"updated_at":        utils.UTCNow(),
		}).Error
	if err != nil {
		return err
	}

	version.EsVersionActual = true
	err = db.Create(version).Error
	if err != nil {
		return err
	}

	return nil
}

// Update updates a version
func (r *CronogramaVersionRepositoryImpl) Update(ctx context.Context, version models.CronogramaVersion) error {
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
	version.UpdatedAt = &now

	err = db.Omit("Modificaciones", "Comisaria").Save(&version).Error
	if err != nil {
		return err
	}

	return nil
}

// UpdateModificacion updates one modification
func (r *CronogramaVersionRepositoryImpl) UpdateModificacion(ctx context.Context, modificacion models.Modificacion) error {
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

	err = db.Omit("CronogramaVersion").Save(&modificacion).Error
	if err != nil {
		return err
	}

	return nil
}

// ModificacionByID retrieves one modification by ID
func (r *CronogramaVersionRepositoryImpl) ModificacionByID(ctx context.Context, id uint) (*models.Modificacion, error) {
	db := r.getDB(ctx)

	var modificacion models.Modificacion
	err := db.Last(&modificacion, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &modificacion, nil
}

// CountModificacionesPendientes counts the station's modifications still
// waiting for justification or decision on the current version
func (r *CronogramaVersionRepositoryImpl) CountModificacionesPendientes(ctx context.Context, comisariaID uint) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	err := db.Model(&models.Modificacion{}).
		Joins("JOIN cronograma_versiones ON cronograma_versiones.id = modificaciones_presupuestales.cronograma_version_id").
		Where("cronograma_versiones.comisaria_id = ? AND cronograma_versiones.es_version_actual = ?", comisariaID, true).
		Where("modificaciones_presupuestales.estado NOT IN ?", []models.EstadoModificacion{
			models.ModificacionAprobada,
			models.ModificacionRechazada,
			models.ModificacionEjecutada,
		}).
		Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// ByFilter retrieves versions based on filter criteria
func (r *CronogramaVersionRepositoryImpl) ByFilter(ctx context.Context, filter models.CronogramaVersionFilter, orderBy string, limit, offset int) ([]*models.CronogramaVersion, error) {
	db := r.getDB(ctx)

	var versiones []*models.CronogramaVersion
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

	query = query.Preload("Modificaciones", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	})

	err := query.Find(&versiones).Error
	if err != nil {
		return nil, err
	}

	return versiones, nil
}

// Count returns the number of versions matching the filter
func (r *CronogramaVersionRepositoryImpl) Count(ctx context.Context, filter models.CronogramaVersionFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	var version models.CronogramaVersion
	query := r.applyFilter(db.Model(&version), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any version matching the filter exists
func (r *CronogramaVersionRepositoryImpl) Exists(ctx context.Context, filter models.CronogramaVersionFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *CronogramaVersionRepositoryImpl) applyFilter(db *gorm.DB, filter models.CronogramaVersionFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.ComisariaID != nil {
		db = db.Where("comisaria_id = ?", *filter.ComisariaID)
	}
	if filter.Estado != nil {
		db = db.Where("estado = ?", *filter.Estado)
	}
	if filter.EsVersionActual != nil {
		db = db.Where("es_version_actual = ?", *filter.EsVersionActual)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at < ?", *filter.CreatedBefore)
	}

	return db
}
