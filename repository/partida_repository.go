package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/nemaec/obra-erp/models"
	"github.com/nemaec/obra-erp/utils"
	"gorm.io/gorm"
)

// PartidaRepositoryImpl implements the PartidaRepository interface
type PartidaRepositoryImpl struct {
	*BaseRepository[models.Partida, models.PartidaFilter]
}

// NewPartidaRepository creates a new work item repository
func NewPartidaRepository(db *gorm.DB) PartidaRepository {
	return &PartidaRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Partida, models.PartidaFilter](db),
	}
}

// ByComisariaYCodigo retrieves one work item of a station by code
func (r *PartidaRepositoryImpl) ByComisariaYCodigo(ctx context.Context, comisariaID uint, codigo string) (*models.Partida, error) {
	db := r.getDB(ctx)

	var partida models.Partida
	err := db.Preload("Avances", func(db *gorm.DB) *gorm.DB {
		return db.Order("fecha ASC")
	}).
		Where("comisaria_id = ? AND codigo = ?", comisariaID, codigo).
		Last(&partida).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &partida, nil
}

// ListByComisaria retrieves all work items of a station ordered by code,
// with progress reports preloaded
func (r *PartidaRepositoryImpl) ListByComisaria(ctx context.Context, comisariaID uint) ([]*models.Partida, error) {
	db := r.getDB(ctx)

	var partidas []*models.Partida
	err := db.Preload("Avances", func(db *gorm.DB) *gorm.DB {
		return db.Order("fecha ASC")
	}).
		Where("comisaria_id = ?", comisariaID).
		Order("codigo ASC").
		Find(&partidas).Error
	if err != nil {
		return nil, err
	}

	return partidas, nil
}

// ReplaceForComisaria replaces the station's work items with a freshly
// imported set. The delete and the insert share one transaction.
func (r *PartidaRepositoryImpl) ReplaceForComisaria(ctx context.Context, comisariaID uint, partidas []*models.Partida) error {
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

	err = db.Where("partida_id IN (?)",
		db.Session(&gorm.Session{NewDB: true}).Model(&models.Partida{}).
			Select("id").Where("comisaria_id = ?", comisariaID)).
		Delete(&models.AvancePartida{}).Error
	if err != nil {
		return err
	}

	err = db.Where("comisaria_id = ?", comisariaID).Delete(&models.Partida{}).Error
	if err != nil {
		return err
	}

	if len(partidas) > 0 {
		err = db.CreateInBatches(partidas, 100).Error
		if err != nil {
			return err
		}
	}

	return nil
}

// SaveAvance records a progress report and refreshes the work item state
func (r *PartidaRepositoryImpl) SaveAvance(ctx context.Context, avance *models.AvancePartida) error {
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

	err = db.Create(avance).Error
	if err != nil {
		return err
	}

	estado := models.PartidaEnProceso
	if avance.AvanceFisico >= 100 {
		estado = models.PartidaCompletada
	}
	err = db.Model(&models.Partida{}).
		Where("id = ?", avance.PartidaID).
		Updates(map[string]any{
			"estado":     estado,
			"updated_at": utils.UTCNow(),
		}).Error
	if err != nil {
		return err
	}

	return nil
}

// ListAvances retrieves the progress reports of one work item ordered by date
func (r *PartidaRepositoryImpl) ListAvances(ctx context.Context, partidaID uint) ([]*models.AvancePartida, error) {
	db := r.getDB(ctx)

	var avances []*models.AvancePartida
	err := db.Where("partida_id = ?", partidaID).
		Order("fecha ASC").
		Find(&avances).Error
	if err != nil {
		return nil, err
	}

	return avances, nil
}

// EstadisticasAvance aggregates the latest progress report of every work
// item of a station
func (r *PartidaRepositoryImpl) EstadisticasAvance(ctx context.Context, comisariaID uint) (*EstadisticasAvance, error) {
	partidas, err := r.ListByComisaria(ctx, comisariaID)
	if err != nil {
		return nil, err
	}

	stats := &EstadisticasAvance{}
	var conAvance int64
	for _, p := range partidas {
		if p.EsTitulo() {
			continue
		}
		stats.TotalPartidas++
		stats.PresupuestoTotal += p.PrecioTotal
		stats.MontoEjecutado += p.MontoEjecutado()

		ultimo := p.UltimoAvance()
		if ultimo == nil {
			continue
		}
		conAvance++
		stats.AvanceFisico += ultimo.AvanceFisico
		stats.AvanceProgramado += ultimo.AvanceProgramado
		if p.CriticidadActual() == models.CriticidadCritica {
			stats.PartidasCriticas++
		}
	}

	if conAvance > 0 {
		stats.AvanceFisico /= float64(conAvance)
		stats.AvanceProgramado /= float64(conAvance)
	}

	return stats, nil
}

// UltimaFechaReporte returns the date of the newest progress report of a
// station, or nil when none exists
func (r *PartidaRepositoryImpl) UltimaFechaReporte(ctx context.Context, comisariaID uint) (*time.Time, error) {
	db := r.getDB(ctx)

	var fecha *time.Time
	err := db.Model(&models.AvancePartida{}).
		Select("MAX(avances_partida.fecha)").
		Joins("JOIN partidas ON partidas.id = avances_partida.partida_id").
		Where("partidas.comisaria_id = ?", comisariaID).
		Scan(&fecha).Error
	if err != nil {
		return nil, err
	}

	return fecha, nil
}

// ByFilter retrieves work items based on filter criteria
func (r *PartidaRepositoryImpl) ByFilter(ctx context.Context, filter models.PartidaFilter, orderBy string, limit, offset int) ([]*models.Partida, error) {
	db := r.getDB(ctx)

	var partidas []*models.Partida
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

	query = query.Preload("Avances", func(db *gorm.DB) *gorm.DB {
		return db.Order("fecha ASC")
	})

	err := query.Find(&partidas).Error
	if err != nil {
		return nil, err
	}

	return partidas, nil
}

// Count returns the number of work items matching the filter
func (r *PartidaRepositoryImpl) Count(ctx context.Context, filter models.PartidaFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	var partida models.Partida
	query := r.applyFilter(db.Model(&partida), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any work item matching the filter exists
func (r *PartidaRepositoryImpl) Exists(ctx context.Context, filter models.PartidaFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *PartidaRepositoryImpl) applyFilter(db *gorm.DB, filter models.PartidaFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.ComisariaID != nil {
		db = db.Where("comisaria_id = ?", *filter.ComisariaID)
	}
	if filter.Codigo != nil {
		db = db.Where("codigo = ?", *filter.Codigo)
	}
	if filter.Estado != nil {
		db = db.Where("estado = ?", *filter.Estado)
	}
	if filter.Nivel != nil {
		// Level n codes contain n-1 dots
		pattern := strings.Repeat(`[0-9][0-9]\.`, *filter.Nivel-1) + "[0-9][0-9]"
		db = db.Where("codigo ~ ?", "^"+pattern+"$")
	}

	return db
}
