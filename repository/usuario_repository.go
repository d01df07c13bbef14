package repository

import (
	"context"
	"time"

	"github.com/nemaec/obra-erp/models"
	"github.com/nemaec/obra-erp/utils"
	"gorm.io/gorm"
)

// UsuarioRepositoryImpl implements the UsuarioRepository interface
type UsuarioRepositoryImpl struct {
	*BaseRepository[models.Usuario, models.UsuarioFilter]
}

// NewUsuarioRepository creates a new account repository
func NewUsuarioRepository(db *gorm.DB) UsuarioRepository {
	return &UsuarioRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Usuario, models.UsuarioFilter](db),
	}
}

// ByEmail retrieves an account by email
func (r *UsuarioRepositoryImpl) ByEmail(ctx context.Context, email string) (*models.Usuario, error) {
	filter := models.UsuarioFilter{Email: &email}
	usuarios, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(usuarios) == 0 {
		return nil, nil
	}

	return usuarios[0], nil
}

// Update updates an account
func (r *UsuarioRepositoryImpl) Update(ctx context.Context, usuario models.Usuario) error {
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
	usuario.UpdatedAt = &now

	err = db.Save(&usuario).Error
	if err != nil {
		return err
	}

	return nil
}

// UpdateLastLogin stamps the account's last successful login
func (r *UsuarioRepositoryImpl) UpdateLastLogin(ctx context.Context, usuarioID uint, at time.Time) error {
	db := r.getDB(ctx)
	return db.Model(&models.Usuario{}).
		Where("id = ?", usuarioID).
		Updates(map[string]any{
			"last_login_at": at,
			"updated_at":    utils.UTCNow(),
		}).Error
}

// ByFilter retrieves accounts based on filter criteria
func (r *UsuarioRepositoryImpl) ByFilter(ctx context.Context, filter models.UsuarioFilter, orderBy string, limit, offset int) ([]*models.Usuario, error) {
	db := r.getDB(ctx)

	var usuarios []*models.Usuario
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

	err := query.Find(&usuarios).Error
	if err != nil {
		return nil, err
	}

	return usuarios, nil
}

// Count returns the number of accounts matching the filter
func (r *UsuarioRepositoryImpl) Count(ctx context.Context, filter models.UsuarioFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	var usuario models.Usuario
	query := r.applyFilter(db.Model(&usuario), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any account matching the filter exists
func (r *UsuarioRepositoryImpl) Exists(ctx context.Context, filter models.UsuarioFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *UsuarioRepositoryImpl) applyFilter(db *gorm.DB, filter models.UsuarioFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.Email != nil {
		db = db.Where("email = ?", *filter.Email)
	}
	if filter.Rol != nil {
		db = db.Where("rol = ?", *filter.Rol)
	}
	if filter.IsActive != nil {
		db = db.Where("is_active = ?", *filter.IsActive)
	}

	return db
}
