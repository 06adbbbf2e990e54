package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"vaultdrive/internal/domain/entity"
	"vaultdrive/internal/domain/repository"
	apperrors "vaultdrive/pkg/errors"
)

type postgresShareRepository struct {
	db *gorm.DB
}

func NewPostgresShareRepository(db *gorm.DB) repository.ShareRepository {
	return &postgresShareRepository{
		db: db,
	}
}

// Upsert writes the grant keyed by (file_id, email). Emails arrive
// canonical from the use-case layer.
func (r *postgresShareRepository) Upsert(ctx context.Context, grant *entity.ShareGrant) error {
	now := time.Now()
	if grant.CreatedAt.IsZero() {
		grant.CreatedAt = now
	}
	grant.UpdatedAt = now

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "file_id"}, {Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"permission", "owner_email", "updated_at"}),
	}).Create(grant).Error
	if err != nil {
		return apperrors.Internal("Failed to write share grant", err)
	}
	return nil
}

func (r *postgresShareRepository) GetByFileAndEmail(ctx context.Context, fileID, email string) (*entity.ShareGrant, error) {
	var grant entity.ShareGrant
	err := r.db.WithContext(ctx).
		First(&grant, "file_id = ? AND email = ?", fileID, email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Share grant", err)
		}
		return nil, apperrors.Internal("Failed to get share grant", err)
	}
	return &grant, nil
}

func (r *postgresShareRepository) Revoke(ctx context.Context, fileID, email string) error {
	err := r.db.WithContext(ctx).
		Delete(&entity.ShareGrant{}, "file_id = ? AND email = ?", fileID, email).Error
	if err != nil {
		return apperrors.Internal("Failed to revoke share grant", err)
	}
	return nil
}

func (r *postgresShareRepository) ListByFile(ctx context.Context, fileID string) ([]*entity.ShareGrant, error) {
	var grants []*entity.ShareGrant
	err := r.db.WithContext(ctx).
		Where("file_id = ?", fileID).
		Order("email ASC").
		Find(&grants).Error
	if err != nil {
		return nil, apperrors.Internal("Failed to list share grants", err)
	}
	return grants, nil
}

func (r *postgresShareRepository) ListByEmail(ctx context.Context, email string) ([]*entity.SharedFile, error) {
	var grants []*entity.ShareGrant
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		Find(&grants).Error
	if err != nil {
		return nil, apperrors.Internal("Failed to query shared files", err)
	}

	rows := make([]*entity.SharedFile, 0, len(grants))
	for _, grant := range grants {
		var record entity.FileRecord
		err := r.db.WithContext(ctx).First(&record, "id = ?", grant.FileID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Grant outlived its file; skip rather than fail the aggregate.
				continue
			}
			return nil, apperrors.Internal("Failed to load shared file", err)
		}
		rows = append(rows, &entity.SharedFile{
			File:       &record,
			Permission: grant.Permission,
			OwnerEmail: grant.OwnerEmail,
		})
	}
	return rows, nil
}
