package usecase

import (
	"context"

	"vaultdrive/internal/domain/entity"
	"vaultdrive/internal/domain/repository"
	"vaultdrive/pkg/errors"
)

type ShareUseCase struct {
	shareRepo repository.ShareRepository
	fileRepo  repository.FileRepository
}

func NewShareUseCase(shareRepo repository.ShareRepository, fileRepo repository.FileRepository) *ShareUseCase {
	return &ShareUseCase{
		shareRepo: shareRepo,
		fileRepo:  fileRepo,
	}
}

type ShareFileInput struct {
	Email      string
	Permission entity.SharePermission
}

// ShareFile creates or updates the grant for (file, email). Owner only.
func (uc *ShareUseCase) ShareFile(ctx context.Context, ownerID, ownerEmail, fileID string, input ShareFileInput) (*entity.ShareGrant, error) {
	if input.Permission != entity.ShareRead && input.Permission != entity.ShareWrite {
		return nil, errors.BadRequest("Permission must be read or write", nil)
	}

	if err := uc.requireOwner(ctx, ownerID, fileID); err != nil {
		return nil, err
	}

	grant := &entity.ShareGrant{
		FileID:     fileID,
		Email:      entity.NormalizeEmail(input.Email),
		Permission: input.Permission,
		OwnerID:    ownerID,
		OwnerEmail: entity.NormalizeEmail(ownerEmail),
	}
	if grant.Email == "" {
		return nil, errors.BadRequest("Grantee email is required", nil)
	}

	if err := uc.shareRepo.Upsert(ctx, grant); err != nil {
		return nil, err
	}
	return grant, nil
}

func (uc *ShareUseCase) RevokeShare(ctx context.Context, ownerID, fileID, email string) error {
	if err := uc.requireOwner(ctx, ownerID, fileID); err != nil {
		return err
	}
	return uc.shareRepo.Revoke(ctx, fileID, entity.NormalizeEmail(email))
}

func (uc *ShareUseCase) ListShares(ctx context.Context, ownerID, fileID string) ([]*entity.ShareGrant, error) {
	if err := uc.requireOwner(ctx, ownerID, fileID); err != nil {
		return nil, err
	}
	return uc.shareRepo.ListByFile(ctx, fileID)
}

// SharedWithMe lists every file someone granted to this email.
func (uc *ShareUseCase) SharedWithMe(ctx context.Context, email string) ([]*entity.SharedFile, error) {
	if email == "" {
		return nil, errors.NotAuthenticated(nil)
	}
	return uc.shareRepo.ListByEmail(ctx, entity.NormalizeEmail(email))
}

func (uc *ShareUseCase) requireOwner(ctx context.Context, ownerID, fileID string) error {
	record, err := uc.fileRepo.GetByID(ctx, fileID)
	if err != nil {
		return err
	}
	if record.OwnerID != ownerID {
		return errors.Forbidden("Only the owner can manage shares", nil)
	}
	return nil
}
