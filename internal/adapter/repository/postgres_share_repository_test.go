package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultdrive/internal/domain/entity"
	apperrors "vaultdrive/pkg/errors"
)

func TestPostgresShareUpsertIsIdempotentPerEmail(t *testing.T) {
	db := openTestDB(t)
	shares := NewPostgresShareRepository(db)
	ctx := context.Background()

	require.NoError(t, shares.Upsert(ctx, &entity.ShareGrant{
		FileID:     "f1",
		Email:      "friend@example.com",
		Permission: entity.ShareRead,
		OwnerID:    "owner",
		OwnerEmail: "owner@example.com",
	}))
	require.NoError(t, shares.Upsert(ctx, &entity.ShareGrant{
		FileID:     "f1",
		Email:      "friend@example.com",
		Permission: entity.ShareWrite,
		OwnerID:    "owner",
		OwnerEmail: "owner@example.com",
	}))

	grants, err := shares.ListByFile(ctx, "f1")
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, "friend@example.com", grants[0].Email)
	assert.Equal(t, entity.ShareWrite, grants[0].Permission)
}

func TestPostgresShareGetAndRevoke(t *testing.T) {
	shares := NewPostgresShareRepository(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, shares.Upsert(ctx, &entity.ShareGrant{
		FileID:     "f1",
		Email:      "friend@example.com",
		Permission: entity.ShareRead,
		OwnerID:    "owner",
	}))

	grant, err := shares.GetByFileAndEmail(ctx, "f1", "friend@example.com")
	require.NoError(t, err)
	assert.Equal(t, entity.ShareRead, grant.Permission)

	require.NoError(t, shares.Revoke(ctx, "f1", "friend@example.com"))

	_, err = shares.GetByFileAndEmail(ctx, "f1", "friend@example.com")
	assert.True(t, apperrors.Is(err, "NOT_FOUND"))
}

func TestPostgresSharedWithMeSkipsOrphanedGrants(t *testing.T) {
	db := openTestDB(t)
	files := NewPostgresFileRepository(db)
	shares := NewPostgresShareRepository(db)
	ctx := context.Background()

	mustCreate(t, files, testRecord("alice", "f1", "budget.xlsx", 10, time.Now().UTC()))

	for _, fileID := range []string{"f1", "gone"} {
		require.NoError(t, shares.Upsert(ctx, &entity.ShareGrant{
			FileID:     fileID,
			Email:      "carol@example.com",
			Permission: entity.ShareRead,
			OwnerID:    "alice",
			OwnerEmail: "alice@example.com",
		}))
	}

	rows, err := shares.ListByEmail(ctx, "carol@example.com")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "f1", rows[0].File.ID)
	assert.Equal(t, "alice@example.com", rows[0].OwnerEmail)
}
