package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adapter "vaultdrive/internal/adapter/repository"
	"vaultdrive/internal/domain/entity"
	"vaultdrive/pkg/errors"
)

func newFileEnv() (*FileUseCase, *adapter.MemoryFileRepository, *adapter.MemoryShareRepository, *fakeBlobStorage) {
	files := adapter.NewMemoryFileRepository()
	shares := adapter.NewMemoryShareRepository(files)
	blobs := newFakeBlobStorage()
	uc := NewFileUseCase(files, shares, blobs, time.Hour)
	return uc, files, shares, blobs
}

func seedNamed(t *testing.T, files *adapter.MemoryFileRepository, owner, id, name string, createdAt time.Time) {
	t.Helper()
	err := files.Create(context.Background(), &entity.FileRecord{
		ID:        id,
		OwnerID:   owner,
		Name:      name,
		Path:      "files/" + owner + "/" + id + "/" + name,
		Size:      1,
		Kind:      entity.FileKindDocument,
		CreatedAt: createdAt,
	})
	require.NoError(t, err)
}

// collectAll follows nextCursor to exhaustion, the way a client pages
// through a listing, re-decoding the token from its URL form each time.
func collectAll(t *testing.T, uc *FileUseCase, owner string, input ListFilesInput) []string {
	t.Helper()
	var ids []string
	for {
		page, err := uc.ListFiles(context.Background(), owner, input)
		require.NoError(t, err)
		for _, row := range page.Rows {
			ids = append(ids, row.ID)
		}
		if !page.HasMore {
			require.Empty(t, page.NextCursor)
			return ids
		}
		require.NotEmpty(t, page.NextCursor)
		input.Cursor = page.NextCursor
	}
}

func TestListFilesWalksEveryRecordExactlyOnce(t *testing.T) {
	uc, files, _, _ := newFileEnv()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	const n = 7
	var want []string
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("id-%d", i)
		seedNamed(t, files, "u1", id, fmt.Sprintf("file-%d.txt", i), base.Add(time.Duration(i)*time.Minute))
		want = append(want, id)
	}

	for _, pageSize := range []int{1, 3, n, n + 1} {
		got := collectAll(t, uc, "u1", ListFilesInput{
			SortBy:   "created_at",
			SortDir:  "asc",
			PageSize: pageSize,
		})
		assert.Equal(t, want, got, "pageSize=%d", pageSize)
	}
}

func TestListFilesDescendingOrder(t *testing.T) {
	uc, files, _, _ := newFileEnv()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	seedNamed(t, files, "u1", "old", "old.txt", base)
	seedNamed(t, files, "u1", "new", "new.txt", base.Add(time.Hour))

	got := collectAll(t, uc, "u1", ListFilesInput{SortBy: "created_at", SortDir: "desc", PageSize: 1})
	assert.Equal(t, []string{"new", "old"}, got)
}

func TestListFilesTieBreakNeverSkipsOrRepeats(t *testing.T) {
	uc, files, _, _ := newFileEnv()
	when := time.Date(2025, 5, 5, 5, 0, 0, 0, time.UTC)

	// Identical names and identical timestamps; only the id distinguishes.
	for _, id := range []string{"c", "a", "b", "d"} {
		seedNamed(t, files, "u1", id, "duplicate.txt", when)
	}

	for _, sortBy := range []string{"name", "created_at"} {
		for _, dir := range []string{"asc", "desc"} {
			got := collectAll(t, uc, "u1", ListFilesInput{SortBy: sortBy, SortDir: dir, PageSize: 1})
			assert.Equal(t, []string{"a", "b", "c", "d"}, got, "sortBy=%s dir=%s", sortBy, dir)
		}
	}
}

func TestListFilesByNameOrdersLexically(t *testing.T) {
	uc, files, _, _ := newFileEnv()
	now := time.Now()
	seedNamed(t, files, "u1", "1", "banana.txt", now)
	seedNamed(t, files, "u1", "2", "apple.txt", now)
	seedNamed(t, files, "u1", "3", "cherry.txt", now)

	got := collectAll(t, uc, "u1", ListFilesInput{SortBy: "name", SortDir: "asc", PageSize: 2})
	assert.Equal(t, []string{"2", "1", "3"}, got)

	// Unknown direction defaults to descending.
	got = collectAll(t, uc, "u1", ListFilesInput{SortBy: "name", SortDir: "sideways", PageSize: 2})
	assert.Equal(t, []string{"3", "1", "2"}, got)
}

func TestListFilesMalformedCursorFallsBackToFirstPage(t *testing.T) {
	uc, files, _, _ := newFileEnv()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	seedNamed(t, files, "u1", "a", "a.txt", base)
	seedNamed(t, files, "u1", "b", "b.txt", base.Add(time.Minute))

	page, err := uc.ListFiles(context.Background(), "u1", ListFilesInput{
		SortBy:   "created_at",
		SortDir:  "asc",
		PageSize: 10,
		Cursor:   "not-base64-garbage!!",
	})
	require.NoError(t, err)
	assert.Len(t, page.Rows, 2)
	assert.Equal(t, "a", page.Rows[0].ID)
}

func TestListFilesFiltersCompose(t *testing.T) {
	uc, files, _, _ := newFileEnv()
	now := time.Now()
	seedNamed(t, files, "u1", "keep", "keep.txt", now)
	seedNamed(t, files, "u1", "binned", "binned.txt", now)
	seedNamed(t, files, "u2", "foreign", "foreign.txt", now)

	rec, err := files.GetByID(context.Background(), "binned")
	require.NoError(t, err)
	rec.Trashed = true
	require.NoError(t, files.Update(context.Background(), rec))

	got := collectAll(t, uc, "u1", ListFilesInput{SortBy: "name", Trashed: boolPtr(false), PageSize: 10})
	assert.Equal(t, []string{"keep"}, got)

	got = collectAll(t, uc, "u1", ListFilesInput{SortBy: "name", Trashed: boolPtr(true), PageSize: 10})
	assert.Equal(t, []string{"binned"}, got)
}

func TestUpdateFileRenameKeepsPath(t *testing.T) {
	uc, files, _, _ := newFileEnv()
	seedNamed(t, files, "u1", "f1", "before.txt", time.Now())

	updated, err := uc.UpdateFile(context.Background(), "u1", "u1@example.com", "f1", UpdateFileInput{
		Name: strPtr("after#renamed.txt"),
	})
	require.NoError(t, err)
	assert.Equal(t, "after_renamed.txt", updated.Name)
	assert.Equal(t, "files/u1/f1/before.txt", updated.Path)
}

func TestUpdateFileTrashAndRestore(t *testing.T) {
	uc, files, _, _ := newFileEnv()
	seedNamed(t, files, "u1", "f1", "doc.txt", time.Now())

	updated, err := uc.UpdateFile(context.Background(), "u1", "", "f1", UpdateFileInput{Trashed: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, updated.Trashed)

	updated, err = uc.UpdateFile(context.Background(), "u1", "", "f1", UpdateFileInput{Trashed: boolPtr(false)})
	require.NoError(t, err)
	assert.False(t, updated.Trashed)
}

func TestUpdateFileRequiresOwnerOrWriteGrant(t *testing.T) {
	uc, files, shares, _ := newFileEnv()
	seedNamed(t, files, "owner", "f1", "doc.txt", time.Now())

	_, err := uc.UpdateFile(context.Background(), "intruder", "intruder@example.com", "f1", UpdateFileInput{Starred: boolPtr(true)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, "FORBIDDEN"))

	require.NoError(t, shares.Upsert(context.Background(), &entity.ShareGrant{
		FileID:     "f1",
		Email:      "reader@example.com",
		Permission: entity.ShareRead,
		OwnerID:    "owner",
	}))
	_, err = uc.UpdateFile(context.Background(), "reader", "reader@example.com", "f1", UpdateFileInput{Starred: boolPtr(true)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, "FORBIDDEN"))

	require.NoError(t, shares.Upsert(context.Background(), &entity.ShareGrant{
		FileID:     "f1",
		Email:      "writer@example.com",
		Permission: entity.ShareWrite,
		OwnerID:    "owner",
	}))
	updated, err := uc.UpdateFile(context.Background(), "writer", "writer@example.com", "f1", UpdateFileInput{Starred: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, updated.Starred)
}

func TestDeletePermanentlyRemovesRecordAndBlob(t *testing.T) {
	uc, files, _, blobs := newFileEnv()
	seedNamed(t, files, "u1", "f1", "doc.txt", time.Now())
	blobs.objects["files/u1/f1/doc.txt"] = []byte("data")

	require.NoError(t, uc.DeletePermanently(context.Background(), "u1", "f1"))

	_, err := files.GetByID(context.Background(), "f1")
	assert.True(t, errors.Is(err, "NOT_FOUND"))
	assert.Equal(t, 0, blobs.blobCount())
}

func TestDeletePermanentlyKeepsRecordWhenBlobDeleteFails(t *testing.T) {
	uc, files, _, _ := newFileEnv()
	seedNamed(t, files, "u1", "f1", "doc.txt", time.Now())
	// No blob seeded: the fake store errors, the record must survive.

	err := uc.DeletePermanently(context.Background(), "u1", "f1")
	require.Error(t, err)

	_, err = files.GetByID(context.Background(), "f1")
	require.NoError(t, err)
}

func TestSignedURLAccessAndPasswordGate(t *testing.T) {
	uc, files, shares, blobs := newFileEnv()
	seedNamed(t, files, "owner", "f1", "secret.pdf", time.Now())
	blobs.objects["files/owner/f1/secret.pdf"] = []byte("data")

	// Owner gets a link.
	url, err := uc.SignedURL(context.Background(), "owner", "owner@example.com", "f1", "")
	require.NoError(t, err)
	assert.Equal(t, "https://signed.example/files/owner/f1/secret.pdf", url)

	// Strangers do not.
	_, err = uc.SignedURL(context.Background(), "intruder", "intruder@example.com", "f1", "")
	assert.True(t, errors.Is(err, "FORBIDDEN"))

	// A read grant is enough to download.
	require.NoError(t, shares.Upsert(context.Background(), &entity.ShareGrant{
		FileID: "f1", Email: "friend@example.com", Permission: entity.ShareRead, OwnerID: "owner",
	}))
	_, err = uc.SignedURL(context.Background(), "friend", "friend@example.com", "f1", "")
	require.NoError(t, err)

	// Protect the file; the owner now needs the password too.
	_, err = uc.UpdateFile(context.Background(), "owner", "", "f1", UpdateFileInput{Password: strPtr("hunter2")})
	require.NoError(t, err)

	_, err = uc.SignedURL(context.Background(), "owner", "", "f1", "")
	assert.True(t, errors.Is(err, "PERMISSION_DENIED"))
	_, err = uc.SignedURL(context.Background(), "owner", "", "f1", "wrong")
	assert.True(t, errors.Is(err, "PERMISSION_DENIED"))
	_, err = uc.SignedURL(context.Background(), "owner", "", "f1", "hunter2")
	require.NoError(t, err)

	// Clearing the password reopens the gate.
	_, err = uc.UpdateFile(context.Background(), "owner", "", "f1", UpdateFileInput{Password: strPtr("")})
	require.NoError(t, err)
	_, err = uc.SignedURL(context.Background(), "owner", "", "f1", "")
	require.NoError(t, err)
}
