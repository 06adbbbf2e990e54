package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"vaultdrive/internal/domain/entity"
	"vaultdrive/internal/domain/repository"
	"vaultdrive/pkg/errors"
	"vaultdrive/pkg/logger"
)

const sharesCollection = "shares"

// Grants live in a subcollection files/{fileId}/shares/{email} so the
// cross-file "shared with me" lookup can run as one collection-group query.
type firestoreShareRepository struct {
	client *firestore.Client
}

func NewFirestoreShareRepository(client *firestore.Client) repository.ShareRepository {
	return &firestoreShareRepository{
		client: client,
	}
}

func (r *firestoreShareRepository) shareDoc(fileID, email string) *firestore.DocumentRef {
	return r.client.Collection(filesCollection).Doc(fileID).Collection(sharesCollection).Doc(email)
}

// Upsert stores the grant at files/{fileId}/shares/{email}. Emails arrive
// canonical from the use-case layer.
func (r *firestoreShareRepository) Upsert(ctx context.Context, grant *entity.ShareGrant) error {
	now := time.Now()
	if grant.CreatedAt.IsZero() {
		grant.CreatedAt = now
	}
	grant.UpdatedAt = now

	_, err := r.shareDoc(grant.FileID, grant.Email).Set(ctx, grant)
	if err != nil {
		return errors.Internal("Failed to write share grant", err)
	}
	return nil
}

func (r *firestoreShareRepository) GetByFileAndEmail(ctx context.Context, fileID, email string) (*entity.ShareGrant, error) {
	doc, err := r.shareDoc(fileID, email).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Share grant", err)
		}
		return nil, errors.Internal("Failed to get share grant", err)
	}

	var grant entity.ShareGrant
	if err := doc.DataTo(&grant); err != nil {
		return nil, errors.Internal("Failed to parse share grant", err)
	}
	return &grant, nil
}

func (r *firestoreShareRepository) Revoke(ctx context.Context, fileID, email string) error {
	_, err := r.shareDoc(fileID, email).Delete(ctx)
	if err != nil {
		return errors.Internal("Failed to revoke share grant", err)
	}
	return nil
}

func (r *firestoreShareRepository) ListByFile(ctx context.Context, fileID string) ([]*entity.ShareGrant, error) {
	iter := r.client.Collection(filesCollection).Doc(fileID).Collection(sharesCollection).Documents(ctx)
	defer iter.Stop()

	var grants []*entity.ShareGrant
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Internal("Failed to iterate share grants", err)
		}

		var grant entity.ShareGrant
		if err := doc.DataTo(&grant); err != nil {
			logger.Error("Failed to parse share grant %s: %v", doc.Ref.ID, err)
			continue
		}
		if grant.Email == "" {
			grant.Email = doc.Ref.ID
		}
		grants = append(grants, &grant)
	}

	return grants, nil
}

func (r *firestoreShareRepository) ListByEmail(ctx context.Context, email string) ([]*entity.SharedFile, error) {
	iter := r.client.CollectionGroup(sharesCollection).Where("email", "==", email).Documents(ctx)
	defer iter.Stop()

	var rows []*entity.SharedFile
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Internal("Failed to query shared files", err)
		}

		var grant entity.ShareGrant
		if err := doc.DataTo(&grant); err != nil {
			logger.Error("Failed to parse share grant %s: %v", doc.Ref.ID, err)
			continue
		}

		fileRef := doc.Ref.Parent.Parent
		if fileRef == nil {
			continue
		}
		fileDoc, err := fileRef.Get(ctx)
		if err != nil {
			// Grant outlived its file; skip rather than fail the aggregate.
			logger.Warn("Share grant points at missing file %s: %v", fileRef.ID, err)
			continue
		}

		var record entity.FileRecord
		if err := fileDoc.DataTo(&record); err != nil {
			logger.Error("Failed to parse shared file %s: %v", fileDoc.Ref.ID, err)
			continue
		}
		record.ID = fileDoc.Ref.ID

		rows = append(rows, &entity.SharedFile{
			File:       &record,
			Permission: grant.Permission,
			OwnerEmail: grant.OwnerEmail,
		})
	}

	return rows, nil
}
