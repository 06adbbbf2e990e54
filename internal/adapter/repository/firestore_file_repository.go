package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"vaultdrive/internal/domain/entity"
	"vaultdrive/internal/domain/repository"
	"vaultdrive/pkg/errors"
	"vaultdrive/pkg/logger"
)

const filesCollection = "files"

type firestoreFileRepository struct {
	client *firestore.Client
}

func NewFirestoreFileRepository(client *firestore.Client) repository.FileRepository {
	return &firestoreFileRepository{
		client: client,
	}
}

func (r *firestoreFileRepository) Create(ctx context.Context, record *entity.FileRecord) error {
	now := time.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	_, err := r.client.Collection(filesCollection).Doc(record.ID).Set(ctx, record)
	if err != nil {
		return errors.Internal("Failed to create file record", err)
	}
	return nil
}

func (r *firestoreFileRepository) GetByID(ctx context.Context, id string) (*entity.FileRecord, error) {
	doc, err := r.client.Collection(filesCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("File", err)
		}
		return nil, errors.Internal("Failed to get file record", err)
	}

	var record entity.FileRecord
	if err := doc.DataTo(&record); err != nil {
		return nil, errors.Internal("Failed to parse file record", err)
	}
	record.ID = doc.Ref.ID

	return &record, nil
}

func (r *firestoreFileRepository) Update(ctx context.Context, record *entity.FileRecord) error {
	record.UpdatedAt = time.Now()
	_, err := r.client.Collection(filesCollection).Doc(record.ID).Set(ctx, record)
	if err != nil {
		return errors.Internal("Failed to update file record", err)
	}
	return nil
}

func (r *firestoreFileRepository) Delete(ctx context.Context, id string) error {
	_, err := r.client.Collection(filesCollection).Doc(id).Delete(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("File", err)
		}
		return errors.Internal("Failed to delete file record", err)
	}
	return nil
}

// ListPage pages with Firestore cursors: order by the sort field plus the
// document id, then StartAfter the decoded cursor position. One extra row is
// fetched so hasMore is exact rather than a heuristic.
func (r *firestoreFileRepository) ListPage(ctx context.Context, ownerID string, q repository.ListQuery) ([]*entity.FileRecord, bool, error) {
	query := r.client.Collection(filesCollection).Query.Where("ownerId", "==", ownerID)
	if q.Starred != nil {
		query = query.Where("starred", "==", *q.Starred)
	}
	if q.Trashed != nil {
		query = query.Where("trashed", "==", *q.Trashed)
	}

	dir := firestore.Asc
	if q.Dir == repository.SortDesc {
		dir = firestore.Desc
	}
	// Document ids double as record ids, so the tie-break rides on __name__.
	query = query.OrderBy(sortField(q.SortBy), dir).OrderBy(firestore.DocumentID, firestore.Asc)

	if q.After != nil {
		after := repository.AfterValue(q.After, q.SortBy)
		if q.After.ID != "" {
			query = query.StartAfter(after, q.After.ID)
		} else {
			// Foreign or legacy token carrying only a bare sort value.
			query = query.StartAfter(after)
		}
	}

	iter := query.Limit(q.PageSize + 1).Documents(ctx)
	defer iter.Stop()

	var rows []*entity.FileRecord
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, false, errors.Internal("Failed to iterate file records", err)
		}

		var record entity.FileRecord
		if err := doc.DataTo(&record); err != nil {
			logger.Error("Failed to parse file record %s: %v", doc.Ref.ID, err)
			continue
		}
		record.ID = doc.Ref.ID
		rows = append(rows, &record)
	}

	hasMore := len(rows) > q.PageSize
	if hasMore {
		rows = rows[:q.PageSize]
	}
	return rows, hasMore, nil
}

// SumSizeByOwner uses a server-side aggregation so usage does not require
// reading every document. Trashed records are included on purpose: trash is
// recoverable and still occupies quota.
func (r *firestoreFileRepository) SumSizeByOwner(ctx context.Context, ownerID string) (int64, error) {
	query := r.client.Collection(filesCollection).Where("ownerId", "==", ownerID)
	results, err := query.NewAggregationQuery().WithSum("size", "total").Get(ctx)
	if err != nil {
		return 0, errors.Internal("Failed to sum storage usage", err)
	}

	total, ok := results["total"]
	if !ok {
		return 0, errors.Internal("Aggregation result missing total", nil)
	}
	value, ok := total.(*firestorepb.Value)
	if !ok {
		return 0, errors.Internal("Unexpected aggregation result type", nil)
	}
	if _, isDouble := value.ValueType.(*firestorepb.Value_DoubleValue); isDouble {
		return int64(value.GetDoubleValue()), nil
	}
	return value.GetIntegerValue(), nil
}

func (r *firestoreFileRepository) SubscribeOwner(ctx context.Context, ownerID string) (repository.Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	snapshots := r.client.Collection(filesCollection).Where("ownerId", "==", ownerID).Snapshots(ctx)

	sub := &firestoreSubscription{
		ctx:     ctx,
		cancel:  cancel,
		iter:    snapshots,
		updates: make(chan []*entity.FileRecord, 1),
	}
	go sub.run()
	return sub, nil
}

type firestoreSubscription struct {
	ctx     context.Context
	cancel  context.CancelFunc
	iter    *firestore.QuerySnapshotIterator
	updates chan []*entity.FileRecord
}

func (s *firestoreSubscription) Updates() <-chan []*entity.FileRecord {
	return s.updates
}

func (s *firestoreSubscription) Unsubscribe() {
	s.cancel()
	s.iter.Stop()
}

func (s *firestoreSubscription) run() {
	defer close(s.updates)
	for {
		snap, err := s.iter.Next()
		if err != nil {
			if status.Code(err) != codes.Canceled {
				// Stream errors are logged, not surfaced: the consumer keeps
				// its last delivered state.
				logger.Error("File subscription stream error: %v", err)
			}
			return
		}

		docs, err := snap.Documents.GetAll()
		if err != nil {
			logger.Error("File subscription read error: %v", err)
			continue
		}

		rows := make([]*entity.FileRecord, 0, len(docs))
		for _, doc := range docs {
			var record entity.FileRecord
			if err := doc.DataTo(&record); err != nil {
				logger.Error("Failed to parse file record %s: %v", doc.Ref.ID, err)
				continue
			}
			record.ID = doc.Ref.ID
			rows = append(rows, &record)
		}

		select {
		case s.updates <- rows:
		case <-s.ctx.Done():
			return
		}
	}
}

func sortField(key repository.SortKey) string {
	if key == repository.SortByCreatedAt {
		return "createdAt"
	}
	return "name"
}
