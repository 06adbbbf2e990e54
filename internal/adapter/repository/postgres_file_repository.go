package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"vaultdrive/internal/domain/entity"
	"vaultdrive/internal/domain/repository"
	apperrors "vaultdrive/pkg/errors"
	"vaultdrive/pkg/logger"
)

// postgresFileRepository backs the Supabase deployment. Cursor-mode paging is
// implemented with keyset predicates so tokens stay portable with the
// Firestore backend; the database could also serve offset/limit, but cursor
// mode is the contract every caller uses.
type postgresFileRepository struct {
	db           *gorm.DB
	pollInterval time.Duration
}

func NewPostgresFileRepository(db *gorm.DB) repository.FileRepository {
	return &postgresFileRepository{
		db:           db,
		pollInterval: 3 * time.Second,
	}
}

func (r *postgresFileRepository) Create(ctx context.Context, record *entity.FileRecord) error {
	now := time.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return apperrors.Internal("Failed to create file record", err)
	}
	return nil
}

func (r *postgresFileRepository) GetByID(ctx context.Context, id string) (*entity.FileRecord, error) {
	var record entity.FileRecord
	err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("File", err)
		}
		return nil, apperrors.Internal("Failed to get file record", err)
	}
	return &record, nil
}

func (r *postgresFileRepository) Update(ctx context.Context, record *entity.FileRecord) error {
	record.UpdatedAt = time.Now()
	if err := r.db.WithContext(ctx).Save(record).Error; err != nil {
		return apperrors.Internal("Failed to update file record", err)
	}
	return nil
}

func (r *postgresFileRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&entity.FileRecord{}, "id = ?", id)
	if result.Error != nil {
		return apperrors.Internal("Failed to delete file record", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("File", nil)
	}
	return nil
}

func (r *postgresFileRepository) ListPage(ctx context.Context, ownerID string, q repository.ListQuery) ([]*entity.FileRecord, bool, error) {
	db := r.db.WithContext(ctx).Model(&entity.FileRecord{}).Where("owner_id = ?", ownerID)
	if q.Starred != nil {
		db = db.Where("starred = ?", *q.Starred)
	}
	if q.Trashed != nil {
		db = db.Where("trashed = ?", *q.Trashed)
	}

	col := "name"
	if q.SortBy == repository.SortByCreatedAt {
		col = "created_at"
	}
	op := ">"
	order := fmt.Sprintf("%s ASC, id ASC", col)
	if q.Dir == repository.SortDesc {
		op = "<"
		order = fmt.Sprintf("%s DESC, id ASC", col)
	}

	if q.After != nil {
		after := repository.AfterValue(q.After, q.SortBy)
		if q.After.ID != "" {
			db = db.Where(fmt.Sprintf("(%s %s ?) OR (%s = ? AND id > ?)", col, op, col), after, after, q.After.ID)
		} else {
			// Bare sort value with no tie-break id.
			db = db.Where(fmt.Sprintf("%s %s ?", col, op), after)
		}
	}

	var rows []*entity.FileRecord
	if err := db.Order(order).Limit(q.PageSize + 1).Find(&rows).Error; err != nil {
		return nil, false, apperrors.Internal("Failed to list file records", err)
	}

	hasMore := len(rows) > q.PageSize
	if hasMore {
		rows = rows[:q.PageSize]
	}
	return rows, hasMore, nil
}

func (r *postgresFileRepository) SumSizeByOwner(ctx context.Context, ownerID string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&entity.FileRecord{}).
		Where("owner_id = ?", ownerID).
		Select("COALESCE(SUM(size), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, apperrors.Internal("Failed to sum storage usage", err)
	}
	return total, nil
}

// SubscribeOwner polls: Postgres has no push snapshots here, so the handle
// re-reads the owner's set on an interval and delivers only when a cheap
// fingerprint (row count, total size, newest update) moves.
func (r *postgresFileRepository) SubscribeOwner(ctx context.Context, ownerID string) (repository.Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	sub := &pollingSubscription{
		ctx:      ctx,
		cancel:   cancel,
		updates:  make(chan []*entity.FileRecord, 1),
		interval: r.pollInterval,
		load: func(ctx context.Context) ([]*entity.FileRecord, error) {
			var rows []*entity.FileRecord
			err := r.db.WithContext(ctx).
				Where("owner_id = ?", ownerID).
				Order("created_at ASC, id ASC").
				Find(&rows).Error
			return rows, err
		},
	}
	go sub.run()
	return sub, nil
}

type pollingSubscription struct {
	ctx      context.Context
	cancel   context.CancelFunc
	updates  chan []*entity.FileRecord
	interval time.Duration
	load     func(ctx context.Context) ([]*entity.FileRecord, error)
}

func (s *pollingSubscription) Updates() <-chan []*entity.FileRecord {
	return s.updates
}

func (s *pollingSubscription) Unsubscribe() {
	s.cancel()
}

func (s *pollingSubscription) run() {
	defer close(s.updates)

	var lastPrint string
	deliver := func() bool {
		rows, err := s.load(s.ctx)
		if err != nil {
			if s.ctx.Err() == nil {
				logger.Error("File subscription poll error: %v", err)
			}
			return true
		}
		print := fingerprint(rows)
		if print == lastPrint {
			return true
		}
		lastPrint = print
		select {
		case s.updates <- rows:
			return true
		case <-s.ctx.Done():
			return false
		}
	}

	if !deliver() {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if !deliver() {
				return
			}
		}
	}
}

func fingerprint(rows []*entity.FileRecord) string {
	var total int64
	var newest time.Time
	for _, row := range rows {
		total += row.Size
		if row.UpdatedAt.After(newest) {
			newest = row.UpdatedAt
		}
	}
	return fmt.Sprintf("%d/%d/%d", len(rows), total, newest.UnixNano())
}
