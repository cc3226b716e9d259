package db

import (
	"context"
	"time"

	"github.com/mahmed0x1/ARTEMIS/internal/domain"

	"gorm.io/gorm"
)

// ReadFaultRepository persists registry reads that were degraded to absent.
// FaultObserver feeds it from the read path.
type ReadFaultRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewReadFaultRepository(db *gorm.DB) *ReadFaultRepository {
	return &ReadFaultRepository{db: db, now: time.Now}
}

func (r *ReadFaultRepository) Append(ctx context.Context, fault domain.ReadFault) error {
	if r.db == nil {
		return errDBUnavailable
	}
	createdAt := fault.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now()
	}
	model := ReadFaultModel{
		ID:          newUUID(),
		ContentHash: fault.Hash.Hex(),
		Operation:   fault.Operation,
		Error:       fault.Error,
		CreatedAt:   createdAt.UTC(),
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *ReadFaultRepository) ListByHash(ctx context.Context, hash domain.ContentHash) ([]domain.ReadFault, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []ReadFaultModel
	err := r.db.WithContext(ctx).
		Where("content_hash = ?", hash.Hex()).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.ReadFault, 0, len(models))
	for _, m := range models {
		out = append(out, domain.ReadFault{
			Hash:      hash,
			Operation: m.Operation,
			Error:     m.Error,
			CreatedAt: m.CreatedAt,
		})
	}
	return out, nil
}

var _ domain.ReadFaultRepository = (*ReadFaultRepository)(nil)
