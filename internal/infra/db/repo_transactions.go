package db

import (
	"context"
	"time"

	"github.com/mahmed0x1/ARTEMIS/internal/domain"
	"github.com/mahmed0x1/ARTEMIS/internal/usecase"

	"gorm.io/gorm"
)

type TxRecordRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewTxRecordRepository(db *gorm.DB) *TxRecordRepository {
	return &TxRecordRepository{db: db, now: time.Now}
}

func (r *TxRecordRepository) Append(ctx context.Context, record domain.TxRecord) error {
	if r.db == nil {
		return errDBUnavailable
	}
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now()
	}
	receipt := record.Receipt
	model := LicenseTxModel{
		ID:          newUUID(),
		ContentHash: receipt.Hash.Hex(),
		Action:      string(receipt.Action),
		LicenseID:   receipt.LicenseID,
		TxHash:      receipt.TxHash,
		Status:      receipt.Status,
		BlockNumber: receipt.BlockNumber,
		Sender:      receipt.From,
		Error:       record.Error,
		CreatedAt:   createdAt.UTC(),
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *TxRecordRepository) ListByHash(ctx context.Context, hash domain.ContentHash) ([]domain.TxRecord, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []LicenseTxModel
	err := r.db.WithContext(ctx).
		Where("content_hash = ?", hash.Hex()).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.TxRecord, 0, len(models))
	for _, m := range models {
		out = append(out, domain.TxRecord{
			Receipt: domain.TxReceipt{
				Hash:        hash,
				Action:      domain.TxAction(m.Action),
				LicenseID:   m.LicenseID,
				TxHash:      m.TxHash,
				Status:      m.Status,
				BlockNumber: m.BlockNumber,
				From:        m.Sender,
			},
			Error:     m.Error,
			CreatedAt: m.CreatedAt,
		})
	}
	return out, nil
}

var (
	_ domain.TxRecordRepository = (*TxRecordRepository)(nil)
	_ usecase.TxRecorder        = (*TxRecordRepository)(nil)
)
