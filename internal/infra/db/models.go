package db

import "time"

type ReadFaultModel struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	ContentHash string    `gorm:"size:66;index;not null"`
	Operation   string    `gorm:"not null"`
	Error       string    `gorm:"not null"`
	CreatedAt   time.Time `gorm:"index;not null"`
}

func (ReadFaultModel) TableName() string { return "registry_read_faults" }

type LicenseTxModel struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	ContentHash string `gorm:"size:66;index;not null"`
	Action      string `gorm:"not null"`
	LicenseID   string
	TxHash      string `gorm:"index"`
	Status      string `gorm:"not null"`
	BlockNumber uint64
	Sender      string
	Error       string
	CreatedAt   time.Time `gorm:"index;not null"`
}

func (LicenseTxModel) TableName() string { return "license_transactions" }
