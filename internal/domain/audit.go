package domain

import (
	"context"
	"time"
)

// ReadFault is a registry read that failed below the contract layer and was
// downgraded to an absent result.
type ReadFault struct {
	Hash      ContentHash
	Operation string
	Error     string
	CreatedAt time.Time
}

type TxRecord struct {
	Receipt   TxReceipt
	Error     string
	CreatedAt time.Time
}

type ReadFaultRepository interface {
	Append(ctx context.Context, fault ReadFault) error
	ListByHash(ctx context.Context, hash ContentHash) ([]ReadFault, error)
}

type TxRecordRepository interface {
	Append(ctx context.Context, record TxRecord) error
	ListByHash(ctx context.Context, hash ContentHash) ([]TxRecord, error)
}
