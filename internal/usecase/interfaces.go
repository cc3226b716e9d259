package usecase

import (
	"context"

	"github.com/mahmed0x1/ARTEMIS/internal/domain"
)

// RegistryObserver is notified of every registry read outcome. err is set
// for reverted and faulted reads. Observers must not block and swallow their
// own errors.
type RegistryObserver interface {
	ObserveRead(ctx context.Context, operation string, hash domain.ContentHash, kind domain.LookupKind, err error)
}

type RegistryObserverFunc func(ctx context.Context, operation string, hash domain.ContentHash, kind domain.LookupKind, err error)

func (f RegistryObserverFunc) ObserveRead(ctx context.Context, operation string, hash domain.ContentHash, kind domain.LookupKind, err error) {
	f(ctx, operation, hash, kind, err)
}

// BatchObserver receives the number of distinct hashes of every batch.
type BatchObserver interface {
	ObserveBatch(size int)
}

type TxRecorder interface {
	Append(ctx context.Context, record domain.TxRecord) error
}

type PolicyEngine interface {
	Evaluate(ctx context.Context, input domain.UsageInput) (domain.PolicyEvaluation, error)
}

// StatusResolver is the read API shared by the HTTP and CLI surfaces.
type StatusResolver interface {
	Resolve(ctx context.Context, input any) (domain.LicenseStatus, error)
	ResolveMany(ctx context.Context, inputs []any) (map[string]domain.LicenseStatus, error)
}
