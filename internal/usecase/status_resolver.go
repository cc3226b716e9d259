package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/mahmed0x1/ARTEMIS/internal/domain"
)

type FaultPolicy string

const (
	// FaultPolicyDegrade keeps status queries total: a faulted read yields an
	// absent-like status flagged as degraded.
	FaultPolicyDegrade FaultPolicy = "degrade"
	// FaultPolicyStrict surfaces faulted reads as errors wrapping
	// domain.ErrTransportFault.
	FaultPolicyStrict FaultPolicy = "strict"
)

const DefaultBatchConcurrency = 8

func ParseFaultPolicy(value string) (FaultPolicy, error) {
	switch FaultPolicy(value) {
	case "", FaultPolicyDegrade:
		return FaultPolicyDegrade, nil
	case FaultPolicyStrict:
		return FaultPolicyStrict, nil
	default:
		return "", fmt.Errorf("unknown fault policy %q", value)
	}
}

type OracleOptions struct {
	FaultPolicy      FaultPolicy
	BatchConcurrency int
	BatchObserver    BatchObserver
}

// Oracle resolves content hashes to license status. It holds no mutable
// state and is safe for concurrent use.
type Oracle struct {
	client        *RegistryClient
	faultPolicy   FaultPolicy
	concurrency   int
	batchObserver BatchObserver
}

func NewOracle(client *RegistryClient, opts OracleOptions) (*Oracle, error) {
	if client == nil {
		return nil, errors.New("registry client is required")
	}
	policy, err := ParseFaultPolicy(string(opts.FaultPolicy))
	if err != nil {
		return nil, err
	}
	concurrency := opts.BatchConcurrency
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}
	return &Oracle{
		client:        client,
		faultPolicy:   policy,
		concurrency:   concurrency,
		batchObserver: opts.BatchObserver,
	}, nil
}

// Resolve normalizes input and resolves its status. The only errors in the
// default fault policy are domain.ErrInvalidHashFormat and context errors
// from the caller.
func (o *Oracle) Resolve(ctx context.Context, input any) (domain.LicenseStatus, error) {
	hash, err := domain.Normalize(input)
	if err != nil {
		return domain.LicenseStatus{}, err
	}
	return o.ResolveHash(ctx, hash)
}

func (o *Oracle) ResolveHash(ctx context.Context, hash domain.ContentHash) (domain.LicenseStatus, error) {
	lookup := o.client.FetchRecord(ctx, hash)
	record, ok := lookup.Get()
	if !ok {
		status := domain.AbsentStatus()
		if lookup.IsFault() {
			if err := ctx.Err(); err != nil {
				return domain.LicenseStatus{}, err
			}
			if o.faultPolicy == FaultPolicyStrict {
				return domain.LicenseStatus{}, lookup.Err
			}
			status.Degraded = true
			status.Fault = lookup.Err.Error()
		}
		return status, nil
	}

	owner := record.Owner
	licenseID := record.LicenseID
	status := domain.LicenseStatus{
		Exists:       true,
		Valid:        !record.Revoked,
		Owner:        &owner,
		LicenseID:    &licenseID,
		RegisteredAt: domain.FormatRegisteredAt(record.RegisteredAt),
		Revoked:      record.Revoked,
	}
	revokable, fault := o.client.FetchRevokability(ctx, hash)
	if fault != nil {
		if err := ctx.Err(); err != nil {
			return domain.LicenseStatus{}, err
		}
		if o.faultPolicy == FaultPolicyStrict {
			return domain.LicenseStatus{}, fault
		}
		status.Degraded = true
		status.Fault = fault.Error()
	}
	status.Revokable = revokable
	return status, nil
}

// IsLicensed reports whether input has a registered, non-revoked license.
func (o *Oracle) IsLicensed(ctx context.Context, input any) (bool, error) {
	status, err := o.Resolve(ctx, input)
	if err != nil {
		return false, err
	}
	return status.Valid, nil
}
