package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/mahmed0x1/ARTEMIS/internal/domain"
)

// Caller is the subset of an Ethereum client needed for read-only calls.
type Caller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Registry reads license records from a deployed registry contract.
type Registry struct {
	address common.Address
	abi     abi.ABI
	caller  Caller
}

func New(address common.Address, parsed abi.ABI, caller Caller) *Registry {
	return &Registry{address: address, abi: parsed, caller: caller}
}

func (r *Registry) Address() common.Address { return r.address }

// Schema reports the function surface of the configured ABI.
func (r *Registry) Schema(ctx context.Context) ([]domain.FunctionSignature, error) {
	return SchemaFromABI(r.abi), nil
}

func (r *Registry) Licenses(ctx context.Context, hash domain.ContentHash) (domain.LicenseRecord, error) {
	values, err := r.call(ctx, domain.FnLicenses, [32]byte(hash))
	if err != nil {
		return domain.LicenseRecord{}, err
	}
	if len(values) != 4 {
		return domain.LicenseRecord{}, malformed(domain.FnLicenses, "expected 4 values, got %d", len(values))
	}
	owner, ok := values[0].(common.Address)
	if !ok {
		return domain.LicenseRecord{}, malformed(domain.FnLicenses, "owner has type %T", values[0])
	}
	licenseID, ok := values[1].(string)
	if !ok {
		return domain.LicenseRecord{}, malformed(domain.FnLicenses, "license id has type %T", values[1])
	}
	registeredAt, ok := values[2].(*big.Int)
	if !ok || registeredAt == nil || !registeredAt.IsUint64() {
		return domain.LicenseRecord{}, malformed(domain.FnLicenses, "registered at out of range: %v", values[2])
	}
	revoked, ok := values[3].(bool)
	if !ok {
		return domain.LicenseRecord{}, malformed(domain.FnLicenses, "revoked has type %T", values[3])
	}
	return domain.LicenseRecord{
		Owner:        owner.Hex(),
		LicenseID:    licenseID,
		RegisteredAt: registeredAt.Uint64(),
		Revoked:      revoked,
	}, nil
}

func (r *Registry) IsRevokable(ctx context.Context, hash domain.ContentHash) (bool, error) {
	values, err := r.call(ctx, domain.FnIsRevokable, [32]byte(hash))
	if err != nil {
		return false, err
	}
	if len(values) != 1 {
		return false, malformed(domain.FnIsRevokable, "expected 1 value, got %d", len(values))
	}
	revokable, ok := values[0].(bool)
	if !ok {
		return false, malformed(domain.FnIsRevokable, "value has type %T", values[0])
	}
	return revokable, nil
}

func (r *Registry) call(ctx context.Context, method string, args ...any) ([]any, error) {
	input, err := r.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: pack %s: %w", domain.ErrTransportFault, method, err)
	}
	output, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &r.address, Data: input}, nil)
	if err != nil {
		return nil, classify(method, err)
	}
	if len(output) == 0 {
		return nil, malformed(method, "empty output")
	}
	values, err := r.abi.Unpack(method, output)
	if err != nil {
		return nil, fmt.Errorf("%w: unpack %s: %w", domain.ErrTransportFault, method, err)
	}
	return values, nil
}

// classify separates contract-level reverts from failures of the node or
// the connection to it.
func classify(method string, err error) error {
	if isRevert(err) {
		return fmt.Errorf("%w: %s: %w", domain.ErrExecutionReverted, method, err)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrTransportFault, method, err)
}

func isRevert(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	// geth and most clients report reverts with code 3 and the revert data.
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == 3 {
		return true
	}
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) && dataErr.ErrorData() != nil {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "execution reverted")
}

func malformed(method, format string, args ...any) error {
	return fmt.Errorf("%w: %s: malformed output: %s", domain.ErrTransportFault, method, fmt.Sprintf(format, args...))
}

var _ domain.Registry = (*Registry)(nil)
