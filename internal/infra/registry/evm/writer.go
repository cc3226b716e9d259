package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/mahmed0x1/ARTEMIS/internal/domain"
)

// Backend is what the writer needs to sign, submit and await transactions.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
}

type WriterOptions struct {
	// PrivateKeyHex is the hex encoded secp256k1 key of the submitting
	// account. Empty means read-only.
	PrivateKeyHex string
	ChainID       *big.Int
	WaitMined     bool
}

// Writer submits registerImage and revokeImage transactions.
type Writer struct {
	contract  *bind.BoundContract
	backend   Backend
	opts      bind.TransactOpts
	waitMined bool
}

// NewWriter returns domain.ErrReadOnly when no private key is configured.
func NewWriter(ctx context.Context, address common.Address, parsed abi.ABI, backend Backend, opts WriterOptions) (*Writer, error) {
	keyHex := strings.TrimPrefix(strings.TrimSpace(opts.PrivateKeyHex), "0x")
	if keyHex == "" {
		return nil, domain.ErrReadOnly
	}
	key, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	chainID := opts.ChainID
	if chainID == nil || chainID.Sign() == 0 {
		if backend == nil {
			return nil, errors.New("chain id is required without a backend")
		}
		chainID, err = backend.ChainID(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: chain id: %w", domain.ErrTransportFault, err)
		}
	}
	transactOpts, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, fmt.Errorf("build transactor: %w", err)
	}
	return &Writer{
		contract:  bind.NewBoundContract(address, parsed, backend, backend, backend),
		backend:   backend,
		opts:      *transactOpts,
		waitMined: opts.WaitMined,
	}, nil
}

// From is the submitting account.
func (w *Writer) From() common.Address { return w.opts.From }

func (w *Writer) RegisterImage(ctx context.Context, hash domain.ContentHash, licenseID string) (domain.TxReceipt, error) {
	return w.submit(ctx, domain.TxReceipt{Hash: hash, Action: domain.TxActionRegister, LicenseID: licenseID},
		domain.FnRegisterImage, [32]byte(hash), licenseID)
}

func (w *Writer) RevokeImage(ctx context.Context, hash domain.ContentHash) (domain.TxReceipt, error) {
	return w.submit(ctx, domain.TxReceipt{Hash: hash, Action: domain.TxActionRevoke},
		domain.FnRevokeImage, [32]byte(hash))
}

func (w *Writer) submit(ctx context.Context, receipt domain.TxReceipt, method string, params ...any) (domain.TxReceipt, error) {
	opts := w.opts
	opts.Context = ctx
	receipt.From = opts.From.Hex()

	tx, err := w.contract.Transact(&opts, method, params...)
	if err != nil {
		receipt.Status = domain.TxStatusFailed
		return receipt, classify(method, err)
	}
	receipt.TxHash = tx.Hash().Hex()
	receipt.Status = domain.TxStatusSubmitted
	if !w.waitMined {
		return receipt, nil
	}

	mined, err := bind.WaitMined(ctx, w.backend, tx)
	if err != nil {
		return receipt, fmt.Errorf("%w: wait for %s: %w", domain.ErrTransportFault, receipt.TxHash, err)
	}
	if mined.BlockNumber != nil {
		receipt.BlockNumber = mined.BlockNumber.Uint64()
	}
	if mined.Status == types.ReceiptStatusFailed {
		receipt.Status = domain.TxStatusFailed
		return receipt, fmt.Errorf("%w: %s: transaction %s failed", domain.ErrExecutionReverted, method, receipt.TxHash)
	}
	receipt.Status = domain.TxStatusMined
	return receipt, nil
}

var _ domain.RegistryWriter = (*Writer)(nil)
