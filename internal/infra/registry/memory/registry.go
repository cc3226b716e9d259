package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/mahmed0x1/ARTEMIS/internal/domain"
)

// DefaultNonRevokable lists public-domain declarations that cannot be
// revoked once registered.
var DefaultNonRevokable = []string{"CC0-1.0", "PDDL-1.0"}

// Registry is an in-process registry that enforces the same rules as the
// deployed contract: one registration per hash, owner-only revocation, and
// revoked never reverts to false.
type Registry struct {
	mu           sync.RWMutex
	records      map[domain.ContentHash]domain.LicenseRecord
	nonRevokable map[string]struct{}
	sender       string
	now          func() time.Time
	nonce        uint64

	// Faults, when set, is consulted before every read and write. A non-nil
	// return value is returned in place of the result.
	Faults func(operation string, hash domain.ContentHash) error
}

type Options struct {
	// Sender is the account used as owner for registrations.
	Sender       string
	NonRevokable []string
	Now          func() time.Time
}

func New(opts Options) *Registry {
	if opts.Sender == "" {
		opts.Sender = "0x00000000000000000000000000000000000a4e15"
	}
	if opts.NonRevokable == nil {
		opts.NonRevokable = DefaultNonRevokable
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	nonRevokable := make(map[string]struct{}, len(opts.NonRevokable))
	for _, id := range opts.NonRevokable {
		nonRevokable[id] = struct{}{}
	}
	return &Registry{
		records:      make(map[domain.ContentHash]domain.LicenseRecord),
		nonRevokable: nonRevokable,
		sender:       opts.Sender,
		now:          opts.Now,
	}
}

// WithSender returns a view of the registry that submits writes from sender.
func (r *Registry) WithSender(sender string) *Writer {
	return &Writer{registry: r, sender: sender}
}

func (r *Registry) Schema(ctx context.Context) ([]domain.FunctionSignature, error) {
	out := make([]domain.FunctionSignature, len(domain.RegistrySchema))
	copy(out, domain.RegistrySchema)
	return out, nil
}

func (r *Registry) Licenses(ctx context.Context, hash domain.ContentHash) (domain.LicenseRecord, error) {
	if err := r.fault(ctx, domain.FnLicenses, hash); err != nil {
		return domain.LicenseRecord{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.records[hash]
	if !ok {
		return domain.LicenseRecord{Owner: domain.ZeroOwner}, nil
	}
	return record, nil
}

func (r *Registry) IsRevokable(ctx context.Context, hash domain.ContentHash) (bool, error) {
	if err := r.fault(ctx, domain.FnIsRevokable, hash); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.records[hash]
	if !ok {
		return false, nil
	}
	_, locked := r.nonRevokable[record.LicenseID]
	return !locked, nil
}

func (r *Registry) RegisterImage(ctx context.Context, hash domain.ContentHash, licenseID string) (domain.TxReceipt, error) {
	return r.register(ctx, r.sender, hash, licenseID)
}

func (r *Registry) RevokeImage(ctx context.Context, hash domain.ContentHash) (domain.TxReceipt, error) {
	return r.revoke(ctx, r.sender, hash)
}

// Len reports the number of registered hashes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

func (r *Registry) register(ctx context.Context, sender string, hash domain.ContentHash, licenseID string) (domain.TxReceipt, error) {
	if err := r.fault(ctx, domain.FnRegisterImage, hash); err != nil {
		return domain.TxReceipt{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[hash]; exists {
		return domain.TxReceipt{}, fmt.Errorf("%w: already registered", domain.ErrExecutionReverted)
	}
	if licenseID == "" {
		return domain.TxReceipt{}, fmt.Errorf("%w: empty license id", domain.ErrExecutionReverted)
	}
	r.records[hash] = domain.LicenseRecord{
		Owner:        sender,
		LicenseID:    licenseID,
		RegisteredAt: uint64(r.now().Unix()),
	}
	return r.receiptLocked(sender, hash, domain.TxActionRegister, licenseID), nil
}

func (r *Registry) revoke(ctx context.Context, sender string, hash domain.ContentHash) (domain.TxReceipt, error) {
	if err := r.fault(ctx, domain.FnRevokeImage, hash); err != nil {
		return domain.TxReceipt{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	record, exists := r.records[hash]
	if !exists {
		return domain.TxReceipt{}, fmt.Errorf("%w: not registered", domain.ErrExecutionReverted)
	}
	if record.Owner != sender {
		return domain.TxReceipt{}, fmt.Errorf("%w: not owner", domain.ErrExecutionReverted)
	}
	if record.Revoked {
		return domain.TxReceipt{}, fmt.Errorf("%w: already revoked", domain.ErrExecutionReverted)
	}
	if _, locked := r.nonRevokable[record.LicenseID]; locked {
		return domain.TxReceipt{}, fmt.Errorf("%w: license not revokable", domain.ErrExecutionReverted)
	}
	record.Revoked = true
	r.records[hash] = record
	return r.receiptLocked(sender, hash, domain.TxActionRevoke, record.LicenseID), nil
}

func (r *Registry) receiptLocked(sender string, hash domain.ContentHash, action domain.TxAction, licenseID string) domain.TxReceipt {
	r.nonce++
	sum := sha256.Sum256([]byte(sender + ":" + hash.Hex() + ":" + string(action) + ":" + strconv.FormatUint(r.nonce, 10)))
	return domain.TxReceipt{
		Hash:        hash,
		Action:      action,
		LicenseID:   licenseID,
		TxHash:      "0x" + hex.EncodeToString(sum[:]),
		Status:      domain.TxStatusMined,
		BlockNumber: r.nonce,
		From:        sender,
	}
}

func (r *Registry) fault(ctx context.Context, operation string, hash domain.ContentHash) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrTransportFault, err)
	}
	if r.Faults == nil {
		return nil
	}
	return r.Faults(operation, hash)
}

// Writer submits writes from a fixed sender account.
type Writer struct {
	registry *Registry
	sender   string
}

func (w *Writer) RegisterImage(ctx context.Context, hash domain.ContentHash, licenseID string) (domain.TxReceipt, error) {
	return w.registry.register(ctx, w.sender, hash, licenseID)
}

func (w *Writer) RevokeImage(ctx context.Context, hash domain.ContentHash) (domain.TxReceipt, error) {
	return w.registry.revoke(ctx, w.sender, hash)
}

var (
	_ domain.Registry       = (*Registry)(nil)
	_ domain.RegistryWriter = (*Registry)(nil)
	_ domain.RegistryWriter = (*Writer)(nil)
)
