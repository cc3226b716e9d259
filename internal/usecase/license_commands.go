package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/mahmed0x1/ARTEMIS/internal/domain"

	"github.com/go-playground/validator/v10"
)

var licenseIDPattern = regexp.MustCompile(`^[A-Za-z0-9.+-]{1,64}$`)

const recordTimeout = 5 * time.Second

type RegisterCommand struct {
	Hash      domain.ContentHash
	LicenseID string `validate:"required,spdx"`
}

// Registrar proposes registry writes. Commands on the same hash run one at a
// time and each is preceded by a fresh read, so a registered hash is never
// re-registered and a revocation is never sent for an unknown hash.
type Registrar struct {
	client   *RegistryClient
	writer   domain.RegistryWriter
	recorder TxRecorder
	validate *validator.Validate
	locks    *hashLocks
	logger   *slog.Logger
	now      func() time.Time
}

type RegistrarOptions struct {
	// Recorder, when set, receives one entry per submitted transaction.
	Recorder TxRecorder
	Logger   *slog.Logger
}

func NewRegistrar(client *RegistryClient, writer domain.RegistryWriter, opts RegistrarOptions) (*Registrar, error) {
	if client == nil {
		return nil, errors.New("registry client is required")
	}
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.RegisterValidation("spdx", func(fl validator.FieldLevel) bool {
		return licenseIDPattern.MatchString(fl.Field().String())
	}); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Registrar{
		client:   client,
		writer:   writer,
		recorder: opts.Recorder,
		validate: validate,
		locks:    newHashLocks(),
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Writable reports whether a writer account is configured.
func (r *Registrar) Writable() bool { return r != nil && r.writer != nil }

func (r *Registrar) Register(ctx context.Context, cmd RegisterCommand) (domain.TxReceipt, error) {
	if r.writer == nil {
		return domain.TxReceipt{}, domain.ErrReadOnly
	}
	if err := r.validate.Struct(cmd); err != nil {
		return domain.TxReceipt{}, fmt.Errorf("%w: %q", domain.ErrInvalidLicenseID, cmd.LicenseID)
	}
	unlock := r.locks.lock(cmd.Hash)
	defer unlock()

	lookup := r.client.FetchRecord(ctx, cmd.Hash)
	switch lookup.Kind {
	case domain.LookupFound:
		return domain.TxReceipt{}, fmt.Errorf("%w: %s", domain.ErrAlreadyRegistered, cmd.Hash.Hex())
	case domain.LookupFault:
		return domain.TxReceipt{}, fmt.Errorf("preflight read: %w", lookup.Err)
	}

	receipt, err := r.writer.RegisterImage(ctx, cmd.Hash, cmd.LicenseID)
	r.record(ctx, domain.TxReceipt{Hash: cmd.Hash, Action: domain.TxActionRegister, LicenseID: cmd.LicenseID}, receipt, err)
	if err != nil {
		return domain.TxReceipt{}, fmt.Errorf("register %s: %w", cmd.Hash.Hex(), err)
	}
	return receipt, nil
}

func (r *Registrar) Revoke(ctx context.Context, hash domain.ContentHash) (domain.TxReceipt, error) {
	if r.writer == nil {
		return domain.TxReceipt{}, domain.ErrReadOnly
	}
	unlock := r.locks.lock(hash)
	defer unlock()

	lookup := r.client.FetchRecord(ctx, hash)
	switch lookup.Kind {
	case domain.LookupNotFound:
		return domain.TxReceipt{}, fmt.Errorf("%w: %s", domain.ErrNotRegistered, hash.Hex())
	case domain.LookupFault:
		return domain.TxReceipt{}, fmt.Errorf("preflight read: %w", lookup.Err)
	}
	if lookup.Record.Revoked {
		return domain.TxReceipt{}, fmt.Errorf("%w: %s", domain.ErrAlreadyRevoked, hash.Hex())
	}
	revokable, fault := r.client.FetchRevokability(ctx, hash)
	if fault != nil {
		return domain.TxReceipt{}, fmt.Errorf("preflight read: %w", fault)
	}
	if !revokable {
		return domain.TxReceipt{}, fmt.Errorf("%w: %s (%s)", domain.ErrNotRevokable, hash.Hex(), lookup.Record.LicenseID)
	}

	receipt, err := r.writer.RevokeImage(ctx, hash)
	r.record(ctx, domain.TxReceipt{Hash: hash, Action: domain.TxActionRevoke, LicenseID: lookup.Record.LicenseID}, receipt, err)
	if err != nil {
		return domain.TxReceipt{}, fmt.Errorf("revoke %s: %w", hash.Hex(), err)
	}
	return receipt, nil
}

// record persists the outcome of a submitted transaction. The transaction
// may already be on chain, so the write outlives the caller's context.
func (r *Registrar) record(ctx context.Context, base, receipt domain.TxReceipt, err error) {
	if r.recorder == nil {
		return
	}
	entry := domain.TxRecord{Receipt: receipt, CreatedAt: r.now().UTC()}
	if err != nil {
		entry.Receipt = base
		entry.Receipt.Status = domain.TxStatusFailed
		entry.Error = err.Error()
	}
	if entry.Receipt.LicenseID == "" {
		entry.Receipt.LicenseID = base.LicenseID
	}
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if appendErr := r.recorder.Append(writeCtx, entry); appendErr != nil {
		r.logger.WarnContext(ctx, "persist registry transaction failed",
			slog.String("hash", entry.Receipt.Hash.Hex()),
			slog.String("action", string(entry.Receipt.Action)),
			slog.String("tx_hash", entry.Receipt.TxHash),
			slog.String("error", appendErr.Error()))
	}
}

type hashLocks struct {
	mu    sync.Mutex
	locks map[domain.ContentHash]*hashLock
}

type hashLock struct {
	mu   sync.Mutex
	refs int
}

func newHashLocks() *hashLocks {
	return &hashLocks{locks: make(map[domain.ContentHash]*hashLock)}
}

func (l *hashLocks) lock(hash domain.ContentHash) func() {
	l.mu.Lock()
	entry, ok := l.locks[hash]
	if !ok {
		entry = &hashLock{}
		l.locks[hash] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, hash)
		}
		l.mu.Unlock()
	}
}
