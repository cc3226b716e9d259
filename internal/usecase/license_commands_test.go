package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/mahmed0x1/ARTEMIS/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryTxRecorder struct {
	mu      sync.Mutex
	records []domain.TxRecord
}

func (m *memoryTxRecorder) Append(ctx context.Context, record domain.TxRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return nil
}

func newTestRegistrar(t *testing.T, registry *stubRegistry, recorder TxRecorder) *Registrar {
	t.Helper()
	registrar, err := NewRegistrar(newTestClient(t, registry, RegistryClientOptions{}), registry, RegistrarOptions{Recorder: recorder})
	require.NoError(t, err)
	return registrar
}

func TestRegisterThenDuplicateFails(t *testing.T) {
	registry := newStubRegistry()
	recorder := &memoryTxRecorder{}
	registrar := newTestRegistrar(t, registry, recorder)
	hash := hashOf(t, "example-image-123")

	receipt, err := registrar.Register(context.Background(), RegisterCommand{Hash: hash, LicenseID: "CC-BY-4.0"})
	require.NoError(t, err)
	assert.Equal(t, domain.TxActionRegister, receipt.Action)
	assert.Equal(t, hash, receipt.Hash)

	_, err = registrar.Register(context.Background(), RegisterCommand{Hash: hash, LicenseID: "MIT"})
	require.ErrorIs(t, err, domain.ErrAlreadyRegistered)
	assert.Len(t, registry.writes, 1, "duplicate registration must not reach the registry")
	require.Len(t, recorder.records, 1)
	assert.Equal(t, domain.TxStatusMined, recorder.records[0].Receipt.Status)
}

func TestRegisterValidatesLicenseID(t *testing.T) {
	registry := newStubRegistry()
	registrar := newTestRegistrar(t, registry, nil)
	for _, id := range []string{"", "CC BY", "license/with/slash", string(make([]byte, 65))} {
		_, err := registrar.Register(context.Background(), RegisterCommand{Hash: hashOf(t, id), LicenseID: id})
		require.ErrorIs(t, err, domain.ErrInvalidLicenseID, "license id %q", id)
	}
	for _, id := range []string{"CC-BY-4.0", "GPL-3.0+", "CC0-1.0"} {
		_, err := registrar.Register(context.Background(), RegisterCommand{Hash: hashOf(t, id), LicenseID: id})
		require.NoError(t, err, "license id %q", id)
	}
}

func TestRegisterAbortsOnPreflightFault(t *testing.T) {
	registry := newStubRegistry()
	hash := hashOf(t, "fault")
	registry.licensesErr[hash] = errors.New("connection refused")
	registrar := newTestRegistrar(t, registry, nil)

	_, err := registrar.Register(context.Background(), RegisterCommand{Hash: hash, LicenseID: "CC-BY-4.0"})
	require.ErrorIs(t, err, domain.ErrTransportFault)
	assert.Empty(t, registry.writes)
}

func TestRegisterRecordsFailedWrite(t *testing.T) {
	registry := newStubRegistry()
	registry.writeErr = domain.ErrExecutionReverted
	recorder := &memoryTxRecorder{}
	registrar := newTestRegistrar(t, registry, recorder)
	hash := hashOf(t, "race")

	_, err := registrar.Register(context.Background(), RegisterCommand{Hash: hash, LicenseID: "CC-BY-4.0"})
	require.ErrorIs(t, err, domain.ErrExecutionReverted)
	require.Len(t, recorder.records, 1)
	record := recorder.records[0]
	assert.Equal(t, domain.TxStatusFailed, record.Receipt.Status)
	assert.Equal(t, hash, record.Receipt.Hash)
	assert.Equal(t, "CC-BY-4.0", record.Receipt.LicenseID)
	assert.NotEmpty(t, record.Error)
}

func TestRevokeLifecycle(t *testing.T) {
	registry := newStubRegistry()
	registrar := newTestRegistrar(t, registry, nil)
	hash := hashOf(t, "revocable")

	_, err := registrar.Revoke(context.Background(), hash)
	require.ErrorIs(t, err, domain.ErrNotRegistered)

	_, err = registrar.Register(context.Background(), RegisterCommand{Hash: hash, LicenseID: "CC-BY-4.0"})
	require.NoError(t, err)

	receipt, err := registrar.Revoke(context.Background(), hash)
	require.NoError(t, err)
	assert.Equal(t, domain.TxActionRevoke, receipt.Action)

	_, err = registrar.Revoke(context.Background(), hash)
	require.ErrorIs(t, err, domain.ErrAlreadyRevoked)
	assert.Equal(t, []domain.TxAction{domain.TxActionRegister, domain.TxActionRevoke}, registry.writes)
}

func TestRevokeRejectsNonRevokableLicense(t *testing.T) {
	registry := newStubRegistry()
	registrar := newTestRegistrar(t, registry, nil)
	hash := hashOf(t, "public-domain")

	_, err := registrar.Register(context.Background(), RegisterCommand{Hash: hash, LicenseID: "CC0-1.0"})
	require.NoError(t, err)
	_, err = registrar.Revoke(context.Background(), hash)
	require.ErrorIs(t, err, domain.ErrNotRevokable)
}

func TestRegistrarWithoutWriterIsReadOnly(t *testing.T) {
	registry := newStubRegistry()
	registrar, err := NewRegistrar(newTestClient(t, registry, RegistryClientOptions{}), nil, RegistrarOptions{})
	require.NoError(t, err)

	_, err = registrar.Register(context.Background(), RegisterCommand{Hash: hashOf(t, "x"), LicenseID: "MIT"})
	require.ErrorIs(t, err, domain.ErrReadOnly)
	_, err = registrar.Revoke(context.Background(), hashOf(t, "x"))
	require.ErrorIs(t, err, domain.ErrReadOnly)
}

func TestConcurrentRegistrationsOfSameHashWriteOnce(t *testing.T) {
	registry := newStubRegistry()
	registrar := newTestRegistrar(t, registry, nil)
	hash := hashOf(t, "contended")

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = registrar.Register(context.Background(), RegisterCommand{Hash: hash, LicenseID: "CC-BY-4.0"})
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, domain.ErrAlreadyRegistered)
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, registry.writes, 1)
	assert.Empty(t, registrar.locks.locks, "hash locks must be released")
}

func TestRegistrarWritable(t *testing.T) {
	registry := newStubRegistry()
	assert.True(t, newTestRegistrar(t, registry, nil).Writable())
	readOnly, err := NewRegistrar(newTestClient(t, registry, RegistryClientOptions{}), nil, RegistrarOptions{})
	require.NoError(t, err)
	assert.False(t, readOnly.Writable())
	var nilRegistrar *Registrar
	assert.False(t, nilRegistrar.Writable())
}

type failingTxRecorder struct {
	mu          sync.Mutex
	ctxErrs     []error
	hasDeadline []bool
	err         error
}

func (f *failingTxRecorder) Append(ctx context.Context, record domain.TxRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := ctx.Deadline()
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	f.hasDeadline = append(f.hasDeadline, ok)
	return f.err
}

func TestRegisterLogsRecorderFailure(t *testing.T) {
	registry := newStubRegistry()
	logs := &syncBuffer{}
	recorder := &failingTxRecorder{err: errors.New("insert license_transactions: connection reset")}
	registrar, err := NewRegistrar(newTestClient(t, registry, RegistryClientOptions{}), registry, RegistrarOptions{
		Recorder: recorder,
		Logger:   testLogger(logs),
	})
	require.NoError(t, err)
	hash := hashOf(t, "audit")

	receipt, err := registrar.Register(context.Background(), RegisterCommand{Hash: hash, LicenseID: "CC-BY-4.0"})
	require.NoError(t, err, "a lost audit row must not fail a mined transaction")
	assert.Equal(t, domain.TxStatusMined, receipt.Status)
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "persist registry transaction failed")
	assert.Contains(t, logs.String(), "connection reset")
	assert.Contains(t, logs.String(), hash.Hex())
}

type cancellingWriter struct {
	domain.RegistryWriter
	cancel context.CancelFunc
}

func (w cancellingWriter) RegisterImage(ctx context.Context, hash domain.ContentHash, licenseID string) (domain.TxReceipt, error) {
	receipt, err := w.RegistryWriter.RegisterImage(ctx, hash, licenseID)
	w.cancel()
	return receipt, err
}

func TestRegisterRecordsAfterCallerDisconnects(t *testing.T) {
	registry := newStubRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	recorder := &failingTxRecorder{}
	registrar, err := NewRegistrar(newTestClient(t, registry, RegistryClientOptions{}),
		cancellingWriter{RegistryWriter: registry, cancel: cancel},
		RegistrarOptions{Recorder: recorder})
	require.NoError(t, err)

	_, err = registrar.Register(ctx, RegisterCommand{Hash: hashOf(t, "disconnect"), LicenseID: "MIT"})
	require.NoError(t, err)
	require.Len(t, recorder.ctxErrs, 1)
	assert.NoError(t, recorder.ctxErrs[0], "the record write must outlive the caller")
	assert.True(t, recorder.hasDeadline[0])
}
