package usecase

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/mahmed0x1/ARTEMIS/internal/domain"

	"github.com/stretchr/testify/require"
)

const testOwner = "0xAbC0000000000000000000000000000000000001"

type stubRegistry struct {
	mu sync.Mutex

	schema    []domain.FunctionSignature
	schemaErr error

	records      map[domain.ContentHash]domain.LicenseRecord
	revokable    map[domain.ContentHash]bool
	licensesErr  map[domain.ContentHash]error
	revokableErr map[domain.ContentHash]error
	block        bool

	licenseCalls   int
	revokableCalls int
	writes         []domain.TxAction
	writeErr       error
	now            uint64
}

func newStubRegistry() *stubRegistry {
	return &stubRegistry{
		schema:       domain.RegistrySchema,
		records:      map[domain.ContentHash]domain.LicenseRecord{},
		revokable:    map[domain.ContentHash]bool{},
		licensesErr:  map[domain.ContentHash]error{},
		revokableErr: map[domain.ContentHash]error{},
		now:          1700000000,
	}
}

func (s *stubRegistry) Schema(ctx context.Context) ([]domain.FunctionSignature, error) {
	return s.schema, s.schemaErr
}

func (s *stubRegistry) Licenses(ctx context.Context, hash domain.ContentHash) (domain.LicenseRecord, error) {
	s.mu.Lock()
	s.licenseCalls++
	block := s.block
	err := s.licensesErr[hash]
	record, ok := s.records[hash]
	s.mu.Unlock()

	if block {
		<-ctx.Done()
		return domain.LicenseRecord{}, ctx.Err()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return domain.LicenseRecord{}, ctxErr
	}
	if err != nil {
		return domain.LicenseRecord{}, err
	}
	if !ok {
		return domain.LicenseRecord{Owner: domain.ZeroOwner}, nil
	}
	return record, nil
}

func (s *stubRegistry) IsRevokable(ctx context.Context, hash domain.ContentHash) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revokableCalls++
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := s.revokableErr[hash]; err != nil {
		return false, err
	}
	return s.revokable[hash], nil
}

func (s *stubRegistry) RegisterImage(ctx context.Context, hash domain.ContentHash, licenseID string) (domain.TxReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, domain.TxActionRegister)
	if s.writeErr != nil {
		return domain.TxReceipt{}, s.writeErr
	}
	s.records[hash] = domain.LicenseRecord{Owner: testOwner, LicenseID: licenseID, RegisteredAt: s.now}
	s.revokable[hash] = licenseID != "CC0-1.0"
	return domain.TxReceipt{Hash: hash, Action: domain.TxActionRegister, LicenseID: licenseID, Status: domain.TxStatusMined, TxHash: "0x01"}, nil
}

func (s *stubRegistry) RevokeImage(ctx context.Context, hash domain.ContentHash) (domain.TxReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, domain.TxActionRevoke)
	if s.writeErr != nil {
		return domain.TxReceipt{}, s.writeErr
	}
	record := s.records[hash]
	record.Revoked = true
	s.records[hash] = record
	return domain.TxReceipt{Hash: hash, Action: domain.TxActionRevoke, Status: domain.TxStatusMined, TxHash: "0x02"}, nil
}

func (s *stubRegistry) put(hash domain.ContentHash, record domain.LicenseRecord, revokable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[hash] = record
	s.revokable[hash] = revokable
}

func (s *stubRegistry) calls() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.licenseCalls, s.revokableCalls
}

type recordedRead struct {
	operation string
	hash      domain.ContentHash
	kind      domain.LookupKind
	err       error
}

type recordingObserver struct {
	mu    sync.Mutex
	reads []recordedRead
}

func (r *recordingObserver) ObserveRead(ctx context.Context, operation string, hash domain.ContentHash, kind domain.LookupKind, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads = append(r.reads, recordedRead{operation: operation, hash: hash, kind: kind, err: err})
}

func (r *recordingObserver) faults() []recordedRead {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []recordedRead
	for _, read := range r.reads {
		if read.kind == domain.LookupFault {
			out = append(out, read)
		}
	}
	return out
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func hashOf(t *testing.T, seed string) domain.ContentHash {
	t.Helper()
	return domain.HashContent([]byte(seed))
}

func newTestClient(t *testing.T, registry domain.Registry, opts RegistryClientOptions) *RegistryClient {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = testLogger(io.Discard)
	}
	client, err := NewRegistryClient(context.Background(), registry, opts)
	require.NoError(t, err)
	return client
}

func newTestOracle(t *testing.T, registry domain.Registry, opts OracleOptions, clientOpts RegistryClientOptions) *Oracle {
	t.Helper()
	oracle, err := NewOracle(newTestClient(t, registry, clientOpts), opts)
	require.NoError(t, err)
	return oracle
}
