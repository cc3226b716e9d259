package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mahmed0x1/ARTEMIS/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistryClientRejectsSchemaMismatch(t *testing.T) {
	registry := newStubRegistry()
	registry.schema = []domain.FunctionSignature{
		{Name: domain.FnLicenses, Inputs: []string{"bytes32"}, Outputs: []string{"address", "string", "uint256", "bool"}},
		{Name: domain.FnRegisterImage, Inputs: []string{"bytes32", "string"}},
		{Name: domain.FnRevokeImage, Inputs: []string{"bytes32"}},
	}
	_, err := NewRegistryClient(context.Background(), registry, RegistryClientOptions{})
	require.ErrorIs(t, err, domain.ErrSchemaMismatch)
	assert.Contains(t, err.Error(), "isRevokable")
}

func TestNewRegistryClientFailsWhenSchemaUnavailable(t *testing.T) {
	registry := newStubRegistry()
	registry.schemaErr = errors.New("abi not found")
	_, err := NewRegistryClient(context.Background(), registry, RegistryClientOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "abi not found")
}

func TestNewRegistryClientRequiresRegistry(t *testing.T) {
	_, err := NewRegistryClient(context.Background(), nil, RegistryClientOptions{})
	require.Error(t, err)
}

func TestFetchRecordOutcomes(t *testing.T) {
	registered := domain.LicenseRecord{Owner: testOwner, LicenseID: "CC-BY-4.0", RegisteredAt: 1700000000}
	cases := []struct {
		name       string
		setup      func(*stubRegistry, domain.ContentHash)
		wantKind   domain.LookupKind
		wantReason domain.NotFoundReason
	}{
		{
			name:       "zero owner",
			setup:      func(*stubRegistry, domain.ContentHash) {},
			wantKind:   domain.LookupNotFound,
			wantReason: domain.NotFoundUnregistered,
		},
		{
			name: "registered",
			setup: func(s *stubRegistry, h domain.ContentHash) {
				s.put(h, registered, true)
			},
			wantKind: domain.LookupFound,
		},
		{
			name: "reverted",
			setup: func(s *stubRegistry, h domain.ContentHash) {
				s.licensesErr[h] = domain.ErrExecutionReverted
			},
			wantKind:   domain.LookupNotFound,
			wantReason: domain.NotFoundReverted,
		},
		{
			name: "transport",
			setup: func(s *stubRegistry, h domain.ContentHash) {
				s.licensesErr[h] = errors.New("dial tcp: connection refused")
			},
			wantKind: domain.LookupFault,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			registry := newStubRegistry()
			hash := hashOf(t, tc.name)
			tc.setup(registry, hash)
			client := newTestClient(t, registry, RegistryClientOptions{})

			lookup := client.FetchRecord(context.Background(), hash)
			require.Equal(t, tc.wantKind, lookup.Kind)
			assert.Equal(t, tc.wantReason, lookup.Reason)
			if tc.wantKind == domain.LookupFound {
				assert.Equal(t, registered, lookup.Record)
			}
			if tc.wantKind == domain.LookupFault {
				assert.ErrorIs(t, lookup.Err, domain.ErrTransportFault)
				assert.Contains(t, lookup.Err.Error(), "connection refused")
			}
		})
	}
}

func TestFetchRecordFaultEmitsWarning(t *testing.T) {
	registry := newStubRegistry()
	hash := hashOf(t, "fault")
	registry.licensesErr[hash] = errors.New("malformed response")
	logs := &syncBuffer{}
	observer := &recordingObserver{}
	client := newTestClient(t, registry, RegistryClientOptions{
		Logger:    testLogger(logs),
		Observers: []RegistryObserver{observer},
	})

	lookup := client.FetchRecord(context.Background(), hash)
	require.True(t, lookup.IsFault())
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), hash.Hex())
	faults := observer.faults()
	require.Len(t, faults, 1)
	assert.Equal(t, domain.FnLicenses, faults[0].operation)
	assert.ErrorIs(t, faults[0].err, domain.ErrTransportFault)
}

func TestFetchRecordRevertDoesNotWarn(t *testing.T) {
	registry := newStubRegistry()
	hash := hashOf(t, "revert")
	registry.licensesErr[hash] = domain.ErrExecutionReverted
	logs := &syncBuffer{}
	client := newTestClient(t, registry, RegistryClientOptions{Logger: testLogger(logs)})

	lookup := client.FetchRecord(context.Background(), hash)
	require.Equal(t, domain.LookupNotFound, lookup.Kind)
	assert.NotContains(t, logs.String(), "level=WARN")
}

func TestFetchRecordAppliesCallTimeout(t *testing.T) {
	registry := newStubRegistry()
	registry.block = true
	client := newTestClient(t, registry, RegistryClientOptions{CallTimeout: 20 * time.Millisecond})

	start := time.Now()
	lookup := client.FetchRecord(context.Background(), hashOf(t, "slow"))
	require.True(t, lookup.IsFault())
	assert.ErrorIs(t, lookup.Err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestFetchRevokabilityCollapsesErrors(t *testing.T) {
	registry := newStubRegistry()
	revertHash := hashOf(t, "revert")
	faultHash := hashOf(t, "fault")
	okHash := hashOf(t, "ok")
	registry.revokableErr[revertHash] = domain.ErrExecutionReverted
	registry.revokableErr[faultHash] = errors.New("EOF")
	registry.revokable[okHash] = true
	client := newTestClient(t, registry, RegistryClientOptions{})

	revokable, fault := client.FetchRevokability(context.Background(), revertHash)
	assert.False(t, revokable)
	assert.NoError(t, fault)

	revokable, fault = client.FetchRevokability(context.Background(), faultHash)
	assert.False(t, revokable)
	assert.ErrorIs(t, fault, domain.ErrTransportFault)

	revokable, fault = client.FetchRevokability(context.Background(), okHash)
	assert.True(t, revokable)
	assert.NoError(t, fault)
}
