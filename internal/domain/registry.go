package domain

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// Registry is the read surface of the on-chain license registry.
//
// Licenses returns the raw record; an unregistered hash yields a record with
// the zero owner. Implementations classify failures with ErrExecutionReverted
// and ErrTransportFault.
type Registry interface {
	Schema(ctx context.Context) ([]FunctionSignature, error)
	Licenses(ctx context.Context, hash ContentHash) (LicenseRecord, error)
	IsRevokable(ctx context.Context, hash ContentHash) (bool, error)
}

// RegistryWriter submits state-changing transactions to the registry.
type RegistryWriter interface {
	RegisterImage(ctx context.Context, hash ContentHash, licenseID string) (TxReceipt, error)
	RevokeImage(ctx context.Context, hash ContentHash) (TxReceipt, error)
}

type FunctionSignature struct {
	Name    string   `json:"name"`
	Inputs  []string `json:"inputs"`
	Outputs []string `json:"outputs"`
}

func (f FunctionSignature) String() string {
	return fmt.Sprintf("%s(%s) returns (%s)", f.Name, strings.Join(f.Inputs, ","), strings.Join(f.Outputs, ","))
}

const (
	FnLicenses      = "licenses"
	FnRegisterImage = "registerImage"
	FnRevokeImage   = "revokeImage"
	FnIsRevokable   = "isRevokable"
)

// RegistrySchema is the function surface the oracle depends on.
var RegistrySchema = []FunctionSignature{
	{Name: FnLicenses, Inputs: []string{"bytes32"}, Outputs: []string{"address", "string", "uint256", "bool"}},
	{Name: FnRegisterImage, Inputs: []string{"bytes32", "string"}, Outputs: []string{}},
	{Name: FnRevokeImage, Inputs: []string{"bytes32"}, Outputs: []string{}},
	{Name: FnIsRevokable, Inputs: []string{"bytes32"}, Outputs: []string{"bool"}},
}

// ValidateSchema checks that every function of RegistrySchema is present in
// remote with identical input and output types. Extra remote functions are
// ignored.
func ValidateSchema(remote []FunctionSignature) error {
	index := make(map[string]FunctionSignature, len(remote))
	for _, fn := range remote {
		index[fn.Name] = fn
	}
	for _, want := range RegistrySchema {
		got, ok := index[want.Name]
		if !ok {
			return fmt.Errorf("%w: registry missing required function %s", ErrSchemaMismatch, want.Name)
		}
		if !slices.Equal(got.Inputs, want.Inputs) {
			return fmt.Errorf("%w: function %s has incorrect input parameters: want (%s), got (%s)",
				ErrSchemaMismatch, want.Name, strings.Join(want.Inputs, ","), strings.Join(got.Inputs, ","))
		}
		if !slices.Equal(got.Outputs, want.Outputs) {
			return fmt.Errorf("%w: function %s has incorrect return types: want (%s), got (%s)",
				ErrSchemaMismatch, want.Name, strings.Join(want.Outputs, ","), strings.Join(got.Outputs, ","))
		}
	}
	return nil
}
