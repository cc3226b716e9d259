package evm

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/mahmed0x1/ARTEMIS/internal/domain"
)

//go:embed concept_registry.abi.json
var defaultABI []byte

// DefaultABI returns the ABI of the reference ConceptRegistry contract.
func DefaultABI() (abi.ABI, error) {
	return ParseABI(defaultABI)
}

// LoadABI reads an ABI from path. An empty path yields DefaultABI.
func LoadABI(path string) (abi.ABI, error) {
	if path == "" {
		return DefaultABI()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return abi.ABI{}, fmt.Errorf("read abi: %w", err)
	}
	return ParseABI(data)
}

// ParseABI accepts either a bare ABI array or a compiler build artifact
// carrying the ABI under the "abi" key.
func ParseABI(data []byte) (abi.ABI, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return abi.ABI{}, errors.New("abi is empty")
	}
	if trimmed[0] == '{' {
		var artifact struct {
			ABI json.RawMessage `json:"abi"`
		}
		if err := json.Unmarshal(trimmed, &artifact); err != nil {
			return abi.ABI{}, fmt.Errorf("decode artifact: %w", err)
		}
		if len(artifact.ABI) == 0 {
			return abi.ABI{}, errors.New("artifact has no abi")
		}
		trimmed = artifact.ABI
	}
	parsed, err := abi.JSON(bytes.NewReader(trimmed))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parse abi: %w", err)
	}
	return parsed, nil
}

// SchemaFromABI lists the functions of parsed, ordered by name.
func SchemaFromABI(parsed abi.ABI) []domain.FunctionSignature {
	out := make([]domain.FunctionSignature, 0, len(parsed.Methods))
	for _, method := range parsed.Methods {
		out = append(out, domain.FunctionSignature{
			Name:    method.RawName,
			Inputs:  argumentTypes(method.Inputs),
			Outputs: argumentTypes(method.Outputs),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func argumentTypes(args abi.Arguments) []string {
	types := make([]string, 0, len(args))
	for _, arg := range args {
		types = append(types, arg.Type.String())
	}
	return types
}
