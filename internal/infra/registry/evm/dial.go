package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/mahmed0x1/ARTEMIS/internal/domain"
)

type Config struct {
	RPCURL        string
	Address       string
	ABIPath       string
	ChainID       int64
	PrivateKeyHex string
	WaitMined     bool
}

// Connection bundles the reader and, when a key is configured, the writer
// sharing one JSON-RPC client.
type Connection struct {
	Registry *Registry
	// Writer is nil for read-only connections.
	Writer *Writer
	client *ethclient.Client
}

func (c *Connection) Close() {
	if c != nil && c.client != nil {
		c.client.Close()
	}
}

// Dial connects to the node at cfg.RPCURL and binds the registry at
// cfg.Address. The ABI is checked against domain.RegistrySchema before any
// call is made.
func Dial(ctx context.Context, cfg Config) (*Connection, error) {
	if cfg.RPCURL == "" {
		return nil, errors.New("registry rpc url is required")
	}
	if !common.IsHexAddress(cfg.Address) {
		return nil, fmt.Errorf("invalid registry address %q", cfg.Address)
	}
	parsed, err := LoadABI(cfg.ABIPath)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateSchema(SchemaFromABI(parsed)); err != nil {
		return nil, err
	}

	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", domain.ErrTransportFault, cfg.RPCURL, err)
	}
	address := common.HexToAddress(cfg.Address)
	conn := &Connection{
		Registry: New(address, parsed, client),
		client:   client,
	}

	var chainID *big.Int
	if cfg.ChainID > 0 {
		chainID = big.NewInt(cfg.ChainID)
	}
	writer, err := NewWriter(ctx, address, parsed, client, WriterOptions{
		PrivateKeyHex: cfg.PrivateKeyHex,
		ChainID:       chainID,
		WaitMined:     cfg.WaitMined,
	})
	switch {
	case errors.Is(err, domain.ErrReadOnly):
	case err != nil:
		client.Close()
		return nil, err
	default:
		conn.Writer = writer
	}
	return conn, nil
}
