package ledger

import (
	"context"
	"fmt"
	"time"

	"givechain/internal/config"
	"givechain/internal/give"
)

// NewGatewayFromConfig creates a Gateway implementation based on the ledger
// config type. sender may be nil for read-only use of the eth gateway.
func NewGatewayFromConfig(ctx context.Context, cfg config.LedgerConfig, sender TxSender, clock give.Clock, logger give.Logger) (give.Gateway, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryLedger(cfg.Owner, clock), nil
	case "eth":
		if cfg.RPCURL == "" {
			return nil, fmt.Errorf("eth ledger requires rpc_url to be set")
		}
		if cfg.ContractAddress == "" {
			return nil, fmt.Errorf("eth ledger requires contract_address to be set")
		}
		timeout := time.Duration(cfg.CallTimeoutSeconds) * time.Second
		return NewEthGateway(ctx, cfg.RPCURL, cfg.ContractAddress, sender, timeout, cfg.MaxRetries, logger)
	default:
		return nil, fmt.Errorf("unknown ledger type: %s", cfg.Type)
	}
}
