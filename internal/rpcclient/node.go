package rpcclient

import (
	"context"
	"fmt"

	"github.com/Klingon-tech/xudt-tools/pkg/tx"
	"github.com/Klingon-tech/xudt-tools/pkg/types"
)

// Outputs validators accepted by send_transaction.
const (
	ValidatorPassthrough    = "passthrough"
	ValidatorWellKnownLocks = "well_known_scripts_only"
)

// Transaction status values reported by get_transaction.
const (
	StatusPending   = "pending"
	StatusProposed  = "proposed"
	StatusCommitted = "committed"
	StatusRejected  = "rejected"
	StatusUnknown   = "unknown"
)

// Node wraps the node RPC methods used for submission.
type Node struct {
	client *Client
}

// NewNode creates a node client.
func NewNode(client *Client) *Node {
	return &Node{client: client}
}

// SendTransaction submits a signed transaction and returns its hash.
// validator is passed through as the outputs validator; an empty string
// leaves the node default in place.
func (n *Node) SendTransaction(ctx context.Context, t *tx.Transaction, validator string) (types.Hash, error) {
	params := []any{EncodeTransaction(t)}
	if validator != "" {
		params = append(params, validator)
	}
	var hash types.Hash
	if err := n.client.Call(ctx, "send_transaction", params, &hash); err != nil {
		return types.Hash{}, fmt.Errorf("send_transaction: %w", err)
	}
	return hash, nil
}

// TxStatus is the status part of a get_transaction result.
type TxStatus struct {
	Status    string      `json:"status"`
	BlockHash *types.Hash `json:"block_hash"`
	Reason    *string     `json:"reason"`
}

type txWithStatus struct {
	TxStatus TxStatus `json:"tx_status"`
}

// GetTransactionStatus returns the pool or chain status of a transaction.
func (n *Node) GetTransactionStatus(ctx context.Context, hash types.Hash) (*TxStatus, error) {
	var res *txWithStatus
	if err := n.client.Call(ctx, "get_transaction", []any{hash}, &res); err != nil {
		return nil, fmt.Errorf("get_transaction: %w", err)
	}
	if res == nil {
		return &TxStatus{Status: StatusUnknown}, nil
	}
	return &res.TxStatus, nil
}
