package types

import "fmt"

// OutPoint references a specific output in a committed transaction.
type OutPoint struct {
	TxHash Hash   `json:"tx_hash"`
	Index  uint32 `json:"index"`
}

// IsZero returns true if the outpoint has a zero TxHash and zero index.
func (o OutPoint) IsZero() bool {
	return o.TxHash.IsZero() && o.Index == 0
}

// String returns "txhash:index".
func (o OutPoint) String() string {
	return fmt.Sprintf("%s:%d", o.TxHash.String(), o.Index)
}
