package tx

import "github.com/Klingon-tech/xudt-tools/pkg/types"

// ShannonsPerCKB is the number of shannons in one CKB. A cell must hold one
// CKB of capacity per byte it occupies.
const ShannonsPerCKB uint64 = 100_000_000

// capacityFieldSize is the size of the capacity field itself.
const capacityFieldSize = 8

// OccupiedBytes returns the number of bytes a cell of this shape occupies:
// capacity(8) + lock + optional type + data.
func OccupiedBytes(lock types.Script, typ *types.Script, dataLen int) uint64 {
	n := capacityFieldSize + lock.OccupiedSize() + dataLen
	if typ != nil {
		n += typ.OccupiedSize()
	}
	return uint64(n)
}

// MinCapacity returns the smallest capacity, in shannons, a cell of this
// shape may carry.
func MinCapacity(lock types.Script, typ *types.Script, dataLen int) uint64 {
	return OccupiedBytes(lock, typ, dataLen) * ShannonsPerCKB
}

// UDTAmountSize is the data length of a token cell holding only an amount.
const UDTAmountSize = 16

// UDTCellCapacity returns the capacity given to a token cell locked by lock:
// its minimum capacity plus bufferCKB whole CKB of headroom. The result does
// not depend on the amount, since the amount field has a fixed width.
func UDTCellCapacity(lock types.Script, typ types.Script, bufferCKB uint64) uint64 {
	return MinCapacity(lock, &typ, UDTAmountSize) + bufferCKB*ShannonsPerCKB
}
