package tx

// TxSizeOffset accounts for the transaction's offset slot in the block's
// transaction vector, which counts against its size.
const TxSizeOffset = 4

// DefaultSignatureWitnessSize is the worst-case size of the signature that
// will be placed in the first witness.
const DefaultSignatureWitnessSize = 65

// feeRateUnit is the fee rate denominator: rates are shannons per 1000 bytes.
const feeRateUnit = 1000

// FeeForSize returns ceil(size * feeRate / 1000).
func FeeForSize(size, feeRate uint64) uint64 {
	product := size * feeRate
	fee := product / feeRateUnit
	if product%feeRateUnit != 0 {
		fee++
	}
	return fee
}

// EstimateSize returns the size a transaction will have once signed:
// its current serialized size, the block offset slot and the signature
// that will fill the first witness.
func EstimateSize(transaction *Transaction, signatureWitnessSize uint64) uint64 {
	return SerializedSize(transaction) + TxSizeOffset + signatureWitnessSize
}

// RequiredFee returns the fee for a fully shaped, unsigned transaction at
// the given fee rate (shannons per 1000 bytes).
func RequiredFee(transaction *Transaction, feeRate, signatureWitnessSize uint64) uint64 {
	return FeeForSize(EstimateSize(transaction, signatureWitnessSize), feeRate)
}
