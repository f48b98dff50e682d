package tx

// WitnessArgs is the structured witness consumed by lock and type scripts.
// A nil field is serialized as an absent option.
type WitnessArgs struct {
	Lock       []byte
	InputType  []byte
	OutputType []byte
}

func optBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return molBytes(b)
}

// Bytes returns the serialized witness args.
func (w WitnessArgs) Bytes() []byte {
	return molTable(optBytes(w.Lock), optBytes(w.InputType), optBytes(w.OutputType))
}

// PlaceholderWitnesses returns one witness per input: an empty WitnessArgs
// at index 0, where the signer places the lock signature, and empty bytes
// everywhere else.
func PlaceholderWitnesses(numInputs int) [][]byte {
	witnesses := make([][]byte, numInputs)
	for i := range witnesses {
		if i == 0 {
			witnesses[i] = WitnessArgs{}.Bytes()
			continue
		}
		witnesses[i] = []byte{}
	}
	return witnesses
}
