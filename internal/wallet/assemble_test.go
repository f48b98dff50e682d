package wallet

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/Klingon-tech/xudt-tools/pkg/tx"
	"github.com/Klingon-tech/xudt-tools/pkg/types"
	"github.com/Klingon-tech/xudt-tools/pkg/xudt"
)

func decodeOutput(t *testing.T, res *Result, i int) xudt.Amount {
	t.Helper()
	a, err := xudt.DecodeAmount(res.Tx.OutputsData[i])
	if err != nil {
		t.Fatalf("output %d: %v", i, err)
	}
	return a
}

// checkConservation asserts sum(outputs) + fee == sum(inputs) and that token
// amounts balance.
func checkConservation(t *testing.T, res *Result) {
	t.Helper()
	var in uint64
	for _, c := range res.Inputs {
		in += c.Output.Capacity
	}
	out, err := res.Tx.TotalOutputCapacity()
	if err != nil {
		t.Fatalf("TotalOutputCapacity: %v", err)
	}
	if in != out+res.Fee {
		t.Errorf("capacity conservation: in %d, out %d + fee %d", in, out, res.Fee)
	}
	if in != res.InputCapacity {
		t.Errorf("InputCapacity = %d, want %d", res.InputCapacity, in)
	}
	if out != res.OutputCapacity {
		t.Errorf("OutputCapacity = %d, want %d", res.OutputCapacity, out)
	}

	var tokenIn []xudt.Amount
	for _, c := range res.Inputs {
		if c.Output.HasType() {
			a, err := xudt.DecodeAmount(c.Data)
			if err != nil {
				t.Fatalf("input %s: %v", c.OutPoint, err)
			}
			tokenIn = append(tokenIn, a)
		}
	}
	var tokenOut []xudt.Amount
	for i, o := range res.Tx.Outputs {
		if o.HasType() {
			tokenOut = append(tokenOut, decodeOutput(t, res, i))
		}
	}
	sumIn, err := xudt.Sum(tokenIn...)
	if err != nil {
		t.Fatalf("sum inputs: %v", err)
	}
	sumOut, err := xudt.Sum(tokenOut...)
	if err != nil {
		t.Fatalf("sum outputs: %v", err)
	}
	if sumIn.Cmp(sumOut) != 0 {
		t.Errorf("token conservation: in %s, out %s", sumIn, sumOut)
	}
}

func TestAssemble_TokenChange(t *testing.T) {
	sender, receiver := testLock(0x01), testLock(0x02)
	coll := &memCollector{cells: []types.Cell{
		tokenCell(1, sender, 500, 143),
		tokenCell(2, sender, 700, 143),
		capacityCell(3, sender, 1000),
	}}

	res, err := testAssembler(coll).Assemble(context.Background(), TransferRequest{
		Sender:    sender,
		Receivers: []Receiver{{To: "recv", Lock: receiver, Amount: xudt.NewAmount(1000)}},
	})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	transaction := res.Tx
	if len(transaction.Inputs) != 3 || len(transaction.Outputs) != 3 {
		t.Fatalf("inputs %d, outputs %d, want 3 and 3", len(transaction.Inputs), len(transaction.Outputs))
	}

	// Receiver output.
	recv := transaction.Outputs[0]
	if !recv.Lock.Equal(receiver) || !types.EqualOptional(recv.Type, &testToken) {
		t.Errorf("receiver output scripts = %v / %v", recv.Lock, recv.Type)
	}
	if recv.Capacity != ckb(143) {
		t.Errorf("receiver capacity = %d, want %d", recv.Capacity, ckb(143))
	}
	if got := decodeOutput(t, res, 0).String(); got != "1000" {
		t.Errorf("receiver amount = %s, want 1000", got)
	}
	if len(transaction.OutputsData[0]) != 16 {
		t.Errorf("receiver data length = %d, want 16", len(transaction.OutputsData[0]))
	}

	// Token change.
	change := transaction.Outputs[1]
	if !change.Lock.Equal(sender) || !types.EqualOptional(change.Type, &testToken) {
		t.Errorf("token change scripts = %v / %v", change.Lock, change.Type)
	}
	if change.Capacity != ckb(143) {
		t.Errorf("token change capacity = %d, want %d", change.Capacity, ckb(143))
	}
	if got := decodeOutput(t, res, 1).String(); got != "200" {
		t.Errorf("token change amount = %s, want 200", got)
	}
	if res.TokenChange.String() != "200" {
		t.Errorf("TokenChange = %s, want 200", res.TokenChange)
	}

	// Capacity change carries the fee.
	last := transaction.Outputs[2]
	if !last.Lock.Equal(sender) || last.Type != nil {
		t.Errorf("capacity change scripts = %v / %v", last.Lock, last.Type)
	}
	if len(transaction.OutputsData[2]) != 0 {
		t.Errorf("capacity change data = %x, want empty", transaction.OutputsData[2])
	}
	if last.Capacity != ckb(1000)-res.Fee {
		t.Errorf("capacity change = %d, want %d", last.Capacity, ckb(1000)-res.Fee)
	}
	if res.CapacityChange != last.Capacity {
		t.Errorf("CapacityChange = %d, want %d", res.CapacityChange, last.Capacity)
	}

	checkConservation(t, res)
}

func TestAssemble_TwoReceivers(t *testing.T) {
	sender := testLock(0x01)
	r1, r2 := testLock(0x02), testLock(0x03)
	amount1, err := xudt.ParseUnits("1000", 8)
	if err != nil {
		t.Fatal(err)
	}
	amount2, err := xudt.ParseUnits("2000", 8)
	if err != nil {
		t.Fatal(err)
	}

	coll := &memCollector{cells: []types.Cell{
		tokenCell(1, sender, 3000_0000_0000, 143),
		capacityCell(2, sender, 2000),
	}}
	res, err := testAssembler(coll).Assemble(context.Background(), TransferRequest{
		Sender: sender,
		Receivers: []Receiver{
			{To: "a", Lock: r1, Amount: amount1},
			{To: "b", Lock: r2, Amount: amount2},
		},
	})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	transaction := res.Tx
	// Two receivers and one capacity change.
	if len(transaction.Outputs) != 3 {
		t.Fatalf("outputs = %d, want 3", len(transaction.Outputs))
	}
	if !transaction.Outputs[0].Lock.Equal(r1) || !transaction.Outputs[1].Lock.Equal(r2) {
		t.Error("receiver outputs out of order")
	}
	if got := decodeOutput(t, res, 0).String(); got != "100000000000" {
		t.Errorf("receiver 0 amount = %s", got)
	}
	if got := decodeOutput(t, res, 1).String(); got != "200000000000" {
		t.Errorf("receiver 1 amount = %s", got)
	}
	if transaction.Outputs[2].Type != nil {
		t.Error("last output should be the capacity change")
	}
	if !res.TokenChange.IsZero() {
		t.Errorf("TokenChange = %s, want 0", res.TokenChange)
	}
	checkConservation(t, res)
}

func TestAssemble_Shape(t *testing.T) {
	sender := testLock(0x01)
	coll := &memCollector{cells: []types.Cell{
		tokenCell(1, sender, 100, 143),
		capacityCell(2, sender, 300),
	}}
	res, err := testAssembler(coll).Assemble(context.Background(), TransferRequest{
		Sender:    sender,
		Receivers: []Receiver{{Lock: testLock(0x02), Amount: xudt.NewAmount(40)}},
	})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	transaction := res.Tx
	if len(transaction.CellDeps) != 2 {
		t.Fatalf("cell deps = %d, want 2", len(transaction.CellDeps))
	}
	if transaction.CellDeps[0].DepType != tx.DepTypeDepGroup || transaction.CellDeps[1].DepType != tx.DepTypeCode {
		t.Errorf("dep types = %v, %v", transaction.CellDeps[0].DepType, transaction.CellDeps[1].DepType)
	}

	// Token inputs come first, then capacity inputs.
	if transaction.Inputs[0].PreviousOutput != coll.cells[0].OutPoint ||
		transaction.Inputs[1].PreviousOutput != coll.cells[1].OutPoint {
		t.Error("inputs out of order")
	}

	if len(transaction.Witnesses) != len(transaction.Inputs) {
		t.Fatalf("witnesses = %d, want %d", len(transaction.Witnesses), len(transaction.Inputs))
	}
	if string(transaction.Witnesses[0]) != string(tx.WitnessArgs{}.Bytes()) {
		t.Errorf("witness 0 = %x, want empty WitnessArgs", transaction.Witnesses[0])
	}
	for i, w := range transaction.Witnesses[1:] {
		if len(w) != 0 {
			t.Errorf("witness %d = %x, want empty", i+1, w)
		}
	}
	if len(transaction.Outputs) != len(transaction.OutputsData) {
		t.Error("outputs and outputs_data not aligned")
	}
	if err := transaction.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestAssemble_FeeMatchesEstimate(t *testing.T) {
	sender := testLock(0x01)
	coll := &memCollector{cells: []types.Cell{
		tokenCell(1, sender, 100, 143),
		capacityCell(2, sender, 300),
	}}
	res, err := testAssembler(coll).Assemble(context.Background(), TransferRequest{
		Sender:    sender,
		Receivers: []Receiver{{Lock: testLock(0x02), Amount: xudt.NewAmount(40)}},
	})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	// Deducting the fee does not change the size, so re-estimating on the
	// final transaction yields the same fee.
	if want := tx.RequiredFee(res.Tx, DefaultFeeRate, tx.DefaultSignatureWitnessSize); res.Fee != want {
		t.Errorf("fee = %d, want %d", res.Fee, want)
	}
	if res.Fee == 0 || res.Fee > DefaultMaxFee {
		t.Errorf("fee = %d, want in (0, %d]", res.Fee, DefaultMaxFee)
	}
	if res.CapacityChange < DefaultMinChange {
		t.Errorf("change = %d, below %d", res.CapacityChange, DefaultMinChange)
	}
}

func TestAssemble_SkipsCapacityPass(t *testing.T) {
	sender := testLock(0x01)
	coll := &memCollector{cells: []types.Cell{
		tokenCell(1, sender, 100, 10000),
		capacityCell(2, sender, 300),
	}}
	res, err := testAssembler(coll).Assemble(context.Background(), TransferRequest{
		Sender:    sender,
		Receivers: []Receiver{{Lock: testLock(0x02), Amount: xudt.NewAmount(40)}},
	})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	if len(res.Tx.Inputs) != 1 {
		t.Errorf("inputs = %d, want 1", len(res.Tx.Inputs))
	}
	if coll.plainHits != 0 {
		t.Errorf("capacity cells queried %d times, want 0", coll.plainHits)
	}
	if want := ckb(10000) - ckb(143)*2 - res.Fee; res.CapacityChange != want {
		t.Errorf("change = %d, want %d", res.CapacityChange, want)
	}
	checkConservation(t, res)
}

func TestAssemble_Errors(t *testing.T) {
	sender := testLock(0x01)
	one := []Receiver{{Lock: testLock(0x02), Amount: xudt.NewAmount(1000)}}

	tests := []struct {
		name      string
		cells     []types.Cell
		receivers []Receiver
		want      error
	}{
		{
			name:  "no receivers",
			cells: []types.Cell{tokenCell(1, sender, 1000, 143)},
			want:  ErrNoReceivers,
		},
		{
			name:      "zero receiver",
			cells:     []types.Cell{tokenCell(1, sender, 1000, 143)},
			receivers: []Receiver{{Lock: testLock(0x02)}},
			want:      ErrZeroAmountReceiver,
		},
		{
			name:      "no token cells",
			cells:     []types.Cell{capacityCell(1, sender, 1000)},
			receivers: one,
			want:      ErrNoTokenCells,
		},
		{
			name:      "insufficient token",
			cells:     []types.Cell{tokenCell(1, sender, 999, 143), capacityCell(2, sender, 1000)},
			receivers: one,
			want:      ErrInsufficientTokenBalance,
		},
		{
			name:      "no capacity cells",
			cells:     []types.Cell{tokenCell(1, sender, 1000, 143)},
			receivers: one,
			want:      ErrNoCapacityCells,
		},
		{
			name:      "insufficient capacity",
			cells:     []types.Cell{tokenCell(1, sender, 1000, 143), capacityCell(2, sender, 30)},
			receivers: one,
			want:      ErrInsufficientCapacity,
		},
		{
			name:      "other sender's cells are invisible",
			cells:     []types.Cell{tokenCell(1, testLock(0x09), 1000, 143)},
			receivers: one,
			want:      ErrNoTokenCells,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coll := &memCollector{cells: tt.cells}
			res, err := testAssembler(coll).Assemble(context.Background(), TransferRequest{
				Sender:    sender,
				Receivers: tt.receivers,
			})
			if res != nil {
				t.Error("expected no result")
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAssemble_ReceiverCapacityOverflow(t *testing.T) {
	sender := testLock(0x01)
	coll := &memCollector{cells: []types.Cell{
		tokenCell(1, sender, 1000, 143),
		capacityCell(2, sender, 1000),
	}}
	a := testAssembler(coll)
	// Each receiver cell is just over half of the capacity range.
	a.cfg.UDTCellBufferCKB = (math.MaxUint64 / 2) / tx.ShannonsPerCKB

	res, err := a.Assemble(context.Background(), TransferRequest{
		Sender: sender,
		Receivers: []Receiver{
			{Lock: testLock(0x02), Amount: xudt.NewAmount(1)},
			{Lock: testLock(0x03), Amount: xudt.NewAmount(1)},
		},
	})
	if res != nil {
		t.Error("expected no result")
	}
	if !errors.Is(err, ErrCapacityOverflow) {
		t.Errorf("err = %v, want ErrCapacityOverflow", err)
	}
	if coll.typedHits != 0 {
		t.Errorf("token cells queried %d times, want 0", coll.typedHits)
	}
}

func TestAssemble_ChangeBelowMinimum(t *testing.T) {
	sender := testLock(0x01)
	coll := &memCollector{cells: []types.Cell{
		tokenCell(1, sender, 1000, 143),
		capacityCell(2, sender, 61),
	}}
	a := testAssembler(coll)
	// Without a fee reservation the change lands exactly on the floor, and
	// any fee pushes it below.
	a.cfg.Fee.MaxFee = 0

	_, err := a.Assemble(context.Background(), TransferRequest{
		Sender:    sender,
		Receivers: []Receiver{{Lock: testLock(0x02), Amount: xudt.NewAmount(1000)}},
	})
	if !errors.Is(err, ErrChangeBelowMinimum) {
		t.Errorf("err = %v, want ErrChangeBelowMinimum", err)
	}
}

func TestAssemble_FloorRaisedToOccupiedCapacity(t *testing.T) {
	sender := testLock(0x01)
	coll := &memCollector{cells: []types.Cell{
		tokenCell(1, sender, 1000, 143),
		capacityCell(2, sender, 1000),
	}}
	a := testAssembler(coll)
	a.cfg.Fee.MinChangeCapacity = 0

	if got := a.changeFloor(sender); got != ckb(61) {
		t.Errorf("changeFloor = %d, want %d", got, ckb(61))
	}
	res, err := a.Assemble(context.Background(), TransferRequest{
		Sender:    sender,
		Receivers: []Receiver{{Lock: testLock(0x02), Amount: xudt.NewAmount(1000)}},
	})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if err := res.Tx.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestAssemble_CollectorError(t *testing.T) {
	boom := errors.New("indexer down")
	coll := &memCollector{err: boom}
	_, err := testAssembler(coll).Assemble(context.Background(), TransferRequest{
		Sender:    testLock(0x01),
		Receivers: []Receiver{{Lock: testLock(0x02), Amount: xudt.NewAmount(1)}},
	})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}

func TestAssemble_Conservation(t *testing.T) {
	sender := testLock(0x01)
	tests := []struct {
		name      string
		cells     []types.Cell
		receivers []uint64
	}{
		{"exact", []types.Cell{tokenCell(1, sender, 300, 143), capacityCell(2, sender, 500)}, []uint64{100, 200}},
		{"change", []types.Cell{tokenCell(1, sender, 50, 143), tokenCell(2, sender, 900, 143), capacityCell(3, sender, 100), capacityCell(4, sender, 900)}, []uint64{1, 2, 3, 4}},
		{"rich token cells", []types.Cell{tokenCell(1, sender, 10, 5000), tokenCell(2, sender, 10, 5000)}, []uint64{15}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var receivers []Receiver
			for i, amt := range tt.receivers {
				receivers = append(receivers, Receiver{Lock: testLock(byte(0x10 + i)), Amount: xudt.NewAmount(amt)})
			}
			res, err := testAssembler(&memCollector{cells: tt.cells}).Assemble(context.Background(), TransferRequest{
				Sender:    sender,
				Receivers: receivers,
			})
			if err != nil {
				t.Fatalf("Assemble: %v", err)
			}
			checkConservation(t, res)
			if err := res.Tx.Validate(); err != nil {
				t.Errorf("Validate: %v", err)
			}
		})
	}
}

func TestNegativeChangeIsInsufficientCapacity(t *testing.T) {
	if !errors.Is(ErrNegativeChange, ErrInsufficientCapacity) {
		t.Error("ErrNegativeChange should wrap ErrInsufficientCapacity")
	}
}
