package wallet

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/xudt-tools/pkg/tx"
	"github.com/Klingon-tech/xudt-tools/pkg/types"
	"github.com/Klingon-tech/xudt-tools/pkg/xudt"
)

// Default fee settings.
const (
	DefaultFeeRate          uint64 = 1100                   // shannons per 1000 bytes
	DefaultMaxFee           uint64 = 20_000_000             // 0.2 CKB
	DefaultMinChange        uint64 = 61 * tx.ShannonsPerCKB // pure secp256k1 change cell
	DefaultUDTCellBufferCKB uint64 = 1
)

// FeeConfig holds the fee and change parameters of an assembly.
type FeeConfig struct {
	FeeRate              uint64 // Shannons per 1000 bytes.
	MaxFee               uint64 // Fee ceiling reserved when sizing the capacity pass.
	MinChangeCapacity    uint64 // Floor for the trailing change; raised to the change cell's occupied capacity.
	SignatureWitnessSize uint64 // Bytes the signature will add to witness 0.
}

// DefaultFeeConfig returns the fee settings used by the CLI when nothing is
// configured.
func DefaultFeeConfig() FeeConfig {
	return FeeConfig{
		FeeRate:              DefaultFeeRate,
		MaxFee:               DefaultMaxFee,
		MinChangeCapacity:    DefaultMinChange,
		SignatureWitnessSize: tx.DefaultSignatureWitnessSize,
	}
}

// AssemblerConfig parameterizes an Assembler for one token.
type AssemblerConfig struct {
	Token            types.Script // xUDT type script.
	CellDeps         []tx.CellDep // Lock dep then token dep.
	UDTCellBufferCKB uint64       // Spare CKB given to every token cell.
	Fee              FeeConfig
}

// Receiver is one transfer destination.
type Receiver struct {
	To     string // Address, kept for reporting.
	Lock   types.Script
	Amount xudt.Amount
}

// TransferRequest describes one batch transfer from a single sender.
type TransferRequest struct {
	Sender    types.Script
	Receivers []Receiver
}

// Result is an assembled, fee-adjusted, unsigned transaction.
type Result struct {
	Tx             *tx.Transaction
	Inputs         []types.Cell // Consumed cells, in input order.
	InputCapacity  uint64
	OutputCapacity uint64 // After the fee was deducted.
	Fee            uint64
	Transfer       xudt.Amount // Sum of receiver amounts.
	TokenChange    xudt.Amount // Zero when no token change output was created.
	CapacityChange uint64
}

// Assembler builds balanced xUDT transfer transactions.
type Assembler struct {
	cfg       AssemblerConfig
	collector CellCollector
	logger    zerolog.Logger
}

// NewAssembler creates an assembler for the configured token.
func NewAssembler(cfg AssemblerConfig, collector CellCollector, logger zerolog.Logger) *Assembler {
	return &Assembler{cfg: cfg, collector: collector, logger: logger}
}

// changeFloor returns the smallest capacity the trailing change may keep.
func (a *Assembler) changeFloor(sender types.Script) uint64 {
	floor := a.cfg.Fee.MinChangeCapacity
	if occupied := tx.MinCapacity(sender, nil, 0); floor < occupied {
		floor = occupied
	}
	return floor
}

// Assemble selects the sender's cells and builds a transaction paying every
// receiver. Outputs are, in order: one token cell per receiver, an optional
// token change cell, and a trailing capacity change cell from which the fee
// is taken. Any failure aborts the whole assembly.
func (a *Assembler) Assemble(ctx context.Context, req TransferRequest) (*Result, error) {
	if len(req.Receivers) == 0 {
		return nil, ErrNoReceivers
	}

	transfer := xudt.Amount{}
	var outputsCapacity uint64
	for i, r := range req.Receivers {
		if r.Amount.IsZero() {
			return nil, fmt.Errorf("receiver %d (%s): %w", i, r.To, ErrZeroAmountReceiver)
		}
		var err error
		if transfer, err = transfer.Add(r.Amount); err != nil {
			return nil, fmt.Errorf("sum receivers: %w", err)
		}
		cellCap := tx.UDTCellCapacity(r.Lock, a.cfg.Token, a.cfg.UDTCellBufferCKB)
		if outputsCapacity > math.MaxUint64-cellCap {
			return nil, ErrCapacityOverflow
		}
		outputsCapacity += cellCap
	}

	token := a.cfg.Token
	tokenCells, err := a.collector.GetLiveCells(ctx, req.Sender, &token)
	if err != nil {
		return nil, fmt.Errorf("collect token cells: %w", err)
	}
	tokenSel, err := SelectTokenCells(tokenCells, a.cfg.Token, transfer)
	if err != nil {
		return nil, err
	}
	a.logger.Debug().
		Int("cells", len(tokenSel.Cells)).
		Str("amount", tokenSel.Amount.String()).
		Uint64("capacity", tokenSel.Capacity).
		Msg("Selected token cells")

	b := tx.NewBuilder()
	for _, dep := range a.cfg.CellDeps {
		b.AddCellDep(dep)
	}
	for _, c := range tokenSel.Cells {
		b.AddInput(c.OutPoint)
	}
	for _, r := range req.Receivers {
		b.AddTokenOutput(tx.UDTCellCapacity(r.Lock, a.cfg.Token, a.cfg.UDTCellBufferCKB),
			r.Lock, a.cfg.Token, xudt.Encode(r.Amount))
	}

	tokenChange, err := tokenSel.Amount.Sub(transfer)
	if err != nil {
		return nil, fmt.Errorf("token change: %w", err)
	}
	if !tokenChange.IsZero() {
		changeCap := tx.UDTCellCapacity(req.Sender, a.cfg.Token, a.cfg.UDTCellBufferCKB)
		if outputsCapacity > math.MaxUint64-changeCap {
			return nil, ErrCapacityOverflow
		}
		b.AddTokenOutput(changeCap, req.Sender, a.cfg.Token, xudt.Encode(tokenChange))
		outputsCapacity += changeCap
	}

	inputs := append([]types.Cell(nil), tokenSel.Cells...)
	inputCapacity := tokenSel.Capacity

	floor := a.changeFloor(req.Sender)
	if floor > math.MaxUint64-a.cfg.Fee.MaxFee {
		return nil, ErrCapacityOverflow
	}
	reserve := floor + a.cfg.Fee.MaxFee
	if outputsCapacity > math.MaxUint64-reserve {
		return nil, ErrCapacityOverflow
	}
	if inputCapacity < outputsCapacity+reserve {
		var need uint64
		if outputsCapacity > inputCapacity {
			need = outputsCapacity - inputCapacity
		}
		capCells, err := a.collector.GetLiveCells(ctx, req.Sender, nil)
		if err != nil {
			return nil, fmt.Errorf("collect capacity cells: %w", err)
		}
		capSel, err := SelectCapacityCells(capCells, need, reserve)
		if err != nil {
			return nil, err
		}
		a.logger.Debug().
			Int("cells", len(capSel.Cells)).
			Uint64("capacity", capSel.Capacity).
			Uint64("need", need).
			Uint64("reserve", reserve).
			Msg("Selected capacity cells")

		for _, c := range capSel.Cells {
			b.AddInput(c.OutPoint)
		}
		if inputCapacity > math.MaxUint64-capSel.Capacity {
			return nil, ErrCapacityOverflow
		}
		inputCapacity += capSel.Capacity
		inputs = append(inputs, capSel.Cells...)
	}

	if inputCapacity < outputsCapacity {
		return nil, fmt.Errorf("%w: inputs %d, outputs %d", ErrNegativeChange, inputCapacity, outputsCapacity)
	}
	b.AddCapacityOutput(inputCapacity-outputsCapacity, req.Sender)
	b.SetPlaceholderWitnesses()
	transaction := b.Build()

	fee, err := a.applyFee(transaction, floor)
	if err != nil {
		return nil, err
	}
	if err := transaction.Validate(); err != nil {
		return nil, fmt.Errorf("assembled transaction invalid: %w", err)
	}

	change := transaction.Outputs[len(transaction.Outputs)-1].Capacity
	res := &Result{
		Tx:             transaction,
		Inputs:         inputs,
		InputCapacity:  inputCapacity,
		OutputCapacity: inputCapacity - fee,
		Fee:            fee,
		Transfer:       transfer,
		TokenChange:    tokenChange,
		CapacityChange: change,
	}
	a.logger.Info().
		Int("receivers", len(req.Receivers)).
		Int("inputs", len(inputs)).
		Str("transfer", transfer.String()).
		Str("token_change", tokenChange.String()).
		Uint64("fee", fee).
		Uint64("change", change).
		Msg("Assembled transfer")
	return res, nil
}

// applyFee estimates the fee of the fully shaped transaction and deducts it
// from the trailing change output. The capacity field has a fixed width, so
// deducting the fee does not change the size and one pass is enough.
func (a *Assembler) applyFee(transaction *tx.Transaction, floor uint64) (uint64, error) {
	fee := tx.RequiredFee(transaction, a.cfg.Fee.FeeRate, a.cfg.Fee.SignatureWitnessSize)
	last := &transaction.Outputs[len(transaction.Outputs)-1]
	if last.Capacity < fee || last.Capacity-fee < floor {
		return 0, fmt.Errorf("%w: change %d, fee %d, floor %d", ErrChangeBelowMinimum, last.Capacity, fee, floor)
	}
	last.Capacity -= fee
	return fee, nil
}
