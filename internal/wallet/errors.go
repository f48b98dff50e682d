package wallet

import (
	"errors"
	"fmt"
)

// Assembly errors. Every one of them aborts the whole assembly; callers
// distinguish them with errors.Is.
var (
	ErrNoReceivers              = errors.New("no receivers")
	ErrZeroAmountReceiver       = errors.New("receiver amount must be positive")
	ErrNoTokenCells             = errors.New("sender has no xudt cells")
	ErrNoCapacityCells          = errors.New("sender has no empty cells")
	ErrInsufficientTokenBalance = errors.New("insufficient xudt balance")
	ErrInsufficientCapacity     = errors.New("insufficient capacity")
	ErrChangeBelowMinimum       = errors.New("change capacity below minimum after fee")
	ErrCapacityOverflow         = errors.New("capacity overflow")

	// ErrNegativeChange matches ErrInsufficientCapacity as well.
	ErrNegativeChange = fmt.Errorf("%w: inputs below outputs", ErrInsufficientCapacity)
)
