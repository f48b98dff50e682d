package types

import (
	"encoding/json"
	"fmt"
)

// CellOutput is the on-chain part of a cell: capacity plus scripts.
type CellOutput struct {
	Capacity uint64  `json:"capacity"`
	Lock     Script  `json:"lock"`
	Type     *Script `json:"type"`
}

// HasType reports whether the output carries a type script.
func (o CellOutput) HasType() bool {
	return o.Type != nil
}

// Cell is a live cell: an output, the outpoint that created it, and its data.
// Cells handed out by a collector are treated as read-only snapshots.
type Cell struct {
	OutPoint OutPoint   `json:"out_point"`
	Output   CellOutput `json:"output"`
	Data     []byte     `json:"output_data"`
}

// cellJSON is the JSON representation of a Cell with hex-encoded data.
type cellJSON struct {
	OutPoint OutPoint   `json:"out_point"`
	Output   CellOutput `json:"output"`
	Data     string     `json:"output_data"`
}

// MarshalJSON encodes the cell with hex-encoded data.
func (c Cell) MarshalJSON() ([]byte, error) {
	return json.Marshal(cellJSON{
		OutPoint: c.OutPoint,
		Output:   c.Output,
		Data:     EncodeHex(c.Data),
	})
}

// UnmarshalJSON decodes a cell with hex-encoded data.
func (c *Cell) UnmarshalJSON(data []byte) error {
	var j cellJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	c.OutPoint = j.OutPoint
	c.Output = j.Output
	c.Data = nil
	if j.Data != "" && j.Data != "0x" {
		b, err := DecodeHex(j.Data)
		if err != nil {
			return fmt.Errorf("cell data: %w", err)
		}
		c.Data = b
	}
	return nil
}
