package rpcclient

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/xudt-tools/pkg/types"
)

// DefaultPageSize is the number of cells requested per get_cells call.
const DefaultPageSize = 100

// maxPages stops a runaway pagination loop against a misbehaving indexer.
const maxPages = 10_000

// searchKey is the indexer's cell query. The search script is matched
// exactly; the filter script always matches by prefix.
type searchKey struct {
	Script           types.Script  `json:"script"`
	ScriptType       string        `json:"script_type"`
	ScriptSearchMode string        `json:"script_search_mode"`
	Filter           *searchFilter `json:"filter,omitempty"`
	WithData         bool          `json:"with_data"`
}

type searchFilter struct {
	Script *types.Script `json:"script,omitempty"`
}

type indexerCell struct {
	Output      cellOutputJSON `json:"output"`
	OutputData  Bytes          `json:"output_data"`
	OutPoint    outPointJSON   `json:"out_point"`
	BlockNumber Uint64         `json:"block_number"`
	TxIndex     Uint32         `json:"tx_index"`
}

type cellsPage struct {
	Objects    []indexerCell `json:"objects"`
	LastCursor string        `json:"last_cursor"`
}

// Indexer queries live cells through the indexer RPC.
type Indexer struct {
	client   *Client
	pageSize int
	logger   zerolog.Logger
}

// NewIndexer creates an indexer client. pageSize <= 0 selects DefaultPageSize.
func NewIndexer(client *Client, pageSize int, logger zerolog.Logger) *Indexer {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Indexer{client: client, pageSize: pageSize, logger: logger}
}

// GetLiveCells returns every live cell under lock, in ascending index order.
// A non-nil typ restricts the result to cells with exactly that type script;
// a nil typ returns all cells under the lock, typed or not.
func (ix *Indexer) GetLiveCells(ctx context.Context, lock types.Script, typ *types.Script) ([]types.Cell, error) {
	key := searchKey{Script: lock, ScriptType: "lock", ScriptSearchMode: "exact", WithData: true}
	if typ != nil {
		key.Filter = &searchFilter{Script: typ}
	}

	var (
		cells  []types.Cell
		cursor any // nil on the first page
	)
	for page := 0; page < maxPages; page++ {
		var res cellsPage
		params := []any{key, "asc", Uint64(ix.pageSize), cursor}
		if err := ix.client.Call(ctx, "get_cells", params, &res); err != nil {
			return nil, fmt.Errorf("get_cells: %w", err)
		}
		for _, obj := range res.Objects {
			out := obj.Output.cellOutput()
			if typ != nil && !types.EqualOptional(out.Type, typ) {
				continue
			}
			cells = append(cells, types.Cell{
				OutPoint: obj.OutPoint.outPoint(),
				Output:   out,
				Data:     []byte(obj.OutputData),
			})
		}
		ix.logger.Debug().
			Int("page", page).
			Int("objects", len(res.Objects)).
			Str("lock", lock.String()).
			Msg("Fetched cells page")

		if len(res.Objects) < ix.pageSize || res.LastCursor == "" {
			return cells, nil
		}
		cursor = res.LastCursor
	}
	return nil, fmt.Errorf("get_cells: more than %d pages", maxPages)
}
