package wallet

import (
	"context"
	"fmt"

	"github.com/Klingon-tech/xudt-tools/pkg/types"
	"github.com/Klingon-tech/xudt-tools/pkg/xudt"
	"golang.org/x/sync/errgroup"
)

// CellCollector returns the live cells matching a lock and optional type.
// The returned slice is a snapshot in index order and must not change for
// the duration of one assembly.
type CellCollector interface {
	GetLiveCells(ctx context.Context, lock types.Script, typ *types.Script) ([]types.Cell, error)
}

// AddressResolver decodes an address into its lock script.
type AddressResolver interface {
	ScriptFromAddress(addr string) (types.Script, error)
}

// DefaultBalanceConcurrency bounds the number of in-flight balance queries.
const DefaultBalanceConcurrency = 16

// TokenCells returns the cells whose type script is exactly token, in order.
func TokenCells(cells []types.Cell, token types.Script) []types.Cell {
	var out []types.Cell
	for _, c := range cells {
		if c.Output.Type != nil && c.Output.Type.Equal(token) {
			out = append(out, c)
		}
	}
	return out
}

// TokenBalance sums the token amounts held by the cells typed with token.
// Cells of any other type are ignored.
func TokenBalance(cells []types.Cell, token types.Script) (xudt.Amount, error) {
	var total xudt.Amount
	for _, c := range TokenCells(cells, token) {
		amount, err := xudt.DecodeAmount(c.Data)
		if err != nil {
			return xudt.Amount{}, fmt.Errorf("cell %s: %w", c.OutPoint, err)
		}
		if total, err = total.Add(amount); err != nil {
			return xudt.Amount{}, err
		}
	}
	return total, nil
}

// AddressBalance is the token balance held by one address.
type AddressBalance struct {
	Address string
	Lock    types.Script
	Amount  xudt.Amount
	Cells   int
}

// BalanceFetcher queries token balances through a cell collector.
type BalanceFetcher struct {
	collector   CellCollector
	resolver    AddressResolver
	token       types.Script
	concurrency int
}

// NewBalanceFetcher creates a fetcher for the given token type script.
func NewBalanceFetcher(collector CellCollector, resolver AddressResolver, token types.Script) *BalanceFetcher {
	return &BalanceFetcher{
		collector:   collector,
		resolver:    resolver,
		token:       token,
		concurrency: DefaultBalanceConcurrency,
	}
}

// SetConcurrency changes the fan-out limit. n <= 0 removes the limit.
func (f *BalanceFetcher) SetConcurrency(n int) {
	f.concurrency = n
}

// Balance returns the token balance of one address.
func (f *BalanceFetcher) Balance(ctx context.Context, addr string) (AddressBalance, error) {
	lock, err := f.resolver.ScriptFromAddress(addr)
	if err != nil {
		return AddressBalance{}, err
	}
	token := f.token
	cells, err := f.collector.GetLiveCells(ctx, lock, &token)
	if err != nil {
		return AddressBalance{}, fmt.Errorf("get cells for %s: %w", addr, err)
	}
	cells = TokenCells(cells, f.token)
	amount, err := TokenBalance(cells, f.token)
	if err != nil {
		return AddressBalance{}, fmt.Errorf("balance of %s: %w", addr, err)
	}
	return AddressBalance{Address: addr, Lock: lock, Amount: amount, Cells: len(cells)}, nil
}

// Balances queries every address concurrently and waits for all of them.
// Results are in the order of addresses. The first failure cancels the
// remaining queries and is returned; no partial result is produced.
func (f *BalanceFetcher) Balances(ctx context.Context, addresses []string) ([]AddressBalance, error) {
	results := make([]AddressBalance, len(addresses))

	g, gCtx := errgroup.WithContext(ctx)
	if f.concurrency > 0 {
		g.SetLimit(f.concurrency)
	}
	for i, addr := range addresses {
		i, addr := i, addr
		g.Go(func() error {
			b, err := f.Balance(gCtx, addr)
			if err != nil {
				return err
			}
			results[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
