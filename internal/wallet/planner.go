package wallet

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/xudt-tools/pkg/xudt"
)

// PlanEntry reports one address considered by the planner.
type PlanEntry struct {
	Address string
	Balance xudt.Amount
	TopUp   xudt.Amount // Zero when the balance already meets the target.
}

// Plan is the outcome of a top-up computation.
type Plan struct {
	Target    xudt.Amount
	Entries   []PlanEntry // One per address, in input order.
	Receivers []Receiver  // Addresses below target, in input order.
}

// Empty reports whether no address needs a top-up.
func (p *Plan) Empty() bool {
	return len(p.Receivers) == 0
}

// Total returns the sum of all top-ups.
func (p *Plan) Total() (xudt.Amount, error) {
	amounts := make([]xudt.Amount, len(p.Receivers))
	for i, r := range p.Receivers {
		amounts[i] = r.Amount
	}
	return xudt.Sum(amounts...)
}

// Planner computes the receivers needed to bring a set of addresses up to a
// target token balance.
type Planner struct {
	balances *BalanceFetcher
	decimals uint8
	logger   zerolog.Logger
}

// NewPlanner creates a planner. decimals is only used to format log lines.
func NewPlanner(balances *BalanceFetcher, decimals uint8, logger zerolog.Logger) *Planner {
	return &Planner{balances: balances, decimals: decimals, logger: logger}
}

// Plan fetches every balance concurrently, waits for all of them, and emits a
// receiver for each address strictly below target with amount
// target - balance. target is in minimal units.
func (p *Planner) Plan(ctx context.Context, addresses []string, target xudt.Amount) (*Plan, error) {
	balances, err := p.balances.Balances(ctx, addresses)
	if err != nil {
		return nil, err
	}

	plan := &Plan{Target: target, Entries: make([]PlanEntry, len(balances))}
	for i, b := range balances {
		entry := PlanEntry{Address: b.Address, Balance: b.Amount}
		if b.Amount.Lt(target) {
			topUp, err := target.Sub(b.Amount)
			if err != nil {
				return nil, err
			}
			entry.TopUp = topUp
			plan.Receivers = append(plan.Receivers, Receiver{To: b.Address, Lock: b.Lock, Amount: topUp})
		}
		plan.Entries[i] = entry

		p.logger.Info().
			Int("index", i).
			Str("address", b.Address).
			Str("balance", xudt.FormatUnits(b.Amount, p.decimals)).
			Str("top_up", xudt.FormatUnits(entry.TopUp, p.decimals)).
			Msg("Planned top-up")
	}
	return plan, nil
}

// PlanUnits is Plan with the target given in token units, e.g. "100" or
// "0.5", scaled by 10^decimals.
func (p *Planner) PlanUnits(ctx context.Context, addresses []string, target string) (*Plan, error) {
	minimal, err := xudt.ParseUnits(target, p.decimals)
	if err != nil {
		return nil, err
	}
	return p.Plan(ctx, addresses, minimal)
}
