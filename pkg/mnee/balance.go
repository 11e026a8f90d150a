package mneesdk

import (
	"context"

	"github.com/mnee-xyz/mnee-cli/pkg/mnee/types"
)

// Balance sums the atomic amounts of the address' spendable funding sources
// and converts once to the decimal view.
func (s *service) Balance(ctx context.Context, address string) (*Balance, error) {
	cfg, err := s.indexer.Config(ctx)
	if err != nil {
		return nil, err
	}

	sources, err := s.indexer.FundingSources(ctx, address, defaultSourceFilter)
	if err != nil {
		return nil, err
	}

	total := uint64(0)
	for _, source := range sources {
		total += source.AtomicAmount
	}

	return &Balance{
		Address:  address,
		Atomic:   total,
		Decimal:  types.FromAtomic(total, cfg.Decimals),
		Decimals: cfg.Decimals,
	}, nil
}
