package mneesdk

import (
	"sort"

	"github.com/mnee-xyz/mnee-cli/pkg/errors"
	"github.com/mnee-xyz/mnee-cli/pkg/mnee/types"
)

// selection is the funding plan of one settlement attempt.
type selection struct {
	sources []types.FundingSource
	fee     uint64
	change  uint64
	// changeAddress is the owner address of the first consumed funding
	// source. Deliberate and not configurable, also when it differs from
	// the first recipient.
	changeAddress string
}

// orderFundingSources sorts sources into the stable order selection consumes
// them in: indexer ranking score descending, outpoint as tie-break.
func orderFundingSources(sources []types.FundingSource) []types.FundingSource {
	ordered := make([]types.FundingSource, len(sources))
	copy(ordered, sources)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Score != ordered[j].Score {
			return ordered[i].Score > ordered[j].Score
		}
		return ordered[i].Outpoint() < ordered[j].Outpoint()
	})
	return ordered
}

// selectFundingSources greedily accumulates sources, in the order provided,
// until they cover target plus fee. No output-count or privacy optimization.
func selectFundingSources(
	sources []types.FundingSource, target uint64, cfg *types.TokenConfig, burnDestination bool,
) (*selection, error) {
	fee := uint64(0)
	if !burnDestination {
		tierFee, ok := cfg.FeeForAmount(target)
		if !ok {
			return nil, errors.FEE_SCHEDULE_GAP.New(
				"no fee tier covers atomic amount %d", target,
			).WithMetadata(errors.FeeTierMetadata{Amount: target, Tiers: len(cfg.FeeTiers)})
		}
		fee = tierFee
	}

	required := target + fee
	selected := make([]types.FundingSource, 0, len(sources))
	total := uint64(0)
	for _, source := range sources {
		selected = append(selected, source)
		total += source.AtomicAmount
		if total >= required {
			break
		}
	}

	if total < required {
		return nil, errors.INSUFFICIENT_FUNDS.New(
			"need %d atomic units (incl. fee %d), have %d", required, fee, total,
		).WithMetadata(errors.FundsMetadata{Target: target, Fee: fee, Available: total})
	}

	return &selection{
		sources:       selected,
		fee:           fee,
		change:        total - required,
		changeAddress: selected[0].OwnerAddress,
	}, nil
}
