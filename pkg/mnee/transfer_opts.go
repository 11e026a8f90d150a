package mneesdk

import (
	"fmt"

	"github.com/mnee-xyz/mnee-cli/pkg/mnee/types"
)

type TransferOption func(options *transferOptions) error

// WithSourceFilter overrides the operation kinds whose funding sources the
// transfer may spend.
func WithSourceFilter(kinds ...types.OperationKind) TransferOption {
	return func(o *transferOptions) error {
		if len(kinds) == 0 {
			return fmt.Errorf("missing operation kinds")
		}
		o.sourceFilter = kinds
		return nil
	}
}

// WithFundingSources bypasses the indexer fetch and spends the given
// sources. The caller is responsible for their stable ordering inputs.
func WithFundingSources(sources []types.FundingSource) TransferOption {
	return func(o *transferOptions) error {
		if len(o.sources) > 0 {
			return fmt.Errorf("funding sources already set")
		}
		if len(sources) == 0 {
			return fmt.Errorf("missing funding sources")
		}
		o.sources = make([]types.FundingSource, len(sources))
		copy(o.sources, sources)
		return nil
	}
}

type transferOptions struct {
	sourceFilter []types.OperationKind
	sources      []types.FundingSource
}

func newDefaultTransferOptions() *transferOptions {
	return &transferOptions{sourceFilter: defaultSourceFilter}
}
