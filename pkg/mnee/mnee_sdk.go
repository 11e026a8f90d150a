package mneesdk

import (
	"context"

	"github.com/mnee-xyz/mnee-cli/pkg/mnee/types"
	"github.com/mnee-xyz/mnee-cli/pkg/mnee/wallet"
)

var Version string

// MneeClient is the token transfer settlement engine. It turns transfer
// requests into fee-correct, dual-authorized transactions and tracks their
// settlement to a terminal state. It performs no terminal I/O and keeps no
// state between operations.
type MneeClient interface {
	// GetConfig fetches the token's network-wide parameters.
	GetConfig(ctx context.Context) (*types.TokenConfig, error)
	// Balance sums the atomic amounts of the address' funding sources.
	Balance(ctx context.Context, address string) (*Balance, error)
	// Transfer runs the full settlement flow: funding-source selection,
	// assembly, signing, cosign exchange and broadcast. The returned outcome
	// carries either a txid (synchronous settlement) or a ticket id
	// (asynchronous settlement, to be polled).
	Transfer(
		ctx context.Context, signer wallet.Signer, receivers []types.Receiver,
		opts ...TransferOption,
	) (*types.TransferOutcome, error)
	// TransferStatus reads the settlement record of a ticket once.
	TransferStatus(ctx context.Context, ticketID string) (*types.TransferStatus, error)
	// WaitForSettlement polls a ticket until it leaves BROADCASTING or the
	// attempt cap is reached. Cancelling ctx aborts the poll only; the
	// submitted transaction is not reversed and the ticket stays valid.
	WaitForSettlement(
		ctx context.Context, ticketID string, opts ...PollOption,
	) (*types.TransferStatus, error)
}

// Balance is the aggregate of an address' funding sources.
type Balance struct {
	Address  string  `json:"address"`
	Atomic   uint64  `json:"atomic"`
	Decimal  float64 `json:"decimal"`
	Decimals int     `json:"decimals"`
}
