package types

import (
	"fmt"
	"math"
	"time"
)

// OperationKind is the token operation recorded in a funding source's
// inscription.
type OperationKind string

const (
	OperationTransfer   OperationKind = "transfer"
	OperationBurn       OperationKind = "burn"
	OperationDeployMint OperationKind = "deploy+mint"
)

// FeeTier maps an inclusive atomic-amount range to a flat atomic fee.
type FeeTier struct {
	Min uint64 `json:"min"`
	Max uint64 `json:"max"`
	Fee uint64 `json:"fee"`
}

// TokenConfig holds the token's network-wide parameters. It is immutable per
// fetch and re-fetched for every operation.
type TokenConfig struct {
	ApproverPublicKey string    `json:"approver"`
	FeeAddress        string    `json:"feeAddress"`
	BurnAddress       string    `json:"burnAddress"`
	MintAddress       string    `json:"mintAddress"`
	FeeTiers          []FeeTier `json:"fees"`
	Decimals          int       `json:"decimals"`
	TokenID           string    `json:"tokenId"`
}

// FeeForAmount returns the flat fee of the tier whose range contains amount.
// The second return is false when no tier matches, which is a schedule
// configuration gap, not a funds problem.
func (c *TokenConfig) FeeForAmount(amount uint64) (uint64, bool) {
	for _, tier := range c.FeeTiers {
		if amount >= tier.Min && amount <= tier.Max {
			return tier.Fee, true
		}
	}
	return 0, false
}

// ToAtomic converts a decimal token amount to its atomic representation.
// Rounding is applied exactly once.
func ToAtomic(decimalAmount float64, decimals int) uint64 {
	return uint64(math.Round(decimalAmount * math.Pow10(decimals)))
}

// FromAtomic converts an atomic amount back to its decimal representation.
func FromAtomic(atomicAmount uint64, decimals int) float64 {
	return float64(atomicAmount) / math.Pow10(decimals)
}

// FundingSource is a spendable token-bearing output. Identity is
// (SourceTxID, OutputIndex); it is consumed exactly once and never mutated.
type FundingSource struct {
	SourceTxID   string        `json:"txid"`
	OutputIndex  uint32        `json:"vout"`
	OwnerAddress string        `json:"owner"`
	AtomicAmount uint64        `json:"amt"`
	Operation    OperationKind `json:"op"`
	Score        float64       `json:"score"`
	Satoshis     uint64        `json:"satoshis"`
}

func (f FundingSource) Outpoint() string {
	return fmt.Sprintf("%s:%d", f.SourceTxID, f.OutputIndex)
}

// Receiver is one entry of a transfer request. Address syntax and amount
// positivity are validated by the caller-facing layer; the engine re-checks
// only what it depends on.
type Receiver struct {
	Address       string  `json:"address"`
	DecimalAmount float64 `json:"amount"`
}

func (r Receiver) AtomicAmount(decimals int) uint64 {
	return ToAtomic(r.DecimalAmount, decimals)
}

// TransferOutcome is the terminal result of a settlement attempt. Exactly
// one of the three variants is populated: (TxID, RawTxHex) for synchronous
// settlement, TicketID for asynchronous settlement, ErrorMessage otherwise.
type TransferOutcome struct {
	TxID         string `json:"txid,omitempty"`
	RawTxHex     string `json:"rawtx,omitempty"`
	TicketID     string `json:"ticketId,omitempty"`
	ErrorMessage string `json:"error,omitempty"`
}

// Status is the settlement state of a ticket.
type Status string

const (
	StatusBroadcasting Status = "BROADCASTING"
	StatusSuccess      Status = "SUCCESS"
	StatusMined        Status = "MINED"
	StatusFailed       Status = "FAILED"
)

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSuccess, StatusMined, StatusFailed:
		return true
	}
	return false
}

// TransferStatus is a polled settlement record.
type TransferStatus struct {
	TicketID  string    `json:"id"`
	Status    Status    `json:"status"`
	TxID      string    `json:"txid,omitempty"`
	Errors    []string  `json:"errors,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
