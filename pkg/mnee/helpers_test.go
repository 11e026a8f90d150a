package mneesdk

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/wire"

	"github.com/mnee-xyz/mnee-cli/pkg/errors"
	"github.com/mnee-xyz/mnee-cli/pkg/mnee/cosigner"
	"github.com/mnee-xyz/mnee-cli/pkg/mnee/types"
)

type fakeIndexer struct {
	config    *types.TokenConfig
	sources   []types.FundingSource
	ancestors map[string]*wire.MsgTx

	configCalls   int
	sourceCalls   int
	ancestorCalls int
}

func (f *fakeIndexer) Config(_ context.Context) (*types.TokenConfig, error) {
	f.configCalls++
	return f.config, nil
}

func (f *fakeIndexer) FundingSources(
	_ context.Context, _ string, filter []types.OperationKind,
) ([]types.FundingSource, error) {
	f.sourceCalls++
	wanted := make(map[types.OperationKind]struct{}, len(filter))
	for _, op := range filter {
		wanted[op] = struct{}{}
	}
	out := make([]types.FundingSource, 0, len(f.sources))
	for _, source := range f.sources {
		if _, ok := wanted[source.Operation]; ok || len(wanted) == 0 {
			out = append(out, source)
		}
	}
	return out, nil
}

func (f *fakeIndexer) SourceTransaction(_ context.Context, txid string) (*wire.MsgTx, error) {
	f.ancestorCalls++
	tx, ok := f.ancestors[txid]
	if !ok {
		return nil, errors.ANCESTOR_NOT_FOUND.New("unknown tx %s", txid)
	}
	return tx, nil
}

type fakeCosigner struct {
	// statuses is consumed one element per TransferStatus read; the last
	// element repeats once exhausted.
	statuses  []types.Status
	ticketID  string
	errors    []string
	cosignErr error
	async     bool

	statusReads    int
	broadcastCalls int

	submittedRawTxHex string
	submittedRequests []cosigner.SignatureRequest
}

func (f *fakeCosigner) Cosign(
	_ context.Context, rawTxHex string, requests []cosigner.SignatureRequest,
) (*cosigner.CosignResult, error) {
	f.submittedRawTxHex = rawTxHex
	f.submittedRequests = requests
	if f.cosignErr != nil {
		return nil, f.cosignErr
	}
	if f.async {
		return &cosigner.CosignResult{TicketID: f.ticketID}, nil
	}
	// act as the authority finalizing the submitted transaction as-is
	raw, err := hex.DecodeString(rawTxHex)
	if err != nil {
		return nil, err
	}
	return &cosigner.CosignResult{FinalTx: raw}, nil
}

func (f *fakeCosigner) Broadcast(_ context.Context, rawTx []byte) (string, error) {
	f.broadcastCalls++
	return fmt.Sprintf("%064x", 0xbb), nil
}

func (f *fakeCosigner) TransferStatus(
	_ context.Context, ticketID string,
) (*types.TransferStatus, error) {
	idx := f.statusReads
	if idx >= len(f.statuses) {
		idx = len(f.statuses) - 1
	}
	f.statusReads++
	status := &types.TransferStatus{
		TicketID: ticketID,
		Status:   f.statuses[idx],
	}
	if status.Status == types.StatusFailed {
		status.Errors = f.errors
	}
	return status, nil
}

func newTestService(idx *fakeIndexer, cs *fakeCosigner) *service {
	svc, err := New(
		Config{},
		WithIndexer(idx),
		WithCosigner(cs),
		WithPollInterval(time.Millisecond),
		WithSleep(func(ctx context.Context, _ time.Duration) error {
			return ctx.Err()
		}),
	)
	if err != nil {
		panic(err)
	}
	return svc.(*service)
}
