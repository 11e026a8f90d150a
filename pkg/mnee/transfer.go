package mneesdk

import (
	"context"
	"encoding/hex"

	log "github.com/sirupsen/logrus"

	"github.com/mnee-xyz/mnee-cli/pkg/bsv"
	"github.com/mnee-xyz/mnee-cli/pkg/errors"
	"github.com/mnee-xyz/mnee-cli/pkg/mnee/types"
	"github.com/mnee-xyz/mnee-cli/pkg/mnee/wallet"
)

func (s *service) Transfer(
	ctx context.Context, signer wallet.Signer, receivers []types.Receiver,
	opts ...TransferOption,
) (*types.TransferOutcome, error) {
	// Local validation happens before any network call.
	if len(receivers) == 0 {
		return nil, errors.INVALID_REQUEST.New("missing receivers")
	}
	for _, receiver := range receivers {
		if receiver.DecimalAmount <= 0 {
			return nil, errors.INVALID_REQUEST.New(
				"non-positive amount for %s", receiver.Address,
			).WithMetadata(errors.RequestMetadata{Recipients: len(receivers)})
		}
	}

	options := newDefaultTransferOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, errors.INVALID_REQUEST.Wrap(err)
		}
	}

	// A funding source must not be reused across concurrent settlement
	// attempts for the same address: fetch-and-select up to cosign
	// submission is a critical section per address.
	unlock := s.lockAddress(signer.Address())
	defer unlock()

	cfg, err := s.indexer.Config(ctx)
	if err != nil {
		return nil, err
	}

	target := uint64(0)
	burnDestination := false
	for _, receiver := range receivers {
		target += receiver.AtomicAmount(cfg.Decimals)
		if receiver.Address == cfg.BurnAddress {
			burnDestination = true
		}
	}
	if target == 0 {
		return nil, errors.INVALID_REQUEST.New("total transfer amount is zero").
			WithMetadata(errors.RequestMetadata{Recipients: len(receivers)})
	}

	sources := options.sources
	if len(sources) == 0 {
		sources, err = s.indexer.FundingSources(ctx, signer.Address(), options.sourceFilter)
		if err != nil {
			return nil, err
		}
	}

	sel, err := selectFundingSources(orderFundingSources(sources), target, cfg, burnDestination)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"inputs": len(sel.sources), "target": target, "fee": sel.fee, "change": sel.change,
	}).Debug("funding sources selected")

	atx, err := s.assemble(ctx, sel, receivers, cfg)
	if err != nil {
		return nil, err
	}

	requests, responses, err := signInputs(atx, signer)
	if err != nil {
		return nil, err
	}
	if err := applySignatures(atx, responses); err != nil {
		return nil, err
	}

	raw, err := bsv.SerializeTx(atx.tx)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}

	result, err := s.cosigner.Cosign(ctx, hex.EncodeToString(raw), requests)
	if err != nil {
		return nil, err
	}

	if result.FinalTx == nil {
		log.WithField("ticket", result.TicketID).Debug("transfer accepted for async settlement")
		return &types.TransferOutcome{TicketID: result.TicketID}, nil
	}

	// Synchronous settlement: decode the dual-authorized payload, re-derive
	// the final transaction and broadcast it.
	finalTx, _, err := bsv.DecodeTx(result.FinalTx)
	if err != nil {
		return nil, errors.COSIGN_UNAVAILABLE.Wrap(err)
	}
	finalRaw, err := bsv.SerializeTx(finalTx)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}

	txid, err := s.cosigner.Broadcast(ctx, finalRaw)
	if err != nil {
		return nil, err
	}

	return &types.TransferOutcome{
		TxID:     txid,
		RawTxHex: hex.EncodeToString(finalRaw),
	}, nil
}
