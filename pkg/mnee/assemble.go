package mneesdk

import (
	"context"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/mnee-xyz/mnee-cli/pkg/bsv"
	"github.com/mnee-xyz/mnee-cli/pkg/errors"
	"github.com/mnee-xyz/mnee-cli/pkg/mnee/types"
)

// tokenOutputValue is the base-currency value every inscription output
// carries.
const tokenOutputValue = 1

// assembledInput pairs a consumed funding source with the previous-output
// data signing needs.
type assembledInput struct {
	source        types.FundingSource
	lockingScript []byte
	satoshis      uint64
}

// assembledTx is the transaction under construction. It is mutated only
// during assembly and signing.
type assembledTx struct {
	tx     *wire.MsgTx
	inputs []assembledInput
}

// assemble builds the binary transaction: one input per selected funding
// source (unlocking scripts left empty for signing), then outputs in the
// fixed order downstream indexers key off: recipients in request order, fee
// if any, change if any.
func (s *service) assemble(
	ctx context.Context, sel *selection, receivers []types.Receiver, cfg *types.TokenConfig,
) (*assembledTx, error) {
	tx := wire.NewMsgTx(wire.TxVersion)
	inputs := make([]assembledInput, 0, len(sel.sources))

	for _, source := range sel.sources {
		ancestor, err := s.indexer.SourceTransaction(ctx, source.SourceTxID)
		if err != nil {
			return nil, err
		}
		if int(source.OutputIndex) >= len(ancestor.TxOut) {
			return nil, errors.ANCESTOR_FETCH_FAILED.New(
				"ancestor %s has no output %d", source.SourceTxID, source.OutputIndex,
			).WithMetadata(errors.AncestorMetadata{Txid: source.SourceTxID})
		}
		prevOut := ancestor.TxOut[source.OutputIndex]

		hash, err := chainhash.NewHashFromStr(source.SourceTxID)
		if err != nil {
			return nil, errors.INVALID_REQUEST.New(
				"funding source carries malformed txid %q", source.SourceTxID,
			)
		}
		tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(hash, source.OutputIndex), nil, nil))

		inputs = append(inputs, assembledInput{
			source:        source,
			lockingScript: prevOut.PkScript,
			satoshis:      uint64(prevOut.Value),
		})
	}

	addOutput := func(address string, atomicAmount uint64) error {
		lock, err := bsv.NewOwnerApproverLock(address, cfg.ApproverPublicKey)
		if err != nil {
			return errors.INVALID_REQUEST.New("invalid output address: %v", err)
		}
		script, err := lock.ScriptWithInscription(
			bsv.NewTransferInscription(cfg.TokenID, atomicAmount),
		)
		if err != nil {
			return errors.INTERNAL_ERROR.Wrap(err)
		}
		tx.AddTxOut(wire.NewTxOut(tokenOutputValue, script))
		return nil
	}

	for _, receiver := range receivers {
		if err := addOutput(receiver.Address, receiver.AtomicAmount(cfg.Decimals)); err != nil {
			return nil, err
		}
	}
	if sel.fee > 0 {
		if err := addOutput(cfg.FeeAddress, sel.fee); err != nil {
			return nil, err
		}
	}
	if sel.change > 0 {
		if err := addOutput(sel.changeAddress, sel.change); err != nil {
			return nil, err
		}
	}

	return &assembledTx{tx: tx, inputs: inputs}, nil
}
