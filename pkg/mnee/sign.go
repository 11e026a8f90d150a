package mneesdk

import (
	"encoding/hex"

	"github.com/mnee-xyz/mnee-cli/pkg/bsv"
	"github.com/mnee-xyz/mnee-cli/pkg/errors"
	"github.com/mnee-xyz/mnee-cli/pkg/mnee/cosigner"
	"github.com/mnee-xyz/mnee-cli/pkg/mnee/wallet"
)

// transferSighashFlags commits to all outputs and only the input being
// signed, so the cosigning authority may add inputs without invalidating
// owner signatures.
const transferSighashFlags = bsv.SighashAll | bsv.SighashAnyoneCanPay | bsv.SighashForkID

// signInputs produces one signature request and response per input. Each
// signature covers the domain-separated digest over the specific previous
// output being spent.
func signInputs(
	atx *assembledTx, signer wallet.Signer,
) ([]cosigner.SignatureRequest, []cosigner.SignatureResponse, error) {
	requests := make([]cosigner.SignatureRequest, 0, len(atx.inputs))
	responses := make([]cosigner.SignatureResponse, 0, len(atx.inputs))

	for idx, in := range atx.inputs {
		requests = append(requests, cosigner.SignatureRequest{
			PrevTxID:         in.source.SourceTxID,
			OutputIndex:      in.source.OutputIndex,
			InputIndex:       idx,
			OwnerAddress:     in.source.OwnerAddress,
			LockingScriptHex: hex.EncodeToString(in.lockingScript),
			Satoshis:         in.satoshis,
			SighashFlags:     transferSighashFlags,
		})

		sig, err := bsv.SignInput(
			atx.tx, idx, in.lockingScript, in.satoshis,
			transferSighashFlags, signer.PrivateKey(),
		)
		if err != nil {
			return nil, nil, errors.SIGNING_FAILED.Wrap(err).
				WithMetadata(errors.SigningMetadata{InputIndex: idx})
		}

		responses = append(responses, cosigner.SignatureResponse{
			InputIndex:   idx,
			SignatureHex: hex.EncodeToString(sig),
			PublicKeyHex: hex.EncodeToString(signer.PubKey()),
			SighashFlags: transferSighashFlags,
		})
	}

	return requests, responses, nil
}

// applySignatures populates each input's unlocking script from its
// signature response. Responses address inputs by index, not array order;
// a response must address an existing, still-unlocked input, and afterwards
// no input may remain unpopulated.
func applySignatures(atx *assembledTx, responses []cosigner.SignatureResponse) error {
	for _, resp := range responses {
		if resp.InputIndex < 0 || resp.InputIndex >= len(atx.tx.TxIn) {
			return errors.SIGNING_FAILED.New(
				"signature response addresses unknown input %d", resp.InputIndex,
			).WithMetadata(errors.SigningMetadata{InputIndex: resp.InputIndex})
		}
		in := atx.tx.TxIn[resp.InputIndex]
		if len(in.SignatureScript) > 0 {
			return errors.SIGNING_FAILED.New(
				"signature response addresses already-unlocked input %d", resp.InputIndex,
			).WithMetadata(errors.SigningMetadata{InputIndex: resp.InputIndex})
		}

		sig, err := hex.DecodeString(resp.SignatureHex)
		if err != nil {
			return errors.SIGNING_FAILED.Wrap(err).
				WithMetadata(errors.SigningMetadata{InputIndex: resp.InputIndex})
		}
		pubKey, err := hex.DecodeString(resp.PublicKeyHex)
		if err != nil {
			return errors.SIGNING_FAILED.Wrap(err).
				WithMetadata(errors.SigningMetadata{InputIndex: resp.InputIndex})
		}

		unlock := bsv.Unlock{Kind: bsv.LockOwnerAndApprover, Signature: sig, PubKey: pubKey}
		script, err := unlock.Script()
		if err != nil {
			return errors.SIGNING_FAILED.Wrap(err).
				WithMetadata(errors.SigningMetadata{InputIndex: resp.InputIndex})
		}
		in.SignatureScript = script
	}

	for idx, in := range atx.tx.TxIn {
		if len(in.SignatureScript) == 0 {
			return errors.SIGNING_FAILED.New("input %d left unpopulated", idx).
				WithMetadata(errors.SigningMetadata{InputIndex: idx})
		}
	}
	return nil
}
