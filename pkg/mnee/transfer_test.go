package mneesdk

import (
	"bytes"
	"context"
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/mnee-xyz/mnee-cli/pkg/bsv"
	"github.com/mnee-xyz/mnee-cli/pkg/errors"
	"github.com/mnee-xyz/mnee-cli/pkg/mnee/types"
	"github.com/mnee-xyz/mnee-cli/pkg/mnee/wallet"
)

type transferFixture struct {
	signer   wallet.Signer
	config   *types.TokenConfig
	indexer  *fakeIndexer
	cosigner *fakeCosigner

	recipientA string
	recipientB string
}

func newTransferFixture(t *testing.T) *transferFixture {
	t.Helper()

	ownerKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	signer := wallet.NewKeySigner(ownerKey)

	newAddress := func() string {
		key, err := btcec.NewPrivateKey()
		require.NoError(t, err)
		return bsv.PubKeyToAddress(key.PubKey().SerializeCompressed())
	}

	approverKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	cfg := &types.TokenConfig{
		ApproverPublicKey: hex.EncodeToString(approverKey.PubKey().SerializeCompressed()),
		FeeAddress:        newAddress(),
		BurnAddress:       newAddress(),
		MintAddress:       newAddress(),
		FeeTiers:          []types.FeeTier{{Min: 0, Max: 2_000_000, Fee: 1000}},
		Decimals:          5,
		TokenID:           "a3b1_0",
	}

	// one ancestor carrying both funding outputs
	ownerLock, err := bsv.NewOwnerApproverLock(signer.Address(), cfg.ApproverPublicKey)
	require.NoError(t, err)

	ancestor := wire.NewMsgTx(wire.TxVersion)
	ancestor.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{}, 0), nil, nil))
	for _, amount := range []uint64{600_000, 500_000} {
		script, err := ownerLock.ScriptWithInscription(
			bsv.NewTransferInscription(cfg.TokenID, amount),
		)
		require.NoError(t, err)
		ancestor.AddTxOut(wire.NewTxOut(1, script))
	}
	ancestorID := ancestor.TxHash().String()

	idx := &fakeIndexer{
		config: cfg,
		sources: []types.FundingSource{
			{
				SourceTxID: ancestorID, OutputIndex: 0, OwnerAddress: signer.Address(),
				AtomicAmount: 600_000, Operation: types.OperationTransfer, Score: 2, Satoshis: 1,
			},
			{
				SourceTxID: ancestorID, OutputIndex: 1, OwnerAddress: signer.Address(),
				AtomicAmount: 500_000, Operation: types.OperationTransfer, Score: 1, Satoshis: 1,
			},
		},
		ancestors: map[string]*wire.MsgTx{ancestorID: ancestor},
	}

	return &transferFixture{
		signer:     signer,
		config:     cfg,
		indexer:    idx,
		cosigner:   &fakeCosigner{},
		recipientA: newAddress(),
		recipientB: newAddress(),
	}
}

func (f *transferFixture) expectedOutputScript(
	t *testing.T, address string, atomicAmount uint64,
) []byte {
	t.Helper()
	lock, err := bsv.NewOwnerApproverLock(address, f.config.ApproverPublicKey)
	require.NoError(t, err)
	script, err := lock.ScriptWithInscription(
		bsv.NewTransferInscription(f.config.TokenID, atomicAmount),
	)
	require.NoError(t, err)
	return script
}

func TestTransfer(t *testing.T) {
	t.Run("assembles, signs and settles synchronously", func(t *testing.T) {
		f := newTransferFixture(t)
		svc := newTestService(f.indexer, f.cosigner)

		outcome, err := svc.Transfer(
			context.Background(), f.signer,
			[]types.Receiver{
				{Address: f.recipientA, DecimalAmount: 6.0},
				{Address: f.recipientB, DecimalAmount: 4.0},
			},
		)
		require.NoError(t, err)
		require.NotEmpty(t, outcome.TxID)
		require.NotEmpty(t, outcome.RawTxHex)
		require.Empty(t, outcome.TicketID)
		require.Equal(t, 1, f.cosigner.broadcastCalls)

		raw, err := hex.DecodeString(f.cosigner.submittedRawTxHex)
		require.NoError(t, err)
		tx, _, err := bsv.DecodeTx(raw)
		require.NoError(t, err)

		// output order is fixed: recipients in request order, fee, change
		require.Len(t, tx.TxOut, 4)
		expected := [][]byte{
			f.expectedOutputScript(t, f.recipientA, 600_000),
			f.expectedOutputScript(t, f.recipientB, 400_000),
			f.expectedOutputScript(t, f.config.FeeAddress, 1000),
			f.expectedOutputScript(t, f.signer.Address(), 99_000),
		}
		for i, out := range tx.TxOut {
			require.EqualValues(t, 1, out.Value)
			require.True(t, bytes.Equal(expected[i], out.PkScript), "output %d script mismatch", i)
		}

		// both inputs signed, no input left unpopulated
		require.Len(t, tx.TxIn, 2)
		for _, in := range tx.TxIn {
			require.NotEmpty(t, in.SignatureScript)
		}

		// one signature request per input, addressed by input index
		require.Len(t, f.cosigner.submittedRequests, 2)
		for i, req := range f.cosigner.submittedRequests {
			require.Equal(t, i, req.InputIndex)
			require.Equal(t, f.signer.Address(), req.OwnerAddress)
			require.EqualValues(
				t, bsv.SighashAll|bsv.SighashAnyoneCanPay|bsv.SighashForkID, req.SighashFlags,
			)
		}
	})

	t.Run("returns a ticket for asynchronous settlement", func(t *testing.T) {
		f := newTransferFixture(t)
		f.cosigner.async = true
		f.cosigner.ticketID = "ticket-42"
		svc := newTestService(f.indexer, f.cosigner)

		outcome, err := svc.Transfer(
			context.Background(), f.signer,
			[]types.Receiver{{Address: f.recipientA, DecimalAmount: 6.0}},
		)
		require.NoError(t, err)
		require.Equal(t, "ticket-42", outcome.TicketID)
		require.Empty(t, outcome.TxID)
		require.Equal(t, 0, f.cosigner.broadcastCalls)
	})

	t.Run("frozen address rejection skips broadcast", func(t *testing.T) {
		f := newTransferFixture(t)
		f.cosigner.cosignErr = errors.COSIGN_REJECTED.New("address frozen").
			WithMetadata(errors.CosignMetadata{Reason: errors.CosignReasonFrozen})
		svc := newTestService(f.indexer, f.cosigner)

		_, err := svc.Transfer(
			context.Background(), f.signer,
			[]types.Receiver{{Address: f.recipientA, DecimalAmount: 6.0}},
		)
		require.Error(t, err)
		reason, ok := errors.RejectReason(err)
		require.True(t, ok)
		require.Equal(t, errors.CosignReasonFrozen, reason)
		require.Equal(t, 0, f.cosigner.broadcastCalls)
	})

	t.Run("insufficient funds stops before ancestor fetches", func(t *testing.T) {
		f := newTransferFixture(t)
		svc := newTestService(f.indexer, f.cosigner)

		_, err := svc.Transfer(
			context.Background(), f.signer,
			[]types.Receiver{{Address: f.recipientA, DecimalAmount: 15.0}},
		)
		require.Error(t, err)
		require.True(t, errors.INSUFFICIENT_FUNDS.Is(err))
		require.Equal(t, 1, f.indexer.sourceCalls)
		require.Equal(t, 0, f.indexer.ancestorCalls)
		require.Empty(t, f.cosigner.submittedRawTxHex)
	})

	t.Run("invalid request rejected before any network call", func(t *testing.T) {
		f := newTransferFixture(t)
		svc := newTestService(f.indexer, f.cosigner)

		_, err := svc.Transfer(context.Background(), f.signer, nil)
		require.Error(t, err)
		require.True(t, errors.INVALID_REQUEST.Is(err))

		_, err = svc.Transfer(
			context.Background(), f.signer,
			[]types.Receiver{{Address: f.recipientA, DecimalAmount: -1}},
		)
		require.Error(t, err)
		require.True(t, errors.INVALID_REQUEST.Is(err))

		require.Equal(t, 0, f.indexer.configCalls)
		require.Equal(t, 0, f.indexer.sourceCalls)
	})

	t.Run("burn transfer emits no fee output", func(t *testing.T) {
		f := newTransferFixture(t)
		svc := newTestService(f.indexer, f.cosigner)

		outcome, err := svc.Transfer(
			context.Background(), f.signer,
			[]types.Receiver{{Address: f.config.BurnAddress, DecimalAmount: 6.0}},
		)
		require.NoError(t, err)
		require.NotEmpty(t, outcome.TxID)

		raw, err := hex.DecodeString(f.cosigner.submittedRawTxHex)
		require.NoError(t, err)
		tx, _, err := bsv.DecodeTx(raw)
		require.NoError(t, err)

		// burn recipient, no fee output; change of 0 is omitted
		require.Len(t, tx.TxOut, 1)
		require.True(t, bytes.Equal(
			f.expectedOutputScript(t, f.config.BurnAddress, 600_000), tx.TxOut[0].PkScript,
		))
	})
}
