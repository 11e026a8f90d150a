package bsv

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// Sighash flags. FORKID selects the BIP143-style digest the network enforces
// on every signature; ANYONECANPAY commits only to the input being signed so
// the cosigning authority may extend the transaction without invalidating
// owner signatures.
const (
	SighashAll          = uint32(0x01)
	SighashNone         = uint32(0x02)
	SighashSingle       = uint32(0x03)
	SighashForkID       = uint32(0x40)
	SighashAnyoneCanPay = uint32(0x80)

	sighashOutputMask = uint32(0x1f)
)

// SignatureHash computes the digest an input's signature commits to:
// version, the prevout set selected by hashType, the outpoint, locking
// script and value being spent, the outputs, lock time and the flags
// themselves, double-SHA256'd.
func SignatureHash(
	tx *wire.MsgTx, idx int, prevScript []byte, prevValue uint64, hashType uint32,
) ([]byte, error) {
	if idx < 0 || idx >= len(tx.TxIn) {
		return nil, fmt.Errorf("input index %d out of range (%d inputs)", idx, len(tx.TxIn))
	}
	if hashType&SighashForkID == 0 {
		return nil, fmt.Errorf("sighash flags %#x missing forkid", hashType)
	}

	var hashPrevouts, hashSequence, hashOutputs [32]byte

	if hashType&SighashAnyoneCanPay == 0 {
		var buf bytes.Buffer
		for _, in := range tx.TxIn {
			buf.Write(in.PreviousOutPoint.Hash[:])
			_ = binary.Write(&buf, binary.LittleEndian, in.PreviousOutPoint.Index)
		}
		copy(hashPrevouts[:], chainhash.DoubleHashB(buf.Bytes()))
	}

	if hashType&SighashAnyoneCanPay == 0 &&
		hashType&sighashOutputMask != SighashSingle &&
		hashType&sighashOutputMask != SighashNone {
		var buf bytes.Buffer
		for _, in := range tx.TxIn {
			_ = binary.Write(&buf, binary.LittleEndian, in.Sequence)
		}
		copy(hashSequence[:], chainhash.DoubleHashB(buf.Bytes()))
	}

	switch hashType & sighashOutputMask {
	case SighashNone:
	case SighashSingle:
		if idx < len(tx.TxOut) {
			var buf bytes.Buffer
			if err := wire.WriteTxOut(&buf, 0, 0, tx.TxOut[idx]); err != nil {
				return nil, err
			}
			copy(hashOutputs[:], chainhash.DoubleHashB(buf.Bytes()))
		}
	default:
		var buf bytes.Buffer
		for _, out := range tx.TxOut {
			if err := wire.WriteTxOut(&buf, 0, 0, out); err != nil {
				return nil, err
			}
		}
		copy(hashOutputs[:], chainhash.DoubleHashB(buf.Bytes()))
	}

	in := tx.TxIn[idx]

	var preimage bytes.Buffer
	_ = binary.Write(&preimage, binary.LittleEndian, tx.Version)
	preimage.Write(hashPrevouts[:])
	preimage.Write(hashSequence[:])
	preimage.Write(in.PreviousOutPoint.Hash[:])
	_ = binary.Write(&preimage, binary.LittleEndian, in.PreviousOutPoint.Index)
	if err := wire.WriteVarBytes(&preimage, 0, prevScript); err != nil {
		return nil, err
	}
	_ = binary.Write(&preimage, binary.LittleEndian, prevValue)
	_ = binary.Write(&preimage, binary.LittleEndian, in.Sequence)
	preimage.Write(hashOutputs[:])
	_ = binary.Write(&preimage, binary.LittleEndian, tx.LockTime)
	_ = binary.Write(&preimage, binary.LittleEndian, hashType)

	return chainhash.DoubleHashB(preimage.Bytes()), nil
}

// SignInput signs input idx of tx with the owner's key and returns the
// canonical transaction signature: deterministic DER-encoded ECDSA with the
// sighash flags appended.
func SignInput(
	tx *wire.MsgTx, idx int, prevScript []byte, prevValue uint64,
	hashType uint32, key *btcec.PrivateKey,
) ([]byte, error) {
	digest, err := SignatureHash(tx, idx, prevScript, prevValue, hashType)
	if err != nil {
		return nil, err
	}
	sig := ecdsa.Sign(key, digest)
	return append(sig.Serialize(), byte(hashType)), nil
}
