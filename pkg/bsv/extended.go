package bsv

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// extendedMarker follows the version field of an extended-format
// transaction. The extended encoding carries each input's previous locking
// script and value inline so the payload can be signed and verified without
// further lookups.
var extendedMarker = []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0xEF}

// PrevOutput is the previous-output data an extended-format input embeds.
type PrevOutput struct {
	LockingScript []byte
	Satoshis      uint64
}

// DecodeTx decodes a transaction in either the plain or the extended
// encoding. For extended payloads the per-input previous outputs are
// returned alongside the transaction; for plain payloads the second return
// is nil.
func DecodeTx(raw []byte) (*wire.MsgTx, []PrevOutput, error) {
	if len(raw) >= 10 && bytes.Equal(raw[4:10], extendedMarker) {
		return decodeExtended(raw)
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, nil, fmt.Errorf("invalid transaction payload: %w", err)
	}
	return tx, nil, nil
}

func decodeExtended(raw []byte) (*wire.MsgTx, []PrevOutput, error) {
	r := bytes.NewReader(raw)

	var version int32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, nil, err
	}
	marker := make([]byte, 6)
	if _, err := io.ReadFull(r, marker); err != nil {
		return nil, nil, err
	}

	tx := wire.NewMsgTx(version)

	inCount, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid input count: %w", err)
	}
	prevOuts := make([]PrevOutput, 0, inCount)
	for i := uint64(0); i < inCount; i++ {
		var hash chainhash.Hash
		if _, err := io.ReadFull(r, hash[:]); err != nil {
			return nil, nil, err
		}
		var index uint32
		if err := binary.Read(r, binary.LittleEndian, &index); err != nil {
			return nil, nil, err
		}
		unlockingScript, err := wire.ReadVarBytes(r, 0, wire.MaxMessagePayload, "unlocking script")
		if err != nil {
			return nil, nil, err
		}
		var sequence uint32
		if err := binary.Read(r, binary.LittleEndian, &sequence); err != nil {
			return nil, nil, err
		}
		var satoshis uint64
		if err := binary.Read(r, binary.LittleEndian, &satoshis); err != nil {
			return nil, nil, err
		}
		lockingScript, err := wire.ReadVarBytes(r, 0, wire.MaxMessagePayload, "locking script")
		if err != nil {
			return nil, nil, err
		}

		in := wire.NewTxIn(wire.NewOutPoint(&hash, index), unlockingScript, nil)
		in.Sequence = sequence
		tx.AddTxIn(in)
		prevOuts = append(prevOuts, PrevOutput{LockingScript: lockingScript, Satoshis: satoshis})
	}

	outCount, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid output count: %w", err)
	}
	for i := uint64(0); i < outCount; i++ {
		var value uint64
		if err := binary.Read(r, binary.LittleEndian, &value); err != nil {
			return nil, nil, err
		}
		script, err := wire.ReadVarBytes(r, 0, wire.MaxMessagePayload, "locking script")
		if err != nil {
			return nil, nil, err
		}
		tx.AddTxOut(wire.NewTxOut(int64(value), script))
	}

	var lockTime uint32
	if err := binary.Read(r, binary.LittleEndian, &lockTime); err != nil {
		return nil, nil, err
	}
	tx.LockTime = lockTime

	return tx, prevOuts, nil
}

// EncodeExtended serializes tx in the extended encoding, embedding each
// input's previous locking script and value.
func EncodeExtended(tx *wire.MsgTx, prevOuts []PrevOutput) ([]byte, error) {
	if len(prevOuts) != len(tx.TxIn) {
		return nil, fmt.Errorf(
			"previous output count %d does not match input count %d",
			len(prevOuts), len(tx.TxIn),
		)
	}

	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, tx.Version)
	buf.Write(extendedMarker)

	if err := wire.WriteVarInt(&buf, 0, uint64(len(tx.TxIn))); err != nil {
		return nil, err
	}
	for i, in := range tx.TxIn {
		buf.Write(in.PreviousOutPoint.Hash[:])
		_ = binary.Write(&buf, binary.LittleEndian, in.PreviousOutPoint.Index)
		if err := wire.WriteVarBytes(&buf, 0, in.SignatureScript); err != nil {
			return nil, err
		}
		_ = binary.Write(&buf, binary.LittleEndian, in.Sequence)
		_ = binary.Write(&buf, binary.LittleEndian, prevOuts[i].Satoshis)
		if err := wire.WriteVarBytes(&buf, 0, prevOuts[i].LockingScript); err != nil {
			return nil, err
		}
	}

	if err := wire.WriteVarInt(&buf, 0, uint64(len(tx.TxOut))); err != nil {
		return nil, err
	}
	for _, out := range tx.TxOut {
		_ = binary.Write(&buf, binary.LittleEndian, uint64(out.Value))
		if err := wire.WriteVarBytes(&buf, 0, out.PkScript); err != nil {
			return nil, err
		}
	}

	_ = binary.Write(&buf, binary.LittleEndian, tx.LockTime)
	return buf.Bytes(), nil
}

// SerializeTx renders tx in the plain legacy encoding used for broadcast.
func SerializeTx(tx *wire.MsgTx) ([]byte, error) {
	var buf bytes.Buffer
	if err := tx.SerializeNoWitness(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
